package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sensord/pkg/frame"
)

func TestDecodeCommand_Text(t *testing.T) {
	out, err := execute(t, "decode", "aa0004d202d8ff", "aa 03 00 00 00 03 ff", "aa:00:00:64:01:64:ff")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "aa0004d202d8ff\taccepted 12.34", lines[0])
	assert.Equal(t, "aa0300000003ff\tsensor fault 0x03", lines[1])
	assert.Equal(t, "aa0000640164ff\tmalformed frame: checksum mismatch", lines[2])
}

func TestDecodeCommand_JSON(t *testing.T) {
	out, err := execute(t, "decode", "--json", "aa0004d202d8ff", "bb0004d202d8ff")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"frame":"aa0004d202d8ff","kind":"accepted","reading":{"raw":1234,"decimals":2,"value":12.34}}`, lines[0])
	assert.JSONEq(t, `{"frame":"bb0004d202d8ff","kind":"malformed","reason":"header mismatch"}`, lines[1])
}

func TestDecodeCommand_BadInput(t *testing.T) {
	_, err := execute(t, "decode", "aa00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid frame length")

	_, err = execute(t, "decode", "zz")
	require.Error(t, err)

	_, err = execute(t, "decode")
	require.Error(t, err)
}

func TestWriteDecoded_SensorErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDecoded(&buf, []frame.Frame{frame.EncodeFault(0x10)}, true))

	var got decodedFrame
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.NotNil(t, got.Code)
	assert.Equal(t, frame.FaultCode(0x10), *got.Code)
	assert.Nil(t, got.Reading)
	assert.Nil(t, got.Reason)
}
