package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sensord/pkg/frame"
	"github.com/itohio/sensord/pkg/logging"
	"github.com/itohio/sensord/pkg/poll"
	"github.com/itohio/sensord/pkg/store"
)

var (
	testBootID = uuid.MustParse("0b9d3c56-7f5e-4a8c-9d2b-1e6f4a3c2b10")
	testTime   = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
)

func testClock() time.Time { return testTime }

func newTestServer(st *store.Store[poll.Stamp]) *Server[poll.Stamp] {
	return NewServer[poll.Stamp](st,
		WithBootID[poll.Stamp](testBootID),
		WithClock[poll.Stamp](testClock),
		WithLogger[poll.Stamp](logging.Discard()),
	)
}

// populatedStore records one frame of every kind, plus a duplicate.
func populatedStore(t *testing.T) *store.Store[poll.Stamp] {
	t.Helper()

	st := store.New[poll.Stamp](store.DefaultCapacities())
	stamp := poll.NewStamper(testClock)

	corrupt := frame.Encode(frame.Reading{Raw: 100, Decimals: 1})
	corrupt[5] ^= 0x01

	for _, f := range []frame.Frame{
		frame.Encode(frame.Reading{Raw: 1234, Decimals: 2}),
		frame.Encode(frame.Reading{Raw: 1234, Decimals: 2}),
		frame.EncodeFault(0x03),
		corrupt,
		frame.Encode(frame.Reading{Raw: 100, Decimals: 1}),
	} {
		st.Record(stamp(), f)
	}
	return st
}

func TestReadings_Golden(t *testing.T) {
	srv := newTestServer(populatedStore(t))

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out bytes.Buffer
	require.NoError(t, json.Indent(&out, bytes.TrimSpace(rec.Body.Bytes()), "", "  "))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "readings", out.Bytes())
}

func TestReadings_EmptyStore(t *testing.T) {
	srv := newTestServer(store.New[poll.Stamp](store.DefaultCapacities()))

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, testBootID.String(), doc["boot_id"])
	assert.Equal(t, "2026-10-14T12:00:00Z", doc["generated_at"])

	st := doc["store"].(map[string]any)
	for _, key := range []string{"readings", "sensor_errors", "parse_errors", "frames"} {
		assert.Equal(t, []any{}, st[key], key)
	}
}

func TestHome(t *testing.T) {
	srv := newTestServer(store.New[poll.Stamp](store.DefaultCapacities()))

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `href="readings"`)

	rec = httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(store.New[poll.Stamp](store.DefaultCapacities()))

	for _, path := range []string{"/", "/readings"} {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := httptest.NewRecorder()
			srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", method, path)
		}
	}
}

func TestNewServer_GeneratesBootID(t *testing.T) {
	st := store.New[uint64](store.DefaultCapacities())
	a, b := NewServer[uint64](st), NewServer[uint64](st)
	assert.NotEqual(t, uuid.Nil, a.BootID())
	assert.NotEqual(t, a.BootID(), b.BootID())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(populatedStore(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/readings")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doc Document[poll.Stamp]
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, testBootID, doc.BootID)
	assert.Len(t, doc.Store.Frames, 5)
	assert.Equal(t, uint64(5), doc.Store.Frames[4].Taint.Seq)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	srv := newTestServer(store.New[poll.Stamp](store.DefaultCapacities()))
	err := srv.ListenAndServe(context.Background(), "not-an-address")
	assert.Error(t, err)
}
