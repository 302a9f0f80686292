package frame

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

const (
	// Size is the number of bytes the sensor sends per frame.
	Size = 7

	// Header is the marker byte every frame starts with.
	Header byte = 0xAA
	// Trailer is the marker byte every frame ends with.
	Trailer byte = 0xFF
	// StatusOK is the status byte value of a healthy measurement.
	StatusOK byte = 0x00
)

// Byte offsets inside a frame.
const (
	offHeader   = 0
	offStatus   = 1
	offValueHi  = 2
	offValueLo  = 3
	offDecimals = 4
	offChecksum = 5
	offTrailer  = 6
)

// Frame is one raw 7-byte unit captured from the serial link.
// Layout: header, status, value (big endian, 2 bytes), decimals, checksum, trailer.
type Frame [Size]byte

// FromBytes copies b into a Frame. b must be exactly Size bytes long.
func FromBytes(b []byte) (Frame, error) {
	var f Frame
	if len(b) != Size {
		return f, fmt.Errorf("invalid frame length: expected %d bytes, got %d", Size, len(b))
	}
	copy(f[:], b)
	return f, nil
}

// Parse decodes a hex string (spaces and colons are ignored) into a Frame.
func Parse(s string) (Frame, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(strings.TrimSpace(s))
	b, err := hex.DecodeString(clean)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid frame hex %q: %w", s, err)
	}
	return FromBytes(b)
}

// String returns the frame as lower-case hex.
func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}

// MarshalText implements encoding.TextMarshaler.
func (f Frame) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Frame) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Checksum computes the checksum over the payload bytes (status through decimals).
func (f Frame) Checksum() byte {
	var sum byte
	for _, b := range f[offStatus:offChecksum] {
		sum += b
	}
	return sum
}

// Encode builds a well-formed frame carrying r.
func Encode(r Reading) Frame {
	f := Frame{
		offHeader:   Header,
		offStatus:   StatusOK,
		offValueHi:  byte(r.Raw >> 8),
		offValueLo:  byte(r.Raw),
		offDecimals: r.Decimals,
		offTrailer:  Trailer,
	}
	f[offChecksum] = f.Checksum()
	return f
}

// EncodeFault builds a well-formed frame in which the sensor reports code.
// A zero code is reported as FaultUnknown since zero means healthy.
func EncodeFault(code FaultCode) Frame {
	if byte(code) == StatusOK {
		code = FaultUnknown
	}
	f := Frame{
		offHeader:  Header,
		offStatus:  byte(code),
		offTrailer: Trailer,
	}
	f[offChecksum] = f.Checksum()
	return f
}

// Reading is a decoded fixed-point measurement. Two readings are the same
// measurement iff they compare equal with ==.
type Reading struct {
	Raw      uint16 `json:"raw"`
	Decimals uint8  `json:"decimals"`
}

// maxPow10 is the largest power of ten representable as a float32.
const maxPow10 = 38

// Value returns the reading as a float: Raw / 10^Decimals.
func (r Reading) Value() float32 {
	if r.Decimals == 0 {
		return float32(r.Raw)
	}
	v := float32(r.Raw)
	d := float32(r.Decimals)
	// 10^39 overflows float32; scale in two steps so tiny values survive.
	if d > maxPow10 {
		v /= math32.Pow(10, maxPow10)
		d -= maxPow10
	}
	return v / math32.Pow(10, d)
}

func (r Reading) String() string {
	return fmt.Sprintf("%.*f", int(r.Decimals), r.Value())
}

// MarshalJSON adds the scaled value next to the raw fields.
func (r Reading) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, `{"raw":%d,"decimals":%d,"value":%s}`, r.Raw, r.Decimals, r.String()), nil
}
