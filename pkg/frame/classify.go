package frame

import (
	"fmt"
	"strconv"
)

// Kind tells which outcome a classified frame carries.
type Kind uint8

const (
	// Accepted frames carry a decoded Reading.
	Accepted Kind = iota + 1
	// SensorError frames are well-formed but the sensor reports a fault Code.
	SensorError
	// Malformed frames failed header, trailer or checksum validation.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case SensorError:
		return "sensor_error"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Reason describes why a frame is malformed. Reason values are usable as
// sentinel errors with errors.Is.
type Reason uint8

const (
	ReasonHeader Reason = iota + 1
	ReasonTrailer
	ReasonChecksum
)

func (r Reason) String() string {
	switch r {
	case ReasonHeader:
		return "header mismatch"
	case ReasonTrailer:
		return "trailer mismatch"
	case ReasonChecksum:
		return "checksum mismatch"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

func (r Reason) Error() string {
	return "malformed frame: " + r.String()
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(b []byte) error {
	for _, v := range []Reason{ReasonHeader, ReasonTrailer, ReasonChecksum} {
		if string(b) == v.String() {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown malformed frame reason %q", b)
}

// FaultCode is the status byte of a frame in which the sensor signals a fault.
type FaultCode uint8

// FaultUnknown is used when a fault has to be encoded without a specific code.
const FaultUnknown FaultCode = 0xFF

func (c FaultCode) String() string {
	return fmt.Sprintf("0x%02x", uint8(c))
}

func (c FaultCode) Error() string {
	return "sensor fault " + c.String()
}

// MarshalText implements encoding.TextMarshaler.
func (c FaultCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the
// hexadecimal form produced by MarshalText as well as plain decimals.
func (c *FaultCode) UnmarshalText(b []byte) error {
	v, err := strconv.ParseUint(string(b), 0, 8)
	if err != nil {
		return fmt.Errorf("invalid fault code %q: %w", b, err)
	}
	*c = FaultCode(v)
	return nil
}

// Event is the outcome of classifying one frame. Only the field matching
// Kind is meaningful.
type Event struct {
	Kind    Kind
	Reading Reading
	Code    FaultCode
	Reason  Reason
}

func (e Event) String() string {
	switch e.Kind {
	case Accepted:
		return "accepted " + e.Reading.String()
	case SensorError:
		return e.Code.Error()
	case Malformed:
		return e.Reason.Error()
	default:
		return e.Kind.String()
	}
}

// Classify validates f and decodes it. Header and trailer are checked first,
// then the checksum, then the sensor status. Classify has no side effects.
func Classify(f Frame) Event {
	switch {
	case f[offHeader] != Header:
		return Event{Kind: Malformed, Reason: ReasonHeader}
	case f[offTrailer] != Trailer:
		return Event{Kind: Malformed, Reason: ReasonTrailer}
	case f[offChecksum] != f.Checksum():
		return Event{Kind: Malformed, Reason: ReasonChecksum}
	}

	if status := f[offStatus]; status != StatusOK {
		return Event{Kind: SensorError, Code: FaultCode(status)}
	}

	return Event{
		Kind: Accepted,
		Reading: Reading{
			Raw:      uint16(f[offValueHi])<<8 | uint16(f[offValueLo]),
			Decimals: f[offDecimals],
		},
	}
}
