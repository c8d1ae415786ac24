package parser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// MetersToFeet converts simulator elevations to feet
const MetersToFeet = 3.28084

// FrameKind represents the type of an X-Plane datagram
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameRPOS
	FrameRREF
)

func (k FrameKind) String() string {
	switch k {
	case FrameRPOS:
		return "RPOS"
	case FrameRREF:
		return "RREF"
	default:
		return "UNKNOWN"
	}
}

// Wire layout of inbound frames. All values are little-endian.
const (
	tagLen = 4

	rposElevASLOffset = 21 // float64, meters
	rposElevAGLOffset = 29 // float32, meters
	rposHeadingOffset = 37 // float32, degrees
	rposRollOffset    = 41 // float32, degrees
	rposMinLen        = rposRollOffset + 4

	rrefIDOffset    = 8 // uint8
	rrefValueOffset = 9 // float32
	rrefMinLen      = rrefValueOffset + 4
)

var (
	ErrShortFrame = errors.New("frame too short")
	ErrUnknownTag = errors.New("unknown frame tag")
)

// Frame is the decoded form of a single datagram. Position is set for RPOS frames,
// RequestID and Value for RREF frames.
type Frame struct {
	Kind      FrameKind
	Position  types.FlightSampleUpdated
	RequestID int
	Value     float32
	Dataref   types.Dataref
}

// ParseFrame parses a raw datagram. It never indexes past the end of data; malformed
// input yields a FrameUnknown together with an error describing why.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < tagLen {
		return Frame{Kind: FrameUnknown}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}

	switch tag := string(data[:tagLen]); tag {
	case "RPOS":
		if len(data) < rposMinLen {
			return Frame{Kind: FrameUnknown}, fmt.Errorf("%w: RPOS needs %d bytes, got %d", ErrShortFrame, rposMinLen, len(data))
		}
		return Frame{
			Kind: FrameRPOS,
			Position: types.FlightSampleUpdated{
				Heading: float64(float32At(data, rposHeadingOffset)),
				ElevASL: float64At(data, rposElevASLOffset) * MetersToFeet,
				ElevAGL: float64(float32At(data, rposElevAGLOffset)) * MetersToFeet,
				Roll:    float64(float32At(data, rposRollOffset)),
			},
		}, nil

	case "RREF":
		if len(data) < rrefMinLen {
			return Frame{Kind: FrameUnknown}, fmt.Errorf("%w: RREF needs %d bytes, got %d", ErrShortFrame, rrefMinLen, len(data))
		}
		return Frame{
			Kind:      FrameRREF,
			RequestID: int(data[rrefIDOffset]),
			Value:     float32At(data, rrefValueOffset),
		}, nil

	default:
		return Frame{Kind: FrameUnknown}, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

func float32At(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
}

func float64At(data []byte, offset int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
}

// Decoder resolves RREF request ids against the configured registrations.
type Decoder struct {
	registrations map[int]types.Registration
	logger        *slog.Logger
}

// NewDecoder creates a decoder for the given subscriptions
func NewDecoder(registrations []types.Registration, logger *slog.Logger) *Decoder {
	regs := make(map[int]types.Registration, len(registrations))
	for _, reg := range registrations {
		regs[reg.ID] = reg
	}

	return &Decoder{
		registrations: regs,
		logger:        logging.OrDiscard(logger),
	}
}

// Decode parses data and resolves dataref names. Anything that cannot be used
// (short buffer, unknown tag, unknown request id) comes back as FrameUnknown.
func (d *Decoder) Decode(data []byte) Frame {
	frame, err := ParseFrame(data)
	if err != nil {
		d.logger.Debug("dropping datagram", slog.Int("bytes", len(data)), slog.Any("error", err))
		return frame
	}

	if frame.Kind == FrameRREF {
		reg, ok := d.registrations[frame.RequestID]
		if !ok {
			d.logger.Warn("dropping RREF value for unknown request id", slog.Int("id", frame.RequestID))
			return Frame{Kind: FrameUnknown}
		}
		frame.Dataref = reg.Dataref
	}

	return frame
}
