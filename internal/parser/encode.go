package parser

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Outbound subscription layout
const (
	RREFRequestLen = 413

	rrefRequestFreqOffset = 5
	rrefRequestIDOffset   = 12
	rrefRequestNameOffset = 13

	// rposFrameLen matches what X-Plane sends: header, lon/lat/elev doubles, then floats.
	rposFrameLen = 69
)

// EncodeRPOSRequest builds the continuous telemetry request, e.g. "RPOS05" for 5 Hz.
// A rate of 0 asks the simulator to stop sending.
func EncodeRPOSRequest(rateHz int) []byte {
	if rateHz < 0 {
		rateHz = 0
	}
	if rateHz > 99 {
		rateHz = 99
	}
	return []byte(fmt.Sprintf("RPOS%02d", rateHz))
}

// EncodeRREFRequest builds the fixed-size dataref subscription for reg.
// Dataref names longer than the buffer are truncated.
func EncodeRREFRequest(reg types.Registration) []byte {
	buf := make([]byte, RREFRequestLen)
	copy(buf, "RREF0")
	buf[rrefRequestFreqOffset] = byte(reg.FrequencyHz)
	buf[rrefRequestIDOffset] = byte(reg.ID)
	copy(buf[rrefRequestNameOffset:], string(reg.Dataref))
	return buf
}

// EncodeRPOSFrame builds an inbound-style RPOS datagram. Elevations are given in feet.
func EncodeRPOSFrame(pos types.FlightSampleUpdated) []byte {
	buf := make([]byte, rposFrameLen)
	copy(buf, "RPOS4")
	binary.LittleEndian.PutUint64(buf[rposElevASLOffset:], math.Float64bits(pos.ElevASL/MetersToFeet))
	binary.LittleEndian.PutUint32(buf[rposElevAGLOffset:], math.Float32bits(float32(pos.ElevAGL/MetersToFeet)))
	binary.LittleEndian.PutUint32(buf[rposHeadingOffset:], math.Float32bits(float32(pos.Heading)))
	binary.LittleEndian.PutUint32(buf[rposRollOffset:], math.Float32bits(float32(pos.Roll)))
	return buf
}

// EncodeRREFFrame builds an inbound-style RREF datagram for a single value.
func EncodeRREFFrame(id int, value float32) []byte {
	buf := make([]byte, rrefMinLen)
	copy(buf, "RREF,")
	buf[rrefIDOffset] = byte(id)
	binary.LittleEndian.PutUint32(buf[rrefValueOffset:], math.Float32bits(value))
	return buf
}
