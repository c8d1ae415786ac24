package main

import (
	"math"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/maneuver"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Frame is the simulated aircraft state at one instant
type Frame struct {
	Position          types.FlightSampleUpdated
	IndicatedAirspeed float64
	EngineRPM         float64
}

// Value returns the frame's value for a subscribed dataref. Unknown datarefs read 0.
func (f Frame) Value(ref types.Dataref) float32 {
	switch ref {
	case types.DatarefIndicatedAirspeed:
		return float32(f.IndicatedAirspeed)
	case types.DatarefEngineRPM:
		return float32(f.EngineRPM)
	default:
		return 0
	}
}

// Script is a steep turn flown from level flight: a level lead-in, one full circle at a
// steady bank, then level flight around the entry heading.
type Script struct {
	LeadIn       time.Duration
	EntryHeading float64
	Bank         float64
	// TurnRate is in degrees per second
	TurnRate float64
	Left     bool

	ElevASL  float64
	ElevAGL  float64
	Airspeed float64
	RPM      float64
}

// DefaultScript is a right turn that meets the entry requirements and the steep turn criteria
func DefaultScript() Script {
	return Script{
		LeadIn:       3 * time.Second,
		EntryHeading: 90,
		Bank:         45,
		TurnRate:     11.5,
		ElevASL:      3500,
		ElevAGL:      2700,
		Airspeed:     95,
		RPM:          2300,
	}
}

// TurnDuration is how long the circle takes
func (s Script) TurnDuration() time.Duration {
	if s.TurnRate <= 0 {
		return 0
	}
	return time.Duration(360 / s.TurnRate * float64(time.Second))
}

// At returns the state elapsed into the script
func (s Script) At(elapsed time.Duration) Frame {
	frame := Frame{
		Position: types.FlightSampleUpdated{
			Heading: maneuver.NormalizeHeading(s.EntryHeading),
			ElevASL: s.ElevASL,
			ElevAGL: s.ElevAGL,
		},
		IndicatedAirspeed: s.Airspeed,
		EngineRPM:         s.RPM,
	}

	turning := elapsed - s.LeadIn
	if turning < 0 {
		return frame
	}
	if turning >= s.TurnDuration() {
		// after the rollout the heading wanders a few degrees around the entry heading
		sec := (turning - s.TurnDuration()).Seconds()
		frame.Position.Heading = maneuver.NormalizeHeading(s.EntryHeading + 3*math.Sin(2*math.Pi*sec/4))
		frame.Position.Roll = 2 * math.Cos(2*math.Pi*sec/4)
		return frame
	}

	sec := turning.Seconds()
	turned := s.TurnRate * sec
	// a pilot never holds the bank perfectly
	roll := s.Bank + 0.5*math.Sin(2*math.Pi*sec/3)
	if s.Left {
		turned, roll = -turned, -roll
	}
	frame.Position.Heading = maneuver.NormalizeHeading(s.EntryHeading + turned)
	frame.Position.Roll = roll
	return frame
}

// Duration is the time until the aircraft rolls out on the entry heading
func (s Script) Duration() time.Duration {
	return s.LeadIn + s.TurnDuration()
}
