package requirements

import (
	"math"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Steep turn entry limits
const (
	MinimumAGL      = 2500.0
	MinimumAirspeed = 90.0
	MaximumAirspeed = 100.0
	MinimumRPM      = 2185.0
	MaximumRPM      = 2415.0

	// EngagementBank is the bank angle, either side, that starts a steep turn
	EngagementBank = 45.0
)

// Evaluate returns the entry requirements for a maneuver given the latest flight sample.
// Maneuvers without requirements are never fulfilled.
func Evaluate(maneuver types.ManeuverType, sample types.FlightSample) types.RequirementSet {
	switch maneuver {
	case types.ManeuverSteepTurns:
		return steepTurn(sample)
	default:
		return types.RequirementSet{Items: []types.Requirement{}}
	}
}

func steepTurn(sample types.FlightSample) types.RequirementSet {
	items := []types.Requirement{
		{
			Description: "Altitude >= 2.500 AGL",
			Fulfilled:   sample.ElevAGL > MinimumAGL,
		},
		{
			Description: "KIAS: 95 knots (+/- 5%)",
			Fulfilled:   MinimumAirspeed <= sample.IndicatedAirspeed && sample.IndicatedAirspeed <= MaximumAirspeed,
		},
		{
			Description: "2300 RPM (+/- 5%)",
			Fulfilled:   MinimumRPM <= sample.EngineRPM && sample.EngineRPM <= MaximumRPM,
		},
	}

	all := true
	for _, item := range items {
		all = all && item.Fulfilled
	}

	return types.RequirementSet{AllFulfilled: all, Items: items}
}

// EngagementReady reports whether the pilot has met the requirements and rolled into the turn
// while no attempt is recording or awaiting a restart.
func EngagementReady(set types.RequirementSet, sample types.FlightSample, recording, ended bool) bool {
	return !recording && !ended && set.AllFulfilled && math.Abs(sample.Roll) >= EngagementBank
}
