package types

import (
	"time"
)

// FlightSample is the latest known flight state. It is replaced wholesale on every update.
type FlightSample struct {
	Heading           float64   `json:"heading"`
	ElevASL           float64   `json:"elev_asl_ft"`
	ElevAGL           float64   `json:"elev_agl_ft"`
	Roll              float64   `json:"roll"`
	IndicatedAirspeed float64   `json:"indicated_airspeed"`
	EngineRPM         float64   `json:"engine_rpm"`
	Timestamp         time.Time `json:"timestamp"`
}

// EntrySettings is the flight state captured when a maneuver attempt starts
type EntrySettings struct {
	AttemptID string       `json:"attempt_id"`
	Sample    FlightSample `json:"sample"`
}

// ConnectionStatus is the derived liveness of the simulator link
type ConnectionStatus string

const (
	Connected    ConnectionStatus = "CONNECTED"
	NotConnected ConnectionStatus = "NOT_CONNECTED"
)

// ManeuverType identifies a training maneuver
type ManeuverType string

const (
	ManeuverNone          ManeuverType = "NONE_SELECTED"
	ManeuverSteepTurns    ManeuverType = "STEEP_TURNS"
	ManeuverPowerOnStalls ManeuverType = "POWER_ON_STALLS"
)

// Dataref names the simulator variables the link subscribes to
type Dataref string

const (
	DatarefIndicatedAirspeed Dataref = "sim/cockpit2/gauges/indicators/airspeed_kts_pilot"
	DatarefEngineRPM         Dataref = "sim/cockpit2/engine/indicators/engine_speed_rpm[0]"
)

// Registration maps a numeric subscription id to a dataref
type Registration struct {
	ID          int     `json:"id"`
	Dataref     Dataref `json:"dataref"`
	FrequencyHz int     `json:"frequency_hz"`
}

// DefaultRegistrations returns the subscriptions requested from the simulator at the given frequency.
func DefaultRegistrations(frequencyHz int) []Registration {
	return []Registration{
		{ID: 1, Dataref: DatarefIndicatedAirspeed, FrequencyHz: frequencyHz},
		{ID: 2, Dataref: DatarefEngineRPM, FrequencyHz: frequencyHz},
	}
}

// Requirement is a single entry-gate condition
type Requirement struct {
	Description string `json:"description"`
	Fulfilled   bool   `json:"fulfilled"`
}

// RequirementSet is the entry-gate verdict for the selected maneuver
type RequirementSet struct {
	AllFulfilled bool          `json:"all_fulfilled"`
	Items        []Requirement `json:"items"`
}

// ChannelSummary describes one tracked quantity over a maneuver attempt
type ChannelSummary struct {
	Mean            float64 `json:"mean"`
	MeanWithinRange bool    `json:"mean_within_range"`
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
}

// PerformanceSummary is the live or final analysis of a maneuver attempt
type PerformanceSummary struct {
	Altitude           ChannelSummary `json:"altitude"`
	Airspeed           ChannelSummary `json:"airspeed"`
	Bank               ChannelSummary `json:"bank"`
	RolloutHeading     *float64       `json:"rollout_heading,omitempty"`
	RolloutWithinRange bool           `json:"rollout_within_range"`
}

// ManeuverStatus is emitted once per applied flight sample while a maneuver is active
type ManeuverStatus struct {
	AttemptID       string             `json:"attempt_id"`
	Maneuver        ManeuverType       `json:"maneuver"`
	Terminate       bool               `json:"terminate"`
	ProgressPercent float64            `json:"progress_percent"`
	Success         bool               `json:"success"`
	Summary         PerformanceSummary `json:"summary"`
}
