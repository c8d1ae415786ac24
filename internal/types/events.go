package types

import "time"

// EventKind identifies a boundary event sent to the presentation layer
type EventKind string

const (
	EventFlightSampleUpdated     EventKind = "FLIGHT_SAMPLE_UPDATED"
	EventDatarefUpdated          EventKind = "DATAREF_UPDATED"
	EventConnectionStatusChanged EventKind = "CONNECTION_STATUS_CHANGED"
	EventManeuverStatusUpdated   EventKind = "MANEUVER_STATUS_UPDATED"
	EventRequirementsUpdated     EventKind = "REQUIREMENTS_UPDATED"
)

// FlightSampleUpdated carries the RPOS portion of the flight state
type FlightSampleUpdated struct {
	Heading float64 `json:"heading"`
	ElevASL float64 `json:"elev_asl_ft"`
	ElevAGL float64 `json:"elev_agl_ft"`
	Roll    float64 `json:"roll"`
}

// DatarefUpdated carries one subscribed simulator value
type DatarefUpdated struct {
	Name  Dataref `json:"name"`
	Value float32 `json:"value"`
}

// ConnectionStatusChanged is emitted once per watchdog transition
type ConnectionStatusChanged struct {
	Status ConnectionStatus `json:"status"`
}

// RequirementsUpdated carries the entry-gate verdict after every sample
type RequirementsUpdated struct {
	Maneuver        ManeuverType   `json:"maneuver"`
	Requirements    RequirementSet `json:"requirements"`
	EngagementReady bool           `json:"engagement_ready"`
}

// Event is the envelope published upward. Exactly one payload field is set, matching Kind.
type Event struct {
	Kind         EventKind                `json:"kind"`
	Timestamp    time.Time                `json:"timestamp"`
	FlightSample *FlightSampleUpdated     `json:"flight_sample,omitempty"`
	Dataref      *DatarefUpdated          `json:"dataref,omitempty"`
	Connection   *ConnectionStatusChanged `json:"connection,omitempty"`
	Maneuver     *ManeuverStatus          `json:"maneuver,omitempty"`
	Requirements *RequirementsUpdated     `json:"requirements,omitempty"`
}

// CommandKind identifies a command accepted from the presentation layer
type CommandKind string

const (
	CommandSetSelectedManeuver CommandKind = "SET_SELECTED_MANEUVER"
	CommandStartManeuver       CommandKind = "START_MANEUVER"
	CommandStopManeuver        CommandKind = "STOP_MANEUVER"
	CommandRestartManeuver     CommandKind = "RESTART_MANEUVER"
	CommandResetManeuver       CommandKind = "RESET_MANEUVER"
)

// Command is the envelope accepted from above
type Command struct {
	Kind     CommandKind   `json:"kind"`
	Maneuver ManeuverType  `json:"maneuver,omitempty"`
	Entry    *FlightSample `json:"entry,omitempty"`
	Success  bool          `json:"success,omitempty"`
}
