package maneuver

import "github.com/saviobatista/steepturn-coach/internal/types"

// EndReason says why an attempt ended. A rollout wins over any other end detected on the same sample.
type EndReason string

const (
	EndNone           EndReason = ""
	EndWrongDirection EndReason = "WRONG_DIRECTION"
	EndOvershoot      EndReason = "OVERSHOOT"
	EndRollout        EndReason = "ROLLOUT"
	EndStopped        EndReason = "STOPPED"
)

// Session observes one maneuver attempt. A session is created recording and is never reused;
// restarting an attempt means creating a new one. Samples must be applied in arrival order
// by a single owner.
type Session interface {
	// Update applies one flight sample and returns the resulting status.
	// Once the session has ended it returns the final status unchanged.
	Update(sample types.FlightSample) types.ManeuverStatus
	// Stop ends the attempt from outside with the given outcome, unless it already ended.
	Stop(success bool) types.ManeuverStatus
	Status() types.ManeuverStatus
	Ended() bool
	Reason() EndReason
}

// New creates the session for a maneuver type. Types without a monitor get an inert session.
func New(maneuver types.ManeuverType, entry types.EntrySettings) Session {
	switch maneuver {
	case types.ManeuverSteepTurns:
		return NewSteepTurn(entry, SteepTurnCriteria())
	default:
		return newInert(maneuver, entry)
	}
}

// inert never terminates on its own and reports no progress
type inert struct {
	status types.ManeuverStatus
	reason EndReason
}

func newInert(maneuver types.ManeuverType, entry types.EntrySettings) *inert {
	return &inert{
		status: types.ManeuverStatus{
			AttemptID: entry.AttemptID,
			Maneuver:  maneuver,
		},
	}
}

func (m *inert) Update(types.FlightSample) types.ManeuverStatus {
	return m.status
}

func (m *inert) Stop(success bool) types.ManeuverStatus {
	if m.reason == EndNone {
		m.reason = EndStopped
		m.status.Terminate = true
		m.status.Success = success
	}
	return m.status
}

func (m *inert) Status() types.ManeuverStatus { return m.status }
func (m *inert) Ended() bool                  { return m.reason != EndNone }
func (m *inert) Reason() EndReason            { return m.reason }
