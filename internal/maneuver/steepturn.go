package maneuver

import (
	"math"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

// SteepTurn observes a 360° steep turn. The attempt ends when the aircraft turns the wrong
// way, overshoots the entry heading or rolls out near it.
//
// Left turns are evaluated in a mirrored heading frame so the same right-turn rules apply.
// Reported headings are always the real ones.
type SteepTurn struct {
	entry    types.EntrySettings
	criteria Criteria

	left         bool
	entryHeading float64 // in the evaluation frame
	targetBank   float64

	perf           *Performance
	lastHeading    float64 // in the evaluation frame
	crossedZero    int
	rolloutHeading *float64
	progress       float64

	reason  EndReason
	success bool
	summary types.PerformanceSummary
}

// NewSteepTurn starts recording a steep turn from the entry snapshot.
// A negative entry roll selects a left turn.
func NewSteepTurn(entry types.EntrySettings, criteria Criteria) *SteepTurn {
	left := entry.Sample.Roll < 0

	s := &SteepTurn{
		entry:      entry,
		criteria:   criteria,
		left:       left,
		targetBank: criteria.BankAngle,
		perf:       NewPerformance(entry.Sample),
	}
	if left {
		s.targetBank = -criteria.BankAngle
	}
	s.entryHeading = s.frame(entry.Sample.Heading)
	s.lastHeading = s.entryHeading
	s.summary = s.summarize()

	return s
}

func (s *SteepTurn) frame(heading float64) float64 {
	if s.left {
		return MirrorHeading(heading)
	}
	return NormalizeHeading(heading)
}

// Left reports whether the attempt is a left turn
func (s *SteepTurn) Left() bool { return s.left }

// CrossedZero returns how many times the turn has passed through north
func (s *SteepTurn) CrossedZero() int { return s.crossedZero }

// Update applies one flight sample
func (s *SteepTurn) Update(sample types.FlightSample) types.ManeuverStatus {
	if s.Ended() {
		return s.Status()
	}

	s.perf.Record(sample)

	heading := s.frame(sample.Heading)
	if CircularDistance(heading, s.lastHeading) > significantHeadingChange {
		acceptable := s.zeroCrossingAcceptable()

		consistent := s.directionConsistent(heading, acceptable)
		overshoot := !acceptable && heading > NormalizeHeading(s.entryHeading+HeadingTolerance)
		rollout := s.rolledOut(heading, sample.Roll)
		if rollout && s.rolloutHeading == nil {
			actual := NormalizeHeading(sample.Heading)
			s.rolloutHeading = &actual
		}

		s.updateProgress(heading)
		s.lastHeading = heading

		switch {
		case rollout:
			s.reason = EndRollout
		case !consistent:
			s.reason = EndWrongDirection
		case overshoot:
			s.reason = EndOvershoot
		}
	}

	s.summary = s.summarize()
	if s.Ended() {
		s.success = Successful(s.summary)
	}

	return s.Status()
}

// Stop ends the attempt with an externally decided outcome
func (s *SteepTurn) Stop(success bool) types.ManeuverStatus {
	if !s.Ended() {
		s.reason = EndStopped
		s.summary = s.summarize()
		s.success = success
	}
	return s.Status()
}

// Status returns the current status without applying a sample
func (s *SteepTurn) Status() types.ManeuverStatus {
	return types.ManeuverStatus{
		AttemptID:       s.entry.AttemptID,
		Maneuver:        types.ManeuverSteepTurns,
		Terminate:       s.Ended(),
		ProgressPercent: s.progress,
		Success:         s.success,
		Summary:         s.summary,
	}
}

func (s *SteepTurn) Ended() bool       { return s.reason != EndNone }
func (s *SteepTurn) Reason() EndReason { return s.reason }

// zeroCrossingAcceptable reports whether the turn may still pass through north.
// Entries just short of north legitimately cross it twice.
func (s *SteepTurn) zeroCrossingAcceptable() bool {
	return s.crossedZero == 0 ||
		(s.entryHeading >= 360-HeadingTolerance && s.crossedZero == 1)
}

// directionConsistent checks the turn keeps going the same way. It counts passes through north.
func (s *SteepTurn) directionConsistent(heading float64, acceptable bool) bool {
	if heading >= s.lastHeading {
		// a jump from just east of north to just west of it is a reversal through north
		if s.lastHeading < wrapTo && heading > wrapFrom {
			return CircularDistance(heading, s.entryHeading) < HeadingTolerance
		}
		return true
	}

	if s.lastHeading > wrapFrom && heading < wrapTo {
		s.crossedZero++
		return acceptable
	}

	// brief reversal while correcting a fast rollout
	return CircularDistance(heading, s.entryHeading) < HeadingTolerance
}

// onCircuit reports whether the passes through north match one clean circuit ending at heading
func (s *SteepTurn) onCircuit(heading float64) bool {
	return s.crossedZero == expectedZeroCrossings(s.entryHeading, heading)
}

func (s *SteepTurn) rolledOut(heading, roll float64) bool {
	return math.Abs(roll) <= MaximumRolloutBank &&
		CircularDistance(heading, s.entryHeading) <= HeadingTolerance &&
		s.onCircuit(heading)
}

func (s *SteepTurn) updateProgress(heading float64) {
	travelled := ForwardDistance(s.entryHeading, heading)
	if travelled < HeadingTolerance && s.onCircuit(heading) {
		// past the entry heading but still within tolerance
		s.progress = 100
		return
	}
	s.progress = travelled / 360 * 100
}

func (s *SteepTurn) summarize() types.PerformanceSummary {
	return s.perf.Summarize(s.entry.Sample, s.targetBank, s.rolloutHeading, s.criteria)
}
