package maneuver

// Steep turn rules
const (
	HeadingTolerance   = 10.0
	MaximumRolloutBank = 10.0

	// significantHeadingChange gates the directional checks so sensor jitter does not count as a turn
	significantHeadingChange = 1.0

	// a heading decrease from above wrapFrom to below wrapTo is a pass through north
	wrapFrom = 345.0
	wrapTo   = 15.0
)

// Criteria are the deviations allowed for a successful steep turn.
type Criteria struct {
	BankAngle                float64
	BankDeviationAllowed     float64
	RolloutDeviationAllowed  float64
	AltitudeDeviationAllowed float64
	AirspeedDeviationAllowed float64
}

// SteepTurnCriteria returns the standard steep turn criteria
func SteepTurnCriteria() Criteria {
	return Criteria{
		BankAngle:                45,
		BankDeviationAllowed:     5,
		RolloutDeviationAllowed:  10,
		AltitudeDeviationAllowed: 100,
		AirspeedDeviationAllowed: 10,
	}
}
