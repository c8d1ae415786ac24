package maneuver

import (
	"math"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Channel aggregates one tracked quantity over a maneuver attempt.
// Altitude, airspeed and bank arrive at different rates, so repeated values are not recorded twice.
type Channel struct {
	Sum          float64
	Count        int
	LastRecorded float64
	Min          float64
	Max          float64
}

func newChannel(initial float64) Channel {
	return Channel{
		Sum:          initial,
		Count:        1,
		LastRecorded: initial,
		Min:          initial,
		Max:          initial,
	}
}

// Record adds v unless it equals the last recorded value. It reports whether v was recorded.
func (c *Channel) Record(v float64) bool {
	if v == c.LastRecorded {
		return false
	}
	c.Sum += v
	c.Count++
	c.LastRecorded = v
	c.Min = math.Min(c.Min, v)
	c.Max = math.Max(c.Max, v)
	return true
}

// Mean returns the running mean, or 0 for an empty channel
func (c *Channel) Mean() float64 {
	if c.Count == 0 {
		return 0
	}
	return c.Sum / float64(c.Count)
}

// Performance holds the channels of one attempt
type Performance struct {
	Altitude Channel
	Airspeed Channel
	Bank     Channel
}

// NewPerformance seeds every channel with the entry values.
func NewPerformance(entry types.FlightSample) *Performance {
	return &Performance{
		Altitude: newChannel(entry.ElevASL),
		Airspeed: newChannel(entry.IndicatedAirspeed),
		Bank:     newChannel(entry.Roll),
	}
}

// Record applies one flight sample to all channels
func (p *Performance) Record(sample types.FlightSample) {
	p.Altitude.Record(sample.ElevASL)
	p.Airspeed.Record(sample.IndicatedAirspeed)
	p.Bank.Record(sample.Roll)
}

// Summarize judges the channel means against the entry values and the target bank.
// A nil rolloutHeading means no rollout was observed.
func (p *Performance) Summarize(entry types.FlightSample, targetBank float64, rolloutHeading *float64, criteria Criteria) types.PerformanceSummary {
	summary := types.PerformanceSummary{
		Altitude: summarizeChannel(&p.Altitude, entry.ElevASL, criteria.AltitudeDeviationAllowed),
		Airspeed: summarizeChannel(&p.Airspeed, entry.IndicatedAirspeed, criteria.AirspeedDeviationAllowed),
		Bank:     summarizeChannel(&p.Bank, targetBank, criteria.BankDeviationAllowed),
	}

	if rolloutHeading != nil {
		heading := *rolloutHeading
		summary.RolloutHeading = &heading
		summary.RolloutWithinRange = CircularDistance(heading, entry.Heading) <= criteria.RolloutDeviationAllowed
	}

	return summary
}

func summarizeChannel(c *Channel, target, allowed float64) types.ChannelSummary {
	mean := c.Mean()
	return types.ChannelSummary{
		Mean:            mean,
		MeanWithinRange: math.Abs(mean-target) <= allowed,
		Lower:           c.Min,
		Upper:           c.Max,
	}
}

// Successful reports whether a summary meets every steep turn criterion
func Successful(summary types.PerformanceSummary) bool {
	return summary.RolloutHeading != nil &&
		summary.RolloutWithinRange &&
		summary.Altitude.MeanWithinRange &&
		summary.Airspeed.MeanWithinRange &&
		summary.Bank.MeanWithinRange
}
