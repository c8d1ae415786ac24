package maneuver

import "math"

// NormalizeHeading maps any heading into [0,360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// math.Mod can hand back -0 or values that round up to 360
	if h >= 360 || h == 0 {
		return 0
	}
	return h
}

// CircularDistance returns the shortest angle between two headings, in [0,180].
func CircularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// ForwardDistance is how far a right turn travels from entry to reach current, in [0,360).
func ForwardDistance(entry, current float64) float64 {
	return NormalizeHeading(current - entry)
}

// SignedDelta returns the turn from reference to current in (-180,180]. Positive is clockwise.
func SignedDelta(current, reference float64) float64 {
	d := NormalizeHeading(current - reference)
	if d > 180 {
		d -= 360
	}
	return d
}

// MirrorHeading reflects a heading across the north-south axis, turning a left turn into a right one.
func MirrorHeading(h float64) float64 {
	return NormalizeHeading(360 - h)
}

// expectedZeroCrossings is the number of times a clean right turn starting at entry passes
// through north before reaching current again after one full circuit.
func expectedZeroCrossings(entry, current float64) int {
	travelled := 360 + SignedDelta(current, entry)
	return int(math.Floor((NormalizeHeading(entry) + travelled) / 360))
}
