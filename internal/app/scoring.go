package app

import "math"

// Score computes the time-decayed award for a correct answer. Correct answers
// always earn at least half the base points; an instantaneous response earns
// the full amount. Incorrect answers are handled by the caller and never
// reach this function.
func Score(points, timeLimit int, responseTime float64) int {
	if points <= 0 {
		points = 100
	}
	bonus := 1.0
	if timeLimit > 0 {
		bonus = (float64(timeLimit) - responseTime) / float64(timeLimit)
		if bonus < 0 {
			bonus = 0
		}
		if bonus > 1 {
			bonus = 1
		}
	}
	return int(math.Round(float64(points) * (0.5 + 0.5*bonus)))
}

// sameSet reports whether the two index slices hold the same set of values.
// Partial overlap does not count: size and membership must both match.
func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	if len(seen) != len(b) {
		return false
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			return false
		}
	}
	return true
}
