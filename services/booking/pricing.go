package booking

import "math"

// Share of the total collected on acceptance. The remainder is collected
// on completion.
const initialShare = 0.25

// roundHalfUp rounds to 2 decimal places using standard half-up rounding.
func roundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// SplitStagedAmounts splits a total into the acceptance-time installment
// and the completion-time installment. Only the initial share is rounded;
// the completion share is derived by subtraction so the two always sum to
// the total exactly, even for totals with non-integer cents.
func SplitStagedAmounts(total float64) (initial, completion float64) {
	initial = roundHalfUp(total * initialShare)
	completion = total - initial
	return initial, completion
}
