package evaluate

import "math"

// SampleSize is the statistically sufficient sample size for a population of
// n examples at the given significance level (0-100), assuming worst-case
// variability p = 0.5 and a margin of error of (100 - significance)%.
func SampleSize(n int, significance byte) int {
	if n <= 0 {
		return 0
	}
	if significance >= 100 {
		return n
	}
	z := zScoreFromAlpha(100 - significance)

	p := 0.5
	e := float64(100-significance) * 0.01

	ss := math.Pow(z, 2) * p * (1 - p) / math.Pow(e, 2)

	// finite population correction
	corrected := ss * float64(n) / (float64(n) - 1 + ss)

	if int(corrected) > n {
		return n
	}
	return int(corrected)
}

// zScoreFromAlpha returns the Z-score for a given alpha level
// Common: 90% => 1.645, 95% => 1.96, 99% => 2.576
func zScoreFromAlpha(alpha byte) float64 {
	switch {
	case alpha <= 1:
		return 2.576
	case alpha <= 5:
		return 1.96
	case alpha <= 10:
		return 1.645
	default:
		return 1.96
	}
}
