package ml

import "math"

// RSquared returns the coefficient of determination for predictions against
// the true targets. A constant target yields 0.
func RSquared(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	mean := 0.0
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	ssRes := 0.0
	ssTot := 0.0
	for i, v := range yTrue {
		ssRes += (v - yPred[i]) * (v - yPred[i])
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// MeanAbsoluteError returns the mean absolute deviation of predictions.
func MeanAbsoluteError(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	total := 0.0
	for i, v := range yTrue {
		total += math.Abs(v - yPred[i])
	}
	return total / float64(len(yTrue))
}
