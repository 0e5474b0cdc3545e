package ml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRSquared(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	require.Equal(t, 1.0, RSquared(y, y))

	mean := []float64{2.5, 2.5, 2.5, 2.5}
	require.InDelta(t, 0.0, RSquared(y, mean), 1e-12)

	require.Equal(t, 0.0, RSquared([]float64{3, 3}, []float64{3, 3}))
	require.Equal(t, 0.0, RSquared(nil, nil))
}

func TestMeanAbsoluteError(t *testing.T) {
	require.Equal(t, 0.0, MeanAbsoluteError([]float64{1, 2}, []float64{1, 2}))
	require.Equal(t, 1.5, MeanAbsoluteError([]float64{1, 2}, []float64{2, 4}))
	require.Equal(t, 0.0, MeanAbsoluteError([]float64{1}, nil))
}
