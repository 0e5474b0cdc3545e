package ml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStandardScalerFitTransform(t *testing.T) {
	scaler := &StandardScaler{}
	require.NoError(t, scaler.Fit([][]float64{{1, 10}, {3, 20}}))
	require.Equal(t, []float64{2, 15}, scaler.Mean)
	require.Equal(t, []float64{1, 5}, scaler.Std)

	out, err := scaler.Transform([][]float64{{2, 10}, {4, 25}})
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0, -1}, {2, 2}}, out)
}

func TestStandardScalerFrozenStatistics(t *testing.T) {
	scaler := &StandardScaler{Mean: []float64{5, 5}, Std: []float64{1, 1}}

	out, err := scaler.Transform([][]float64{{7, 3}})
	require.NoError(t, err)
	require.Equal(t, [][]float64{{2, -2}}, out)
}

func TestStandardScalerConstantColumn(t *testing.T) {
	scaler := &StandardScaler{}
	require.NoError(t, scaler.Fit([][]float64{{4}, {4}, {4}}))
	require.Equal(t, []float64{1}, scaler.Std)

	out, err := scaler.Transform([][]float64{{4}})
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0}}, out)
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := &StandardScaler{}
	require.Error(t, scaler.Fit(nil))
	require.Error(t, scaler.Fit([][]float64{{1, 2}, {1}}))

	_, err := scaler.Transform([][]float64{{1}})
	require.Error(t, err)

	require.NoError(t, scaler.Fit([][]float64{{1}, {2}}))
	_, err = scaler.Transform([][]float64{{1, 2}})
	require.Error(t, err)
}
