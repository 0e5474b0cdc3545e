package ml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelEncoderFitSortsDistinctValues(t *testing.T) {
	encoder := &LabelEncoder{}
	encoder.Fit([]string{"Suarez", "Gomez", "Suarez", "Molina"})
	require.Equal(t, []string{"Gomez", "Molina", "Suarez"}, encoder.Classes)
}

func TestLabelEncoderEncode(t *testing.T) {
	encoder := &LabelEncoder{}
	encoder.Fit([]string{"No", "Si"})

	code, ok := encoder.Encode("No")
	require.True(t, ok)
	require.Equal(t, 0, code)

	code, ok = encoder.Encode("Si")
	require.True(t, ok)
	require.Equal(t, 1, code)

	_, ok = encoder.Encode("Quizas")
	require.False(t, ok)
}

func TestLabelEncoderEmptyVocabulary(t *testing.T) {
	encoder := &LabelEncoder{}
	_, ok := encoder.Encode("anything")
	require.False(t, ok)
}
