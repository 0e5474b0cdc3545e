package ml

// Model is the inference contract the serving path depends on: a fixed-width
// numeric matrix in, one float per row out.
type Model interface {
	Predict(X [][]float64) ([]float64, error)
}
