package models

// PredictionMeta accompanies every prediction response. R2 and MAE are only
// present when the bundle metadata recorded evaluation metrics.
type PredictionMeta struct {
	RequestID    string   `json:"request_id"`
	Model        string   `json:"model"`
	Version      string   `json:"version"`
	R2           *float64 `json:"r2,omitempty"`
	MAE          *float64 `json:"mae,omitempty"`
	FeaturesHash string   `json:"features_hash"`
	LatencyMS    float64  `json:"latency_ms"`
	NItems       int      `json:"n_items"`
	Timestamp    string   `json:"timestamp"`
}

// GradesResult is the outcome of a grade prediction batch. Predictions are
// clamped to the configured grade range and follow the input item order.
type GradesResult struct {
	Predictions []float64      `json:"predictions"`
	Meta        PredictionMeta `json:"meta"`
}

// DropoutResult is the outcome of a dropout probability batch. Labels apply
// the configured classification threshold to each probability.
type DropoutResult struct {
	Proba     []float64      `json:"proba"`
	Labels    []int          `json:"labels"`
	Threshold float64        `json:"threshold"`
	Meta      PredictionMeta `json:"meta"`
}
