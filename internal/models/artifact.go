package models

// FeatureOrder is the authoritative column manifest a model was trained on.
// AllFeatures is the exact matrix layout fed to the model: the numeric block
// followed by the categorical block.
type FeatureOrder struct {
	NumericFeatures     []string `json:"numeric_features"`
	CategoricalFeatures []string `json:"categorical_features"`
	AllFeatures         []string `json:"all_features"`
}

// ModelMetrics holds offline evaluation scores computed on the test split.
type ModelMetrics struct {
	R2  float64 `json:"r2"`
	MAE float64 `json:"mae"`
}

// DatasetInfo describes the training dataset shape.
type DatasetInfo struct {
	NSamplesTrain int `json:"n_samples_train"`
	NSamplesTest  int `json:"n_samples_test"`
	NFeatures     int `json:"n_features"`
}

// TargetStats summarises the regression target distribution at training time.
type TargetStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// ModelMeta is the descriptive metadata persisted next to each trained model.
// It never affects prediction computation.
type ModelMeta struct {
	ModelName    string         `json:"model_name"`
	Version      string         `json:"version"`
	ModelType    string         `json:"model_type"`
	ModelParams  map[string]any `json:"model_params,omitempty"`
	CreatedAt    string         `json:"created_at"`
	GitCommit    string         `json:"git_commit,omitempty"`
	Metrics      *ModelMetrics  `json:"metrics,omitempty"`
	DatasetInfo  *DatasetInfo   `json:"dataset_info,omitempty"`
	FeatureOrder []string       `json:"feature_order,omitempty"`
	TargetStats  *TargetStats   `json:"target_stats,omitempty"`
}
