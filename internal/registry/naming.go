package registry

import "path/filepath"

// NamingScheme identifies one of the two on-disk artifact naming generations.
// Current bundles use joblib-era suffixes and a plural encoders file; legacy
// bundles used pickle suffixes and a singular encoder file.
type NamingScheme int

const (
	SchemeCurrent NamingScheme = iota
	SchemeLegacy
)

func (s NamingScheme) modelFile(name string) string {
	if s == SchemeLegacy {
		return name + "_model.pkl"
	}
	return name + "_model.joblib"
}

func (s NamingScheme) scalerFile(name string) string {
	if s == SchemeLegacy {
		return name + "_scaler.pkl"
	}
	return name + "_scaler.joblib"
}

func (s NamingScheme) encoderFile(name string) string {
	if s == SchemeLegacy {
		return name + "_encoder.pkl"
	}
	return name + "_encoders.joblib"
}

// ArtifactPaths holds the resolved on-disk locations for one bundle.
type ArtifactPaths struct {
	Base         string
	Model        string
	Scaler       string
	Encoders     string
	FeatureOrder string
	Meta         string
	MetaLegacy   string
}

func pathsForScheme(base, name string, s NamingScheme) ArtifactPaths {
	return ArtifactPaths{
		Base:         base,
		Model:        filepath.Join(base, s.modelFile(name)),
		Scaler:       filepath.Join(base, s.scalerFile(name)),
		Encoders:     filepath.Join(base, s.encoderFile(name)),
		FeatureOrder: filepath.Join(base, "feature_order.json"),
		Meta:         filepath.Join(base, "meta.json"),
		MetaLegacy:   filepath.Join(base, "metadata.json"),
	}
}
