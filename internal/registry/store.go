package registry

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/edustack/ai-service/internal/ml"
	"github.com/edustack/ai-service/internal/models"
)

// ErrArtifactNotFound signals that a mandatory artifact (model, feature-order
// manifest, or metadata) is absent on disk.
var ErrArtifactNotFound = errors.New("artifact not found")

func init() {
	// Concrete model types carried through the gob-encoded Model interface.
	gob.Register(&ml.RandomForest{})
}

// Bundle is the versioned set of artifacts needed to run inference for one
// model name/version. Scaler and Encoders may be nil for models that need
// neither.
type Bundle struct {
	Model        ml.Model
	Scaler       *ml.StandardScaler
	Encoders     ml.EncoderSet
	FeatureOrder models.FeatureOrder
	Meta         models.ModelMeta
}

// Store locates and loads artifact bundles under {dir}/{name}/{version}/.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore constructs a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// ResolvePaths probes both naming schemes for each artifact, preferring
// whichever exists on disk. When neither exists the current scheme's path is
// returned so absence stays diagnosable.
func (s *Store) ResolvePaths(name, version string) ArtifactPaths {
	base := filepath.Join(s.dir, name, version)
	current := pathsForScheme(base, name, SchemeCurrent)
	legacy := pathsForScheme(base, name, SchemeLegacy)

	return ArtifactPaths{
		Base:         base,
		Model:        firstExisting(current.Model, legacy.Model),
		Scaler:       firstExisting(current.Scaler, legacy.Scaler),
		Encoders:     firstExisting(current.Encoders, legacy.Encoders),
		FeatureOrder: current.FeatureOrder,
		Meta:         current.Meta,
		MetaLegacy:   current.MetaLegacy,
	}
}

// LoadBundle reads every artifact for (name, version). Model and feature
// order are mandatory; scaler and encoders load as absent without failing.
// Metadata falls back to the legacy filename before failing.
func (s *Store) LoadBundle(name, version string) (*Bundle, error) {
	paths := s.ResolvePaths(name, version)

	if !fileExists(paths.Model) {
		return nil, fmt.Errorf("%w: model %s", ErrArtifactNotFound, paths.Model)
	}
	var modelWrap modelArtifact
	if err := readGob(paths.Model, &modelWrap); err != nil {
		return nil, fmt.Errorf("load model %s: %w", paths.Model, err)
	}

	if !fileExists(paths.FeatureOrder) {
		return nil, fmt.Errorf("%w: feature order %s", ErrArtifactNotFound, paths.FeatureOrder)
	}
	var order models.FeatureOrder
	if err := readJSON(paths.FeatureOrder, &order); err != nil {
		return nil, fmt.Errorf("load feature order %s: %w", paths.FeatureOrder, err)
	}

	bundle := &Bundle{Model: modelWrap.Model, FeatureOrder: order}

	if fileExists(paths.Scaler) {
		var scaler ml.StandardScaler
		if err := readGob(paths.Scaler, &scaler); err != nil {
			return nil, fmt.Errorf("load scaler %s: %w", paths.Scaler, err)
		}
		bundle.Scaler = &scaler
	} else {
		s.logger.Warn("scaler not found", slog.String("path", paths.Scaler))
	}

	if fileExists(paths.Encoders) {
		var encoders ml.EncoderSet
		if err := readGob(paths.Encoders, &encoders); err != nil {
			return nil, fmt.Errorf("load encoders %s: %w", paths.Encoders, err)
		}
		bundle.Encoders = encoders
	} else {
		s.logger.Warn("encoders not found", slog.String("path", paths.Encoders))
	}

	metaPath := paths.Meta
	if !fileExists(metaPath) {
		metaPath = paths.MetaLegacy
	}
	if !fileExists(metaPath) {
		return nil, fmt.Errorf("%w: metadata %s", ErrArtifactNotFound, paths.Meta)
	}
	if err := readJSON(metaPath, &bundle.Meta); err != nil {
		return nil, fmt.Errorf("load metadata %s: %w", metaPath, err)
	}

	s.logger.Info("loaded model artifacts",
		slog.String("model", name),
		slog.String("version", version),
		slog.Int("features", len(order.AllFeatures)))
	return bundle, nil
}

// SaveBundle persists every artifact under the current naming scheme. Used by
// the offline training pipeline; the serving path never writes.
func (s *Store) SaveBundle(name, version string, bundle *Bundle) error {
	base := filepath.Join(s.dir, name, version)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", base, err)
	}
	paths := pathsForScheme(base, name, SchemeCurrent)

	if err := writeGob(paths.Model, &modelArtifact{Model: bundle.Model}); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if bundle.Scaler != nil {
		if err := writeGob(paths.Scaler, bundle.Scaler); err != nil {
			return fmt.Errorf("save scaler: %w", err)
		}
	}
	if len(bundle.Encoders) > 0 {
		if err := writeGob(paths.Encoders, bundle.Encoders); err != nil {
			return fmt.Errorf("save encoders: %w", err)
		}
	}
	if err := writeJSON(paths.FeatureOrder, bundle.FeatureOrder); err != nil {
		return fmt.Errorf("save feature order: %w", err)
	}
	if err := writeJSON(paths.Meta, bundle.Meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	s.logger.Info("saved model artifacts",
		slog.String("model", name),
		slog.String("version", version),
		slog.String("dir", base))
	return nil
}

// ListAvailableModels scans the storage root and returns model names mapped
// to their sorted available versions. A version counts only when a model file
// exists in either naming scheme.
func (s *Store) ListAvailableModels() map[string][]string {
	available := make(map[string][]string)

	nameEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return available
	}
	for _, nameEntry := range nameEntries {
		if !nameEntry.IsDir() {
			continue
		}
		name := nameEntry.Name()
		versionEntries, err := os.ReadDir(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var versions []string
		for _, versionEntry := range versionEntries {
			if !versionEntry.IsDir() {
				continue
			}
			base := filepath.Join(s.dir, name, versionEntry.Name())
			if fileExists(filepath.Join(base, SchemeCurrent.modelFile(name))) ||
				fileExists(filepath.Join(base, SchemeLegacy.modelFile(name))) {
				versions = append(versions, versionEntry.Name())
			}
		}
		if len(versions) > 0 {
			sort.Strings(versions)
			available[name] = versions
		}
	}
	return available
}

// modelArtifact wraps the model interface so gob can carry the registered
// concrete type.
type modelArtifact struct {
	Model ml.Model
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[0]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readGob(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(out)
}

func writeGob(path string, value any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(value)
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
