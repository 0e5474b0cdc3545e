package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/edustack/ai-service/internal/ml"
	"github.com/edustack/ai-service/internal/models"
)

// ErrNoUsableFeatures signals that the manifest yields an empty matrix: no
// numeric and no categorical columns to build from.
var ErrNoUsableFeatures = errors.New("no usable features")

// UnseenCategoryCode is the sentinel substituted for categorical values that
// were never observed at training time. Unknown values degrade, never raise.
const UnseenCategoryCode = -1

// dropColumns is the fixed deny-list of identifiers, PII, sibling-course
// columns and target/leakage columns. It must mirror training exactly to
// avoid train/serve skew.
var dropColumns = []string{
	"id", "ID", "email", "nombre", "Email", "Nombre",
	"AnioAM2", "TutorAM2", "ProfesorAM2", "VecesRecursadaAM2",
	"AsistenciaAM2", "PeriodoAM2", "ModalidadAM2", "TipoMateriaAM2",
	"Parcial1AM2", "Parcial2AM2", "Recuperatorio1AM2", "Recuperatorio2AM2",
	"Final1AM2", "Final2AM2", "Final3AM2", "ApruebaAM2",
	"Carrera",
	"ApruebaAM1",
	"Abandona",
}

// numericColumns are the columns coerced to numeric during preprocessing.
var numericColumns = []string{
	"edad", "Parcial1AM1", "Parcial2AM1", "Recuperatorio1AM1", "Recuperatorio2AM1",
	"AsistenciaAM1", "VecesRecursadaAM1", "PromedioNotasColegio", "AniosUniversidad",
}

// retakeImputations pairs each retake score with its partial exam. A missing
// retake takes the partial's value: institutionally, a missed retake counts
// as the original exam grade. This is a business rule, not a statistical
// imputation.
var retakeImputations = [][2]string{
	{"Recuperatorio1AM1", "Parcial1AM1"},
	{"Recuperatorio2AM1", "Parcial2AM1"},
}

var dateLayouts = []string{"02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006"}

// Normalize flattens one raw item into a plain name→value mapping: an inner
// "features" map is unwrapped, numeric wrapper types collapse to float64, and
// NaN/Inf sentinels become explicit nils.
func Normalize(item models.RawItem) map[string]any {
	source := map[string]any(item)
	if inner, ok := item["features"].(map[string]any); ok {
		source = inner
	}
	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = normalizeValue(value)
	}
	return out
}

// Preprocess applies the shared raw-record transformation: normalization, age
// derivation, deny-list dropping, retake imputation, and numeric coercion, in
// that fixed order. Training and serving both pass through here so their
// preprocessing stays the same code path.
func Preprocess(items []models.RawItem) []map[string]any {
	records := make([]map[string]any, len(items))
	for i, item := range items {
		record := Normalize(item)
		deriveAge(record)
		for _, col := range dropColumns {
			delete(record, col)
		}
		for _, pair := range retakeImputations {
			retake, partial := pair[0], pair[1]
			if record[retake] == nil && record[partial] != nil {
				record[retake] = record[partial]
			}
		}
		for _, col := range numericColumns {
			if value, ok := record[col]; ok && value != nil {
				if f, ok := toFloat(value); ok {
					record[col] = f
				} else {
					record[col] = nil
				}
			}
		}
		records[i] = record
	}
	return records
}

// Build transforms raw items into the numeric matrix the model expects: one
// row per item, columns exactly in feature-order manifest order, numeric
// block scaled with the frozen training statistics, categorical block label
// encoded with the -1 fallback for unseen values.
func Build(items []models.RawItem, encoders ml.EncoderSet, order models.FeatureOrder, scaler *ml.StandardScaler) ([][]float64, error) {
	if len(order.NumericFeatures) == 0 && len(order.CategoricalFeatures) == 0 {
		return nil, ErrNoUsableFeatures
	}

	records := Preprocess(items)

	numeric := make([][]float64, len(records))
	categorical := make([][]float64, len(records))
	for i, record := range records {
		numeric[i] = numericRow(record, order.NumericFeatures)
		categorical[i] = categoricalRow(record, order.CategoricalFeatures, encoders)
	}

	if scaler != nil && len(order.NumericFeatures) > 0 {
		scaled, err := scaler.Transform(numeric)
		if err != nil {
			return nil, fmt.Errorf("scale numeric features: %w", err)
		}
		numeric = scaled
	}

	matrix := make([][]float64, len(records))
	for i := range records {
		row := make([]float64, 0, len(order.AllFeatures))
		row = append(row, numeric[i]...)
		row = append(row, categorical[i]...)
		matrix[i] = row
	}
	return matrix, nil
}

// FitEncoders fits one label encoder per categorical column over the
// training-visible values of preprocessed records. Missing values are
// skipped; they encode to the -1 sentinel at build time.
func FitEncoders(records []map[string]any, columns []string) ml.EncoderSet {
	encoders := make(ml.EncoderSet, len(columns))
	for _, col := range columns {
		values := make([]string, 0, len(records))
		for _, record := range records {
			if v, ok := record[col]; ok && v != nil {
				values = append(values, stringify(v))
			}
		}
		if len(values) == 0 {
			continue
		}
		encoder := &ml.LabelEncoder{}
		encoder.Fit(values)
		encoders[col] = encoder
	}
	return encoders
}

// ToNumber coerces a normalized value to float64 using the same rules as the
// preprocessing pipeline.
func ToNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	return toFloat(value)
}

// numericRow selects the numeric columns in manifest order. Missing values
// fill with 0, a deliberately conservative constant rather than a fitted
// statistic.
func numericRow(record map[string]any, columns []string) []float64 {
	row := make([]float64, len(columns))
	for j, col := range columns {
		value, ok := record[col]
		if !ok || value == nil {
			continue
		}
		if f, ok := toFloat(value); ok {
			row[j] = f
		}
	}
	return row
}

// categoricalRow encodes the categorical columns in manifest order. Unseen
// values, missing values, and an entirely absent encoder table all degrade to
// the -1 sentinel.
func categoricalRow(record map[string]any, columns []string, encoders ml.EncoderSet) []float64 {
	row := make([]float64, len(columns))
	for j, col := range columns {
		row[j] = UnseenCategoryCode
		value, ok := record[col]
		if !ok || value == nil {
			continue
		}
		encoder, ok := encoders[col]
		if !ok || encoder == nil {
			continue
		}
		if code, found := encoder.Encode(stringify(value)); found {
			row[j] = float64(code)
		}
	}
	return row
}

// deriveAge fills the edad column from a day-first birth date when edad is
// absent. An already-derived edad always wins; parse failures leave edad
// absent for later imputation.
func deriveAge(record map[string]any) {
	if record["edad"] != nil {
		return
	}
	raw, ok := record["FechaNacimiento"]
	if !ok || raw == nil {
		return
	}
	text, ok := raw.(string)
	if !ok {
		return
	}
	for _, layout := range dateLayouts {
		if birth, err := time.Parse(layout, strings.TrimSpace(text)); err == nil {
			record["edad"] = float64(time.Now().Year() - birth.Year())
			return
		}
	}
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		return normalizeValue(float64(v))
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return v
	default:
		return value
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
