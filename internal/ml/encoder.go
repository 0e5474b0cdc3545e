package ml

import "sort"

// LabelEncoder maps distinct categorical string values to small integer codes.
// It is fitted once at training time; the code table is frozen afterwards.
type LabelEncoder struct {
	Classes []string
}

// Fit records the sorted distinct values as the class vocabulary.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	e.Classes = classes
}

// Encode returns the integer code for value. The second return is false when
// the value was never seen at fit time; callers substitute the -1 sentinel.
func (e *LabelEncoder) Encode(value string) (int, bool) {
	idx := sort.SearchStrings(e.Classes, value)
	if idx < len(e.Classes) && e.Classes[idx] == value {
		return idx, true
	}
	return 0, false
}

// EncoderSet maps categorical column names to their fitted encoders.
type EncoderSet map[string]*LabelEncoder
