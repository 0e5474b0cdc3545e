package models

// RawItem is a single untyped record of feature name to value describing one
// student. Extra unknown fields are permitted and ignored downstream, so the
// request schema stays forward-compatible.
type RawItem map[string]any

// Clone returns a shallow copy so preprocessing never mutates caller data.
func (r RawItem) Clone() RawItem {
	out := make(RawItem, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
