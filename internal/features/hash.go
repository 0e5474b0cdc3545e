package features

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/edustack/ai-service/internal/models"
)

// StableHash fingerprints a batch of raw items for audit logs. The digest is
// computed over the JSON serialization of the normalized items; map keys are
// serialized in sorted order, so the hash is independent of field ordering in
// the request body.
func StableHash(items []models.RawItem) string {
	normalized := make([]map[string]any, len(items))
	for i, item := range items {
		normalized[i] = Normalize(item)
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return ""
	}
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}
