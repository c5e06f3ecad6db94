package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CacheKey derives the deterministic cache key for a descriptor. The key is
// a hash over the kind, the canonicalized target, and the limit, so
// whitespace or comment reformatting of the same logical query maps to the
// same entry.
func CacheKey(desc Descriptor) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1e%s\x1e%d", desc.Kind, desc.Target.canonical(), desc.Limit)
	return "query:" + hex.EncodeToString(h.Sum(nil))
}

// metadataCacheKey is the single cache entry holding backend-wide metadata
// (schema, directory structure, workflows, endpoint listings). Refresh
// replaces it wholesale; it is never derived from a descriptor.
const metadataCacheKey = "metadata"
