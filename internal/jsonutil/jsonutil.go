// Package jsonutil holds small JSON helpers shared across the template
// reconciler and configuration store: canonicalization and content hashing.
package jsonutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// HashDocument returns the hex SHA-256 digest of the canonical form of v.
// Canonicalization re-marshals through a sorted-key representation so that
// field reordering in hand-edited JSON does not change the hash.
func HashDocument(v interface{}) (string, error) {
	canonical, err := canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes hashes raw JSON bytes after canonicalizing them.
func HashBytes(raw []byte) (string, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	return HashDocument(v)
}

func canonicalize(v interface{}) ([]byte, error) {
	normalized := normalize(v)
	return json.Marshal(normalized)
}

// normalize converts maps into a stable representation by recursively
// sorting map keys; json.Marshal already sorts map[string]interface{} keys,
// but nested structs may marshal fields in declaration order, so callers
// that need true canonicalization should pass map[string]interface{} or
// json.RawMessage decoded into "any" rather than typed structs.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = normalize(val[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	default:
		return val
	}
}

// Equal reports whether two JSON documents are structurally equal,
// independent of key ordering or whitespace.
func Equal(a, b []byte) bool {
	ha, errA := HashBytes(a)
	hb, errB := HashBytes(b)
	if errA != nil || errB != nil {
		return bytes.Equal(a, b)
	}
	return ha == hb
}
