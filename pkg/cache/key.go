package cache

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached API response. Two logically identical requests
// produce the same key regardless of parameter insertion order.
type Key struct {
	// Resource is the API resource name (e.g., "works", "authors").
	Resource string

	// EntityID is the entity identifier for single-entity requests
	// (empty for list/search requests).
	EntityID string

	// Params are the normalized query parameters.
	Params url.Values
}

// Canonical returns the deterministic pre-hash form of the key: resource,
// entity id, and sorted parameters joined with ':'.
func (k Key) Canonical() string {
	parts := []string{k.Resource}

	if k.EntityID != "" {
		parts = append(parts, k.EntityID)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			vals := append([]string(nil), k.Params[name]...)
			sort.Strings(vals)
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(vals, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// String returns the stable hashed cache key.
// Format: resource:fnv1a-hash-of-canonical-form.
func (k Key) String() string {
	h := fnv.New64a()
	h.Write([]byte(k.Canonical()))
	return fmt.Sprintf("%s:%016x", k.Resource, h.Sum64())
}
