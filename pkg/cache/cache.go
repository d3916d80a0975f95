// Package cache provides the pipeline's artifact cache.
//
// Computed zones, masks, and composed rasters are expensive to rebuild, so
// the pipeline stores them keyed by content hashes. Backends cover the CLI
// (files), server deployments (Redis, MongoDB), and tests (null).
package cache

import (
	"context"
	"time"
)

// Cache entry lifetimes per artifact kind. Generation results are never
// cached; a provider call is a fresh draw every time.
const (
	TTLZones    = 24 * time.Hour
	TTLMask     = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
	TTLHTTP     = time.Hour
)

// Cache stores opaque byte blobs under string keys with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ZonesKeyOpts parameterize computed-zone cache keys.
type ZonesKeyOpts struct {
	UserDataHash string
}

// MaskKeyOpts parameterize mask cache keys.
type MaskKeyOpts struct {
	Width  int
	Height int
}

// ArtifactKeyOpts parameterize composed-raster cache keys.
type ArtifactKeyOpts struct {
	Format string
	Scale  int
}

// Keyer generates cache keys for the pipeline's artifact kinds.
// Implementations must be deterministic: identical inputs yield identical
// keys across processes.
type Keyer interface {
	// ZonesKey keys a computed zone list by template and user data.
	ZonesKey(templateID string, opts ZonesKeyOpts) string

	// MaskKey keys a rasterized mask by the zone-list hash.
	MaskKey(zonesHash string, opts MaskKeyOpts) string

	// ArtifactKey keys a composed raster by the inputs that shaped it.
	ArtifactKey(compositionHash string, opts ArtifactKeyOpts) string

	// HTTPKey keys a cached HTTP response.
	HTTPKey(namespace, key string) string
}

// DefaultKeyer hashes key components with SHA-256 under a kind prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ZonesKey generates a key for computed zone caching.
func (k *DefaultKeyer) ZonesKey(templateID string, opts ZonesKeyOpts) string {
	return hashKey("zones", templateID, opts)
}

// MaskKey generates a key for mask caching.
func (k *DefaultKeyer) MaskKey(zonesHash string, opts MaskKeyOpts) string {
	return hashKey("mask", zonesHash, opts)
}

// ArtifactKey generates a key for composed artifact caching.
func (k *DefaultKeyer) ArtifactKey(compositionHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", compositionHash, opts)
}

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return hashKey("http", namespace, key)
}
