package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Server deployments use it to give each account its own cache namespace.
//
// Example usage:
//
//	// Account-specific keys for private templates
//	accountKeyer := NewScopedKeyer(NewDefaultKeyer(), "acct:abc123:")
//
//	// Global keys for shared templates
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ZonesKey generates a prefixed key for computed zone caching.
func (k *ScopedKeyer) ZonesKey(templateID string, opts ZonesKeyOpts) string {
	return k.prefix + k.inner.ZonesKey(templateID, opts)
}

// MaskKey generates a prefixed key for mask caching.
func (k *ScopedKeyer) MaskKey(zonesHash string, opts MaskKeyOpts) string {
	return k.prefix + k.inner.MaskKey(zonesHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(compositionHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(compositionHash, opts)
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}
