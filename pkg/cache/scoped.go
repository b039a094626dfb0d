package cache

// ScopedKeyer wraps a Keyer with a prefix. Bumping the prefix invalidates
// every entry written under the previous one, e.g. when the payload format
// changes:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v2:")
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

// ExtractionKey generates a prefixed extraction key.
func (k *ScopedKeyer) ExtractionKey(ecosystem, unit, fingerprint, digest string) string {
	return k.prefix + k.inner.ExtractionKey(ecosystem, unit, fingerprint, digest)
}
