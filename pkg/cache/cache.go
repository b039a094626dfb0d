// Package cache stores extraction results between runs.
//
// Running a dependency lister is the slowest step of packaging a unit. The
// result only changes when the unit's sources, the shared sources or the
// lister configuration change, so it is cached under a key derived from all
// three.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// ExtractionKey identifies the references of one unit. digest must change
	// whenever any input to extraction changes.
	ExtractionKey(ecosystem, unit, fingerprint, digest string) string
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ExtractionKey returns "extract:<sha256>" over all components.
func (k *DefaultKeyer) ExtractionKey(ecosystem, unit, fingerprint, digest string) string {
	return hashKey("extract", ecosystem, unit, fingerprint, digest)
}

var _ Keyer = (*DefaultKeyer)(nil)

// Disabled returns a cache that never stores anything. It backs --no-cache
// and an unusable cache directory.
func Disabled() Cache { return disabled{} }

type disabled struct{}

func (disabled) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (disabled) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (disabled) Delete(context.Context, string) error { return nil }
func (disabled) Close() error { return nil }
