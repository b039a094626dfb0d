package extract

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/matzehuels/prunepack/pkg/cache"
	"github.com/matzehuels/prunepack/pkg/observability"
	"github.com/matzehuels/prunepack/pkg/project"
)

// payloadSchema is bumped whenever the cached References layout changes.
const payloadSchema uint16 = 1

type payload struct {
	Schema uint16
	Refs   References
}

// CachedExtractor serves extraction results from a cache. Entries are keyed
// by the unit, the inner extractor's fingerprint and a content digest of the
// unit and shared trees, so any source change is a miss. Failed extractions
// are never stored.
type CachedExtractor struct {
	Inner     Extractor
	Cache     cache.Cache
	Keyer     cache.Keyer
	SharedDir string
	TTL       time.Duration
	Logger    *log.Logger
	// Skip reports directory names excluded from the content digest.
	Skip func(name string) bool
}

// NewCachedExtractor wraps inner with c. A nil cache disables caching.
func NewCachedExtractor(inner Extractor, c cache.Cache, sharedDir string, logger *log.Logger) *CachedExtractor {
	if c == nil {
		c = cache.Disabled()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	skip := func(name string) bool { return slices.Contains(project.ExcludedDirs, name) || name == ".git" }
	return &CachedExtractor{
		Inner:     inner,
		Cache:     c,
		Keyer:     cache.NewScopedKeyer(cache.NewDefaultKeyer(), "v1:"),
		SharedDir: sharedDir,
		TTL:       7 * 24 * time.Hour,
		Logger:    logger,
		Skip:      skip,
	}
}

// Extract returns cached references when the inputs are unchanged and runs
// the inner extractor otherwise.
func (e *CachedExtractor) Extract(ctx context.Context, unit project.Unit) (*References, error) {
	key, err := e.key(unit)
	if err != nil {
		e.Logger.Debug("cannot compute cache key, extracting directly", "unit", unit.Name, "error", err)
		return e.Inner.Extract(ctx, unit)
	}

	hooks := observability.Cache()
	if data, ok, err := e.Cache.Get(ctx, key); err == nil && ok {
		var p payload
		if err := msgpack.Unmarshal(data, &p); err == nil && p.Schema == payloadSchema {
			hooks.OnCacheHit(ctx, unit.Name)
			e.Logger.Debug("extraction cache hit", "unit", unit.Name)
			refs := p.Refs
			return &refs, nil
		}
		_ = e.Cache.Delete(ctx, key)
	}
	hooks.OnCacheMiss(ctx, unit.Name)

	refs, err := e.Inner.Extract(ctx, unit)
	if err != nil || refs == nil || refs.Failed {
		return refs, err
	}
	data, err := msgpack.Marshal(payload{Schema: payloadSchema, Refs: *refs})
	if err == nil {
		err = e.Cache.Set(ctx, key, data, e.TTL)
	}
	if err != nil {
		e.Logger.Warn("failed to cache extraction", "unit", unit.Name, "error", err)
	}
	return refs, nil
}

func (e *CachedExtractor) key(unit project.Unit) (string, error) {
	fingerprint := ""
	if f, ok := e.Inner.(Fingerprinter); ok {
		fingerprint = f.Fingerprint()
	}
	digest, err := cache.HashTree(e.Skip, unit.Dir, e.SharedDir)
	if err != nil {
		return "", err
	}
	return e.Keyer.ExtractionKey(string(unit.Ecosystem), unit.Name, fingerprint, digest), nil
}
