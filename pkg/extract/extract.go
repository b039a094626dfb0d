// Package extract discovers which shared code a unit references.
//
// Two strategies are provided. [ListerExtractor] asks the language toolchain
// for the unit's full transitive import list, which is exact. [PatternExtractor]
// scans TypeScript sources for imports of a shared barrel package, which is
// heuristic and relies on the registry to map prefixes to modules.
//
// Extraction failure is not fatal: the pipeline converts it into the
// full-tree fail-safe so a unit is never packaged with missing code.
package extract

import (
	"context"
	"slices"

	"github.com/matzehuels/prunepack/pkg/project"
)

// References is the raw, unresolved set of shared-code references of a unit.
type References struct {
	// Exact holds compiler-derived package paths relative to the shared root.
	Exact []string `msgpack:"exact"`
	// Deep holds fully qualified imports below the barrel, e.g.
	// "@acme/shared/dist/types/user".
	Deep []string `msgpack:"deep"`
	// Symbols holds names imported directly from the barrel.
	Symbols []string `msgpack:"symbols"`
	// WholeBarrel is set when the barrel was imported as a namespace.
	WholeBarrel bool `msgpack:"whole_barrel"`

	// Failed marks an extraction that produced no usable result.
	Failed bool  `msgpack:"-"`
	Cause  error `msgpack:"-"`
}

// Failure returns the references of a failed extraction.
func Failure(cause error) *References {
	return &References{Failed: true, Cause: cause}
}

// UsesBarrel reports whether any barrel symbol or namespace import was seen.
func (r *References) UsesBarrel() bool {
	return r.WholeBarrel || len(r.Symbols) > 0
}

// Empty reports whether a successful extraction found no reference of any
// kind. A failed extraction is never empty.
func (r *References) Empty() bool {
	return !r.Failed && len(r.Exact) == 0 && len(r.Deep) == 0 && !r.UsesBarrel()
}

// normalize sorts and de-duplicates every list.
func (r *References) normalize() {
	r.Exact = sortedSet(r.Exact)
	r.Deep = sortedSet(r.Deep)
	r.Symbols = sortedSet(r.Symbols)
}

func sortedSet(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	slices.Sort(s)
	return slices.Compact(s)
}

// Extractor produces the raw references of a unit.
type Extractor interface {
	Extract(ctx context.Context, unit project.Unit) (*References, error)
}

// Fingerprinter is implemented by extractors whose output depends on
// configuration beyond the unit and shared sources. The fingerprint is part
// of the cache key.
type Fingerprinter interface {
	Fingerprint() string
}
