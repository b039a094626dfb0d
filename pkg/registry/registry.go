// Package registry holds the declarative module registry: the named units of
// shared code, the files that implement them, the modules they depend on, and
// the import prefixes that select them.
//
// A [Registry] is immutable once built. It is loaded once per run and shared
// read-only by every concurrent unit task.
package registry

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/prunepack/pkg/dag"
	"github.com/matzehuels/prunepack/pkg/errors"
)

// RootModuleID is the ID of the implicit module that owns files placed
// directly in the shared root.
const RootModuleID = "."

// Module is a named unit of shared code.
type Module struct {
	ID            string   `json:"-" yaml:"-" toml:"-"`
	Paths         []string `json:"paths" yaml:"paths" toml:"paths"`
	DependsOn     []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	AlwaysInclude bool     `json:"always_include,omitempty" yaml:"always_include,omitempty" toml:"always_include,omitempty"`
}

// Pattern maps an import prefix to the modules it selects.
type Pattern struct {
	Prefix  string
	Targets []string
}

// Matches reports whether ref starts with the pattern prefix.
func (p Pattern) Matches(ref string) bool { return strings.HasPrefix(ref, p.Prefix) }

// Registry is the immutable module registry.
type Registry struct {
	modules  map[string]Module
	ids      []string
	patterns []Pattern
	barrel   string
	symbols  map[string]string
	byPath   map[string]string
	graph    *dag.DAG
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithBarrel sets the barrel specifier, overriding the one in the file.
// An empty string leaves the current value untouched.
func WithBarrel(barrel string) Option {
	return func(r *Registry) {
		if barrel != "" {
			r.barrel = barrel
		}
	}
}

// WithSymbols sets the barrel symbol table (symbol name → owning module).
func WithSymbols(symbols map[string]string) Option {
	return func(r *Registry) { r.symbols = maps.Clone(symbols) }
}

// New builds a registry from modules and patterns. Module IDs must be unique
// and non-empty. Dependencies on undefined modules are kept on the Module but
// omitted from the graph; the validator reports them.
func New(modules []Module, patterns []Pattern, opts ...Option) (*Registry, error) {
	r := &Registry{
		modules: make(map[string]Module, len(modules)),
		byPath:  make(map[string]string),
		symbols: map[string]string{},
	}
	for _, m := range modules {
		if m.ID == "" {
			return nil, errors.New(errors.ErrCodeConfigLoad, "module with empty id")
		}
		if _, dup := r.modules[m.ID]; dup {
			return nil, errors.New(errors.ErrCodeConfigLoad, "duplicate module id %q", m.ID)
		}
		m.Paths = slices.Clone(m.Paths)
		m.DependsOn = slices.Clone(m.DependsOn)
		r.modules[m.ID] = m
	}
	r.ids = slices.Sorted(maps.Keys(r.modules))

	for _, id := range r.ids {
		for _, p := range r.modules[id].Paths {
			if _, taken := r.byPath[p]; !taken {
				r.byPath[p] = id
			}
		}
	}

	r.patterns = make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		r.patterns = append(r.patterns, Pattern{Prefix: p.Prefix, Targets: slices.Clone(p.Targets)})
	}
	slices.SortFunc(r.patterns, func(a, b Pattern) int {
		if c := cmp.Compare(len(b.Prefix), len(a.Prefix)); c != 0 {
			return c
		}
		return strings.Compare(a.Prefix, b.Prefix)
	})

	for _, opt := range opts {
		opt(r)
	}

	r.graph = r.buildGraph()
	return r, nil
}

func (r *Registry) buildGraph() *dag.DAG {
	g := dag.New()
	for _, id := range r.ids {
		m := r.modules[id]
		_ = g.AddNode(dag.Node{ID: id, Meta: dag.Metadata{
			"paths":          slices.Clone(m.Paths),
			"always_include": m.AlwaysInclude,
		}})
	}
	for _, id := range r.ids {
		for _, dep := range r.modules[id].DependsOn {
			if _, ok := r.modules[dep]; ok {
				_ = g.AddEdge(dag.Edge{From: id, To: dep})
			}
		}
	}
	return g
}

// Module returns the module with the given ID.
func (r *Registry) Module(id string) (Module, bool) {
	m, ok := r.modules[id]
	return m, ok
}

// Modules returns all modules sorted by ID.
func (r *Registry) Modules() []Module {
	out := make([]Module, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.modules[id])
	}
	return out
}

// IDs returns all module IDs in sorted order.
func (r *Registry) IDs() []string { return slices.Clone(r.ids) }

// Len returns the number of modules.
func (r *Registry) Len() int { return len(r.ids) }

// AlwaysInclude returns the IDs of modules seeded into every resolution.
func (r *Registry) AlwaysInclude() []string {
	var out []string
	for _, id := range r.ids {
		if r.modules[id].AlwaysInclude {
			out = append(out, id)
		}
	}
	return out
}

// Patterns returns the import patterns, longest prefix first.
// Equal-length prefixes are ordered lexicographically.
func (r *Registry) Patterns() []Pattern { return slices.Clone(r.patterns) }

// Match returns the pattern with the longest prefix of ref.
func (r *Registry) Match(ref string) (Pattern, bool) {
	for _, p := range r.patterns {
		if p.Matches(ref) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Barrel returns the barrel specifier, or "" when none is configured.
func (r *Registry) Barrel() string { return r.barrel }

// BarrelModules returns the modules the barrel re-exports: the targets of the
// pattern whose prefix equals the barrel specifier. Without such a pattern
// every module is returned, since nothing narrower is known.
func (r *Registry) BarrelModules() []string {
	if r.barrel != "" {
		for _, p := range r.patterns {
			if p.Prefix == r.barrel {
				out := slices.Clone(p.Targets)
				slices.Sort(out)
				return slices.Compact(out)
			}
		}
	}
	return r.IDs()
}

// ModuleForPath returns the module that declares exactly path.
// When several modules declare it, the smallest ID wins.
func (r *Registry) ModuleForPath(path string) (string, bool) {
	id, ok := r.byPath[path]
	return id, ok
}

// Symbols returns a copy of the barrel symbol table.
func (r *Registry) Symbols() map[string]string { return maps.Clone(r.symbols) }

// SymbolOwner returns the module that exports sym through the barrel.
func (r *Registry) SymbolOwner(sym string) (string, bool) {
	id, ok := r.symbols[sym]
	return id, ok
}

// Graph returns the depends_on graph. The graph is shared; callers must not
// modify it.
func (r *Registry) Graph() *dag.DAG { return r.graph }
