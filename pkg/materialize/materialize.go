// Package materialize turns a resolved module set into the concrete shared
// paths a unit's archive must contain.
package materialize

import (
	"slices"
	"strings"

	"github.com/matzehuels/prunepack/pkg/registry"
)

// Entry is one materialized path, relative to the shared root.
//
// Ancestor entries exist only because a deeper path was requested: the
// builder creates the directory but does not copy its contents.
type Entry struct {
	Rel      string
	Ancestor bool
}

// PathSet is a sorted, duplicate-free set of entries that is closed under
// ancestor segments: for every entry a/b/c the set also holds a/b and a.
type PathSet []Entry

// Materialize returns the paths declared by modules plus every proper
// ancestor segment of each. Unknown module IDs are ignored. A segment that is
// both declared and an ancestor is a declared path.
func Materialize(modules []string, reg *registry.Registry) PathSet {
	declared := map[string]bool{}
	for _, id := range modules {
		m, ok := reg.Module(id)
		if !ok {
			continue
		}
		for _, p := range m.Paths {
			if p == "" || p == "." {
				continue
			}
			declared[p] = true
		}
	}

	all := map[string]bool{}
	for p := range declared {
		all[p] = false
		for _, a := range Ancestors(p) {
			if _, seen := all[a]; !seen {
				all[a] = true
			}
		}
	}

	set := make(PathSet, 0, len(all))
	for p, ancestor := range all {
		set = append(set, Entry{Rel: p, Ancestor: ancestor && !declared[p]})
	}
	slices.SortFunc(set, func(a, b Entry) int { return strings.Compare(a.Rel, b.Rel) })
	return set
}

// Ancestors returns the proper ancestor segments of a slash path, shortest
// first: "a/b/c" yields ["a", "a/b"].
func Ancestors(p string) []string {
	var out []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' && i > 0 {
			out = append(out, p[:i])
		}
	}
	return out
}

// Paths returns every relative path in the set.
func (s PathSet) Paths() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Rel
	}
	return out
}

// Contains reports whether rel is in the set.
func (s PathSet) Contains(rel string) bool {
	_, ok := slices.BinarySearchFunc(s, rel, func(e Entry, t string) int { return strings.Compare(e.Rel, t) })
	return ok
}

// Roots returns the declared paths that are not already covered by a
// declared ancestor. Copying each root recursively copies the whole set.
func (s PathSet) Roots() []string {
	var roots []string
	for _, e := range s {
		if e.Ancestor {
			continue
		}
		covered := false
		for _, a := range Ancestors(e.Rel) {
			if i, ok := slices.BinarySearchFunc(s, a, func(e Entry, t string) int { return strings.Compare(e.Rel, t) }); ok && !s[i].Ancestor {
				covered = true
				break
			}
		}
		if !covered {
			roots = append(roots, e.Rel)
		}
	}
	return roots
}

// Dirs returns the ancestor-only entries: directories to create without
// copying their contents.
func (s PathSet) Dirs() []string {
	var dirs []string
	for _, e := range s {
		if e.Ancestor {
			dirs = append(dirs, e.Rel)
		}
	}
	return dirs
}
