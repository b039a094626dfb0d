// Package validate checks a module registry against the shared tree it
// describes.
//
// Errors are inconsistencies that would produce a broken archive: missing or
// malformed paths, references to undefined modules, barrel exports whose
// index file no module ships, and dependency cycles. Warnings flag source
// directories no module covers, which usually means new code was added
// without a registry entry.
//
// Validation is read-only and never modifies the registry or the tree.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"

	perrors "github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/registry"
)

// Kind classifies a finding.
type Kind string

// Error kinds.
const (
	KindMissingPath          Kind = "missing_path"
	KindInvalidPath          Kind = "invalid_path"
	KindUnknownDependency    Kind = "unknown_dependency"
	KindUnknownPatternTarget Kind = "unknown_pattern_target"
	KindUnknownSymbolTarget  Kind = "unknown_symbol_target"
	KindUncoveredExport      Kind = "uncovered_export"
	KindCycle                Kind = "cycle"
)

// Warning kinds.
const (
	KindUncoveredDir   Kind = "uncovered_dir"
	KindUncoveredLeaf  Kind = "uncovered_leaf"
	KindUnmappedBarrel Kind = "unmapped_barrel"
)

// Finding is a single validation result.
type Finding struct {
	Kind    Kind   `json:"kind"`
	Module  string `json:"module,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (f Finding) String() string { return f.Message }

// Report collects the findings of one validation run.
type Report struct {
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

// OK reports whether the registry has no errors. Warnings do not count.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Err returns a REGISTRY_INCONSISTENCY error summarizing the errors, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return perrors.New(perrors.ErrCodeRegistryInconsistency, "%d registry error(s), first: %s", len(r.Errors), r.Errors[0].Message)
}

func (r *Report) errorf(kind Kind, module, subject, format string, args ...any) {
	r.Errors = append(r.Errors, Finding{Kind: kind, Module: module, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(kind Kind, subject, format string, args ...any) {
	r.Warnings = append(r.Warnings, Finding{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// Options locate the shared tree. Filesystem checks are skipped when
// SharedDir is empty.
type Options struct {
	// SharedDir is the shared root that registry paths are relative to.
	SharedDir string
	// SourceDir is the directory below SharedDir scanned for uncovered
	// directories and barrel exports, e.g. "src".
	SourceDir string
	// LeafParents are top-level source directories whose children are
	// modules of their own, e.g. "integrations".
	LeafParents []string
}

// DefaultLeafParents is used when Options.LeafParents is nil.
var DefaultLeafParents = []string{"integrations"}

// ignoredDirs are never reported as uncovered.
var ignoredDirs = []string{"__pycache__", "node_modules", "dist", "build", "coverage"}

// Validate checks reg and returns every finding.
func Validate(reg *registry.Registry, opts Options) *Report {
	if opts.LeafParents == nil {
		opts.LeafParents = DefaultLeafParents
	}
	r := &Report{}
	checkPaths(r, reg, opts)
	checkReferences(r, reg)
	checkCycles(r, reg)
	checkBarrel(r, reg)
	if opts.SharedDir != "" {
		checkExports(r, reg, opts)
		checkCoverage(r, reg, opts)
	}
	return r
}

func checkPaths(r *Report, reg *registry.Registry, opts Options) {
	for _, m := range reg.Modules() {
		for _, p := range m.Paths {
			if err := perrors.ValidatePath(p); err != nil {
				r.errorf(KindInvalidPath, m.ID, p, "module %q has invalid path %q: %s", m.ID, p, perrors.UserMessage(err))
				continue
			}
			if opts.SharedDir == "" {
				continue
			}
			if _, err := os.Stat(filepath.Join(opts.SharedDir, filepath.FromSlash(p))); err != nil {
				r.errorf(KindMissingPath, m.ID, p, "module %q references non-existent path: %s", m.ID, p)
			}
		}
	}
}

func checkReferences(r *Report, reg *registry.Registry) {
	known := func(id string) bool {
		_, ok := reg.Module(id)
		return ok
	}

	for _, m := range reg.Modules() {
		for _, dep := range m.DependsOn {
			if !known(dep) {
				r.errorf(KindUnknownDependency, m.ID, dep, "module %q depends on unknown module: %s", m.ID, dep)
			}
		}
	}

	patterns := reg.Patterns()
	slices.SortFunc(patterns, func(a, b registry.Pattern) int { return strings.Compare(a.Prefix, b.Prefix) })
	for _, p := range patterns {
		for _, id := range p.Targets {
			if !known(id) {
				r.errorf(KindUnknownPatternTarget, "", p.Prefix, "import pattern %q references unknown module: %s", p.Prefix, id)
			}
		}
	}

	symbols := reg.Symbols()
	for _, sym := range slices.Sorted(maps.Keys(symbols)) {
		if id := symbols[sym]; !known(id) {
			r.errorf(KindUnknownSymbolTarget, "", sym, "symbol %q references unknown module: %s", sym, id)
		}
	}
}

// checkCycles reports every strongly connected component with more than one
// module, and every module that depends on itself.
// checkBarrel warns when the barrel has no import pattern of its own. A
// whole-barrel import then resolves to every module in the registry.
func checkBarrel(r *Report, reg *registry.Registry) {
	barrel := reg.Barrel()
	if barrel == "" {
		return
	}
	for _, p := range reg.Patterns() {
		if p.Prefix == barrel {
			return
		}
	}
	r.warnf(KindUnmappedBarrel, barrel, "barrel %q has no import pattern; whole-barrel imports include all %d modules", barrel, reg.Len())
}

func checkCycles(r *Report, reg *registry.Registry) {
	g := graph.New(graph.StringHash, graph.Directed())
	for _, id := range reg.IDs() {
		_ = g.AddVertex(id)
	}
	for _, m := range reg.Modules() {
		for _, dep := range m.DependsOn {
			if dep == m.ID {
				r.errorf(KindCycle, m.ID, m.ID, "module %q depends on itself", m.ID)
				continue
			}
			if _, ok := reg.Module(dep); !ok {
				continue
			}
			if err := g.AddEdge(m.ID, dep); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				r.errorf(KindCycle, m.ID, dep, "cannot add dependency %s -> %s: %v", m.ID, dep, err)
			}
		}
	}

	sccs, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		r.errorf(KindCycle, "", "", "cycle detection failed: %v", err)
		return
	}
	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) > 1 {
			slices.Sort(scc)
			cycles = append(cycles, scc)
		}
	}
	slices.SortFunc(cycles, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	for _, c := range cycles {
		r.errorf(KindCycle, c[0], strings.Join(c, ","), "dependency cycle between modules: %s", strings.Join(c, ", "))
	}
}

// checkExports requires every package.json subpath export backed by a barrel
// file to be covered by some module path.
func checkExports(r *Report, reg *registry.Registry, opts Options) {
	data, err := os.ReadFile(filepath.Join(opts.SharedDir, "package.json"))
	if err != nil {
		return
	}
	var pkg struct {
		Exports map[string]json.RawMessage `json:"exports"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}

	paths := declaredPaths(reg)
	for _, subpath := range slices.Sorted(maps.Keys(pkg.Exports)) {
		if subpath == "." || strings.Contains(subpath, "*") {
			continue
		}
		sub := strings.Trim(strings.TrimPrefix(subpath, "./"), "/")
		dir := path.Join(opts.SourceDir, sub)
		barrel := path.Join(dir, "index.ts")
		if _, err := os.Stat(filepath.Join(opts.SharedDir, filepath.FromSlash(barrel))); err != nil {
			continue
		}
		if !covers(paths, barrel) {
			r.errorf(KindUncoveredExport, "", subpath, "package.json export %q needs a barrel module: %s is not included in any module's paths", subpath, barrel)
		}
	}
}

// checkCoverage warns about source directories no module path reaches.
func checkCoverage(r *Report, reg *registry.Registry, opts Options) {
	src := filepath.Join(opts.SharedDir, filepath.FromSlash(opts.SourceDir))
	paths := declaredPaths(reg)

	for _, name := range subdirs(src) {
		dir := path.Join(opts.SourceDir, name)
		if !reaches(paths, dir) {
			r.warnf(KindUncoveredDir, dir, "directory %s has no module definition", dir)
		}
		if !slices.Contains(opts.LeafParents, name) {
			continue
		}
		for _, child := range subdirs(filepath.Join(src, name)) {
			sub := path.Join(dir, child)
			if !reaches(paths, sub) {
				r.warnf(KindUncoveredLeaf, sub, "%s has no module definition", sub)
			}
		}
	}
}

func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || slices.Contains(ignoredDirs, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func declaredPaths(reg *registry.Registry) []string {
	var out []string
	for _, m := range reg.Modules() {
		out = append(out, m.Paths...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// covers reports whether target is a declared path or lies below one.
func covers(paths []string, target string) bool {
	for _, p := range paths {
		if p == target || p == "." || strings.HasPrefix(target, p+"/") {
			return true
		}
	}
	return false
}

// reaches reports whether dir or anything inside it is declared.
func reaches(paths []string, dir string) bool {
	if covers(paths, dir) {
		return true
	}
	for _, p := range paths {
		if strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}
