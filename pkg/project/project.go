// Package project describes the deployable units of a repository and the
// per-ecosystem conventions used to package them.
package project

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/matzehuels/prunepack/pkg/archive"
	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/materialize"
)

// Ecosystem names a language toolchain.
type Ecosystem string

const (
	Go         Ecosystem = "go"
	TypeScript Ecosystem = "typescript"
)

// Ecosystems lists the supported ecosystems in run order.
var Ecosystems = []Ecosystem{Go, TypeScript}

// ParseEcosystem validates an ecosystem name.
func ParseEcosystem(s string) (Ecosystem, error) {
	switch e := Ecosystem(strings.ToLower(s)); e {
	case Go, TypeScript:
		return e, nil
	case "ts":
		return TypeScript, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown ecosystem %q (want go or typescript)", s)
}

// Unit is one independently deployable function or handler.
type Unit struct {
	Name      string
	Ecosystem Ecosystem
	Dir       string // absolute source directory
}

// Generator produces files synthesized for a unit's archive.
type Generator func(u Unit) ([]archive.File, error)

// Descriptor holds an ecosystem's repository layout and packaging rules.
type Descriptor struct {
	Ecosystem Ecosystem
	Root      string // ecosystem root; lister and copy files are relative to it
	UnitsDir  string // directory whose subdirectories are units
	SharedDir string
	// SharedDest is where shared code lands inside the archive.
	SharedDest string

	Layout    archive.Layout
	Filter    archive.Filter
	RootFiles []string
	CopyFiles []string
	Generate  Generator

	// Units, when set, is the explicit unit list; otherwise units are
	// discovered.
	Units []string
	// ExcludeUnits are directory names never treated as units.
	ExcludeUnits []string
	// Marker, when set, is a file a directory must contain to be a unit.
	Marker string
	// SourceExt is the source file extension used when no marker is set.
	SourceExt string
}

// Discover lists the descriptor's units sorted by name.
func (d *Descriptor) Discover() ([]Unit, error) {
	if len(d.Units) > 0 {
		units := make([]Unit, 0, len(d.Units))
		for _, name := range d.Units {
			if err := errors.ValidateUnitName(name); err != nil {
				return nil, err
			}
			dir := filepath.Join(d.UnitsDir, name)
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return nil, errors.New(errors.ErrCodeUnknownUnit, "%s unit %q has no directory %s", d.Ecosystem, name, dir)
			}
			units = append(units, Unit{Name: name, Ecosystem: d.Ecosystem, Dir: dir})
		}
		slices.SortFunc(units, func(a, b Unit) int { return strings.Compare(a.Name, b.Name) })
		return units, nil
	}

	entries, err := os.ReadDir(d.UnitsDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "list %s units", d.Ecosystem)
	}
	var units []Unit
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || slices.Contains(d.ExcludeUnits, name) {
			continue
		}
		dir := filepath.Join(d.UnitsDir, name)
		if !d.isUnit(dir) {
			continue
		}
		units = append(units, Unit{Name: name, Ecosystem: d.Ecosystem, Dir: dir})
	}
	return units, nil
}

func (d *Descriptor) isUnit(dir string) bool {
	if d.Marker != "" {
		_, err := os.Stat(filepath.Join(dir, d.Marker))
		return err == nil
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*"+d.SourceExt))
	return len(matches) > 0
}

// Spec assembles the archive spec for a unit. A nil paths set with fullTree
// false packages no shared code beyond the root files.
func (d *Descriptor) Spec(u Unit, paths materialize.PathSet, fullTree bool) (archive.Spec, error) {
	spec := archive.Spec{
		Unit:       u.Name,
		UnitDir:    u.Dir,
		Layout:     d.Layout,
		SharedDir:  d.SharedDir,
		SharedDest: d.SharedDest,
		Paths:      paths,
		FullTree:   fullTree,
		RootFiles:  d.RootFiles,
		CopyRoot:   d.Root,
		CopyFiles:  d.CopyFiles,
		Filter:     d.Filter,
	}
	if d.Generate != nil {
		files, err := d.Generate(u)
		if err != nil {
			return archive.Spec{}, errors.Wrap(errors.ErrCodeStagingIO, err, "generate files for %s", u.Name)
		}
		spec.Generated = files
	}
	return spec, nil
}

// Select filters units by name. Unknown names are an UNKNOWN_UNIT error.
// An empty names list selects every unit.
func Select(units []Unit, names []string) ([]Unit, error) {
	if len(names) == 0 {
		return units, nil
	}
	var out []Unit
	for _, name := range names {
		i := slices.IndexFunc(units, func(u Unit) bool { return u.Name == name })
		if i < 0 {
			if hint := suggest(units, name); hint != "" {
				return nil, errors.New(errors.ErrCodeUnknownUnit, "unknown unit %q (did you mean %q?)", name, hint)
			}
			return nil, errors.New(errors.ErrCodeUnknownUnit, "unknown unit %q", name)
		}
		if !slices.ContainsFunc(out, func(u Unit) bool { return u.Name == name }) {
			out = append(out, units[i])
		}
	}
	return out, nil
}

// suggest returns the closest unit name to name, or "".
func suggest(units []Unit, name string) string {
	all := make([]string, len(units))
	for i, u := range units {
		all[i] = u.Name
	}
	matches := fuzzy.Find(name, all)
	if len(matches) == 0 {
		return ""
	}
	sort.Stable(matches)
	return all[matches[0].Index]
}

// Owner returns the unit whose directory contains path, if any.
func Owner(units []Unit, path string) (Unit, bool) {
	for _, u := range units {
		rel, err := filepath.Rel(u.Dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return u, true
		}
	}
	return Unit{}, false
}
