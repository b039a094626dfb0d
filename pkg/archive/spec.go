package archive

import (
	"path"
	"slices"
	"strings"

	"github.com/matzehuels/prunepack/pkg/materialize"
)

// UnitPlaceholder is replaced by the unit name in layout destinations.
const UnitPlaceholder = "{unit}"

// Layout places a unit's own source inside the archive.
type Layout struct {
	// FilesDest receives the unit's top-level files ("" is the archive root).
	FilesDest string
	// FilesGlobs limits which top-level files are copied. Empty copies all.
	FilesGlobs []string
	// SubdirsDest receives each top-level subdirectory of the unit.
	SubdirsDest string
}

func (l Layout) filesDest(unit string) string {
	return strings.ReplaceAll(l.FilesDest, UnitPlaceholder, unit)
}

func (l Layout) subdirsDest(unit string) string {
	return strings.ReplaceAll(l.SubdirsDest, UnitPlaceholder, unit)
}

// Filter decides which source files never reach the archive.
type Filter struct {
	// ExcludeNames are file or directory names skipped at every level of the
	// unit and shared trees (e.g. node_modules, cmd).
	ExcludeNames []string
	// ExcludeUnitFiles are skipped among the unit's top-level files only
	// (e.g. main.go).
	ExcludeUnitFiles []string
	// TestGlobs match test files, skipped everywhere (e.g. *_test.go).
	TestGlobs []string
}

func (f Filter) excluded(name string) bool {
	return slices.Contains(f.ExcludeNames, name)
}

func (f Filter) isTest(name string) bool {
	return matchAny(f.TestGlobs, name)
}

// File is a generated file written into the archive.
type File struct {
	Name string // slash path relative to the archive root
	Data []byte
}

// Spec describes one unit's archive.
type Spec struct {
	Unit    string
	UnitDir string
	Layout  Layout

	SharedDir  string
	SharedDest string
	Paths      materialize.PathSet
	// FullTree copies the whole shared tree and ignores Paths.
	FullTree bool
	// RootFiles are globs of top-level shared files that are always copied.
	RootFiles []string

	// CopyFiles are copied from CopyRoot to the archive root when present.
	CopyRoot  string
	CopyFiles []string

	Generated []File
	Filter    Filter
}

func matchAny(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}
