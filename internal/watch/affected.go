package watch

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/prunepack/pkg/project"
)

// Affected returns the units of d that must be rebuilt after changed.
//
// A change below the shared root, or to a copied or root-level file of the
// ecosystem root, affects every unit. Any other change affects only the unit
// owning it. Units are returned in the order given.
func Affected(d *project.Descriptor, units []project.Unit, changed []string) []project.Unit {
	hit := make(map[string]bool)
	for _, p := range changed {
		if within(d.SharedDir, p) || sharedInput(d, p) {
			return units
		}
		if u, ok := project.Owner(units, p); ok {
			hit[u.Name] = true
		}
	}

	var out []project.Unit
	for _, u := range units {
		if hit[u.Name] {
			out = append(out, u)
		}
	}
	return out
}

// Roots returns the directories to watch for d.
func Roots(d *project.Descriptor) []string {
	roots := []string{d.Root}
	for _, dir := range []string{d.UnitsDir, d.SharedDir} {
		if !within(d.Root, dir) {
			roots = append(roots, dir)
		}
	}
	return slices.Compact(roots)
}

func sharedInput(d *project.Descriptor, path string) bool {
	if filepath.Dir(path) != filepath.Clean(d.Root) {
		return false
	}
	name := filepath.Base(path)
	if slices.Contains(d.CopyFiles, name) {
		return true
	}
	for _, glob := range d.RootFiles {
		if ok, _ := filepath.Match(glob, name); ok {
			return true
		}
	}
	return false
}

func within(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
