package registry

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/prunepack/pkg/errors"
)

// FromPackageTree builds an implicit registry for compiler-backed ecosystems
// that have no registry file. Every directory under sharedRoot holding at
// least one non-test file with extension ext becomes a module whose ID and
// only path is its slash-separated relative directory. Source files directly
// in sharedRoot form the always-included [RootModuleID] module.
//
// Hidden directories and directories named testdata or vendor are skipped.
// The compiler lister already reports transitive imports, so implicit
// modules carry no dependency edges.
func FromPackageTree(sharedRoot, ext string) (*Registry, error) {
	info, err := os.Stat(sharedRoot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "shared root %s", sharedRoot)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeConfigLoad, "shared root %s is not a directory", sharedRoot)
	}

	testSuffix := "_test" + ext
	files := map[string][]string{}
	err = filepath.WalkDir(sharedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != sharedRoot && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(name, ext) || strings.HasSuffix(name, testSuffix) {
			return nil
		}
		rel, err := filepath.Rel(sharedRoot, filepath.Dir(path))
		if err != nil {
			return err
		}
		dir := filepath.ToSlash(rel)
		files[dir] = append(files[dir], name)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "scan shared root %s", sharedRoot)
	}

	modules := make([]Module, 0, len(files))
	for dir, names := range files {
		if dir == "." {
			slices.Sort(names)
			modules = append(modules, Module{ID: RootModuleID, Paths: names, AlwaysInclude: true})
			continue
		}
		modules = append(modules, Module{ID: dir, Paths: []string{dir}})
	}
	return New(modules, nil)
}
