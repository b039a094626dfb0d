package project

import "github.com/matzehuels/prunepack/pkg/archive"

// ExcludedDirs are never scanned or packaged for TypeScript units.
var ExcludedDirs = []string{"node_modules", "dist", "build", "coverage"}

// TypeScriptTestGlobs match TypeScript test files.
var TypeScriptTestGlobs = []string{"*.test.ts", "*.spec.ts", "*.test.tsx", "*.spec.tsx"}

// junk is editor and OS metadata that never belongs in an archive.
var junk = []string{".DS_Store"}

var (
	goFilter = archive.Filter{
		ExcludeNames:     append([]string{"cmd"}, junk...),
		ExcludeUnitFiles: []string{"main.go"},
		TestGlobs:        []string{"*_test.go"},
	}
	tsFilter = archive.Filter{
		ExcludeNames: append(append([]string{}, ExcludedDirs...), junk...),
		TestGlobs:    TypeScriptTestGlobs,
	}
)

func archiveLayout(filesDest string, globs []string, subdirsDest string) archive.Layout {
	return archive.Layout{FilesDest: filesDest, FilesGlobs: globs, SubdirsDest: subdirsDest}
}
