package project

import "path/filepath"

// GoOptions are the configurable parts of the Go layout.
type GoOptions struct {
	Root       string
	UnitsDir   string // relative to Root
	SharedDir  string // relative to Root
	SharedDest string
	Units      []string
	CopyFiles  []string
	RootFiles  []string
}

// NewGo returns the Go descriptor. Unit top-level .go files land at the
// archive root (main.go and tests excluded); unit subdirectories keep their
// import path under functions/<unit>/; cmd trees are never packaged.
func NewGo(o GoOptions) *Descriptor {
	return &Descriptor{
		Ecosystem:  Go,
		Root:       o.Root,
		UnitsDir:   filepath.Join(o.Root, o.UnitsDir),
		SharedDir:  filepath.Join(o.Root, o.SharedDir),
		SharedDest: o.SharedDest,
		Layout: archiveLayout(
			"",
			[]string{"*.go"},
			filepath.ToSlash(o.UnitsDir)+"/{unit}",
		),
		Filter:    goFilter,
		RootFiles: o.RootFiles,
		CopyFiles: o.CopyFiles,
		Units:     o.Units,
		SourceExt: ".go",
	}
}

// TypeScriptOptions are the configurable parts of the TypeScript layout.
type TypeScriptOptions struct {
	Root         string
	SharedDir    string // relative to Root
	SharedDest   string
	Units        []string
	ExcludeUnits []string
	CopyFiles    []string
	RootFiles    []string
}

// NewTypeScript returns the TypeScript descriptor. Each unit is a workspace
// directory with a package.json, copied whole under <unit>/; the archive
// gets a generated package.json and index.js entry point.
func NewTypeScript(o TypeScriptOptions) *Descriptor {
	return &Descriptor{
		Ecosystem:    TypeScript,
		Root:         o.Root,
		UnitsDir:     o.Root,
		SharedDir:    filepath.Join(o.Root, o.SharedDir),
		SharedDest:   o.SharedDest,
		Layout:       archiveLayout("{unit}", nil, "{unit}"),
		Filter:       tsFilter,
		RootFiles:    o.RootFiles,
		CopyFiles:    o.CopyFiles,
		Units:        o.Units,
		ExcludeUnits: o.ExcludeUnits,
		Marker:       "package.json",
		Generate:     TypeScriptGenerator(o.Root, filepath.Join(o.Root, o.SharedDir), o.SharedDest),
	}
}
