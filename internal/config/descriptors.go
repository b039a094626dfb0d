package config

import (
	"path/filepath"

	"github.com/matzehuels/prunepack/pkg/project"
)

// Descriptor returns the Go project descriptor.
func (c GoConfig) Descriptor() *project.Descriptor {
	return project.NewGo(project.GoOptions{
		Root:       c.Root,
		UnitsDir:   c.UnitsDir,
		SharedDir:  c.SharedDir,
		SharedDest: c.SharedDest,
		Units:      c.Units,
		CopyFiles:  c.CopyFiles,
		RootFiles:  c.RootFiles,
	})
}

// Descriptor returns the TypeScript project descriptor.
func (c TypeScriptConfig) Descriptor() *project.Descriptor {
	return project.NewTypeScript(project.TypeScriptOptions{
		Root:         c.Root,
		SharedDir:    c.SharedDir,
		SharedDest:   c.SharedDest,
		Units:        c.Units,
		ExcludeUnits: c.ExcludeUnits,
		CopyFiles:    c.CopyFiles,
		RootFiles:    c.RootFiles,
	})
}

// SharedPath returns the absolute TypeScript shared root.
func (c TypeScriptConfig) SharedPath() string {
	return filepath.Join(c.Root, c.SharedDir)
}

// Descriptor returns the descriptor for eco, or nil when it is disabled.
func (c *Config) Descriptor(eco project.Ecosystem) *project.Descriptor {
	switch eco {
	case project.Go:
		if c.Go.Enabled() {
			return c.Go.Descriptor()
		}
	case project.TypeScript:
		if c.TypeScript.Enabled() {
			return c.TypeScript.Descriptor()
		}
	}
	return nil
}
