package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/prunepack/pkg/archive"
)

// DefaultOutDir is the compiled output directory assumed when a unit's
// tsconfig.json does not set compilerOptions.outDir.
const DefaultOutDir = "build"

// rootManifest is the subset of the root package.json copied into each
// archive manifest. Raw messages keep the original key order.
type rootManifest struct {
	DevDependencies json.RawMessage `json:"devDependencies"`
	Dependencies    json.RawMessage `json:"dependencies"`
	Overrides       json.RawMessage `json:"overrides"`
}

type manifestScripts struct {
	Build    string `json:"build"`
	GCPBuild string `json:"gcp-build"`
}

// unitManifest is the package.json written to the archive root. Field order
// is the serialized key order.
type unitManifest struct {
	Private         bool            `json:"private"`
	Main            string          `json:"main"`
	Workspaces      []string        `json:"workspaces"`
	Scripts         manifestScripts `json:"scripts"`
	DevDependencies json.RawMessage `json:"devDependencies"`
	Dependencies    json.RawMessage `json:"dependencies"`
	Overrides       json.RawMessage `json:"overrides"`
}

// Manifest builds the archive package.json for unit: a private workspace
// root containing only the shared workspace and the unit, whose build script
// compiles the shared workspace before the unit. Dependency maps are copied
// from the repository's root package.json.
func Manifest(rootPackageJSON []byte, unit, sharedDest, sharedWorkspace string) ([]byte, error) {
	var root rootManifest
	if len(bytes.TrimSpace(rootPackageJSON)) > 0 {
		if err := json.Unmarshal(rootPackageJSON, &root); err != nil {
			return nil, fmt.Errorf("parse root package.json: %w", err)
		}
	}

	m := unitManifest{
		Private:    true,
		Main:       "index.js",
		Workspaces: []string{sharedDest, unit},
		Scripts: manifestScripts{
			Build:    "npm run build --workspace=" + sharedWorkspace + " && npm run build --workspace=" + unit,
			GCPBuild: "npm run build",
		},
		DevDependencies: orEmpty(root.DevDependencies),
		Dependencies:    orEmpty(root.Dependencies),
		Overrides:       orEmpty(root.Overrides),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	return raw
}

// EntryPoint returns the index.js that forwards to the unit's compiled entry.
func EntryPoint(unit, outDir string) []byte {
	return fmt.Appendf(nil, "// Auto-generated entry point for %s\nconst handler = require('./%s/%s/index');\nmodule.exports = handler;\n", unit, unit, outDir)
}

// OutDir reads compilerOptions.outDir from a tsconfig.json, normalized
// without "./" and surrounding slashes. A missing or unreadable file, or an
// unset option, yields [DefaultOutDir].
func OutDir(tsconfigPath string) string {
	data, err := os.ReadFile(tsconfigPath)
	if err != nil {
		return DefaultOutDir
	}
	var cfg struct {
		CompilerOptions struct {
			OutDir string `json:"outDir"`
		} `json:"compilerOptions"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.CompilerOptions.OutDir == "" {
		return DefaultOutDir
	}
	out := strings.Trim(strings.ReplaceAll(cfg.CompilerOptions.OutDir, "./", ""), "/")
	if out == "" {
		return DefaultOutDir
	}
	return out
}

// WorkspaceName returns the "name" field of dir/package.json, or fallback.
func WorkspaceName(dir, fallback string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return fallback
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(data, &pkg) != nil || pkg.Name == "" {
		return fallback
	}
	return pkg.Name
}

// TypeScriptGenerator returns the generator for TypeScript archives: the
// package.json manifest and the index.js entry point.
func TypeScriptGenerator(root, sharedDir, sharedDest string) Generator {
	return func(u Unit) ([]archive.File, error) {
		rootPkg, err := os.ReadFile(filepath.Join(root, "package.json"))
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		manifest, err := Manifest(rootPkg, u.Name, sharedDest, WorkspaceName(sharedDir, sharedDest))
		if err != nil {
			return nil, err
		}
		outDir := OutDir(filepath.Join(u.Dir, "tsconfig.json"))
		return []archive.File{
			{Name: "index.js", Data: EntryPoint(u.Name, outDir)},
			{Name: "package.json", Data: manifest},
		}, nil
	}
}
