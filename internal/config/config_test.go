package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/project"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg")
	dir := t.TempDir()

	cfg, used, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != "" {
		t.Errorf("used = %q, want no file", used)
	}
	if cfg.OutputDir != DefaultOutputDir || cfg.Workers != DefaultWorkers {
		t.Errorf("OutputDir=%q Workers=%d", cfg.OutputDir, cfg.Workers)
	}
	if cfg.CacheDir != "/xdg/prunepack" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.Go.Lister != extract.DefaultGoLister {
		t.Errorf("Go.Lister = %q", cfg.Go.Lister)
	}
	if !slices.Equal(cfg.Go.CopyFiles, []string{"go.mod", "go.sum"}) {
		t.Errorf("Go.CopyFiles = %v", cfg.Go.CopyFiles)
	}
	if !slices.Equal(cfg.TypeScript.ExcludeUnits, []string{"shared", "admin-cli", "mcp-server", "node_modules"}) {
		t.Errorf("TypeScript.ExcludeUnits = %v", cfg.TypeScript.ExcludeUnits)
	}
	if len(cfg.Ecosystems()) != 0 {
		t.Errorf("Ecosystems = %v, want none enabled", cfg.Ecosystems())
	}
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "prunepack.yaml",
			content: `workers: 3
go:
  root: server/go
  units: [api, worker]
typescript:
  root: server/ts
  registry: scripts/shared_modules.json
  barrel: "@acme/shared"
  symbol_refinement: true
`,
		},
		{
			name: "toml",
			file: "prunepack.toml",
			content: `workers = 3

[go]
root = "server/go"
units = ["api", "worker"]

[typescript]
root = "server/ts"
registry = "scripts/shared_modules.json"
barrel = "@acme/shared"
symbol_refinement = true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, tt.file), tt.content)

			cfg, used, err := Load("", dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if filepath.Base(used) != tt.file {
				t.Errorf("used = %q", used)
			}
			if cfg.Workers != 3 {
				t.Errorf("Workers = %d", cfg.Workers)
			}
			if want := filepath.Join(dir, "server/go"); cfg.Go.Root != want {
				t.Errorf("Go.Root = %q, want %q", cfg.Go.Root, want)
			}
			if want := filepath.Join(dir, "scripts/shared_modules.json"); cfg.TypeScript.Registry != want {
				t.Errorf("TypeScript.Registry = %q, want %q", cfg.TypeScript.Registry, want)
			}
			if !slices.Equal(cfg.Go.Units, []string{"api", "worker"}) {
				t.Errorf("Go.Units = %v", cfg.Go.Units)
			}
			if cfg.Go.UnitsDir != "functions" {
				t.Errorf("Go.UnitsDir = %q, want default", cfg.Go.UnitsDir)
			}
			if !cfg.TypeScript.SymbolRefinement {
				t.Error("SymbolRefinement = false")
			}
			if want := []project.Ecosystem{project.Go, project.TypeScript}; !slices.Equal(cfg.Ecosystems(), want) {
				t.Errorf("Ecosystems = %v", cfg.Ecosystems())
			}
		})
	}
}

func TestLoadListerFollowsUnitsDir(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "derived",
			content: "go:\n  units_dir: cmd/lambdas\n",
			want:    "go list -f '{{.ImportPath}}' -deps ./cmd/lambdas/{unit}/...",
		},
		{
			name:    "explicit",
			content: "go:\n  units_dir: cmd/lambdas\n  lister: ./scripts/deps.sh {unit}\n",
			want:    "./scripts/deps.sh {unit}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "prunepack.yaml"), tt.content)
			cfg, _, err := Load("", dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Go.Lister != tt.want {
				t.Errorf("Go.Lister = %q, want %q", cfg.Go.Lister, tt.want)
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "prunepack.yaml"), "workers: 3\noutput_dir: /out\n")
	t.Setenv("PRUNEPACK_WORKERS", "12")
	t.Setenv("PRUNEPACK_GO_ROOT", "/abs/go")

	cfg, _, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 12 {
		t.Errorf("Workers = %d, want env override 12", cfg.Workers)
	}
	if cfg.OutputDir != "/out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Go.Root != "/abs/go" {
		t.Errorf("Go.Root = %q", cfg.Go.Root)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "workers: [1, 2\n")
	zero := filepath.Join(dir, "zero.yaml")
	writeFile(t, zero, "workers: 0\n")
	noRegistry := filepath.Join(dir, "ts.yaml")
	writeFile(t, noRegistry, "typescript:\n  root: ts\n  barrel: \"@a/b\"\n")
	badUnit := filepath.Join(dir, "unit.yaml")
	writeFile(t, badUnit, "go:\n  root: go\n  units: [\"../escape\"]\n")

	for name, path := range map[string]string{
		"missing":     filepath.Join(dir, "nope.yaml"),
		"malformed":   bad,
		"zero":        zero,
		"no registry": noRegistry,
		"bad unit":    badUnit,
	} {
		_, _, err := Load(path, dir)
		if !errors.Is(err, errors.ErrCodeConfigLoad) {
			t.Errorf("%s: err = %v, want CONFIG_LOAD_FAILURE", name, err)
		}
	}
}

func TestGoModulePrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module github.com/acme/server\n\ngo 1.24\n")

	c := GoConfig{Root: dir, SharedDir: "pkg"}
	got, err := c.GoModulePrefix()
	if err != nil {
		t.Fatalf("GoModulePrefix: %v", err)
	}
	if got != "github.com/acme/server/pkg" {
		t.Errorf("GoModulePrefix = %q", got)
	}

	c.ModulePrefix = "example.com/x/shared/"
	if got, _ := c.GoModulePrefix(); got != "example.com/x/shared" {
		t.Errorf("explicit GoModulePrefix = %q", got)
	}

	if _, err := (GoConfig{Root: t.TempDir()}).GoModulePrefix(); !errors.Is(err, errors.ErrCodeConfigLoad) {
		t.Errorf("missing go.mod err = %v", err)
	}
}

func TestDescriptor(t *testing.T) {
	cfg := &Config{
		Go:         GoConfig{Root: "/r/go", UnitsDir: "functions", SharedDir: "pkg", SharedDest: "pkg"},
		TypeScript: TypeScriptConfig{},
	}
	d := cfg.Descriptor(project.Go)
	if d == nil || d.Ecosystem != project.Go {
		t.Fatalf("Descriptor(go) = %+v", d)
	}
	if d.UnitsDir != filepath.Join("/r/go", "functions") || d.SharedDir != filepath.Join("/r/go", "pkg") {
		t.Errorf("UnitsDir=%q SharedDir=%q", d.UnitsDir, d.SharedDir)
	}
	if cfg.Descriptor(project.TypeScript) != nil {
		t.Error("disabled ecosystem returned a descriptor")
	}
}
