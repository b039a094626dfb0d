package registry

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/prunepack/pkg/errors"
)

const jsonRegistry = `{
  "barrel": "@acme/shared",
  "modules": {
    "core": {"paths": ["src/core"]},
    "net":  {"paths": ["src/net", "src/net.ts"], "depends_on": ["core"]},
    "log":  {"paths": ["src/log"], "always_include": true}
  },
  "import_patterns": {
    "@acme/shared": ["core", "net", "log"],
    "@acme/shared/net": "net",
    "@acme/shared/net/http": ["net", "core"]
  },
  "symbols": {"Client": "net"}
}`

const yamlRegistry = `
barrel: "@acme/shared"
modules:
  core:
    paths: [src/core]
  net:
    paths: [src/net, src/net.ts]
    depends_on: [core]
  log:
    paths: [src/log]
    always_include: true
import_patterns:
  "@acme/shared": [core, net, log]
  "@acme/shared/net": net
  "@acme/shared/net/http": [net, core]
symbols:
  Client: net
`

const tomlRegistry = `
barrel = "@acme/shared"

[modules.core]
paths = ["src/core"]

[modules.net]
paths = ["src/net", "src/net.ts"]
depends_on = ["core"]

[modules.log]
paths = ["src/log"]
always_include = true

[import_patterns]
"@acme/shared" = ["core", "net", "log"]
"@acme/shared/net" = "net"
"@acme/shared/net/http" = ["net", "core"]

[symbols]
Client = "net"
`

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		file string
		data string
	}{
		{"registry.json", jsonRegistry},
		{"registry.yaml", yamlRegistry},
		{"registry.yml", yamlRegistry},
		{"registry.toml", tomlRegistry},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}

			reg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if got := reg.IDs(); !slices.Equal(got, []string{"core", "log", "net"}) {
				t.Errorf("IDs() = %v, want [core log net]", got)
			}
			if got := reg.AlwaysInclude(); !slices.Equal(got, []string{"log"}) {
				t.Errorf("AlwaysInclude() = %v, want [log]", got)
			}
			net, ok := reg.Module("net")
			if !ok || !slices.Equal(net.DependsOn, []string{"core"}) {
				t.Errorf("Module(net) = %+v, %v", net, ok)
			}
			if reg.Barrel() != "@acme/shared" {
				t.Errorf("Barrel() = %q, want @acme/shared", reg.Barrel())
			}
			if got := reg.BarrelModules(); !slices.Equal(got, []string{"core", "log", "net"}) {
				t.Errorf("BarrelModules() = %v", got)
			}
			if owner, ok := reg.SymbolOwner("Client"); !ok || owner != "net" {
				t.Errorf("SymbolOwner(Client) = %q, %v", owner, ok)
			}

			p, ok := reg.Match("@acme/shared/net")
			if !ok || !slices.Equal(p.Targets, []string{"net"}) {
				t.Errorf("Match(@acme/shared/net) = %+v, %v; want single-string target", p, ok)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	if !errors.Is(err, errors.ErrCodeConfigLoad) {
		t.Errorf("Load(missing) code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfigLoad)
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{"modules": [`), 0o644)
	_, err = Load(bad)
	if !errors.Is(err, errors.ErrCodeConfigLoad) {
		t.Errorf("Load(malformed) code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfigLoad)
	}

	empty := filepath.Join(dir, "empty.yaml")
	_ = os.WriteFile(empty, []byte("import_patterns: {}\n"), 0o644)
	_, err = Load(empty)
	if !errors.Is(err, errors.ErrCodeConfigLoad) {
		t.Errorf("Load(no modules) code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfigLoad)
	}
}

func TestPatternsLongestFirst(t *testing.T) {
	reg, err := New(nil, []Pattern{
		{Prefix: "@x/shared", Targets: []string{"all"}},
		{Prefix: "@x/shared/infra/db", Targets: []string{"db"}},
		{Prefix: "@x/shared/infra", Targets: []string{"infra"}},
		{Prefix: "@x/shared/abcde", Targets: []string{"abc"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, p := range reg.Patterns() {
		got = append(got, p.Prefix)
	}
	want := []string{"@x/shared/infra/db", "@x/shared/abcde", "@x/shared/infra", "@x/shared"}
	if !slices.Equal(got, want) {
		t.Errorf("Patterns() = %v, want %v", got, want)
	}

	tests := []struct {
		ref  string
		want string
	}{
		{"@x/shared/infra/db/pool", "@x/shared/infra/db"},
		{"@x/shared/infra/cache", "@x/shared/infra"},
		{"@x/shared/types", "@x/shared"},
	}
	for _, tt := range tests {
		p, ok := reg.Match(tt.ref)
		if !ok || p.Prefix != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.ref, p.Prefix, tt.want)
		}
	}
	if _, ok := reg.Match("@other/pkg"); ok {
		t.Error("Match(@other/pkg) matched, want no match")
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Module{{ID: "a"}, {ID: "a"}}, nil)
	if !errors.Is(err, errors.ErrCodeConfigLoad) {
		t.Errorf("New(dup) = %v, want %v", err, errors.ErrCodeConfigLoad)
	}
}

func TestGraphOmitsDanglingEdges(t *testing.T) {
	reg, err := New([]Module{
		{ID: "a", DependsOn: []string{"b", "ghost"}},
		{ID: "b"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	g := reg.Graph()
	if len(g.Edges()) != 1 || !slices.Equal(g.Children("a"), []string{"b"}) {
		t.Errorf("Graph edges = %v, want only a -> b", g.Edges())
	}
	m, _ := reg.Module("a")
	if !slices.Contains(m.DependsOn, "ghost") {
		t.Error("Module(a).DependsOn lost the dangling id")
	}
}

func TestBarrelModulesWithoutPattern(t *testing.T) {
	reg, _ := New([]Module{{ID: "b"}, {ID: "a"}}, nil, WithBarrel("@x/shared"))
	if got := reg.BarrelModules(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("BarrelModules() = %v, want every module", got)
	}
}

func TestModuleForPath(t *testing.T) {
	reg, _ := New([]Module{
		{ID: "z", Paths: []string{"lib/shared"}},
		{ID: "a", Paths: []string{"lib/shared", "lib/a"}},
	}, nil)
	if id, ok := reg.ModuleForPath("lib/shared"); !ok || id != "a" {
		t.Errorf("ModuleForPath(lib/shared) = %q, %v; want a", id, ok)
	}
	if _, ok := reg.ModuleForPath("lib"); ok {
		t.Error("ModuleForPath(lib) matched an ancestor, want exact match only")
	}
}

func TestFromPackageTree(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		t.Helper()
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("package x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("doc.go")
	write("root_test.go")
	write("types/pubsub.go")
	write("infra/db/db.go")
	write("infra/readme.md")
	write("onlytests/x_test.go")
	write("testdata/fixture.go")
	write(".hidden/h.go")

	reg, err := FromPackageTree(root, ".go")
	if err != nil {
		t.Fatalf("FromPackageTree() error = %v", err)
	}

	want := []string{".", "infra/db", "types"}
	if got := reg.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	rootMod, _ := reg.Module(RootModuleID)
	if !rootMod.AlwaysInclude || !slices.Equal(rootMod.Paths, []string{"doc.go"}) {
		t.Errorf("root module = %+v, want always-included [doc.go]", rootMod)
	}
	if id, ok := reg.ModuleForPath("infra/db"); !ok || id != "infra/db" {
		t.Errorf("ModuleForPath(infra/db) = %q, %v", id, ok)
	}
}
