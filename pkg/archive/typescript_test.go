package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/prunepack/pkg/archive"
	"github.com/matzehuels/prunepack/pkg/materialize"
	"github.com/matzehuels/prunepack/pkg/project"
	"github.com/matzehuels/prunepack/pkg/registry"
)

var tsProject = map[string]string{
	"package.json":                    `{"dependencies": {"zod": "3"}}`,
	"api/package.json":                `{"name": "api"}`,
	"api/src/index.ts":                "export const handler = 1;\n",
	"api/src/index.test.ts":           "test('x', () => {});\n",
	"api/src/view.spec.tsx":           "test('y', () => {});\n",
	"api/src/.DS_Store":               "\x00",
	"api/node_modules/x/index.js":     "",
	"shared/package.json":             `{"name": "@acme/shared"}`,
	"shared/src/core/core.ts":         "export const core = 1;\n",
	"shared/src/core/core.spec.ts":    "test('z', () => {});\n",
	"shared/src/core/.DS_Store":       "\x00",
	"shared/src/net/net.ts":           "export const net = 1;\n",
	"shared/src/net/net.test.ts":      "test('n', () => {});\n",
	"shared/src/net/dist/net.js":      "",
	"shared/src/extra/extra.ts":       "export const extra = 1;\n",
	"shared/src/extra/extra.test.tsx": "test('e', () => {});\n",
}

func writeProject(t *testing.T, root string) {
	t.Helper()
	for rel, data := range tsProject {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var out []string
	for _, f := range r.File {
		out = append(out, f.Name)
	}
	return out
}

func TestBuildTypeScriptSkipsTestsAndJunk(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root)

	desc := project.NewTypeScript(project.TypeScriptOptions{
		Root:       root,
		SharedDir:  "shared",
		SharedDest: "shared",
		RootFiles:  []string{"package.json"},
	})
	reg, err := registry.New([]registry.Module{
		{ID: "core", Paths: []string{"src/core"}},
		{ID: "net", Paths: []string{"src/net"}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	unit := project.Unit{Name: "api", Dir: filepath.Join(root, "api"), Ecosystem: project.TypeScript}

	tests := []struct {
		name  string
		paths materialize.PathSet
		full  bool
		want  []string
	}{
		{
			name:  "pruned",
			paths: materialize.Materialize([]string{"core", "net"}, reg),
			want:  []string{"api/src/index.ts", "shared/src/core/core.ts", "shared/src/net/net.ts"},
		},
		{
			name: "full tree",
			full: true,
			want: []string{"api/src/index.ts", "shared/src/core/core.ts", "shared/src/net/net.ts", "shared/src/extra/extra.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := desc.Spec(unit, tt.paths, tt.full)
			if err != nil {
				t.Fatal(err)
			}
			art, err := archive.NewBuilder(t.TempDir(), nil).Build(context.Background(), spec)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			got := zipEntries(t, art.Path)
			for _, name := range tt.want {
				if !slices.Contains(got, name) {
					t.Errorf("archive missing %s: %v", name, got)
				}
			}
			for _, name := range got {
				base := filepath.Base(name)
				if slices.Contains(project.ExcludedDirs, base) || base == ".DS_Store" {
					t.Errorf("archive contains excluded %s", name)
				}
				for _, g := range project.TypeScriptTestGlobs {
					if ok, _ := filepath.Match(g, base); ok {
						t.Errorf("archive contains test file %s", name)
					}
				}
			}
			for _, name := range []string{"api/node_modules/x/index.js", "shared/src/net/dist/net.js"} {
				if slices.Contains(got, name) {
					t.Errorf("archive contains %s", name)
				}
			}
		})
	}
}
