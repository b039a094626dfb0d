package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/prunepack/pkg/cache"
	perrors "github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/project"
)

const goListOutput = `context
fmt
github.com/acme/app/pkg
github.com/acme/app/pkg/types
github.com/acme/app/pkg/infrastructure/pubsub
github.com/acme/app/pkg/types
github.com/acme/app/pkgextra/nope
github.com/acme/app/functions/api
cloud.google.com/go/pubsub
`

func TestListerExtractor(t *testing.T) {
	var gotDir string
	var gotArgv []string
	e := NewListerExtractor("/repo/src/go", "", "github.com/acme/app/pkg/", nil)
	e.Run = func(ctx context.Context, dir string, argv []string) ([]byte, error) {
		gotDir, gotArgv = dir, argv
		return []byte(goListOutput), nil
	}

	refs, err := e.Extract(context.Background(), project.Unit{Name: "api"})
	require.NoError(t, err)

	assert.Equal(t, "/repo/src/go", gotDir)
	assert.Equal(t, []string{"go", "list", "-f", "{{.ImportPath}}", "-deps", "./functions/api/..."}, gotArgv)
	assert.Equal(t, []string{"infrastructure/pubsub", "types"}, refs.Exact)
	assert.Empty(t, refs.Deep)
	assert.False(t, refs.Failed)
}

func TestListerExtractorFailure(t *testing.T) {
	e := NewListerExtractor(".", "go list ./functions/{unit}/...", "github.com/acme/app/pkg", nil)
	e.Run = func(context.Context, string, []string) ([]byte, error) {
		return nil, errors.New("exit status 1: package not found")
	}

	refs, err := e.Extract(context.Background(), project.Unit{Name: "api"})
	assert.Nil(t, refs)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrCodeExtraction))
	assert.Contains(t, err.Error(), "package not found")
}

func TestListerExtractorRequiresPrefix(t *testing.T) {
	e := NewListerExtractor(".", "", "", nil)
	_, err := e.Extract(context.Background(), project.Unit{Name: "api"})
	assert.True(t, perrors.Is(err, perrors.ErrCodeExtraction))
}

func TestListerExtractorBadQuoting(t *testing.T) {
	e := NewListerExtractor(".", "go list 'unterminated", "x", nil)
	e.Run = func(context.Context, string, []string) ([]byte, error) {
		t.Fatal("lister ran despite a malformed command")
		return nil, nil
	}
	_, err := e.Extract(context.Background(), project.Unit{Name: "api"})
	assert.True(t, perrors.Is(err, perrors.ErrCodeExtraction))
}

func TestGoLister(t *testing.T) {
	assert.Equal(t, DefaultGoLister, GoLister("functions"))
	assert.Equal(t, "go list -f '{{.ImportPath}}' -deps ./cmd/lambdas/{unit}/...", GoLister("cmd/lambdas/"))
}

func TestFilterPrefix(t *testing.T) {
	got := FilterPrefix([]byte("a/b\r\na/b/c\n  a/b/d  \nab/c\n"), "a/b")
	assert.Equal(t, []string{"c", "d"}, got)
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		clause string
		want   []string
	}{
		{"A, B", []string{"A", "B"}},
		{" A as X , B ", []string{"A", "B"}},
		{"type D, E as F,", []string{"D", "E"}},
		{"\n  Logger,\n  Client as C\n", []string{"Logger", "Client"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSymbols(tt.clause), tt.clause)
	}
}

func TestPatternExtractorScan(t *testing.T) {
	e := NewPatternExtractor("@acme/shared", nil, nil)

	tests := []struct {
		name string
		src  string
		want References
	}{
		{
			name: "deep import",
			src:  `import { UserRecord } from '@acme/shared/dist/types/pb/user';`,
			want: References{Deep: []string{"@acme/shared/dist/types/pb/user"}},
		},
		{
			name: "named barrel import with alias",
			src:  "import { Logger, Client as HttpClient } from \"@acme/shared\";\n",
			want: References{Symbols: []string{"Client", "Logger"}},
		},
		{
			name: "type-only barrel import",
			src:  `import type { Config } from '@acme/shared';`,
			want: References{Symbols: []string{"Config"}},
		},
		{
			name: "namespace import",
			src:  `import * as shared from '@acme/shared';`,
			want: References{WholeBarrel: true},
		},
		{
			name: "re-export",
			src:  `export { db } from '@acme/shared/dist/infra/db';`,
			want: References{Deep: []string{"@acme/shared/dist/infra/db"}},
		},
		{
			name: "unrelated package",
			src:  `import { x } from '@acme/shared-utils'; import * as y from '@other/shared';`,
			want: References{},
		},
		{
			name: "multi-line named import",
			src:  "import {\n  A,\n  B as C,\n} from '@acme/shared';\n",
			want: References{Symbols: []string{"A", "B"}},
		},
		{
			name: "default and named import",
			src:  `import Shared, { Foo } from '@acme/shared';`,
			want: References{Symbols: []string{"Foo"}, WholeBarrel: true},
		},
		{
			name: "default import",
			src:  `import Shared from '@acme/shared';`,
			want: References{WholeBarrel: true},
		},
		{
			name: "named re-export of the barrel",
			src:  `export { Foo, Bar as Baz } from '@acme/shared';`,
			want: References{Symbols: []string{"Bar", "Foo"}},
		},
		{
			name: "star re-export of the barrel",
			src:  `export * from '@acme/shared';`,
			want: References{WholeBarrel: true},
		},
		{
			name: "namespace re-export of the barrel",
			src:  `export * as shared from '@acme/shared';`,
			want: References{WholeBarrel: true},
		},
		{
			name: "side-effect import",
			src:  `import '@acme/shared';`,
			want: References{WholeBarrel: true},
		},
		{
			name: "require call",
			src:  `const shared = require('@acme/shared');`,
			want: References{WholeBarrel: true},
		},
		{
			name: "import equals require",
			src:  `import shared = require('@acme/shared');`,
			want: References{WholeBarrel: true},
		},
		{
			name: "dynamic deep import",
			src:  "export async function load() {\n  return import('@acme/shared/dist/infra/db');\n}\n",
			want: References{Deep: []string{"@acme/shared/dist/infra/db"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Scan(context.Background(), []byte(tt.src), false)
			assert.Equal(t, tt.want.Deep, got.Deep)
			assert.Equal(t, tt.want.Symbols, got.Symbols)
			assert.Equal(t, tt.want.WholeBarrel, got.WholeBarrel)
		})
	}
}

func TestPatternExtractorIgnoresComments(t *testing.T) {
	e := NewPatternExtractor("@acme/shared", nil, nil)
	src := `// import * as shared from '@acme/shared';
/* import { Old } from '@acme/shared/dist/legacy'; */
import { Current } from '@acme/shared';

export function handler(): string {
  return "import * as s from '@acme/shared'";
}
`
	got := e.Scan(context.Background(), []byte(src), false)
	assert.False(t, got.WholeBarrel)
	assert.Empty(t, got.Deep)
	assert.Equal(t, []string{"Current"}, got.Symbols)
}

func TestReferencesEmpty(t *testing.T) {
	e := NewPatternExtractor("@acme/shared", nil, nil)
	got := e.Scan(context.Background(), []byte("import { z } from 'zod';\nexport const handler = () => z;\n"), false)
	assert.True(t, got.Empty())

	assert.False(t, (&References{Exact: []string{"lib/core"}}).Empty())
	assert.False(t, (&References{Symbols: []string{"Foo"}}).Empty())
	assert.False(t, Failure(errors.New("boom")).Empty())
}

func TestPatternExtractorScanUnparsable(t *testing.T) {
	e := NewPatternExtractor("@acme/shared", nil, nil)
	src := `import Shared, { Foo } from '@acme/shared';
export { Bar } from '@acme/shared';
import { A } from '@acme/shared/dist/a';
const broken = ;
`
	got := e.Scan(context.Background(), []byte(src), false)
	assert.Equal(t, []string{"Bar", "Foo"}, got.Symbols)
	assert.Equal(t, []string{"@acme/shared/dist/a"}, got.Deep)
	assert.True(t, got.WholeBarrel)

	got = e.Scan(context.Background(), []byte("export * from '@acme/shared'\nconst = ;\n"), false)
	assert.True(t, got.WholeBarrel)
	assert.Empty(t, got.Symbols)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestPatternExtractorWalk(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"src/index.ts":            `import { A } from '@acme/shared';`,
		"src/views/page.tsx":      `import { B } from '@acme/shared/dist/ui'; export const P = () => <div/>;`,
		"src/worker.mts":          `import { C } from '@acme/shared';`,
		"src/legacy.cts":          `import * as s from '@acme/shared';`,
		"src/readme.md":           `import { Z } from '@acme/shared';`,
		"src/index.test.ts":       `import { T } from '@acme/shared';`,
		"node_modules/x/index.ts": `import { N } from '@acme/shared';`,
		"build/index.ts":          `import { Built } from '@acme/shared';`,
		"coverage/lcov/report.ts": `import { Cov } from '@acme/shared';`,
		"generated/schema.ts":     `import { Gen } from '@acme/shared';`,
	})

	e := NewPatternExtractor("@acme/shared", []string{"generated"}, nil)
	refs, err := e.Extract(context.Background(), project.Unit{Name: "web", Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C"}, refs.Symbols)
	assert.Equal(t, []string{"@acme/shared/dist/ui"}, refs.Deep)
	assert.True(t, refs.WholeBarrel)
	assert.True(t, refs.UsesBarrel())
}

func TestPatternExtractorMissingDir(t *testing.T) {
	e := NewPatternExtractor("@acme/shared", nil, nil)
	_, err := e.Extract(context.Background(), project.Unit{Name: "x", Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

type countingExtractor struct {
	calls int
	refs  *References
	err   error
}

func (c *countingExtractor) Extract(context.Context, project.Unit) (*References, error) {
	c.calls++
	return c.refs, c.err
}

func (c *countingExtractor) Fingerprint() string { return "counting" }

func TestCachedExtractor(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"functions/api/function.go": "package api\n",
		"pkg/types/types.go":        "package types\n",
	})
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	inner := &countingExtractor{refs: &References{Exact: []string{"types"}}}
	e := NewCachedExtractor(inner, c, filepath.Join(root, "pkg"), nil)
	unit := project.Unit{Name: "api", Ecosystem: project.Go, Dir: filepath.Join(root, "functions", "api")}
	ctx := context.Background()

	first, err := e.Extract(ctx, unit)
	require.NoError(t, err)
	second, err := e.Extract(ctx, unit)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "second extraction should be served from cache")
	assert.Equal(t, first.Exact, second.Exact)

	writeFiles(t, root, map[string]string{"pkg/types/types.go": "package types\n\nconst X = 1\n"})
	_, err = e.Extract(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "shared change should invalidate the entry")
}

func TestCachedExtractorExcludeDirsChangeKey(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"web/src/index.ts":         `import { A } from '@acme/shared';`,
		"web/generated/schema.ts":  `import { S } from '@acme/shared/dist/schema';`,
		"shared/src/core/index.ts": "export const A = 1;\n",
	})
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	unit := project.Unit{Name: "web", Ecosystem: project.TypeScript, Dir: filepath.Join(root, "web")}
	shared := filepath.Join(root, "shared")
	ctx := context.Background()

	narrow := NewPatternExtractor("@acme/shared", []string{"generated"}, nil)
	wide := NewPatternExtractor("@acme/shared", nil, nil)
	assert.NotEqual(t, narrow.Fingerprint(), wide.Fingerprint())
	assert.Equal(t, narrow.Fingerprint(), NewPatternExtractor("@acme/shared", []string{"generated", "generated"}, nil).Fingerprint())

	got, err := NewCachedExtractor(narrow, c, shared, nil).Extract(ctx, unit)
	require.NoError(t, err)
	assert.Empty(t, got.Deep)

	got, err = NewCachedExtractor(wide, c, shared, nil).Extract(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, []string{"@acme/shared/dist/schema"}, got.Deep)
}

func TestCachedExtractorSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	inner := &countingExtractor{err: perrors.New(perrors.ErrCodeExtraction, "boom")}
	e := NewCachedExtractor(inner, c, dir, nil)
	unit := project.Unit{Name: "api", Dir: dir}

	for range 2 {
		_, err := e.Extract(context.Background(), unit)
		assert.True(t, perrors.Is(err, perrors.ErrCodeExtraction))
	}
	assert.Equal(t, 2, inner.calls, "failures must not be cached")
}
