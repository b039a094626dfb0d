package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	c := Disabled()
	defer c.Close()

	key := NewDefaultKeyer().ExtractionKey("go", "api", "lister:go list", "digest")
	if err := c.Set(ctx, key, []byte("refs"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Errorf("Get = %q, %v after Set, want a miss", data, hit)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	key1 := k.ExtractionKey("go", "api", "lister:go list", "abc")
	key2 := k.ExtractionKey("go", "api", "lister:go list", "abc")
	if key1 != key2 {
		t.Error("ExtractionKey should be deterministic")
	}
	if !strings.HasPrefix(key1, "extract:") {
		t.Errorf("ExtractionKey = %q, want extract: prefix", key1)
	}

	variants := []string{
		k.ExtractionKey("typescript", "api", "lister:go list", "abc"),
		k.ExtractionKey("go", "web", "lister:go list", "abc"),
		k.ExtractionKey("go", "api", "pattern:@acme/shared", "abc"),
		k.ExtractionKey("go", "api", "lister:go list", "def"),
	}
	for i, v := range variants {
		if v == key1 {
			t.Errorf("variant %d produced the same key", i)
		}
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "v2:")

	want := "v2:" + inner.ExtractionKey("go", "api", "f", "d")
	if got := scoped.ExtractionKey("go", "api", "f", "d"); got != want {
		t.Errorf("ExtractionKey = %q, want %q", got, want)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	k := NewScopedKeyer(nil, "p:")
	if got := k.ExtractionKey("go", "api", "f", "d"); !strings.HasPrefix(got, "p:extract:") {
		t.Errorf("ExtractionKey = %q, want p:extract: prefix", got)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get(missing) hit")
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get(k) = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "expired", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "expired"); hit {
		t.Error("Get(expired) hit after ttl")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get(k) hit after Delete")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}

	n, err := c.(*FileCache).Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache dir not empty after Clear: %v", entries)
	}

	if n, err := ClearDir(filepath.Join(dir, "missing")); n != 0 || err != nil {
		t.Errorf("ClearDir(missing) = %d, %v", n, err)
	}
}

func TestHashTree(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		_ = os.MkdirAll(filepath.Dir(p), 0o755)
		_ = os.WriteFile(p, []byte(content), 0o644)
	}
	write("a.ts", "a")
	write("src/b.ts", "b")
	write("node_modules/x.js", "x")

	skip := func(name string) bool { return name == "node_modules" }
	h1, err := HashTree(skip, root)
	if err != nil {
		t.Fatal(err)
	}

	write("node_modules/y.js", "y")
	if h2, _ := HashTree(skip, root); h2 != h1 {
		t.Error("skipped directory changed the digest")
	}

	write("src/b.ts", "b2")
	if h3, _ := HashTree(skip, root); h3 == h1 {
		t.Error("content change did not change the digest")
	}

	if _, err := HashTree(skip, filepath.Join(root, "missing")); err != nil {
		t.Errorf("HashTree(missing) error = %v", err)
	}
}
