// Package archive stages a unit's files and writes them as a byte-reproducible
// zip archive.
//
// Staging happens in a uniquely named directory so concurrent builds never
// share state. The staging tree is then serialized by [Writer] with every
// source of nondeterminism removed: entries are added in sorted walk order,
// and each carries the same timestamp ([Epoch]), permission bits ([Mode]) and
// compression method.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/prunepack/pkg/errors"
)

// Artifact describes a written archive.
type Artifact struct {
	Unit     string
	Path     string
	Entries  int
	Size     int64
	SHA256   string
	Duration time.Duration
}

// Builder stages and writes unit archives. A Builder is safe for concurrent
// use; each Build call works in its own staging directory.
type Builder struct {
	OutputDir  string
	StagingDir string
	Logger     *log.Logger
}

// NewBuilder creates a builder that writes <unit>.zip files to outputDir.
// Staging directories are created under the system temp directory.
func NewBuilder(outputDir string, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{OutputDir: outputDir, Logger: logger}
}

// Build stages the spec and writes <OutputDir>/<unit>.zip. Any filesystem
// failure is returned as STAGING_IO_FAILURE; the staging directory is always
// removed.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Artifact, error) {
	start := time.Now()
	if err := errors.ValidateUnitName(spec.Unit); err != nil {
		return nil, err
	}

	stagingRoot := b.StagingDir
	if stagingRoot == "" {
		stagingRoot = os.TempDir()
	}
	staging := filepath.Join(stagingRoot, spec.Unit+"-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStagingIO, err, "create staging directory")
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			b.Logger.Warn("failed to remove staging directory", "dir", staging, "error", err)
		}
	}()

	s := &stager{root: staging, spec: spec, logger: b.Logger}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"stage unit", s.unit},
		{"stage shared", s.shared},
		{"stage copy files", s.copyFiles},
		{"stage generated files", s.generated},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.fn(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStagingIO, err, "%s %s", step.name, spec.Unit)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	art, err := b.write(spec.Unit, staging)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStagingIO, err, "write archive %s", spec.Unit)
	}
	art.Duration = time.Since(start)
	return art, nil
}

// write serializes the staging tree into a temporary file next to the final
// archive and renames it into place, so readers never see a partial zip.
func (b *Builder) write(unit, staging string) (*Artifact, error) {
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(b.OutputDir, "."+unit+"-*.zip.tmp")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, h)}
	zw := NewWriter(counter)
	if err := zw.AddDir(staging); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	dest := filepath.Join(b.OutputDir, unit+".zip")
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, err
	}
	return &Artifact{
		Unit:    unit,
		Path:    dest,
		Entries: zw.Count(),
		Size:    counter.n,
		SHA256:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
