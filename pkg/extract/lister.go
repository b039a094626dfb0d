package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/project"
)

// DefaultGoLister lists every package a Go unit under functions/
// transitively imports.
const DefaultGoLister = "go list -f '{{.ImportPath}}' -deps ./functions/{unit}/..."

// GoLister returns the default lister for units living under unitsDir,
// relative to the module root.
func GoLister(unitsDir string) string {
	dir := path.Clean(filepath.ToSlash(unitsDir))
	return "go list -f '{{.ImportPath}}' -deps ./" + dir + "/{unit}/..."
}

// RunFunc executes argv in dir and returns its standard output.
type RunFunc func(ctx context.Context, dir string, argv []string) ([]byte, error)

// ListerExtractor runs an external dependency lister and keeps the lines that
// name packages below the shared module prefix.
type ListerExtractor struct {
	// Dir is the working directory of the lister.
	Dir string
	// Command is split with shell quoting rules; {unit} is replaced by the
	// unit name.
	Command string
	// Prefix is the import path of the shared root, e.g.
	// "github.com/acme/app/pkg".
	Prefix string
	Logger *log.Logger

	// Run overrides command execution. Nil uses os/exec.
	Run RunFunc
}

// NewListerExtractor creates a lister-backed extractor.
func NewListerExtractor(dir, command, prefix string, logger *log.Logger) *ListerExtractor {
	if command == "" {
		command = DefaultGoLister
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ListerExtractor{Dir: dir, Command: command, Prefix: strings.TrimSuffix(prefix, "/"), Logger: logger}
}

// Fingerprint identifies the lister configuration.
func (e *ListerExtractor) Fingerprint() string {
	return "lister:" + e.Command + "|" + e.Prefix
}

// Extract runs the lister for unit. A failing command returns an
// EXTRACTION_FAILED error carrying the command's stderr.
func (e *ListerExtractor) Extract(ctx context.Context, unit project.Unit) (*References, error) {
	if e.Prefix == "" {
		return nil, errors.New(errors.ErrCodeExtraction, "no module prefix configured")
	}
	argv, err := e.argv(unit.Name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "parse lister command")
	}

	run := e.Run
	if run == nil {
		run = execRun
	}
	e.Logger.Debug("running lister", "unit", unit.Name, "argv", argv)
	out, err := run(ctx, e.Dir, argv)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "lister failed for %s", unit.Name)
	}

	refs := &References{Exact: FilterPrefix(out, e.Prefix)}
	refs.normalize()
	return refs, nil
}

func (e *ListerExtractor) argv(unit string) ([]string, error) {
	cmd := strings.ReplaceAll(e.Command, "{unit}", unit)
	argv, err := shell.Fields(cmd, os.Getenv)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty lister command")
	}
	return argv, nil
}

// FilterPrefix keeps the lines of out that name prefix or a path below it and
// returns them relative to prefix. The prefix itself is dropped.
func FilterPrefix(out []byte, prefix string) []string {
	var refs []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rel, ok := strings.CutPrefix(line, prefix+"/")
		if !ok || rel == "" {
			continue
		}
		refs = append(refs, rel)
	}
	return refs
}

func execRun(ctx context.Context, dir string, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
