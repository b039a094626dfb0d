package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

type stager struct {
	root   string
	spec   Spec
	logger *log.Logger
}

func (s *stager) dest(rel ...string) string {
	parts := append([]string{s.root}, rel...)
	return filepath.Join(parts...)
}

// unit copies the unit's top-level files to Layout.FilesDest and each
// top-level subdirectory to Layout.SubdirsDest.
func (s *stager) unit() error {
	spec := s.spec
	entries, err := os.ReadDir(spec.UnitDir)
	if err != nil {
		return err
	}
	filesDest := s.dest(filepath.FromSlash(spec.Layout.filesDest(spec.Unit)))
	subdirsDest := s.dest(filepath.FromSlash(spec.Layout.subdirsDest(spec.Unit)))

	for _, e := range entries {
		name := e.Name()
		src := filepath.Join(spec.UnitDir, name)
		if spec.Filter.excluded(name) {
			continue
		}
		info, err := os.Stat(src)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := s.copyTree(src, filepath.Join(subdirsDest, name)); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() || spec.Filter.isTest(name) || matchAny(spec.Filter.ExcludeUnitFiles, name) {
			continue
		}
		if len(spec.Layout.FilesGlobs) > 0 && !matchAny(spec.Layout.FilesGlobs, name) {
			continue
		}
		if err := copyFile(src, filepath.Join(filesDest, name)); err != nil {
			return err
		}
	}
	return nil
}

// shared copies either the whole shared tree or the materialized subset plus
// the always-copied root files.
func (s *stager) shared() error {
	spec := s.spec
	if spec.SharedDir == "" {
		return nil
	}
	if _, err := os.Stat(spec.SharedDir); os.IsNotExist(err) {
		s.logger.Debug("shared root missing, skipping", "dir", spec.SharedDir)
		return nil
	}
	base := s.dest(filepath.FromSlash(spec.SharedDest))

	if spec.FullTree {
		return s.copyTree(spec.SharedDir, base)
	}

	entries, err := os.ReadDir(spec.SharedDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !matchAny(spec.RootFiles, name) || spec.Filter.isTest(name) {
			continue
		}
		if err := copyFile(filepath.Join(spec.SharedDir, name), filepath.Join(base, name)); err != nil {
			return err
		}
	}

	for _, dir := range spec.Paths.Dirs() {
		if err := os.MkdirAll(filepath.Join(base, filepath.FromSlash(dir)), 0o755); err != nil {
			return err
		}
	}
	for _, rel := range spec.Paths.Roots() {
		src := filepath.Join(spec.SharedDir, filepath.FromSlash(rel))
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			s.logger.Debug("module path missing, skipping", "path", rel)
			continue
		}
		if err != nil {
			return err
		}
		dst := filepath.Join(base, filepath.FromSlash(rel))
		if info.IsDir() {
			err = s.copyTree(src, dst)
		} else {
			err = copyFile(src, dst)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *stager) copyFiles() error {
	for _, name := range s.spec.CopyFiles {
		src := filepath.Join(s.spec.CopyRoot, filepath.FromSlash(name))
		if _, err := os.Stat(src); os.IsNotExist(err) {
			s.logger.Debug("copy file missing, skipping", "file", name)
			continue
		}
		if err := copyFile(src, s.dest(filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	return nil
}

func (s *stager) generated() error {
	for _, f := range s.spec.Generated {
		dst := s.dest(filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies src into dst recursively in sorted order, applying the
// filter at every level.
func (s *stager) copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if s.spec.Filter.excluded(name) {
			continue
		}
		from := filepath.Join(src, name)
		info, err := os.Stat(from)
		if err != nil {
			return err
		}
		switch {
		case info.IsDir():
			err = s.copyTree(from, filepath.Join(dst, name))
		case info.Mode().IsRegular() && !s.spec.Filter.isTest(name):
			err = copyFile(from, filepath.Join(dst, name))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
