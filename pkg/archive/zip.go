package archive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
)

// Fixed entry metadata. Every archive entry carries the same timestamp and
// permission bits so identical inputs hash identically on every machine.
var (
	// Epoch is the modification time written for every entry (the earliest
	// time a zip DOS timestamp can represent).
	Epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

	// Mode is the Unix permission written for every entry.
	Mode fs.FileMode = 0o644
)

const (
	creatorUnix  = 3
	zipVersion20 = 20
)

// Entry is one file in an archive.
type Entry struct {
	Name string // slash-separated path inside the archive
	Data []byte
}

// Header returns the fixed zip header for the entry: Deflate, [Epoch],
// rw-r--r--.
func (e Entry) Header() *zip.FileHeader {
	return &zip.FileHeader{
		Name:           e.Name,
		Method:         zip.Deflate,
		Modified:       Epoch,
		CreatorVersion: creatorUnix<<8 | zipVersion20,
		ExternalAttrs:  uint32(Mode) << 16,
	}
}

// Writer writes deterministic zip archives.
type Writer struct {
	zw *zip.Writer
	n  int
}

// NewWriter returns a Writer that writes a zip archive to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// Add writes one entry. Entries are stored in the order they are added.
func (w *Writer) Add(e Entry) error {
	fw, err := w.zw.CreateHeader(e.Header())
	if err != nil {
		return err
	}
	if _, err := fw.Write(e.Data); err != nil {
		return err
	}
	w.n++
	return nil
}

// AddFile writes the file at path as an entry named name.
func (w *Writer) AddFile(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := w.zw.CreateHeader(Entry{Name: name}.Header())
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return err
	}
	w.n++
	return nil
}

// AddDir walks root in lexicographic order and adds every regular file,
// named by its slash-separated path relative to root. Directories produce
// no entries of their own.
func (w *Writer) AddDir(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return w.AddFile(filepath.ToSlash(rel), path)
	})
}

// Count returns the number of entries written so far.
func (w *Writer) Count() int { return w.n }

// Close finishes the archive. It does not close the underlying writer.
func (w *Writer) Close() error { return w.zw.Close() }
