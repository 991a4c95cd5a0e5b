package sink

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// File is an on-disk Sink. Its writer creates (truncating) the backing
// file; each reader opens the file fresh.
type File struct {
	path      string
	binary    bool
	ephemeral bool
	size      int64
}

// NewFile creates a File sink backed by a freshly-named file inside dir,
// named "mime-<uuid>.tmp" so that concurrent parses sharing a temp
// directory never collide. ephemeral marks the file for deletion by
// Unlink once the caller is done with it (used for the parser's internal
// staging sinks; caller-visible body sinks are typically not ephemeral).
func NewFile(dir string, ephemeral bool) (*File, error) {
	name := "mime-" + uuid.New().String() + ".tmp"
	return &File{path: filepath.Join(dir, name), ephemeral: ephemeral}, nil
}

// NewFileAt wraps an existing path, e.g. one chosen by the caller's
// output-path naming policy. It is never treated as ephemeral.
func NewFileAt(path string) *File {
	return &File{path: path}
}

func (f *File) OpenWrite() (io.WriteCloser, error) {
	fh, err := os.Create(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "sink: create %q", f.path)
	}
	f.size = 0
	return &fileWriter{f: f, fh: fh}, nil
}

func (f *File) OpenRead() (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "sink: open %q", f.path)
	}
	return fh, nil
}

func (f *File) SetBinary(b bool) { f.binary = b }
func (f *File) Binary() bool     { return f.binary }
func (f *File) Path() string     { return f.path }
func (f *File) Size() int64      { return f.size }

// Unlink removes the backing file if it was created as ephemeral staging.
// It is a no-op, not an error, for non-ephemeral sinks or missing files.
func (f *File) Unlink() error {
	if !f.ephemeral {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "sink: unlink %q", f.path)
	}
	return nil
}

type fileWriter struct {
	f  *File
	fh *os.File
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.fh.Write(p)
	w.f.size += int64(n)
	return n, err
}

func (w *fileWriter) Close() error {
	return w.fh.Close()
}
