package stream

import (
	"bufio"
	"io"
	"os"
)

// File adapts an *os.File to the Stream capability set, for reading a
// message straight off disk or writing bytes to a file.
type File struct {
	f  *os.File
	br *bufio.Reader
}

// NewFile wraps an already-open file. Callers own the file's lifecycle
// jointly with the returned Stream -- Close closes the underlying *os.File.
func NewFile(f *os.File) *File {
	return &File{f: f, br: bufio.NewReader(f)}
}

// OpenFile opens path for reading and wraps it.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Wrap(err)
	}
	return NewFile(f), nil
}

// CreateFile creates (truncating) path for writing and wraps it.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, Wrap(err)
	}
	return NewFile(f), nil
}

func (s *File) ReadLine() (string, error) {
	ln, err := s.br.ReadString('\n')
	if err == io.EOF && ln != "" {
		return ln, io.EOF
	}
	if err != nil {
		return ln, Wrap(err)
	}
	return ln, nil
}

func (s *File) Read(buf []byte) (int, error) {
	n, err := s.br.Read(buf)
	return n, Wrap(err)
}

func (s *File) Write(buf []byte) (int, error) {
	n, err := s.f.Write(buf)
	return n, Wrap(err)
}

func (s *File) Flush() error {
	return Wrap(s.f.Sync())
}

func (s *File) Seek(offset int64, whence int) (int64, error) {
	n, err := s.f.Seek(offset, whence)
	if err != nil {
		return n, Wrap(err)
	}
	// Any buffered read-ahead is now stale.
	s.br.Reset(s.f)
	return n, nil
}

func (s *File) Tell() (int64, error) {
	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return pos, Wrap(err)
	}
	return pos - int64(s.br.Buffered()), nil
}

func (s *File) Close() error {
	return Wrap(s.f.Close())
}
