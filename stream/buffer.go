package stream

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Buffer adapts an in-memory byte slice to the Stream capability set. It
// reads already-in-memory message bytes or collects written bytes.
type Buffer struct {
	buf *bytes.Buffer
	pos int64
	// data is the full backing slice once writing has stopped; reads are
	// served from it directly so Seek/Tell behave like a real file.
	data []byte
}

// NewBuffer wraps an existing byte slice for reading.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// NewBufferWriter returns an empty Buffer open for writing.
func NewBufferWriter() *Buffer {
	return &Buffer{buf: &bytes.Buffer{}}
}

func (s *Buffer) bytesRef() []byte {
	if s.buf != nil {
		return s.buf.Bytes()
	}
	return s.data
}

func (s *Buffer) ReadLine() (string, error) {
	b := s.bytesRef()
	if s.pos >= int64(len(b)) {
		return "", io.EOF
	}
	rest := b[s.pos:]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		line := rest[:i+1]
		s.pos += int64(len(line))
		return string(line), nil
	}
	s.pos += int64(len(rest))
	return string(rest), io.EOF
}

func (s *Buffer) Read(p []byte) (int, error) {
	b := s.bytesRef()
	if s.pos >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *Buffer) Write(p []byte) (int, error) {
	if s.buf == nil {
		s.buf = &bytes.Buffer{}
	}
	return s.buf.Write(p)
}

func (s *Buffer) Flush() error {
	if s.buf != nil {
		s.data = s.buf.Bytes()
	}
	return nil
}

func (s *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		base = int64(len(s.bytesRef()))
	default:
		return 0, Wrap(errors.New("stream: invalid whence"))
	}
	s.pos = base + offset
	return s.pos, nil
}

func (s *Buffer) Tell() (int64, error) {
	return s.pos, nil
}

func (s *Buffer) Close() error {
	return s.Flush()
}

// Bytes returns the buffer's current contents.
func (s *Buffer) Bytes() []byte {
	return s.bytesRef()
}
