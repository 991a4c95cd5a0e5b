package sink

import (
	"bytes"
	"io"
)

// Memory is an in-memory Sink. Its writer appends to an internal buffer;
// each reader yields an independent view over the buffer's current bytes.
type Memory struct {
	buf    bytes.Buffer
	binary bool
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) OpenWrite() (io.WriteCloser, error) {
	m.buf.Reset()
	return &memoryWriter{m: m}, nil
}

func (m *Memory) OpenRead() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.buf.Bytes())), nil
}

func (m *Memory) SetBinary(b bool) { m.binary = b }
func (m *Memory) Binary() bool     { return m.binary }
func (m *Memory) Path() string     { return "" }
func (m *Memory) Size() int64      { return int64(m.buf.Len()) }

type memoryWriter struct {
	m *Memory
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	return w.m.buf.Write(p)
}

func (w *memoryWriter) Close() error { return nil }
