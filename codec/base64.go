package codec

import (
	"encoding/base64"
	"io"

	"golang.org/x/text/transform"

	"github.com/go-mimetools/mime/stream"
)

const base64LineWidth = 76

// base64Codec implements the standard RFC 1521 base64 alphabet. Decoding
// ignores whitespace and any byte outside the alphabet and stops at the
// first "=" padding character; encoding wraps output at a fixed 76-column
// width.
type base64Codec struct{}

func (base64Codec) Decode(r stream.Reader, w io.Writer) error {
	cleaned := transform.NewReader(r, &base64Cleaner{})
	dec := base64.NewDecoder(base64.RawStdEncoding, cleaned)
	_, err := io.Copy(w, dec)
	return wrapDecodeErr("base64", err)
}

func (base64Codec) Encode(r stream.Reader, w io.Writer) error {
	lw := &lineWrapWriter{w: w, width: base64LineWidth}
	enc := base64.NewEncoder(base64.StdEncoding, lw)
	if _, err := io.Copy(enc, r); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return lw.finish()
}

// base64Cleaner is a golang.org/x/text/transform.Transformer that copies
// through only base64-alphabet bytes, drops everything else (whitespace,
// stray control bytes), and -- once it sees a "=" padding byte -- silently
// discards all further input, mirroring the "stops at = padding" rule.
type base64Cleaner struct {
	stopped bool
}

func (c *base64Cleaner) Reset() { c.stopped = false }

func (c *base64Cleaner) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if c.stopped {
		return 0, len(src), nil
	}
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b == '=' {
			c.stopped = true
			nSrc = i + 1
			return nDst, nSrc, nil
		}
		if isBase64Alphabet(b) {
			if nDst >= len(dst) {
				return nDst, i, transform.ErrShortDst
			}
			dst[nDst] = b
			nDst++
		}
		nSrc = i + 1
	}
	return nDst, nSrc, nil
}

func isBase64Alphabet(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '+' || b == '/':
		return true
	}
	return false
}

// lineWrapWriter inserts "\n" every width bytes written, used to wrap
// base64 encoder output at a fixed column count.
type lineWrapWriter struct {
	w     io.Writer
	width int
	col   int
}

func (l *lineWrapWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		room := l.width - l.col
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		n, err := l.w.Write(chunk)
		written += n
		l.col += n
		if err != nil {
			return written, err
		}
		p = p[n:]
		if l.col == l.width && len(p) > 0 {
			if _, err := l.w.Write([]byte{'\n'}); err != nil {
				return written, err
			}
			l.col = 0
		}
	}
	return written, nil
}

// finish terminates the final output line.
func (l *lineWrapWriter) finish() error {
	if l.col > 0 {
		_, err := l.w.Write([]byte{'\n'})
		return err
	}
	return nil
}
