package codec

import (
	"fmt"
	"io"

	"github.com/go-mimetools/mime/stream"
)

// quotedPrintableCodec is a hand-rolled quoted-printable implementation
// rather than stdlib mime/quotedprintable: lowercase hex digits and a
// trailing "=" dropping the line break entirely both need tolerating,
// which diverges from the stdlib decoder's stricter RFC 2045 reading.
type quotedPrintableCodec struct{}

func (quotedPrintableCodec) Decode(r stream.Reader, w io.Writer) error {
	for {
		line, rerr := r.ReadLine()
		if rerr != nil && rerr != io.EOF {
			return wrapDecodeErr("quoted-printable", rerr)
		}
		if len(line) == 0 && rerr == io.EOF {
			return nil
		}

		body, eol := splitEOL(line)
		softBreak := false
		if len(body) > 0 && body[len(body)-1] == '=' {
			body = body[:len(body)-1]
			softBreak = true
		}

		if err := decodeQPBody(body, w); err != nil {
			return err
		}
		if !softBreak {
			if _, werr := io.WriteString(w, eol); werr != nil {
				return wrapDecodeErr("quoted-printable", werr)
			}
		}
		if rerr == io.EOF {
			return nil
		}
	}
}

// decodeQPBody decodes "=HH" escapes (tolerating lowercase hex) within a
// single line body, passing through everything else verbatim. A malformed
// "=" not followed by two hex digits is passed through literally.
func decodeQPBody(body string, w io.Writer) error {
	i := 0
	for i < len(body) {
		c := body[i]
		if c == '=' && i+2 < len(body) && isHexDigit(body[i+1]) && isHexDigit(body[i+2]) {
			val := hexVal(body[i+1])<<4 | hexVal(body[i+2])
			if _, err := w.Write([]byte{byte(val)}); err != nil {
				return wrapDecodeErr("quoted-printable", err)
			}
			i += 3
			continue
		}
		if _, err := w.Write([]byte{c}); err != nil {
			return wrapDecodeErr("quoted-printable", err)
		}
		i++
	}
	return nil
}

func (quotedPrintableCodec) Encode(r stream.Reader, w io.Writer) error {
	for {
		line, rerr := r.ReadLine()
		if rerr != nil && rerr != io.EOF {
			return rerr
		}
		if len(line) == 0 && rerr == io.EOF {
			return nil
		}
		body, eol := splitEOL(line)
		if err := encodeQPBody(body, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, eol); err != nil {
			return err
		}
		if rerr == io.EOF {
			return nil
		}
	}
}

func encodeQPBody(body string, w io.Writer) error {
	col := 0
	n := len(body)
	for i := 0; i < n; i++ {
		b := body[i]
		trailingWS := (b == ' ' || b == '\t') && i == n-1
		var tok string
		if b == '=' || b < 33 || b > 126 || trailingWS {
			tok = fmt.Sprintf("=%02X", b)
		} else {
			tok = string(b)
		}
		if col+len(tok) > 76 {
			if _, err := io.WriteString(w, "=\n"); err != nil {
				return err
			}
			col = 0
		}
		if _, err := io.WriteString(w, tok); err != nil {
			return err
		}
		col += len(tok)
	}
	return nil
}

// splitEOL splits a line returned by stream.Reader.ReadLine into its
// content and trailing terminator ("\r\n", "\n", or "" for a final
// unterminated line).
func splitEOL(line string) (body, eol string) {
	n := len(line)
	if n >= 2 && line[n-2] == '\r' && line[n-1] == '\n' {
		return line[:n-2], line[n-2:]
	}
	if n >= 1 && line[n-1] == '\n' {
		return line[:n-1], line[n-1:]
	}
	return line, ""
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return 0
}
