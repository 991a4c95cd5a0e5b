package codec

import (
	"io"

	"github.com/go-mimetools/mime/stream"
)

// sevenEightBit implements both the 7bit and 8bit transfer encodings: the
// bytes themselves need no transformation, but decode normalizes line
// endings to "\n" while encode leaves lines exactly as given (no
// wrapping).
type sevenEightBit struct{}

func (sevenEightBit) Decode(r stream.Reader, w io.Writer) error {
	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			if _, werr := io.WriteString(w, normalizeEOL(line)); werr != nil {
				return wrapDecodeErr("7bit", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapDecodeErr("7bit", err)
		}
	}
}

func (sevenEightBit) Encode(r stream.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

// normalizeEOL rewrites a single trailing "\r\n" to "\n"; a bare "\n" or an
// unterminated final line pass through unchanged.
func normalizeEOL(line string) string {
	n := len(line)
	if n >= 2 && line[n-2] == '\r' && line[n-1] == '\n' {
		return line[:n-2] + "\n"
	}
	return line
}
