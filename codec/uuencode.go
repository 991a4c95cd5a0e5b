package codec

import (
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-mimetools/mime/stream"
)

// NoBegin reports that a uuencode stream never produced a "begin" line
// before end-of-input.
var NoBegin = errors.New("uuencode: no begin line found")

// NoEnd is a non-fatal warning condition: end-of-input was reached in the
// middle of a uuencode payload, with no "end" line. Whatever was decoded so
// far is still written; the caller's warn channel is expected to surface
// this, not abort the decode.
var NoEnd = errors.New("uuencode: missing end line")

var beginRE = regexp.MustCompile(`^begin\s*(\d*)\s*(\S*)`)

// uuencodeCodec implements the x-uu / x-uuencode transfer encoding,
// including MIME::Tools' quirk-compatible tolerances: lines containing a
// lowercase letter are treated as mailer-signature continuation noise and
// skipped, and the captured begin-line mode/filename are metadata only --
// never applied to anything.
type uuencodeCodec struct{}

// UUMeta carries the mode and filename captured from a uuencode stream's
// begin line. It is informational only.
type UUMeta struct {
	Mode     string
	Filename string
}

func (uuencodeCodec) Decode(r stream.Reader, w io.Writer) error {
	_, err := decodeUU(r, w)
	return err
}

// decodeUU performs the decode and also returns the captured begin-line
// metadata, for callers (tests, or a caller wanting the declared filename)
// that want it without re-parsing.
func decodeUU(r stream.Reader, w io.Writer) (*UUMeta, error) {
	var meta *UUMeta
	for meta == nil {
		line, err := r.ReadLine()
		stripped := strings.TrimRight(line, "\r\n")
		if m := beginRE.FindStringSubmatch(stripped); m != nil {
			meta = &UUMeta{Mode: m[1], Filename: m[2]}
			break
		}
		if err == io.EOF {
			return nil, errors.WithStack(NoBegin)
		}
		if err != nil {
			return nil, wrapDecodeErr("x-uu", err)
		}
	}

	for {
		line, err := r.ReadLine()
		stripped := strings.TrimRight(line, "\r\n")

		if stripped != "" {
			if strings.HasPrefix(stripped, "end") {
				return meta, nil
			}
			if containsLower(stripped) {
				// Quirk-compatible: treated as continuation noise, e.g.
				// a trailing mailer signature line.
			} else if n, ok := uuLineLength(stripped); ok {
				if derr := decodeUULine(stripped, n, w); derr != nil {
					return meta, derr
				}
			}
			// else: declared length byte inconsistent with payload
			// length -- skip the line silently.
		}

		if err == io.EOF {
			return meta, errors.WithStack(NoEnd)
		}
		if err != nil {
			return meta, wrapDecodeErr("x-uu", err)
		}
	}
}

// uuLineLength validates a uuencoded line's declared length byte against
// its payload length, returning the declared byte count and whether the
// line is consistent enough to decode.
func uuLineLength(line string) (int, bool) {
	if len(line) == 0 {
		return 0, false
	}
	n := uuDecodeChar(line[0])
	payload := len(line) - 1
	if (n+2)/3 != payload/4 {
		return 0, false
	}
	return n, true
}

func decodeUULine(line string, n int, w io.Writer) error {
	payload := line[1:]
	out := make([]byte, 0, n)
	for i := 0; i+4 <= len(payload) && len(out) < n; i += 4 {
		c1 := uuDecodeChar(payload[i])
		c2 := uuDecodeChar(payload[i+1])
		c3 := uuDecodeChar(payload[i+2])
		c4 := uuDecodeChar(payload[i+3])
		out = append(out, byte((c1<<2)|(c2>>4)))
		if len(out) < n {
			out = append(out, byte(((c2&0xF)<<4)|(c3>>2)))
		}
		if len(out) < n {
			out = append(out, byte(((c3&0x3)<<6)|c4))
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	if _, err := w.Write(out); err != nil {
		return wrapDecodeErr("x-uu", err)
	}
	return nil
}

func uuDecodeChar(c byte) int {
	return (int(c) - 32) & 0x3F
}

func uuEncodeChar(v int) byte {
	return byte(v) + 32
}

func containsLower(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			return true
		}
	}
	return false
}

const uuChunkSize = 45

func (uuencodeCodec) Encode(r stream.Reader, w io.Writer) error {
	return encodeUU(r, w, "")
}

// EncodeUUWithFilename uuencodes r into w using filename as the declared
// begin-line filename, for callers that want a specific filename on the
// begin line; the generic Codec.Encode path above always uses an empty
// filename since the Codec interface carries no such parameter.
func EncodeUUWithFilename(r io.Reader, w io.Writer, filename string) error {
	return encodeUU(r, w, filename)
}

// encodeUU writes a begin/end-delimited uuencode stream. filename is
// written verbatim into the begin line; an empty filename yields "begin
// 644 " with nothing after it.
func encodeUU(r io.Reader, w io.Writer, filename string) error {
	if _, err := io.WriteString(w, "begin 644 "+filename+"\n"); err != nil {
		return err
	}

	buf := make([]byte, uuChunkSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if werr := encodeUULine(buf[:n], w); werr != nil {
				return werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "end\n")
	return err
}

func encodeUULine(chunk []byte, w io.Writer) error {
	line := make([]byte, 0, 1+((len(chunk)+2)/3)*4+1)
	line = append(line, uuEncodeChar(len(chunk)))
	for i := 0; i < len(chunk); i += 3 {
		var b0, b1, b2 byte
		b0 = chunk[i]
		if i+1 < len(chunk) {
			b1 = chunk[i+1]
		}
		if i+2 < len(chunk) {
			b2 = chunk[i+2]
		}
		c1 := b0 >> 2
		c2 := ((b0 & 0x3) << 4) | (b1 >> 4)
		c3 := ((b1 & 0xF) << 2) | (b2 >> 6)
		c4 := b2 & 0x3F
		line = append(line, uuEncodeChar(int(c1)), uuEncodeChar(int(c2)), uuEncodeChar(int(c3)), uuEncodeChar(int(c4)))
	}
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}
