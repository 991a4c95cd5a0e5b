package mime

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"mime"
	"net/textproto"
	"strings"

	"github.com/pkg/errors"
)

// Standard MIME header names and parameters, kept as named constants so
// the package reads consistently wherever a literal shows up.
const (
	hnContentDisposition = "Content-Disposition"
	hnContentEncoding    = "Content-Transfer-Encoding"
	hnContentType        = "Content-Type"

	hpBoundary = "boundary"
	hpCharset  = "charset"
	hpFilename = "filename"
	hpName     = "name"
)

// Header is the external contract the parser depends on: it is assumed to
// already know how to parse a block of RFC 822 header fields and expose
// the handful of MIME-relevant attributes the Parser Core needs to
// classify and decode a part. The module ships DefaultHeader, a concrete
// implementation built on net/textproto and mime.ParseMediaType, so this
// package is usable without a caller-supplied Header, but callers remain
// free to substitute their own (ParserConfig.HeaderFactory).
type Header interface {
	// MIMEType returns the lowercased (type, subtype) pair from
	// Content-Type, defaulting to ("text", "plain") when absent.
	MIMEType() (typ, subtype string)

	// MIMEEncoding returns the lowercased Content-Transfer-Encoding,
	// defaulting to "binary" when absent.
	MIMEEncoding() string

	// MultipartBoundary returns the boundary parameter and whether one
	// was present; required when MIMEType's type is "multipart".
	MultipartBoundary() (string, bool)

	// RecommendedFilename returns a filename derived from
	// Content-Disposition or the Content-Type "name" parameter.
	RecommendedFilename() (string, bool)

	// Get returns the index'th value of a header field, or ("", false)
	// if fewer than index+1 values are present.
	Get(field string, index int) (string, bool)
}

// DefaultHeader wraps a parsed textproto.MIMEHeader and caches the parsed
// Content-Type.
type DefaultHeader struct {
	fields      textproto.MIMEHeader
	mtype       string
	mparams     map[string]string
	disposition string
	dparams     map[string]string
}

var _ Header = (*DefaultHeader)(nil)

// ParseHeader reads one block of RFC 822/2045 headers (through the
// terminating blank line) from r and returns a DefaultHeader. It tolerates
// a couple of classes of malformed input: non-indented continuation lines
// and lines that start with a bare colon are repaired or skipped rather
// than failing the whole header.
func ParseHeader(r *bufio.Reader) (*DefaultHeader, error) {
	fields, err := readHeaderFields(r)
	if err != nil {
		return nil, err
	}

	h := &DefaultHeader{fields: fields}

	ctype := fields.Get(hnContentType)
	if ctype == "" {
		h.mtype = "text/plain"
		h.mparams = map[string]string{hpCharset: "us-ascii"}
	} else {
		mtype, params, perr := parseMediaType(ctype)
		if perr != nil {
			h.mtype = "text/plain"
			h.mparams = map[string]string{hpCharset: "us-ascii"}
		} else {
			h.mtype = strings.ToLower(mtype)
			h.mparams = params
		}
	}

	if cd := fields.Get(hnContentDisposition); cd != "" {
		disp, dparams, derr := parseMediaType(cd)
		if derr == nil {
			h.disposition = strings.ToLower(disp)
			h.dparams = dparams
		}
	}

	return h, nil
}

func (h *DefaultHeader) MIMEType() (string, string) {
	parts := strings.SplitN(h.mtype, "/", 2)
	if len(parts) != 2 {
		return h.mtype, ""
	}
	return parts[0], parts[1]
}

func (h *DefaultHeader) MIMEEncoding() string {
	enc := strings.ToLower(strings.TrimSpace(h.fields.Get(hnContentEncoding)))
	if enc == "" {
		return "binary"
	}
	return enc
}

func (h *DefaultHeader) MultipartBoundary() (string, bool) {
	b, ok := h.mparams[hpBoundary]
	return b, ok && b != ""
}

func (h *DefaultHeader) RecommendedFilename() (string, bool) {
	if h.dparams != nil {
		if fn := decodeHeaderWord(h.dparams[hpFilename]); fn != "" {
			return fn, true
		}
	}
	if h.mparams != nil {
		if fn := decodeHeaderWord(h.mparams[hpName]); fn != "" {
			return fn, true
		}
	}
	return "", false
}

func (h *DefaultHeader) Get(field string, index int) (string, bool) {
	vals, ok := h.fields[textproto.CanonicalMIMEHeaderKey(field)]
	if !ok || index >= len(vals) {
		return "", false
	}
	return vals[index], true
}

// Disposition returns the lowercased Content-Disposition type ("inline",
// "attachment", ...) when present.
func (h *DefaultHeader) Disposition() (string, bool) {
	return h.disposition, h.disposition != ""
}

// readHeaderFields reads a block of SMTP or MIME headers and returns a
// textproto.MIMEHeader. It massages the raw lines into something
// textproto.Reader.ReadMIMEHeader can accept, repairing a couple of
// classes of malformed input along the way.
func readHeaderFields(r *bufio.Reader) (textproto.MIMEHeader, error) {
	buf := &bytes.Buffer{}
	tp := textproto.NewReader(r)
	firstHeader := true
	for {
		s, err := tp.ReadLineBytes()
		if err != nil {
			if (err == io.EOF || err == io.ErrUnexpectedEOF) && buf.Len() == 0 {
				return nil, errBadHeader("empty header block")
			} else if err == io.EOF {
				buf.Write([]byte{'\r', '\n'})
				break
			}
			return nil, errors.WithStack(&IOFailed{Cause: err})
		}
		firstColon := bytes.IndexByte(s, ':')
		firstSpace := bytes.IndexAny(s, " \t\n\r")
		switch {
		case firstSpace == 0:
			buf.WriteByte(' ')
			buf.Write(textproto.TrimBytes(s))
		case firstColon == 0:
			log.Printf("mime: header line %q started with a colon, skipped", s)
		case firstColon > 0:
			if !firstHeader {
				buf.Write([]byte{'\r', '\n'})
			}
			buf.Write(textproto.TrimBytes(s))
			firstHeader = false
		case len(s) > 0:
			buf.WriteByte(' ')
			buf.Write(s)
			log.Printf("mime: continued line %q was not indented", s)
		default:
			buf.Write([]byte{'\r', '\n'})
			goto done
		}
	}
done:
	buf.Write([]byte{'\r', '\n'})
	tr := textproto.NewReader(bufio.NewReader(buf))
	return tr.ReadMIMEHeader()
}

// decodeHeaderWord decodes a single RFC 2047 encoded-word header value
// using stdlib mime.WordDecoder. No CharsetReader is wired: character-set
// interpretation is out of scope, so unsupported charsets simply return
// the input unchanged rather than being transcoded.
func decodeHeaderWord(input string) string {
	if input == "" || !strings.Contains(input, "=?") {
		return input
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(input)
	if err != nil {
		return input
	}
	return decoded
}

// parseMediaType parses a Content-Type or Content-Disposition value,
// retrying with repairBadContentType when mime.ParseMediaType rejects it
// outright.
func parseMediaType(ctype string) (string, map[string]string, error) {
	mtype, mparams, err := mime.ParseMediaType(ctype)
	if err == nil {
		return mtype, mparams, nil
	}
	mctype := repairBadContentType(ctype, ";")
	if mtype, mparams, err = mime.ParseMediaType(mctype); err == nil {
		return mtype, mparams, nil
	}
	mctype = repairBadContentType(ctype, " ")
	if strings.Contains(mctype, `name=""`) {
		mctype = strings.Replace(mctype, `name=""`, `name=" "`, -1)
	}
	return mime.ParseMediaType(mctype)
}

// repairBadContentType rejoins a Content-Type value that used sep instead
// of ";" between parameters, dropping duplicate parameter keys.
func repairBadContentType(ctype, sep string) string {
	var mctype strings.Builder
	for _, p := range strings.Split(ctype, sep) {
		if i := strings.IndexByte(p, '='); i >= 0 {
			key := p[:i] + "="
			if !strings.Contains(mctype.String(), key) {
				mctype.WriteString(p)
				mctype.WriteByte(';')
			}
		} else {
			mctype.WriteString(p)
			mctype.WriteByte(';')
		}
	}
	return mctype.String()
}
