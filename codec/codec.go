// Package codec implements the content-transfer-encoding decoders and
// encoders the parser selects by name: 7bit, 8bit, binary, base64,
// quoted-printable, and x-uu/x-uuencode.
package codec

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-mimetools/mime/stream"
)

// Codec decodes or encodes a full stream in one pass, consuming the reader
// until it reports end-of-input and writing the result to writer. Neither
// direction is expected to look past the data it was given -- callers that
// need a bounded view stage the input through temporary storage first. The
// reader side targets the Stream Adaptor so line-oriented codecs can read a
// terminator-intact line directly instead of re-wrapping their input in
// another buffered reader; the writer side stays plain io.Writer since Body
// Sink's write path never needs seek/tell.
type Codec interface {
	Decode(r stream.Reader, w io.Writer) error
	Encode(r stream.Reader, w io.Writer) error
}

// DecodeFailed reports a codec rejecting its input.
type DecodeFailed struct {
	Encoding string
	Cause    error
}

func (e *DecodeFailed) Error() string {
	return "codec: decode failed for " + e.Encoding + ": " + e.Cause.Error()
}

func (e *DecodeFailed) Unwrap() error { return e.Cause }

var registry = map[string]Codec{
	"7bit":             sevenEightBit{},
	"8bit":             sevenEightBit{},
	"binary":           binaryCodec{},
	"base64":           base64Codec{},
	"x-base64":         base64Codec{},
	"quoted-printable": quotedPrintableCodec{},
	"x-uu":             uuencodeCodec{},
	"x-uuencode":       uuencodeCodec{},
}

// Lookup returns the codec registered for a lowercased content-transfer-
// encoding name. The bool is false when no codec is registered, at which
// point the caller (the parser) falls back to "binary".
func Lookup(encoding string) (Codec, bool) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(encoding))]
	return c, ok
}

// Register adds or replaces the codec used for a given (will be
// lowercased) encoding name. Exposed so embedders can add vendor-specific
// transfer encodings without forking the registry.
func Register(encoding string, c Codec) {
	registry[strings.ToLower(encoding)] = c
}

func wrapDecodeErr(encoding string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&DecodeFailed{Encoding: encoding, Cause: err})
}
