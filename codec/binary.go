package codec

import (
	"io"

	"github.com/go-mimetools/mime/stream"
)

// binaryCodec copies bytes verbatim in both directions. It is also the
// fallback the parser uses when a named encoding has no registered codec.
type binaryCodec struct{}

func (binaryCodec) Decode(r stream.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return wrapDecodeErr("binary", err)
}

func (binaryCodec) Encode(r stream.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}
