package mime

import (
	"fmt"

	"github.com/pkg/errors"
)

// IOFailed wraps an underlying stream error. Callers must not retry
// automatically on seeing one.
type IOFailed struct {
	Cause error
}

func (e *IOFailed) Error() string { return "mime: i/o failure: " + e.Cause.Error() }
func (e *IOFailed) Unwrap() error { return e.Cause }

// BadHeader reports that the header parser rejected its input.
type BadHeader struct {
	Reason string
}

func (e *BadHeader) Error() string { return "mime: bad header: " + e.Reason }

func errBadHeader(reason string) error {
	return errors.WithStack(&BadHeader{Reason: reason})
}

// MissingBoundary reports a multipart header with no boundary parameter.
type MissingBoundary struct{}

func (e *MissingBoundary) Error() string { return "mime: multipart header has no boundary parameter" }

// EmptyMultipart reports a multipart container whose preamble ran straight
// into the closing delimiter with no parts in between.
type EmptyMultipart struct{}

func (e *EmptyMultipart) Error() string { return "mime: multipart has no parts" }

// UnexpectedEOF reports end-of-input while the parser was expecting a
// preamble delimiter, a part body terminator, or a closing delimiter.
type UnexpectedEOF struct {
	Where string
}

func (e *UnexpectedEOF) Error() string {
	return fmt.Sprintf("mime: unexpected end of input in %s", e.Where)
}

// TooDeep reports that multipart nesting exceeded ParserConfig.MaxDepth.
type TooDeep struct {
	MaxDepth int
}

func (e *TooDeep) Error() string {
	return fmt.Sprintf("mime: multipart nesting exceeded max depth %d", e.MaxDepth)
}

// DecodeFailed reports a codec rejecting its input while materializing a
// leaf body.
type DecodeFailed struct {
	Encoding string
	Cause    error
}

func (e *DecodeFailed) Error() string {
	return "mime: decode failed for " + e.Encoding + ": " + e.Cause.Error()
}

func (e *DecodeFailed) Unwrap() error { return e.Cause }
