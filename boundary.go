package mime

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-mimetools/mime/stream"
)

// terminalState is the outcome of scanning up to a boundary line.
type terminalState int

const (
	stateEOF terminalState = iota
	stateDelim
	stateClose
)

// boundaryCtx names the DELIM/CLOSE markers for one multipart container's
// boundary. A zero-value boundaryCtx (has == false) means "no outer
// boundary", i.e. the top level of the message.
type boundaryCtx struct {
	has   bool
	delim string
	close string
}

func newBoundaryCtx(raw string) boundaryCtx {
	return boundaryCtx{has: true, delim: "--" + raw, close: "--" + raw + "--"}
}

// readRawLine reads the next line including its terminator, the way the
// Stream Adaptor contract requires: no translation of line endings. A
// final, unterminated line is returned with eof=true and a nil error; true
// end-of-input with no bytes at all returns ("", true, nil) as well, and
// callers distinguish the two by checking the returned line's length.
func readRawLine(r stream.Reader) (line string, eof bool, err error) {
	line, rerr := r.ReadLine()
	if rerr == io.EOF {
		return line, true, nil
	}
	if rerr != nil {
		return line, false, errors.WithStack(&IOFailed{Cause: rerr})
	}
	return line, false, nil
}

// stripEOL splits a raw line into its content and trailing terminator
// ("\r\n", "\n", or "" when the final line of input had none).
func stripEOL(line string) (content, eol string) {
	n := len(line)
	if n >= 2 && line[n-2] == '\r' && line[n-1] == '\n' {
		return line[:n-2], line[n-2:]
	}
	if n >= 1 && line[n-1] == '\n' {
		return line[:n-1], line[n-1:]
	}
	return line, ""
}

// parseToBound reads line-by-line up to and including the boundary line,
// writing everything before it to w. Per RFC 1521, the CRLF immediately
// preceding the boundary belongs to the boundary, not the payload -- this
// is preserved via a one-line delay: each line's own end-of-line is held
// back and only written once we know the *next* line isn't the boundary.
func parseToBound(ctx boundaryCtx, r stream.Reader, w io.Writer) (terminalState, error) {
	heldEOL := ""
	for {
		line, eof, err := readRawLine(r)
		if err != nil {
			return stateEOF, err
		}
		content, eol := stripEOL(line)
		if eof && content == "" && eol == "" {
			return stateEOF, errors.WithStack(&UnexpectedEOF{Where: "part body before boundary"})
		}

		switch content {
		case ctx.delim:
			return stateDelim, nil
		case ctx.close:
			return stateClose, nil
		}

		if _, werr := io.WriteString(w, heldEOL+content); werr != nil {
			return stateEOF, errors.WithStack(&IOFailed{Cause: werr})
		}
		heldEOL = eol

		if eof {
			// Final line of input carried no recognizable boundary; the
			// held EOL (if any) from the previous line was already
			// written above, and this line had none of its own to hold.
			return stateEOF, errors.WithStack(&UnexpectedEOF{Where: "part body before boundary"})
		}
	}
}

// parsePreamble discards lines preceding a multipart container's first
// part, stopping at the first DELIM (preamble bytes are semantically
// discarded regardless of content).
func parsePreamble(ctx boundaryCtx, r stream.Reader) (terminalState, error) {
	for {
		line, eof, err := readRawLine(r)
		if err != nil {
			return stateEOF, err
		}
		content, _ := stripEOL(line)
		switch content {
		case ctx.delim:
			return stateDelim, nil
		case ctx.close:
			return stateEOF, errors.WithStack(&EmptyMultipart{})
		}
		if eof {
			return stateEOF, errors.WithStack(&UnexpectedEOF{Where: "preamble"})
		}
	}
}

// parseEpilogue discards lines following a multipart container's closing
// delimiter. With an outer boundary in play it stops at that boundary's
// DELIM or CLOSE and returns the matching terminal state; with no outer
// boundary it consumes the rest of the input and returns EOF.
func parseEpilogue(outer boundaryCtx, r stream.Reader) (terminalState, error) {
	if !outer.has {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return stateEOF, errors.WithStack(&IOFailed{Cause: err})
		}
		return stateEOF, nil
	}
	for {
		line, eof, err := readRawLine(r)
		if err != nil {
			return stateEOF, err
		}
		content, _ := stripEOL(line)
		switch content {
		case outer.delim:
			return stateDelim, nil
		case outer.close:
			return stateClose, nil
		}
		if eof {
			return stateEOF, nil
		}
	}
}
