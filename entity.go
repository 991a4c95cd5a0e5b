package mime

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-mimetools/mime/sink"
)

// Sink re-exports sink.Sink at the package's public surface so callers
// implementing OutputBodyPolicy don't need to import the sink package
// directly for the common case.
type Sink = sink.Sink

// Entity is one node of the parse tree: a header plus either a body sink
// (if it is a leaf) or an ordered list of child entities (if it is a
// multipart container or a reparsed nested message's envelope). It is
// built up by the parser and never mutated once Parse returns.
type Entity struct {
	Header Header
	Body   Sink

	parts []*Entity

	typ     string
	subtype string
}

// NewEntity returns an empty Entity; ParserConfig.EntityFactory overrides
// this when a caller needs a subclassed entity type.
func NewEntity() *Entity {
	return &Entity{}
}

// Head returns the entity's header.
func (e *Entity) Head() Header { return e.Header }

// BodySink returns the entity's body sink, or nil for a container.
func (e *Entity) BodySink() Sink { return e.Body }

// Parts returns the entity's children in input order. A leaf returns nil.
func (e *Entity) Parts() []*Entity { return e.parts }

// Part returns the i'th child, or nil if i is out of range.
func (e *Entity) Part(i int) *Entity {
	if i < 0 || i >= len(e.parts) {
		return nil
	}
	return e.parts[i]
}

// AddPart appends a child entity.
func (e *Entity) AddPart(child *Entity) {
	e.parts = append(e.parts, child)
}

// ContentType returns the cached (type, subtype) pair from the entity's
// header, lowercased.
func (e *Entity) ContentType() (string, string) {
	return e.typ, e.subtype
}

// IsMultipart reports whether the entity's content type is "multipart".
// Every multipart entity has children; the one non-multipart entity with a
// child is a message/rfc822 envelope parsed in NestedNest mode.
func (e *Entity) IsMultipart() bool {
	return e.typ == "multipart"
}

// DumpSkeleton writes a diagnostic, non-round-trippable indented tree dump
// of the entity and its descendants: one line per node naming its content
// type, transfer encoding, and child count.
func (e *Entity) DumpSkeleton(w io.Writer) error {
	return e.dumpSkeleton(w, 0)
}

func (e *Entity) dumpSkeleton(w io.Writer, depth int) error {
	enc := ""
	if e.Header != nil {
		enc = e.Header.MIMEEncoding()
	}
	line := fmt.Sprintf("%s%s/%s [%s] (%d parts)\n",
		strings.Repeat("  ", depth), e.typ, e.subtype, enc, len(e.parts))
	if _, err := io.WriteString(w, line); err != nil {
		return err
	}
	for _, child := range e.parts {
		if err := child.dumpSkeleton(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
