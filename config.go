package mime

import "bufio"

// NestedMessageMode selects how a message/rfc822 leaf's reparsed body is
// attached to the entity tree.
type NestedMessageMode int

const (
	// NestedOff treats message/rfc822 as an opaque leaf; this is the
	// default.
	NestedOff NestedMessageMode = iota
	// NestedNest attaches the reparsed message as the envelope's sole
	// child.
	NestedNest
	// NestedReplace discards the envelope entirely and returns the
	// reparsed message in its place.
	NestedReplace
)

// ParserConfig carries every process-wide knob the source used to keep as
// global debug/warn flags. It is threaded explicitly through every
// recursive parse_part call instead.
type ParserConfig struct {
	// OutputBodyPolicy allocates a fresh Body Sink for a leaf given its
	// header. Required.
	OutputBodyPolicy func(h Header) (Sink, error)

	// NestedMessageMode controls message/rfc822 reparsing. Defaults to
	// NestedOff.
	NestedMessageMode NestedMessageMode

	// MaxDepth bounds multipart recursion depth. Defaults to 32 when
	// zero.
	MaxDepth int

	// EntityFactory, when set, constructs entities instead of
	// NewEntity, letting callers attach a subclassed entity type.
	EntityFactory func() *Entity

	// HeaderFactory parses one header block. Defaults to ParseHeader
	// when nil.
	HeaderFactory func(r *bufio.Reader) (Header, error)

	// TempDir is where leaf bodies are staged while their boundary is
	// being scanned, and where nested-message reparsing stages its
	// decoded body. Defaults to os.TempDir() when empty.
	TempDir string

	// Warn receives recovered, non-fatal conditions: an unrecognized
	// transfer-encoding falling back to binary, or a uuencode stream
	// missing its "end" line. kind is one of "unknown-encoding" or
	// "uu-no-end"; args carry kind-specific detail.
	Warn func(kind string, args ...interface{})
}

func (c *ParserConfig) maxDepth() int {
	if c.MaxDepth <= 0 {
		return 32
	}
	return c.MaxDepth
}

func (c *ParserConfig) warn(kind string, args ...interface{}) {
	if c.Warn != nil {
		c.Warn(kind, args...)
	}
}

func (c *ParserConfig) newEntity() *Entity {
	if c.EntityFactory != nil {
		return c.EntityFactory()
	}
	return NewEntity()
}

func (c *ParserConfig) tempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return defaultTempDir()
}
