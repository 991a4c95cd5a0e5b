package mime

import (
	"bufio"
	goerrors "errors"
	"io"
	"strings"

	"github.com/go-mimetools/mime/codec"
	"github.com/go-mimetools/mime/sink"
	"github.com/go-mimetools/mime/stream"

	"github.com/pkg/errors"
)

const contentTypeRFC822 = "message/rfc822"

// Parser drives the recursive-descent parse_part algorithm over a
// ParserConfig. It is cheap to construct and not safe for concurrent use
// by multiple goroutines against the same input, matching the
// single-threaded, cooperative scheduling model: callers parsing multiple
// messages concurrently should use one Parser per goroutine.
type Parser struct {
	cfg      ParserConfig
	lastHead Header
}

// NewParser validates cfg and returns a Parser. OutputBodyPolicy is
// required; every other field defaults per ParserConfig's documented
// zero values.
func NewParser(cfg ParserConfig) (*Parser, error) {
	if cfg.OutputBodyPolicy == nil {
		return nil, errors.New("mime: ParserConfig.OutputBodyPolicy is required")
	}
	return &Parser{cfg: cfg}, nil
}

// LastHead returns the first header parsed by the most recent call to
// Parse, before any message/rfc822 reparsing replaced or descended past
// it.
func (p *Parser) LastHead() Header { return p.lastHead }

// Parse reads one complete MIME message from r and returns its entity
// tree's root.
func (p *Parser) Parse(r io.Reader) (*Entity, error) {
	p.lastHead = nil
	br := bufio.NewReader(r)
	entity, _, err := p.parsePart(br, boundaryCtx{}, 1)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (p *Parser) parseHeader(br *bufio.Reader) (Header, error) {
	if p.cfg.HeaderFactory != nil {
		return p.cfg.HeaderFactory(br)
	}
	return ParseHeader(br)
}

// parsePart parses one header, classifies it by mime_type, and either
// recurses over a multipart container's children or materializes a leaf
// body. depth counts multipart and nested-message recursion together,
// bounded by ParserConfig.MaxDepth.
func (p *Parser) parsePart(br *bufio.Reader, outer boundaryCtx, depth int) (*Entity, terminalState, error) {
	if depth > p.cfg.maxDepth() {
		return nil, stateEOF, errors.WithStack(&TooDeep{MaxDepth: p.cfg.maxDepth()})
	}

	header, err := p.parseHeader(br)
	if err != nil {
		return nil, stateEOF, err
	}
	if p.lastHead == nil {
		p.lastHead = header
	}

	entity := p.cfg.newEntity()
	entity.Header = header
	typ, subtype := header.MIMEType()
	entity.typ = strings.ToLower(typ)
	entity.subtype = strings.ToLower(subtype)

	if entity.typ == "multipart" {
		return p.parseMultipart(br, entity, header, outer, depth)
	}
	return p.parseLeaf(br, entity, header, outer, depth)
}

func (p *Parser) parseMultipart(br *bufio.Reader, entity *Entity, header Header, outer boundaryCtx, depth int) (*Entity, terminalState, error) {
	boundary, ok := header.MultipartBoundary()
	if !ok {
		return nil, stateEOF, errors.WithStack(&MissingBoundary{})
	}
	inner := newBoundaryCtx(boundary)

	if _, err := parsePreamble(inner, stream.NewBufioReader(br)); err != nil {
		return nil, stateEOF, err
	}

	for {
		child, childState, err := p.parsePart(br, inner, depth+1)
		if err != nil {
			return nil, stateEOF, err
		}
		if childState == stateEOF {
			return nil, stateEOF, errors.WithStack(&UnexpectedEOF{Where: "multipart before closing boundary"})
		}
		entity.AddPart(child)
		if childState == stateClose {
			break
		}
	}

	epState, err := parseEpilogue(outer, stream.NewBufioReader(br))
	if err != nil {
		return nil, stateEOF, err
	}
	return entity, epState, nil
}

func (p *Parser) parseLeaf(br *bufio.Reader, entity *Entity, header Header, outer boundaryCtx, depth int) (*Entity, terminalState, error) {
	encName := strings.ToLower(strings.TrimSpace(header.MIMEEncoding()))
	c, ok := codec.Lookup(encName)
	if !ok {
		p.cfg.warn("unknown-encoding", encName)
		encName = "binary"
		c, _ = codec.Lookup(encName)
	}

	var (
		encodedReader stream.Reader
		term          terminalState
		staging       *sink.File
	)

	if outer.has {
		s, err := sink.NewFile(p.cfg.tempDir(), true)
		if err != nil {
			return nil, stateEOF, errors.Wrap(err, "mime: allocate staging sink")
		}
		staging = s
		w, err := staging.OpenWrite()
		if err != nil {
			return nil, stateEOF, errors.Wrap(err, "mime: open staging sink")
		}
		st, err := parseToBound(outer, stream.NewBufioReader(br), w)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			staging.Unlink()
			return nil, stateEOF, err
		}
		term = st
		rc, err := staging.OpenRead()
		if err != nil {
			staging.Unlink()
			return nil, stateEOF, errors.Wrap(err, "mime: reopen staging sink")
		}
		defer func() {
			rc.Close()
			staging.Unlink()
		}()
		encodedReader = stream.NewReader(rc)
	} else {
		encodedReader = stream.NewBufioReader(br)
		term = stateEOF
	}

	if entity.typ+"/"+entity.subtype == contentTypeRFC822 && p.cfg.NestedMessageMode != NestedOff {
		nested, err := p.decodeNested(c, encName, encodedReader, depth)
		if err != nil {
			return nil, stateEOF, err
		}
		if p.cfg.NestedMessageMode == NestedReplace {
			return nested, term, nil
		}
		entity.AddPart(nested)
		return entity, term, nil
	}

	body, err := p.cfg.OutputBodyPolicy(header)
	if err != nil {
		return nil, stateEOF, errors.Wrap(err, "mime: allocate body sink")
	}
	textlike := entity.typ == "text" || entity.typ == "message"
	body.SetBinary(!textlike)

	w, err := body.OpenWrite()
	if err != nil {
		return nil, stateEOF, errors.Wrap(err, "mime: open body sink")
	}
	if derr := c.Decode(encodedReader, w); derr != nil {
		if goerrors.Is(derr, codec.NoEnd) {
			p.cfg.warn("uu-no-end")
		} else {
			w.Close()
			return nil, stateEOF, errors.WithStack(&DecodeFailed{Encoding: encName, Cause: derr})
		}
	}
	if err := w.Close(); err != nil {
		return nil, stateEOF, errors.Wrap(err, "mime: close body sink")
	}
	entity.Body = body

	return entity, term, nil
}

// decodeNested decodes a message/rfc822 leaf's encoded body into a second
// temp sink and recursively reparses it as an independent message (no
// outer boundary: the nested reader's own end-of-input is its CLOSE).
func (p *Parser) decodeNested(c codec.Codec, encName string, encodedReader stream.Reader, depth int) (*Entity, error) {
	staging, err := sink.NewFile(p.cfg.tempDir(), true)
	if err != nil {
		return nil, errors.Wrap(err, "mime: allocate nested staging sink")
	}
	defer staging.Unlink()

	w, err := staging.OpenWrite()
	if err != nil {
		return nil, errors.Wrap(err, "mime: open nested staging sink")
	}
	if derr := c.Decode(encodedReader, w); derr != nil {
		if goerrors.Is(derr, codec.NoEnd) {
			p.cfg.warn("uu-no-end")
		} else {
			w.Close()
			return nil, errors.WithStack(&DecodeFailed{Encoding: encName, Cause: derr})
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "mime: close nested staging sink")
	}

	rc, err := staging.OpenRead()
	if err != nil {
		return nil, errors.Wrap(err, "mime: reopen nested staging sink")
	}
	defer rc.Close()

	nestedBr := bufio.NewReader(rc)
	nested, _, err := p.parsePart(nestedBr, boundaryCtx{}, depth+1)
	if err != nil {
		return nil, err
	}
	return nested, nil
}
