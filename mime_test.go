package mime_test

import (
	"bytes"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"strings"
	"testing"

	mimetools "github.com/go-mimetools/mime"
	"github.com/go-mimetools/mime/codec"
	itest "github.com/go-mimetools/mime/internal/test"
	"github.com/go-mimetools/mime/sink"
	"github.com/go-mimetools/mime/stream"
)

func memoryPolicy(h mimetools.Header) (mimetools.Sink, error) {
	return sink.NewMemory(), nil
}

func newParser(t *testing.T, cfg mimetools.ParserConfig) *mimetools.Parser {
	t.Helper()
	if cfg.OutputBodyPolicy == nil {
		cfg.OutputBodyPolicy = memoryPolicy
	}
	p, err := mimetools.NewParser(cfg)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

// Scenario 1: simple text.
func TestSimpleText(t *testing.T) {
	p := newParser(t, mimetools.ParserConfig{})
	raw := "Content-type: text/plain\n\nHello, world.\n"
	e, err := p.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	typ, sub := e.ContentType()
	if typ != "text" || sub != "plain" {
		t.Errorf("ContentType == %s/%s, want text/plain", typ, sub)
	}
	if got := itest.BodyBytes(t, e); string(got) != "Hello, world.\n" {
		t.Errorf("body == %q, want %q", got, "Hello, world.\n")
	}
}

// Scenario 2/3: a multipart/mixed message with a text intro and two
// base64 GIF parts, built with stdlib mime/multipart.Writer. crlf selects
// between \n and \r\n line endings throughout, covering both scenario 2
// and scenario 3 from one builder.
func buildTwoGIFMessage(t *testing.T, crlf bool, gif1, gif2 []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	boundary := mw.Boundary()

	nl := "\n"
	if crlf {
		nl = "\r\n"
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "Content-Type: multipart/mixed; boundary=%q%s%s", boundary, nl, nl)
	out.WriteString("This is the preamble, ignored by any conforming reader." + nl)

	writePart := func(headers string, body []byte) {
		fmt.Fprintf(&out, "--%s%s", boundary, nl)
		out.WriteString(headers)
		out.WriteString(nl)
		out.Write(body)
		// The line break before the next delimiter belongs to the
		// delimiter, not to the body.
		out.WriteString(nl)
	}

	writePart("Content-Type: text/plain"+nl+"Content-Transfer-Encoding: 7bit"+nl, []byte("Intro"+nl))

	encodeB64 := func(b []byte) []byte {
		c, ok := codec.Lookup("base64")
		if !ok {
			t.Fatal("no base64 codec registered")
		}
		var enc bytes.Buffer
		if err := c.Encode(stream.NewReader(bytes.NewReader(b)), &enc); err != nil {
			t.Fatalf("base64 encode: %v", err)
		}
		return enc.Bytes()
	}

	writePart(
		"Content-Type: image/gif"+nl+`Content-Disposition: attachment; filename="3d-compress.gif"`+nl+"Content-Transfer-Encoding: base64"+nl,
		encodeB64(gif1),
	)
	writePart(
		"Content-Type: image/gif"+nl+`Content-Disposition: attachment; filename="3d-eye.gif"`+nl+"Content-Transfer-Encoding: base64"+nl,
		encodeB64(gif2),
	)

	fmt.Fprintf(&out, "--%s--%s", boundary, nl)
	out.WriteString("Epilogue text, also ignored." + nl)

	return out.Bytes()
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}

func testTwoGIFMultipart(t *testing.T, crlf bool) {
	gif1 := randomBytes(t, 419)
	gif2 := randomBytes(t, 357)
	raw := buildTwoGIFMessage(t, crlf, gif1, gif2)

	p := newParser(t, mimetools.ParserConfig{})
	e, err := p.Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !e.IsMultipart() {
		t.Fatal("root is not multipart")
	}
	if got := len(e.Parts()); got != 3 {
		t.Fatalf("root has %d parts, want 3", got)
	}

	intro := e.Part(0)
	itest.CompareEntity(t, intro, itest.EntityExists)
	introRC, err := intro.BodySink().OpenRead()
	if err != nil {
		t.Fatalf("intro OpenRead: %v", err)
	}
	itest.ContentEqualsString(t, introRC, "Intro\n")
	introRC.Close()

	g1 := e.Part(1)
	itest.CompareEntity(t, g1, itest.EntityExists)
	g1RC, err := g1.BodySink().OpenRead()
	if err != nil {
		t.Fatalf("gif1 OpenRead: %v", err)
	}
	itest.ContentEqualsBytes(t, g1RC, gif1)
	g1RC.Close()
	if g1.BodySink().Size() != 419 {
		t.Errorf("gif1 size == %d, want 419", g1.BodySink().Size())
	}
	if fn, ok := g1.Head().RecommendedFilename(); !ok || fn != "3d-compress.gif" {
		t.Errorf("gif1 filename == %q, %v", fn, ok)
	}

	g2 := e.Part(2)
	itest.CompareEntity(t, g2, itest.EntityExists)
	g2RC, err := g2.BodySink().OpenRead()
	if err != nil {
		t.Fatalf("gif2 OpenRead: %v", err)
	}
	itest.ContentEqualsBytes(t, g2RC, gif2)
	g2RC.Close()
	if g2.BodySink().Size() != 357 {
		t.Errorf("gif2 size == %d, want 357", g2.BodySink().Size())
	}
}

func TestTwoGIFMultipartLF(t *testing.T)   { testTwoGIFMultipart(t, false) }
func TestTwoGIFMultipartCRLF(t *testing.T) { testTwoGIFMultipart(t, true) }

// Scenario 4: uuencode round-trip.
func TestUUEncodeRoundTrip(t *testing.T) {
	c, ok := codec.Lookup("x-uu")
	if !ok {
		t.Fatal("no x-uu codec registered")
	}
	payload := randomBytes(t, 1000)

	var encoded bytes.Buffer
	if err := codec.EncodeUUWithFilename(bytes.NewReader(payload), &encoded, "x.bin"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	itest.ContentContainsString(t, bytes.NewReader(encoded.Bytes()), "begin 644 x.bin\n")

	var decoded bytes.Buffer
	if err := c.Decode(stream.NewReader(bytes.NewReader(encoded.Bytes())), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	itest.ContentEqualsBytes(t, bytes.NewReader(decoded.Bytes()), payload)
}

// Scenario 5: quoted-printable soft break.
func TestQuotedPrintableSoftBreak(t *testing.T) {
	p := newParser(t, mimetools.ParserConfig{})
	raw := "Content-Type: text/plain\n" +
		"Content-Transfer-Encoding: quoted-printable\n\n" +
		"A very long line that exceeds the column limit and must wrap=\nhere.\n"
	e, err := p.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "A very long line that exceeds the column limit and must wraphere.\n"
	rc, err := e.BodySink().OpenRead()
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()
	itest.ContentEqualsString(t, rc, want)
}

// Scenario 6: nested message/rfc822, both NEST and REPLACE modes.
const nestedInnerMessage = "Content-type: text/plain\n\nInner\n"

func buildNestedMessage(t *testing.T) []byte {
	t.Helper()
	boundary := "nestbound"
	var out bytes.Buffer
	fmt.Fprintf(&out, "Content-Type: multipart/mixed; boundary=%s\n\n", boundary)
	out.WriteString("preamble\n")
	fmt.Fprintf(&out, "--%s\n", boundary)
	out.WriteString("Content-Type: message/rfc822\n\n")
	out.WriteString(nestedInnerMessage)
	// The leading "\n" is the delimiter's own line break, so the inner
	// message keeps its trailing newline.
	fmt.Fprintf(&out, "\n--%s--\n", boundary)
	return out.Bytes()
}

// wantInnerEntity independently parses nestedInnerMessage so the nested-
// message tests can compare a genuinely parsed entity rather than one
// hand-built from Entity's unexported fields.
func wantInnerEntity(t *testing.T) *mimetools.Entity {
	t.Helper()
	p := newParser(t, mimetools.ParserConfig{})
	e, err := p.Parse(strings.NewReader(nestedInnerMessage))
	if err != nil {
		t.Fatalf("Parse(nestedInnerMessage): %v", err)
	}
	return e
}

func TestNestedMessageRfc822Nest(t *testing.T) {
	raw := buildNestedMessage(t)
	p := newParser(t, mimetools.ParserConfig{NestedMessageMode: mimetools.NestedNest})
	root, err := p.Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(root.Parts()) != 1 {
		t.Fatalf("root has %d parts, want 1", len(root.Parts()))
	}
	envelope := root.Part(0)
	typ, sub := envelope.ContentType()
	if typ != "message" || sub != "rfc822" {
		t.Fatalf("envelope type == %s/%s, want message/rfc822", typ, sub)
	}
	if len(envelope.Parts()) != 1 {
		t.Fatalf("envelope has %d children, want 1", len(envelope.Parts()))
	}
	grandchild := envelope.Part(0)
	itest.CompareEntity(t, grandchild, wantInnerEntity(t))
	if got := itest.BodyBytes(t, grandchild); string(got) != "Inner\n" {
		t.Errorf("grandchild body == %q, want %q", got, "Inner\n")
	}
}

func TestNestedMessageRfc822Replace(t *testing.T) {
	raw := buildNestedMessage(t)
	p := newParser(t, mimetools.ParserConfig{NestedMessageMode: mimetools.NestedReplace})
	root, err := p.Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(root.Parts()) != 1 {
		t.Fatalf("root has %d parts, want 1", len(root.Parts()))
	}
	child := root.Part(0)
	itest.CompareEntity(t, child, wantInnerEntity(t))
	if got := itest.BodyBytes(t, child); string(got) != "Inner\n" {
		t.Errorf("child body == %q, want %q", got, "Inner\n")
	}
}

// Depth limit: a multipart nested deeper than MaxDepth fails with TooDeep.
func TestDepthLimitExceeded(t *testing.T) {
	const maxDepth = 3
	var buf bytes.Buffer
	for i := 0; i < maxDepth+2; i++ {
		fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=b%d\n\n--b%d\n", i, i)
	}
	buf.WriteString("Content-Type: text/plain\n\nleaf\n")
	for i := maxDepth + 1; i >= 0; i-- {
		fmt.Fprintf(&buf, "--b%d--\n", i)
	}

	p := newParser(t, mimetools.ParserConfig{MaxDepth: maxDepth})
	_, err := p.Parse(bytes.NewReader(buf.Bytes()))
	if err == nil {
		t.Fatal("Parse succeeded, want TooDeep error")
	}
	var tooDeep *mimetools.TooDeep
	if !stderrors.As(err, &tooDeep) {
		t.Errorf("error == %v, want *mimetools.TooDeep", err)
	}
}

// The boundary appears at the very start of a part's body, so the held
// end-of-line is empty and nothing is written for that part.
func TestBoundaryAtStartOfBody(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=b\n\n" +
		"--b\n" +
		"Content-Type: text/plain\n\n" +
		"--b--\n"
	p := newParser(t, mimetools.ParserConfig{})
	e, err := p.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(e.Parts()) != 1 {
		t.Fatalf("root has %d parts, want 1", len(e.Parts()))
	}
	rc, err := e.Part(0).BodySink().OpenRead()
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()
	itest.ContentEqualsString(t, rc, "")
}

// Unknown transfer encoding falls back to binary rather than failing.
func TestUnknownEncodingFallsBackToBinary(t *testing.T) {
	var warned []string
	p := newParser(t, mimetools.ParserConfig{
		Warn: func(kind string, args ...interface{}) { warned = append(warned, kind) },
	})
	raw := "Content-Type: application/octet-stream\n" +
		"Content-Transfer-Encoding: x-made-up\n\n" +
		"raw bytes\n"
	e, err := p.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rc, err := e.BodySink().OpenRead()
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	itest.ContentEqualsString(t, rc, "raw bytes\n")
	rc.Close()
	found := false
	for _, k := range warned {
		if k == "unknown-encoding" {
			found = true
		}
	}
	if !found {
		t.Errorf("warned kinds == %v, want to include unknown-encoding", warned)
	}
}

// A multipart header with no boundary parameter fails with MissingBoundary.
func TestParserMissingBoundary(t *testing.T) {
	p := newParser(t, mimetools.ParserConfig{})
	raw := "Content-Type: multipart/mixed\n\nanything\n"
	_, err := p.Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("Parse succeeded, want MissingBoundary error")
	}
	var missing *mimetools.MissingBoundary
	if !stderrors.As(err, &missing) {
		t.Errorf("error == %v, want *mimetools.MissingBoundary", err)
	}
}

// The preamble runs straight into the closing delimiter with no delimiter
// line in between, so the multipart container has no parts at all.
func TestParserEmptyMultipart(t *testing.T) {
	p := newParser(t, mimetools.ParserConfig{})
	raw := "Content-Type: multipart/mixed; boundary=b\n\n--b--\n"
	_, err := p.Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("Parse succeeded, want EmptyMultipart error")
	}
	var empty *mimetools.EmptyMultipart
	if !stderrors.As(err, &empty) {
		t.Errorf("error == %v, want *mimetools.EmptyMultipart", err)
	}
}

// Input ends mid-part, before its closing boundary is ever seen.
func TestParserTruncatedMidPart(t *testing.T) {
	p := newParser(t, mimetools.ParserConfig{})
	raw := "Content-Type: multipart/mixed; boundary=b\n\n" +
		"--b\n" +
		"Content-Type: text/plain\n\n" +
		"truncated body with no closing boundary"
	_, err := p.Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("Parse succeeded, want UnexpectedEOF error")
	}
	var eof *mimetools.UnexpectedEOF
	if !stderrors.As(err, &eof) {
		t.Errorf("error == %v, want *mimetools.UnexpectedEOF", err)
	}
}

// erroringReader always fails, for exercising IOFailed end to end.
type erroringReader struct{ err error }

func (r erroringReader) Read(p []byte) (int, error) { return 0, r.err }

func TestParserSurfacesIOFailed(t *testing.T) {
	p := newParser(t, mimetools.ParserConfig{})
	_, err := p.Parse(erroringReader{err: fmt.Errorf("simulated read failure")})
	if err == nil {
		t.Fatal("Parse succeeded, want IOFailed error")
	}
	var ioErr *mimetools.IOFailed
	if !stderrors.As(err, &ioErr) {
		t.Errorf("error == %v, want *mimetools.IOFailed", err)
	}
}
