// Package test provides comparison and content-assertion helpers shared by
// this module's test files, built against Entity.
package test

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/go-mimetools/mime"
)

// EntityExists is syntactic sugar for CompareEntity callers that only
// care whether a child is present, not its exact shape.
var EntityExists = &mime.Entity{}

// CompareEntity compares the externally visible attributes of two
// entities, returning true if they are equal. t.Errorf is called for
// each field that differs. Only the part count of children is checked,
// not their contents; callers that need to walk deeper do so themselves.
func CompareEntity(t *testing.T, got, want *mime.Entity) (equal bool) {
	t.Helper()
	if got == nil && want != nil {
		t.Error("Entity == nil, want not nil")
		return false
	}
	if got != nil && want == nil {
		t.Error("Entity != nil, want nil")
		return false
	}
	if got == nil && want == nil {
		return true
	}
	equal = true

	gtyp, gsub := got.ContentType()
	wtyp, wsub := want.ContentType()
	if want != EntityExists {
		if gtyp != wtyp || gsub != wsub {
			equal = false
			t.Errorf("Entity.ContentType == %s/%s, want: %s/%s", gtyp, gsub, wtyp, wsub)
		}
		if w, g := len(want.Parts()), len(got.Parts()); w != g {
			equal = false
			t.Errorf("Entity.Parts has %d parts, wanted %d", g, w)
		}
		if (got.BodySink() == nil) != (want.BodySink() == nil) {
			equal = false
			t.Errorf("Entity.BodySink() present == %v, want: %v", got.BodySink() != nil, want.BodySink() != nil)
		}
	}
	return equal
}

// BodyBytes reads an entity's body sink to completion. It fails the test
// with t.Fatal on error since it is only ever used to set up test
// assertions.
func BodyBytes(t *testing.T, e *mime.Entity) []byte {
	t.Helper()
	if e.BodySink() == nil {
		t.Fatal("Entity has no body sink")
	}
	rc, err := e.BodySink().OpenRead()
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()
	b, err := ioutil.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return b
}

// ContentContainsString checks that the provided reader's content
// contains the given substring.
func ContentContainsString(t *testing.T, r io.Reader, substr string) {
	t.Helper()
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Error(err)
	}
	if !strings.Contains(string(got), substr) {
		t.Errorf("content == %q, should contain: %q", string(got), substr)
	}
}

// ContentEqualsString checks that the provided reader's content is
// exactly the given string.
func ContentEqualsString(t *testing.T, r io.Reader, str string) {
	t.Helper()
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Error(err)
	}
	if string(got) != str {
		t.Errorf("content == %q, want: %q", string(got), str)
	}
}

// ContentEqualsBytes checks that the provided reader's content is exactly
// the given bytes.
func ContentEqualsBytes(t *testing.T, r io.Reader, want []byte) {
	t.Helper()
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("content:\n%v, want:\n%v", got, want)
	}
}
