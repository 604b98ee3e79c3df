package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	cases := []struct {
		err    error
		target error
	}{
		{NotFoundError{Resource: "template"}, ErrNotFound},
		{SchemaNotAllowedError{Schema: "iso19139"}, ErrSchemaNotAllowed},
		{ReferencedDeletionBlockedError{UUID: "u"}, ErrReferencedDeletionBlocked},
		{TransformFailureError{Stylesheet: "a.xsl", Err: fmt.Errorf("boom")}, ErrTransformFailure},
		{ValidationFailureError{ID: 3, Err: fmt.Errorf("boom")}, ErrValidationFailure},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("op: %w", c.err)
		if !errors.Is(wrapped, c.target) {
			t.Fatalf("expected %T to match its sentinel", c.err)
		}
		if errors.Is(wrapped, ErrNotFound) && c.target != ErrNotFound {
			t.Fatalf("%T must not match ErrNotFound", c.err)
		}
	}
}

func TestTransformFailureUnwrap(t *testing.T) {
	cause := fmt.Errorf("xsltproc exited 6")
	err := TransformFailureError{Stylesheet: "x.xsl", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("cause must be reachable")
	}
}

func TestSettingsServerURL(t *testing.T) {
	s := Settings{ServerProtocol: "http", ServerHost: "localhost", ServerPort: "80"}
	if got := s.ServerURL(); got != "http://localhost" {
		t.Fatalf("port 80 must be elided, got %s", got)
	}
	s.ServerPort = "8080"
	if got := s.ServerURL(); got != "http://localhost:8080" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestSettingsSchemaAllowed(t *testing.T) {
	s := Settings{}
	if !s.SchemaAllowed("anything") {
		t.Fatalf("empty restriction allows every schema")
	}
	s.ImportRestrictionSchemas = []string{"iso19139"}
	if s.SchemaAllowed("dublin-core") {
		t.Fatalf("dublin-core should be rejected")
	}
	if !s.SchemaAllowed("iso19139") {
		t.Fatalf("iso19139 should be allowed")
	}
}

func TestAddCategoriesUniqueByName(t *testing.T) {
	r := MetadataRecord{Categories: []Category{{ID: 1, Name: "maps"}}}
	r.AddCategories(&Category{ID: 2, Name: "maps"}, nil, &Category{ID: 3, Name: "datasets"})
	if len(r.Categories) != 2 {
		t.Fatalf("expected 2 categories got %v", r.Categories)
	}
}
