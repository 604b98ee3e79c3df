package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/schemas"
)

func newTransformerFixture() (*FixedInfoTransformer, *mockStore, *mockEngine, *mockUsers) {
	store := newMockStore()
	engine := newMockEngine()
	users := &mockUsers{users: map[domain.UserID]*domain.User{
		7: {ID: 7, Username: "jdoe", Name: "John", Surname: "Doe", Organisation: "Survey"},
	}}
	return NewFixedInfoTransformer(store, newMockSchemas(), engine, mockThesauri{}, users), store, engine, users
}

func envOf(t *testing.T, input string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(input); err != nil {
		t.Fatalf("engine input does not parse: %v", err)
	}
	env := doc.Root().SelectElement("env")
	if env == nil {
		t.Fatalf("engine input has no env: %s", input)
	}
	return env
}

func TestNormalizeAutofixingDisabled(t *testing.T) {
	transformer, _, engine, _ := newTransformerFixture()
	settings := defaultSettings()
	settings.AutofixingEnabled = false

	body := isoBody("u-1", "title")
	out, err := transformer.Normalize(context.Background(), settings, FixedInfoRequest{
		SchemaID: schemas.ISO19139,
		UUID:     "other",
		Body:     body,
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if out != body {
		t.Fatalf("body must be unchanged when autofixing is disabled")
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine must not be called")
	}
}

func TestNormalizeTemplatePassesThrough(t *testing.T) {
	transformer, store, engine, _ := newTransformerFixture()
	store.put(domain.MetadataRecord{ID: 5, UUID: "tpl", Type: metacatalog.TypeTemplate, SchemaID: schemas.ISO19139})

	id := int64(5)
	body := isoBody("tpl", "template")
	out, err := transformer.Normalize(context.Background(), defaultSettings(), FixedInfoRequest{
		SchemaID: schemas.ISO19139,
		RecordID: &id,
		Body:     body,
		Stamp:    domain.StampYes,
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if out != body {
		t.Fatalf("template body must be returned unchanged")
	}
	if len(engine.calls) != 0 {
		t.Fatalf("templates are never transformed")
	}
}

func TestNormalizeEnvironment(t *testing.T) {
	transformer, store, engine, _ := newTransformerFixture()
	store.put(domain.MetadataRecord{ID: 123, UUID: "stored-uuid", Type: metacatalog.TypeStandard, SchemaID: schemas.ISO19139})

	ctx := domain.WithSession(context.Background(), &domain.Session{
		User:   &domain.User{ID: 7},
		NodeID: "srv",
	})
	id := int64(123)
	out, err := transformer.Normalize(ctx, defaultSettings(), FixedInfoRequest{
		SchemaID:   schemas.ISO19139,
		RecordID:   &id,
		Body:       isoBody("old", "title"),
		ParentUUID: "parent-1",
		Stamp:      domain.StampYes,
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !strings.Contains(out, "stored-uuid") {
		t.Fatalf("stored uuid should be used when none is given: %s", out)
	}

	calls := engine.callsTo(schemas.UpdateFixedInfo)
	if len(calls) != 1 {
		t.Fatalf("expected one update-fixed-info call, got %d", len(calls))
	}
	env := envOf(t, calls[0].input)

	checks := map[string]string{
		"id":                     "123",
		"uuid":                   "stored-uuid",
		"parentUuid":             "parent-1",
		"datadir":                "/data/metadata_data/00100-00199/123/private",
		"user/details/surname":   "Doe",
		"user/details/firstname": "John",
		"user/details/username":  "jdoe",
		"siteURL":                "http://localhost:8080/catalog/srv/",
		"node":                   "srv",
		"system/site/name":       "Catalog",
		"thesauri/thesaurus/key": "external.theme.inspire",
	}
	for path, expected := range checks {
		el := env.FindElement(path)
		if el == nil {
			t.Fatalf("env is missing %s", path)
		}
		if el.Text() != expected {
			t.Fatalf("env %s: expected %q got %q", path, expected, el.Text())
		}
	}
	if env.FindElement("changeDate") == nil {
		t.Fatalf("stamped request must carry a change date")
	}
	if loc := env.SelectElement("schemaLocation"); loc == nil || loc.SelectAttrValue("xsi:schemaLocation", "") == "" {
		t.Fatalf("schema location attribute missing")
	}
}

func TestNormalizeWithoutStampOrRecord(t *testing.T) {
	transformer, _, engine, _ := newTransformerFixture()

	_, err := transformer.Normalize(context.Background(), defaultSettings(), FixedInfoRequest{
		SchemaID: schemas.ISO19139,
		UUID:     "fresh",
		Body:     isoBody("", "title"),
		Stamp:    domain.StampNo,
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	env := envOf(t, engine.calls[0].input)
	if env.SelectElement("changeDate") != nil {
		t.Fatalf("change date must be absent without stamp")
	}
	if env.SelectElement("datadir") != nil {
		t.Fatalf("datadir needs a record id")
	}
	if env.SelectElement("user") != nil {
		t.Fatalf("anonymous requests carry no user details")
	}
	if env.SelectElement("uuid").Text() != "fresh" {
		t.Fatalf("caller uuid expected")
	}
}

func TestNormalizeSubTemplateStylesheet(t *testing.T) {
	transformer, store, engine, _ := newTransformerFixture()
	store.put(domain.MetadataRecord{ID: 9, UUID: "contact", Type: metacatalog.TypeSubTemplate, SchemaID: schemas.ISO19139})

	id := int64(9)
	if _, err := transformer.Normalize(context.Background(), defaultSettings(), FixedInfoRequest{
		SchemaID: schemas.ISO19139,
		RecordID: &id,
		Body:     isoBody("contact", "c"),
	}); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(engine.callsTo(schemas.UpdateFixedInfoSubtemplate)) != 1 {
		t.Fatalf("sub-templates use the sub-template stylesheet")
	}
}

func TestNormalizeTransformFailure(t *testing.T) {
	transformer, _, engine, _ := newTransformerFixture()
	engine.fail[schemas.UpdateFixedInfo] = errors.New("xsl:terminate")

	_, err := transformer.Normalize(context.Background(), defaultSettings(), FixedInfoRequest{
		SchemaID: schemas.ISO19139,
		UUID:     "u",
		Body:     isoBody("u", "t"),
	})
	if !errors.Is(err, domain.ErrTransformFailure) {
		t.Fatalf("expected transform failure, got %v", err)
	}
}

func TestDataDirFor(t *testing.T) {
	cases := map[int64]string{
		5:    "/d/00000-00099/5/private",
		123:  "/d/00100-00199/123/private",
		4200: "/d/04200-04299/4200/private",
	}
	for id, expected := range cases {
		if got := DataDirFor("/d", id); got != expected {
			t.Fatalf("id %d: expected %s got %s", id, expected, got)
		}
	}
}
