package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/schemas"
)

var tracer = otel.Tracer("usecase")

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// FixedInfoRequest is the input of a fixed-info pass.
type FixedInfoRequest struct {
	SchemaID string
	// RecordID is nil while the record has not been stored yet.
	RecordID   *int64
	UUID       string
	Body       string
	ParentUUID string
	Stamp      domain.StampPolicy
}

// FixedInfoTransformer rewrites a record body through the schema's
// update-fixed-info stylesheet.
type FixedInfoTransformer struct {
	store    Store
	schemas  SchemaCatalog
	engine   TransformEngine
	thesauri ThesaurusProvider
	users    UserRepository
}

func NewFixedInfoTransformer(
	store Store,
	schemas SchemaCatalog,
	engine TransformEngine,
	thesauri ThesaurusProvider,
	users UserRepository,
) *FixedInfoTransformer {
	return &FixedInfoTransformer{
		store:    store,
		schemas:  schemas,
		engine:   engine,
		thesauri: thesauri,
		users:    users,
	}
}

func (t *FixedInfoTransformer) Normalize(ctx context.Context, settings domain.Settings, req FixedInfoRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Normalize")
	defer span.End()

	if !settings.AutofixingEnabled {
		slog.DebugContext(
			ctx, "autofixing is disabled, skipping fixed-info",
			slog.String("module", "fixedinfo"),
		)
		return req.Body, nil
	}

	var record *domain.MetadataRecord
	if req.RecordID != nil {
		found, err := t.store.FindByID(ctx, *req.RecordID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			return "", errors.Wrap(err, "failed to load record for fixed-info")
		}
		record = found
	}
	if record != nil && record.Type == metacatalog.TypeTemplate {
		return req.Body, nil
	}

	schema, err := t.schemas.Get(req.SchemaID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	body, err := metacatalog.ParseXML(req.Body)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	env, err := t.buildEnv(ctx, settings, schema, req, record)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	input := etree.NewDocument()
	root := input.CreateElement("root")
	root.AddChild(body.Root().Copy())
	root.AddChild(env)

	stylesheet := schemas.UpdateFixedInfo
	if record != nil && record.Type == metacatalog.TypeSubTemplate {
		stylesheet = schemas.UpdateFixedInfoSubtemplate
	}
	path, ok := t.schemas.Stylesheet(req.SchemaID, stylesheet)
	if !ok {
		slog.WarnContext(
			ctx, "fixed-info stylesheet missing, body left unchanged",
			slog.String("module", "fixedinfo"),
			slog.String("schema", req.SchemaID),
			slog.String("stylesheet", stylesheet),
		)
		return req.Body, nil
	}

	serialized, err := input.WriteToString()
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "failed to serialize fixed-info input")
	}

	out, err := t.engine.Apply(ctx, path, serialized, nil)
	if err != nil {
		err = domain.TransformFailureError{Stylesheet: stylesheet, Err: err}
		span.RecordError(err)
		return "", err
	}
	if _, err := metacatalog.ParseXML(out); err != nil {
		err = domain.TransformFailureError{Stylesheet: stylesheet, Err: err}
		span.RecordError(err)
		return "", err
	}

	return out, nil
}

func (t *FixedInfoTransformer) buildEnv(
	ctx context.Context,
	settings domain.Settings,
	schema schemas.Schema,
	req FixedInfoRequest,
	record *domain.MetadataRecord,
) (*etree.Element, error) {
	env := etree.NewElement("env")

	id := ""
	uuid := req.UUID
	if record != nil {
		id = strconv.FormatInt(record.ID, 10)
		if uuid == "" {
			uuid = record.UUID
		}
	}
	env.CreateElement("id").SetText(id)
	env.CreateElement("uuid").SetText(uuid)

	thesauri, err := t.thesauri.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot thesauri")
	}
	if thesauri != nil {
		env.AddChild(thesauri.Copy())
	}

	location := env.CreateElement("schemaLocation")
	location.CreateAttr("xmlns:xsi", xsiNamespace)
	location.CreateAttr("xsi:schemaLocation", schema.SchemaLocation)

	if req.Stamp == domain.StampYes {
		env.CreateElement("changeDate").SetText(metacatalog.NowISODate())
	}
	if req.ParentUUID != "" {
		env.CreateElement("parentUuid").SetText(req.ParentUUID)
	}
	if req.RecordID != nil {
		env.CreateElement("datadir").SetText(DataDirFor(settings.DataDir, *req.RecordID))
	}

	session := domain.SessionFrom(ctx)
	if userID, ok := session.UserID(); ok {
		user, err := t.users.FindByID(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrap(err, "failed to load session user")
		}
		if user != nil {
			details := env.CreateElement("user").CreateElement("details")
			details.CreateElement("surname").SetText(user.Surname)
			details.CreateElement("firstname").SetText(user.Name)
			details.CreateElement("organisation").SetText(user.Organisation)
			details.CreateElement("username").SetText(user.Username)
		}
	}

	node := settings.NodeID
	if session != nil && session.NodeID != "" {
		node = session.NodeID
	}
	env.CreateElement("siteURL").SetText(settings.SiteURL)
	env.CreateElement("nodeURL").SetText(settings.NodeURL)
	env.CreateElement("node").SetText(node)

	appendSettings(env, settings.Values)
	return env, nil
}

// appendSettings renders slash separated keys as nested elements, in key order
// so identical settings produce identical input.
func appendSettings(parent *etree.Element, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		el := parent
		for _, segment := range strings.Split(strings.Trim(key, "/"), "/") {
			if segment == "" {
				continue
			}
			child := el.SelectElement(segment)
			if child == nil {
				child = el.CreateElement(segment)
			}
			el = child
		}
		if el != parent {
			el.SetText(values[key])
		}
	}
}

// DataDirFor returns the private data directory of a record. Records are
// bucketed by hundreds: 00100-00199/123/private.
func DataDirFor(base string, id int64) string {
	lower := (id / 100) * 100
	bucket := fmt.Sprintf("%05d-%05d", lower, lower+99)
	return filepath.Join(base, bucket, strconv.FormatInt(id, 10), "private")
}
