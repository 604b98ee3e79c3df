package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/utils"
	"github.com/totegamma/metacatalog/schemas"
)

// ChildPropagator copies constrained parts of a parent record into its children.
type ChildPropagator struct {
	store    Store
	schemas  SchemaCatalog
	engine   TransformEngine
	access   AccessPolicy
	notifier Notifier
	settings SettingsProvider
	indexer  *Indexer
	locks    *utils.KeyedMutex
}

func NewChildPropagator(
	store Store,
	schemas SchemaCatalog,
	engine TransformEngine,
	access AccessPolicy,
	notifier Notifier,
	settings SettingsProvider,
	indexer *Indexer,
	locks *utils.KeyedMutex,
) *ChildPropagator {
	return &ChildPropagator{
		store:    store,
		schemas:  schemas,
		engine:   engine,
		access:   access,
		notifier: notifier,
		settings: settings,
		indexer:  indexer,
		locks:    locks,
	}
}

// Propagate updates every child the requester may edit and whose schema
// matches the parent's. It returns the ids left untouched. params are passed
// to the stylesheet; params["schema"] overrides the parent schema.
func (p *ChildPropagator) Propagate(
	ctx context.Context,
	parentUUID string,
	parentID int64,
	childIDs []int64,
	params map[string]string,
) (map[int64]struct{}, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Propagate")
	defer span.End()

	settings, err := p.settings.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to snapshot settings")
	}

	parent, err := p.store.FindByID(ctx, parentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	parentDoc, err := metacatalog.ParseXML(parent.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	schemaID := parent.SchemaID
	if s := params["schema"]; s != "" {
		schemaID = s
	}
	stylesheet, ok := p.schemas.Stylesheet(schemaID, schemas.UpdateChildFromParentInfo)
	if !ok {
		err := domain.TransformFailureError{
			Stylesheet: schemas.UpdateChildFromParentInfo,
			Err:        errors.Errorf("stylesheet not found for schema %s", schemaID),
		}
		span.RecordError(err)
		return nil, err
	}

	session := domain.SessionFrom(ctx)
	untouched := make(map[int64]struct{})

	for _, childID := range childIDs {
		canEdit, err := p.access.CanEdit(ctx, session, childID)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to check edit right")
		}
		if !canEdit {
			slog.InfoContext(
				ctx, "no edit right on child, skipping",
				slog.Int64("child", childID),
				slog.String("module", "children"),
			)
			untouched[childID] = struct{}{}
			continue
		}

		updated, err := p.propagateOne(ctx, settings, parentUUID, parentDoc, schemaID, stylesheet, childID, params)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !updated {
			untouched[childID] = struct{}{}
		}
	}

	return untouched, nil
}

func (p *ChildPropagator) propagateOne(
	ctx context.Context,
	settings domain.Settings,
	parentUUID string,
	parentDoc *etree.Document,
	schemaID string,
	stylesheet string,
	childID int64,
	params map[string]string,
) (bool, error) {
	unlock := p.locks.Lock(recordLockKey(childID))
	defer unlock()

	child, err := p.store.FindByID(ctx, childID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if child.SchemaID != schemaID {
		slog.InfoContext(
			ctx, "child schema differs from parent, skipping",
			slog.Int64("child", childID),
			slog.String("childSchema", child.SchemaID),
			slog.String("parentSchema", schemaID),
			slog.String("module", "children"),
		)
		return false, nil
	}

	childDoc, err := metacatalog.ParseXML(child.Body)
	if err != nil {
		return false, err
	}

	input := etree.NewDocument()
	root := input.CreateElement("root")
	root.CreateElement("child").AddChild(childDoc.Root().Copy())
	update := root.CreateElement("update")
	update.CreateElement("parentUuid").SetText(parentUUID)
	update.CreateElement("siteURL").SetText(settings.SiteURL)
	update.CreateElement("parent").AddChild(parentDoc.Root().Copy())

	serialized, err := input.WriteToString()
	if err != nil {
		return false, errors.Wrap(err, "failed to serialize propagation input")
	}

	out, err := p.engine.Apply(ctx, stylesheet, serialized, params)
	if err == nil {
		_, err = metacatalog.ParseXML(out)
	}
	if err != nil {
		return false, domain.TransformFailureError{Stylesheet: schemas.UpdateChildFromParentInfo, Err: err}
	}

	if _, err := p.store.Update(ctx, childID, domain.RecordUpdate{
		Body:            out,
		UpdateDateStamp: true,
	}); err != nil {
		return false, errors.Wrapf(err, "failed to store child %d", childID)
	}

	if err := p.indexer.IndexMetadata(ctx, childID, true); err != nil {
		return false, err
	}

	if err := p.notifier.OnChange(ctx, out, childID); err != nil {
		slog.WarnContext(
			ctx, "notifier failed",
			slog.Int64("id", childID),
			slog.String("error", err.Error()),
			slog.String("module", "children"),
		)
	}
	return true, nil
}

func recordLockKey(id int64) string {
	return "id:" + strconv.FormatInt(id, 10)
}

func uuidLockKey(uuid string) string {
	return "uuid:" + uuid
}
