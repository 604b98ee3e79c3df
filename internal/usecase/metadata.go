package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/metrics"
	"github.com/totegamma/metacatalog/internal/utils"
	"github.com/totegamma/metacatalog/schemas"
)

// RecordReader is the read capability handed to components built around the
// manager, such as the validator.
type RecordReader interface {
	Get(ctx context.Context, id int64, opts GetOptions) (*MetadataView, error)
}

// ValidatorFactory builds the validator once the manager exists.
type ValidatorFactory func(reader RecordReader) Validator

type CreateInput struct {
	TemplateID         int64
	GroupOwner         int64
	SourceID           string
	Owner              domain.UserID
	ParentUUID         string
	Type               metacatalog.MetadataType
	FullRightsForGroup bool
	// UUID is generated when empty.
	UUID string
}

type RawInsertInput struct {
	SchemaID    string
	UUID        string
	Type        metacatalog.MetadataType
	Body        string
	DocType     string
	Category    string
	CreateDate  string
	ChangeDate  string
	SourceID    string
	Owner       domain.UserID
	GroupOwner  *int64
	FixedInfo   bool
	Index       bool
	IsHarvested bool
	HarvestUUID string
}

type InsertOptions struct {
	Notify             bool
	Index              bool
	FixedInfo          bool
	Stamp              domain.StampPolicy
	FullRightsForGroup bool
	ForceRefresh       bool
}

type UpdateOptions struct {
	Validate        bool
	FixedInfo       bool
	Index           bool
	Lang            string
	ChangeDate      string
	UpdateDateStamp bool
}

type UpdateResult struct {
	Record  *domain.MetadataRecord
	Reports []domain.ValidationReport
}

type GetOptions struct {
	ForEditing     bool
	WithInfo       bool
	WithValidation bool
	Lang           string
}

// MetadataView is a record as served on the read path.
type MetadataView struct {
	Record  *domain.MetadataRecord
	Body    string
	Info    *MetadataInfo
	Reports []domain.ValidationReport
}

type MetadataManagerDeps struct {
	Store           Store
	Index           Index
	Indexer         *Indexer
	Transformer     *FixedInfoTransformer
	Guard           *IntegrityGuard
	Info            *InfoBuilder
	Children        *ChildPropagator
	Grants          GrantRepository
	Dependents      DependentsRepository
	Groups          GroupRepository
	Categories      CategoryRepository
	Settings        SettingsProvider
	Schemas         SchemaCatalog
	Engine          TransformEngine
	Notifier        Notifier
	ValidationCache ValidationReportCache
	NewValidator    ValidatorFactory
	Locks           *utils.KeyedMutex
	Metrics         *metrics.Metrics
}

// MetadataManager owns the create, update and delete paths of records and
// keeps store and index in step for each of them.
type MetadataManager struct {
	store           Store
	index           Index
	indexer         *Indexer
	transformer     *FixedInfoTransformer
	guard           *IntegrityGuard
	info            *InfoBuilder
	children        *ChildPropagator
	grants          GrantRepository
	dependents      DependentsRepository
	groups          GroupRepository
	categories      CategoryRepository
	settings        SettingsProvider
	schemas         SchemaCatalog
	engine          TransformEngine
	notifier        Notifier
	validationCache ValidationReportCache
	validator       Validator
	locks           *utils.KeyedMutex
	metrics         *metrics.Metrics
}

func NewMetadataManager(deps MetadataManagerDeps) *MetadataManager {
	locks := deps.Locks
	if locks == nil {
		locks = utils.NewKeyedMutex()
	}
	m := &MetadataManager{
		store:           deps.Store,
		index:           deps.Index,
		indexer:         deps.Indexer,
		transformer:     deps.Transformer,
		guard:           deps.Guard,
		info:            deps.Info,
		children:        deps.Children,
		grants:          deps.Grants,
		dependents:      deps.Dependents,
		groups:          deps.Groups,
		categories:      deps.Categories,
		settings:        deps.Settings,
		schemas:         deps.Schemas,
		engine:          deps.Engine,
		notifier:        deps.Notifier,
		validationCache: deps.ValidationCache,
		locks:           locks,
		metrics:         deps.Metrics,
	}
	if deps.NewValidator != nil {
		m.validator = deps.NewValidator(m)
	}
	return m
}

// CreateFromTemplate clones a template into a new record.
func (m *MetadataManager) CreateFromTemplate(ctx context.Context, input CreateInput) (_ *domain.MetadataRecord, err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.CreateFromTemplate")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("create", start, err) }(time.Now())

	settings, err := m.settings.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to snapshot settings")
	}

	template, err := m.store.FindByID(ctx, input.TemplateID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFoundError{Resource: "template"}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	recordUUID := input.UUID
	if recordUUID == "" {
		recordUUID = uuid.NewString()
	}

	body := template.Body
	if template.Type == metacatalog.TypeStandard {
		body, err = m.transformer.Normalize(ctx, settings, FixedInfoRequest{
			SchemaID:   template.SchemaID,
			UUID:       recordUUID,
			Body:       body,
			ParentUUID: input.ParentUUID,
			Stamp:      domain.StampNo,
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	kind := input.Type
	if kind == "" {
		kind = metacatalog.TypeStandard
	}

	now := metacatalog.NowISODate()
	groupOwner := input.GroupOwner
	record := domain.MetadataRecord{
		UUID:       recordUUID,
		Type:       kind,
		SchemaID:   template.SchemaID,
		DocType:    template.DocType,
		CreateDate: now,
		ChangeDate: now,
		SourceInfo: domain.SourceInfo{
			Owner:      input.Owner,
			GroupOwner: &groupOwner,
			SourceID:   input.SourceID,
		},
	}

	group, err := m.groups.FindByID(ctx, input.GroupOwner)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load group owner")
	}
	if group != nil {
		record.AddCategories(group.DefaultCategory)
	}
	for _, c := range template.Categories {
		record.AddCategories(&c)
	}

	return m.insert(ctx, settings, record, body, InsertOptions{
		Notify:             false,
		Index:              true,
		FixedInfo:          true,
		Stamp:              domain.StampYes,
		FullRightsForGroup: input.FullRightsForGroup,
		ForceRefresh:       true,
	})
}

// InsertRaw stores a record supplied as raw fields, e.g. by an import.
func (m *MetadataManager) InsertRaw(ctx context.Context, input RawInsertInput) (_ *domain.MetadataRecord, err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.InsertRaw")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("insert_raw", start, err) }(time.Now())

	settings, err := m.settings.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to snapshot settings")
	}

	kind := input.Type
	if kind == "" {
		kind = metacatalog.TypeStandard
	}
	source := input.SourceID
	if source == "" {
		source = settings.SiteID
	}
	now := metacatalog.NowISODate()
	createDate := input.CreateDate
	if createDate == "" {
		createDate = now
	}
	changeDate := input.ChangeDate
	if changeDate == "" {
		changeDate = now
	}

	record := domain.MetadataRecord{
		UUID:       input.UUID,
		Type:       kind,
		SchemaID:   input.SchemaID,
		DocType:    input.DocType,
		CreateDate: createDate,
		ChangeDate: changeDate,
		SourceInfo: domain.SourceInfo{
			Owner:      input.Owner,
			GroupOwner: input.GroupOwner,
			SourceID:   source,
		},
		HarvestInfo: domain.HarvestInfo{
			IsHarvested: input.IsHarvested,
			HarvestUUID: input.HarvestUUID,
		},
	}

	if input.Category != "" {
		category, err := m.categories.FindByName(ctx, input.Category)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		record.AddCategories(category)
	} else if input.GroupOwner != nil {
		group, err := m.groups.FindByID(ctx, *input.GroupOwner)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to load group owner")
		}
		if group != nil {
			record.AddCategories(group.DefaultCategory)
		}
	}

	return m.insert(ctx, settings, record, input.Body, InsertOptions{
		Notify:    true,
		Index:     input.Index,
		FixedInfo: input.FixedInfo,
		Stamp:     domain.StampNo,
	})
}

// Insert stores a new record and returns it with its assigned id.
func (m *MetadataManager) Insert(ctx context.Context, record domain.MetadataRecord, body string, opts InsertOptions) (_ *domain.MetadataRecord, err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Insert")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("insert", start, err) }(time.Now())

	settings, err := m.settings.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to snapshot settings")
	}
	return m.insert(ctx, settings, record, body, opts)
}

func (m *MetadataManager) insert(
	ctx context.Context,
	settings domain.Settings,
	record domain.MetadataRecord,
	body string,
	opts InsertOptions,
) (*domain.MetadataRecord, error) {
	if !record.HarvestInfo.IsHarvested && record.Type == metacatalog.TypeStandard && !settings.SchemaAllowed(record.SchemaID) {
		return nil, domain.SchemaNotAllowedError{Schema: record.SchemaID}
	}

	schema, err := m.schemas.Get(record.SchemaID)
	if err != nil {
		return nil, err
	}

	body, err = m.forcePrefix(ctx, schema, body)
	if err != nil {
		return nil, err
	}

	if record.UUID == "" {
		if doc, err := metacatalog.ParseXML(body); err == nil {
			record.UUID, _ = schema.ExtractUUID(doc)
		}
		if record.UUID == "" {
			record.UUID = uuid.NewString()
		}
	}

	unlockUUID := m.locks.Lock(uuidLockKey(record.UUID))
	defer unlockUUID()

	if opts.FixedInfo && record.Type == metacatalog.TypeStandard {
		body, err = m.transformer.Normalize(ctx, settings, FixedInfoRequest{
			SchemaID: record.SchemaID,
			UUID:     record.UUID,
			Body:     body,
			Stamp:    opts.Stamp,
		})
		if err != nil {
			return nil, err
		}
	}

	doc, err := metacatalog.ParseXML(body)
	if err != nil {
		return nil, err
	}
	record.Body = body
	record.Root = doc.Root().FullTag()
	if record.Title == "" {
		record.Title, _ = schema.ExtractTitle(doc)
	}
	if record.CreateDate == "" {
		record.CreateDate = metacatalog.NowISODate()
	}
	if record.ChangeDate == "" {
		record.ChangeDate = record.CreateDate
	}

	saved, err := m.store.Insert(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store record")
	}

	unlock := m.locks.Lock(recordLockKey(saved.ID))
	defer unlock()

	if saved.SourceInfo.GroupOwner != nil {
		if err := m.copyDefaultGrants(ctx, saved.ID, *saved.SourceInfo.GroupOwner, opts.FullRightsForGroup); err != nil {
			return nil, err
		}
	}

	if opts.Index {
		if err := m.indexer.IndexMetadata(ctx, saved.ID, opts.ForceRefresh); err != nil {
			return nil, err
		}
	}

	if opts.Notify {
		m.notifyChange(ctx, saved.Body, saved.ID)
	}

	slog.InfoContext(
		ctx, "record inserted",
		slog.Int64("id", saved.ID),
		slog.String("uuid", saved.UUID),
		slog.String("schema", saved.SchemaID),
		slog.String("module", "metadata"),
	)
	return saved, nil
}

// copyDefaultGrants gives the group owner view and notify, plus the remaining
// operations when full rights are requested. Reserved groups get nothing.
func (m *MetadataManager) copyDefaultGrants(ctx context.Context, id int64, group int64, fullRights bool) error {
	if domain.IsReservedGroup(group) {
		return nil
	}
	ops := []domain.Operation{domain.OpView, domain.OpNotify}
	if fullRights {
		ops = append(ops, domain.OpDownload, domain.OpEditing, domain.OpDynamic, domain.OpFeatured)
	}
	grants := make([]domain.OperationGrant, 0, len(ops))
	for _, op := range ops {
		grants = append(grants, domain.OperationGrant{MetadataID: id, GroupID: group, Operation: op})
	}
	return errors.Wrap(m.grants.Grant(ctx, grants...), "failed to grant default operations")
}

// Update rewrites the body of a stored record.
func (m *MetadataManager) Update(ctx context.Context, id int64, body string, opts UpdateOptions) (_ *UpdateResult, err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Update")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("update", start, err) }(time.Now())

	unlock := m.locks.Lock(recordLockKey(id))
	defer unlock()

	settings, err := m.settings.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to snapshot settings")
	}

	if err := m.validationCache.Clear(ctx, id); err != nil {
		slog.WarnContext(
			ctx, "failed to clear validation report cache",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
			slog.String("module", "metadata"),
		)
	}

	current, err := m.store.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	schema, err := m.schemas.Get(current.SchemaID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	keepsUUID := schema.ReadWriteUUID &&
		current.Type != metacatalog.TypeSubTemplate &&
		current.Type != metacatalog.TypeTemplateOfSubTemplate

	if opts.FixedInfo {
		recordUUID := ""
		if keepsUUID {
			doc, err := metacatalog.ParseXML(body)
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
			recordUUID, _ = schema.ExtractUUID(doc)
		}
		stamp := domain.StampNo
		if opts.UpdateDateStamp {
			stamp = domain.StampYes
		}
		body, err = m.transformer.Normalize(ctx, settings, FixedInfoRequest{
			SchemaID: current.SchemaID,
			RecordID: &id,
			UUID:     recordUUID,
			Body:     body,
			Stamp:    stamp,
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	body, err = m.forcePrefix(ctx, schema, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	doc, err := metacatalog.ParseXML(body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	update := domain.RecordUpdate{
		Body:            body,
		ChangeDate:      opts.ChangeDate,
		UpdateDateStamp: opts.UpdateDateStamp,
	}
	update.Title, _ = schema.ExtractTitle(doc)
	if keepsUUID {
		update.UUID, _ = schema.ExtractUUID(doc)
	}

	updated, err := m.store.Update(ctx, id, update)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to update record")
	}

	result := &UpdateResult{}
	var validationErr, indexErr error
	func() {
		defer func() {
			if opts.Index {
				indexErr = m.indexer.IndexMetadata(ctx, id, true)
			}
		}()
		if !opts.Validate || m.validator == nil || domain.SessionFrom(ctx) == nil {
			return
		}
		reports, err := m.validator.Validate(ctx, current.SchemaID, id, body, opts.Lang)
		if err != nil {
			validationErr = domain.ValidationFailureError{ID: id, Err: err}
			return
		}
		result.Reports = reports
	}()
	if indexErr != nil {
		span.RecordError(indexErr)
		return nil, indexErr
	}

	// subscribers only hear about changes the index already reflects
	m.notifyChange(ctx, body, id)

	if current.Type == metacatalog.TypeSubTemplate {
		if !opts.Index {
			if err := m.indexer.IndexMetadata(ctx, id, true); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		referencing, err := m.guard.Referencing(ctx, updated, ReferencingUpdateLimit)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := m.indexer.Enqueue(ctx, referencing...); err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to queue referencing records")
		}
	}

	if validationErr != nil {
		span.RecordError(validationErr)
		return nil, validationErr
	}

	result.Record, err = m.store.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// Delete removes a record with its dependent rows and index document.
func (m *MetadataManager) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Delete")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("delete", start, err) }(time.Now())

	err = m.delete(ctx, id, true)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// DeleteGroup deletes one record as part of a batch. No deletion is published.
func (m *MetadataManager) DeleteGroup(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.DeleteGroup")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("delete_group", start, err) }(time.Now())

	err = m.delete(ctx, id, false)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (m *MetadataManager) delete(ctx context.Context, id int64, notify bool) error {
	unlock := m.locks.Lock(recordLockKey(id))
	defer unlock()

	settings, err := m.settings.Snapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to snapshot settings")
	}

	record, err := m.store.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		if derr := m.index.Delete(ctx, id); derr != nil {
			slog.WarnContext(
				ctx, "failed to purge stale index document",
				slog.Int64("id", id),
				slog.String("error", derr.Error()),
				slog.String("module", "metadata"),
			)
		}
		return err
	}
	if err != nil {
		return err
	}

	if err := m.guard.CheckDeletable(ctx, settings, record); err != nil {
		return err
	}

	if err := m.deleteDependents(ctx, record); err != nil {
		return err
	}
	if err := m.index.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "failed to delete index document")
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "failed to delete record")
	}

	if notify && record.Type == metacatalog.TypeStandard {
		if err := m.notifier.OnDelete(ctx, id, record.UUID); err != nil {
			slog.WarnContext(
				ctx, "notifier failed",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
				slog.String("module", "metadata"),
			)
		}
	}

	slog.InfoContext(
		ctx, "record deleted",
		slog.Int64("id", id),
		slog.String("uuid", record.UUID),
		slog.String("module", "metadata"),
	)
	return nil
}

func (m *MetadataManager) deleteDependents(ctx context.Context, record *domain.MetadataRecord) error {
	if err := m.grants.DeleteByMetadataID(ctx, record.ID); err != nil {
		return errors.Wrap(err, "failed to delete grants")
	}
	if err := m.dependents.DeleteRatings(ctx, record.ID); err != nil {
		return errors.Wrap(err, "failed to delete ratings")
	}
	if err := m.dependents.DeleteValidations(ctx, record.ID); err != nil {
		return errors.Wrap(err, "failed to delete validations")
	}
	if err := m.dependents.DeleteStatuses(ctx, record.ID); err != nil {
		return errors.Wrap(err, "failed to delete statuses")
	}
	if err := m.dependents.DeleteSavedSelections(ctx, record.UUID); err != nil {
		return errors.Wrap(err, "failed to delete saved selections")
	}
	if err := m.dependents.SoftDeleteFileUploads(ctx, record.ID, metacatalog.NowISODate()); err != nil {
		return errors.Wrap(err, "failed to mark file uploads deleted")
	}
	return nil
}

// UpdateOwner changes ownership in place. The body and the index are untouched.
func (m *MetadataManager) UpdateOwner(ctx context.Context, id int64, owner domain.UserID, groupOwner int64) (err error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.UpdateOwner")
	defer span.End()
	defer func(start time.Time) { m.metrics.ObserveOp("update_owner", start, err) }(time.Now())

	unlock := m.locks.Lock(recordLockKey(id))
	defer unlock()

	err = m.store.UpdateOwner(ctx, id, owner, groupOwner)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// UpdateChildren propagates the parent record to its children.
func (m *MetadataManager) UpdateChildren(
	ctx context.Context,
	parentUUID string,
	parentID int64,
	childIDs []int64,
	params map[string]string,
) (_ map[int64]struct{}, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("update_children", start, err) }(time.Now())
	return m.children.Propagate(ctx, parentUUID, parentID, childIDs, params)
}

// Get reads a record for display or editing.
func (m *MetadataManager) Get(ctx context.Context, id int64, opts GetOptions) (*MetadataView, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Get")
	defer span.End()

	record, err := m.store.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	view := &MetadataView{Record: record, Body: record.Body}
	version := ""

	if opts.ForEditing {
		version = strconv.FormatUint(xxh3.HashString(record.Body), 16)
		if path, ok := m.schemas.Stylesheet(record.SchemaID, schemas.InflateMetadata); ok {
			inflated, err := m.engine.Apply(ctx, path, record.Body, nil)
			if err != nil {
				err = domain.TransformFailureError{Stylesheet: schemas.InflateMetadata, Err: err}
				span.RecordError(err)
				return nil, err
			}
			view.Body = inflated
		}
		if opts.WithValidation && m.validator != nil {
			reports, err := m.validator.Validate(ctx, record.SchemaID, id, view.Body, opts.Lang)
			if err != nil {
				err = domain.ValidationFailureError{ID: id, Err: err}
				span.RecordError(err)
				return nil, err
			}
			view.Reports = reports
		}
	}

	if opts.WithInfo {
		settings, err := m.settings.Snapshot(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to snapshot settings")
		}
		view.Info, err = m.info.Build(ctx, settings, record, version, opts.Lang)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	return view, nil
}

// forcePrefix rewrites a default namespace on the root into the schema's
// canonical prefix.
func (m *MetadataManager) forcePrefix(ctx context.Context, schema schemas.Schema, body string) (string, error) {
	doc, err := metacatalog.ParseXML(body)
	if err != nil {
		return "", err
	}
	unknown, changed, err := metacatalog.ForceNamespacePrefix(doc, schema.PrefixFor)
	if err != nil {
		slog.WarnContext(
			ctx, "conflicting namespace prefix, leaving the body",
			slog.String("error", err.Error()),
			slog.String("schema", schema.ID),
			slog.String("module", "metadata"),
		)
		return body, nil
	}
	if unknown != "" {
		slog.WarnContext(
			ctx, "no prefix known for default namespace, leaving it",
			slog.String("namespace", unknown),
			slog.String("schema", schema.ID),
			slog.String("module", "metadata"),
		)
	}
	if !changed {
		return body, nil
	}
	return metacatalog.WriteXML(doc)
}

func (m *MetadataManager) notifyChange(ctx context.Context, body string, id int64) {
	if err := m.notifier.OnChange(ctx, body, id); err != nil {
		slog.WarnContext(
			ctx, "notifier failed",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
			slog.String("module", "metadata"),
		)
	}
}
