package rest

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/present/rest/presenter"
	"github.com/totegamma/metacatalog/internal/usecase"
)

// MetadataService is the lifecycle surface served over HTTP.
type MetadataService interface {
	CreateFromTemplate(ctx context.Context, input usecase.CreateInput) (*domain.MetadataRecord, error)
	InsertRaw(ctx context.Context, input usecase.RawInsertInput) (*domain.MetadataRecord, error)
	Update(ctx context.Context, id int64, body string, opts usecase.UpdateOptions) (*usecase.UpdateResult, error)
	Delete(ctx context.Context, id int64) error
	UpdateOwner(ctx context.Context, id int64, owner domain.UserID, groupOwner int64) error
	UpdateChildren(ctx context.Context, parentUUID string, parentID int64, childIDs []int64, params map[string]string) (map[int64]struct{}, error)
	Get(ctx context.Context, id int64, opts usecase.GetOptions) (*usecase.MetadataView, error)
}

// Authorizer checks the requester of the context against one record.
type Authorizer interface {
	CanView(ctx context.Context, id int64) (bool, error)
	CanEdit(ctx context.Context, id int64) (bool, error)
	CanChangeOwner(ctx context.Context, id int64) (bool, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, force bool) (usecase.ReconcileResult, error)
}

type Handler struct {
	metadata   MetadataService
	authorizer Authorizer
	reconciler Reconciler
	indexer    usecase.BatchIndexer
	siteID     string
}

func NewHandler(
	siteID string,
	metadata MetadataService,
	authorizer Authorizer,
	reconciler Reconciler,
	indexer usecase.BatchIndexer,
) *Handler {
	return &Handler{
		metadata:   metadata,
		authorizer: authorizer,
		reconciler: reconciler,
		indexer:    indexer,
		siteID:     siteID,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/records", h.handleCreate)
	e.POST("/api/records/raw", h.handleInsertRaw)
	e.GET("/api/records/:id", h.handleGet)
	e.PUT("/api/records/:id", h.handleUpdate)
	e.DELETE("/api/records/:id", h.handleDelete)
	e.PUT("/api/records/:id/owner", h.handleUpdateOwner)
	e.POST("/api/records/:id/children", h.handleUpdateChildren)
	e.POST("/api/admin/index", h.handleIndex)
	e.POST("/api/admin/index/reconcile", h.handleReconcile)
}

type createRequest struct {
	TemplateID int64  `json:"templateId"`
	GroupOwner int64  `json:"groupOwner"`
	ParentUUID string `json:"parentUuid"`
	IsTemplate string `json:"isTemplate"`
	FullRights bool   `json:"fullRights"`
	UUID       string `json:"uuid"`
}

type insertRequest struct {
	Schema      string `json:"schema"`
	UUID        string `json:"uuid"`
	IsTemplate  string `json:"isTemplate"`
	Body        string `json:"body"`
	DocType     string `json:"docType"`
	Category    string `json:"category"`
	CreateDate  string `json:"createDate"`
	ChangeDate  string `json:"changeDate"`
	SourceID    string `json:"sourceId"`
	GroupOwner  *int64 `json:"groupOwner"`
	FixedInfo   bool   `json:"fixedInfo"`
	Index       bool   `json:"index"`
	IsHarvested bool   `json:"isHarvested"`
	HarvestUUID string `json:"harvestUuid"`
}

type ownerRequest struct {
	Owner      domain.UserID `json:"owner"`
	GroupOwner int64         `json:"groupOwner"`
}

type childrenRequest struct {
	ParentUUID string            `json:"parentUuid"`
	Children   []int64           `json:"children"`
	Params     map[string]string `json:"params"`
}

type recordResponse struct {
	Record  *domain.MetadataRecord    `json:"record"`
	Body    string                    `json:"body,omitempty"`
	Info    *usecase.MetadataInfo     `json:"info,omitempty"`
	Reports []domain.ValidationReport `json:"reports,omitempty"`
}

func requireUser(c echo.Context) (*domain.Session, bool) {
	session := domain.SessionFrom(c.Request().Context())
	return session, session.Authenticated()
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func queryBool(c echo.Context, name string, def bool) bool {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (h *Handler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()
	session, ok := requireUser(c)
	if !ok {
		return presenter.Unauthorized(c, "authentication required")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	kind, err := metacatalog.LookupMetadataType(req.IsTemplate)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	record, err := h.metadata.CreateFromTemplate(ctx, usecase.CreateInput{
		TemplateID:         req.TemplateID,
		GroupOwner:         req.GroupOwner,
		SourceID:           h.siteID,
		Owner:              session.User.ID,
		ParentUUID:         req.ParentUUID,
		Type:               kind,
		FullRightsForGroup: req.FullRights,
		UUID:               req.UUID,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, record)
}

func (h *Handler) handleInsertRaw(c echo.Context) error {
	ctx := c.Request().Context()
	session, ok := requireUser(c)
	if !ok {
		return presenter.Unauthorized(c, "authentication required")
	}

	var req insertRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Schema == "" || req.Body == "" {
		return presenter.BadRequestMessage(c, "schema and body are required")
	}
	kind, err := metacatalog.LookupMetadataType(req.IsTemplate)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	record, err := h.metadata.InsertRaw(ctx, usecase.RawInsertInput{
		SchemaID:    req.Schema,
		UUID:        req.UUID,
		Type:        kind,
		Body:        req.Body,
		DocType:     req.DocType,
		Category:    req.Category,
		CreateDate:  req.CreateDate,
		ChangeDate:  req.ChangeDate,
		SourceID:    req.SourceID,
		Owner:       session.User.ID,
		GroupOwner:  req.GroupOwner,
		FixedInfo:   req.FixedInfo,
		Index:       req.Index,
		IsHarvested: req.IsHarvested,
		HarvestUUID: req.HarvestUUID,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, record)
}

func (h *Handler) handleGet(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := pathID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	allowed, err := h.authorizer.CanView(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	if !allowed {
		return presenter.Forbidden(c, "view privilege required")
	}

	lang := c.QueryParam("lang")
	if lang == "" {
		if session := domain.SessionFrom(ctx); session != nil {
			lang = session.Lang
		}
	}

	view, err := h.metadata.Get(ctx, id, usecase.GetOptions{
		ForEditing:     queryBool(c, "editing", false),
		WithInfo:       queryBool(c, "info", true),
		WithValidation: queryBool(c, "validate", false),
		Lang:           lang,
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "xml") {
		return presenter.XML(c, view.Body)
	}
	return presenter.OK(c, recordResponse{
		Record:  view.Record,
		Body:    view.Body,
		Info:    view.Info,
		Reports: view.Reports,
	})
}

func (h *Handler) handleUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	session, ok := requireUser(c)
	if !ok {
		return presenter.Unauthorized(c, "authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	allowed, err := h.authorizer.CanEdit(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	if !allowed {
		return presenter.Forbidden(c, "edit privilege required")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if len(body) == 0 {
		return presenter.BadRequestMessage(c, "empty body")
	}

	result, err := h.metadata.Update(ctx, id, string(body), usecase.UpdateOptions{
		Validate:        queryBool(c, "validate", false),
		FixedInfo:       queryBool(c, "fixedInfo", true),
		Index:           queryBool(c, "index", true),
		Lang:            session.Lang,
		ChangeDate:      c.QueryParam("changeDate"),
		UpdateDateStamp: queryBool(c, "updateDateStamp", true),
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, recordResponse{Record: result.Record, Reports: result.Reports})
}

func (h *Handler) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()
	if _, ok := requireUser(c); !ok {
		return presenter.Unauthorized(c, "authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	allowed, err := h.authorizer.CanEdit(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	if !allowed {
		return presenter.Forbidden(c, "edit privilege required")
	}

	if err := h.metadata.Delete(ctx, id); err != nil {
		return presenter.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) handleUpdateOwner(c echo.Context) error {
	ctx := c.Request().Context()
	if _, ok := requireUser(c); !ok {
		return presenter.Unauthorized(c, "authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	allowed, err := h.authorizer.CanChangeOwner(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	if !allowed {
		return presenter.Forbidden(c, "owner privilege required")
	}

	var req ownerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.metadata.UpdateOwner(ctx, id, req.Owner, req.GroupOwner); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleUpdateChildren(c echo.Context) error {
	ctx := c.Request().Context()
	if _, ok := requireUser(c); !ok {
		return presenter.Unauthorized(c, "authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	allowed, err := h.authorizer.CanEdit(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	if !allowed {
		return presenter.Forbidden(c, "edit privilege required")
	}

	var req childrenRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.ParentUUID == "" {
		return presenter.BadRequestMessage(c, "parentUuid is required")
	}

	untouched, err := h.metadata.UpdateChildren(ctx, req.ParentUUID, id, req.Children, req.Params)
	if err != nil {
		return presenter.Error(c, err)
	}

	ids := make([]int64, 0, len(untouched))
	for child := range untouched {
		ids = append(ids, child)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return presenter.OK(c, echo.Map{"untouched": ids})
}

func (h *Handler) handleIndex(c echo.Context) error {
	ctx := c.Request().Context()
	session, ok := requireUser(c)
	if !ok {
		return presenter.Unauthorized(c, "authentication required")
	}
	if session.User.Profile != domain.ProfileAdministrator {
		return presenter.Forbidden(c, "administrator required")
	}

	var ids []int64
	if err := c.Bind(&ids); err != nil {
		return presenter.BadRequest(c, err)
	}
	h.indexer.IndexInBackground(ctx, ids)
	return c.JSON(http.StatusAccepted, echo.Map{"scheduled": len(ids)})
}

func (h *Handler) handleReconcile(c echo.Context) error {
	ctx := c.Request().Context()
	session, ok := requireUser(c)
	if !ok {
		return presenter.Unauthorized(c, "authentication required")
	}
	if session.User.Profile != domain.ProfileAdministrator {
		return presenter.Forbidden(c, "administrator required")
	}

	result, err := h.reconciler.Reconcile(ctx, queryBool(c, "force", false))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{
		"scheduled": len(result.Scheduled),
		"deleted":   len(result.Deleted),
	})
}
