package usecase

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/utils"
	"github.com/totegamma/metacatalog/schemas"
)

const (
	gmdNS = "http://www.isotc211.org/2005/gmd"
	gcoNS = "http://www.isotc211.org/2005/gco"
)

func isoBody(uuid, title string) string {
	return `<gmd:MD_Metadata xmlns:gmd="` + gmdNS + `" xmlns:gco="` + gcoNS + `" xmlns:xlink="` + metacatalog.XLinkNamespace + `">` +
		`<gmd:fileIdentifier><gco:CharacterString>` + uuid + `</gco:CharacterString></gmd:fileIdentifier>` +
		`<gmd:identificationInfo><gmd:MD_DataIdentification><gmd:citation><gmd:CI_Citation><gmd:title>` +
		`<gco:CharacterString>` + title + `</gco:CharacterString>` +
		`</gmd:title></gmd:CI_Citation></gmd:citation></gmd:MD_DataIdentification></gmd:identificationInfo>` +
		`</gmd:MD_Metadata>`
}

func isoBodyReferencing(uuid, target string) string {
	return `<gmd:MD_Metadata xmlns:gmd="` + gmdNS + `" xmlns:gco="` + gcoNS + `" xmlns:xlink="` + metacatalog.XLinkNamespace + `">` +
		`<gmd:fileIdentifier><gco:CharacterString>` + uuid + `</gco:CharacterString></gmd:fileIdentifier>` +
		`<gmd:contact xlink:href="local://srv/api/registries/entries/` + target + `"/>` +
		`</gmd:MD_Metadata>`
}

type mockStore struct {
	mu              sync.Mutex
	records         map[int64]*domain.MetadataRecord
	nextID          int64
	sourceInfoCalls int
	updates         []int64
	failUpdate      error
}

func newMockStore() *mockStore {
	return &mockStore{records: map[int64]*domain.MetadataRecord{}, nextID: 100}
}

func (m *mockStore) put(record domain.MetadataRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := record
	m.records[r.ID] = &r
	if r.ID >= m.nextID {
		m.nextID = r.ID + 1
	}
}

func (m *mockStore) FindByID(ctx context.Context, id int64) (*domain.MetadataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "record"}
	}
	copied := *r
	return &copied, nil
}

func (m *mockStore) FindAll(ctx context.Context, filter domain.RecordFilter, page domain.Page) ([]domain.MetadataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MetadataRecord
	for _, r := range m.records {
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, r.Type) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockStore) Insert(ctx context.Context, record domain.MetadataRecord) (*domain.MetadataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = m.nextID
	m.nextID++
	r := record
	m.records[r.ID] = &r
	copied := r
	return &copied, nil
}

func (m *mockStore) Update(ctx context.Context, id int64, update domain.RecordUpdate) (*domain.MetadataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}
	r, ok := m.records[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "record"}
	}
	r.Body = update.Body
	if update.Title != "" {
		r.Title = update.Title
	}
	if update.UUID != "" {
		r.UUID = update.UUID
	}
	if update.UpdateDateStamp {
		if update.ChangeDate != "" {
			r.ChangeDate = update.ChangeDate
		} else {
			r.ChangeDate = metacatalog.NowISODate()
		}
	}
	m.updates = append(m.updates, id)
	copied := *r
	return &copied, nil
}

func (m *mockStore) UpdateOwner(ctx context.Context, id int64, owner domain.UserID, groupOwner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.NotFoundError{Resource: "record"}
	}
	r.SourceInfo.Owner = owner
	r.SourceInfo.GroupOwner = &groupOwner
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *mockStore) FindIDsAndChangeDates(ctx context.Context, page domain.Page) ([]domain.IDChangeDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]domain.IDChangeDate, 0, len(m.records))
	for _, r := range m.records {
		rows = append(rows, domain.IDChangeDate{ID: r.ID, ChangeDate: r.ChangeDate})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ChangeDate == rows[j].ChangeDate {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].ChangeDate < rows[j].ChangeDate
	})
	start := page.Number * page.Size
	if start >= len(rows) {
		return nil, nil
	}
	end := min(start+page.Size, len(rows))
	return rows[start:end], nil
}

func (m *mockStore) FindSourceInfo(ctx context.Context, ids []int64) (map[int64]domain.SourceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceInfoCalls++
	out := map[int64]domain.SourceInfo{}
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			out[id] = r.SourceInfo
		}
	}
	return out, nil
}

type mockIndex struct {
	mu      sync.Mutex
	docs    map[int64]domain.IndexDocument
	writes  int
	deletes []int64
	failOne error
}

func newMockIndex() *mockIndex {
	return &mockIndex{docs: map[int64]domain.IndexDocument{}}
}

func (m *mockIndex) GetAllChangeDates(ctx context.Context) (map[int64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]string, len(m.docs))
	for id, d := range m.docs {
		out[id] = d.ChangeDate
	}
	return out, nil
}

func (m *mockIndex) IndexOne(ctx context.Context, doc domain.IndexDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOne != nil {
		return m.failOne
	}
	m.docs[doc.ID] = doc
	m.writes++
	return nil
}

func (m *mockIndex) IndexBatch(ctx context.Context, docs []domain.IndexDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
		m.writes++
	}
	return nil
}

func (m *mockIndex) Get(ctx context.Context, id int64) (*domain.IndexDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "index document"}
	}
	return &d, nil
}

func (m *mockIndex) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *mockIndex) Search(ctx context.Context, pattern string, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, d := range m.docs {
		if strings.Contains(d.XLinks, pattern) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockIndex) FindReferencing(ctx context.Context, uuid string, limit int) ([]int64, error) {
	return m.Search(ctx, uuid, limit)
}

func (m *mockIndex) has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

// mockSchemas resolves every stylesheet to schema/file.
type mockSchemas struct {
	registry *schemas.Registry
	missing  map[string]bool
}

func newMockSchemas() *mockSchemas {
	return &mockSchemas{registry: schemas.NewRegistry(""), missing: map[string]bool{}}
}

func (m *mockSchemas) Get(id string) (schemas.Schema, error) {
	return m.registry.Get(id)
}

func (m *mockSchemas) Stylesheet(schemaID, file string) (string, bool) {
	return schemaID + "/" + file, !m.missing[file]
}

type engineCall struct {
	stylesheet string
	input      string
	params     map[string]string
}

// mockEngine emulates the fixed-info stylesheets: the record is taken from
// the input and its file identifier is set to env/uuid.
type mockEngine struct {
	mu    sync.Mutex
	calls []engineCall
	fail  map[string]error
	apply func(stylesheet, input string, params map[string]string) (string, error)
}

func newMockEngine() *mockEngine {
	return &mockEngine{fail: map[string]error{}}
}

func (m *mockEngine) Apply(ctx context.Context, stylesheet string, input string, params map[string]string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, engineCall{stylesheet: stylesheet, input: input, params: params})
	m.mu.Unlock()

	for suffix, err := range m.fail {
		if strings.HasSuffix(stylesheet, suffix) {
			return "", err
		}
	}
	if m.apply != nil {
		return m.apply(stylesheet, input, params)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(input); err != nil {
		return "", err
	}
	root := doc.Root()
	if root == nil || root.Tag != "root" {
		return input, nil
	}

	if child := root.SelectElement("child"); child != nil {
		record := child.ChildElements()[0].Copy()
		parentUUID := root.FindElement("update/parentUuid").Text()
		record.CreateElement("gmd:parentIdentifier").CreateElement("gco:CharacterString").SetText(parentUUID)
		out := etree.NewDocument()
		out.SetRoot(record)
		return out.WriteToString()
	}

	record := root.ChildElements()[0].Copy()
	if env := root.SelectElement("env"); env != nil {
		uuid := env.SelectElement("uuid").Text()
		for _, el := range record.ChildElements() {
			if el.Tag == "fileIdentifier" {
				for _, c := range el.ChildElements() {
					c.SetText(uuid)
				}
			}
		}
	}
	out := etree.NewDocument()
	out.SetRoot(record)
	return out.WriteToString()
}

func (m *mockEngine) callsTo(suffix string) []engineCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []engineCall
	for _, c := range m.calls {
		if strings.HasSuffix(c.stylesheet, suffix) {
			out = append(out, c)
		}
	}
	return out
}

type mockAccess struct {
	groups  []int64
	canEdit map[int64]bool
}

func (m *mockAccess) UserGroups(ctx context.Context, session *domain.Session) ([]int64, error) {
	return m.groups, nil
}

func (m *mockAccess) IsOwner(ctx context.Context, session *domain.Session, info domain.SourceInfo) (bool, error) {
	if !session.Authenticated() {
		return false, nil
	}
	if session.User.Profile == domain.ProfileAdministrator {
		return true, nil
	}
	return session.User.ID == info.Owner, nil
}

func (m *mockAccess) CanEdit(ctx context.Context, session *domain.Session, id int64) (bool, error) {
	return m.canEdit[id], nil
}

type notification struct {
	kind string
	id   int64
}

type mockNotifier struct {
	mu       sync.Mutex
	events   []notification
	fail     error
	onChange func(id int64)
}

func (m *mockNotifier) OnChange(ctx context.Context, body string, id int64) error {
	if m.onChange != nil {
		m.onChange(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, notification{kind: "change", id: id})
	return m.fail
}

func (m *mockNotifier) OnDelete(ctx context.Context, id int64, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, notification{kind: "delete", id: id})
	return m.fail
}

type mockGrants struct {
	grants  []domain.OperationGrant
	deleted []int64
	calls   int
}

func (m *mockGrants) FindByMetadataIDs(ctx context.Context, ids []int64, groups []int64) ([]domain.OperationGrant, error) {
	m.calls++
	var out []domain.OperationGrant
	for _, g := range m.grants {
		if slices.Contains(ids, g.MetadataID) && slices.Contains(groups, g.GroupID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGrants) FindMetadataIDsWith(ctx context.Context, ids []int64, group int64, op domain.Operation) ([]int64, error) {
	m.calls++
	var out []int64
	for _, g := range m.grants {
		if slices.Contains(ids, g.MetadataID) && g.GroupID == group && g.Operation == op {
			out = append(out, g.MetadataID)
		}
	}
	return out, nil
}

func (m *mockGrants) Grant(ctx context.Context, grants ...domain.OperationGrant) error {
	m.grants = append(m.grants, grants...)
	return nil
}

func (m *mockGrants) DeleteByMetadataID(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	kept := m.grants[:0]
	for _, g := range m.grants {
		if g.MetadataID != id {
			kept = append(kept, g)
		}
	}
	m.grants = kept
	return nil
}

type mockDependents struct {
	calls       []string
	validations map[int64][]domain.ValidationReport
}

func (m *mockDependents) DeleteRatings(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "ratings")
	return nil
}

func (m *mockDependents) DeleteValidations(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "validations")
	return nil
}

func (m *mockDependents) DeleteStatuses(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "statuses")
	return nil
}

func (m *mockDependents) DeleteSavedSelections(ctx context.Context, uuid string) error {
	m.calls = append(m.calls, "selections")
	return nil
}

func (m *mockDependents) SoftDeleteFileUploads(ctx context.Context, id int64, deletedDate string) error {
	m.calls = append(m.calls, "uploads")
	return nil
}

func (m *mockDependents) FindValidations(ctx context.Context, id int64) ([]domain.ValidationReport, error) {
	return m.validations[id], nil
}

func (m *mockDependents) SaveValidations(ctx context.Context, id int64, reports []domain.ValidationReport) error {
	if m.validations == nil {
		m.validations = map[int64][]domain.ValidationReport{}
	}
	m.validations[id] = reports
	return nil
}

type mockUsers struct {
	users map[domain.UserID]*domain.User
}

func (m *mockUsers) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (m *mockUsers) FindMemberships(ctx context.Context, id domain.UserID) (map[int64]domain.Profile, error) {
	return nil, nil
}

type mockGroups struct {
	groups map[int64]*domain.Group
}

func (m *mockGroups) FindByID(ctx context.Context, id int64) (*domain.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "group"}
	}
	return g, nil
}

type mockCategories struct {
	categories map[string]*domain.Category
}

func (m *mockCategories) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	c, ok := m.categories[name]
	if !ok {
		return nil, domain.NotFoundError{Resource: "category"}
	}
	return c, nil
}

type mockSettings struct {
	settings domain.Settings
}

func (m *mockSettings) Snapshot(ctx context.Context) (domain.Settings, error) {
	return m.settings, nil
}

type mockThesauri struct{}

func (mockThesauri) Snapshot(ctx context.Context) (*etree.Element, error) {
	el := etree.NewElement("thesauri")
	el.CreateElement("thesaurus").CreateElement("key").SetText("external.theme.inspire")
	return el, nil
}

type mockQueue struct {
	mu  sync.Mutex
	ids []int64
}

func (m *mockQueue) Add(ctx context.Context, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, ids...)
	return nil
}

func (m *mockQueue) Pop(ctx context.Context, max int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(max, len(m.ids))
	out := m.ids[:n]
	m.ids = m.ids[n:]
	return out, nil
}

type mockValidationCache struct {
	cleared []int64
}

func (m *mockValidationCache) Clear(ctx context.Context, id int64) error {
	m.cleared = append(m.cleared, id)
	return nil
}

type mockValidator struct {
	reader  RecordReader
	reports []domain.ValidationReport
	err     error
	calls   int
}

func (m *mockValidator) Validate(ctx context.Context, schemaID string, id int64, body string, lang string) ([]domain.ValidationReport, error) {
	m.calls++
	return m.reports, m.err
}

func defaultSettings() domain.Settings {
	return domain.Settings{
		AutofixingEnabled: true,
		SiteID:            "site-1",
		SiteURL:           "http://localhost:8080/catalog/srv/",
		NodeURL:           "http://localhost:8080/catalog/srv/",
		NodeID:            "srv",
		ServerProtocol:    "http",
		ServerHost:        "localhost",
		ServerPort:        "8080",
		BaseURL:           "/catalog",
		DataDir:           "/data/metadata_data",
		Values: map[string]string{
			"system/site/name": "Catalog",
		},
	}
}

// harness wires a manager over in-memory collaborators.
type harness struct {
	store      *mockStore
	index      *mockIndex
	engine     *mockEngine
	schemas    *mockSchemas
	access     *mockAccess
	notifier   *mockNotifier
	grants     *mockGrants
	dependents *mockDependents
	users      *mockUsers
	groups     *mockGroups
	categories *mockCategories
	settings   *mockSettings
	queue      *mockQueue
	cache      *mockValidationCache
	validator  *mockValidator
	indexer    *Indexer
	manager    *MetadataManager
	reconciler *IndexReconciler
}

func newHarness() *harness {
	h := &harness{
		store:      newMockStore(),
		index:      newMockIndex(),
		engine:     newMockEngine(),
		schemas:    newMockSchemas(),
		access:     &mockAccess{groups: []int64{domain.GroupAll}, canEdit: map[int64]bool{}},
		notifier:   &mockNotifier{},
		grants:     &mockGrants{},
		dependents: &mockDependents{},
		users:      &mockUsers{users: map[domain.UserID]*domain.User{}},
		groups:     &mockGroups{groups: map[int64]*domain.Group{}},
		categories: &mockCategories{categories: map[string]*domain.Category{}},
		settings:   &mockSettings{settings: defaultSettings()},
		queue:      &mockQueue{},
		cache:      &mockValidationCache{},
		validator:  &mockValidator{},
	}

	locks := utils.NewKeyedMutex()
	h.indexer = NewIndexer(h.store, h.index, h.schemas, h.queue, nil, 2)
	transformer := NewFixedInfoTransformer(h.store, h.schemas, h.engine, mockThesauri{}, h.users)
	privileges := NewPrivilegeAggregator(h.store, h.grants, h.access)
	guard := NewIntegrityGuard(h.index)
	children := NewChildPropagator(h.store, h.schemas, h.engine, h.access, h.notifier, h.settings, h.indexer, locks)

	h.manager = NewMetadataManager(MetadataManagerDeps{
		Store:           h.store,
		Index:           h.index,
		Indexer:         h.indexer,
		Transformer:     transformer,
		Guard:           guard,
		Info:            NewInfoBuilder(privileges, h.users, h.dependents),
		Children:        children,
		Grants:          h.grants,
		Dependents:      h.dependents,
		Groups:          h.groups,
		Categories:      h.categories,
		Settings:        h.settings,
		Schemas:         h.schemas,
		Engine:          h.engine,
		Notifier:        h.notifier,
		ValidationCache: h.cache,
		NewValidator: func(reader RecordReader) Validator {
			h.validator.reader = reader
			return h.validator
		},
		Locks: locks,
	})
	h.reconciler = NewIndexReconciler(h.store, h.index, h.indexer, nil, 0)
	return h
}
