package usecase

import (
	"context"

	"github.com/beevik/etree"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/schemas"
)

// Store defines durable storage of metadata records.
type Store interface {
	FindByID(ctx context.Context, id int64) (*domain.MetadataRecord, error)
	FindAll(ctx context.Context, filter domain.RecordFilter, page domain.Page) ([]domain.MetadataRecord, error)
	Insert(ctx context.Context, record domain.MetadataRecord) (*domain.MetadataRecord, error)
	Update(ctx context.Context, id int64, update domain.RecordUpdate) (*domain.MetadataRecord, error)
	UpdateOwner(ctx context.Context, id int64, owner domain.UserID, groupOwner int64) error
	Delete(ctx context.Context, id int64) error
	// FindIDsAndChangeDates pages through every record ordered by change date.
	FindIDsAndChangeDates(ctx context.Context, page domain.Page) ([]domain.IDChangeDate, error)
	FindSourceInfo(ctx context.Context, ids []int64) (map[int64]domain.SourceInfo, error)
}

// Index defines the search index. Only the indexer, the reconciler and the
// lifecycle manager write to it.
type Index interface {
	GetAllChangeDates(ctx context.Context) (map[int64]string, error)
	IndexOne(ctx context.Context, doc domain.IndexDocument) error
	IndexBatch(ctx context.Context, docs []domain.IndexDocument) error
	Get(ctx context.Context, id int64) (*domain.IndexDocument, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, referencingPattern string, limit int) ([]int64, error)
}

// ReferencingSearch finds records holding a cross reference to a uuid.
type ReferencingSearch interface {
	FindReferencing(ctx context.Context, uuid string, limit int) ([]int64, error)
}

// TransformEngine applies a stylesheet. It must be deterministic for identical inputs.
type TransformEngine interface {
	Apply(ctx context.Context, stylesheet string, input string, params map[string]string) (string, error)
}

// SchemaCatalog resolves schema plugins and their stylesheets.
type SchemaCatalog interface {
	Get(id string) (schemas.Schema, error)
	Stylesheet(schemaID, file string) (string, bool)
}

// AccessPolicy answers group membership and ownership questions for a session.
type AccessPolicy interface {
	UserGroups(ctx context.Context, session *domain.Session) ([]int64, error)
	IsOwner(ctx context.Context, session *domain.Session, info domain.SourceInfo) (bool, error)
	CanEdit(ctx context.Context, session *domain.Session, id int64) (bool, error)
}

// Notifier publishes record changes. Errors are reported but never abort the caller.
type Notifier interface {
	OnChange(ctx context.Context, body string, id int64) error
	OnDelete(ctx context.Context, id int64, uuid string) error
}

// GrantRepository defines storage operations for operation grants.
type GrantRepository interface {
	// FindByMetadataIDs returns grants on ids restricted to groups.
	FindByMetadataIDs(ctx context.Context, ids []int64, groups []int64) ([]domain.OperationGrant, error)
	// FindMetadataIDsWith returns the subset of ids granted op for group.
	FindMetadataIDsWith(ctx context.Context, ids []int64, group int64, op domain.Operation) ([]int64, error)
	Grant(ctx context.Context, grants ...domain.OperationGrant) error
	DeleteByMetadataID(ctx context.Context, id int64) error
}

// DependentsRepository owns the rows that hang off a record.
type DependentsRepository interface {
	DeleteRatings(ctx context.Context, id int64) error
	DeleteValidations(ctx context.Context, id int64) error
	DeleteStatuses(ctx context.Context, id int64) error
	DeleteSavedSelections(ctx context.Context, uuid string) error
	SoftDeleteFileUploads(ctx context.Context, id int64, deletedDate string) error
	FindValidations(ctx context.Context, id int64) ([]domain.ValidationReport, error)
	SaveValidations(ctx context.Context, id int64, reports []domain.ValidationReport) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	// FindMemberships maps each group of the user to the profile held in it.
	FindMemberships(ctx context.Context, id domain.UserID) (map[int64]domain.Profile, error)
}

type GroupRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Group, error)
}

type CategoryRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Category, error)
}

// SettingsProvider takes a snapshot of the current settings.
type SettingsProvider interface {
	Snapshot(ctx context.Context) (domain.Settings, error)
}

// ThesaurusProvider lists the thesauri known to the catalog as an element
// handed to the fixed-info stylesheets.
type ThesaurusProvider interface {
	Snapshot(ctx context.Context) (*etree.Element, error)
}

// Validator validates a record body and returns its reports.
type Validator interface {
	Validate(ctx context.Context, schemaID string, id int64, body string, lang string) ([]domain.ValidationReport, error)
}

// ValidationReportCache holds validation reports pending for an editing session.
type ValidationReportCache interface {
	Clear(ctx context.Context, id int64) error
}

// IndexingQueue collects ids to reindex later.
type IndexingQueue interface {
	Add(ctx context.Context, ids ...int64) error
	Pop(ctx context.Context, max int) ([]int64, error)
}
