package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/utils"
)

type ValidationDetail struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Ratio  string `json:"ratio"`
}

// MetadataInfo is the catalog header attached to a record on the read path.
type MetadataInfo struct {
	ID           int64
	Schema       string
	CreateDate   string
	ChangeDate   string
	IsTemplate   string
	Title        string
	Source       string
	UUID         string
	IsHarvested  bool
	HarvestUUID  string
	Popularity   int
	Rating       int
	DisplayOrder int
	Version      string
	Privileges   domain.PrivilegeInfo
	OwnerName    string
	Categories   []string
	Validations  []ValidationDetail
	Valid        string
	BaseURL      string
	LocServ      string
}

func (i MetadataInfo) MarshalJSON() ([]byte, error) {
	m := utils.OrderedKVMap[any]{}
	m.Append("id", i.ID)
	m.Append("schema", i.Schema)
	m.Append("createDate", i.CreateDate)
	m.Append("changeDate", i.ChangeDate)
	m.Append("isTemplate", i.IsTemplate)
	m.Append("title", i.Title)
	m.Append("source", i.Source)
	m.Append("uuid", i.UUID)
	m.Append("isHarvested", i.IsHarvested)
	if i.HarvestUUID != "" {
		m.Append("harvestUuid", i.HarvestUUID)
	}
	m.Append("popularity", i.Popularity)
	m.Append("rating", i.Rating)
	m.Append("displayOrder", i.DisplayOrder)
	if i.Version != "" {
		m.Append("version", i.Version)
	}
	m.Append("isPublishedToAll", i.Privileges.PublishedToAll)
	m.Append("view", i.Privileges.View)
	m.Append("notify", i.Privileges.Notify)
	m.Append("download", i.Privileges.Download)
	m.Append("dynamic", i.Privileges.Dynamic)
	m.Append("featured", i.Privileges.Featured)
	m.Append("edit", i.Privileges.Edit)
	m.Append("owner", i.Privileges.Owner)
	if i.Privileges.GuestDownload != nil {
		m.Append("guestdownload", *i.Privileges.GuestDownload)
	}
	m.Append("ownerName", i.OwnerName)
	m.Append("category", i.Categories)
	m.Append("validations", i.Validations)
	m.Append("valid", i.Valid)
	m.Append("baseUrl", i.BaseURL)
	m.Append("locserv", i.LocServ)
	return json.Marshal(m)
}

// InfoBuilder assembles MetadataInfo for the read path.
type InfoBuilder struct {
	privileges *PrivilegeAggregator
	users      UserRepository
	dependents DependentsRepository
}

func NewInfoBuilder(privileges *PrivilegeAggregator, users UserRepository, dependents DependentsRepository) *InfoBuilder {
	return &InfoBuilder{
		privileges: privileges,
		users:      users,
		dependents: dependents,
	}
}

func (b *InfoBuilder) Build(
	ctx context.Context,
	settings domain.Settings,
	record *domain.MetadataRecord,
	version string,
	lang string,
) (*MetadataInfo, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.BuildInfo")
	defer span.End()

	info := &MetadataInfo{
		ID:           record.ID,
		Schema:       record.SchemaID,
		CreateDate:   record.CreateDate,
		ChangeDate:   record.ChangeDate,
		IsTemplate:   string(record.Type),
		Title:        record.Title,
		Source:       record.SourceInfo.SourceID,
		UUID:         record.UUID,
		IsHarvested:  record.HarvestInfo.IsHarvested,
		HarvestUUID:  record.HarvestInfo.HarvestUUID,
		Popularity:   record.Popularity,
		Rating:       record.Rating,
		DisplayOrder: record.DisplayOrder,
		Version:      version,
		BaseURL:      settings.ServerURL() + settings.BaseURL,
		LocServ:      "/srv/" + lang,
	}

	privileges, err := b.privileges.Annotate(ctx, []int64{record.ID})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	info.Privileges = privileges[record.ID]

	owner, err := b.users.FindByID(ctx, record.SourceInfo.Owner)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load owner")
	}
	if owner != nil {
		info.OwnerName = owner.Name
	}

	for _, c := range record.Categories {
		info.Categories = append(info.Categories, c.Name)
	}

	reports, err := b.dependents.FindValidations(ctx, record.ID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load validations")
	}
	info.Validations, info.Valid = summarizeValidations(reports)

	return info, nil
}

// summarizeValidations returns the per type details and the overall flag:
// "-1" without reports, "0" when any report is invalid, "1" otherwise.
func summarizeValidations(reports []domain.ValidationReport) ([]ValidationDetail, string) {
	if len(reports) == 0 {
		return nil, "-1"
	}
	valid := "1"
	details := make([]ValidationDetail, 0, len(reports))
	for _, r := range reports {
		status := "1"
		if !r.IsValid {
			status = "0"
			valid = "0"
		}
		ratio := ""
		if r.ValidationType != "xsd" {
			ratio = fmt.Sprintf("%d/%d", r.NumFailures, r.NumTests)
		}
		details = append(details, ValidationDetail{
			Type:   r.ValidationType,
			Status: status,
			Ratio:  ratio,
		})
	}
	return details, valid
}
