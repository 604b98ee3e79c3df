package domain

import "github.com/totegamma/metacatalog"

// UserID is the primary key of the users table. Owners, requesters and
// owner-name lookups all use this one type.
type UserID int64

// MetadataRecord is a catalog record as held by the store.
type MetadataRecord struct {
	ID           int64                    `json:"id"`
	UUID         string                   `json:"uuid"`
	Type         metacatalog.MetadataType `json:"isTemplate"`
	SchemaID     string                   `json:"schema"`
	Root         string                   `json:"root,omitempty"`
	DocType      string                   `json:"doctype,omitempty"`
	Body         string                   `json:"-"`
	CreateDate   string                   `json:"createDate"`
	ChangeDate   string                   `json:"changeDate"`
	Title        string                   `json:"title,omitempty"`
	Popularity   int                      `json:"popularity"`
	Rating       int                      `json:"rating"`
	DisplayOrder int                      `json:"displayOrder"`
	Categories   []Category               `json:"categories,omitempty"`
	SourceInfo   SourceInfo               `json:"sourceInfo"`
	HarvestInfo  HarvestInfo              `json:"harvestInfo"`
}

// SourceInfo tells who owns a record and where it came from.
type SourceInfo struct {
	Owner      UserID `json:"owner"`
	GroupOwner *int64 `json:"groupOwner,omitempty"`
	SourceID   string `json:"sourceId"`
}

type HarvestInfo struct {
	IsHarvested bool   `json:"isHarvested"`
	HarvestUUID string `json:"harvestUuid,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AddCategories appends categories not already present by name.
func (r *MetadataRecord) AddCategories(categories ...*Category) {
	seen := make(map[string]struct{}, len(r.Categories))
	for _, c := range r.Categories {
		seen[c.Name] = struct{}{}
	}
	for _, c := range categories {
		if c == nil {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		r.Categories = append(r.Categories, *c)
	}
}

type Group struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DefaultCategory *Category `json:"defaultCategory,omitempty"`
}

type User struct {
	ID           UserID  `json:"id"`
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	Surname      string  `json:"surname"`
	Organisation string  `json:"organisation"`
	Profile      Profile `json:"profile"`
}

type Profile string

const (
	ProfileAdministrator  Profile = "Administrator"
	ProfileUserAdmin      Profile = "UserAdmin"
	ProfileReviewer       Profile = "Reviewer"
	ProfileEditor         Profile = "Editor"
	ProfileRegisteredUser Profile = "RegisteredUser"
	ProfileGuest          Profile = "Guest"
)

// Rank orders profiles from Guest up to Administrator.
func (p Profile) Rank() int {
	switch p {
	case ProfileAdministrator:
		return 5
	case ProfileUserAdmin:
		return 4
	case ProfileReviewer:
		return 3
	case ProfileEditor:
		return 2
	case ProfileRegisteredUser:
		return 1
	default:
		return 0
	}
}

// IDChangeDate is one row of the reconciliation scan.
type IDChangeDate struct {
	ID         int64
	ChangeDate string
}

// ValidationReport is produced by the external validator.
type ValidationReport struct {
	MetadataID     int64  `json:"metadataId"`
	ValidationType string `json:"validationType"`
	IsValid        bool   `json:"isValid"`
	NumFailures    int    `json:"numFailures"`
	NumTests       int    `json:"numTests"`
}

// IndexDocument is the search index view of a record.
type IndexDocument struct {
	ID         int64                    `json:"id"`
	UUID       string                   `json:"uuid"`
	ChangeDate string                   `json:"lastChangeDate"`
	SchemaID   string                   `json:"schema"`
	Type       metacatalog.MetadataType `json:"isTemplate"`
	Title      string                   `json:"title"`
	Owner      UserID                   `json:"owner"`
	GroupOwner *int64                   `json:"groupOwner,omitempty"`
	XLinks     string                   `json:"xlinks"`
	AnyText    string                   `json:"anyText"`
}

// Page selects a window of an ordered result set.
type Page struct {
	Number int
	Size   int
}

// RecordFilter narrows Store.FindAll.
type RecordFilter struct {
	Types      []metacatalog.MetadataType
	SchemaID   string
	GroupOwner *int64
	Owner      *UserID
	Harvested  *bool
}

// RecordUpdate is the body rewrite handed to the store.
type RecordUpdate struct {
	Body string
	// ChangeDate is used when UpdateDateStamp is set; empty means now.
	ChangeDate      string
	UpdateDateStamp bool
	// UUID replaces the stored uuid when not empty.
	UUID  string
	Title string
}
