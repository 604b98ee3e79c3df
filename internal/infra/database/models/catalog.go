package models

type Metadata struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UUID         string     `json:"uuid" gorm:"type:text;uniqueIndex;not null"`
	IsTemplate   string     `json:"isTemplate" gorm:"type:varchar(1);not null;default:'n'"`
	SchemaID     string     `json:"schemaId" gorm:"type:text;not null"`
	Root         string     `json:"root" gorm:"type:text"`
	DocType      string     `json:"doctype" gorm:"type:text"`
	Data         string     `json:"-" gorm:"type:text;not null"`
	CreateDate   string     `json:"createDate" gorm:"type:varchar(30);not null"`
	ChangeDate   string     `json:"changeDate" gorm:"type:varchar(30);not null;index"`
	Title        string     `json:"title" gorm:"type:text"`
	Popularity   int        `json:"popularity" gorm:"not null;default:0"`
	Rating       int        `json:"rating" gorm:"not null;default:0"`
	DisplayOrder int        `json:"displayOrder" gorm:"not null;default:0"`
	Owner        int64      `json:"owner" gorm:"index"`
	GroupOwner   *int64     `json:"groupOwner" gorm:"index"`
	Source       string     `json:"source" gorm:"type:text"`
	IsHarvested  bool       `json:"isHarvested" gorm:"not null;default:false"`
	HarvestUUID  string     `json:"harvestUuid" gorm:"type:text"`
	Categories   []Category `json:"categories" gorm:"many2many:metadata_categories;constraint:OnDelete:CASCADE;"`
}

type Category struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:text;uniqueIndex;not null"`
}

type Group struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name" gorm:"type:text;uniqueIndex;not null"`
	DefaultCategoryID *int64    `json:"defaultCategoryId"`
	DefaultCategory   *Category `json:"defaultCategory" gorm:"foreignKey:DefaultCategoryID;references:ID"`
}

type User struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string `json:"username" gorm:"type:text;uniqueIndex;not null"`
	Name         string `json:"name" gorm:"type:text"`
	Surname      string `json:"surname" gorm:"type:text"`
	Organisation string `json:"organisation" gorm:"type:text"`
	Profile      string `json:"profile" gorm:"type:text;not null;default:'RegisteredUser'"`
}

type UserGroup struct {
	UserID  int64  `json:"userId" gorm:"primaryKey"`
	GroupID int64  `json:"groupId" gorm:"primaryKey"`
	Profile string `json:"profile" gorm:"type:text;primaryKey"`
}

type OperationAllowed struct {
	MetadataID  int64 `json:"metadataId" gorm:"primaryKey"`
	GroupID     int64 `json:"groupId" gorm:"primaryKey;index"`
	OperationID int   `json:"operationId" gorm:"primaryKey"`
}

func (OperationAllowed) TableName() string {
	return "operation_allowed"
}

type Setting struct {
	Name  string `json:"name" gorm:"primaryKey;type:text"`
	Value string `json:"value" gorm:"type:text"`
}

type Validation struct {
	MetadataID int64  `json:"metadataId" gorm:"primaryKey"`
	ValType    string `json:"valType" gorm:"primaryKey;type:text"`
	Status     int    `json:"status"`
	Tested     int    `json:"tested"`
	Failed     int    `json:"failed"`
	ValDate    string `json:"valDate" gorm:"type:varchar(30)"`
}

type MetadataStatus struct {
	MetadataID int64  `json:"metadataId" gorm:"primaryKey"`
	StatusID   int    `json:"statusId" gorm:"primaryKey"`
	UserID     int64  `json:"userId" gorm:"primaryKey"`
	ChangeDate string `json:"changeDate" gorm:"primaryKey;type:varchar(30)"`
}

type MetadataRating struct {
	MetadataID int64  `json:"metadataId" gorm:"primaryKey"`
	IPAddress  string `json:"ipAddress" gorm:"primaryKey;type:text"`
	Rating     int    `json:"rating"`
}

type SelectionRecord struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	SelectionID  int64  `json:"selectionId" gorm:"index"`
	UserID       int64  `json:"userId" gorm:"index"`
	MetadataUUID string `json:"metadataUuid" gorm:"type:text;index"`
}

type MetadataFileUpload struct {
	ID          int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	MetadataID  int64   `json:"metadataId" gorm:"index"`
	FileName    string  `json:"fileName" gorm:"type:text"`
	FileSize    float64 `json:"fileSize"`
	UploadDate  string  `json:"uploadDate" gorm:"type:varchar(30)"`
	UserName    string  `json:"userName" gorm:"type:text"`
	DeletedDate *string `json:"deletedDate" gorm:"type:varchar(30)"`
}
