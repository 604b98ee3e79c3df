package models

// IndexDocument is a row of the search index. It carries no foreign key to
// metadata so that orphans can exist and be reconciled.
type IndexDocument struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	UUID       string `json:"uuid" gorm:"type:text;index"`
	ChangeDate string `json:"changeDate" gorm:"type:varchar(30)"`
	SchemaID   string `json:"schemaId" gorm:"type:text"`
	IsTemplate string `json:"isTemplate" gorm:"type:varchar(1)"`
	Title      string `json:"title" gorm:"type:text"`
	Owner      int64  `json:"owner"`
	GroupOwner *int64 `json:"groupOwner"`
	XLinks     string `json:"xlinks" gorm:"type:text"`
	AnyText    string `json:"anyText" gorm:"type:text"`
}
