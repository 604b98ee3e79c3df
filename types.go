package metacatalog

import (
	"fmt"
)

// MetadataType is the record kind, stored as its one letter code.
type MetadataType string

const (
	TypeStandard              MetadataType = "n"
	TypeTemplate              MetadataType = "y"
	TypeSubTemplate           MetadataType = "s"
	TypeTemplateOfSubTemplate MetadataType = "t"
)

func LookupMetadataType(code string) (MetadataType, error) {
	switch MetadataType(code) {
	case TypeStandard, TypeTemplate, TypeSubTemplate, TypeTemplateOfSubTemplate:
		return MetadataType(code), nil
	case "":
		return TypeStandard, nil
	default:
		return "", fmt.Errorf("unknown metadata type code %q", code)
	}
}

func (t MetadataType) String() string {
	switch t {
	case TypeStandard:
		return "METADATA"
	case TypeTemplate:
		return "TEMPLATE"
	case TypeSubTemplate:
		return "SUB_TEMPLATE"
	case TypeTemplateOfSubTemplate:
		return "TEMPLATE_OF_SUB_TEMPLATE"
	default:
		return "UNKNOWN"
	}
}

// ISODateLayout is the second precision layout used for create and change dates.
const ISODateLayout = "2006-01-02T15:04:05"

// QName is a namespace qualified element name.
type QName struct {
	Space string `json:"space"`
	Local string `json:"local"`
}
