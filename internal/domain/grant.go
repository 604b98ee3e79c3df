package domain

// Operation is a reserved operation id as stored in operation grants.
type Operation int

const (
	OpView     Operation = 0
	OpDownload Operation = 1
	OpEditing  Operation = 2
	OpNotify   Operation = 3
	OpDynamic  Operation = 5
	OpFeatured Operation = 6
)

// AllOperations lists every reserved operation.
var AllOperations = []Operation{OpView, OpDownload, OpEditing, OpNotify, OpDynamic, OpFeatured}

func (o Operation) String() string {
	switch o {
	case OpView:
		return "view"
	case OpDownload:
		return "download"
	case OpEditing:
		return "editing"
	case OpNotify:
		return "notify"
	case OpDynamic:
		return "dynamic"
	case OpFeatured:
		return "featured"
	default:
		return "unknown"
	}
}

// Reserved groups.
const (
	GroupAll      int64 = 1
	GroupIntranet int64 = 0
	GroupGuest    int64 = -1
)

func IsReservedGroup(id int64) bool {
	return id == GroupAll || id == GroupIntranet || id == GroupGuest
}

// OperationGrant allows a group to perform an operation on a record.
type OperationGrant struct {
	MetadataID int64     `json:"metadataId"`
	GroupID    int64     `json:"groupId"`
	Operation  Operation `json:"operation"`
}

// PrivilegeInfo is computed per request and user. It is never cached or stored.
type PrivilegeInfo struct {
	Edit           bool  `json:"edit"`
	Owner          bool  `json:"owner"`
	PublishedToAll bool  `json:"isPublishedToAll"`
	View           bool  `json:"view"`
	Notify         bool  `json:"notify"`
	Download       bool  `json:"download"`
	Dynamic        bool  `json:"dynamic"`
	Featured       bool  `json:"featured"`
	GuestDownload  *bool `json:"guestdownload,omitempty"`
}
