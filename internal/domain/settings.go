package domain

import (
	"slices"
	"strconv"
)

// Settings is an immutable snapshot of the catalog settings taken at the
// start of an operation.
type Settings struct {
	AutofixingEnabled        bool
	ImportRestrictionSchemas []string
	AllowReferencedDeletion  bool
	SiteID                   string
	SiteURL                  string
	NodeURL                  string
	NodeID                   string
	ServerProtocol           string
	ServerHost               string
	ServerPort               string
	BaseURL                  string
	DataDir                  string
	// Values holds every setting keyed by its slash separated path, e.g. system/site/name.
	Values map[string]string
}

// SchemaAllowed reports whether a schema passes the import restriction list.
func (s Settings) SchemaAllowed(schema string) bool {
	if len(s.ImportRestrictionSchemas) == 0 {
		return true
	}
	return slices.Contains(s.ImportRestrictionSchemas, schema)
}

// ServerURL is protocol://host[:port]; port 80 is left out.
func (s Settings) ServerURL() string {
	port := ""
	if s.ServerPort != "" && s.ServerPort != "80" {
		port = ":" + s.ServerPort
	}
	return s.ServerProtocol + "://" + s.ServerHost + port
}

func (s Settings) Bool(key string, def bool) bool {
	v, ok := s.Values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
