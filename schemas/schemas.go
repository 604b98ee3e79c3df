package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/totegamma/metacatalog"
)

// Stylesheet file names looked up in a schema directory.
const (
	UpdateFixedInfo            string = "update-fixed-info.xsl"
	UpdateFixedInfoSubtemplate string = "update-fixed-info-subtemplate.xsl"
	UpdateChildFromParentInfo  string = "update-child-from-parent-info.xsl"
	InflateMetadata            string = "inflate-metadata.xsl"
)

const (
	ISO19139   string = "iso19139"
	ISO19115_3 string = "iso19115-3.2018"
	DublinCore string = "dublin-core"
)

// Schema describes a metadata schema plugin.
type Schema struct {
	ID             string            `yaml:"id"`
	Namespaces     map[string]string `yaml:"namespaces"` // prefix -> uri
	SchemaLocation string            `yaml:"schemaLocation"`
	ReadWriteUUID  bool              `yaml:"readwriteUUID"`
	UUIDPath       string            `yaml:"uuidPath"`
	TitlePath      string            `yaml:"titlePath"`
}

// PrefixFor returns the canonical prefix of a namespace URI.
func (s Schema) PrefixFor(uri string) (string, bool) {
	for prefix, candidate := range s.Namespaces {
		if candidate == uri && prefix != "" {
			return prefix, true
		}
	}
	return "", false
}

// Path resolves a prefixed path such as "gmd:fileIdentifier/gco:CharacterString".
func (s Schema) Path(path string) ([]metacatalog.QName, error) {
	if path == "" {
		return nil, fmt.Errorf("schema %s: empty path", s.ID)
	}
	segments := strings.Split(path, "/")
	result := make([]metacatalog.QName, 0, len(segments))
	for _, segment := range segments {
		if segment == "*" {
			result = append(result, metacatalog.QName{Local: "*"})
			continue
		}
		prefix, local, found := strings.Cut(segment, ":")
		if !found {
			result = append(result, metacatalog.QName{Local: segment})
			continue
		}
		uri, ok := s.Namespaces[prefix]
		if !ok {
			return nil, fmt.Errorf("schema %s: unknown prefix %s", s.ID, prefix)
		}
		result = append(result, metacatalog.QName{Space: uri, Local: local})
	}
	return result, nil
}

// Registry holds the known schemas and the directory their stylesheets live in.
type Registry struct {
	dir     string
	schemas map[string]Schema
}

func NewRegistry(dir string, extra ...Schema) *Registry {
	r := &Registry{
		dir:     dir,
		schemas: make(map[string]Schema),
	}
	for _, s := range builtin() {
		r.schemas[s.ID] = s
	}
	for _, s := range extra {
		r.schemas[s.ID] = s
	}
	return r
}

func (r *Registry) Get(id string) (Schema, error) {
	s, ok := r.schemas[id]
	if !ok {
		return Schema{}, fmt.Errorf("schema %s is not registered", id)
	}
	return s, nil
}

// Dir returns the directory of a schema plugin.
func (r *Registry) Dir(id string) string {
	return filepath.Join(r.dir, id)
}

// Stylesheet returns the path of a stylesheet in the schema directory and whether it exists.
func (r *Registry) Stylesheet(schemaID, file string) (string, bool) {
	path := filepath.Join(r.Dir(schemaID), file)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

func builtin() []Schema {
	return []Schema{
		{
			ID: ISO19139,
			Namespaces: map[string]string{
				"gmd":   "http://www.isotc211.org/2005/gmd",
				"gco":   "http://www.isotc211.org/2005/gco",
				"gmx":   "http://www.isotc211.org/2005/gmx",
				"srv":   "http://www.isotc211.org/2005/srv",
				"gml":   "http://www.opengis.net/gml/3.2",
				"xlink": metacatalog.XLinkNamespace,
			},
			SchemaLocation: "http://www.isotc211.org/2005/gmd http://schemas.opengis.net/csw/2.0.2/profiles/apiso/1.0.0/apiso.xsd",
			ReadWriteUUID:  true,
			UUIDPath:       "gmd:fileIdentifier/gco:CharacterString",
			TitlePath:      "gmd:identificationInfo/*/gmd:citation/gmd:CI_Citation/gmd:title/gco:CharacterString",
		},
		{
			ID: ISO19115_3,
			Namespaces: map[string]string{
				"mdb":   "http://standards.iso.org/iso/19115/-3/mdb/2.0",
				"mcc":   "http://standards.iso.org/iso/19115/-3/mcc/1.0",
				"mri":   "http://standards.iso.org/iso/19115/-3/mri/1.0",
				"cit":   "http://standards.iso.org/iso/19115/-3/cit/2.0",
				"gco":   "http://standards.iso.org/iso/19115/-3/gco/1.0",
				"xlink": metacatalog.XLinkNamespace,
			},
			SchemaLocation: "http://standards.iso.org/iso/19115/-3/mdb/2.0 http://standards.iso.org/iso/19115/-3/mdb/2.0/mdb.xsd",
			ReadWriteUUID:  true,
			UUIDPath:       "mdb:metadataIdentifier/mcc:MD_Identifier/mcc:code/gco:CharacterString",
			TitlePath:      "mdb:identificationInfo/*/mri:citation/cit:CI_Citation/cit:title/gco:CharacterString",
		},
		{
			ID: DublinCore,
			Namespaces: map[string]string{
				"dc":  "http://purl.org/dc/elements/1.1/",
				"dct": "http://purl.org/dc/terms/",
			},
			SchemaLocation: "http://purl.org/dc/elements/1.1/ http://dublincore.org/schemas/xmls/qdc/2006/01/06/simpledc.xsd",
			ReadWriteUUID:  true,
			UUIDPath:       "dc:identifier",
			TitlePath:      "dc:title",
		},
	}
}
