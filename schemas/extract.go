package schemas

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/totegamma/metacatalog"
)

// ExtractUUID reads the record identifier from a parsed document.
func (s Schema) ExtractUUID(doc *etree.Document) (string, error) {
	return s.extract(doc, s.UUIDPath)
}

// ExtractTitle reads the record title from a parsed document.
func (s Schema) ExtractTitle(doc *etree.Document) (string, error) {
	return s.extract(doc, s.TitlePath)
}

func (s Schema) extract(doc *etree.Document, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	resolved, err := s.Path(path)
	if err != nil {
		return "", err
	}
	el := metacatalog.FindPath(doc.Root(), resolved)
	if el == nil {
		return "", nil
	}
	return strings.TrimSpace(el.Text()), nil
}
