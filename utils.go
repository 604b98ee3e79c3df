package metacatalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const XLinkNamespace = "http://www.w3.org/1999/xlink"

func FormatISODate(t time.Time) string {
	return t.UTC().Format(ISODateLayout)
}

func NowISODate() string {
	return FormatISODate(time.Now())
}

func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "Z")
	return time.Parse(ISODateLayout, s)
}

// SameChangeDate compares two change dates as text, ignoring case.
// The index writes the time designator lower cased while the store keeps 'T'.
func SameChangeDate(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ParseXML(body string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, fmt.Errorf("invalid xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("invalid xml: no root element")
	}
	return doc, nil
}

func WriteXML(doc *etree.Document) (string, error) {
	return doc.WriteToString()
}

// ForceNamespacePrefix rewrites a default (empty prefix) namespace declared on the
// root into a prefixed one, using prefixFor to find the canonical prefix of the
// namespace URI. It returns the URI that was left untouched because no prefix is
// known for it, or "" when nothing needed attention. When the canonical prefix is
// already bound to another URI somewhere in the document, the document is left
// unchanged and an error is returned.
func ForceNamespacePrefix(doc *etree.Document, prefixFor func(uri string) (string, bool)) (unknown string, changed bool, err error) {
	root := doc.Root()
	if root == nil {
		return "", false, nil
	}
	decl := root.SelectAttr("xmlns")
	if decl == nil || decl.Value == "" {
		return "", false, nil
	}
	uri := decl.Value
	prefix, ok := prefixFor(uri)
	if !ok || prefix == "" {
		return uri, false, nil
	}
	if bound := prefixBinding(root, prefix, uri); bound != "" {
		return "", false, fmt.Errorf("prefix %s is already bound to %s, not %s", prefix, bound, uri)
	}

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if own := el.SelectAttr("xmlns"); own != nil && el != root {
			if own.Value != uri {
				return
			}
			el.RemoveAttr("xmlns")
		}
		if el.Space == "" {
			el.Space = prefix
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)

	root.RemoveAttr("xmlns")
	if existing := root.SelectAttr("xmlns:" + prefix); existing == nil {
		root.CreateAttr("xmlns:"+prefix, uri)
	}
	return "", true, nil
}

// prefixBinding returns the first URI other than uri that prefix is declared
// with under el, or "".
func prefixBinding(el *etree.Element, prefix, uri string) string {
	if attr := el.SelectAttr("xmlns:" + prefix); attr != nil && attr.Value != uri {
		return attr.Value
	}
	for _, child := range el.ChildElements() {
		if bound := prefixBinding(child, prefix, uri); bound != "" {
			return bound
		}
	}
	return ""
}

// FindPath walks path from el, matching children by namespace URI and local name.
// A segment with Local "*" matches any child element.
func FindPath(el *etree.Element, path []QName) *etree.Element {
	if el == nil {
		return nil
	}
	if len(path) == 0 {
		return el
	}
	head := path[0]
	for _, child := range el.ChildElements() {
		if head.Local != "*" {
			if child.Tag != head.Local || child.NamespaceURI() != head.Space {
				continue
			}
		}
		if found := FindPath(child, path[1:]); found != nil {
			return found
		}
	}
	return nil
}

// CollectXLinks returns every xlink:href value found in the document.
func CollectXLinks(doc *etree.Document) []string {
	var hrefs []string
	root := doc.Root()
	if root == nil {
		return hrefs
	}
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, attr := range el.Attr {
			if attr.Key == "href" && attr.NamespaceURI() == XLinkNamespace {
				hrefs = append(hrefs, attr.Value)
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return hrefs
}

// AnyText joins all non blank character data of the document.
func AnyText(doc *etree.Document) string {
	var sb strings.Builder
	root := doc.Root()
	if root == nil {
		return ""
	}
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if text := strings.TrimSpace(el.Text()); text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return sb.String()
}
