package structure

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

var declAttrPattern = regexp.MustCompile(`([A-Za-z_][\w.-]*)\s*=\s*["']([^"']*)["']`)

// Parse converts XML text into an ordered tree
func Parse(text string) (*Map, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty document")
	}
	return ParseReader(strings.NewReader(text))
}

// ParseBytes converts raw XML bytes into an ordered tree. The XML declaration's
// encoding is honoured.
func ParseBytes(data []byte) (*Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	return ParseReader(bytes.NewReader(data))
}

// ParseReader converts XML from r into an ordered tree
func ParseReader(r io.Reader) (*Map, error) {
	doc := newDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}

	root, err := singleRoot(doc)
	if err != nil {
		return nil, err
	}

	out := NewMap()
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			out.set(DeclKey, declaration(pi.Inst))
		}
	}
	out.set(root.FullTag(), convertElement(root))
	return out, nil
}

// ReadDocument parses XML bytes into an etree document using the same
// settings as Parse
func ReadDocument(data []byte) (*etree.Document, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}
	if _, err := singleRoot(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// singleRoot returns the document element. Only comments, processing
// instructions, directives and whitespace may surround it.
func singleRoot(doc *etree.Document) (*etree.Element, error) {
	var root *etree.Element
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if root != nil {
				return nil, fmt.Errorf("malformed XML: second top-level element <%s>", t.FullTag())
			}
			root = t
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return nil, fmt.Errorf("malformed XML: text outside the root element")
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	return doc
}

func declaration(inst string) *Map {
	m := NewMap()
	for _, match := range declAttrPattern.FindAllStringSubmatch(inst, -1) {
		m.set(AttrPrefix+match[1], match[2])
	}
	return m
}

func convertElement(el *etree.Element) any {
	children := el.ChildElements()
	text := strings.TrimSpace(el.Text())

	if len(el.Attr) == 0 && len(children) == 0 {
		return text
	}

	m := NewMap()
	for _, attr := range el.Attr {
		m.set(AttrPrefix+attr.FullKey(), attr.Value)
	}
	for _, child := range children {
		m.add(child.FullTag(), convertElement(child))
	}
	if text != "" {
		m.set(TextKey, text)
	}
	return m
}
