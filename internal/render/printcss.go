package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PrintStyle lays pages out on A4 with 15 mm margins and keeps backgrounds
const PrintStyle = `@page { size: A4; margin: 15mm; } html { -webkit-print-color-adjust: exact; print-color-adjust: exact; }`

// InjectPrintStyle adds PrintStyle to the head of page
func InjectPrintStyle(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	head := findElement(doc, atom.Head)
	if head == nil {
		return "", fmt.Errorf("parsing HTML: no head element")
	}

	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "media", Val: "print"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: PrintStyle})
	head.AppendChild(style)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}
	return buf.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
