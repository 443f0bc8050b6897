package normalize

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const xmlNamespaceURL = "http://www.w3.org/XML/1998/namespace"

// node is a minimal SVG element tree. Text nodes have an empty name.
type node struct {
	name     string
	attrs    []attribute
	children []*node
	text     string
}

type attribute struct {
	name  string
	value string
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

func (n *node) attrOr(name, fallback string) string {
	if v, ok := n.attr(name); ok {
		return v
	}
	return fallback
}

func (n *node) isText() bool {
	return n.name == ""
}

// parseSVGTree decodes an SVG document into a node tree rooted at its outermost element.
func parseSVGTree(src string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(src))
	prefixes := make(map[string]string) // namespace URL -> declared prefix

	var root *node
	var stack []*node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode svg: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					prefixes[a.Value] = a.Name.Local
				}
			}
			n := &node{name: t.Name.Local}
			for _, a := range t.Attr {
				n.attrs = append(n.attrs, attribute{name: qualifyAttr(a.Name, prefixes), value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("decode svg: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, &node{text: text})
		}
	}

	if root == nil {
		return nil, errors.New("decode svg: no root element")
	}
	return root, nil
}

// qualifyAttr restores the prefixed attribute name the document author wrote.
func qualifyAttr(name xml.Name, prefixes map[string]string) string {
	switch {
	case name.Space == "":
		return name.Local
	case name.Space == "xmlns":
		return "xmlns:" + name.Local
	case name.Space == xmlNamespaceURL:
		return "xml:" + name.Local
	}
	if prefix, ok := prefixes[name.Space]; ok {
		return prefix + ":" + name.Local
	}
	if !strings.Contains(name.Space, ":") {
		// undeclared prefix, kept verbatim by the decoder
		return name.Space + ":" + name.Local
	}
	return name.Local
}

// stringify serializes a node back to markup. Childless elements self-close.
func stringify(n *node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *node) {
	if n.isText() {
		_ = xml.EscapeText(b, []byte(n.text))
		return
	}

	b.WriteString("<")
	b.WriteString(n.name)
	for _, a := range n.attrs {
		b.WriteString(" ")
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.value))
		b.WriteString(`"`)
	}
	if len(n.children) == 0 {
		b.WriteString(" />")
		return
	}
	b.WriteString(">")
	for _, child := range n.children {
		writeNode(b, child)
	}
	b.WriteString("</")
	b.WriteString(n.name)
	b.WriteString(">")
}
