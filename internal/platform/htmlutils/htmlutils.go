// Package htmlutils provides a small, parser-independent view of a markup
// tree.
//
// The package handles:
//   - adapting golang.org/x/net/html nodes to the Element interface
//   - in-memory trees for callers that do not want a parser
//   - depth-first search and sibling scans
//   - flattening a tree into whitespace-separated text
package htmlutils

import (
	"strings"

	"golang.org/x/net/html"
)

// DocumentTag is the tag reported by the root of a parsed document.
const DocumentTag = "#document"

// Element is a node of a markup tree. Text nodes report an empty Tag.
type Element interface {
	Tag() string
	// Text is the concatenation of every descendant text node, unmodified.
	Text() string
	Children() []Element
	// NextSiblings returns the following element siblings, text nodes excluded.
	NextSiblings() []Element
}

var headingTags = map[string]bool{
	"h1": true,
	"h2": true,
	"h3": true,
	"h4": true,
	"h5": true,
	"h6": true,
}

// IsHeading reports whether e is an h1-h6 element.
func IsHeading(e Element) bool {
	return headingTags[e.Tag()]
}

// HasTag returns a predicate matching elements with one of the given tags.
func HasTag(tags ...string) func(Element) bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}

	return func(e Element) bool {
		return set[e.Tag()]
	}
}

// Walk visits root and its descendants depth-first in document order.
// Returning false from visit skips the children of that node.
func Walk(root Element, visit func(Element) bool) {
	if !visit(root) {
		return
	}

	for _, c := range root.Children() {
		Walk(c, visit)
	}
}

// FindAll returns every element under root (root included) matching pred,
// in document order.
func FindAll(root Element, pred func(Element) bool) []Element {
	var out []Element

	Walk(root, func(e Element) bool {
		if e.Tag() != "" && pred(e) {
			out = append(out, e)
		}

		return true
	})

	return out
}

// NextSiblingsUntil returns the element siblings following e, stopping
// before the first one for which stop returns true.
func NextSiblingsUntil(e Element, stop func(Element) bool) []Element {
	var out []Element

	for _, s := range e.NextSiblings() {
		if stop != nil && stop(s) {
			break
		}

		out = append(out, s)
	}

	return out
}

// Flatten joins every non-blank text node under root with single spaces,
// trimming each piece. Script and style contents are skipped.
func Flatten(root Element) string {
	var pieces []string

	Walk(root, func(e Element) bool {
		switch e.Tag() {
		case "script", "style":
			return false
		case "":
			if piece := strings.TrimSpace(e.Text()); piece != "" {
				pieces = append(pieces, piece)
			}
		}

		return true
	})

	return strings.Join(pieces, " ")
}

// FromNode wraps a parsed node. Comment and doctype nodes are hidden from
// the resulting tree.
func FromNode(n *html.Node) Element {
	return node{n: n}
}

type node struct {
	n *html.Node
}

func (e node) Tag() string {
	switch e.n.Type {
	case html.TextNode:
		return ""
	case html.DocumentNode:
		return DocumentTag
	default:
		return strings.ToLower(e.n.Data)
	}
}

func (e node) Text() string {
	if e.n.Type == html.TextNode {
		return e.n.Data
	}

	var sb strings.Builder

	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(e.n)

	return sb.String()
}

func (e node) Children() []Element {
	var out []Element

	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if visible(c) {
			out = append(out, node{n: c})
		}
	}

	return out
}

func (e node) NextSiblings() []Element {
	var out []Element

	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			out = append(out, node{n: s})
		}
	}

	return out
}

func visible(n *html.Node) bool {
	return n.Type == html.ElementNode || n.Type == html.TextNode || n.Type == html.DocumentNode
}

// Static is an in-memory Element, built with NewElement and NewText.
type Static struct {
	tag      string
	text     string
	parent   *Static
	children []*Static
}

// NewElement builds an element node and adopts the given children.
func NewElement(tag string, children ...*Static) *Static {
	el := &Static{tag: strings.ToLower(tag), children: children}
	for _, c := range children {
		c.parent = el
	}

	return el
}

// NewText builds a text node.
func NewText(text string) *Static {
	return &Static{text: text}
}

func (s *Static) Tag() string { return s.tag }

func (s *Static) Text() string {
	if s.tag == "" {
		return s.text
	}

	var sb strings.Builder
	for _, c := range s.children {
		sb.WriteString(c.Text())
	}

	return sb.String()
}

func (s *Static) Children() []Element {
	out := make([]Element, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, c)
	}

	return out
}

func (s *Static) NextSiblings() []Element {
	if s.parent == nil {
		return nil
	}

	var out []Element

	after := false

	for _, c := range s.parent.children {
		if c == s {
			after = true
			continue
		}

		if after && c.tag != "" {
			out = append(out, c)
		}
	}

	return out
}
