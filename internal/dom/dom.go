// Package dom exposes the small read-only view of an HTML document that the
// extraction pipeline works against. Callers depend on Node; the goquery
// backed implementation stays private to this package.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is one element subtree of a parsed document.
type Node interface {
	// FindAll returns descendants matching the CSS selector in document order.
	FindAll(selector string) []Node
	// FindFirst returns the first descendant matching the CSS selector.
	FindFirst(selector string) (Node, bool)
	// Text returns the concatenated text of the subtree.
	Text() string
	// Attr returns the named attribute of the node itself.
	Attr(name string) (string, bool)
}

// Page is a fetched and parsed document.
type Page struct {
	URL  string
	Root Node
}

// Parse builds a Page from raw HTML bytes. Table sections the HTML5 parser
// synthesizes for rows written directly inside a table are removed again, so
// "tbody" only matches sections present in the markup.
func Parse(url string, body []byte) (*Page, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	unwrapImplicitTbody(root, sourceTbodies(body))
	return &Page{URL: url, Root: wrap(goquery.NewDocumentFromNode(root).Selection)}, nil
}

// ParseString is a convenience wrapper around Parse for literal markup.
func ParseString(url string, markup string) (*Page, error) {
	return Parse(url, []byte(markup))
}

type goqueryNode struct {
	sel *goquery.Selection
}

func wrap(sel *goquery.Selection) Node {
	return goqueryNode{sel: sel}
}

func (n goqueryNode) FindAll(selector string) []Node {
	matches := n.find(selector)
	if matches == nil {
		return nil
	}
	out := make([]Node, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		out = append(out, wrap(s))
	})
	return out
}

func (n goqueryNode) FindFirst(selector string) (Node, bool) {
	matches := n.find(selector)
	if matches == nil || matches.Length() == 0 {
		return nil, false
	}
	return wrap(matches.First()), true
}

func (n goqueryNode) find(selector string) *goquery.Selection {
	selector = strings.TrimSpace(selector)
	if selector == "" || n.sel == nil {
		return nil
	}
	// goquery yields an empty selection for selectors that fail to compile.
	return n.sel.Find(selector)
}

func (n goqueryNode) Text() string {
	if n.sel == nil {
		return ""
	}
	return n.sel.Text()
}

func (n goqueryNode) Attr(name string) (string, bool) {
	if n.sel == nil {
		return "", false
	}
	return n.sel.Attr(name)
}
