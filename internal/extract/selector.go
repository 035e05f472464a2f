package extract

import (
	"fmt"
	"strings"
)

// target selects what a Query yields from each matched element.
type target int

const (
	targetText target = iota
	targetAttr
)

// Query is a parsed field selector: a CSS selector optionally followed by a
// pseudo-element naming what to read from each match, either "::text" or
// "::attr(name)". A bare CSS selector reads element text.
type Query struct {
	CSS  string
	Attr string

	target target
}

// ParseQuery splits a field selector into its CSS and pseudo-element parts.
func ParseQuery(selector string) (Query, error) {
	s := strings.TrimSpace(selector)
	css, pseudo, found := strings.Cut(s, "::")
	css = strings.TrimSpace(css)
	if css == "" {
		return Query{}, fmt.Errorf("selector %q: empty css part", selector)
	}
	if !found {
		return Query{CSS: css, target: targetText}, nil
	}
	pseudo = strings.TrimSpace(pseudo)
	switch {
	case pseudo == "text":
		return Query{CSS: css, target: targetText}, nil
	case strings.HasPrefix(pseudo, "attr(") && strings.HasSuffix(pseudo, ")"):
		name := strings.TrimSpace(pseudo[len("attr(") : len(pseudo)-1])
		if name == "" {
			return Query{}, fmt.Errorf("selector %q: empty attribute name", selector)
		}
		return Query{CSS: css, Attr: name, target: targetAttr}, nil
	default:
		return Query{}, fmt.Errorf("selector %q: unsupported pseudo-element %q", selector, pseudo)
	}
}

// String renders the query back in selector form.
func (q Query) String() string {
	if q.target == targetAttr {
		return q.CSS + "::attr(" + q.Attr + ")"
	}
	return q.CSS + "::text"
}
