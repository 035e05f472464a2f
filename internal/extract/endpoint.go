package extract

import (
	"strings"

	"github.com/hyperifyio/apicatalog/internal/dom"
)

// Record describes one documented REST resource.
type Record struct {
	Resource          string `json:"resource" yaml:"resource"`
	DocumentationLink string `json:"documentation_link" yaml:"documentation_link"`
	Description       string `json:"description" yaml:"description"`
}

// RowSelectors names where each endpoint field lives inside a row.
type RowSelectors struct {
	Resource    string
	Link        string
	Description string
}

// DefaultRowSelectors match a row whose first anchor names the resource and
// links to its page, and whose last cell holds the description.
var DefaultRowSelectors = RowSelectors{
	Resource:    "a::text",
	Link:        "a::attr(href)",
	Description: "td:last-of-type::text",
}

// Endpoint extracts the identifier and record from one row using
// DefaultRowSelectors.
func Endpoint(row dom.Node) (string, Record, error) {
	return DefaultRowSelectors.Endpoint(row)
}

// Endpoint extracts the identifier and record from one row. Any field that
// cannot be found aborts the row.
func (s RowSelectors) Endpoint(row dom.Node) (string, Record, error) {
	link, err := Field(row, s.Link)
	if err != nil {
		return "", Record{}, err
	}
	resource, err := Field(row, s.Resource)
	if err != nil {
		return "", Record{}, err
	}
	description, err := Field(row, s.Description)
	if err != nil {
		return "", Record{}, err
	}
	rec := Record{
		Resource:          resource,
		DocumentationLink: link,
		Description:       description,
	}
	return Identifier(link), rec, nil
}

// Identifier returns the last non-empty "/" separated segment of link. A link
// without separators is returned whole; an empty or all-separator link yields "".
func Identifier(link string) string {
	segments := strings.Split(link, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
