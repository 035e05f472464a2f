// Package extract pulls endpoint fields out of documentation table rows.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/apicatalog/internal/dom"
)

// ErrMissingField matches any MissingFieldError via errors.Is.
var ErrMissingField = errors.New("missing field")

// MissingFieldError reports a selector that matched nothing.
type MissingFieldError struct {
	Selector string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: no match for selector %q", e.Selector)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// Field returns the first value selected from node, with surrounding
// whitespace trimmed. A selector that matches nothing yields a
// *MissingFieldError; a malformed selector yields a plain error.
func Field(node dom.Node, selector string) (string, error) {
	q, err := ParseQuery(selector)
	if err != nil {
		return "", err
	}
	return FieldQuery(node, q)
}

// FieldQuery is Field for an already parsed query.
func FieldQuery(node dom.Node, q Query) (string, error) {
	if node == nil {
		return "", &MissingFieldError{Selector: q.String()}
	}
	for _, m := range node.FindAll(q.CSS) {
		switch q.target {
		case targetAttr:
			if v, ok := m.Attr(q.Attr); ok {
				return normalize(v), nil
			}
		default:
			return normalize(m.Text()), nil
		}
	}
	return "", &MissingFieldError{Selector: q.String()}
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
