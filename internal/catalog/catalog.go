// Package catalog assembles the endpoint catalog of a REST API documentation
// page.
package catalog

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/apicatalog/internal/dom"
	"github.com/hyperifyio/apicatalog/internal/extract"
)

// Endpoint is one catalog entry.
type Endpoint = extract.Record

// Catalog is the complete record for one documentation page.
type Catalog struct {
	BaseURL    string              `json:"base_url" yaml:"base_url"`
	APIVersion *string             `json:"api_version" yaml:"api_version"`
	Endpoints  map[string]Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Selectors locate the catalog structure within a page.
type Selectors struct {
	// Group matches one category of endpoints.
	Group string
	// Row matches one endpoint within a group.
	Row string
	// Footer is searched for the version token.
	Footer string
	// Fields locate the endpoint fields inside a row.
	Fields extract.RowSelectors
}

// DefaultSelectors fit pages that list each category as a table body.
var DefaultSelectors = Selectors{
	Group:  "tbody",
	Row:    "tr",
	Footer: "footer",
	Fields: extract.DefaultRowSelectors,
}

var versionRe = regexp.MustCompile(`\(Version ([0-9.]+)\)`)

// Stats summarizes a build.
type Stats struct {
	Groups int
	Rows   int
	// EmptyIdentifiers counts rows whose documentation link had no segments.
	EmptyIdentifiers int
	// Overwritten counts rows that replaced an earlier row with the same identifier.
	Overwritten int
}

// Builder turns a parsed page into a Catalog. The zero value uses
// DefaultSelectors and discards logs.
type Builder struct {
	Selectors *Selectors
	Logger    *zerolog.Logger
}

func (b *Builder) selectors() Selectors {
	if b == nil || b.Selectors == nil {
		return DefaultSelectors
	}
	s := *b.Selectors
	if strings.TrimSpace(s.Group) == "" {
		s.Group = DefaultSelectors.Group
	}
	if strings.TrimSpace(s.Row) == "" {
		s.Row = DefaultSelectors.Row
	}
	if strings.TrimSpace(s.Footer) == "" {
		s.Footer = DefaultSelectors.Footer
	}
	if s.Fields.Resource == "" {
		s.Fields.Resource = DefaultSelectors.Fields.Resource
	}
	if s.Fields.Link == "" {
		s.Fields.Link = DefaultSelectors.Fields.Link
	}
	if s.Fields.Description == "" {
		s.Fields.Description = DefaultSelectors.Fields.Description
	}
	return s
}

func (b *Builder) logger() *zerolog.Logger {
	if b == nil || b.Logger == nil {
		l := zerolog.Nop()
		return &l
	}
	return b.Logger
}

// LocateGroups yields every row of every group in document order.
func (b *Builder) LocateGroups(page *dom.Page) iter.Seq[dom.Node] {
	s := b.selectors()
	return func(yield func(dom.Node) bool) {
		if page == nil || page.Root == nil {
			return
		}
		for _, group := range page.Root.FindAll(s.Group) {
			for _, row := range group.FindAll(s.Row) {
				if !yield(row) {
					return
				}
			}
		}
	}
}

// ExtractVersion returns the first "(Version x.y)" token found in the footer,
// or nil when there is none.
func (b *Builder) ExtractVersion(page *dom.Page) *string {
	if page == nil || page.Root == nil {
		return nil
	}
	for _, footer := range page.Root.FindAll(b.selectors().Footer) {
		if m := versionRe.FindStringSubmatch(footer.Text()); len(m) > 1 {
			v := m[1]
			return &v
		}
	}
	return nil
}

// Build extracts the full catalog from page.
func (b *Builder) Build(page *dom.Page) (*Catalog, error) {
	c, _, err := b.BuildWithStats(page)
	return c, err
}

// BuildWithStats is Build that also reports what was seen. The first row that
// fails extraction aborts the build and no catalog is returned.
func (b *Builder) BuildWithStats(page *dom.Page) (*Catalog, Stats, error) {
	if page == nil {
		return nil, Stats{}, fmt.Errorf("build catalog: nil page")
	}
	s := b.selectors()
	log := b.logger()
	var st Stats
	if page.Root != nil {
		st.Groups = len(page.Root.FindAll(s.Group))
	}

	endpoints := make(map[string]Endpoint)
	for row := range b.LocateGroups(page) {
		st.Rows++
		id, rec, err := s.Fields.Endpoint(row)
		if err != nil {
			return nil, st, fmt.Errorf("build catalog: row %d: %w", st.Rows, err)
		}
		if id == "" {
			st.EmptyIdentifiers++
			log.Warn().Int("row", st.Rows).Str("link", rec.DocumentationLink).Msg("endpoint has empty identifier")
		}
		if _, dup := endpoints[id]; dup {
			st.Overwritten++
			log.Debug().Str("id", id).Int("row", st.Rows).Msg("endpoint identifier repeated; keeping later row")
		}
		endpoints[id] = rec
	}
	if st.Rows == 0 {
		log.Warn().Str("url", page.URL).Int("groups", st.Groups).Msg("no endpoint rows found")
	}

	return &Catalog{
		BaseURL:    page.URL,
		APIVersion: b.ExtractVersion(page),
		Endpoints:  endpoints,
	}, st, nil
}
