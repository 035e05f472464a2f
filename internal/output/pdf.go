package output

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/apicatalog/internal/catalog"
)

// renderPDF lays out the catalog as a simple listing: a heading with the
// source and version, then one block per endpoint sorted by identifier, with
// the resource linked to its documentation page.
func renderPDF(c *catalog.Catalog) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("API endpoints: "+c.BaseURL, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("API endpoints"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	version := "unknown"
	if c.APIVersion != nil {
		version = *c.APIVersion
	}
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Source: %s", c.BaseURL)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Version: %s  Endpoints: %d", version, len(c.Endpoints))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	ids := make([]string, 0, len(c.Endpoints))
	for id := range c.Endpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ep := c.Endpoints[id]
		pdf.SetFont("Helvetica", "B", 11)
		title := ep.Resource
		if strings.TrimSpace(title) == "" {
			title = id
		}
		if link := resolveLink(c.BaseURL, ep.DocumentationLink); link != "" {
			pdf.WriteLinkString(6, tr(title), link)
		} else {
			pdf.Write(6, tr(title))
		}
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		if ep.Description != "" {
			pdf.MultiCell(0, 5, tr(ep.Description), "", "L", false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// resolveLink makes a documentation link absolute against base when possible.
func resolveLink(base, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return b.ResolveReference(ref).String()
}
