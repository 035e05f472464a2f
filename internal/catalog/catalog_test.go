package catalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hyperifyio/apicatalog/internal/dom"
	"github.com/hyperifyio/apicatalog/internal/extract"
)

const ensemblLike = `<!doctype html>
<html>
  <head><title>Ensembl REST API Endpoints</title></head>
  <body>
    <h3>Archive</h3>
    <table>
      <thead><tr><th>Resource</th><th>Description</th></tr></thead>
      <tbody>
        <tr><td><a href="/documentation/info/archive_id_get">GET archive/id/:id</a></td><td>Uses the given identifier to return its latest version</td></tr>
        <tr><td><a href="/documentation/info/archive_id_post">POST archive/id</a></td><td>  Retrieve the latest version for a set of identifiers  </td></tr>
      </tbody>
    </table>
    <h3>Information</h3>
    <table>
      <tbody>
        <tr><td><a href="/documentation/info/ping">GET info/ping</a></td><td>Checks if the service is alive.</td></tr>
      </tbody>
    </table>
    <footer><p>Ensembl REST API (Version 15.2) Site hosted on Amazon Web Services</p></footer>
  </body>
</html>`

func mustPage(t *testing.T, markup string) *dom.Page {
	t.Helper()
	page, err := dom.ParseString("https://rest.ensembl.org/", markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return page
}

func TestBuild_EnsemblLikePage(t *testing.T) {
	var b Builder
	c, st, err := b.BuildWithStats(mustPage(t, ensemblLike))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BaseURL != "https://rest.ensembl.org/" {
		t.Fatalf("unexpected base url %q", c.BaseURL)
	}
	if c.APIVersion == nil || *c.APIVersion != "15.2" {
		t.Fatalf("expected version 15.2, got %v", c.APIVersion)
	}
	if len(c.Endpoints) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(c.Endpoints))
	}
	post := c.Endpoints["archive_id_post"]
	if post.Description != "Retrieve the latest version for a set of identifiers" {
		t.Fatalf("description not trimmed: %q", post.Description)
	}
	if st.Groups != 2 || st.Rows != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestBuild_SingleRowScenario(t *testing.T) {
	page := mustPage(t, `<table><tbody><tr><td><a href="/documentation/rest/info/ping">ping</a></td><td>Checks API status</td></tr></tbody></table>`)
	var b Builder
	c, err := b.Build(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Endpoint{Resource: "ping", DocumentationLink: "/documentation/rest/info/ping", Description: "Checks API status"}
	if len(c.Endpoints) != 1 || c.Endpoints["ping"] != want {
		t.Fatalf("unexpected endpoints %+v", c.Endpoints)
	}
	if c.APIVersion != nil {
		t.Fatalf("expected nil version, got %q", *c.APIVersion)
	}
}

func TestBuild_NoGroupsIsEmptySuccess(t *testing.T) {
	page := mustPage(t, `<html><body><p>nothing here</p><footer>(Version 3.0.1)</footer></body></html>`)
	var b Builder
	c, st, err := b.BuildWithStats(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Endpoints) != 0 || st.Rows != 0 {
		t.Fatalf("expected empty endpoints, got %+v", c.Endpoints)
	}
	if c.APIVersion == nil || *c.APIVersion != "3.0.1" {
		t.Fatalf("expected footer version independently, got %v", c.APIVersion)
	}
	out, err := c.EncodeJSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(out, []byte(`"endpoints": {}`)) {
		t.Fatalf("expected empty endpoints object, got %s", out)
	}
}

func TestBuild_OverwriteKeepsLaterRow(t *testing.T) {
	page := mustPage(t, `<table>
	  <tbody><tr><td><a href="/a/lookup">first</a></td><td>one</td></tr></tbody>
	  <tbody><tr><td><a href="/b/lookup">second</a></td><td>two</td></tr></tbody>
	</table>`)
	var b Builder
	c, st, err := b.BuildWithStats(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Endpoints) != 1 {
		t.Fatalf("expected one entry, got %d", len(c.Endpoints))
	}
	got := c.Endpoints["lookup"]
	if got.Resource != "second" || got.DocumentationLink != "/b/lookup" || got.Description != "two" {
		t.Fatalf("expected later row, got %+v", got)
	}
	if st.Overwritten != 1 {
		t.Fatalf("expected one overwrite, got %d", st.Overwritten)
	}
}

func TestBuild_MissingDescriptionAborts(t *testing.T) {
	page := mustPage(t, `<table><tbody>
	  <tr><td><a href="/doc/ok">ok</a></td><td>fine</td></tr>
	  <tr><th><a href="/doc/bad">bad</a></th></tr>
	</tbody></table>`)
	var b Builder
	c, err := b.Build(page)
	if err == nil {
		t.Fatalf("expected error")
	}
	if c != nil {
		t.Fatalf("expected no catalog on failure")
	}
	if !errors.Is(err, extract.ErrMissingField) {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 2") || !strings.Contains(err.Error(), "td:last-of-type") {
		t.Fatalf("error should name row and selector: %v", err)
	}
}

func TestBuild_EmptyIdentifierIsKept(t *testing.T) {
	page := mustPage(t, `<table><tbody>
	  <tr><td><a href="">one</a></td><td>d1</td></tr>
	  <tr><td><a href="/">two</a></td><td>d2</td></tr>
	</tbody></table>`)
	var b Builder
	c, st, err := b.BuildWithStats(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.EmptyIdentifiers != 2 {
		t.Fatalf("expected 2 empty identifiers, got %d", st.EmptyIdentifiers)
	}
	if got, ok := c.Endpoints[""]; !ok || got.Resource != "two" {
		t.Fatalf("expected later empty-identifier row to win, got %+v", c.Endpoints)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	var b Builder
	c1, err := b.Build(mustPage(t, ensemblLike))
	if err != nil {
		t.Fatalf("build 1: %v", err)
	}
	c2, err := b.Build(mustPage(t, ensemblLike))
	if err != nil {
		t.Fatalf("build 2: %v", err)
	}
	j1, _ := c1.EncodeJSON()
	j2, _ := c2.EncodeJSON()
	if !bytes.Equal(j1, j2) {
		t.Fatalf("expected identical output\n%s\n---\n%s", j1, j2)
	}
}

func TestExtractVersion(t *testing.T) {
	var b Builder
	if v := b.ExtractVersion(mustPage(t, `<footer>Ensembl (Version 15.2)</footer>`)); v == nil || *v != "15.2" {
		t.Fatalf("expected 15.2, got %v", v)
	}
	if v := b.ExtractVersion(mustPage(t, `<footer>no version here</footer>`)); v != nil {
		t.Fatalf("expected nil, got %q", *v)
	}
	if v := b.ExtractVersion(mustPage(t, `<p>(Version 9.9)</p>`)); v != nil {
		t.Fatalf("version outside footer must be ignored, got %q", *v)
	}
	if v := b.ExtractVersion(mustPage(t, `<footer>(Version 1.0) (Version 2.0)</footer>`)); v == nil || *v != "1.0" {
		t.Fatalf("expected first match, got %v", v)
	}
}

func TestLocateGroups_DocumentOrder(t *testing.T) {
	var b Builder
	var names []string
	for row := range b.LocateGroups(mustPage(t, ensemblLike)) {
		a, ok := row.FindFirst("a")
		if !ok {
			t.Fatalf("row without anchor")
		}
		names = append(names, a.Text())
	}
	want := []string{"GET archive/id/:id", "POST archive/id", "GET info/ping"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestLocateGroups_StopsEarly(t *testing.T) {
	var b Builder
	n := 0
	for range b.LocateGroups(mustPage(t, ensemblLike)) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected to stop after first row, got %d", n)
	}
}

func TestBuilder_CustomSelectors(t *testing.T) {
	page := mustPage(t, `<div class="cat"><div class="ep"><a href="/doc/x">X</a><span>about x</span></div></div>
	<div id="ver">(Version 2.1)</div>`)
	b := Builder{Selectors: &Selectors{
		Group:  "div.cat",
		Row:    "div.ep",
		Footer: "#ver",
		Fields: extract.RowSelectors{Description: "span"},
	}}
	c, err := b.Build(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Endpoints["x"].Description != "about x" || *c.APIVersion != "2.1" {
		t.Fatalf("unexpected catalog %+v", c)
	}
}

func TestBuild_NilPage(t *testing.T) {
	var b Builder
	if _, err := b.Build(nil); err == nil {
		t.Fatalf("expected error for nil page")
	}
}

func TestBuild_TableWithoutTbodyIsNotAGroup(t *testing.T) {
	page := mustPage(t, `<html><body>
<table><tr><th>Resource</th><th>Description</th></tr><tr><td><a href="/doc/layout">layout</a></td><td>nav</td></tr></table>
<table><tbody><tr><td><a href="/documentation/info/ping">GET info/ping</a></td><td>Checks if the service is alive.</td></tr></tbody></table>
</body></html>`)
	var b Builder
	c, st, err := b.BuildWithStats(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Groups != 1 || st.Rows != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if _, ok := c.Endpoints["ping"]; !ok || len(c.Endpoints) != 1 {
		t.Fatalf("expected only the listed endpoint, got %+v", c.Endpoints)
	}

	bare := mustPage(t, `<table><tr><th>Resource</th><th>Description</th></tr><tr><td><a href="/doc/ping">ping</a></td><td>d</td></tr></table>`)
	c, st, err = b.BuildWithStats(bare)
	if err != nil {
		t.Fatalf("bare table should not abort the build: %v", err)
	}
	if st.Groups != 0 || len(c.Endpoints) != 0 {
		t.Fatalf("expected no groups, got %+v endpoints=%d", st, len(c.Endpoints))
	}
}
