// Package output writes an encoded catalog to its destination along with a
// sidecar manifest describing the run.
package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hyperifyio/apicatalog/internal/catalog"
)

// Format selects the encoding of the written catalog.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts json, yaml/yml, and pdf case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == "" {
		return string(FormatJSON)
	}
	return string(f)
}

// Encode renders c in format f.
func Encode(c *catalog.Catalog, f Format) ([]byte, error) {
	switch f {
	case "", FormatJSON:
		return c.EncodeJSON()
	case FormatYAML:
		return c.EncodeYAML()
	case FormatPDF:
		return renderPDF(c)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveDestination maps a source URL to a logical file name such as
// "rest-ensembl-org_endpoints.json".
func DeriveDestination(sourceURL string, f Format) string {
	name := ""
	if u, err := url.Parse(strings.TrimSpace(sourceURL)); err == nil {
		name = u.Hostname() + " " + strings.Trim(u.Path, "/")
	}
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "api"
	}
	return slug + "_endpoints." + f.Ext()
}

// Manifest is the sidecar record written next to the catalog.
type Manifest struct {
	SourceURL     string    `json:"source_url"`
	SHA256        string    `json:"sha256"`
	EndpointCount int       `json:"endpoint_count"`
	APIVersion    *string   `json:"api_version"`
	Format        Format    `json:"format"`
	HTTPCache     bool      `json:"http_cache"`
	FromCache     bool      `json:"from_cache"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// ManifestPath returns the sidecar path for destination.
func ManifestPath(destination string) string {
	return destination + ".manifest.json"
}

// Writer writes a catalog to Destination. The zero Format is JSON.
type Writer struct {
	Destination string
	Format      Format
	// SkipManifest disables the sidecar.
	SkipManifest bool

	now func() time.Time
}

// RunInfo carries the fetch details recorded in the manifest.
type RunInfo struct {
	Body      []byte
	HTTPCache bool
	FromCache bool
}

// Write encodes c and stores it atomically, then writes the manifest.
func (w *Writer) Write(c *catalog.Catalog, info RunInfo) (string, error) {
	if c == nil {
		return "", fmt.Errorf("write output: nil catalog")
	}
	dest := strings.TrimSpace(w.Destination)
	if dest == "" {
		dest = DeriveDestination(c.BaseURL, w.Format)
	}
	data, err := Encode(c, w.Format)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(dest, data); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	if w.SkipManifest {
		return dest, nil
	}
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	sum := sha256.Sum256(info.Body)
	m := Manifest{
		SourceURL:     c.BaseURL,
		SHA256:        hex.EncodeToString(sum[:]),
		EndpointCount: len(c.Endpoints),
		APIVersion:    c.APIVersion,
		Format:        Format(w.Format.Ext()),
		HTTPCache:     info.HTTPCache,
		FromCache:     info.FromCache,
		GeneratedAt:   now().UTC(),
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return dest, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeFileAtomic(ManifestPath(dest), b); err != nil {
		return dest, fmt.Errorf("write manifest: %w", err)
	}
	return dest, nil
}

// writeFileAtomic writes data to a unique temp file next to path and renames
// it into place. The temp file is removed on any failure.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
