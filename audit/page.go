// Package audit reads and produces crawl results: the per-page JSON objects
// written by the site auditor, and the live probe that fetches pages itself.
// Both end up as catalog.AuditRecord rows of one batch.
package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/routemanager/catalog"
)

// Int is a JSON integer that also accepts floats, numeric strings and null.
type Int int64

func (n *Int) UnmarshalJSON(data []byte) error {
	*n = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Int(math.Round(f))
	return nil
}

// Images counts the <img> elements of a page.
type Images struct {
	Total      Int `json:"total"`
	MissingAlt Int `json:"missing_alt"`
	Broken     Int `json:"broken"`
}

// Page is one audited page as written by the auditor.
type Page struct {
	URL               string                    `json:"url"`
	FullURL           string                    `json:"full_url,omitempty"`
	Category          string                    `json:"category,omitempty"`
	StatusCode        Int                       `json:"status_code"`
	LoadTimeMs        Int                       `json:"load_time_ms"`
	TTFBMs            Int                       `json:"ttfb_ms"`
	RequestCount      Int                       `json:"request_count"`
	TotalBytes        Int                       `json:"total_bytes"`
	SEO               catalog.AuditSeo          `json:"seo"`
	Images            Images                    `json:"images"`
	Errors            []catalog.AuditIssue      `json:"errors"`
	ResponsiveIssues  []catalog.ResponsiveIssue `json:"responsive_issues"`
	PerformanceVitals json.RawMessage           `json:"performance_vitals,omitempty"`
	LiveComparison    json.RawMessage           `json:"live_comparison,omitempty"`
}

// UnmarshalJSON drops malformed error and responsive-issue lists instead of
// failing the page.
func (p *Page) UnmarshalJSON(data []byte) error {
	type plain Page
	var aux struct {
		plain
		Errors           json.RawMessage `json:"errors"`
		ResponsiveIssues json.RawMessage `json:"responsive_issues"`
		Images           json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Page(aux.plain)
	p.Errors = nil
	p.ResponsiveIssues = nil
	p.Images = Images{}
	_ = json.Unmarshal(aux.Errors, &p.Errors)
	_ = json.Unmarshal(aux.ResponsiveIssues, &p.ResponsiveIssues)
	_ = json.Unmarshal(aux.Images, &p.Images)
	return nil
}

// ErrNotArray is returned when an audit file is not a JSON array of pages.
var ErrNotArray = errors.New("audit: expected a JSON array of pages")

// DecodePages reads an auditor results file.
func DecodePages(r io.Reader) ([]Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("audit: read: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrNotArray
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("audit: decode: %w", err)
	}
	pages := make([]Page, 0, len(raw))
	for i, item := range raw {
		var p Page
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("audit: page %d: %w", i, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// NormalizePath reduces a page url (absolute or path-only) to the path key
// used by route settings: leading slash, no trailing slash, no query.
func NormalizePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if len(raw) > 1 {
		raw = strings.TrimRight(raw, "/")
		if raw == "" {
			raw = "/"
		}
	}
	return raw
}

// Path returns the normalized path of p, falling back to FullURL.
func (p Page) Path() string {
	if path := NormalizePath(p.URL); path != "" {
		return path
	}
	return NormalizePath(p.FullURL)
}

func rawOrNil(m json.RawMessage) json.RawMessage {
	t := bytes.TrimSpace(m)
	if len(t) == 0 || string(t) == "null" {
		return nil
	}
	return t
}

// Record converts p into the stored form of one batch.
func (p Page) Record(date time.Time, batchID string) catalog.AuditRecord {
	return catalog.AuditRecord{
		Path:             p.Path(),
		AuditDate:        date,
		StatusCode:       int(p.StatusCode),
		LoadTimeMs:       int(p.LoadTimeMs),
		TTFBMs:           int(p.TTFBMs),
		RequestCount:     int(p.RequestCount),
		TotalBytes:       int64(p.TotalBytes),
		SEO:              p.SEO,
		Errors:           p.Errors,
		ResponsiveIssues: p.ResponsiveIssues,
		Comparison:       rawOrNil(p.LiveComparison),
		Vitals:           rawOrNil(p.PerformanceVitals),
		BatchID:          batchID,
	}
}
