// Package catalog assembles the per-route view of a site: every known path,
// its effective access label, its SEO indicator badges, and its place in the
// two-level group tree used by the admin listing and the CSV export.
package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/eringen/routemanager/access"
)

// RouteSetting is the persisted per-path override, unique by Path.
type RouteSetting struct {
	Path      string
	RouteName string
	Access    access.Override
	PageTitle string
	Metatags  Metatags
	UpdatedAt time.Time
}

// Metatags holds the SEO overrides of a RouteSetting. Unset fields are
// omitted when serialized.
type Metatags struct {
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Canonical     string `json:"canonical,omitempty"`
	Robots        string `json:"robots,omitempty"`
	OGTitle       string `json:"og:title,omitempty"`
	OGDescription string `json:"og:description,omitempty"`
	OGImage       string `json:"og:image,omitempty"`
}

// IsZero reports whether no metatag is set.
func (m Metatags) IsZero() bool {
	return m == Metatags{}
}

// Trim returns m with surrounding whitespace removed from every field.
func (m Metatags) Trim() Metatags {
	return Metatags{
		Title:         strings.TrimSpace(m.Title),
		Description:   strings.TrimSpace(m.Description),
		Canonical:     strings.TrimSpace(m.Canonical),
		Robots:        strings.TrimSpace(m.Robots),
		OGTitle:       strings.TrimSpace(m.OGTitle),
		OGDescription: strings.TrimSpace(m.OGDescription),
		OGImage:       strings.TrimSpace(m.OGImage),
	}
}

// DecodeMetatags parses the stored JSON form. Corrupt or empty input yields
// empty Metatags rather than an error.
func DecodeMetatags(raw []byte) Metatags {
	var m Metatags
	if len(bytes.TrimSpace(raw)) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metatags{}
	}
	return m
}

// AuditIssue is one JavaScript/console error captured by the crawler.
type AuditIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ResponsiveIssue is one viewport problem captured by the crawler.
type ResponsiveIssue struct {
	Viewport   string `json:"viewport"`
	Issue      string `json:"issue"`
	Screenshot string `json:"screenshot,omitempty"`
}

// AuditRecord is one crawl result for a path. Records are append-only; only
// the latest per path is consulted.
type AuditRecord struct {
	Path             string
	AuditDate        time.Time
	StatusCode       int
	LoadTimeMs       int
	TTFBMs           int
	RequestCount     int
	TotalBytes       int64
	SEO              AuditSeo
	Errors           []AuditIssue
	ResponsiveIssues []ResponsiveIssue
	Comparison       json.RawMessage
	Vitals           json.RawMessage
	BatchID          string
}

// AuditSeo is the SEO payload extracted by the crawler.
type AuditSeo struct {
	Title           string            `json:"title,omitempty"`
	MetaDescription string            `json:"meta_description,omitempty"`
	Canonical       string            `json:"canonical,omitempty"`
	Robots          string            `json:"robots,omitempty"`
	H1              []string          `json:"h1,omitempty"`
	H2              []string          `json:"h2,omitempty"`
	OG              map[string]string `json:"og,omitempty"`
}

// HasData reports whether any SEO field was captured.
func (s AuditSeo) HasData() bool {
	return s.Title != "" || s.MetaDescription != "" || s.Canonical != "" ||
		s.Robots != "" || len(s.H1) > 0 || len(s.H2) > 0 || len(s.OG) > 0
}

// UnmarshalJSON decodes crawler output leniently: fields of the wrong type
// are dropped instead of failing the whole record.
func (s *AuditSeo) UnmarshalJSON(data []byte) error {
	*s = AuditSeo{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A non-object payload carries no usable data.
		return nil
	}
	s.Title = looseString(raw["title"])
	s.MetaDescription = looseString(raw["meta_description"])
	s.Canonical = looseString(raw["canonical"])
	s.Robots = looseString(raw["robots"])
	s.H1 = looseStrings(raw["h1"])
	s.H2 = looseStrings(raw["h2"])
	s.OG = looseStringMap(raw["og"])
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func looseStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		if s := looseString(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range list {
		if s := looseString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func looseStringMap(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s := looseString(v)
		if s == "" && len(v) > 0 && string(v) != "null" && string(v) != `""` {
			// Non-scalar og values still count as a present tag.
			s = string(v)
		}
		if s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// StaticRoute is a declared route path without placeholders, plus its
// declarative access requirements.
type StaticRoute struct {
	Name         string
	Path         string
	Requirements map[string]string
	AdminRoute   bool
}

// RouteTable is the route metadata snapshot of the host site.
type RouteTable struct {
	Routes []StaticRoute
	// AnonymousPermissions are the permissions granted to the anonymous role.
	AnonymousPermissions map[string]bool
}

// IsStatic reports whether path contains no substitution placeholders.
func IsStatic(path string) bool {
	return path != "" && !strings.ContainsAny(path, "{}")
}
