package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/routemanager/catalog"
)

const (
	defaultWorkers  = 4
	defaultMaxPages = 500
	maxBodyBytes    = 10 << 20
	maxH2           = 5
	userAgent       = "routemanager-audit/1.0"
)

// Prober fetches pages of a live site and extracts their SEO data.
type Prober struct {
	base    *url.URL
	compare string
	client  *http.Client

	workers  int
	maxPages int
	log      *zap.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) ProberOption {
	return func(p *Prober) { p.client = c }
}

// WithWorkers bounds the number of pages fetched at once.
func WithWorkers(n int) ProberOption {
	return func(p *Prober) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMaxPages caps the number of pages visited by Crawl.
func WithMaxPages(n int) ProberOption {
	return func(p *Prober) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// WithCompareBase also times every page on a second site, such as the live
// production host, and records the difference.
func WithCompareBase(base string) ProberOption {
	return func(p *Prober) { p.compare = strings.TrimRight(base, "/") }
}

// WithLogger sets the logger used for per-page progress.
func WithLogger(l *zap.Logger) ProberOption {
	return func(p *Prober) { p.log = l }
}

// NewProber creates a Prober for the site at base.
func NewProber(base string, opts ...ProberOption) (*Prober, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("audit: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("audit: base url %q must be absolute", base)
	}
	p := &Prober{
		base:     u,
		client:   &http.Client{Timeout: 30 * time.Second},
		workers:  defaultWorkers,
		maxPages: defaultMaxPages,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Prober) pageURL(base, path string) string {
	if path == "/" {
		return base + "/"
	}
	return base + path
}

type fetchResult struct {
	status  int
	body    []byte
	html    bool
	elapsed time.Duration
	ttfb    time.Duration
}

func (p *Prober) fetch(ctx context.Context, target string) (*fetchResult, error) {
	var start, first time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() { first = time.Now() },
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	start = time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	res := &fetchResult{
		status:  resp.StatusCode,
		body:    body,
		html:    strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "html"),
		elapsed: time.Since(start),
	}
	if !first.IsZero() {
		res.ttfb = first.Sub(start)
	}
	return res, nil
}

// Probe audits one path and returns the page plus the internal paths it
// links to.
func (p *Prober) Probe(ctx context.Context, path string) (Page, []string) {
	path = NormalizePath(path)
	target := p.pageURL(p.base.String(), path)
	page := Page{
		URL:      path,
		FullURL:  target,
		Category: Category(path),
	}

	res, err := p.fetch(ctx, target)
	if err != nil {
		page.Errors = append(page.Errors, catalog.AuditIssue{Type: "navigation_error", Message: err.Error()})
		return page, nil
	}
	page.StatusCode = Int(res.status)
	page.LoadTimeMs = Int(res.elapsed.Milliseconds())
	page.TTFBMs = Int(res.ttfb.Milliseconds())
	page.RequestCount = 1
	page.TotalBytes = Int(len(res.body))

	var links []string
	if res.html {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
		if err != nil {
			page.Errors = append(page.Errors, catalog.AuditIssue{Type: "parse_error", Message: err.Error()})
		} else {
			page.SEO = ExtractSeo(doc)
			page.Images = countImages(doc)
			links = p.internalLinks(doc)
		}
	}

	if p.compare != "" {
		page.LiveComparison = p.compareTiming(ctx, path, page.LoadTimeMs)
	}
	return page, links
}

func (p *Prober) compareTiming(ctx context.Context, path string, local Int) json.RawMessage {
	liveURL := p.pageURL(p.compare, path)
	var out any
	if res, err := p.fetch(ctx, liveURL); err != nil {
		out = map[string]string{"error": err.Error()}
	} else {
		ms := res.elapsed.Milliseconds()
		out = map[string]any{
			"live_url":          liveURL,
			"live_load_time_ms": ms,
			"delta_ms":          ms - int64(local),
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return b
}

// ExtractSeo reads the head metadata and headings of doc.
func ExtractSeo(doc *goquery.Document) catalog.AuditSeo {
	var seo catalog.AuditSeo
	seo.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		name, _ := s.Attr("name")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			if seo.MetaDescription == "" {
				seo.MetaDescription = content
			}
		case "robots":
			if seo.Robots == "" {
				seo.Robots = content
			}
		}
		if prop, ok := s.Attr("property"); ok && strings.HasPrefix(strings.ToLower(prop), "og:") && content != "" {
			if seo.OG == nil {
				seo.OG = make(map[string]string)
			}
			seo.OG[prop] = content
		}
	})

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if strings.EqualFold(strings.TrimSpace(rel), "canonical") {
			seo.Canonical, _ = s.Attr("href")
			return false
		}
		return true
	})

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			seo.H1 = append(seo.H1, t)
		}
	})
	doc.Find("h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := strings.TrimSpace(s.Text()); t != "" {
			seo.H2 = append(seo.H2, t)
		}
		return len(seo.H2) < maxH2
	})
	return seo
}

func countImages(doc *goquery.Document) Images {
	var img Images
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		img.Total++
		if _, ok := s.Attr("alt"); !ok {
			img.MissingAlt++
		}
		if src, _ := s.Attr("src"); strings.TrimSpace(src) == "" {
			img.Broken++
		}
	})
	return img
}

func (p *Prober) internalLinks(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		for _, scheme := range []string{"mailto:", "tel:", "javascript:"} {
			if strings.HasPrefix(strings.ToLower(href), scheme) {
				return
			}
		}
		u, err := p.base.Parse(href)
		if err != nil || u.Host != p.base.Host {
			return
		}
		path := NormalizePath(u.Path)
		if path == "" || ShouldSkip(path) || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	})
	return out
}

// Crawl audits the site root and seeds, then follows internal links breadth
// first until no new paths remain or the page cap is reached. System and
// asset paths are never visited.
func (p *Prober) Crawl(ctx context.Context, seeds []string) ([]Page, error) {
	visited := make(map[string]bool)
	var pages []Page

	level := append([]string{"/"}, seeds...)
	for len(level) > 0 && len(pages) < p.maxPages {
		var batch []string
		for _, raw := range level {
			path := NormalizePath(raw)
			if path == "" || visited[path] || ShouldSkip(path) {
				continue
			}
			if len(pages)+len(batch) >= p.maxPages {
				break
			}
			visited[path] = true
			batch = append(batch, path)
		}
		if len(batch) == 0 {
			break
		}

		results := make([]Page, len(batch))
		found := make([][]string, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i, path := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i], found[i] = p.Probe(gctx, path)
				p.log.Debug("audited page",
					zap.String("path", path),
					zap.Int64("status", int64(results[i].StatusCode)),
					zap.Int64("load_ms", int64(results[i].LoadTimeMs)))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return pages, fmt.Errorf("audit: crawl: %w", err)
		}
		pages = append(pages, results...)

		level = nil
		for _, links := range found {
			level = append(level, links...)
		}
	}
	return pages, nil
}
