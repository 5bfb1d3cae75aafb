package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/routemanager/catalog"
)

const auditorOutput = `[
  {
    "url": "/",
    "full_url": "https://site.ddev.site/",
    "category": "homepage",
    "status_code": 200,
    "load_time_ms": 812,
    "ttfb_ms": 95.6,
    "request_count": 31,
    "total_bytes": 482113,
    "seo": {"title": "Home | Clinic", "meta_description": null, "canonical": "https://site.ddev.site/", "robots": null,
            "h1": ["Welcome"], "h2": [], "og": {"og:title": "Home"}, "structured_data": []},
    "images": {"total": 4, "missing_alt": 1, "broken": 0},
    "errors": [{"type": "error", "message": "Failed to load resource"}],
    "responsive_issues": [{"viewport": "mobile", "issue": "horizontal_overflow", "screenshot": "screenshots/root_mobile.png"}],
    "accessibility": [],
    "performance_vitals": {"cls": 0.02},
    "live_comparison": null
  },
  {
    "url": "/doctors/cardiology/",
    "status_code": "404",
    "load_time_ms": null,
    "seo": "not an object",
    "errors": "broken",
    "responsive_issues": []
  },
  {"url": "", "full_url": ""}
]`

type memSink struct {
	recs []catalog.AuditRecord
}

func (m *memSink) SaveAudits(_ context.Context, recs []catalog.AuditRecord) (int, error) {
	m.recs = append(m.recs, recs...)
	return len(recs), nil
}

func TestDecodePagesLenient(t *testing.T) {
	pages, err := DecodePages(strings.NewReader(auditorOutput))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	home := pages[0]
	assert.Equal(t, "/", home.Path())
	assert.Equal(t, Int(200), home.StatusCode)
	assert.Equal(t, Int(96), home.TTFBMs)
	assert.Equal(t, "Home | Clinic", home.SEO.Title)
	assert.Empty(t, home.SEO.MetaDescription)
	assert.Equal(t, Int(1), home.Images.MissingAlt)
	require.Len(t, home.Errors, 1)
	assert.Equal(t, "mobile", home.ResponsiveIssues[0].Viewport)

	doc := pages[1]
	assert.Equal(t, "/doctors/cardiology", doc.Path())
	assert.Equal(t, Int(404), doc.StatusCode)
	assert.Zero(t, doc.LoadTimeMs)
	assert.False(t, doc.SEO.HasData())
	assert.Nil(t, doc.Errors)
}

func TestDecodePagesRejectsNonArray(t *testing.T) {
	_, err := DecodePages(strings.NewReader(`{"url": "/"}`))
	require.ErrorIs(t, err, ErrNotArray)
	_, err = DecodePages(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNotArray)
}

func TestImportStoresOneBatch(t *testing.T) {
	sink := &memSink{}
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	b, err := Import(context.Background(), strings.NewReader(auditorOutput), sink, now)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Pages)
	assert.Equal(t, 2, b.Stored)
	assert.Equal(t, 1, b.Skipped)
	assert.NotEmpty(t, b.ID)

	require.Len(t, sink.recs, 2)
	for _, r := range sink.recs {
		assert.Equal(t, b.ID, r.BatchID)
		assert.True(t, r.AuditDate.Equal(now))
	}
	home := sink.recs[0]
	assert.Nil(t, home.Comparison, "null comparison is not stored")
	assert.JSONEq(t, `{"cls": 0.02}`, string(home.Vitals))
	assert.Equal(t, int64(482113), home.TotalBytes)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "homepage", Category("/"))
	assert.Equal(t, "homepage", Category(""))
	assert.Equal(t, "doctors", Category("/doctors/cardiology/dr-x"))
	assert.Equal(t, "about", Category("about"))
}

func TestShouldSkip(t *testing.T) {
	for _, p := range []string{"/admin/content", "/user/login", "/sites/default/files/a.pdf", "/logo.PNG", "/node/add/page"} {
		assert.True(t, ShouldSkip(p), p)
	}
	for _, p := range []string{"/", "/about", "/doctors/cardiology", "/node/12"} {
		assert.False(t, ShouldSkip(p), p)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"/":                              "/",
		"about":                          "/about",
		"/about/":                        "/about",
		"https://site.ddev.site":         "/",
		"https://site.ddev.site/a/b?x=1": "/a/b",
		"/a#frag":                        "/a",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), in)
	}
}

func TestIntDecode(t *testing.T) {
	var v struct {
		A, B, C, D, E Int
	}
	require.NoError(t, json.Unmarshal([]byte(`{"A": 3, "B": 2.6, "C": "17", "D": null, "E": "n/a"}`), &v))
	assert.Equal(t, Int(3), v.A)
	assert.Equal(t, Int(3), v.B)
	assert.Equal(t, Int(17), v.C)
	assert.Zero(t, v.D)
	assert.Zero(t, v.E)
}

const homeHTML = `<!doctype html>
<html><head>
<title> Home | Clinic </title>
<meta name="Description" content="Family clinic">
<meta name="robots" content="index, follow">
<meta property="og:title" content="Home">
<link rel="canonical" href="https://clinic.example/">
</head><body>
<h1>Welcome</h1><h2>One</h2><h2>Two</h2>
<img src="/a.png" alt="A"><img src="/b.png">
<a href="/about">About</a>
<a href="/doctors/cardiology/?tab=1#top">Cardiology</a>
<a href="/admin/content">Admin</a>
<a href="/files/brochure.pdf">Brochure</a>
<a href="https://elsewhere.example/x">Elsewhere</a>
<a href="mailto:info@clinic.example">Mail</a>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			w.Write([]byte(homeHTML))
		case "/about":
			w.Write([]byte(`<html><head><title>About</title></head><body><h1>About us</h1><a href="/">Home</a></body></html>`))
		case "/doctors/cardiology":
			w.Write([]byte(`<html><head><title>Cardiology</title></head><body><a href="/doctors/cardiology/dr-x">X</a></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<html><head><title>Not found</title></head></html>`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeExtractsSeo(t *testing.T) {
	srv := newSite(t)
	p, err := NewProber(srv.URL)
	require.NoError(t, err)

	page, links := p.Probe(context.Background(), "/")
	assert.Equal(t, Int(http.StatusOK), page.StatusCode)
	assert.Equal(t, HomepageCategory, page.Category)
	assert.Equal(t, "Home | Clinic", page.SEO.Title)
	assert.Equal(t, "Family clinic", page.SEO.MetaDescription)
	assert.Equal(t, "index, follow", page.SEO.Robots)
	assert.Equal(t, "https://clinic.example/", page.SEO.Canonical)
	assert.Equal(t, []string{"Welcome"}, page.SEO.H1)
	assert.Equal(t, []string{"One", "Two"}, page.SEO.H2)
	assert.Equal(t, map[string]string{"og:title": "Home"}, page.SEO.OG)
	assert.Equal(t, Images{Total: 2, MissingAlt: 1}, page.Images)
	assert.Equal(t, []string{"/about", "/doctors/cardiology"}, links)
}

func TestProbeNavigationError(t *testing.T) {
	p, err := NewProber("http://127.0.0.1:1")
	require.NoError(t, err)
	page, links := p.Probe(context.Background(), "/about")
	assert.Nil(t, links)
	require.Len(t, page.Errors, 1)
	assert.Equal(t, "navigation_error", page.Errors[0].Type)
}

func TestCrawlFollowsInternalLinks(t *testing.T) {
	srv := newSite(t)
	p, err := NewProber(srv.URL, WithWorkers(2))
	require.NoError(t, err)

	pages, err := p.Crawl(context.Background(), []string{"/about", "/user/login"})
	require.NoError(t, err)

	var paths []string
	status := map[string]Int{}
	for _, pg := range pages {
		paths = append(paths, pg.URL)
		status[pg.URL] = pg.StatusCode
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"/", "/about", "/doctors/cardiology", "/doctors/cardiology/dr-x"}, paths)
	assert.Equal(t, Int(http.StatusNotFound), status["/doctors/cardiology/dr-x"])
}

func TestCrawlRespectsPageCap(t *testing.T) {
	srv := newSite(t)
	p, err := NewProber(srv.URL, WithMaxPages(2))
	require.NoError(t, err)
	pages, err := p.Crawl(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestCrawlWithCompareBase(t *testing.T) {
	local := newSite(t)
	live := newSite(t)
	p, err := NewProber(local.URL, WithCompareBase(live.URL+"/"), WithMaxPages(1))
	require.NoError(t, err)
	pages, err := p.Crawl(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	var cmp map[string]any
	require.NoError(t, json.Unmarshal(pages[0].LiveComparison, &cmp))
	assert.Equal(t, live.URL+"/", cmp["live_url"])
	assert.Contains(t, cmp, "delta_ms")
}

func TestNewProberRequiresAbsoluteURL(t *testing.T) {
	_, err := NewProber("/relative")
	require.Error(t, err)
}
