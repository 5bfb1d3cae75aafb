package routemanager

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/routemanager/catalog"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapURLs lists the rows anonymous visitors can reach. The last audit
// date stands in for lastmod when one exists.
func (a *App) sitemapURLs(rows []catalog.RouteRow) []sitemapURL {
	var urls []sitemapURL
	for _, r := range rows {
		if !r.Label.Public || !catalog.IsStatic(r.Path) || a.isOwnPath(r.Path) {
			continue
		}
		u := sitemapURL{Loc: siteURL(a.Config.URL, r.Path)}
		if r.Audit != nil && !r.Audit.AuditDate.IsZero() {
			u.LastMod = r.Audit.AuditDate.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	return urls
}

func (a *App) renderSitemap(c echo.Context, rows []catalog.RouteRow) error {
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  a.sitemapURLs(rows),
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
