package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/routemanager/catalog"
)

// AdminLogin renders the console password form.
func AdminLogin(site SiteConfig, showError bool, csrfToken string) templ.Component {
	return layout(site, "Log in", false, csrfToken, func(p *page) {
		p.raw(`<h1>Log in</h1>`)
		if showError {
			p.raw(`<p class="errors">Wrong password.</p>`)
		}
		p.raw(`<form method="post"`)
		p.attr("action", site.URL("/login"))
		p.raw(`>`)
		p.csrf(csrfToken)
		p.raw(`<label>Password <input type="password" name="password" autofocus required></label> `)
		p.raw(`<button type="submit">Log in</button></form>`)
	})
}

// CatalogPage is everything the route listing shows.
type CatalogPage struct {
	Site          SiteConfig
	Catalog       *catalog.Catalog
	Query         catalog.Query
	DefaultPublic bool
	LastAudit     string
	Message       string
	Errors        []string
	CSRFToken     string
}

// Catalog renders the grouped route listing with its toolbar.
func Catalog(data CatalogPage) templ.Component {
	site := data.Site
	return layout(site, "Routes", true, data.CSRFToken, func(p *page) {
		if data.Message != "" {
			p.raw(`<div class="msg">`)
			p.text(data.Message)
			if len(data.Errors) > 0 {
				p.raw(`<ul class="errors">`)
				for _, e := range data.Errors {
					p.raw(`<li>`)
					p.text(e)
					p.raw(`</li>`)
				}
				p.raw(`</ul>`)
			}
			p.raw(`</div>`)
		}
		toolbar(p, data)
		listing(p, data)
	})
}

func toolbar(p *page, data CatalogPage) {
	site := data.Site
	p.raw(`<div class="toolbar">`)

	p.raw(`<form method="get"`)
	p.attr("action", site.URL("/"))
	p.raw(`><input type="search" name="q" placeholder="Filter paths"`)
	p.attr("value", data.Query.Search)
	p.raw(`> <select name="access">`)
	for _, f := range []catalog.Filter{catalog.FilterAll, catalog.FilterPublic, catalog.FilterHidden} {
		p.raw(`<option`)
		p.attr("value", f.String())
		if f == data.Query.Access {
			p.raw(` selected`)
		}
		p.raw(`>`)
		p.text(f.String())
		p.raw(`</option>`)
	}
	p.raw(`</select> <button type="submit">Apply</button></form>`)

	p.raw(`<form class="inline" method="post"`)
	p.attr("action", site.URL("/default"))
	p.raw(`>`)
	p.csrf(data.CSRFToken)
	next, label := "0", "Default: public (make admin only)"
	if !data.DefaultPublic {
		next, label = "1", "Default: admin only (make public)"
	}
	p.raw(`<input type="hidden" name="public"`)
	p.attr("value", next)
	p.raw(`><button type="submit">`)
	p.text(label)
	p.raw(`</button></form>`)

	p.raw(`<a`)
	p.attr("href", site.URL("/export.csv"))
	p.raw(`>Export CSV</a>`)

	upload(p, site.URL("/import/csv"), "Import CSV", ".csv,text/csv", data.CSRFToken)
	upload(p, site.URL("/import/audit"), "Import audit JSON", ".json,application/json", data.CSRFToken)

	p.raw(`<form class="inline" method="post"`)
	p.attr("action", site.URL("/refresh"))
	p.raw(`>`)
	p.csrf(data.CSRFToken)
	p.raw(`<button type="submit">Reload CMS routes</button></form>`)
	p.raw(`</div>`)

	if c := data.Catalog; c != nil {
		p.rawf(`<p class="muted">%d of %d routes`, c.Shown, c.Total)
		if data.LastAudit != "" {
			p.raw(` · last audit `)
			p.text(data.LastAudit)
		}
		p.raw(`</p>`)
	}
}

func upload(p *page, action, label, accept, csrfToken string) {
	p.raw(`<form class="inline" method="post" enctype="multipart/form-data"`)
	p.attr("action", action)
	p.raw(`>`)
	p.csrf(csrfToken)
	p.raw(`<input type="file" name="file" required`)
	p.attr("accept", accept)
	p.raw(`> <button type="submit">`)
	p.text(label)
	p.raw(`</button></form>`)
}

func listing(p *page, data CatalogPage) {
	c := data.Catalog
	if c == nil || c.Shown == 0 {
		p.raw(`<p>No routes match.</p>`)
		return
	}
	p.raw(`<table><thead><tr><th>Path</th><th>Route</th><th>Access</th><th>SEO</th><th>Audit</th><th></th></tr></thead><tbody>`)
	for _, g := range c.Groups {
		p.raw(`<tr class="group"><td colspan="6">`)
		p.text(g.Key)
		p.rawf(` <span class="muted">(%d)</span></td></tr>`, g.Count())
		for _, sg := range g.Subgroups {
			if sg.Key != "" {
				p.raw(`<tr class="subgroup"><td colspan="6">/`)
				p.text(g.Key + "/" + sg.Key)
				p.raw(`</td></tr>`)
			}
			for _, r := range sg.Rows {
				row(p, data, r)
			}
		}
	}
	p.raw(`</tbody></table>`)
}

func row(p *page, data CatalogPage, r catalog.RouteRow) {
	p.rawf(`<tr><td style="padding-left:%.1fem">`, 0.5+1.5*float64(r.Depth))
	p.text(r.Path)
	if r.IsAlias && r.SystemPath != "" {
		p.raw(`<div class="muted">→ `)
		p.text(r.SystemPath)
		p.raw(`</div>`)
	}
	p.raw(`</td><td class="muted">`)
	p.text(r.RouteName)
	p.raw(`</td><td>`)
	accessLabel(p, r.Label)
	p.raw(`</td><td>`)
	if r.ShowBadges {
		badge(p, "T", "Title", r.Badges.Title)
		badge(p, "D", "Description", r.Badges.Description)
		badge(p, "H1", "Heading", r.Badges.H1)
		badge(p, "OG", "Open Graph", r.Badges.OpenGraph)
	}
	p.raw(`</td><td>`)
	if r.Audit != nil {
		p.text(strconv.Itoa(r.Audit.StatusCode))
		p.rawf(` <span class="muted">%dms</span>`, r.Audit.LoadTimeMs)
	}
	p.raw(`</td><td>`)
	toggle(p, data, r)
	p.raw(`</td></tr>`)
}

func accessLabel(p *page, l catalog.Label) {
	class := "label hidden"
	if l.Public {
		class = "label public"
	}
	if l.Inherited {
		class += " inherited"
	}
	p.raw(`<span`)
	p.attr("class", class)
	p.raw(`>`)
	p.text(l.Text)
	p.raw(`</span>`)
}

func badge(p *page, short, title string, on bool) {
	class := "badge"
	if on {
		class += " on"
	}
	p.raw(`<span`)
	p.attr("class", class)
	p.attr("title", title)
	p.raw(`>`)
	p.text(short)
	p.raw(`</span>`)
}

func toggle(p *page, data CatalogPage, r catalog.RouteRow) {
	p.raw(`<form class="inline" method="post"`)
	p.attr("action", data.Site.URL("/toggle"))
	p.raw(`>`)
	p.csrf(data.CSRFToken)
	p.raw(`<input type="hidden" name="path"`)
	p.attr("value", r.Path)
	p.raw(`><input type="hidden" name="route_name"`)
	p.attr("value", r.RouteName)
	p.raw(`>`)
	for _, opt := range []struct{ value, text string }{{"1", "Public"}, {"0", "Hide"}, {"", "Default"}} {
		if opt.value == r.Override.String() {
			continue
		}
		p.raw(`<button type="submit" name="is_public"`)
		p.attr("value", opt.value)
		p.raw(`>`)
		p.text(opt.text)
		p.raw(`</button>`)
	}
	p.raw(`</form>`)
}
