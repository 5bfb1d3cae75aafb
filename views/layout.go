// Package views renders the route manager console. Components are plain
// templ.ComponentFunc values writing escaped HTML.
package views

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// SiteConfig carries the settings every page needs.
type SiteConfig struct {
	Name        string
	AdminPrefix string
}

// URL joins p onto the console prefix.
func (s SiteConfig) URL(p string) string {
	return s.AdminPrefix + p
}

type page struct {
	bytes.Buffer
}

func (p *page) text(s string) {
	p.WriteString(html.EscapeString(s))
}

func (p *page) raw(s string) {
	p.WriteString(s)
}

func (p *page) rawf(format string, args ...any) {
	fmt.Fprintf(&p.Buffer, format, args...)
}

// attr writes name="value" with value escaped.
func (p *page) attr(name, value string) {
	p.rawf(` %s="%s"`, name, html.EscapeString(value))
}

func (p *page) csrf(token string) {
	p.raw(`<input type="hidden" name="_csrf"`)
	p.attr("value", token)
	p.raw(`>`)
}

const style = `
body{font-family:system-ui,sans-serif;margin:0;color:#1c1917;background:#fafaf9}
header{display:flex;justify-content:space-between;align-items:center;padding:.75rem 1.5rem;background:#1c1917;color:#fff}
header a,header button{color:#fff}
main{padding:1.5rem;max-width:1200px;margin:0 auto}
table{width:100%;border-collapse:collapse;font-size:14px}
th,td{text-align:left;padding:.35rem .5rem;border-bottom:1px solid #e7e5e4;vertical-align:top}
.group{background:#f5f5f4;font-weight:600}
.subgroup td{font-style:italic;color:#57534e}
.label{display:inline-block;padding:0 .4rem;border-radius:3px;font-size:12px}
.label.public{background:#dcfce7}.label.hidden{background:#fee2e2}.label.inherited{opacity:.75}
.badge{display:inline-block;margin-right:.2rem;padding:0 .3rem;border:1px solid #a8a29e;border-radius:3px;font-size:11px;color:#a8a29e}
.badge.on{border-color:#15803d;color:#15803d;font-weight:600}
.msg{padding:.5rem 1rem;background:#fef9c3;border:1px solid #facc15;margin-bottom:1rem}
.errors{color:#b91c1c}
form.inline{display:inline}
.toolbar{display:flex;gap:1rem;flex-wrap:wrap;align-items:flex-end;margin-bottom:1rem}
.muted{color:#78716c;font-size:12px}
`

func layout(site SiteConfig, title string, admin bool, csrf string, body func(p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var p page
		p.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width,initial-scale=1">`)
		p.raw(`<meta name="robots" content="noindex, nofollow"><title>`)
		p.text(title)
		if title != site.Name {
			p.text(" | " + site.Name)
		}
		p.raw(`</title><style>` + style + `</style></head><body><header><strong>`)
		p.text(site.Name)
		p.raw(`</strong>`)
		if admin {
			p.raw(`<form class="inline" method="post"`)
			p.attr("action", site.URL("/logout"))
			p.raw(`>`)
			p.csrf(csrf)
			p.raw(`<button type="submit">Log out</button></form>`)
		}
		p.raw(`</header><main>`)
		body(&p)
		p.raw(`</main></body></html>`)
		_, err := w.Write(p.Bytes())
		return err
	})
}
