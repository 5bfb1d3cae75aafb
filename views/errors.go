package views

import "github.com/a-h/templ"

func message(site SiteConfig, title, text string) templ.Component {
	return layout(site, title, false, "", func(p *page) {
		p.raw(`<h1>`)
		p.text(title)
		p.raw(`</h1><p>`)
		p.text(text)
		p.raw(`</p>`)
	})
}

// Forbidden is shown when the access rules deny a path.
func Forbidden(site SiteConfig) templ.Component {
	return message(site, "Access denied", "You are not authorized to access this page.")
}

func NotFound(site SiteConfig) templ.Component {
	return message(site, "Page not found", "The requested page could not be found.")
}

func ServerError(site SiteConfig) templ.Component {
	return message(site, "Something went wrong", "The server could not complete the request. Please try again later.")
}

// Unavailable is shown when access cannot be decided because storage is down.
func Unavailable(site SiteConfig) templ.Component {
	return message(site, "Temporarily unavailable", "Access to this page cannot be checked right now. Please try again shortly.")
}
