package routemanager

import (
	"net/url"
	"path"
	"strings"

	"github.com/eringen/routemanager/views"
)

// siteURL joins a base URL with a site path. The path is kept as given, so
// CMS paths without a trailing slash stay that way.
func siteURL(base, p string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + p
	}
	if p == "/" {
		if u.Path == "" {
			u.Path = "/"
		}
		return u.String()
	}
	u.Path = strings.TrimRight(u.Path, "/") + p
	return u.String()
}

// catalogPath normalizes a path submitted from the console: leading slash,
// no trailing slash except for the root, no dot segments.
func catalogPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean("/" + p)
}

func (a *App) viewSite() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		AdminPrefix: a.Config.AdminPrefix,
	}
}
