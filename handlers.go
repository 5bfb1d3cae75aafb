package routemanager

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/routemanager/access"
)

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.Log.Error("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleRobots disallows every path anonymous visitors cannot see, plus the
// console itself. Rules are anchored so hiding a path never blocks the paths
// below it or sharing its prefix.
func (a *App) handleRobots(c echo.Context) error {
	ctx := c.Request().Context()
	policy, err := a.Store.Policy(ctx)
	if err != nil {
		return errors.Join(access.ErrUnavailable, err)
	}
	rows, err := a.Catalog.Rows(ctx, policy)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: " + a.Config.AdminPrefix + "/\n")
	for _, r := range rows {
		if !r.Label.Public {
			b.WriteString("Disallow: " + robotsRule(r.Path) + "\n")
		}
	}
	b.WriteString("\nSitemap: " + siteURL(a.Config.URL, "/sitemap.xml") + "\n")
	return c.String(http.StatusOK, b.String())
}

// robotsRule matches exactly p. Wildcard characters in p are percent-encoded
// so they are taken literally.
func robotsRule(p string) string {
	p = strings.NewReplacer("*", "%2A", "$", "%24").Replace(p)
	return p + "$"
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	policy, err := a.Store.Policy(ctx)
	if err != nil {
		return errors.Join(access.ErrUnavailable, err)
	}
	rows, err := a.Catalog.Rows(ctx, policy)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, rows)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	} else if errors.Is(err, access.ErrUnavailable) {
		code = http.StatusServiceUnavailable
	}
	site := a.viewSite()
	switch {
	case code == http.StatusForbidden:
		_ = RenderStatus(c, code, a.Views.Forbidden(site))
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(site))
	case code == http.StatusServiceUnavailable:
		a.Log.Error("service unavailable", zap.String("path", c.Request().URL.Path), zap.Error(err))
		_ = RenderStatus(c, code, a.Views.Unavailable(site))
	case code >= 500:
		a.Log.Error("server error", zap.String("path", c.Request().URL.Path), zap.Error(err))
		_ = RenderStatus(c, code, a.Views.ServerError(site))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
