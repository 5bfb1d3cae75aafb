package routemanager

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eringen/routemanager/access"
	"github.com/eringen/routemanager/audit"
	"github.com/eringen/routemanager/catalog"
	"github.com/eringen/routemanager/views"
)

// maxUpload bounds CSV and audit uploads.
const maxUpload = 32 << 20

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(a.viewSite(), false, CsrfToken(c)))
	}
	return a.renderCatalog(c, c.QueryParam("msg"), nil)
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, a.Config.AdminPrefix+"/")
	}
	a.loginLimiter.Record(ip)
	a.Log.Warn("failed console login", zap.String("ip", ip))
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(a.viewSite(), true, CsrfToken(c)))
}

func handleAdminLogout(prefix string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := clearAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, prefix+"/")
	}
}

func (a *App) handleToggle(c echo.Context) error {
	path := catalogPath(c.FormValue("path"))
	if path == "" {
		return a.redirectMsg(c, "Path is required.")
	}
	o, err := access.ParseOverride(c.FormValue("is_public"))
	if err != nil {
		return a.redirectMsg(c, err.Error())
	}
	ctx := c.Request().Context()
	if err := a.Store.SetAccess(ctx, path, strings.TrimSpace(c.FormValue("route_name")), o); err != nil {
		return err
	}
	a.Log.Info("access override changed", zap.String("path", path), zap.String("is_public", o.String()))
	return a.redirectMsg(c, fmt.Sprintf("Updated %s.", path))
}

func (a *App) handleDefault(c echo.Context) error {
	public, err := strconv.ParseBool(c.FormValue("public"))
	if err != nil {
		return a.redirectMsg(c, "Invalid default value.")
	}
	if err := a.Store.SetDefaultPublic(c.Request().Context(), public); err != nil {
		return err
	}
	a.Log.Info("default access changed", zap.Bool("public", public))
	if public {
		return a.redirectMsg(c, "Routes without an override are now public.")
	}
	return a.redirectMsg(c, "Routes without an override are now admin only.")
}

func (a *App) handleRefresh(c echo.Context) error {
	a.Sources.Invalidate()
	return a.redirectMsg(c, "CMS routes reloaded.")
}

func (a *App) handleExportCSV(c echo.Context) error {
	ctx := c.Request().Context()
	policy, err := a.Store.Policy(ctx)
	if err != nil {
		return err
	}
	rows, err := a.Catalog.Rows(ctx, policy)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("routes-%s.csv", time.Now().Format("2006-01-02"))
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().WriteHeader(http.StatusOK)
	return catalog.ExportCSV(c.Response(), rows)
}

func (a *App) handleImportCSV(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return a.redirectMsg(c, "Choose a CSV file to import.")
	}
	if fh.Size > maxUpload {
		return a.redirectMsg(c, "File is too large.")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := catalog.ImportCSV(c.Request().Context(), f, a.Store)
	if err != nil {
		a.Log.Warn("csv import rejected", zap.String("file", fh.Filename), zap.Error(err))
		return a.renderCatalog(c, "Import failed: "+err.Error(), nil)
	}
	a.Log.Info("csv imported",
		zap.String("file", fh.Filename),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)))
	msg := fmt.Sprintf("Imported %s: %d created, %d updated, %d skipped, %d rejected.",
		fh.Filename, report.Created, report.Updated, report.Skipped, len(report.Errors))
	errs := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		errs = append(errs, e.Error())
	}
	return a.renderCatalog(c, msg, errs)
}

func (a *App) handleImportAudit(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return a.redirectMsg(c, "Choose an audit JSON file to import.")
	}
	if fh.Size > maxUpload {
		return a.redirectMsg(c, "File is too large.")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	batch, err := audit.Import(c.Request().Context(), f, a.Store, time.Now())
	if err != nil {
		a.Log.Warn("audit import rejected", zap.String("file", fh.Filename), zap.Error(err))
		return a.renderCatalog(c, "Audit import failed: "+err.Error(), nil)
	}
	a.Log.Info("audit imported",
		zap.String("batch", batch.ID),
		zap.Int("pages", batch.Pages),
		zap.Int("stored", batch.Stored))
	return a.redirectMsg(c, fmt.Sprintf("Audit batch %s: %d pages, %d stored, %d skipped.",
		batch.Date.Format("2006-01-02"), batch.Pages, batch.Stored, batch.Skipped))
}

func (a *App) handleMetrics() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
}

func (a *App) renderCatalog(c echo.Context, msg string, errs []string) error {
	ctx := c.Request().Context()
	policy, err := a.Store.Policy(ctx)
	if err != nil {
		return err
	}
	q := catalog.Query{
		Search: c.QueryParam("q"),
		Access: catalog.ParseFilter(c.QueryParam("access")),
	}
	cat, err := a.Catalog.Build(ctx, policy, q)
	if err != nil {
		return err
	}
	var lastAudit string
	batches, err := a.Store.ListAuditBatches(ctx)
	if err != nil {
		return err
	}
	if len(batches) > 0 {
		lastAudit = batches[0].Date.Format("2006-01-02")
	}
	return Render(c, a.Views.Catalog(views.CatalogPage{
		Site:          a.viewSite(),
		Catalog:       cat,
		Query:         q,
		DefaultPublic: policy.DefaultPublic,
		LastAudit:     lastAudit,
		Message:       msg,
		Errors:        errs,
		CSRFToken:     CsrfToken(c),
	}))
}

func (a *App) redirectMsg(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, a.Config.AdminPrefix+"/?msg="+url.QueryEscape(msg))
}
