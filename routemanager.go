// Package routemanager is an access-enforcing front server for a CMS site.
// Every request is checked against per-path overrides and a site-wide
// default before it reaches the CMS, and an admin console lists every known
// route with its effective access and SEO indicators.
//
// The console templates are provided through ViewFuncs; the built-in views
// package supplies defaults.
package routemanager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/eringen/routemanager/access"
	"github.com/eringen/routemanager/catalog"
	"github.com/eringen/routemanager/drupal"
	"github.com/eringen/routemanager/views"
)

// ViewFuncs holds the templ components the console renders.
type ViewFuncs struct {
	AdminLogin  func(site views.SiteConfig, showError bool, csrfToken string) templ.Component
	Catalog     func(data views.CatalogPage) templ.Component
	Forbidden   func(site views.SiteConfig) templ.Component
	NotFound    func(site views.SiteConfig) templ.Component
	ServerError func(site views.SiteConfig) templ.Component
	Unavailable func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in console templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		AdminLogin:  views.AdminLogin,
		Catalog:     views.Catalog,
		Forbidden:   views.Forbidden,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
		Unavailable: views.Unavailable,
	}
}

// CMS is everything read from the host site.
type CMS interface {
	catalog.AliasSource
	catalog.RouteSource
	catalog.EntitySource
}

// App is the central route manager application. It wires together the
// store, the CMS sources, the access resolver, handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	CMS      CMS
	Sources  *SourceCache
	Catalog  *catalog.Builder
	Access   *access.Resolver
	Registry *prometheus.Registry
	Log      *zap.Logger
	Views    ViewFuncs

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	closers      []func() error
	initialized  bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  DefaultViews(),
		Log:    zap.NewNop(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and the CMS sources and registers middleware and
// routes. Start calls it; tests call it directly and drive a.Echo.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("routemanager: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("routemanager: SessionSecret is required")
	}
	if err := a.Open(ctx); err != nil {
		return err
	}

	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.closers = append(a.closers, func() error { a.loginLimiter.Stop(); return nil })

	if err := a.setupMiddleware(); err != nil {
		return err
	}
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Open opens the store and the CMS sources and builds the catalog and the
// access resolver. It registers no HTTP handlers, so command-line tools can
// use it without console credentials.
func (a *App) Open(ctx context.Context) error {
	if a.Catalog != nil {
		return nil
	}
	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("routemanager: init store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}

	if a.CMS == nil {
		site, err := a.openSite(ctx)
		if err != nil {
			return err
		}
		a.CMS = site
		a.closers = append(a.closers, site.Close)
	}

	a.Sources = NewSourceCache(a.CMS, a.CMS, a.Config.SourceCacheTTL)
	a.Catalog = &catalog.Builder{
		Settings: a.Store,
		Audits:   a.Store,
		Aliases:  a.Sources,
		Routes:   a.Sources,
		Entities: catalog.NewEntitySeoInspector(a.CMS),
		Log:      a.Log.Named("catalog"),
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Access = access.NewResolver(a.Store, a.Store, access.WithMetrics(access.NewMetrics(a.Registry)))
	return nil
}

func (a *App) openSite(ctx context.Context) (*drupal.Site, error) {
	site := &drupal.Site{
		ConfigDir:   a.Config.DrupalConfigDir,
		RoutingDirs: a.Config.DrupalRoutingDirs,
		Log:         a.Log.Named("drupal"),
	}
	if a.Config.DrupalDSN != "" {
		db, err := drupal.OpenDB(ctx, a.Config.DrupalDSN)
		if err != nil {
			return nil, fmt.Errorf("routemanager: init cms database: %w", err)
		}
		site.DB = db
	} else {
		a.Log.Warn("DRUPAL_DSN not set; aliases and node summaries are unavailable")
	}
	return site, nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	a.Log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("console", a.Config.AdminPrefix+"/"))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo
	prefix := a.Config.AdminPrefix

	e.GET("/healthz", a.handleHealth)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)

	e.GET(prefix, func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, prefix+"/")
	})
	e.GET(prefix+"/", a.handleAdmin)
	e.POST(prefix+"/login", a.handleAdminLogin)
	e.POST(prefix+"/logout", handleAdminLogout(prefix))

	g := e.Group(prefix, a.requireAdmin)
	g.POST("/toggle", a.handleToggle)
	g.POST("/default", a.handleDefault)
	g.POST("/refresh", a.handleRefresh)
	g.GET("/export.csv", a.handleExportCSV)
	g.POST("/import/csv", a.handleImportCSV)
	g.POST("/import/audit", a.handleImportAudit)
	g.GET("/metrics", a.handleMetrics())
}

func (a *App) upstream() (*url.URL, error) {
	u, err := url.Parse(a.Config.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("routemanager: upstream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("routemanager: upstream url %q must be absolute", a.Config.UpstreamURL)
	}
	return u, nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.Log.Sync()
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
