package routemanager

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SiteConfig holds all configuration for a route manager instance.
type SiteConfig struct {
	Name string // Console title (default "Route manager")
	URL  string // Public base URL of the site, used in sitemap.xml and robots.txt

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/routemanager.db")
	UpstreamURL  string // CMS origin that allowed requests are proxied to; empty disables proxying

	DrupalDSN         string   // MySQL DSN of the CMS database; empty disables aliases and body checks
	DrupalConfigDir   string   // Config sync directory (role and metatag YAML)
	DrupalRoutingDirs []string // Directories searched for *.routing.yml

	AdminPassword string // Required: console login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	AdminPrefix    string        // Console mount point (default "/_routemanager")
	SourceCacheTTL time.Duration // Alias and route table cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Route manager"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/routemanager.db"
	}
	if c.AdminPrefix == "" {
		c.AdminPrefix = "/_routemanager"
	}
	c.AdminPrefix = "/" + strings.Trim(c.AdminPrefix, "/")
	if c.SourceCacheTTL == 0 {
		c.SourceCacheTTL = 5 * time.Minute
	}
}

// ConfigFromEnv reads a SiteConfig from the environment. Unset variables keep
// their defaults; malformed booleans and durations are ignored.
func ConfigFromEnv() SiteConfig {
	cfg := SiteConfig{
		Name:            EnvOr("ROUTEMGR_NAME", ""),
		URL:             EnvOr("ROUTEMGR_URL", ""),
		Addr:            EnvOr("ROUTEMGR_ADDR", ""),
		DatabasePath:    EnvOr("ROUTEMGR_DB", ""),
		UpstreamURL:     EnvOr("ROUTEMGR_UPSTREAM", ""),
		AdminPrefix:     EnvOr("ROUTEMGR_ADMIN_PREFIX", ""),
		DrupalDSN:       EnvOr("DRUPAL_DSN", ""),
		DrupalConfigDir: EnvOr("DRUPAL_CONFIG_DIR", ""),
		AdminPassword:   EnvOr("ADMIN_PASSWORD", ""),
		SessionSecret:   EnvOr("ADMIN_SESSION_SECRET", ""),
	}
	for _, dir := range filepath.SplitList(EnvOr("DRUPAL_ROUTING_DIRS", "")) {
		if dir = strings.TrimSpace(dir); dir != "" {
			cfg.DrupalRoutingDirs = append(cfg.DrupalRoutingDirs, dir)
		}
	}
	if v, err := strconv.ParseBool(EnvOr("COOKIE_SECURE", "false")); err == nil {
		cfg.CookieSecure = v
	}
	if v, err := time.ParseDuration(EnvOr("SOURCE_CACHE_TTL", "0s")); err == nil {
		cfg.SourceCacheTTL = v
	}
	cfg.setDefaults()
	return cfg
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the structured logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithCMS replaces the CMS sources that would otherwise be opened from
// the Drupal settings of SiteConfig.
func WithCMS(cms CMS) Option {
	return func(a *App) {
		a.CMS = cms
	}
}

// WithViews replaces the built-in console templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
