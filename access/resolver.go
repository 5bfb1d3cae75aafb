package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SettingsLookup returns the explicit override stored for an exact path, or
// Inherit when the path has no setting.
type SettingsLookup interface {
	LookupOverride(ctx context.Context, path string) (Override, error)
}

// PolicySource returns the current site-wide policy snapshot.
type PolicySource interface {
	Policy(ctx context.Context) (Policy, error)
}

// ErrUnavailable wraps storage failures during enforcement. The resolver fails
// closed: a request is never allowed when its setting cannot be read.
var ErrUnavailable = errors.New("access: settings store unavailable")

// Resolver decides access for one path and one user.
type Resolver struct {
	settings SettingsLookup
	policy   PolicySource
	metrics  *Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMetrics records every decision in m.
func WithMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a Resolver reading overrides from settings and the
// site default from policy.
func NewResolver(settings SettingsLookup, policy PolicySource, opts ...ResolverOption) *Resolver {
	r := &Resolver{settings: settings, policy: policy}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide evaluates the rules for path. It performs at most one settings lookup
// and one policy read, and none at all for administrators.
func (r *Resolver) Decide(ctx context.Context, path string, admin bool) (Decision, error) {
	in := Input{Path: path, Admin: admin}
	if !admin {
		o, err := r.settings.LookupOverride(ctx, path)
		if err != nil {
			r.metrics.observe(Deny, "error")
			return Deny, errors.Join(ErrUnavailable, err)
		}
		in.Override = o
		if o == Inherit {
			p, err := r.policy.Policy(ctx)
			if err != nil {
				r.metrics.observe(Deny, "error")
				return Deny, errors.Join(ErrUnavailable, err)
			}
			in.Policy = p
		}
	}
	d, rule := Evaluate(in)
	r.metrics.observe(d, rule)
	return d, nil
}

// MiddlewareConfig configures the enforcement middleware.
type MiddlewareConfig struct {
	// IsAdmin reports whether the request carries the administrator capability.
	IsAdmin func(c echo.Context) bool
	// Skipper exempts requests from enforcement.
	Skipper middleware.Skipper
	// OnError is called when the settings store cannot be read. The request
	// is rejected with 503 regardless.
	OnError func(c echo.Context, err error)
}

// Middleware enforces the decision before the handler writes any body.
// Denied requests end with echo.ErrForbidden.
func (r *Resolver) Middleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	if cfg.IsAdmin == nil {
		cfg.IsAdmin = func(echo.Context) bool { return false }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			d, err := r.Decide(c.Request().Context(), c.Request().URL.Path, cfg.IsAdmin(c))
			if err != nil {
				if cfg.OnError != nil {
					cfg.OnError(c, err)
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable).SetInternal(err)
			}
			if d == Deny {
				return echo.ErrForbidden
			}
			return next(c)
		}
	}
}
