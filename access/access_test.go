package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettings struct {
	overrides map[string]Override
	err       error
	calls     int
}

func (f *fakeSettings) LookupOverride(_ context.Context, path string) (Override, error) {
	f.calls++
	if f.err != nil {
		return Inherit, f.err
	}
	return f.overrides[path], nil
}

type fakePolicy struct {
	policy Policy
	err    error
	calls  int
}

func (f *fakePolicy) Policy(context.Context) (Policy, error) {
	f.calls++
	return f.policy, f.err
}

func TestParseOverride(t *testing.T) {
	tests := []struct {
		in      string
		want    Override
		wantErr bool
	}{
		{"", Inherit, false},
		{" ", Inherit, false},
		{"1", Public, false},
		{"0", Hidden, false},
		{"yes", Inherit, true},
		{"2", Inherit, true},
	}
	for _, tt := range tests {
		got, err := ParseOverride(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseOverride(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ParseOverride(%q)", tt.in)
	}
	assert.Equal(t, "1", Public.String())
	assert.Equal(t, "0", Hidden.String())
	assert.Equal(t, "", Inherit.String())
}

func TestEvaluateRuleOrder(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		want     Decision
		wantRule string
	}{
		{"admin bypasses hidden", Input{Admin: true, Override: Hidden}, Allow, "administrator"},
		{"admin bypasses closed default", Input{Admin: true, Policy: Policy{DefaultPublic: false}}, Allow, "administrator"},
		{"hidden beats open default", Input{Override: Hidden, Policy: Policy{DefaultPublic: true}}, Deny, "override-hidden"},
		{"public beats closed default", Input{Override: Public, Policy: Policy{DefaultPublic: false}}, Allow, "override-public"},
		{"inherit open default", Input{Override: Inherit, Policy: Policy{DefaultPublic: true}}, Allow, "default"},
		{"inherit closed default", Input{Override: Inherit, Policy: Policy{DefaultPublic: false}}, Deny, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := Evaluate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestDecideHiddenRegardlessOfDefault(t *testing.T) {
	for _, def := range []bool{true, false} {
		settings := &fakeSettings{overrides: map[string]Override{"/staff": Hidden}}
		r := NewResolver(settings, &fakePolicy{policy: Policy{DefaultPublic: def}})

		d, err := r.Decide(context.Background(), "/staff", false)
		require.NoError(t, err)
		assert.Equal(t, Deny, d, "non-admin, default=%v", def)

		d, err = r.Decide(context.Background(), "/staff", true)
		require.NoError(t, err)
		assert.Equal(t, Allow, d, "admin, default=%v", def)
	}
}

func TestDecideNoSettingFollowsDefault(t *testing.T) {
	for _, def := range []bool{true, false} {
		policy := &fakePolicy{policy: Policy{DefaultPublic: def}}
		r := NewResolver(&fakeSettings{}, policy)
		d, err := r.Decide(context.Background(), "/anything", false)
		require.NoError(t, err)
		assert.Equal(t, def, d == Allow)
		assert.Equal(t, 1, policy.calls)
	}
}

func TestDecideExactMatchOnly(t *testing.T) {
	settings := &fakeSettings{overrides: map[string]Override{"/doctors": Hidden}}
	r := NewResolver(settings, &fakePolicy{policy: DefaultPolicy})

	d, err := r.Decide(context.Background(), "/doctors/cardiology", false)
	require.NoError(t, err)
	assert.Equal(t, Allow, d, "prefix of a hidden path must not match")
}

func TestDecideTrailingSlashIsDistinctPath(t *testing.T) {
	settings := &fakeSettings{overrides: map[string]Override{"/staff": Hidden, "/team/": Hidden}}
	r := NewResolver(settings, &fakePolicy{policy: DefaultPolicy})

	d, err := r.Decide(context.Background(), "/staff/", false)
	require.NoError(t, err)
	assert.Equal(t, Allow, d, "/staff/ needs its own override")

	d, err = r.Decide(context.Background(), "/team/", false)
	require.NoError(t, err)
	assert.Equal(t, Deny, d)
}

func TestDecideAdminSkipsStorage(t *testing.T) {
	settings := &fakeSettings{err: errors.New("db down")}
	policy := &fakePolicy{}
	r := NewResolver(settings, policy)

	d, err := r.Decide(context.Background(), "/staff", true)
	require.NoError(t, err)
	assert.Equal(t, Allow, d)
	assert.Zero(t, settings.calls)
	assert.Zero(t, policy.calls)
}

func TestDecideFailsClosed(t *testing.T) {
	r := NewResolver(&fakeSettings{err: errors.New("db down")}, &fakePolicy{policy: DefaultPolicy})
	d, err := r.Decide(context.Background(), "/staff", false)
	assert.Equal(t, Deny, d)
	assert.ErrorIs(t, err, ErrUnavailable)

	r = NewResolver(&fakeSettings{}, &fakePolicy{err: errors.New("config missing")})
	d, err = r.Decide(context.Background(), "/staff", false)
	assert.Equal(t, Deny, d)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecideOverrideSkipsPolicyRead(t *testing.T) {
	policy := &fakePolicy{}
	r := NewResolver(&fakeSettings{overrides: map[string]Override{"/a": Public}}, policy)
	_, err := r.Decide(context.Background(), "/a", false)
	require.NoError(t, err)
	assert.Zero(t, policy.calls)
}

func TestMetricsCountDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := NewResolver(&fakeSettings{overrides: map[string]Override{"/staff": Hidden}}, &fakePolicy{policy: DefaultPolicy}, WithMetrics(m))

	_, _ = r.Decide(context.Background(), "/staff", false)
	_, _ = r.Decide(context.Background(), "/staff", false)
	_, _ = r.Decide(context.Background(), "/about", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("deny", "override-hidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("allow", "default")))
}

func newEnforcedEcho(r *Resolver, admin bool, onErr func(echo.Context, error)) *echo.Echo {
	e := echo.New()
	e.Use(r.Middleware(MiddlewareConfig{
		IsAdmin: func(echo.Context) bool { return admin },
		Skipper: func(c echo.Context) bool { return c.Request().URL.Path == "/healthz" },
		OnError: onErr,
	}))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "body") }
	e.GET("/staff", ok)
	e.GET("/about", ok)
	e.GET("/healthz", ok)
	return e
}

func TestMiddlewareStaffScenario(t *testing.T) {
	settings := &fakeSettings{overrides: map[string]Override{"/staff": Hidden}}
	r := NewResolver(settings, &fakePolicy{policy: DefaultPolicy})

	rec := httptest.NewRecorder()
	newEnforcedEcho(r, false, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/staff", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "body")

	rec = httptest.NewRecorder()
	newEnforcedEcho(r, true, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/staff", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	newEnforcedEcho(r, false, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareStoreFailure(t *testing.T) {
	r := NewResolver(&fakeSettings{err: errors.New("db down")}, &fakePolicy{policy: DefaultPolicy})
	var reported error
	e := newEnforcedEcho(r, false, func(_ echo.Context, err error) { reported = err })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.ErrorIs(t, reported, ErrUnavailable)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "skipped paths bypass enforcement")
}
