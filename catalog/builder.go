package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/routemanager/access"
)

// SettingsSource lists every stored RouteSetting.
type SettingsSource interface {
	ListSettings(ctx context.Context) ([]RouteSetting, error)
}

// AuditSource returns the latest AuditRecord per path.
type AuditSource interface {
	LatestAudits(ctx context.Context) (map[string]AuditRecord, error)
}

// AliasSource returns the active aliases, keyed by alias, valued by system path.
type AliasSource interface {
	ActiveAliases(ctx context.Context) (map[string]string, error)
}

// RouteSource returns the declared routes of the host site.
type RouteSource interface {
	RouteTable(ctx context.Context) (RouteTable, error)
}

// RouteRow is the computed view of one path. It is never persisted.
type RouteRow struct {
	Path       string
	RouteName  string
	SystemPath string

	Setting *RouteSetting
	Audit   *AuditRecord
	Entity  *EntitySeo

	Override        access.Override
	NativeAdminOnly bool
	Label           Label

	Badges     Badges
	ShowBadges bool

	IsAlias  bool
	IsStatic bool

	Group    string
	Subgroup string
	Depth    int
}

// Query narrows the listing. The zero Query selects everything.
type Query struct {
	Search string
	Access Filter
}

func (q Query) matches(r RouteRow) bool {
	if s := strings.TrimSpace(q.Search); s != "" {
		if !strings.Contains(strings.ToLower(r.Path), strings.ToLower(s)) {
			return false
		}
	}
	return q.Access.Matches(r.Label)
}

// Catalog is the grouped, filtered listing.
type Catalog struct {
	Groups []Group
	// Shown is the number of rows that passed the query.
	Shown int
	// Total is the size of the unfiltered path universe.
	Total int
}

// Builder assembles RouteRows from the data sources.
type Builder struct {
	Settings SettingsSource
	Audits   AuditSource
	Aliases  AliasSource
	Routes   RouteSource
	Entities *EntitySeoInspector
	// Log receives route metadata failures. Nil discards them.
	Log *zap.Logger
}

func (b *Builder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

type sources struct {
	settings []RouteSetting
	audits   map[string]AuditRecord
	aliases  map[string]string
	routes   RouteTable
}

// load runs one bulk read per source, concurrently.
func (b *Builder) load(ctx context.Context) (*sources, error) {
	var src sources
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if src.settings, err = b.Settings.ListSettings(gctx); err != nil {
			return fmt.Errorf("catalog: list settings: %w", err)
		}
		return nil
	})
	if b.Audits != nil {
		g.Go(func() error {
			var err error
			if src.audits, err = b.Audits.LatestAudits(gctx); err != nil {
				return fmt.Errorf("catalog: latest audits: %w", err)
			}
			return nil
		})
	}
	if b.Aliases != nil {
		g.Go(func() error {
			var err error
			if src.aliases, err = b.Aliases.ActiveAliases(gctx); err != nil {
				return fmt.Errorf("catalog: aliases: %w", err)
			}
			return nil
		})
	}
	if b.Routes != nil {
		// A broken route table only loses native access inference.
		g.Go(func() error {
			table, err := b.Routes.RouteTable(gctx)
			if err != nil {
				b.logger().Warn("route table unavailable, no route is inferred admin only", zap.Error(err))
				return nil
			}
			src.routes = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &src, nil
}

// Rows returns one RouteRow per distinct path of the union of settings,
// aliases and static routes, sorted by path. Filters are not applied.
func (b *Builder) Rows(ctx context.Context, policy access.Policy) ([]RouteRow, error) {
	src, err := b.load(ctx)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*RouteRow)
	row := func(path string) *RouteRow {
		r, ok := rows[path]
		if !ok {
			r = &RouteRow{Path: path}
			rows[path] = r
		}
		return r
	}

	for i := range src.settings {
		s := &src.settings[i]
		r := row(s.Path)
		r.Setting = s
		r.Override = s.Access
		if s.RouteName != "" {
			r.RouteName = s.RouteName
		}
	}
	for alias, sys := range src.aliases {
		r := row(alias)
		r.IsAlias = true
		r.SystemPath = sys
	}
	for _, sr := range src.routes.Routes {
		if !IsStatic(sr.Path) {
			continue
		}
		r := row(sr.Path)
		r.IsStatic = true
		if r.RouteName == "" {
			r.RouteName = sr.Name
		}
		if NativeAdminOnly(sr, src.routes.AnonymousPermissions) {
			r.NativeAdminOnly = true
		}
	}

	paths := make([]string, 0, len(rows))
	for p := range rows {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entities, err := b.Entities.Inspect(ctx, paths, src.aliases)
	if err != nil {
		return nil, err
	}

	out := make([]RouteRow, 0, len(paths))
	for _, p := range paths {
		r := rows[p]
		if rec, ok := src.audits[p]; ok {
			r.Audit = &rec
		}
		if e, ok := entities[p]; ok {
			r.Entity = &e
		}
		r.Label = ResolveLabel(r.Override, r.NativeAdminOnly, policy)
		r.Badges, r.ShowBadges = MergeBadges(SettingsSeoFor(r.Setting), AuditSeoFor(r.Audit), r.Entity)
		r.Group, r.Subgroup, r.Depth = GroupKeys(p)
		out = append(out, *r)
	}
	return out, nil
}

// Build returns the grouped listing for q.
func (b *Builder) Build(ctx context.Context, policy access.Policy, q Query) (*Catalog, error) {
	rows, err := b.Rows(ctx, policy)
	if err != nil {
		return nil, err
	}
	var shown []RouteRow
	for _, r := range rows {
		if q.matches(r) {
			shown = append(shown, r)
		}
	}
	return &Catalog{
		Groups: GroupRows(shown),
		Shown:  len(shown),
		Total:  len(rows),
	}, nil
}
