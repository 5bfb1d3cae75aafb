package drupal

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/eringen/routemanager/catalog"
)

// Site is the read-only view of one CMS installation. Either half may be
// absent: without DB there are no aliases or node bodies, without ConfigDir
// and RoutingDirs there are no declared routes or defaults.
type Site struct {
	DB          *sql.DB
	ConfigDir   string
	RoutingDirs []string
	Log         *zap.Logger
}

func (s *Site) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// ActiveAliases implements catalog.AliasSource.
func (s *Site) ActiveAliases(ctx context.Context) (map[string]string, error) {
	if s.DB == nil {
		return map[string]string{}, nil
	}
	return ActiveAliases(ctx, s.DB)
}

// RouteTable implements catalog.RouteSource.
func (s *Site) RouteTable(ctx context.Context) (catalog.RouteTable, error) {
	var table catalog.RouteTable
	if err := ctx.Err(); err != nil {
		return table, err
	}
	routes, err := LoadRoutes(s.RoutingDirs, func(file string, err error) {
		s.logger().Warn("skipping route definition", zap.String("file", file), zap.Error(err))
	})
	if err != nil {
		return table, err
	}
	table.Routes = routes

	table.AnonymousPermissions = map[string]bool{}
	if s.ConfigDir != "" {
		if table.AnonymousPermissions, err = AnonymousPermissions(s.ConfigDir); err != nil {
			return table, err
		}
	}
	return table, nil
}

// MetatagDefaults implements catalog.EntitySource.
func (s *Site) MetatagDefaults(ctx context.Context) (catalog.MetatagDefaults, error) {
	if s.ConfigDir == "" {
		return catalog.MetatagDefaults{}, ctx.Err()
	}
	return NodeMetatagDefaults(s.ConfigDir)
}

// NodesWithSummary implements catalog.EntitySource.
func (s *Site) NodesWithSummary(ctx context.Context, ids []int64) (map[int64]bool, error) {
	if s.DB == nil {
		return map[int64]bool{}, nil
	}
	return NodesWithSummary(ctx, s.DB, ids)
}

// Close releases the database pool, if any.
func (s *Site) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
