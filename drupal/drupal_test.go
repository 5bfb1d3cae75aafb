package drupal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/routemanager/catalog"
)

const systemRouting = `
system.admin:
  path: '/admin'
  defaults:
    _controller: '\Drupal\system\Controller\SystemController::systemAdminMenuBlockPage'
  requirements:
    _permission: 'access administration pages'
system.site_maintenance_mode:
  path: '/admin/config/development/maintenance'
  requirements:
    _permission: 'administer site configuration'
  options:
    _admin_route: TRUE
entity.node.canonical:
  path: '/node/{node}'
  requirements:
    node: \d+
    _entity_access: 'node.view'
user.login:
  path: '/user/login'
  requirements:
    _user_is_logged_in: 'FALSE'
route_callbacks:
  - '\Drupal\views\EventSubscriber\RouteSubscriber::routes'
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseRouting(t *testing.T) {
	var skipped []string
	routes, err := ParseRouting([]byte(systemRouting), "system.routing.yml", func(file string, err error) {
		skipped = append(skipped, file)
	})
	require.NoError(t, err)
	require.Len(t, routes, 4)
	assert.Len(t, skipped, 1, "route_callbacks is not a route")

	byName := map[string]catalog.StaticRoute{}
	for _, r := range routes {
		byName[r.Name] = r
	}
	assert.Equal(t, "access administration pages", byName["system.admin"].Requirements["_permission"])
	assert.True(t, byName["system.site_maintenance_mode"].AdminRoute)
	assert.False(t, byName["system.admin"].AdminRoute)
	assert.Equal(t, "FALSE", byName["user.login"].Requirements["_user_is_logged_in"])
	assert.False(t, catalog.IsStatic(byName["entity.node.canonical"].Path))
}

func TestParseRoutingBrokenFile(t *testing.T) {
	_, err := ParseRouting([]byte("a: [unterminated"), "broken.routing.yml", nil)
	require.Error(t, err)
}

func TestLoadRoutesWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "core/modules/system/system.routing.yml"), systemRouting)
	writeFile(t, filepath.Join(dir, "modules/custom/staff/staff.routing.yml"), `
staff.page:
  path: '/staff'
  requirements:
    _role: 'editor'
`)
	writeFile(t, filepath.Join(dir, "modules/custom/bad/bad.routing.yml"), "x: [")
	writeFile(t, filepath.Join(dir, "modules/custom/staff/staff.info.yml"), "name: Staff\n")

	var skipped []string
	routes, err := LoadRoutes([]string{dir}, func(file string, err error) { skipped = append(skipped, file) })
	require.NoError(t, err)
	assert.Len(t, routes, 5)
	assert.Equal(t, "entity.node.canonical", routes[0].Name)
	assert.Contains(t, skipped, filepath.Join(dir, "modules/custom/bad/bad.routing.yml"))

	_, err = LoadRoutes([]string{filepath.Join(dir, "missing")}, nil)
	require.Error(t, err)
}

func TestAnonymousPermissions(t *testing.T) {
	dir := t.TempDir()
	perms, err := AnonymousPermissions(dir)
	require.NoError(t, err)
	assert.Empty(t, perms)

	writeFile(t, filepath.Join(dir, anonymousRoleFile), `
langcode: en
status: true
id: anonymous
label: 'Anonymous user'
weight: 0
is_admin: false
permissions:
  - 'access content'
  - 'search content'
`)
	perms, err = AnonymousPermissions(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"access content": true, "search content": true}, perms)
}

func TestNodeMetatagDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, globalMetatagFile), `
id: global
tags:
  title: '[current-page:title] | [site:name]'
  canonical_url: '[current-page:url]'
  og_site_name: '[site:name]'
`)
	writeFile(t, filepath.Join(dir, nodeMetatagFile), `
id: node
tags:
  title: '[node:title] | [site:name]'
  description: '[node:summary]'
  og_image: '[node:field_image]'
`)
	d, err := NodeMetatagDefaults(dir)
	require.NoError(t, err)
	assert.Equal(t, "[node:title] | [site:name]", d.Title)
	assert.Equal(t, "[node:summary]", d.Description)
	assert.Equal(t, "[current-page:url]", d.Tags["canonical_url"])
	assert.True(t, d.HasOG())
}

func TestSummaryQuery(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
	assert.Contains(t, summaryQuery(2), "entity_id IN (?,?)")
}

func TestSiteWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "routing", "system.routing.yml"), systemRouting)
	s := &Site{ConfigDir: dir, RoutingDirs: []string{filepath.Join(dir, "routing")}}

	aliases, err := s.ActiveAliases(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliases)

	ids, err := s.NodesWithSummary(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, ids)

	table, err := s.RouteTable(ctx)
	require.NoError(t, err)
	assert.Len(t, table.Routes, 4)
	assert.NotNil(t, table.AnonymousPermissions)

	require.NoError(t, s.Close())
}
