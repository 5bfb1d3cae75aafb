// Package drupal reads the host CMS: its database for path aliases and node
// bodies, and its exported YAML configuration for routes, the anonymous role
// and the node metatag defaults. Nothing here writes to the CMS.
package drupal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// OpenDB opens a read connection pool to the CMS database and verifies it
// with a ping.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("drupal: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("drupal: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("drupal: ping database: %w", err)
	}
	return db, nil
}

// ActiveAliases returns every published alias mapped to its system path.
// When an alias appears more than once the last row wins.
func ActiveAliases(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT alias, path FROM path_alias WHERE status = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("drupal: query aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var alias, path string
		if err := rows.Scan(&alias, &path); err != nil {
			return nil, fmt.Errorf("drupal: scan alias: %w", err)
		}
		if alias == "" {
			continue
		}
		out[alias] = path
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("drupal: aliases: %w", err)
	}
	return out, nil
}

// summaryQuery builds the bulk body/summary check for n node ids.
func summaryQuery(n int) string {
	return `SELECT DISTINCT entity_id FROM node__body WHERE entity_id IN (` +
		placeholders(n) +
		`) AND deleted = 0 AND (TRIM(COALESCE(body_summary, '')) <> '' OR TRIM(COALESCE(body_value, '')) <> '')`
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// NodesWithSummary returns the ids among ids whose body or summary is
// non-empty. It runs a single query regardless of len(ids).
func NodesWithSummary(ctx context.Context, db *sql.DB, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx, summaryQuery(len(ids)), args...)
	if err != nil {
		return nil, fmt.Errorf("drupal: query node bodies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("drupal: scan node id: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("drupal: node bodies: %w", err)
	}
	return out, nil
}
