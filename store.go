package routemanager

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/routemanager/access"
	"github.com/eringen/routemanager/catalog"
)

// ErrNotFound is returned when a requested route setting does not exist.
var ErrNotFound = sql.ErrNoRows

// timeLayout is fixed-width so that text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const defaultPublicKey = "default_public"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Store wraps the SQLite database holding route settings, audit records and
// the site-wide access configuration.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the access middleware read while the console writes; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS route_settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    route_name TEXT NOT NULL DEFAULT '',
    is_public INTEGER,
    page_title TEXT NOT NULL DEFAULT '',
    metatags TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS route_audits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    audit_date TEXT NOT NULL,
    status_code INTEGER NOT NULL DEFAULT 0,
    load_time_ms INTEGER NOT NULL DEFAULT 0,
    ttfb_ms INTEGER NOT NULL DEFAULT 0,
    request_count INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0,
    seo_data TEXT NOT NULL DEFAULT '',
    errors TEXT NOT NULL DEFAULT '',
    responsive_issues TEXT NOT NULL DEFAULT '',
    comparison TEXT NOT NULL DEFAULT '',
    vitals TEXT NOT NULL DEFAULT '',
    batch_id TEXT NOT NULL DEFAULT '',
    UNIQUE(path, audit_date)
);
CREATE INDEX IF NOT EXISTS idx_route_audits_batch ON route_audits(batch_id);
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

func overrideArg(o access.Override) any {
	switch o {
	case access.Public:
		return 1
	case access.Hidden:
		return 0
	}
	return nil
}

func overrideFromColumn(v sql.NullInt64) access.Override {
	if !v.Valid {
		return access.Inherit
	}
	return access.OverrideFromBool(v.Int64 == 1)
}

func encodeMetatags(m catalog.Metatags) (string, error) {
	if m.IsZero() {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(r rowScanner) (catalog.RouteSetting, error) {
	var (
		st        catalog.RouteSetting
		isPublic  sql.NullInt64
		metatags  string
		updatedAt string
	)
	if err := r.Scan(&st.Path, &st.RouteName, &isPublic, &st.PageTitle, &metatags, &updatedAt); err != nil {
		return catalog.RouteSetting{}, err
	}
	st.Access = overrideFromColumn(isPublic)
	st.Metatags = catalog.DecodeMetatags([]byte(metatags))
	st.UpdatedAt = parseTime(updatedAt)
	return st, nil
}

const settingColumns = `path, route_name, is_public, page_title, metatags, updated_at`

// GetSetting returns the setting stored for the exact path, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, path string) (catalog.RouteSetting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+settingColumns+` FROM route_settings WHERE path = ?`, path)
	return scanSetting(row)
}

// LookupOverride implements access.SettingsLookup with a single indexed read.
func (s *Store) LookupOverride(ctx context.Context, path string) (access.Override, error) {
	var isPublic sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT is_public FROM route_settings WHERE path = ?`, path).Scan(&isPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Inherit, nil
	}
	if err != nil {
		return access.Inherit, err
	}
	return overrideFromColumn(isPublic), nil
}

// ListSettings returns every stored setting ordered by path.
func (s *Store) ListSettings(ctx context.Context) ([]catalog.RouteSetting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+settingColumns+` FROM route_settings ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.RouteSetting
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SettingExists reports whether a setting row exists for path.
func (s *Store) SettingExists(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM route_settings WHERE path = ?`, path).Scan(&n)
	return n > 0, err
}

// SaveSetting upserts st by path, replacing every field.
func (s *Store) SaveSetting(ctx context.Context, st catalog.RouteSetting) error {
	metatags, err := encodeMetatags(st.Metatags)
	if err != nil {
		return fmt.Errorf("routemanager: encode metatags for %s: %w", st.Path, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO route_settings (path, route_name, is_public, page_title, metatags, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    route_name = excluded.route_name,
    is_public = excluded.is_public,
    page_title = excluded.page_title,
    metatags = excluded.metatags,
    updated_at = excluded.updated_at`,
		st.Path, st.RouteName, overrideArg(st.Access), st.PageTitle, metatags, formatTime(s.now()))
	return err
}

// SetAccess upserts only the access override of path, keeping any other
// stored field. routeName is recorded when the row has none yet.
func (s *Store) SetAccess(ctx context.Context, path, routeName string, o access.Override) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO route_settings (path, route_name, is_public, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    route_name = CASE WHEN route_settings.route_name = '' THEN excluded.route_name ELSE route_settings.route_name END,
    is_public = excluded.is_public,
    updated_at = excluded.updated_at`,
		path, routeName, overrideArg(o), formatTime(s.now()))
	return err
}

// Policy implements access.PolicySource. An unset default means public.
func (s *Store) Policy(ctx context.Context) (access.Policy, error) {
	v, err := s.GetConfig(ctx, defaultPublicKey)
	if errors.Is(err, sql.ErrNoRows) {
		return access.DefaultPolicy, nil
	}
	if err != nil {
		return access.Policy{}, err
	}
	return access.Policy{DefaultPublic: v != "0"}, nil
}

// SetDefaultPublic stores the site-wide default for paths without override.
func (s *Store) SetDefaultPublic(ctx context.Context, public bool) error {
	v := "0"
	if public {
		v = "1"
	}
	return s.SetConfig(ctx, defaultPublicKey, v)
}

// GetConfig returns a configuration value, or ErrNotFound.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	return v, err
}

// SetConfig upserts a configuration value.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func rawText(m json.RawMessage) string {
	if len(m) == 0 {
		return ""
	}
	return string(m)
}

func rawColumn(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

// SaveAudits appends recs in one transaction. A record whose path and audit
// date are already stored is ignored. It returns the number of new rows.
func (s *Store) SaveAudits(ctx context.Context, recs []catalog.AuditRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO route_audits (path, audit_date, status_code, load_time_ms, ttfb_ms, request_count, total_bytes,
    seo_data, errors, responsive_issues, comparison, vitals, batch_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, audit_date) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, r := range recs {
		res, err := stmt.ExecContext(ctx,
			r.Path, formatTime(r.AuditDate), r.StatusCode, r.LoadTimeMs, r.TTFBMs, r.RequestCount, r.TotalBytes,
			encodeJSON(r.SEO), encodeJSON(r.Errors), encodeJSON(r.ResponsiveIssues),
			rawText(r.Comparison), rawText(r.Vitals), r.BatchID)
		if err != nil {
			return 0, fmt.Errorf("routemanager: store audit %s: %w", r.Path, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

// LatestAudits returns the most recent record per path.
func (s *Store) LatestAudits(ctx context.Context) (map[string]catalog.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT a.path, a.audit_date, a.status_code, a.load_time_ms, a.ttfb_ms, a.request_count, a.total_bytes,
       a.seo_data, a.errors, a.responsive_issues, a.comparison, a.vitals, a.batch_id
FROM route_audits a
JOIN (SELECT path, MAX(audit_date) AS latest FROM route_audits GROUP BY path) l
  ON l.path = a.path AND l.latest = a.audit_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]catalog.AuditRecord)
	for rows.Next() {
		var (
			r                                  catalog.AuditRecord
			date                               string
			seo, errs, issues, comparison, vit string
		)
		if err := rows.Scan(&r.Path, &date, &r.StatusCode, &r.LoadTimeMs, &r.TTFBMs, &r.RequestCount, &r.TotalBytes,
			&seo, &errs, &issues, &comparison, &vit, &r.BatchID); err != nil {
			return nil, err
		}
		r.AuditDate = parseTime(date)
		r.SEO = decodeColumn[catalog.AuditSeo](seo)
		r.Errors = decodeColumn[[]catalog.AuditIssue](errs)
		r.ResponsiveIssues = decodeColumn[[]catalog.ResponsiveIssue](issues)
		r.Comparison = rawColumn(comparison)
		r.Vitals = rawColumn(vit)
		out[r.Path] = r
	}
	return out, rows.Err()
}

// decodeColumn decodes a JSON column into a fresh T. A corrupt column yields
// the zero value, never a partially decoded one.
func decodeColumn[T any](raw string) T {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// AuditBatch summarizes one stored audit batch.
type AuditBatch struct {
	ID    string
	Date  time.Time
	Pages int
}

// ListAuditBatches returns stored batches, newest first.
func (s *Store) ListAuditBatches(ctx context.Context) ([]AuditBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT batch_id, MAX(audit_date), COUNT(*) FROM route_audits
GROUP BY batch_id ORDER BY MAX(audit_date) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditBatch
	for rows.Next() {
		var b AuditBatch
		var date string
		if err := rows.Scan(&b.ID, &date, &b.Pages); err != nil {
			return nil, err
		}
		b.Date = parseTime(date)
		out = append(out, b)
	}
	return out, rows.Err()
}
