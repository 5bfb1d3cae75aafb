package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/eringen/routemanager/access"
)

// Columns is the fixed CSV column set, in export order.
var Columns = []string{
	"route_name", "path", "is_public", "page_title", "meta_title", "meta_description",
	"og_title", "og_description", "og_image", "canonical", "robots",
}

type csvRecord struct {
	RouteName       string `csv:"route_name"`
	Path            string `csv:"path"`
	IsPublic        string `csv:"is_public"`
	PageTitle       string `csv:"page_title"`
	MetaTitle       string `csv:"meta_title"`
	MetaDescription string `csv:"meta_description"`
	OGTitle         string `csv:"og_title"`
	OGDescription   string `csv:"og_description"`
	OGImage         string `csv:"og_image"`
	Canonical       string `csv:"canonical"`
	Robots          string `csv:"robots"`
}

func recordFor(r RouteRow) csvRecord {
	rec := csvRecord{RouteName: r.RouteName, Path: r.Path}
	if s := r.Setting; s != nil {
		rec.IsPublic = s.Access.String()
		rec.PageTitle = s.PageTitle
		rec.MetaTitle = s.Metatags.Title
		rec.MetaDescription = s.Metatags.Description
		rec.OGTitle = s.Metatags.OGTitle
		rec.OGDescription = s.Metatags.OGDescription
		rec.OGImage = s.Metatags.OGImage
		rec.Canonical = s.Metatags.Canonical
		rec.Robots = s.Metatags.Robots
	}
	return rec
}

func (rec csvRecord) setting(o access.Override) RouteSetting {
	return RouteSetting{
		Path:      rec.Path,
		RouteName: strings.TrimSpace(rec.RouteName),
		Access:    o,
		PageTitle: strings.TrimSpace(rec.PageTitle),
		Metatags: Metatags{
			Title:         rec.MetaTitle,
			Description:   rec.MetaDescription,
			Canonical:     rec.Canonical,
			Robots:        rec.Robots,
			OGTitle:       rec.OGTitle,
			OGDescription: rec.OGDescription,
			OGImage:       rec.OGImage,
		}.Trim(),
	}
}

// quotedWriter writes every field wrapped in double quotes with internal
// quotes doubled. encoding/csv only quotes fields that need it.
type quotedWriter struct {
	w *bufio.Writer
}

func (q *quotedWriter) Write(record []string) error {
	for i, f := range record {
		if i > 0 {
			q.w.WriteByte(',')
		}
		q.w.WriteByte('"')
		q.w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		q.w.WriteByte('"')
	}
	_, err := q.w.WriteString("\n")
	return err
}

// ExportCSV writes rows, one line per route, under the fixed header.
func ExportCSV(w io.Writer, rows []RouteRow) error {
	bw := bufio.NewWriter(w)
	enc := csvutil.NewEncoder(&quotedWriter{w: bw})
	if err := enc.EncodeHeader(csvRecord{}); err != nil {
		return fmt.Errorf("catalog: csv header: %w", err)
	}
	for _, r := range rows {
		if err := enc.Encode(recordFor(r)); err != nil {
			return fmt.Errorf("catalog: csv row %s: %w", r.Path, err)
		}
	}
	return bw.Flush()
}

// SettingsSink receives imported settings.
type SettingsSink interface {
	SettingExists(ctx context.Context, path string) (bool, error)
	SaveSetting(ctx context.Context, s RouteSetting) error
}

// ImportError describes one rejected CSV row.
type ImportError struct {
	Line    int
	Path    string
	Message string
}

func (e ImportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Path, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ImportReport summarizes a CSV import. Rejected rows do not prevent valid
// rows of the same file from being applied.
type ImportReport struct {
	Created int
	Updated int
	Skipped int
	Errors  []ImportError
}

// ErrMissingColumns is returned when the header lacks export columns.
var ErrMissingColumns = errors.New("catalog: csv header is missing columns")

// ImportCSV upserts one RouteSetting per valid row of r. The header must
// contain every column of Columns, in any order. Rows that carry no override
// data for a path without a stored setting are skipped.
func ImportCSV(ctx context.Context, r io.Reader, sink SettingsSink) (ImportReport, error) {
	var report ImportReport

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return report, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	if err != nil {
		return report, fmt.Errorf("catalog: csv header: %w", err)
	}
	header = normalizeHeader(header)
	if missing := missingColumns(header); len(missing) > 0 {
		return report, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return report, fmt.Errorf("catalog: csv decoder: %w", err)
	}

	line := 1
	for {
		line++
		var rec csvRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) && !errors.Is(err, csvutil.ErrFieldCount) {
				return report, fmt.Errorf("catalog: csv line %d: %w", line, err)
			}
			report.Errors = append(report.Errors, ImportError{Line: line, Message: err.Error()})
			continue
		}

		rec.Path = normalizePath(rec.Path)
		if rec.Path == "" {
			report.Errors = append(report.Errors, ImportError{Line: line, Message: "missing path"})
			continue
		}
		o, err := access.ParseOverride(rec.IsPublic)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Line: line, Path: rec.Path, Message: err.Error()})
			continue
		}
		s := rec.setting(o)

		exists, err := sink.SettingExists(ctx, s.Path)
		if err != nil {
			return report, fmt.Errorf("catalog: csv import %s: %w", s.Path, err)
		}
		if !exists && s.Access == access.Inherit && s.PageTitle == "" && s.Metatags.IsZero() {
			report.Skipped++
			continue
		}
		if err := sink.SaveSetting(ctx, s); err != nil {
			return report, fmt.Errorf("catalog: csv import %s: %w", s.Path, err)
		}
		if exists {
			report.Updated++
		} else {
			report.Created++
		}
	}
	return report, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func missingColumns(header []string) []string {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	var missing []string
	for _, c := range Columns {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
