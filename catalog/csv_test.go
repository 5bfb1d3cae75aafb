package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/routemanager/access"
)

const csvHeader = "route_name,path,is_public,page_title,meta_title,meta_description,og_title,og_description,og_image,canonical,robots\n"

func TestExportCSVQuotesEveryField(t *testing.T) {
	rows := []RouteRow{
		{Path: "/about", RouteName: "about.page", Setting: &RouteSetting{
			Path:      "/about",
			Access:    access.Public,
			PageTitle: `About "us"`,
			Metatags:  Metatags{Description: "Line, with comma"},
		}},
		{Path: "/landing"},
	}
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, rows))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"route_name","path","is_public","page_title","meta_title","meta_description","og_title","og_description","og_image","canonical","robots"`, lines[0])
	assert.Equal(t, `"about.page","/about","1","About ""us""","","Line, with comma","","","","",""`, lines[1])
	assert.Equal(t, `"","/landing","","","","","","","","",""`, lines[2])
}

func TestImportCSVExampleRows(t *testing.T) {
	sink := newMemSettings()
	in := csvHeader +
		`"","/new-page","1","New","","","","","","",""` + "\n" +
		`"","","0","","","","","","","",""` + "\n"

	report, err := ImportCSV(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.Updated)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].Line)
	assert.Contains(t, report.Errors[0].Message, "missing path")

	s := sink.rows["/new-page"]
	assert.Equal(t, access.Public, s.Access)
	assert.Equal(t, "New", s.PageTitle)
}

func TestImportCSVRoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src := newMemSettings(
		RouteSetting{Path: "/staff", RouteName: "staff.page", Access: access.Hidden},
		RouteSetting{Path: "/about", Access: access.Public, Metatags: Metatags{
			Title: "About", OGImage: "https://example.com/a.png", Robots: "index, follow",
		}},
		RouteSetting{Path: "/meta-only", PageTitle: "Meta", Metatags: Metatags{Canonical: "https://example.com/m"}},
	)
	list, err := src.ListSettings(ctx)
	require.NoError(t, err)
	var rows []RouteRow
	for i := range list {
		rows = append(rows, RouteRow{Path: list[i].Path, RouteName: list[i].RouteName, Setting: &list[i]})
	}
	rows = append(rows, RouteRow{Path: "/alias-only"})

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, rows))
	exported := buf.String()

	dst := newMemSettings()
	first, err := ImportCSV(ctx, strings.NewReader(exported), dst)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 1, first.Skipped, "empty rows for unknown paths create nothing")
	assert.Empty(t, first.Errors)
	assert.Equal(t, src.rows, dst.rows)

	second, err := ImportCSV(ctx, strings.NewReader(exported), dst)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 3, second.Updated)
	assert.Equal(t, src.rows, dst.rows)
}

func TestImportCSVHeaderHandling(t *testing.T) {
	sink := newMemSettings()
	in := "\ufeffPath,ROBOTS,route_name,is_public,page_title,meta_title,meta_description,og_title,og_description,og_image,canonical\n" +
		"contact,noindex,,0,,,,,,,\n"
	report, err := ImportCSV(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	s, ok := sink.rows["/contact"]
	require.True(t, ok, "path gains a leading slash")
	assert.Equal(t, access.Hidden, s.Access)
	assert.Equal(t, "noindex", s.Metatags.Robots)
}

func TestImportCSVMissingColumns(t *testing.T) {
	_, err := ImportCSV(context.Background(), strings.NewReader("path,is_public\n/a,1\n"), newMemSettings())
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "route_name")

	_, err = ImportCSV(context.Background(), strings.NewReader(""), newMemSettings())
	require.ErrorIs(t, err, ErrMissingColumns)
}

func TestImportCSVRowErrorsDoNotAbort(t *testing.T) {
	sink := newMemSettings(RouteSetting{Path: "/kept", Access: access.Hidden})
	in := csvHeader +
		`"","/bad","yes","","","","","","","",""` + "\n" +
		`"","/short"` + "\n" +
		`"","/kept","","","","","","","","",""` + "\n"

	report, err := ImportCSV(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "/bad", report.Errors[0].Path)
	assert.Equal(t, 3, report.Errors[1].Line)
	assert.Equal(t, 1, report.Updated, "existing setting is cleared back to inherit")
	assert.Equal(t, access.Inherit, sink.rows["/kept"].Access)
}

func TestDecodeMetatags(t *testing.T) {
	m := DecodeMetatags([]byte(`{"title":"T","og:image":"/i.png","unknown":"x"}`))
	assert.Equal(t, Metatags{Title: "T", OGImage: "/i.png"}, m)
	assert.True(t, DecodeMetatags([]byte("{not json")).IsZero())
	assert.True(t, DecodeMetatags(nil).IsZero())
}

func TestAuditSeoLenientDecode(t *testing.T) {
	var seo AuditSeo
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Home","h1":"Welcome","h2":["a",null,"b"],"og":{"og:title":"Home","og:width":1200},"structured_data":[{}]}`), &seo))
	assert.Equal(t, "Home", seo.Title)
	assert.Equal(t, []string{"Welcome"}, seo.H1)
	assert.Equal(t, []string{"a", "b"}, seo.H2)
	assert.Equal(t, "Home", seo.OG["og:title"])
	assert.True(t, seo.HasData())

	var empty AuditSeo
	require.NoError(t, json.Unmarshal([]byte(`"garbage"`), &empty))
	assert.False(t, empty.HasData())
}
