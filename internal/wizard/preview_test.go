package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

func TestBuildHeadersResolvesUnknownType(t *testing.T) {
	headers := BuildHeaders([]models.Field{
		{Name: "id", Type: "INT", LogicalType: "INTEGER"},
		{Name: "payload", Type: models.UnknownType, LogicalType: "STRING"},
	})
	assert.Equal(t, []models.ColumnHeader{
		{FieldName: "id", DisplayType: "INT"},
		{FieldName: "payload", DisplayType: "STRING"},
	}, headers)
}

func TestBuildRowsInjectsIDs(t *testing.T) {
	rows := BuildRows([]map[string]interface{}{{"a": 1}, {"a": 2}, {"a": 3}})
	for i, row := range rows {
		assert.Equal(t, i, row["id"])
	}
}

func TestInjectRowIDsIsIdempotent(t *testing.T) {
	rows := []models.RowRecord{{"id": 10, "a": 1}, {"a": 2}}
	InjectRowIDs(rows)
	assert.Equal(t, []models.RowRecord{{"id": 10, "a": 1}, {"a": 2}}, rows, "a row with an id leaves every row untouched")

	numbered := InjectRowIDs([]models.RowRecord{{"a": 1}, {"a": 2}})
	again := InjectRowIDs(numbered)
	assert.Equal(t, []models.RowRecord{{"a": 1, "id": 0}, {"a": 2, "id": 1}}, again)
}

func TestShapeTablePreview(t *testing.T) {
	tr := MapTranslator(DefaultMessages)

	ready := ShapeTablePreview(twoByThree(), nil, tr)
	assert.Equal(t, models.PreviewReady, ready.State.Status)
	assert.Len(t, ready.Rows, 3)
	assert.Len(t, ready.Headers, 2)

	tests := []struct {
		name string
		res  *models.LookupResult
	}{
		{"nil result", nil},
		{"no fields", &models.LookupResult{Data: []map[string]interface{}{{"a": 1}}}},
		{"no rows", &models.LookupResult{Fields: []models.Field{{Name: "a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShapeTablePreview(tt.res, nil, tr)
			assert.Equal(t, models.PreviewEmpty, got.State.Status)
			assert.Nil(t, got.Rows)
			assert.NoError(t, got.Err)
		})
	}

	failed := ShapeTablePreview(nil, &models.TransportError{Code: models.ErrCodeConnection, Details: "dial tcp: refused"}, tr)
	assert.Equal(t, models.PreviewError, failed.State.Status)
	assert.Equal(t, DefaultMessages[models.ErrCodeConnection], failed.State.ErrorMessage)

	untranslated := ShapeTablePreview(nil, &models.TransportError{Code: "other", Details: "boom"}, tr)
	assert.Equal(t, "boom", untranslated.State.ErrorMessage)
}

func TestShapeQueryPreview(t *testing.T) {
	embedded := ShapeQueryPreview(&models.LookupResult{ErrorMsg: strPtr("syntax error")}, nil)
	assert.Equal(t, models.PreviewError, embedded.State.Status)
	assert.Equal(t, "syntax error", embedded.State.ErrorMessage)
	var qe *models.QueryExecutionError
	assert.True(t, errors.As(embedded.Err, &qe))

	transport := ShapeQueryPreview(nil, &models.TransportError{Code: models.ErrCodeLookup, Details: "connection reset"})
	assert.Equal(t, models.PreviewError, transport.State.Status)
	assert.Equal(t, "connection reset", transport.State.ErrorMessage)
	assert.False(t, errors.As(transport.Err, &qe))

	ready := ShapeQueryPreview(twoByThree(), nil)
	assert.Equal(t, models.PreviewReady, ready.State.Status)
}

func TestFetcherDiscardsSupersededFetch(t *testing.T) {
	lookup := &fakeLookup{previews: map[string]*models.LookupResult{"t1": twoByThree(), "t2": twoByThree()}}
	runner := &manualRunner{}
	surface := &fakeSurface{}
	f := NewPreviewFetcher(lookup, runner, MapTranslator(DefaultMessages), surface, newTestLogger())

	var results []string
	conn := models.Connection{}
	f.FetchTablePreview(conn, "db", "t1", func(r PreviewResult) { results = append(results, "t1") })
	f.FetchTablePreview(conn, "db", "t2", func(r PreviewResult) { results = append(results, "t2") })
	assert.Equal(t, models.PreviewLoading, f.State().Status)

	runner.flush()
	assert.Equal(t, []string{"t2"}, results)
	assert.Equal(t, models.PreviewReady, f.State().Status)
	assert.Equal(t, 0, surface.loading, "loading indicator is balanced even for dropped fetches")
}

func TestFetcherInvalidate(t *testing.T) {
	lookup := &fakeLookup{previews: map[string]*models.LookupResult{"select 1": twoByThree()}}
	runner := &manualRunner{}
	f := NewPreviewFetcher(lookup, runner, nil, &fakeSurface{}, newTestLogger())

	called := false
	f.FetchQueryPreview(models.Connection{Hostname: "h", Port: "5432", Implementor: "POSTGRESQL"}, "select 1", func(PreviewResult) { called = true })
	f.Invalidate()
	runner.flush()

	assert.False(t, called)
	assert.Equal(t, models.PreviewEmpty, f.State().Status)

	require.Len(t, lookup.requests, 1)
	req := lookup.requests[0]
	assert.Equal(t, models.LookupQuery, req.Type)
	assert.Equal(t, "h", req.Hostname)
	assert.Equal(t, "5432", req.Port)
	assert.Equal(t, "POSTGRESQL", req.Implementor)
}
