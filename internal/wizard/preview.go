package wizard

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// PreviewResult is the outcome of one preview fetch
type PreviewResult struct {
	State   models.PreviewState
	Headers []models.ColumnHeader
	Rows    []models.RowRecord
	Err     error
}

// PreviewFetcher fetches table and query previews through a Lookup.
//
// Every fetch is tagged with a generation. Starting another fetch or calling
// Invalidate supersedes it, and the superseded completion is dropped
type PreviewFetcher struct {
	Lookup     Lookup
	Runner     Runner
	Translator Translator
	Surface    Surface
	Logger     *logrus.Logger

	generation uint64
	state      models.PreviewState
}

// NewPreviewFetcher creates a new preview fetcher
func NewPreviewFetcher(lookup Lookup, runner Runner, translator Translator, surface Surface, logger *logrus.Logger) *PreviewFetcher {
	return &PreviewFetcher{
		Lookup:     lookup,
		Runner:     runner,
		Translator: translator,
		Surface:    surface,
		Logger:     logger,
	}
}

// State returns the status of the latest fetch
func (f *PreviewFetcher) State() models.PreviewState {
	return f.state
}

// Generation returns the tag of the latest fetch
func (f *PreviewFetcher) Generation() uint64 {
	return f.generation
}

// Invalidate discards any fetch in flight and resets the state to EMPTY
func (f *PreviewFetcher) Invalidate() {
	f.generation++
	f.state = models.PreviewState{Status: models.PreviewEmpty}
}

// FetchTablePreview fetches the contents of database.table. done runs on the
// event loop unless the fetch was superseded
func (f *PreviewFetcher) FetchTablePreview(conn models.Connection, database, table string, done func(PreviewResult)) {
	req := models.LookupRequest{
		Connection: conn,
		Database:   database,
		Query:      table,
		Type:       models.LookupTable,
	}
	f.fetch(req, func(res *models.LookupResult, err error) PreviewResult {
		return ShapeTablePreview(res, err, f.Translator)
	}, done)
}

// FetchQueryPreview runs query with the credentials of conn
func (f *PreviewFetcher) FetchQueryPreview(conn models.Connection, query string, done func(PreviewResult)) {
	req := models.LookupRequest{
		Connection:  conn,
		Hostname:    conn.Hostname,
		Implementor: conn.Implementor,
		Username:    conn.Username,
		Password:    conn.Password,
		Port:        conn.Port,
		Query:       query,
		Type:        models.LookupQuery,
	}
	f.fetch(req, ShapeQueryPreview, done)
}

func (f *PreviewFetcher) fetch(req models.LookupRequest, shape func(*models.LookupResult, error) PreviewResult, done func(PreviewResult)) {
	f.generation++
	gen := f.generation
	f.state = models.PreviewState{Status: models.PreviewLoading}
	f.Surface.ShowLoading()

	f.Runner.Go(func(ctx context.Context) Completion {
		res, err := f.Lookup.LookupPreview(ctx, req)
		return func() {
			f.Surface.HideLoading()
			if gen != f.generation {
				f.Logger.Debugf("Discarding stale %s preview for %q (generation %d, current %d)", req.Type, req.Query, gen, f.generation)
				return
			}
			result := shape(res, err)
			f.state = result.State
			done(result)
		}
	})
}

// ShapeTablePreview converts a table lookup outcome into a preview.
// Zero fields or zero rows is EMPTY, not an error
func ShapeTablePreview(res *models.LookupResult, err error, translator Translator) PreviewResult {
	if err != nil {
		msg := localizeError(err, translator)
		return PreviewResult{
			State: models.PreviewState{Status: models.PreviewError, ErrorMessage: msg},
			Err:   err,
		}
	}
	return shapeRows(res)
}

// ShapeQueryPreview converts a query lookup outcome into a preview. A result
// carrying ErrorMsg is a QueryExecutionError; a failed call reports its details
func ShapeQueryPreview(res *models.LookupResult, err error) PreviewResult {
	if err != nil {
		msg := err.Error()
		var te *models.TransportError
		if errors.As(err, &te) {
			msg = te.Error()
		}
		return PreviewResult{
			State: models.PreviewState{Status: models.PreviewError, ErrorMessage: msg},
			Err:   err,
		}
	}
	if res != nil && res.ErrorMsg != nil {
		return PreviewResult{
			State: models.PreviewState{Status: models.PreviewError, ErrorMessage: *res.ErrorMsg},
			Err:   &models.QueryExecutionError{Message: *res.ErrorMsg},
		}
	}
	return shapeRows(res)
}

func shapeRows(res *models.LookupResult) PreviewResult {
	if res == nil || len(res.Fields) == 0 || len(res.Data) == 0 {
		return PreviewResult{State: models.PreviewState{Status: models.PreviewEmpty}}
	}
	return PreviewResult{
		State:   models.PreviewState{Status: models.PreviewReady},
		Headers: BuildHeaders(res.Fields),
		Rows:    BuildRows(res.Data),
	}
}

// BuildHeaders maps fields to grid headers. The logical type stands in for a
// physical type the driver could not name
func BuildHeaders(fields []models.Field) []models.ColumnHeader {
	headers := make([]models.ColumnHeader, len(fields))
	for i, field := range fields {
		displayType := field.Type
		if displayType == models.UnknownType {
			displayType = field.LogicalType
		}
		headers[i] = models.ColumnHeader{FieldName: field.Name, DisplayType: displayType}
	}
	return headers
}

// BuildRows copies data into row records numbered with InjectRowIDs
func BuildRows(data []map[string]interface{}) []models.RowRecord {
	rows := make([]models.RowRecord, len(data))
	for i, src := range data {
		row := make(models.RowRecord, len(src)+1)
		for k, v := range src {
			row[k] = v
		}
		rows[i] = row
	}
	return InjectRowIDs(rows)
}

// InjectRowIDs sets a 0-based "id" on every row unless some row already has one
func InjectRowIDs(rows []models.RowRecord) []models.RowRecord {
	for _, row := range rows {
		if _, ok := row["id"]; ok {
			return rows
		}
	}
	for i, row := range rows {
		row["id"] = i
	}
	return rows
}

func localizeError(err error, translator Translator) string {
	var te *models.TransportError
	if !errors.As(err, &te) {
		return err.Error()
	}
	if te.Code != "" && translator != nil {
		if msg := translator.Translate(te.Code); msg != te.Code {
			return msg
		}
	}
	return te.Error()
}
