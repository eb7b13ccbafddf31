package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/internal/wizard"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// MaxCellWidth caps column width unless cell resize is synced
const MaxCellWidth = 32

// TableGrid renders the preview grid as text
type TableGrid struct {
	Style  table.Style
	SortBy []table.SortBy
	Logger *logrus.Logger

	mu       sync.Mutex
	output   string
	rows     int
	rendered bool
}

// NewTableGrid creates a grid drawn with the light box style
func NewTableGrid(logger *logrus.Logger) *TableGrid {
	return &TableGrid{Style: table.StyleLight, Logger: logger}
}

// Render draws headers and rows, replacing the previous drawing
func (g *TableGrid) Render(headers []models.ColumnHeader, rows []models.RowRecord, opts wizard.GridOptions) {
	t := table.NewWriter()
	t.SetStyle(g.Style)

	headerRow := make(table.Row, len(headers))
	configs := make([]table.ColumnConfig, len(headers))
	for i, h := range headers {
		headerRow[i] = fmt.Sprintf("%s\n%s", h.FieldName, h.DisplayType)
		configs[i] = table.ColumnConfig{Number: i + 1}
		if !opts.SyncColumnCellResize {
			configs[i].WidthMax = MaxCellWidth
			configs[i].WidthMaxEnforcer = text.Trim
		}
	}
	t.AppendHeader(headerRow)
	t.SetColumnConfigs(configs)

	for _, record := range rows {
		row := make(table.Row, len(headers))
		for i, h := range headers {
			row[i] = formatValue(record[h.FieldName], opts.NullCellStyle)
		}
		t.AppendRow(row)
	}

	if len(g.SortBy) > 0 {
		sortBy := g.SortBy
		if !opts.MultiColumnSort {
			sortBy = sortBy[:1]
		}
		t.SortBy(sortBy)
	}

	out := t.Render()

	g.mu.Lock()
	g.output = out
	g.rows = len(rows)
	g.rendered = true
	g.mu.Unlock()

	if g.Logger != nil {
		g.Logger.Debugf("Rendered grid with %d columns and %d rows", len(headers), len(rows))
	}
}

// Destroy discards the drawing
func (g *TableGrid) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.output = ""
	g.rows = 0
	g.rendered = false
}

// Rendered reports whether a drawing is present
func (g *TableGrid) Rendered() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rendered
}

// String returns the current drawing
func (g *TableGrid) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.output
}

// WriteTo writes the current drawing followed by the row count
func (g *TableGrid) WriteTo(w io.Writer) (int64, error) {
	g.mu.Lock()
	out, rows, rendered := g.output, g.rows, g.rendered
	g.mu.Unlock()

	if !rendered {
		return 0, nil
	}
	n, err := fmt.Fprintf(w, "%s\n(%d rows)\n", out, rows)
	return int64(n), err
}

func formatValue(v interface{}, markNull bool) string {
	if v == nil {
		if markNull {
			return "NULL"
		}
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
