package generator

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/internal/connector"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// Table is a sandbox table. Rows fake records are generated on first read.
type Table struct {
	Columns []Column
	Rows    int
	// Unreadable tables fail every preview with a lookup error
	Unreadable bool
}

// Sandbox is an in-memory data source filled with fake data
type Sandbox struct {
	Databases map[string]map[string]Table
	Latency   time.Duration
	Seed      int64
	Logger    *logrus.Logger

	mu   sync.Mutex
	data map[string][]map[string]interface{}
}

var selectRegex = regexp.MustCompile(`(?is)^\s*select\s+(.+?)\s+from\s+([\w.` + "`" + `]+)(?:\s+limit\s+(\d+))?\s*;?\s*$`)

// NewSandbox creates a sandbox holding DefaultSchema
func NewSandbox(seed int64, logger *logrus.Logger) *Sandbox {
	return &Sandbox{
		Databases: DefaultSchema(),
		Latency:   300 * time.Millisecond,
		Seed:      seed,
		Logger:    logger,
		data:      make(map[string][]map[string]interface{}),
	}
}

// DefaultSchema returns a small shop and analytics catalog
func DefaultSchema() map[string]map[string]Table {
	return map[string]map[string]Table{
		"shop": {
			"customers": {Rows: 25, Columns: []Column{
				{Name: "customer_id", DataType: "int"},
				{Name: "first_name", DataType: "varchar"},
				{Name: "last_name", DataType: "varchar"},
				{Name: "email", DataType: "varchar"},
				{Name: "phone", DataType: "varchar", Nullable: true},
				{Name: "city", DataType: "varchar"},
				{Name: "created_at", DataType: "datetime"},
			}},
			"products": {Rows: 40, Columns: []Column{
				{Name: "id", DataType: "int"},
				{Name: "title", DataType: "varchar"},
				{Name: "price", DataType: "decimal"},
				{Name: "in_stock", DataType: "boolean"},
				{Name: "status", DataType: "enum", EnumValues: []string{"draft", "active", "retired"}},
			}},
			"orders": {Rows: 60, Columns: []Column{
				{Name: "order_id", DataType: "bigint"},
				{Name: "customer_id", DataType: "int"},
				{Name: "total", DataType: "decimal"},
				{Name: "shipping_address", DataType: "json"},
				{Name: "ordered_on", DataType: "date"},
			}},
			"audit_log": {Rows: 0, Columns: []Column{
				{Name: "entry", DataType: "text"},
				{Name: "logged_at", DataType: "timestamp"},
			}},
			"legacy_archive": {Unreadable: true, Columns: []Column{
				{Name: "blob_ref", DataType: "varchar"},
			}},
		},
		"analytics": {
			"events": {Rows: 100, Columns: []Column{
				{Name: "event_uuid", DataType: "varchar"},
				{Name: "user_name", DataType: "varchar"},
				{Name: "ip_address", DataType: "varchar"},
				{Name: "payload", DataType: "json"},
				{Name: "occurred_at", DataType: "timestamp"},
			}},
			"sessions": {Rows: 30, Columns: []Column{
				{Name: "session_id", DataType: "bigint"},
				{Name: "landing_url", DataType: "varchar"},
				{Name: "duration", DataType: "double", Nullable: true},
			}},
		},
	}
}

// ListDatabases lists the sandbox databases
func (s *Sandbox) ListDatabases(ctx context.Context, conn models.Connection) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.Databases))
	for name := range s.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListTables lists the tables of database
func (s *Sandbox) ListTables(ctx context.Context, conn models.Connection, database string) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	tables, ok := s.Databases[database]
	if !ok {
		return nil, &models.TransportError{Code: models.ErrCodeLookup, Details: fmt.Sprintf("unknown database '%s'", database)}
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LookupPreview previews a table, or runs a single-table SELECT
func (s *Sandbox) LookupPreview(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	switch req.Type {
	case models.LookupTable:
		table, ok := s.Databases[req.Database][req.Query]
		if !ok || table.Unreadable {
			return nil, &models.TransportError{
				Code:    models.ErrCodeLookup,
				Details: fmt.Sprintf("Table '%s.%s' cannot be read", req.Database, req.Query),
			}
		}
		return s.preview(req.Database, req.Query, table, nil, connector.PreviewRowLimit), nil
	case models.LookupQuery:
		return s.runQuery(req.Query), nil
	default:
		return nil, &models.TransportError{Code: models.ErrCodeLookup, Details: fmt.Sprintf("unknown lookup type %q", req.Type)}
	}
}

func (s *Sandbox) runQuery(query string) *models.LookupResult {
	matches := selectRegex.FindStringSubmatch(query)
	if matches == nil {
		return queryError("You have an error in your SQL syntax near '%s'", firstWord(query))
	}

	database, name, table, ok := s.resolveTable(strings.ReplaceAll(matches[2], "`", ""))
	if !ok {
		return queryError("Table '%s' doesn't exist", matches[2])
	}
	if table.Unreadable {
		return queryError("Table '%s.%s' cannot be read", database, name)
	}

	var projection []string
	if list := strings.TrimSpace(matches[1]); list != "*" {
		for _, col := range strings.Split(list, ",") {
			col = strings.Trim(strings.TrimSpace(col), "`")
			if !hasColumn(table, col) {
				return queryError("Unknown column '%s' in 'field list'", col)
			}
			projection = append(projection, col)
		}
	}

	limit := connector.PreviewRowLimit
	if matches[3] != "" {
		if n, err := strconv.Atoi(matches[3]); err == nil && n < limit {
			limit = n
		}
	}
	return s.preview(database, name, table, projection, limit)
}

func (s *Sandbox) preview(database, name string, table Table, projection []string, limit int) *models.LookupResult {
	columns := table.Columns
	if projection != nil {
		columns = nil
		for _, col := range projection {
			for _, c := range table.Columns {
				if c.Name == col {
					columns = append(columns, c)
				}
			}
		}
	}

	fields := make([]models.Field, len(columns))
	for i, c := range columns {
		physical := strings.ToUpper(c.DataType)
		if physical == "ENUM" {
			physical = models.UnknownType
		}
		fields[i] = models.Field{Name: c.Name, Type: physical, LogicalType: connector.LogicalType(physical)}
	}

	records := s.records(database, name, table)
	if len(records) > limit {
		records = records[:limit]
	}
	data := make([]map[string]interface{}, len(records))
	for i, record := range records {
		row := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			row[c.Name] = record[c.Name]
		}
		data[i] = row
	}

	s.Logger.Debugf("Sandbox preview of %s.%s: %d rows", database, name, len(data))
	return &models.LookupResult{Fields: fields, Data: data}
}

// records generates the rows of a table once and keeps them
func (s *Sandbox) records(database, name string, table Table) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]map[string]interface{})
	}
	key := database + "." + name
	if rows, ok := s.data[key]; ok {
		return rows
	}

	h := fnv.New64a()
	h.Write([]byte(key))
	dg := NewDataGenerator(s.Seed+int64(h.Sum64()>>1), s.Logger)

	rows := make([]map[string]interface{}, table.Rows)
	for i := range rows {
		rows[i] = dg.GenerateRow(table.Columns)
	}
	s.data[key] = rows
	return rows
}

func (s *Sandbox) resolveTable(ref string) (string, string, Table, bool) {
	if database, name, found := strings.Cut(ref, "."); found {
		table, ok := s.Databases[database][name]
		return database, name, table, ok
	}

	databases := make([]string, 0, len(s.Databases))
	for database := range s.Databases {
		databases = append(databases, database)
	}
	sort.Strings(databases)
	for _, database := range databases {
		if table, ok := s.Databases[database][ref]; ok {
			return database, ref, table, true
		}
	}
	return "", "", Table{}, false
}

func (s *Sandbox) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &models.TransportError{Code: models.ErrCodeTimeout, Details: ctx.Err().Error(), Err: ctx.Err()}
	}
}

func hasColumn(table Table, name string) bool {
	for _, c := range table.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func firstWord(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func queryError(format string, args ...interface{}) *models.LookupResult {
	msg := fmt.Sprintf(format, args...)
	return &models.LookupResult{ErrorMsg: &msg}
}
