package connector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// Supported implementors
const (
	ImplementorMySQL    = "MYSQL"
	ImplementorPostgres = "POSTGRESQL"
)

// PreviewRowLimit caps the rows fetched for a preview
const PreviewRowLimit = 100

// Connector is a live connection to one data source server
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect()
	ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error)
	Preview(ctx context.Context, query string, limit int) (*models.LookupResult, error)
	Implementor() string
	QuoteIdentifier(name string) string
	Placeholder(n int) string
}

// New creates the connector matching the implementor of conn
func New(conn models.Connection, logger *logrus.Logger) (Connector, error) {
	switch strings.ToUpper(conn.Implementor) {
	case ImplementorMySQL, "":
		return NewDatabaseConnector(conn, logger), nil
	case ImplementorPostgres, "POSTGRES":
		return NewPostgresConnector(conn, logger), nil
	default:
		return nil, fmt.Errorf("unsupported implementor %q", conn.Implementor)
	}
}

// IsQueryError reports whether err was raised by the server while running a
// statement, as opposed to a failed or dropped connection
func IsQueryError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

// previewSQL bounds query to limit rows. The newline keeps a trailing line
// comment from swallowing the closing paren.
func previewSQL(query string, limit int) string {
	query = strings.TrimSpace(query)
	query = strings.TrimRight(query, "; \t\n")
	if limit <= 0 {
		limit = PreviewRowLimit
	}
	return fmt.Sprintf("SELECT * FROM (%s\n) AS _preview LIMIT %d", query, limit)
}

// LogicalType maps a physical column type to the logical type shown when the
// physical one is unknown
func LogicalType(physical string) string {
	t := strings.ToUpper(physical)
	switch {
	case t == "" || t == models.UnknownType:
		return "STRING"
	case strings.Contains(t, "BOOL") || t == "BIT":
		return "BOOLEAN"
	case strings.Contains(t, "INT") || t == "YEAR" || t == "OID":
		return "INTEGER"
	case strings.Contains(t, "FLOAT") || strings.Contains(t, "DOUBLE") || strings.Contains(t, "DECIMAL") ||
		strings.Contains(t, "NUMERIC") || t == "REAL" || t == "MONEY":
		return "DOUBLE"
	case strings.Contains(t, "TIMESTAMP") || strings.Contains(t, "DATETIME") || t == "DATE" || strings.HasPrefix(t, "TIME"):
		return "TIMESTAMP"
	case strings.Contains(t, "JSON"):
		return "MAP"
	case strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") || t == "BYTEA":
		return "BINARY"
	default:
		return "STRING"
	}
}

func physicalType(name string) string {
	if name == "" {
		return models.UnknownType
	}
	return strings.ToUpper(name)
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
