package connector

import (
	"context"
	"database/sql"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// DatabaseConnector handles MySQL connections and query execution
type DatabaseConnector struct {
	Host     string
	User     string
	Password string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a new MySQL connector
func NewDatabaseConnector(conn models.Connection, logger *logrus.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Host:     defaultIfEmpty(conn.Hostname, getEnvOrDefault("DATASET_HOST", "localhost")),
		User:     defaultIfEmpty(conn.Username, getEnvOrDefault("DATASET_USER", "root")),
		Password: defaultIfEmpty(conn.Password, getEnvOrDefault("DATASET_PASSWORD", "")),
		Port:     defaultIfEmpty(conn.Port, getEnvOrDefault("DATASET_PORT", "3306")),
		Logger:   logger,
	}
}

// DSN builds the driver data source name. No default schema is selected since
// the wizard browses every database of the server.
func (dc *DatabaseConnector) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = dc.User
	cfg.Passwd = dc.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(dc.Host, dc.Port)
	cfg.ParseTime = true
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// Connect establishes a connection to the MySQL server
func (dc *DatabaseConnector) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", dc.DSN())
	if err != nil {
		dc.Logger.Errorf("Error connecting to MySQL server: %v", err)
		return err
	}

	// Test the connection
	err = db.PingContext(ctx)
	if err != nil {
		dc.Logger.Errorf("Error pinging MySQL server: %v", err)
		db.Close()
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to MySQL server: %s:%s", dc.Host, dc.Port)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Info("MySQL connection closed")
		}
		dc.DB = nil
	}
}

// Implementor names the server type
func (dc *DatabaseConnector) Implementor() string {
	return ImplementorMySQL
}

// QuoteIdentifier quotes a schema, table or column name with backticks
func (dc *DatabaseConnector) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Placeholder returns the n-th bind placeholder
func (dc *DatabaseConnector) Placeholder(n int) string {
	return "?"
}

// ExecuteQuery executes a SQL query and returns the results
func (dc *DatabaseConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if err := dc.ensureConnected(ctx); err != nil {
		return nil, err
	}

	rows, err := dc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	return dc.scanRows(rows, columns)
}

// Preview runs query bounded to limit rows and reports the result columns
func (dc *DatabaseConnector) Preview(ctx context.Context, query string, limit int) (*models.LookupResult, error) {
	if err := dc.ensureConnected(ctx); err != nil {
		return nil, err
	}

	rows, err := dc.DB.QueryContext(ctx, previewSQL(query, limit))
	if err != nil {
		dc.Logger.Errorf("Error executing preview query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		dc.Logger.Errorf("Error getting column types: %v", err)
		return nil, err
	}

	fields := make([]models.Field, len(columnTypes))
	columns := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		physical := physicalType(ct.DatabaseTypeName())
		fields[i] = models.Field{
			Name:        ct.Name(),
			Type:        physical,
			LogicalType: LogicalType(physical),
		}
		columns[i] = ct.Name()
	}

	data, err := dc.scanRows(rows, columns)
	if err != nil {
		return nil, err
	}

	return &models.LookupResult{Fields: fields, Data: data}, nil
}

func (dc *DatabaseConnector) scanRows(rows *sql.Rows, columns []string) ([]map[string]interface{}, error) {
	results := []map[string]interface{}{}

	for rows.Next() {
		// Create a slice of interface{} to hold the values
		values := make([]interface{}, len(columns))
		// Create a slice of pointers to the values
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			// Convert []byte to string for text fields
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

func (dc *DatabaseConnector) ensureConnected(ctx context.Context) error {
	if dc.DB == nil {
		return dc.Connect(ctx)
	}
	return nil
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
