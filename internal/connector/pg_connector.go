package connector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// PostgresConnector handles PostgreSQL connections. The wizard "database" maps
// to a schema of the connected database.
type PostgresConnector struct {
	Host     string
	User     string
	Password string
	Port     string
	Database string
	URL      string
	SSLMode  string
	Pool     *pgxpool.Pool
	Logger   *logrus.Logger
}

// NewPostgresConnector creates a new PostgreSQL connector
func NewPostgresConnector(conn models.Connection, logger *logrus.Logger) *PostgresConnector {
	return &PostgresConnector{
		Host:     defaultIfEmpty(conn.Hostname, getEnvOrDefault("DATASET_HOST", "localhost")),
		User:     defaultIfEmpty(conn.Username, getEnvOrDefault("DATASET_USER", "postgres")),
		Password: defaultIfEmpty(conn.Password, getEnvOrDefault("DATASET_PASSWORD", "")),
		Port:     defaultIfEmpty(conn.Port, getEnvOrDefault("DATASET_PORT", "5432")),
		Database: getEnvOrDefault("DATASET_PG_DATABASE", "postgres"),
		URL:      conn.URL,
		SSLMode:  getEnvOrDefault("DATASET_PG_SSLMODE", "prefer"),
		Logger:   logger,
	}
}

// ConnectionString builds the pgx connection string. An explicit URL wins.
func (pc *PostgresConnector) ConnectionString() string {
	if pc.URL != "" {
		return pc.URL
	}
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(pc.User),
		url.QueryEscape(pc.Password),
		pc.Host,
		pc.Port,
		url.QueryEscape(pc.Database),
		pc.SSLMode,
	)
}

// Connect opens the pool and verifies the server answers
func (pc *PostgresConnector) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, pc.ConnectionString())
	if err != nil {
		pc.Logger.Errorf("Error connecting to PostgreSQL: %v", err)
		return fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pc.Logger.Errorf("Error pinging PostgreSQL: %v", err)
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	pc.Pool = pool
	pc.Logger.Infof("Connected to PostgreSQL server: %s:%s", pc.Host, pc.Port)
	return nil
}

// Disconnect closes the pool
func (pc *PostgresConnector) Disconnect() {
	if pc.Pool != nil {
		pc.Pool.Close()
		pc.Pool = nil
		pc.Logger.Info("PostgreSQL connection closed")
	}
}

// Implementor names the server type
func (pc *PostgresConnector) Implementor() string {
	return ImplementorPostgres
}

// QuoteIdentifier quotes a schema, table or column name with double quotes
func (pc *PostgresConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the n-th bind placeholder
func (pc *PostgresConnector) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// ExecuteQuery executes a SQL query and returns the results
func (pc *PostgresConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	result, err := pc.query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Preview runs query bounded to limit rows and reports the result columns
func (pc *PostgresConnector) Preview(ctx context.Context, query string, limit int) (*models.LookupResult, error) {
	return pc.query(ctx, previewSQL(query, limit))
}

func (pc *PostgresConnector) query(ctx context.Context, query string, params ...interface{}) (*models.LookupResult, error) {
	if pc.Pool == nil {
		if err := pc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	rows, err := pc.Pool.Query(ctx, query, params...)
	if err != nil {
		pc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	fields := make([]models.Field, len(fieldDescs))
	for i, fd := range fieldDescs {
		physical := pgTypeNameFromOID(fd.DataTypeOID)
		fields[i] = models.Field{
			Name:        fd.Name,
			Type:        physical,
			LogicalType: LogicalType(physical),
		}
	}

	data := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			pc.Logger.Errorf("Error reading row values: %v", err)
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		data = append(data, row)
	}

	if err := rows.Err(); err != nil {
		pc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return &models.LookupResult{Fields: fields, Data: data}, nil
}

// pgTypeNameFromOID names the built-in types; anything else is unknown to the grid
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 18:
		return "CHAR"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 26:
		return "OID"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 790:
		return "MONEY"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	default:
		return models.UnknownType
	}
}
