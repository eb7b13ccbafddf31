package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/internal/connector"
	"github.com/vitebski/dataset-wizard/internal/utils"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// Opener creates an unconnected connector for a connection
type Opener func(conn models.Connection, logger *logrus.Logger) (connector.Connector, error)

// Catalog reads databases, tables and previews from live servers. Connectors
// are shared between calls that target the same server and account.
type Catalog struct {
	Open         Opener
	Logger       *logrus.Logger
	PreviewLimit int

	mu         sync.Mutex
	connectors map[string]connector.Connector
}

// NewCatalog creates a new catalog backed by connector.New
func NewCatalog(logger *logrus.Logger) *Catalog {
	return &Catalog{
		Open:         connector.New,
		Logger:       logger,
		PreviewLimit: utils.GetEnvInt("DATASET_PREVIEW_LIMIT", connector.PreviewRowLimit),
		connectors:   make(map[string]connector.Connector),
	}
}

var systemSchemas = map[string]bool{
	"information_schema": true,
	"mysql":              true,
	"performance_schema": true,
	"sys":                true,
	"pg_catalog":         true,
}

// ListDatabases lists the user databases of the server, or the schemas on PostgreSQL
func (c *Catalog) ListDatabases(ctx context.Context, conn models.Connection) ([]string, error) {
	db, err := c.connectorFor(ctx, conn)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT schema_name AS name
		FROM information_schema.schemata
		ORDER BY schema_name
	`
	result, err := db.ExecuteQuery(ctx, query)
	if err != nil {
		c.Logger.Errorf("Error listing databases: %v", err)
		return nil, c.transportError(conn, err)
	}

	var names []string
	for _, row := range result {
		name := fmt.Sprintf("%v", row["name"])
		if systemSchemas[strings.ToLower(name)] || strings.HasPrefix(name, "pg_toast") || strings.HasPrefix(name, "pg_temp") {
			continue
		}
		names = append(names, name)
	}

	c.Logger.Debugf("Found %d databases on %s", len(names), conn.Key())
	return names, nil
}

// ListTables lists the tables and views of database
func (c *Catalog) ListTables(ctx context.Context, conn models.Connection, database string) ([]string, error) {
	db, err := c.connectorFor(ctx, conn)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT table_name AS name
		FROM information_schema.tables
		WHERE table_schema = %s
		AND table_type IN ('BASE TABLE', 'VIEW')
	`, db.Placeholder(1))
	result, err := db.ExecuteQuery(ctx, query, database)
	if err != nil {
		c.Logger.Errorf("Error listing tables of %s: %v", database, err)
		return nil, c.transportError(conn, err)
	}

	names := make([]string, 0, len(result))
	for _, row := range result {
		names = append(names, fmt.Sprintf("%v", row["name"]))
	}
	sort.Strings(names)

	c.Logger.Debugf("Found %d tables in %s", len(names), database)
	return names, nil
}

// LookupPreview fetches a bounded preview. Statement errors of QUERY lookups
// come back inside the result rather than as a transport failure.
func (c *Catalog) LookupPreview(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	conn := requestConnection(req)
	db, err := c.connectorFor(ctx, conn)
	if err != nil {
		return nil, err
	}

	var query string
	switch req.Type {
	case models.LookupTable:
		query = fmt.Sprintf("SELECT * FROM %s.%s", db.QuoteIdentifier(req.Database), db.QuoteIdentifier(req.Query))
	case models.LookupQuery:
		query = req.Query
	default:
		return nil, &models.TransportError{Code: models.ErrCodeLookup, Details: fmt.Sprintf("unknown lookup type %q", req.Type)}
	}

	result, err := db.Preview(ctx, query, c.PreviewLimit)
	if err != nil {
		if req.Type == models.LookupQuery && connector.IsQueryError(err) {
			c.Logger.Warningf("Query failed: %v", err)
			msg := err.Error()
			return &models.LookupResult{ErrorMsg: &msg}, nil
		}
		c.Logger.Errorf("Error fetching preview: %v", err)
		return nil, c.transportError(conn, err)
	}

	c.Logger.Debugf("Preview returned %d rows and %d fields", len(result.Data), len(result.Fields))
	return result, nil
}

// Close disconnects every cached connector
func (c *Catalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, db := range c.connectors {
		db.Disconnect()
		delete(c.connectors, key)
	}
}

func (c *Catalog) connectorFor(ctx context.Context, conn models.Connection) (connector.Connector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connectors == nil {
		c.connectors = make(map[string]connector.Connector)
	}
	key := conn.Key()
	if db, ok := c.connectors[key]; ok {
		return db, nil
	}

	db, err := c.Open(conn, c.Logger)
	if err != nil {
		return nil, &models.TransportError{Code: models.ErrCodeConnection, Details: err.Error(), Err: err}
	}
	if err := db.Connect(ctx); err != nil {
		return nil, &models.TransportError{Code: models.ErrCodeConnection, Details: err.Error(), Err: err}
	}

	c.connectors[key] = db
	return db, nil
}

// transportError wraps err and drops the cached connector unless the server
// merely rejected the statement
func (c *Catalog) transportError(conn models.Connection, err error) error {
	code := models.ErrCodeLookup
	if errors.Is(err, context.DeadlineExceeded) {
		code = models.ErrCodeTimeout
	}
	if !connector.IsQueryError(err) {
		c.evict(conn)
	}
	return &models.TransportError{Code: code, Details: err.Error(), Err: err}
}

func (c *Catalog) evict(conn models.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if db, ok := c.connectors[conn.Key()]; ok {
		db.Disconnect()
		delete(c.connectors, conn.Key())
	}
}

// requestConnection applies the explicit credentials of req over its connection
func requestConnection(req models.LookupRequest) models.Connection {
	conn := req.Connection
	if req.Hostname != "" {
		conn.Hostname = req.Hostname
	}
	if req.Port != "" {
		conn.Port = req.Port
	}
	if req.Username != "" {
		conn.Username = req.Username
	}
	if req.Password != "" {
		conn.Password = req.Password
	}
	if req.Implementor != "" {
		conn.Implementor = req.Implementor
	}
	return conn
}
