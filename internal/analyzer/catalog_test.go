package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/dataset-wizard/internal/connector"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// MockConnector is a mock implementation of connector.Connector
type MockConnector struct {
	ConnectFunc      func(ctx context.Context) error
	ExecuteQueryFunc func(query string, params ...interface{}) ([]map[string]interface{}, error)
	PreviewFunc      func(query string, limit int) (*models.LookupResult, error)
	Disconnected     int
	Placeholders     string
}

func (m *MockConnector) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	return nil
}

func (m *MockConnector) Disconnect() { m.Disconnected++ }

func (m *MockConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	return m.ExecuteQueryFunc(query, params...)
}

func (m *MockConnector) Preview(ctx context.Context, query string, limit int) (*models.LookupResult, error) {
	return m.PreviewFunc(query, limit)
}

func (m *MockConnector) Implementor() string { return connector.ImplementorMySQL }

func (m *MockConnector) QuoteIdentifier(name string) string { return "`" + name + "`" }

func (m *MockConnector) Placeholder(n int) string {
	if m.Placeholders != "" {
		return m.Placeholders
	}
	return "?"
}

func newTestCatalog(mock *MockConnector) (*Catalog, *int) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	opened := 0
	c := &Catalog{
		Open: func(conn models.Connection, logger *logrus.Logger) (connector.Connector, error) {
			opened++
			return mock, nil
		},
		Logger:       logger,
		PreviewLimit: 100,
	}
	return c, &opened
}

var testConn = models.Connection{ID: "c1", Implementor: "MYSQL", Hostname: "db", Port: "3306", Username: "root"}

func TestListDatabasesSkipsSystemSchemas(t *testing.T) {
	mock := &MockConnector{
		ExecuteQueryFunc: func(query string, params ...interface{}) ([]map[string]interface{}, error) {
			assert.Contains(t, query, "information_schema.schemata")
			return []map[string]interface{}{
				{"name": "information_schema"},
				{"name": "mysql"},
				{"name": "sales"},
				{"name": "shop"},
				{"name": "sys"},
			}, nil
		},
	}
	c, opened := newTestCatalog(mock)

	dbs, err := c.ListDatabases(context.Background(), testConn)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales", "shop"}, dbs)

	_, err = c.ListDatabases(context.Background(), testConn)
	require.NoError(t, err)
	assert.Equal(t, 1, *opened, "connector is reused for the same server")
}

func TestListTablesBindsDatabase(t *testing.T) {
	mock := &MockConnector{
		Placeholders: "$1",
		ExecuteQueryFunc: func(query string, params ...interface{}) ([]map[string]interface{}, error) {
			assert.Contains(t, query, "table_schema = $1")
			assert.Equal(t, []interface{}{"shop"}, params)
			return []map[string]interface{}{{"name": "users"}, {"name": "orders"}}, nil
		},
	}
	c, _ := newTestCatalog(mock)

	tables, err := c.ListTables(context.Background(), testConn, "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
}

func TestConnectFailureIsTransportError(t *testing.T) {
	mock := &MockConnector{
		ConnectFunc: func(ctx context.Context) error { return errors.New("dial tcp: connection refused") },
	}
	c, opened := newTestCatalog(mock)

	_, err := c.ListDatabases(context.Background(), testConn)
	var te *models.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, models.ErrCodeConnection, te.Code)
	assert.Equal(t, "dial tcp: connection refused", te.Error())

	_, _ = c.ListDatabases(context.Background(), testConn)
	assert.Equal(t, 2, *opened, "failed connectors are not cached")
}

func TestTablePreviewQuotesIdentifiers(t *testing.T) {
	mock := &MockConnector{
		PreviewFunc: func(query string, limit int) (*models.LookupResult, error) {
			assert.Equal(t, "SELECT * FROM `shop`.`users`", query)
			assert.Equal(t, 100, limit)
			return &models.LookupResult{Fields: []models.Field{{Name: "a"}}, Data: []map[string]interface{}{{"a": 1}}}, nil
		},
	}
	c, _ := newTestCatalog(mock)

	res, err := c.LookupPreview(context.Background(), models.LookupRequest{
		Connection: testConn,
		Database:   "shop",
		Query:      "users",
		Type:       models.LookupTable,
	})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
}

func TestQueryPreviewEmbedsStatementErrors(t *testing.T) {
	mock := &MockConnector{
		PreviewFunc: func(query string, limit int) (*models.LookupResult, error) {
			return nil, &mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"}
		},
	}
	c, _ := newTestCatalog(mock)

	res, err := c.LookupPreview(context.Background(), models.LookupRequest{
		Connection: testConn,
		Query:      "SELEC 1",
		Type:       models.LookupQuery,
	})
	require.NoError(t, err)
	require.NotNil(t, res.ErrorMsg)
	assert.True(t, strings.Contains(*res.ErrorMsg, "SQL syntax"))
	assert.Equal(t, 0, mock.Disconnected)
}

func TestTablePreviewFailureEvictsConnector(t *testing.T) {
	mock := &MockConnector{
		PreviewFunc: func(query string, limit int) (*models.LookupResult, error) {
			return nil, errors.New("invalid connection")
		},
	}
	c, opened := newTestCatalog(mock)

	req := models.LookupRequest{Connection: testConn, Database: "shop", Query: "users", Type: models.LookupTable}
	_, err := c.LookupPreview(context.Background(), req)
	var te *models.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, models.ErrCodeLookup, te.Code)
	assert.Equal(t, 1, mock.Disconnected)

	_, _ = c.LookupPreview(context.Background(), req)
	assert.Equal(t, 2, *opened)
}

func TestDeadlineIsTimeout(t *testing.T) {
	mock := &MockConnector{
		ExecuteQueryFunc: func(query string, params ...interface{}) ([]map[string]interface{}, error) {
			return nil, context.DeadlineExceeded
		},
	}
	c, _ := newTestCatalog(mock)

	_, err := c.ListTables(context.Background(), testConn, "shop")
	var te *models.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, models.ErrCodeTimeout, te.Code)
}

func TestRequestCredentialsOverrideConnection(t *testing.T) {
	conn := requestConnection(models.LookupRequest{
		Connection: testConn,
		Hostname:   "other",
		Password:   "pw",
	})
	assert.Equal(t, "other", conn.Hostname)
	assert.Equal(t, "pw", conn.Password)
	assert.Equal(t, "3306", conn.Port)
	assert.Equal(t, "c1", conn.ID)
}

func TestCloseDisconnectsAll(t *testing.T) {
	mock := &MockConnector{
		ExecuteQueryFunc: func(query string, params ...interface{}) ([]map[string]interface{}, error) {
			return nil, nil
		},
	}
	c, _ := newTestCatalog(mock)

	_, err := c.ListDatabases(context.Background(), testConn)
	require.NoError(t, err)
	c.Close()
	assert.Equal(t, 1, mock.Disconnected)
}
