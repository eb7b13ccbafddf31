package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer

	// Test with default log level
	logger := SetupLogging("", &buf)
	if logger == nil {
		t.Error("Expected logger to be created, got nil")
	}

	// Test with specific log level
	logger = SetupLogging("debug", &buf)
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("warn", &buf)
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level to be warn, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid", &buf)
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}

	if !strings.Contains(buf.String(), "Logging configured with level: info") {
		t.Errorf("Expected log output to be written to the given writer, got %q", buf.String())
	}
}

func TestSetupLoggingFromEnvironment(t *testing.T) {
	t.Setenv("DATASET_LOG_LEVEL", "error")
	logger := SetupLogging("", &bytes.Buffer{})
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level to be error, got %s", logger.Level)
	}
}

func TestGetEnvInt(t *testing.T) {
	// Test with environment variable set
	t.Setenv("TEST_ENV_INT", "42")
	value := GetEnvInt("TEST_ENV_INT", 10)
	if value != 42 {
		t.Errorf("Expected value to be 42, got %d", value)
	}

	// Test with environment variable not set
	os.Unsetenv("TEST_ENV_INT")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default), got %d", value)
	}

	// Test with invalid integer
	t.Setenv("TEST_ENV_INT", "not-an-int")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default) for invalid input, got %d", value)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	t.Setenv("DATASET_HOST", "")
	t.Setenv("DATASET_USER", "")

	missing := filepath.Join(t.TempDir(), ".env")
	if LoadEnvironmentVariables(missing, logger) {
		t.Error("Expected loading to report missing variables")
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "DATASET_HOST=db.example\nDATASET_USER=reader\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	// godotenv does not override variables that are already set
	os.Unsetenv("DATASET_HOST")
	os.Unsetenv("DATASET_USER")
	if !LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected loading to succeed")
	}
	if got := os.Getenv("DATASET_HOST"); got != "db.example" {
		t.Errorf("Expected DATASET_HOST to be db.example, got %s", got)
	}
}

func TestValidateConnectionParams(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	// Test with valid parameters
	valid := ValidateConnectionParams("localhost", "user", "password", "3306", logger)
	if !valid {
		t.Error("Expected validation to pass with valid parameters")
	}

	// Test with missing host
	valid = ValidateConnectionParams("", "user", "password", "3306", logger)
	if valid {
		t.Error("Expected validation to fail with missing host")
	}

	// Test with missing user
	valid = ValidateConnectionParams("localhost", "", "password", "3306", logger)
	if valid {
		t.Error("Expected validation to fail with missing user")
	}

	// Test with invalid port
	valid = ValidateConnectionParams("localhost", "user", "password", "not-a-port", logger)
	if valid {
		t.Error("Expected validation to fail with invalid port")
	}

	// Empty password is allowed
	valid = ValidateConnectionParams("localhost", "user", "", "3306", logger)
	if !valid {
		t.Error("Expected validation to pass with empty password")
	}
}

func TestPrintDatasetSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintDatasetSummary(&buf, &models.DraftDataset{
		Connection:      &models.Connection{Implementor: "MYSQL", Hostname: "db", Port: "3306", Username: "root"},
		DatabaseName:    "shop",
		TableName:       "users",
		QueryText:       "SELECT * FROM shop.users",
		AcquisitionMode: models.ModeTable,
		DsType:          models.DsTypeImported,
		ImportType:      models.ImportTypeDB,
		Selection: &models.SelectionSnapshot{
			Headers: []models.ColumnHeader{{FieldName: "name", DisplayType: "VARCHAR"}},
			Rows:    []models.RowRecord{{"name": "a", "id": 0}, {"name": "b", "id": 1}},
		},
	})

	out := buf.String()
	for _, want := range []string{"DATASET SUMMARY", "Table: users", "Columns (1): name VARCHAR", "Preview rows: 2", "mysql://root@db:3306"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, out)
		}
	}
}
