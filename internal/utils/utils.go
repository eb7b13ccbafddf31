package utils

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// SetupLogging configures the logging system. A nil output logs to stdout.
func SetupLogging(logLevel string, output io.Writer) *logrus.Logger {
	// Create a new logger
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("DATASET_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	// Parse log level
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	if output == nil {
		output = os.Stdout
	}

	// Configure logger
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(output)

	logger.Infof("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	// Load environment variables from .env file if it exists
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	// Check for required environment variables
	requiredVars := []string{"DATASET_HOST", "DATASET_USER"}
	var missingVars []string

	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	// Log all available DATASET_* environment variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "DATASET_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					// Mask password
					if parts[0] == "DATASET_PASSWORD" {
						logger.Debugf("%s=********", parts[0])
					} else {
						logger.Debugf("%s=%s", parts[0], parts[1])
					}
				}
			}
		}
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ValidateConnectionParams validates data source connection parameters
func ValidateConnectionParams(host, user, password, port string, logger *logrus.Logger) bool {
	if host == "" {
		logger.Error("Database host is required")
		return false
	}

	if user == "" {
		logger.Error("Database user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// PrintDatasetSummary prints the dataset definition chosen in the wizard
func PrintDatasetSummary(w io.Writer, draft *models.DraftDataset) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "DATASET SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if draft.Connection != nil {
		fmt.Fprintf(w, "Connection: %s\n", draft.Connection.Key())
	}
	fmt.Fprintf(w, "Type: %s (%s)\n", draft.DsType, draft.ImportType)
	fmt.Fprintf(w, "Acquisition mode: %s\n", draft.AcquisitionMode)

	if draft.AcquisitionMode == models.ModeTable {
		fmt.Fprintf(w, "Database: %s\n", draft.DatabaseName)
		fmt.Fprintf(w, "Table: %s\n", draft.TableName)
	} else if draft.DatabaseName != "" {
		fmt.Fprintf(w, "Database: %s\n", draft.DatabaseName)
	}
	fmt.Fprintf(w, "Query: %s\n", draft.QueryText)

	if draft.Selection != nil && draft.Selection.Headers != nil {
		columns := make([]string, len(draft.Selection.Headers))
		for i, h := range draft.Selection.Headers {
			columns[i] = fmt.Sprintf("%s %s", h.FieldName, h.DisplayType)
		}
		fmt.Fprintf(w, "Columns (%d): %s\n", len(columns), strings.Join(columns, ", "))
		fmt.Fprintf(w, "Preview rows: %d\n", len(draft.Selection.Rows))
	}

	if draft.OriginFlowID != "" {
		fmt.Fprintf(w, "Origin flow: %s\n", draft.OriginFlowID)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}
