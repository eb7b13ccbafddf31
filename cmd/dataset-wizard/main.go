package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/vitebski/dataset-wizard/internal/analyzer"
	"github.com/vitebski/dataset-wizard/internal/connector"
	"github.com/vitebski/dataset-wizard/internal/generator"
	"github.com/vitebski/dataset-wizard/internal/tui"
	"github.com/vitebski/dataset-wizard/internal/utils"
	"github.com/vitebski/dataset-wizard/internal/wizard"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// exitBack is returned when the user steps back to the connection step
const exitBack = 2

func main() {
	var (
		host        string
		user        string
		password    string
		port        string
		implementor string
		envFile     string
		logLevel    string
		logFile     string
		originFlow  string
		sandbox     bool
	)

	rootCmd := &cobra.Command{
		Use:   "dataset-wizard",
		Short: "Choose a table or query for a new imported dataset",
		Long: `Dataset Wizard

Interactive terminal step of the dataset creation wizard. Browse the databases
and tables of a MySQL or PostgreSQL server, or write a SQL query, preview the
result and continue with the chosen selection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging; the terminal belongs to the UI
			out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer out.Close()
			logger := utils.SetupLogging(logLevel, out)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, logger)

			// Get connection parameters from environment if not provided
			conn := resolveConnection(host, port, user, password, implementor)

			var lookup wizard.Lookup
			if sandbox {
				logger.Info("Using the sandbox data source")
				conn = models.Connection{ID: "sandbox", Implementor: "SANDBOX", Hostname: "sandbox"}
				lookup = generator.NewSandbox(time.Now().UnixNano(), logger)
			} else {
				// Validate connection parameters
				if !utils.ValidateConnectionParams(conn.Hostname, conn.Username, conn.Password, conn.Port, logger) {
					return fmt.Errorf("invalid connection parameters, see %s", logFile)
				}
				catalog := analyzer.NewCatalog(logger)
				defer catalog.Close()
				lookup = catalog
			}

			draft := &models.DraftDataset{
				Connection:   &conn,
				OriginFlowID: originFlow,
			}

			app, err := tui.NewApp(cmd.Context(), draft, lookup, logger)
			if err != nil {
				return err
			}

			program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
			if _, err := program.Run(); err != nil {
				logger.Errorf("Error running terminal UI: %v", err)
				return err
			}

			outcome := app.Outcome()
			logger.Infof("Dataset step finished: %s", outcome.Kind)
			switch outcome.Kind {
			case tui.OutcomeAdvance:
				utils.PrintDatasetSummary(cmd.OutOrStdout(), draft)
			case tui.OutcomeBack:
				return errBack
			}
			return nil
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&host, "host", "H", "", "Database host (default: localhost)")
	rootCmd.Flags().StringVarP(&user, "user", "u", "", "Database user")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "Database password")
	rootCmd.Flags().StringVarP(&port, "port", "P", "", "Database port (default: 3306 for MySQL, 5432 for PostgreSQL)")
	rootCmd.Flags().StringVarP(&implementor, "implementor", "i", "", "Server type: MYSQL or POSTGRESQL (default: MYSQL)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "dataset-wizard.log", "File the log is written to")
	rootCmd.Flags().StringVar(&originFlow, "origin-flow", "", "Flow that opened the wizard")
	rootCmd.Flags().BoolVarP(&sandbox, "sandbox", "s", false, "Browse generated sample data instead of a server")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errBack) {
			os.Exit(exitBack)
		}
		fmt.Println(err)
		os.Exit(1)
	}
}

var errBack = errors.New("returned to the connection step")

// resolveConnection fills unset flags from the environment, then from defaults
func resolveConnection(host, port, user, password, implementor string) models.Connection {
	if implementor == "" {
		implementor = os.Getenv("DATASET_IMPLEMENTOR")
		if implementor == "" {
			implementor = connector.ImplementorMySQL
		}
	}
	if host == "" {
		host = os.Getenv("DATASET_HOST")
		if host == "" {
			host = "localhost"
		}
	}
	if user == "" {
		user = os.Getenv("DATASET_USER")
	}
	if password == "" {
		password = os.Getenv("DATASET_PASSWORD")
	}
	if port == "" {
		port = os.Getenv("DATASET_PORT")
		if port == "" {
			port = defaultPort(implementor)
		}
	}

	return models.Connection{
		ID:          "cli",
		Implementor: strings.ToUpper(implementor),
		Hostname:    host,
		Port:        port,
		Username:    user,
		Password:    password,
	}
}

func defaultPort(implementor string) string {
	switch strings.ToUpper(implementor) {
	case connector.ImplementorPostgres, "POSTGRES":
		return "5432"
	default:
		return "3306"
	}
}
