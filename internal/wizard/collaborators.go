package wizard

import (
	"context"
	"time"

	"github.com/vitebski/dataset-wizard/pkg/models"
)

// Lookup resolves databases, tables and previews against a data source.
// Failed calls return *models.TransportError
type Lookup interface {
	ListDatabases(ctx context.Context, conn models.Connection) ([]string, error)
	ListTables(ctx context.Context, conn models.Connection, database string) ([]string, error)
	LookupPreview(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error)
}

// Notifier is the wizard navigation bus. Fire and forget
type Notifier interface {
	Notify(step string, payload interface{})
}

// GridOptions are passed through to the grid renderer
type GridOptions struct {
	SyncColumnCellResize bool
	MultiColumnSort      bool
	RowHeight            int
	NullCellStyle        bool
}

// Grid renders the preview
type Grid interface {
	Render(headers []models.ColumnHeader, rows []models.RowRecord, opts GridOptions)
	Destroy()
}

// AlertKind classifies alerts shown on the Surface
type AlertKind string

const (
	AlertError   AlertKind = "error"
	AlertWarning AlertKind = "warning"
	AlertInfo    AlertKind = "info"
)

// Surface shows the loading indicator and global alerts
type Surface interface {
	ShowLoading()
	HideLoading()
	ShowAlert(kind AlertKind, message string)
}

// Translator turns message codes into user-facing text
type Translator interface {
	Translate(code string) string
}

// DatasetChoice is the finalized acquisition choice handed to the wizard host
type DatasetChoice struct {
	Mode     models.AcquisitionMode
	Database string
	Table    string
	Query    string
}

// Listener receives the signals the step raises towards the wizard host
type Listener interface {
	AdvanceRequested(choice DatasetChoice)
	BackRequested()
	CloseRequested()
}

// Completion applies the outcome of background work on the event loop
type Completion func()

// Runner moves blocking work off the event loop. The Completion returned by work
// must be invoked on the event loop once work finishes
type Runner interface {
	Go(work func(ctx context.Context) Completion)
}

// Scheduler runs fn on the event loop after d unless cancel is called first
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}
