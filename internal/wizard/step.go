package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// Wizard steps addressed on the navigation bus
const (
	StepDatasetName = "create-dataset-name"
	StepDBSelect    = "create-db-select"
	StepCloseCreate = "close-create"
)

// GridDrawDelay lets the host layout settle before the grid measures its area
const GridDrawDelay = 400 * time.Millisecond

// ErrNoConnection is returned when the draft carries no connection handle
var ErrNoConnection = errors.New("wizard: draft dataset has no connection")

// PreviewGridOptions are the options the preview grid is drawn with
var PreviewGridOptions = GridOptions{
	SyncColumnCellResize: true,
	MultiColumnSort:      true,
	RowHeight:            RowHeight,
	NullCellStyle:        true,
}

// StepState is the position of the step in the selection workflow
type StepState int

const (
	NoDatabaseSelected StepState = iota
	DatabaseSelectedNoTarget
	TargetSelectedLoading
	TargetSelectedReady
	TargetSelectedEmpty
	TargetSelectedError
)

func (s StepState) String() string {
	switch s {
	case NoDatabaseSelected:
		return "NoDatabaseSelected"
	case DatabaseSelectedNoTarget:
		return "DatabaseSelected_NoTarget"
	case TargetSelectedLoading:
		return "TargetSelected_Loading"
	case TargetSelectedReady:
		return "TargetSelected_Ready"
	case TargetSelectedEmpty:
		return "TargetSelected_Empty"
	case TargetSelectedError:
		return "TargetSelected_Error"
	default:
		return fmt.Sprintf("StepState(%d)", int(s))
	}
}

// QueryStatus is the banner shown under the query editor after a run
type QueryStatus struct {
	Shown   bool
	Success bool
	Message string
}

// Deps are the collaborators of a Step. Listener, Notifier, Translator and
// Logger are optional
type Deps struct {
	Lookup     Lookup
	Grid       Grid
	Surface    Surface
	Runner     Runner
	Scheduler  Scheduler
	Notifier   Notifier
	Listener   Listener
	Translator Translator
	Logger     *logrus.Logger
}

// Step drives the "choose table or query" page of the dataset wizard.
// All methods must be called from the event loop that applies Runner
// completions and Scheduler callbacks
type Step struct {
	Draft     *models.DraftDataset
	Databases *SearchableList
	Tables    *SearchableList

	lookup     Lookup
	grid       Grid
	surface    Surface
	runner     Runner
	scheduler  Scheduler
	notifier   Notifier
	listener   Listener
	translator Translator
	logger     *logrus.Logger

	mode    *ModeController
	fetcher *PreviewFetcher

	state            StepState
	advanceAllowed   bool
	databaseListOpen bool
	tableListOpen    bool
	databaseSearch   string
	tableSearch      string
	tableListEmpty   bool
	gridCleared      bool
	queryStatus      QueryStatus
	tablesGeneration uint64
	queryEdits       uint64
	runEdits         uint64
	cancelDraw       func()
}

// NewStep creates the step for draft
func NewStep(draft *models.DraftDataset, deps Deps) (*Step, error) {
	if draft == nil || draft.Connection == nil {
		return nil, ErrNoConnection
	}
	switch {
	case deps.Lookup == nil:
		return nil, fmt.Errorf("wizard: lookup is required")
	case deps.Grid == nil:
		return nil, fmt.Errorf("wizard: grid is required")
	case deps.Surface == nil:
		return nil, fmt.Errorf("wizard: surface is required")
	case deps.Runner == nil:
		return nil, fmt.Errorf("wizard: runner is required")
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("wizard: scheduler is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Listener == nil {
		deps.Listener = nopListener{}
	}
	if deps.Translator == nil {
		deps.Translator = MapTranslator(DefaultMessages)
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	s := &Step{
		Draft:      draft,
		Databases:  NewSearchableList(),
		Tables:     NewSearchableList(),
		lookup:     deps.Lookup,
		grid:       deps.Grid,
		surface:    deps.Surface,
		runner:     deps.Runner,
		scheduler:  deps.Scheduler,
		notifier:   deps.Notifier,
		listener:   deps.Listener,
		translator: deps.Translator,
		logger:     deps.Logger,
	}
	s.fetcher = NewPreviewFetcher(deps.Lookup, deps.Runner, deps.Translator, deps.Surface, deps.Logger)
	s.mode = NewModeController(draft, deps.Logger, s.resetForModeSwitch)
	return s, nil
}

// State returns the workflow state
func (s *Step) State() StepState { return s.state }

// AdvanceAllowed reports whether the next step may be opened
func (s *Step) AdvanceAllowed() bool { return s.advanceAllowed }

// Preview returns the status of the latest preview fetch
func (s *Step) Preview() models.PreviewState { return s.fetcher.State() }

// QueryStatus returns the query banner
func (s *Step) QueryStatus() QueryStatus { return s.queryStatus }

// Mode returns the acquisition mode
func (s *Step) Mode() models.AcquisitionMode { return s.mode.Mode() }

// DatabaseListOpen reports whether the database dropdown is shown
func (s *Step) DatabaseListOpen() bool { return s.databaseListOpen }

// TableListOpen reports whether the table dropdown is shown
func (s *Step) TableListOpen() bool { return s.tableListOpen }

// DatabaseSearch returns the database filter text
func (s *Step) DatabaseSearch() string { return s.databaseSearch }

// TableSearch returns the table filter text
func (s *Step) TableSearch() string { return s.tableSearch }

// TableListEmpty reports whether the chosen database has no tables
func (s *Step) TableListEmpty() bool { return s.tableListEmpty }

// GridCleared reports whether the last preview left no grid to show
func (s *Step) GridCleared() bool { return s.gridCleared }

// DatabaseView is the database list as currently filtered
func (s *Step) DatabaseView() []models.SelectableItem {
	return s.Databases.FilteredView(s.databaseSearch)
}

// TableView is the table list as currently filtered
func (s *Step) TableView() []models.SelectableItem {
	return s.Tables.FilteredView(s.tableSearch)
}

// Open prepares the draft and loads the database list. A draft that comes back
// from a later step is restored from its selection snapshot
func (s *Step) Open() {
	if s.Draft.Selection == nil {
		s.Draft.Selection = &models.SelectionSnapshot{}
	}
	s.Draft.TableName = ""
	s.Draft.DatabaseName = ""
	s.Draft.QueryText = ""
	s.Draft.DsType = models.DsTypeImported
	s.Draft.AcquisitionMode = models.ModeTable
	s.Draft.ImportType = models.ImportTypeDB
	s.state = NoDatabaseSelected

	s.loadDatabases()
}

func (s *Step) loadDatabases() {
	conn := *s.Draft.Connection
	s.surface.ShowLoading()
	s.runner.Go(func(ctx context.Context) Completion {
		databases, err := s.lookup.ListDatabases(ctx, conn)
		return func() {
			s.surface.HideLoading()
			if err != nil {
				s.logger.Errorf("Error listing databases: %v", err)
				s.surface.ShowAlert(AlertError, localizeError(err, s.translator))
				return
			}
			s.Databases.SetItems(databases)
			s.logger.Debugf("Loaded %d databases", len(databases))

			if s.Draft.Selection.HasPreview() {
				s.restore()
			} else {
				s.ShowDatabaseList()
			}
		}
	})
}

func (s *Step) restore() {
	snap := s.Draft.Selection
	if snap.Query != "" {
		s.Draft.AcquisitionMode = models.ModeQuery
		s.Draft.QueryText = snap.Query
	} else {
		s.Draft.AcquisitionMode = models.ModeTable
		s.Draft.DatabaseName = snap.Database
		s.Draft.TableName = snap.Table
		s.gridCleared = false
		s.loadTables(snap.Database)
	}

	if snap.Headers == nil || snap.Rows == nil {
		s.state = s.idleState()
		return
	}
	s.logger.Infof("Restoring %s selection", s.Draft.AcquisitionMode)
	s.state = TargetSelectedReady
	s.drawGrid(snap.Headers, snap.Rows)
}

func (s *Step) loadTables(database string) {
	s.tablesGeneration++
	gen := s.tablesGeneration

	s.Tables.SetItems(nil)
	s.Draft.TableName = ""

	conn := *s.Draft.Connection
	s.surface.ShowLoading()
	s.runner.Go(func(ctx context.Context) Completion {
		tables, err := s.lookup.ListTables(ctx, conn, database)
		return func() {
			s.surface.HideLoading()
			if gen != s.tablesGeneration {
				s.logger.Debugf("Discarding stale table list for database %s", database)
				return
			}
			if err != nil {
				s.logger.Errorf("Error listing tables of %s: %v", database, err)
				s.Tables.SetItems(nil)
				s.surface.ShowAlert(AlertError, localizeError(err, s.translator))
				return
			}
			if len(tables) == 0 {
				s.Tables.SetItems(nil)
				s.Draft.TableName = ""
				s.Draft.Selection.Table = ""
				s.tableListEmpty = true
				return
			}
			s.Tables.SetItems(tables)
			if s.Draft.Selection.Table != "" {
				s.Draft.TableName = s.Draft.Selection.Table
			}
			s.tableListEmpty = false
		}
	})
}

// ShowDatabaseList opens the database dropdown with an empty search
func (s *Step) ShowDatabaseList() {
	s.databaseListOpen = true
	s.tableListOpen = false
	s.databaseSearch = ""
	s.Databases.ClearSelectionMarks()
}

// ShowTableList opens the table dropdown with an empty search
func (s *Step) ShowTableList() {
	s.tableListOpen = true
	s.databaseListOpen = false
	s.tableSearch = ""
	s.Tables.ClearSelectionMarks()
}

// CloseLists closes both dropdowns
func (s *Step) CloseLists() {
	s.databaseListOpen = false
	s.tableListOpen = false
}

// SetDatabaseSearch filters the database dropdown
func (s *Step) SetDatabaseSearch(text string) {
	s.databaseSearch = text
}

// SetTableSearch filters the table dropdown
func (s *Step) SetTableSearch(text string) {
	s.tableSearch = text
}

// NavigateDatabases moves the database selection, opening the dropdown if needed
func (s *Step) NavigateDatabases(dir Direction) (int, bool) {
	if !s.databaseListOpen {
		s.databaseListOpen = true
		s.tableListOpen = false
	}
	_, offset, ok := s.Databases.Navigate(dir, s.DatabaseView())
	return offset, ok
}

// NavigateTables moves the table selection, opening the dropdown if needed
func (s *Step) NavigateTables(dir Direction) (int, bool) {
	if !s.tableListOpen {
		s.tableListOpen = true
		s.databaseListOpen = false
	}
	_, offset, ok := s.Tables.Navigate(dir, s.TableView())
	return offset, ok
}

// ActivateDatabase chooses the selected database, if any
func (s *Step) ActivateDatabase() bool {
	item, ok := s.Databases.ActivateSelected(s.DatabaseView())
	if ok {
		s.ChooseDatabase(item)
	}
	return ok
}

// ActivateTable chooses the selected table, if any
func (s *Step) ActivateTable() bool {
	item, ok := s.Tables.ActivateSelected(s.TableView())
	if ok {
		s.ChooseTable(item)
	}
	return ok
}

// HoverDatabase forwards a mouse enter/leave on the database dropdown
func (s *Step) HoverDatabase(pos int, enter bool) {
	s.Databases.Hover(s.DatabaseView(), pos, enter)
}

// HoverTable forwards a mouse enter/leave on the table dropdown
func (s *Step) HoverTable(pos int, enter bool) {
	s.Tables.Hover(s.TableView(), pos, enter)
}

// ChooseDatabase commits a database and loads its tables
func (s *Step) ChooseDatabase(item models.SelectableItem) {
	s.databaseListOpen = false
	s.cancelPendingDraw()
	s.grid.Destroy()

	s.Draft.DatabaseName = item.Label
	s.Draft.Selection.Database = item.Label
	s.Draft.Selection.Table = ""
	s.Draft.Selection.Headers = nil
	s.Draft.Selection.Rows = nil

	s.advanceAllowed = false
	s.queryStatus = QueryStatus{}
	s.fetcher.Invalidate()
	s.loadTables(item.Label)
	s.Databases.ClearSelectionMarks()

	s.state = DatabaseSelectedNoTarget
	s.logger.Infof("Database selected: %s", item.Label)
}

// ChooseTable commits a table and fetches its preview
func (s *Step) ChooseTable(item models.SelectableItem) {
	s.tableListOpen = false
	s.cancelPendingDraw()

	database := s.Draft.DatabaseName
	s.Draft.QueryText = fmt.Sprintf("SELECT * FROM %s.%s", database, item.Label)
	s.Draft.TableName = item.Label
	s.Draft.Selection.Database = database
	s.Draft.Selection.Table = item.Label
	s.Tables.ClearSelectionMarks()

	s.advanceAllowed = false
	s.runEdits = s.queryEdits
	s.state = TargetSelectedLoading
	s.logger.Infof("Table selected: %s.%s", database, item.Label)

	s.fetcher.FetchTablePreview(*s.Draft.Connection, database, item.Label, s.onTablePreview)
}

func (s *Step) onTablePreview(result PreviewResult) {
	switch result.State.Status {
	case models.PreviewReady:
		s.acceptPreview(result)
	case models.PreviewEmpty:
		s.logger.Infof("Table %s returned no rows", s.Draft.TableName)
		s.clearPreview()
		s.state = TargetSelectedEmpty
	default:
		s.logger.Errorf("Error fetching preview of table %s: %v", s.Draft.TableName, result.Err)
		s.clearPreview()
		s.state = TargetSelectedError
		s.surface.ShowAlert(AlertError, result.State.ErrorMessage)
	}
}

// RunQuery runs the query text and fetches its preview. Blank text is ignored
func (s *Step) RunQuery() {
	if strings.TrimSpace(s.Draft.QueryText) == "" {
		return
	}

	s.queryStatus.Message = ""
	s.cancelPendingDraw()
	s.grid.Destroy()

	s.Draft.Selection.Query = s.Draft.QueryText
	s.advanceAllowed = false
	s.runEdits = s.queryEdits
	s.state = TargetSelectedLoading

	s.fetcher.FetchQueryPreview(*s.Draft.Connection, s.Draft.QueryText, s.onQueryPreview)
}

func (s *Step) onQueryPreview(result PreviewResult) {
	s.queryStatus.Shown = true
	switch result.State.Status {
	case models.PreviewReady:
		s.queryStatus.Success = true
		s.acceptPreview(result)
	case models.PreviewEmpty:
		s.queryStatus.Success = true
		s.clearPreview()
		s.state = TargetSelectedEmpty
	default:
		// Query failures stay on the banner, never on the global alert
		s.logger.Warningf("Query failed: %s", result.State.ErrorMessage)
		s.queryStatus.Success = false
		s.queryStatus.Message = result.State.ErrorMessage
		s.clearPreview()
		s.state = TargetSelectedError
	}
}

// EditQueryText stores edited query text. Any change invalidates the last run
func (s *Step) EditQueryText(text string) {
	if text == s.Draft.QueryText {
		return
	}
	s.Draft.QueryText = text
	s.queryEdits++
	if s.advanceAllowed {
		s.advanceAllowed = false
	}
}

// SwitchMode moves between table and query acquisition
func (s *Step) SwitchMode(mode models.AcquisitionMode) {
	s.mode.SwitchMode(mode)
}

func (s *Step) resetForModeSwitch() {
	s.queryStatus = QueryStatus{}
	s.CloseLists()
	s.cancelPendingDraw()
	s.grid.Destroy()
	s.fetcher.Invalidate()
	s.Tables.ClearSelectionMarks()
	s.advanceAllowed = false
	s.state = s.idleState()
}

// Advance opens the naming step when a preview is ready
func (s *Step) Advance() bool {
	if !s.advanceAllowed {
		return false
	}
	choice := DatasetChoice{
		Mode:     s.Draft.AcquisitionMode,
		Database: s.Draft.DatabaseName,
		Table:    s.Draft.TableName,
		Query:    s.Draft.QueryText,
	}
	s.logger.Infof("Advancing with %s dataset", choice.Mode)
	s.listener.AdvanceRequested(choice)
	s.notifier.Notify(StepDatasetName, nil)
	return true
}

// HandleEnter advances unless a dropdown is open
func (s *Step) HandleEnter() bool {
	if s.databaseListOpen || s.tableListOpen {
		return false
	}
	return s.Advance()
}

// GoBack returns to the data connection step
func (s *Step) GoBack() {
	s.listener.BackRequested()
	s.notifier.Notify(StepDBSelect, nil)
}

// RequestClose abandons the wizard
func (s *Step) RequestClose() {
	if s.Draft.OriginFlowID != "" {
		s.Draft.OriginFlowID = ""
	}
	s.cancelPendingDraw()
	s.fetcher.Invalidate()
	s.tablesGeneration++
	s.listener.CloseRequested()
	s.notifier.Notify(StepCloseCreate, nil)
}

func (s *Step) acceptPreview(result PreviewResult) {
	s.Draft.Selection.Headers = result.Headers
	s.Draft.Selection.Rows = result.Rows
	s.gridCleared = false
	s.state = TargetSelectedReady
	s.drawGrid(result.Headers, result.Rows)
}

func (s *Step) clearPreview() {
	s.gridCleared = true
	s.cancelPendingDraw()
	s.grid.Destroy()
	s.advanceAllowed = false
	s.Draft.Selection.Headers = nil
	s.Draft.Selection.Rows = nil
}

func (s *Step) drawGrid(headers []models.ColumnHeader, rows []models.RowRecord) {
	s.cancelPendingDraw()
	// Text edited since the run was issued was never previewed
	edits := s.runEdits
	s.cancelDraw = s.scheduler.After(GridDrawDelay, func() {
		s.cancelDraw = nil
		s.grid.Render(headers, rows, PreviewGridOptions)
		if edits == s.queryEdits {
			s.advanceAllowed = true
		}
	})
}

func (s *Step) cancelPendingDraw() {
	if s.cancelDraw != nil {
		s.cancelDraw()
		s.cancelDraw = nil
	}
}

func (s *Step) idleState() StepState {
	if s.Draft.DatabaseName == "" {
		return NoDatabaseSelected
	}
	return DatabaseSelectedNoTarget
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, interface{}) {}

type nopListener struct{}

func (nopListener) AdvanceRequested(DatasetChoice) {}
func (nopListener) BackRequested()                 {}
func (nopListener) CloseRequested()                {}
