package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/internal/render"
	"github.com/vitebski/dataset-wizard/internal/wizard"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// MaxVisibleItems is the number of dropdown rows shown at once
const MaxVisibleItems = 8

// Focus is the input that receives typed keys
type Focus int

const (
	FocusDatabase Focus = iota
	FocusTable
	FocusQuery
)

// listRegion is where a dropdown's rows were drawn in the last view
type listRegion struct {
	top   int
	count int
}

// App hosts the dataset step in a terminal
type App struct {
	step    *wizard.Step
	loop    *Loop
	surface *Surface
	outcome *Outcome
	grid    *render.TableGrid
	logger  *logrus.Logger

	keys        KeyMap
	help        help.Model
	dbSearch    textinput.Model
	tableSearch textinput.Model
	query       textarea.Model
	spinner     spinner.Model
	preview     viewport.Model

	focus       Focus
	dbScroll    int
	tableScroll int
	dbRegion    listRegion
	tableRegion listRegion
	hovering    bool
	width       int
	height      int
}

// NewApp creates the terminal front end for draft
func NewApp(ctx context.Context, draft *models.DraftDataset, lookup wizard.Lookup, logger *logrus.Logger) (*App, error) {
	loop := NewLoop(ctx)
	surface := &Surface{Logger: logger}
	outcome := &Outcome{Logger: logger}
	grid := render.NewTableGrid(logger)

	step, err := wizard.NewStep(draft, wizard.Deps{
		Lookup:    lookup,
		Grid:      grid,
		Surface:   surface,
		Runner:    loop,
		Scheduler: loop,
		Notifier:  outcome,
		Listener:  outcome,
		Logger:    logger,
	})
	if err != nil {
		logger.Errorf("Error creating dataset step: %v", err)
		return nil, err
	}

	dbSearch := textinput.New()
	dbSearch.Prompt = "> "
	dbSearch.Placeholder = "search databases"

	tableSearch := textinput.New()
	tableSearch.Prompt = "> "
	tableSearch.Placeholder = "search tables"

	query := textarea.New()
	query.Placeholder = "SELECT ..."
	query.ShowLineNumbers = false
	query.SetHeight(4)
	query.SetWidth(80)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return &App{
		step:        step,
		loop:        loop,
		surface:     surface,
		outcome:     outcome,
		grid:        grid,
		logger:      logger,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		dbSearch:    dbSearch,
		tableSearch: tableSearch,
		query:       query,
		spinner:     s,
		preview:     viewport.New(80, 12),
	}, nil
}

// Step returns the hosted step
func (a *App) Step() *wizard.Step { return a.step }

// Outcome returns how the step was left
func (a *App) Outcome() *Outcome { return a.outcome }

// Focused returns the focused input
func (a *App) Focused() Focus { return a.focus }

// Init opens the step (Bubble Tea Init)
func (a *App) Init() tea.Cmd {
	cmd := a.open()
	return tea.Batch(a.loop.Cmd(), a.spinner.Tick, cmd)
}

func (a *App) open() tea.Cmd {
	a.step.Open()
	cmd := a.applyFocus()
	a.sync()
	return cmd
}

// Update applies a message (Bubble Tea Update)
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	if a.outcome.Done() {
		a.loop.Stop()
		return a, tea.Quit
	}
	return a, tea.Batch(cmd, a.loop.Cmd())
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case completionMsg:
		if msg.apply != nil {
			msg.apply()
		}

	case timerMsg:
		a.loop.fire(msg.id)

	case spinner.TickMsg:
		a.spinner, cmd = a.spinner.Update(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.query.SetWidth(msg.Width - 4)
		a.preview.Width = msg.Width - 2
		a.preview.Height = max(msg.Height-24, 6)
		a.help.Width = msg.Width

	case tea.MouseMsg:
		a.handleMouse(msg)

	case tea.KeyMsg:
		a.surface.DismissAlert()
		cmd = a.handleKey(msg)
	}

	a.sync()
	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.step.RequestClose()
		return nil

	case key.Matches(msg, a.keys.Back):
		if a.step.DatabaseListOpen() || a.step.TableListOpen() {
			a.step.CloseLists()
			return nil
		}
		a.step.GoBack()
		return nil

	case key.Matches(msg, a.keys.SwitchMode):
		if a.step.Mode() == models.ModeTable {
			a.step.SwitchMode(models.ModeQuery)
			if a.focus == FocusTable {
				a.focus = FocusQuery
			}
		} else {
			a.step.SwitchMode(models.ModeTable)
			if a.focus == FocusQuery {
				a.focus = FocusTable
			}
		}
		return a.applyFocus()

	case key.Matches(msg, a.keys.NextField):
		a.step.CloseLists()
		if a.focus == FocusDatabase {
			a.focus = a.targetFocus()
		} else {
			a.focus = FocusDatabase
		}
		return a.applyFocus()

	case key.Matches(msg, a.keys.Run):
		if a.step.Mode() == models.ModeQuery {
			a.step.RunQuery()
		}
		return nil

	case key.Matches(msg, a.keys.Next):
		a.step.Advance()
		return nil

	case key.Matches(msg, a.keys.PageUp), key.Matches(msg, a.keys.PageDown):
		var cmd tea.Cmd
		a.preview, cmd = a.preview.Update(msg)
		return cmd

	case key.Matches(msg, a.keys.Up), key.Matches(msg, a.keys.Down):
		dir := wizard.Down
		if key.Matches(msg, a.keys.Up) {
			dir = wizard.Up
		}
		switch a.focus {
		case FocusDatabase:
			if offset, ok := a.step.NavigateDatabases(dir); ok {
				a.dbScroll = scrollTo(offset/wizard.RowHeight, a.dbScroll)
			}
		case FocusTable:
			if offset, ok := a.step.NavigateTables(dir); ok {
				a.tableScroll = scrollTo(offset/wizard.RowHeight, a.tableScroll)
			}
		case FocusQuery:
			var cmd tea.Cmd
			a.query, cmd = a.query.Update(msg)
			return cmd
		}
		return nil

	case key.Matches(msg, a.keys.Enter):
		switch a.focus {
		case FocusDatabase:
			if a.step.DatabaseListOpen() {
				if a.step.ActivateDatabase() {
					a.focus = a.targetFocus()
					return a.applyFocus()
				}
				return nil
			}
		case FocusTable:
			if a.step.TableListOpen() {
				a.step.ActivateTable()
				return nil
			}
		case FocusQuery:
			var cmd tea.Cmd
			a.query, cmd = a.query.Update(msg)
			a.step.EditQueryText(a.query.Value())
			return cmd
		}
		a.step.HandleEnter()
		return nil
	}

	return a.handleTextInput(msg)
}

func (a *App) handleTextInput(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case FocusDatabase:
		before := a.dbSearch.Value()
		a.dbSearch, cmd = a.dbSearch.Update(msg)
		if value := a.dbSearch.Value(); value != before {
			if !a.step.DatabaseListOpen() {
				a.step.ShowDatabaseList()
			}
			a.step.SetDatabaseSearch(value)
			a.dbScroll = 0
		}
	case FocusTable:
		before := a.tableSearch.Value()
		a.tableSearch, cmd = a.tableSearch.Update(msg)
		if value := a.tableSearch.Value(); value != before {
			if !a.step.TableListOpen() {
				a.step.ShowTableList()
			}
			a.step.SetTableSearch(value)
			a.tableScroll = 0
		}
	case FocusQuery:
		a.query, cmd = a.query.Update(msg)
		a.step.EditQueryText(a.query.Value())
	}
	return cmd
}

func (a *App) handleMouse(msg tea.MouseMsg) {
	a.step.Databases.SetKeyboardActive(false)
	a.step.Tables.SetKeyboardActive(false)

	if pos, ok := a.dbRegion.hit(msg.Y); ok && a.step.DatabaseListOpen() {
		a.hovering = true
		a.step.HoverDatabase(a.dbScroll+pos, true)
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && a.step.ActivateDatabase() {
			a.hovering = false
			a.focus = a.targetFocus()
			a.applyFocus()
		}
		return
	}
	if pos, ok := a.tableRegion.hit(msg.Y); ok && a.step.TableListOpen() {
		a.hovering = true
		a.step.HoverTable(a.tableScroll+pos, true)
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && a.step.ActivateTable() {
			a.hovering = false
		}
		return
	}
	if a.hovering {
		a.hovering = false
		a.step.HoverDatabase(-1, false)
		a.step.HoverTable(-1, false)
	}
}

func (r listRegion) hit(y int) (int, bool) {
	if r.count == 0 || y < r.top || y >= r.top+r.count {
		return 0, false
	}
	return y - r.top, true
}

func (a *App) targetFocus() Focus {
	if a.step.Mode() == models.ModeQuery {
		return FocusQuery
	}
	return FocusTable
}

func (a *App) applyFocus() tea.Cmd {
	a.dbSearch.Blur()
	a.tableSearch.Blur()
	a.query.Blur()
	switch a.focus {
	case FocusTable:
		return a.tableSearch.Focus()
	case FocusQuery:
		return a.query.Focus()
	default:
		return a.dbSearch.Focus()
	}
}

// sync copies step state the step changed on its own into the widgets
func (a *App) sync() {
	if a.dbSearch.Value() != a.step.DatabaseSearch() {
		a.dbSearch.SetValue(a.step.DatabaseSearch())
	}
	if a.tableSearch.Value() != a.step.TableSearch() {
		a.tableSearch.SetValue(a.step.TableSearch())
	}
	if a.step.Mode() == models.ModeQuery && a.query.Value() != a.step.Draft.QueryText {
		a.query.SetValue(a.step.Draft.QueryText)
	}
	if a.step.Mode() == models.ModeTable && a.focus == FocusQuery {
		a.focus = FocusTable
		a.applyFocus()
	}
	a.preview.SetContent(a.grid.String())
}

// scrollTo keeps pos inside a window of MaxVisibleItems starting at scroll
func scrollTo(pos, scroll int) int {
	switch {
	case pos < scroll:
		return pos
	case pos >= scroll+MaxVisibleItems:
		return pos - MaxVisibleItems + 1
	default:
		return scroll
	}
}

// View renders the step (Bubble Tea View)
func (a *App) View() string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
	}

	line(titleStyle.Render("New dataset: choose a table or write a query"))
	line("")
	line(a.renderModes())
	line("")

	line(a.label("Database", FocusDatabase))
	line(a.dbSearch.View())
	a.dbRegion = listRegion{}
	if a.step.DatabaseListOpen() {
		a.dbRegion.top = strings.Count(b.String(), "\n")
		rows := a.renderItems(a.step.DatabaseView(), a.dbScroll)
		a.dbRegion.count = len(rows)
		for _, r := range rows {
			line(r)
		}
	} else if a.step.Draft.DatabaseName != "" {
		line(itemStyle.Render(a.step.Draft.DatabaseName))
	}
	line("")

	a.tableRegion = listRegion{}
	if a.step.Mode() == models.ModeTable {
		line(a.label("Table", FocusTable))
		line(a.tableSearch.View())
		switch {
		case a.step.Draft.DatabaseName == "":
			line(dimStyle.Render("  choose a database first"))
		case a.step.TableListEmpty():
			line(dimStyle.Render("  no tables in this database"))
		case a.step.TableListOpen():
			a.tableRegion.top = strings.Count(b.String(), "\n")
			rows := a.renderItems(a.step.TableView(), a.tableScroll)
			a.tableRegion.count = len(rows)
			for _, r := range rows {
				line(r)
			}
		case a.step.Draft.TableName != "":
			line(itemStyle.Render(a.step.Draft.TableName))
		}
	} else {
		line(a.label("Query", FocusQuery))
		line(a.query.View())
		if status := a.step.QueryStatus(); status.Shown {
			if status.Success {
				line(successStyle.Render("✓ Query ran successfully"))
			} else {
				line(errorStyle.Render("✗ " + status.Message))
			}
		}
	}
	line("")

	line(a.renderPreview())

	if alert, ok := a.surface.Alert(); ok {
		style := errorStyle
		if alert.Kind != wizard.AlertError {
			style = warningStyle
		}
		line(style.Render(alert.Message))
	}

	if a.step.AdvanceAllowed() {
		line(successStyle.Render("Ready: press enter to name the dataset"))
	}
	b.WriteString(a.help.View(a.keys))
	return b.String()
}

func (a *App) label(text string, focus Focus) string {
	if a.focus == focus {
		return labelFocusedStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (a *App) renderModes() string {
	table, query := modeInactiveStyle, modeInactiveStyle
	if a.step.Mode() == models.ModeTable {
		table = modeActiveStyle
	} else {
		query = modeActiveStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		table.Render("Table"),
		query.Render("Query"),
		dimStyle.Render("  (ctrl+t)"),
	)
}

func (a *App) renderItems(view []models.SelectableItem, scroll int) []string {
	if len(view) == 0 {
		return []string{dimStyle.Render("  no matches")}
	}
	end := min(scroll+MaxVisibleItems, len(view))
	if scroll > end {
		scroll = 0
	}

	rows := make([]string, 0, end-scroll)
	for _, item := range view[scroll:end] {
		if item.IsSelected {
			rows = append(rows, itemSelectedStyle.Render("›"+item.Label))
		} else {
			rows = append(rows, itemStyle.Render(item.Label))
		}
	}
	return rows
}

func (a *App) renderPreview() string {
	state := a.step.State()
	switch {
	case a.surface.Loading() || state == wizard.TargetSelectedLoading:
		return fmt.Sprintf("%s Loading preview...", a.spinner.View())
	case state == wizard.TargetSelectedEmpty:
		return dimStyle.Render("The selection returned no rows")
	case state == wizard.TargetSelectedError:
		return errorStyle.Render("No preview available")
	case a.grid.Rendered():
		return previewStyle.Render(a.preview.View())
	case state == wizard.TargetSelectedReady:
		return fmt.Sprintf("%s Drawing preview...", a.spinner.View())
	default:
		return dimStyle.Render("Choose a table or run a query to see a preview")
	}
}
