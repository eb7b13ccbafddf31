package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// manualRunner queues work until the test flushes it, so tests decide when a
// lookup "completes"
type manualRunner struct {
	pending []func(ctx context.Context) Completion
}

func (r *manualRunner) Go(work func(ctx context.Context) Completion) {
	r.pending = append(r.pending, work)
}

// flush completes queued work in order, including work queued by completions
func (r *manualRunner) flush() {
	for len(r.pending) > 0 {
		r.complete(0)
	}
}

// complete finishes the i-th queued work item
func (r *manualRunner) complete(i int) {
	work := r.pending[i]
	r.pending = append(r.pending[:i], r.pending[i+1:]...)
	work(context.Background())()
}

type scheduledTask struct {
	fn        func()
	cancelled bool
}

type fakeScheduler struct {
	tasks []*scheduledTask
}

func (s *fakeScheduler) After(d time.Duration, fn func()) func() {
	task := &scheduledTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return func() { task.cancelled = true }
}

// fire runs every task that was not cancelled
func (s *fakeScheduler) fire() {
	tasks := s.tasks
	s.tasks = nil
	for _, task := range tasks {
		if !task.cancelled {
			task.fn()
		}
	}
}

type fakeLookup struct {
	mu         sync.Mutex
	databases  []string
	tables     map[string][]string
	previews   map[string]*models.LookupResult
	previewErr error
	listErr    error
	requests   []models.LookupRequest
}

func (l *fakeLookup) ListDatabases(ctx context.Context, conn models.Connection) ([]string, error) {
	if l.listErr != nil {
		return nil, l.listErr
	}
	return l.databases, nil
}

func (l *fakeLookup) ListTables(ctx context.Context, conn models.Connection, database string) ([]string, error) {
	if l.listErr != nil {
		return nil, l.listErr
	}
	return l.tables[database], nil
}

func (l *fakeLookup) LookupPreview(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	l.mu.Lock()
	l.requests = append(l.requests, req)
	l.mu.Unlock()
	if l.previewErr != nil {
		return nil, l.previewErr
	}
	return l.previews[req.Query], nil
}

type fakeGrid struct {
	renders  int
	destroys int
	headers  []models.ColumnHeader
	rows     []models.RowRecord
	opts     GridOptions
}

func (g *fakeGrid) Render(headers []models.ColumnHeader, rows []models.RowRecord, opts GridOptions) {
	g.renders++
	g.headers = headers
	g.rows = rows
	g.opts = opts
}

func (g *fakeGrid) Destroy() {
	g.destroys++
	g.headers = nil
	g.rows = nil
}

func (g *fakeGrid) drawn() bool {
	return g.rows != nil
}

type alert struct {
	kind    AlertKind
	message string
}

type fakeSurface struct {
	loading int
	alerts  []alert
}

func (s *fakeSurface) ShowLoading() { s.loading++ }
func (s *fakeSurface) HideLoading() { s.loading-- }
func (s *fakeSurface) ShowAlert(kind AlertKind, message string) {
	s.alerts = append(s.alerts, alert{kind: kind, message: message})
}

type fakeNotifier struct {
	steps []string
}

func (n *fakeNotifier) Notify(step string, payload interface{}) {
	n.steps = append(n.steps, step)
}

type fakeListener struct {
	advanced []DatasetChoice
	back     int
	closed   int
}

func (l *fakeListener) AdvanceRequested(choice DatasetChoice) { l.advanced = append(l.advanced, choice) }
func (l *fakeListener) BackRequested()                        { l.back++ }
func (l *fakeListener) CloseRequested()                       { l.closed++ }

type harness struct {
	draft     *models.DraftDataset
	step      *Step
	lookup    *fakeLookup
	runner    *manualRunner
	scheduler *fakeScheduler
	grid      *fakeGrid
	surface   *fakeSurface
	notifier  *fakeNotifier
	listener  *fakeListener
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func newHarness(lookup *fakeLookup, draft *models.DraftDataset) (*harness, error) {
	if draft == nil {
		draft = &models.DraftDataset{Connection: &models.Connection{Implementor: "MYSQL", Hostname: "db.local", Port: "3306", Username: "reader", Password: "secret"}}
	}
	h := &harness{
		draft:     draft,
		lookup:    lookup,
		runner:    &manualRunner{},
		scheduler: &fakeScheduler{},
		grid:      &fakeGrid{},
		surface:   &fakeSurface{},
		notifier:  &fakeNotifier{},
		listener:  &fakeListener{},
	}
	step, err := NewStep(draft, Deps{
		Lookup:    lookup,
		Grid:      h.grid,
		Surface:   h.surface,
		Runner:    h.runner,
		Scheduler: h.scheduler,
		Notifier:  h.notifier,
		Listener:  h.listener,
		Logger:    newTestLogger(),
	})
	if err != nil {
		return nil, err
	}
	h.step = step
	return h, nil
}

func strPtr(s string) *string { return &s }

func twoByThree() *models.LookupResult {
	return &models.LookupResult{
		Fields: []models.Field{
			{Name: "name", Type: "VARCHAR", LogicalType: "STRING"},
			{Name: "score", Type: models.UnknownType, LogicalType: "DOUBLE"},
		},
		Data: []map[string]interface{}{
			{"name": "a", "score": 1.5},
			{"name": "b", "score": 2.5},
			{"name": "c", "score": nil},
		},
	}
}
