package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vitebski/dataset-wizard/internal/wizard"
)

// completionMsg carries finished lookup work back to the event loop
type completionMsg struct {
	apply wizard.Completion
}

// timerMsg fires a scheduled callback
type timerMsg struct {
	id uint64
}

type tick struct {
	id    uint64
	delay time.Duration
}

// Loop runs wizard work as Bubble Tea commands. Go and After only queue; the
// queue is handed to the program by Cmd after every update. Not safe for use
// outside the program's Update.
type Loop struct {
	ctx    context.Context
	cancel context.CancelFunc

	work   []func(ctx context.Context) wizard.Completion
	ticks  []tick
	timers map[uint64]func()
	nextID uint64
}

// NewLoop creates a loop whose work is cancelled by Stop
func NewLoop(parent context.Context) *Loop {
	ctx, cancel := context.WithCancel(parent)
	return &Loop{
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[uint64]func()),
	}
}

// Go queues work to run off the event loop
func (l *Loop) Go(work func(ctx context.Context) wizard.Completion) {
	l.work = append(l.work, work)
}

// After queues fn to run on the event loop once d has elapsed
func (l *Loop) After(d time.Duration, fn func()) func() {
	l.nextID++
	id := l.nextID
	l.timers[id] = fn
	l.ticks = append(l.ticks, tick{id: id, delay: d})
	return func() { delete(l.timers, id) }
}

// Cmd hands the queued work and timers to the program
func (l *Loop) Cmd() tea.Cmd {
	if len(l.work) == 0 && len(l.ticks) == 0 {
		return nil
	}

	cmds := make([]tea.Cmd, 0, len(l.work)+len(l.ticks))
	for _, work := range l.work {
		work := work
		ctx := l.ctx
		cmds = append(cmds, func() tea.Msg {
			return completionMsg{apply: work(ctx)}
		})
	}
	for _, t := range l.ticks {
		id := t.id
		cmds = append(cmds, tea.Tick(t.delay, func(time.Time) tea.Msg {
			return timerMsg{id: id}
		}))
	}
	l.work = nil
	l.ticks = nil
	return tea.Batch(cmds...)
}

// Stop cancels in-flight work
func (l *Loop) Stop() {
	l.cancel()
}

func (l *Loop) fire(id uint64) {
	fn, ok := l.timers[id]
	if !ok {
		return
	}
	delete(l.timers, id)
	fn()
}
