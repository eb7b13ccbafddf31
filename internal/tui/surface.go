package tui

import (
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/internal/wizard"
)

// Alert is the message shown in the alert line
type Alert struct {
	Kind    wizard.AlertKind
	Message string
}

// Surface tracks the loading indicator and the current alert
type Surface struct {
	Logger  *logrus.Logger
	loading int
	alert   *Alert
}

// ShowLoading counts a lookup in flight
func (s *Surface) ShowLoading() {
	s.loading++
}

// HideLoading counts a finished lookup
func (s *Surface) HideLoading() {
	if s.loading > 0 {
		s.loading--
	}
}

// ShowAlert replaces the alert line
func (s *Surface) ShowAlert(kind wizard.AlertKind, message string) {
	s.alert = &Alert{Kind: kind, Message: message}
	if s.Logger != nil {
		s.Logger.Warningf("Alert (%s): %s", kind, message)
	}
}

// Loading reports whether any lookup is in flight
func (s *Surface) Loading() bool {
	return s.loading > 0
}

// Alert returns the current alert
func (s *Surface) Alert() (Alert, bool) {
	if s.alert == nil {
		return Alert{}, false
	}
	return *s.alert, true
}

// DismissAlert clears the alert line
func (s *Surface) DismissAlert() {
	s.alert = nil
}

// OutcomeKind is how the step was left
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeAdvance
	OutcomeBack
	OutcomeClose
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdvance:
		return "advance"
	case OutcomeBack:
		return "back"
	case OutcomeClose:
		return "close"
	default:
		return "pending"
	}
}

// Outcome records how the step was left and the wizard steps it announced
type Outcome struct {
	Kind   OutcomeKind
	Choice wizard.DatasetChoice
	Steps  []string
	Logger *logrus.Logger
}

// AdvanceRequested records the chosen dataset
func (o *Outcome) AdvanceRequested(choice wizard.DatasetChoice) {
	o.Kind = OutcomeAdvance
	o.Choice = choice
}

// BackRequested records a return to the connection step
func (o *Outcome) BackRequested() {
	o.Kind = OutcomeBack
}

// CloseRequested records that the wizard was abandoned
func (o *Outcome) CloseRequested() {
	o.Kind = OutcomeClose
}

// Notify records the step the wizard navigates to
func (o *Outcome) Notify(step string, payload interface{}) {
	o.Steps = append(o.Steps, step)
	if o.Logger != nil {
		o.Logger.Infof("Navigating to %s", step)
	}
}

// Done reports whether the step was left
func (o *Outcome) Done() bool {
	return o.Kind != OutcomePending
}
