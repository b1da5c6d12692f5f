// Package workflow holds the client side report workflow: the mutation gate,
// admin status transitions, the media pipeline, list views and submission.
package workflow

import (
	"errors"
	"fmt"

	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
)

// Action is an owner mutation guarded by the Draft gate.
type Action string

const (
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionRelocate Action = "relocate"
)

// ErrNotDraft is wrapped by every gate refusal.
var ErrNotDraft = errors.New("report is no longer a draft")

type GateError struct {
	Action Action
	Status models.Status
}

func (e *GateError) Error() string {
	return fmt.Sprintf("cannot %s report: status is %s", e.Action, e.Status.Label())
}

func (e *GateError) Unwrap() error {
	return ErrNotDraft
}

// Permit returns nil iff the report is a Draft. Unknown statuses are refused.
func Permit(report client.Report, action Action) error {
	if report.Status == models.StatusDraft {
		return nil
	}
	return &GateError{Action: action, Status: report.Status}
}

// ControlState says which owner controls are enabled for a report.
type ControlState struct {
	Edit     bool
	Delete   bool
	Relocate bool
}

func Controls(report client.Report) ControlState {
	return ControlState{
		Edit:     Permit(report, ActionEdit) == nil,
		Delete:   Permit(report, ActionDelete) == nil,
		Relocate: Permit(report, ActionRelocate) == nil,
	}
}
