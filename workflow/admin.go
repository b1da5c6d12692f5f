package workflow

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/session"
)

var (
	ErrNotAdmin          = errors.New("only an admin can change a report's status")
	ErrIllegalTransition = errors.New("status transition not allowed")
)

// Admin issues status transitions on behalf of the signed in admin.
type Admin struct {
	API     ReportAPI
	Session session.Store
	// Board is reloaded after every attempted transition.
	Board *Board
}

// Transition moves a report from current to target. Refusals happen before
// any request; once the request is sent the board is reloaded whatever the
// outcome.
func (a *Admin) Transition(ctx context.Context, kind models.Kind, id string, current, target models.Status) error {
	snap, err := a.Session.Load()
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	if !snap.IsAdmin() {
		return ErrNotAdmin
	}
	if !models.CanTransition(current, target) {
		return errors.Wrapf(ErrIllegalTransition, "%s to %s", current.Label(), target.Label())
	}

	env, err := a.API.UpdateStatus(ctx, kind, id, target)
	result := checkResponse(env, err, "Failed to update status", "Server error while updating status")

	log := logrus.WithFields(logrus.Fields{"kind": kind, "id": id, "to": target.APIValue()})
	if result != nil {
		log.WithError(result).Warn("status update failed")
	} else {
		log.Info("status updated")
	}

	if err := a.Board.Load(ctx); err != nil {
		log.WithError(err).Warn("reloading reports after status update")
		if result == nil {
			result = err
		}
	}
	return result
}
