package workflow

import (
	"context"
	"fmt"

	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
)

// ReportAPI is the part of *client.Client the workflow drives.
type ReportAPI interface {
	ListReports(ctx context.Context, kind models.Kind, q client.ListQuery) ([]client.Report, *client.Envelope, error)
	CreateReport(ctx context.Context, kind models.Kind, in client.ReportInput, files []client.Attachment) (*client.Envelope, error)
	UpdateReport(ctx context.Context, kind models.Kind, id string, in client.ReportInput, files []client.Attachment) (*client.Envelope, error)
	UpdateLocation(ctx context.Context, kind models.Kind, id string, lat, lng float64) (*client.Envelope, error)
	UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) (*client.Envelope, error)
	DeleteReport(ctx context.Context, kind models.Kind, id string) (*client.Envelope, error)
}

var _ ReportAPI = (*client.Client)(nil)

// RequestError is a failed or unreachable call, carrying the text shown to
// the user.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

// checkResponse turns a transport error or failed envelope into a
// *RequestError. fallback is used when the server gave no reason and
// unreachable when the request never completed.
func checkResponse(env *client.Envelope, err error, fallback, unreachable string) error {
	if err != nil {
		return &RequestError{Message: unreachable, Err: err}
	}
	if env.Failed() {
		status := 0
		if env != nil {
			status = env.Status
		}
		return &RequestError{Status: status, Message: env.Reason(fallback)}
	}
	return nil
}
