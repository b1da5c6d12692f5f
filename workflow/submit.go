package workflow

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
)

type Location struct {
	Latitude  float64
	Longitude float64
}

// Draft is the report form. ReportID is set when editing an existing report.
type Draft struct {
	ReportID    string
	Kind        models.Kind
	Title       string
	Description string
	Location    *Location
	Files       []MediaFile
}

// ValidationErrors maps a field name to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = v[f]
	}
	return strings.Join(msgs, "; ")
}

func (d Draft) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(d.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		errs["description"] = "Description is required"
	}
	if len(d.Files) > MaxFiles {
		errs["files"] = ErrTooManyFiles.Error()
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (d Draft) input() client.ReportInput {
	in := client.ReportInput{Title: d.Title, Description: d.Description}
	if d.Location != nil {
		lat, lng := d.Location.Latitude, d.Location.Longitude
		in.Latitude, in.Longitude = &lat, &lng
	}
	return in
}

// Outcome is what the form does after a submit. A non-empty Navigate means
// success; otherwise the form stays and shows Message or Errors.
type Outcome struct {
	Navigate string
	Status   int
	Message  string
	Errors   ValidationErrors
}

func (o Outcome) OK() bool { return o.Navigate != "" }

type Submitter struct {
	API ReportAPI
}

// Submit validates the draft, then creates or updates the report. The draft
// is left as the user entered it.
func (s *Submitter) Submit(ctx context.Context, draft Draft) Outcome {
	if errs := draft.Validate(); errs != nil {
		return Outcome{Errors: errs, Message: errs.Error()}
	}

	var env *client.Envelope
	var err error
	if draft.ReportID != "" {
		env, err = s.API.UpdateReport(ctx, draft.Kind, draft.ReportID, draft.input(), attachments(draft.Files))
	} else {
		env, err = s.API.CreateReport(ctx, draft.Kind, draft.input(), attachments(draft.Files))
	}

	log := logrus.WithFields(logrus.Fields{"kind": draft.Kind, "report_id": draft.ReportID})
	if err != nil {
		log.WithError(err).Error("submitting report")
		return Outcome{Message: "Server error while creating report"}
	}
	if env.Failed() {
		log.WithField("status", env.Status).Warn("report rejected")
		return Outcome{Status: env.Status, Message: env.Reason("Failed to save report")}
	}
	return Outcome{Status: env.Status, Navigate: draft.Kind.ListPath()}
}
