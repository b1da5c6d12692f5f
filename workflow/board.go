package workflow

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
	"golang.org/x/sync/errgroup"
)

// Board is the current view of both report collections. Loads may overlap;
// the most recently started load that completes wins and older results are
// discarded.
type Board struct {
	api   ReportAPI
	query client.ListQuery

	mu      sync.Mutex
	seq     uint64
	applied uint64
	reports map[models.Kind][]client.Report
}

func NewBoard(api ReportAPI, query client.ListQuery) *Board {
	return &Board{
		api:     api,
		query:   query,
		reports: map[models.Kind][]client.Report{},
	}
}

// Load fetches every kind concurrently and replaces the snapshot once all of
// them have arrived.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	results := make([][]client.Report, len(models.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range models.Kinds {
		i, kind := i, kind
		g.Go(func() error {
			reports, env, err := b.api.ListReports(gctx, kind, b.query)
			if err := checkResponse(env, err, "Failed to load "+kind.Collection(), "Server error while loading "+kind.Collection()); err != nil {
				return err
			}
			results[i] = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.applied {
		logrus.WithFields(logrus.Fields{"seq": seq, "applied": b.applied}).Debug("discarding stale report load")
		return nil
	}
	b.applied = seq
	next := make(map[models.Kind][]client.Report, len(models.Kinds))
	for i, kind := range models.Kinds {
		next[kind] = results[i]
	}
	b.reports = next
	return nil
}

// Reports returns a copy of the loaded reports of one kind.
func (b *Board) Reports(kind models.Kind) []client.Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]client.Report(nil), b.reports[kind]...)
}

// All returns every loaded report, red flags first.
func (b *Board) All() []client.Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []client.Report
	for _, kind := range models.Kinds {
		out = append(out, b.reports[kind]...)
	}
	return out
}

// Find looks a report up in the current snapshot.
func (b *Board) Find(kind models.Kind, id string) (client.Report, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.reports[kind] {
		if r.ID == id {
			return r, true
		}
	}
	return client.Report{}, false
}

func (b *Board) Stats() StatusCounts {
	return ComputeStatusCounts(b.All())
}

// Edit replaces a Draft report's fields. Stored media is kept when files is
// empty.
func (b *Board) Edit(ctx context.Context, report client.Report, in client.ReportInput, files []MediaFile) error {
	return b.mutate(ctx, report, ActionEdit, func() (*client.Envelope, error) {
		return b.api.UpdateReport(ctx, report.Kind, report.ID, in, attachments(files))
	})
}

func (b *Board) Delete(ctx context.Context, report client.Report) error {
	return b.mutate(ctx, report, ActionDelete, func() (*client.Envelope, error) {
		return b.api.DeleteReport(ctx, report.Kind, report.ID)
	})
}

func (b *Board) Relocate(ctx context.Context, report client.Report, lat, lng float64) error {
	return b.mutate(ctx, report, ActionRelocate, func() (*client.Envelope, error) {
		return b.api.UpdateLocation(ctx, report.Kind, report.ID, lat, lng)
	})
}

// mutate applies the Draft gate, sends exactly one request and reloads the
// board after it.
func (b *Board) mutate(ctx context.Context, report client.Report, action Action, call func() (*client.Envelope, error)) error {
	if err := Permit(report, action); err != nil {
		return err
	}
	env, err := call()
	result := checkResponse(env, err, "Failed to "+string(action)+" report", "Server error while trying to "+string(action)+" report")
	if loadErr := b.Load(ctx); loadErr != nil {
		logrus.WithError(loadErr).Warn("reloading reports")
		if result == nil {
			result = loadErr
		}
	}
	return result
}
