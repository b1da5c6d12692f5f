package workflow

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
)

type call struct {
	method string
	kind   models.Kind
	id     string
	in     client.ReportInput
	files  int
	status models.Status
	lat    float64
	lng    float64
}

// fakeAPI answers from an in-memory set of reports. listHook, when set, runs
// before each list reply and may block.
type fakeAPI struct {
	mu       sync.Mutex
	reports  map[models.Kind][]client.Report
	calls    []call
	lists    int
	fail     *client.Envelope
	err      error
	listHook func(n int, kind models.Kind)
}

func newFakeAPI(reports ...client.Report) *fakeAPI {
	f := &fakeAPI{reports: map[models.Kind][]client.Report{}}
	for _, r := range reports {
		f.reports[r.Kind] = append(f.reports[r.Kind], r)
	}
	return f
}

func (f *fakeAPI) record(c call) (*client.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	if f.fail != nil {
		return f.fail, nil
	}
	if c.method == http.MethodPost {
		return &client.Envelope{Status: http.StatusCreated}, nil
	}
	return &client.Envelope{Status: http.StatusOK}, nil
}

func (f *fakeAPI) mutations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) setStatus(kind models.Kind, id string, status models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reports[kind] {
		if f.reports[kind][i].ID == id {
			f.reports[kind][i].Status = status
		}
	}
}

func (f *fakeAPI) ListReports(ctx context.Context, kind models.Kind, q client.ListQuery) ([]client.Report, *client.Envelope, error) {
	f.mu.Lock()
	f.lists++
	n := f.lists
	hook := f.listHook
	out := append([]client.Report(nil), f.reports[kind]...)
	f.mu.Unlock()
	if hook != nil {
		hook(n, kind)
	}
	return out, &client.Envelope{Status: http.StatusOK}, nil
}

func (f *fakeAPI) CreateReport(ctx context.Context, kind models.Kind, in client.ReportInput, files []client.Attachment) (*client.Envelope, error) {
	env, err := f.record(call{method: http.MethodPost, kind: kind, in: in, files: len(files)})
	if err == nil && !env.Failed() {
		f.mu.Lock()
		f.reports[kind] = append(f.reports[kind], client.Report{
			ID: "new", Kind: kind, Title: in.Title, Description: in.Description,
			Status: models.StatusDraft, CreatedAt: time.Now(),
		})
		f.mu.Unlock()
	}
	return env, err
}

func (f *fakeAPI) UpdateReport(ctx context.Context, kind models.Kind, id string, in client.ReportInput, files []client.Attachment) (*client.Envelope, error) {
	return f.record(call{method: http.MethodPut, kind: kind, id: id, in: in, files: len(files)})
}

func (f *fakeAPI) UpdateLocation(ctx context.Context, kind models.Kind, id string, lat, lng float64) (*client.Envelope, error) {
	return f.record(call{method: http.MethodPatch, kind: kind, id: id, lat: lat, lng: lng})
}

func (f *fakeAPI) UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) (*client.Envelope, error) {
	env, err := f.record(call{method: "STATUS", kind: kind, id: id, status: status})
	if err == nil && !env.Failed() {
		f.setStatus(kind, id, status)
	}
	return env, err
}

func (f *fakeAPI) DeleteReport(ctx context.Context, kind models.Kind, id string) (*client.Envelope, error) {
	return f.record(call{method: http.MethodDelete, kind: kind, id: id})
}

func report(id string, kind models.Kind, status models.Status, created time.Time) client.Report {
	return client.Report{ID: id, Kind: kind, Title: "t" + id, Status: status, CreatedAt: created, UpdatedAt: created}
}
