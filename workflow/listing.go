package workflow

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
)

// StatusAny matches every report in FilterByStatus.
const StatusAny = ""

type SortMode string

const (
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
	SortStatus SortMode = "status"
)

// FilterByStatus keeps the reports whose status equals the parsed status.
// The input is not modified.
func FilterByStatus(reports []client.Report, status string) []client.Report {
	if strings.TrimSpace(status) == StatusAny {
		return append([]client.Report(nil), reports...)
	}
	want := models.ParseStatus(status)
	out := make([]client.Report, 0, len(reports))
	for _, r := range reports {
		if r.Status == want {
			out = append(out, r)
		}
	}
	return out
}

// SortReports returns a stably sorted copy. Unknown modes sort newest first.
func SortReports(reports []client.Report, mode SortMode) []client.Report {
	out := append([]client.Report(nil), reports...)
	var less func(a, b client.Report) bool
	switch mode {
	case SortOldest:
		less = func(a, b client.Report) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortStatus:
		less = func(a, b client.Report) bool { return a.Status.Label() < b.Status.Label() }
	default:
		less = func(a, b client.Report) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// StatusCounts buckets reports for the dashboard. Reports whose status is not
// recognized are counted in Unknown only.
type StatusCounts struct {
	Resolved   int
	Unresolved int
	Rejected   int
	Unknown    int
}

func (c StatusCounts) Total() int {
	return c.Resolved + c.Unresolved + c.Rejected + c.Unknown
}

func ComputeStatusCounts(reports []client.Report) StatusCounts {
	var c StatusCounts
	for _, r := range reports {
		switch r.Status {
		case models.StatusResolved:
			c.Resolved++
		case models.StatusDraft, models.StatusUnderInvestigation:
			c.Unresolved++
		case models.StatusRejected:
			c.Rejected++
		default:
			c.Unknown++
		}
	}
	return c
}

// RecentReports keeps reports created within windowDays of now, newest first,
// truncated to limit. A limit <= 0 means no limit.
func RecentReports(reports []client.Report, now time.Time, windowDays, limit int) []client.Report {
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	var recent []client.Report
	for _, r := range reports {
		if !r.CreatedAt.Before(cutoff) {
			recent = append(recent, r)
		}
	}
	recent = SortReports(recent, SortNewest)
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}

// Search matches a numeric query against the id exactly; any other query is a
// case-insensitive substring of the id or the owner name.
func Search(reports []client.Report, query string) []client.Report {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]client.Report(nil), reports...)
	}
	_, numErr := strconv.ParseFloat(q, 64)
	numeric := numErr == nil

	var out []client.Report
	for _, r := range reports {
		if numeric {
			if r.ID == q {
				out = append(out, r)
			}
			continue
		}
		if strings.Contains(strings.ToLower(r.ID), q) || strings.Contains(strings.ToLower(r.OwnerName), q) {
			out = append(out, r)
		}
	}
	return out
}

func CountByKind(reports []client.Report) map[models.Kind]int {
	out := make(map[models.Kind]int, len(models.Kinds))
	for _, k := range models.Kinds {
		out[k] = 0
	}
	for _, r := range reports {
		out[r.Kind]++
	}
	return out
}

// StatusBucket is one bar of the status chart.
type StatusBucket struct {
	Status models.Status
	Label  string
	Count  int
}

// Breakdown counts reports per status in workflow order. The unknown bucket
// is included only when non-empty.
func Breakdown(reports []client.Report) []StatusBucket {
	counts := map[models.Status]int{}
	for _, r := range reports {
		counts[r.Status]++
	}
	out := make([]StatusBucket, 0, len(models.Statuses)+1)
	for _, s := range models.Statuses {
		out = append(out, StatusBucket{Status: s, Label: s.Label(), Count: counts[s]})
	}
	if n := counts[models.StatusUnknown]; n > 0 {
		out = append(out, StatusBucket{Status: models.StatusUnknown, Label: models.StatusUnknown.Label(), Count: n})
	}
	return out
}

var csvHeader = []string{
	"Report ID", "Title", "Description", "Status", "Latitude", "Longitude",
	"Created Date", "Updated Date", "User Name", "Images Count", "Videos Count", "Audio Count",
}

// ExportCSV writes reports as CSV with a header row.
func ExportCSV(w io.Writer, reports []client.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range reports {
		row := []string{
			r.ID,
			r.Title,
			r.Description,
			r.Status.Label(),
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.CreatedAt.Format("2006-01-02"),
			r.UpdatedAt.Format("2006-01-02"),
			r.OwnerName,
			strconv.Itoa(len(r.Images)),
			strconv.Itoa(len(r.Videos)),
			strconv.Itoa(len(r.Audio)),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing report %s", r.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
