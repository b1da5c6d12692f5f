package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Kind is one of the two disjoint report categories.
type Kind string

const (
	KindRedFlag      Kind = "red-flag"
	KindIntervention Kind = "intervention"
)

// Kinds lists every report kind in display order.
var Kinds = []Kind{KindRedFlag, KindIntervention}

// ParseKind accepts the singular or plural path form ("red-flag", "red-flags").
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "red-flag", "red-flags", "redflag", "red_flag":
		return KindRedFlag, true
	case "intervention", "interventions":
		return KindIntervention, true
	}
	return "", false
}

// Collection is the plural path segment used for list and item routes.
func (k Kind) Collection() string {
	return string(k) + "s"
}

// ListPath is the route a user lands on after submitting a report of this kind.
func (k Kind) ListPath() string {
	return "/" + k.Collection()
}

func (k Kind) Label() string {
	if k == KindIntervention {
		return "Intervention"
	}
	return "Red Flag"
}

// Status is a report's position in the review workflow.
type Status int

const (
	StatusUnknown Status = iota
	StatusDraft
	StatusUnderInvestigation
	StatusResolved
	StatusRejected
)

// Statuses lists the known workflow states.
var Statuses = []Status{StatusDraft, StatusUnderInvestigation, StatusResolved, StatusRejected}

// ParseStatus maps every raw variant seen on the wire or in the UI to a Status.
// Case, surrounding space and the separators '-', '_' and ' ' are ignored.
// Anything else is StatusUnknown.
func ParseStatus(raw string) Status {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	switch norm {
	case "draft":
		return StatusDraft
	case "under investigation", "underinvestigation":
		return StatusUnderInvestigation
	case "resolved":
		return StatusResolved
	case "rejected":
		return StatusRejected
	}
	return StatusUnknown
}

// APIValue is the wire form accepted and produced by the REST API.
func (s Status) APIValue() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusUnderInvestigation:
		return "under-investigation"
	case StatusResolved:
		return "resolved"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Label is the upper-case display form.
func (s Status) Label() string {
	switch s {
	case StatusDraft:
		return "DRAFT"
	case StatusUnderInvestigation:
		return "UNDER INVESTIGATION"
	case StatusResolved:
		return "RESOLVED"
	case StatusRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

func (s Status) String() string {
	return s.APIValue()
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// MarshalText makes Status serialize as its wire form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.APIValue()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

var transitions = map[Status][]Status{
	StatusDraft:              {StatusUnderInvestigation, StatusRejected},
	StatusUnderInvestigation: {StatusResolved, StatusRejected},
}

// CanTransition reports whether an administrator may move a report from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// Value stores the wire form in the database.
func (s Status) Value() (driver.Value, error) {
	return s.APIValue(), nil
}

func (s *Status) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = ParseStatus(v)
	case []byte:
		*s = ParseStatus(string(v))
	case nil:
		*s = StatusUnknown
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	return nil
}
