package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/techagentng/ireporter/models"
)

// Report is the canonical client view of a report of either kind.
type Report struct {
	ID          string
	Kind        models.Kind
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	Status      models.Status
	OwnerID     string
	OwnerName   string
	Images      []string
	Videos      []string
	Audio       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Comment struct {
	ID         string
	ReportID   string
	Kind       models.Kind
	AuthorID   string
	AuthorName string
	Text       string
	Type       models.CommentKind
	CreatedAt  time.Time
}

type Upvotes struct {
	Count       int64
	UserUpvoted bool
}

type Notification struct {
	ID        string
	ReportID  string
	Kind      models.Kind
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// ParseError describes a payload item that could not be mapped.
type ParseError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s: %s %s", e.Entity, e.Field, e.Reason)
}

type object map[string]interface{}

func decodeJSON(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// items splits data into its elements: an array yields each element, an
// object yields itself, null or empty yields nothing.
func items(data json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	return []json.RawMessage{trimmed}, nil
}

// first returns the object in data, unwrapping a one-element array.
func first(entity string, data json.RawMessage) (json.RawMessage, error) {
	list, err := items(data)
	if err != nil {
		return nil, &ParseError{Entity: entity, Field: "data", Reason: err.Error()}
	}
	if len(list) == 0 {
		return nil, &ParseError{Entity: entity, Field: "data", Reason: "is empty"}
	}
	return list[0], nil
}

func parseObject(entity string, raw json.RawMessage) (object, error) {
	var obj object
	if err := decodeJSON(raw, &obj); err != nil || obj == nil {
		return nil, &ParseError{Entity: entity, Field: "payload", Reason: "is not an object"}
	}
	return obj, nil
}

// lookup returns the first non-null value among keys.
func (o object) lookup(keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (o object) str(keys ...string) string {
	v, ok := o.lookup(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func (o object) boolean(keys ...string) bool {
	v, ok := o.lookup(keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	case json.Number:
		return t.String() != "0"
	}
	return false
}

// number accepts JSON numbers and numeric strings.
func (o object) number(keys ...string) (float64, bool, error) {
	v, ok := o.lookup(keys...)
	if !ok {
		return 0, false, nil
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
	default:
		return 0, true, fmt.Errorf("is not a number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%q is not a number", s)
	}
	return f, true, nil
}

func (o object) id(keys ...string) (string, bool) {
	s := strings.TrimSpace(o.str(keys...))
	return s, s != "" && s != "0"
}

func (o object) stringList(keys ...string) []string {
	v, ok := o.lookup(keys...)
	if !ok {
		return []string{}
	}
	out := []string{}
	switch t := v.(type) {
	case string:
		if t != "" {
			out = append(out, t)
		}
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (o object) timestamp(keys ...string) (time.Time, bool, error) {
	s := strings.TrimSpace(o.str(keys...))
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, true, fmt.Errorf("%q is not a timestamp", s)
}

// ParseReport maps one server payload to a Report. kind is used when the
// payload does not name its own type.
func ParseReport(kind models.Kind, raw json.RawMessage) (Report, error) {
	obj, err := parseObject("report", raw)
	if err != nil {
		return Report{}, err
	}
	fail := func(field, reason string) (Report, error) {
		return Report{}, &ParseError{Entity: "report", Field: field, Reason: reason}
	}

	r := Report{
		Kind:        kind,
		Title:       obj.str("title"),
		Description: obj.str("description", "comment"),
		Status:      models.ParseStatus(obj.str("status")),
		OwnerID:     obj.str("user_id", "userId", "createdby"),
		Images:      obj.stringList("images", "Images"),
		Videos:      obj.stringList("videos", "Videos"),
		Audio:       obj.stringList("audio", "Audio"),
		Latitude:    models.DefaultLatitude,
		Longitude:   models.DefaultLongitude,
	}
	var ok bool
	if r.ID, ok = obj.id("id", "ID"); !ok {
		return fail("id", "is missing")
	}
	if k, ok := models.ParseKind(obj.str("type", "kind")); ok {
		r.Kind = k
	}

	r.OwnerName = strings.TrimSpace(obj.str("first_name") + " " + obj.str("last_name"))
	if r.OwnerName == "" {
		r.OwnerName = obj.str("userName", "user_name", "name")
	}

	lat, latSet, err := obj.number("latitude", "lat")
	if err != nil {
		return fail("latitude", err.Error())
	}
	lng, lngSet, err := obj.number("longitude", "lng", "lon")
	if err != nil {
		return fail("longitude", err.Error())
	}
	if latSet && lngSet {
		r.Latitude, r.Longitude = lat, lng
	}

	created, set, err := obj.timestamp("created_at", "createdAt", "createdon")
	if err != nil {
		return fail("created_at", err.Error())
	}
	if !set {
		return fail("created_at", "is missing")
	}
	r.CreatedAt = created
	r.UpdatedAt = created
	if updated, set, err := obj.timestamp("updated_at", "updatedAt"); err == nil && set {
		r.UpdatedAt = updated
	}
	return r, nil
}

// ParseReports maps a list payload. Malformed items are skipped and returned
// as errors next to the items that parsed.
func ParseReports(kind models.Kind, data json.RawMessage) ([]Report, []error) {
	list, err := items(data)
	if err != nil {
		return nil, []error{&ParseError{Entity: "report list", Field: "data", Reason: err.Error()}}
	}
	reports := make([]Report, 0, len(list))
	var errs []error
	for _, raw := range list {
		r, err := ParseReport(kind, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, errs
}

// ParseUser maps a user payload, unwrapping a one-element array.
func ParseUser(data json.RawMessage) (*models.UserResponse, error) {
	raw, err := first("user", data)
	if err != nil {
		return nil, err
	}
	obj, err := parseObject("user", raw)
	if err != nil {
		return nil, err
	}
	id, ok := obj.id("id", "ID")
	if !ok {
		return nil, &ParseError{Entity: "user", Field: "id", Reason: "is missing"}
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, &ParseError{Entity: "user", Field: "id", Reason: fmt.Sprintf("%q is not numeric", id)}
	}

	u := &models.UserResponse{
		ID:             uint(n),
		FirstName:      obj.str("first_name", "firstname"),
		LastName:       obj.str("last_name", "lastname"),
		Email:          obj.str("email"),
		Phone:          obj.str("phone", "phonenumber"),
		IsAdmin:        obj.boolean("is_admin", "isAdmin", "isadmin"),
		ProfilePicture: obj.str("profile_picture", "profilePicture"),
		Name:           obj.str("name"),
	}
	u.CreatedAt, _, _ = obj.timestamp("created_at", "createdAt")
	u.UpdatedAt, _, _ = obj.timestamp("updated_at", "updatedAt")
	if u.Name == "" {
		u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	u.Role = models.RoleUser
	if u.IsAdmin {
		u.Role = models.RoleAdmin
	}
	return u, nil
}

// ParseUsers maps a user list; malformed items are skipped.
func ParseUsers(data json.RawMessage) ([]models.UserResponse, []error) {
	list, err := items(data)
	if err != nil {
		return nil, []error{&ParseError{Entity: "user list", Field: "data", Reason: err.Error()}}
	}
	users := make([]models.UserResponse, 0, len(list))
	var errs []error
	for _, raw := range list {
		u, err := ParseUser(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		users = append(users, *u)
	}
	return users, errs
}

// ParseLogin reads {token, user} from a login or signup payload.
func ParseLogin(data json.RawMessage) (string, *models.UserResponse, error) {
	raw, err := first("login", data)
	if err != nil {
		return "", nil, err
	}
	var body struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil, &ParseError{Entity: "login", Field: "payload", Reason: "is not an object"}
	}
	if body.Token == "" {
		return "", nil, &ParseError{Entity: "login", Field: "token", Reason: "is missing"}
	}
	user, err := ParseUser(body.User)
	if err != nil {
		return "", nil, err
	}
	return body.Token, user, nil
}

func ParseComment(kind models.Kind, raw json.RawMessage) (Comment, error) {
	obj, err := parseObject("comment", raw)
	if err != nil {
		return Comment{}, err
	}
	c := Comment{
		Kind:     kind,
		ReportID: obj.str("report_id", "reportId"),
		AuthorID: obj.str("user_id", "userId"),
		Text:     obj.str("comment_text", "text", "comment"),
		Type:     models.CommentUser,
	}
	var ok bool
	if c.ID, ok = obj.id("id"); !ok {
		return Comment{}, &ParseError{Entity: "comment", Field: "id", Reason: "is missing"}
	}
	if k, ok := models.ParseKind(obj.str("report_type")); ok {
		c.Kind = k
	}
	if t, ok := models.ParseCommentKind(obj.str("comment_type", "type")); ok {
		c.Type = t
	}
	c.AuthorName = strings.TrimSpace(obj.str("first_name") + " " + obj.str("last_name"))
	created, _, err := obj.timestamp("created_at", "createdAt")
	if err != nil {
		return Comment{}, &ParseError{Entity: "comment", Field: "created_at", Reason: err.Error()}
	}
	c.CreatedAt = created
	return c, nil
}

func ParseComments(kind models.Kind, data json.RawMessage) ([]Comment, []error) {
	list, err := items(data)
	if err != nil {
		return nil, []error{&ParseError{Entity: "comment list", Field: "data", Reason: err.Error()}}
	}
	comments := make([]Comment, 0, len(list))
	var errs []error
	for _, raw := range list {
		c, err := ParseComment(kind, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		comments = append(comments, c)
	}
	return comments, errs
}

func ParseUpvotes(data json.RawMessage) (Upvotes, error) {
	raw, err := first("upvotes", data)
	if err != nil {
		return Upvotes{}, err
	}
	obj, err := parseObject("upvotes", raw)
	if err != nil {
		return Upvotes{}, err
	}
	count, _, err := obj.number("count", "upvotes", "upvote_count")
	if err != nil {
		return Upvotes{}, &ParseError{Entity: "upvotes", Field: "count", Reason: err.Error()}
	}
	return Upvotes{
		Count:       int64(count),
		UserUpvoted: obj.boolean("user_upvoted", "userUpvoted", "has_upvoted"),
	}, nil
}

func ParseNotification(raw json.RawMessage) (Notification, error) {
	obj, err := parseObject("notification", raw)
	if err != nil {
		return Notification{}, err
	}
	n := Notification{
		ReportID: obj.str("report_id"),
		Title:    obj.str("title"),
		Message:  obj.str("message"),
		Read:     obj.boolean("is_read", "read"),
	}
	var ok bool
	if n.ID, ok = obj.id("id", "ID"); !ok {
		return Notification{}, &ParseError{Entity: "notification", Field: "id", Reason: "is missing"}
	}
	n.Kind, _ = models.ParseKind(obj.str("report_type", "type"))
	n.CreatedAt, _, _ = obj.timestamp("created_at", "createdAt")
	return n, nil
}

func ParseNotifications(data json.RawMessage) ([]Notification, []error) {
	list, err := items(data)
	if err != nil {
		return nil, []error{&ParseError{Entity: "notification list", Field: "data", Reason: err.Error()}}
	}
	out := make([]Notification, 0, len(list))
	var errs []error
	for _, raw := range list {
		n, err := ParseNotification(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, n)
	}
	return out, errs
}
