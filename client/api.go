package client

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/session"
)

// ReportInput carries the editable fields of a report.
type ReportInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func (in ReportInput) fields() Fields {
	return Fields{
		"title":       in.Title,
		"description": in.Description,
		"latitude":    in.Latitude,
		"longitude":   in.Longitude,
	}
}

// ListQuery narrows a report listing. Zero values match everything.
type ListQuery struct {
	Status models.Status
	Mine   bool
}

func (q ListQuery) encode() string {
	v := url.Values{}
	if q.Status != models.StatusUnknown {
		v.Set("status", q.Status.APIValue())
	}
	if q.Mine {
		v.Set("mine", "true")
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func reportsPath(kind models.Kind) string {
	return "/v1/" + kind.Collection()
}

func reportPath(kind models.Kind, id string) string {
	return reportsPath(kind) + "/" + url.PathEscape(id)
}

func logParseErrors(what string, errs []error) {
	for _, err := range errs {
		logrus.WithError(err).WithField("payload", what).Warn("skipping malformed item")
	}
}

func (c *Client) ListReports(ctx context.Context, kind models.Kind, q ListQuery) ([]Report, *Envelope, error) {
	env, err := c.Get(ctx, reportsPath(kind)+q.encode())
	if err != nil || env.Failed() {
		return nil, env, err
	}
	reports, errs := ParseReports(kind, env.Data)
	logParseErrors(kind.Collection(), errs)
	return reports, env, nil
}

func (c *Client) GetReport(ctx context.Context, kind models.Kind, id string) (*Report, *Envelope, error) {
	env, err := c.Get(ctx, reportPath(kind, id))
	if err != nil || env.Failed() {
		return nil, env, err
	}
	raw, err := first("report", env.Data)
	if err != nil {
		return nil, env, err
	}
	r, err := ParseReport(kind, raw)
	if err != nil {
		return nil, env, err
	}
	return &r, env, nil
}

func (c *Client) CreateReport(ctx context.Context, kind models.Kind, in ReportInput, files []Attachment) (*Envelope, error) {
	return c.PostMultipart(ctx, reportsPath(kind), in.fields(), files)
}

// UpdateReport sends multipart only when there are new files, so stored
// media is kept otherwise.
func (c *Client) UpdateReport(ctx context.Context, kind models.Kind, id string, in ReportInput, files []Attachment) (*Envelope, error) {
	if len(files) > 0 {
		return c.PutMultipart(ctx, reportPath(kind, id), in.fields(), files)
	}
	return c.PutJSON(ctx, reportPath(kind, id), in)
}

func (c *Client) UpdateLocation(ctx context.Context, kind models.Kind, id string, lat, lng float64) (*Envelope, error) {
	return c.PatchJSON(ctx, reportPath(kind, id)+"/location", map[string]float64{
		"latitude":  lat,
		"longitude": lng,
	})
}

func (c *Client) UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) (*Envelope, error) {
	return c.PatchJSON(ctx, reportPath(kind, id)+"/status", map[string]string{"status": status.APIValue()})
}

func (c *Client) DeleteReport(ctx context.Context, kind models.Kind, id string) (*Envelope, error) {
	return c.Delete(ctx, reportPath(kind, id))
}

func commentsPath(kind models.Kind, id string) string {
	return "/v1/" + string(kind) + "/" + url.PathEscape(id) + "/comments"
}

func (c *Client) Comments(ctx context.Context, kind models.Kind, id string) ([]Comment, *Envelope, error) {
	env, err := c.Get(ctx, commentsPath(kind, id))
	if err != nil || env.Failed() {
		return nil, env, err
	}
	comments, errs := ParseComments(kind, env.Data)
	logParseErrors("comments", errs)
	return comments, env, nil
}

func (c *Client) AddComment(ctx context.Context, kind models.Kind, id, text string, commentType models.CommentKind) (*Envelope, error) {
	body := map[string]string{"comment_text": text}
	if commentType != "" {
		body["comment_type"] = string(commentType)
	}
	return c.PostJSON(ctx, commentsPath(kind, id), body)
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) (*Envelope, error) {
	return c.Delete(ctx, "/v1/comments/"+url.PathEscape(commentID))
}

func upvotesPath(kind models.Kind, id string) string {
	return reportPath(kind, id) + "/upvotes"
}

func (c *Client) upvoteCall(ctx context.Context, method, path string) (Upvotes, *Envelope, error) {
	var env *Envelope
	var err error
	switch method {
	case http.MethodGet:
		env, err = c.Get(ctx, path)
	case http.MethodDelete:
		env, err = c.Delete(ctx, path)
	default:
		env, err = c.PostJSON(ctx, path, struct{}{})
	}
	if err != nil || env.Failed() {
		return Upvotes{}, env, err
	}
	u, err := ParseUpvotes(env.Data)
	return u, env, err
}

func (c *Client) Upvotes(ctx context.Context, kind models.Kind, id string) (Upvotes, *Envelope, error) {
	return c.upvoteCall(ctx, http.MethodGet, upvotesPath(kind, id))
}

func (c *Client) Upvote(ctx context.Context, kind models.Kind, id string) (Upvotes, *Envelope, error) {
	return c.upvoteCall(ctx, http.MethodPost, upvotesPath(kind, id))
}

func (c *Client) RemoveUpvote(ctx context.Context, kind models.Kind, id string) (Upvotes, *Envelope, error) {
	return c.upvoteCall(ctx, http.MethodDelete, upvotesPath(kind, id))
}

func (c *Client) ToggleUpvote(ctx context.Context, kind models.Kind, id string) (Upvotes, *Envelope, error) {
	return c.upvoteCall(ctx, http.MethodPost, reportPath(kind, id)+"/toggle-upvote")
}

// Login signs in and replaces the stored session on success.
func (c *Client) Login(ctx context.Context, email, password string) (*Envelope, error) {
	env, err := c.PostJSON(ctx, "/v1/auth/login", map[string]string{"email": email, "password": password})
	if err != nil || env.Failed() {
		return env, err
	}
	return env, c.storeLogin(env)
}

func (c *Client) Register(ctx context.Context, req models.SignupRequest) (*Envelope, error) {
	env, err := c.PostJSON(ctx, "/v1/auth/signup", req)
	if err != nil || env.Failed() {
		return env, err
	}
	return env, c.storeLogin(env)
}

func (c *Client) storeLogin(env *Envelope) error {
	token, user, err := ParseLogin(env.Data)
	if err != nil {
		return err
	}
	if c.Session == nil {
		return nil
	}
	return c.Session.Replace(session.Snapshot{Token: token, User: user})
}

// Logout revokes the token server side and always clears the local session.
func (c *Client) Logout(ctx context.Context) (*Envelope, error) {
	env, err := c.Get(ctx, "/v1/auth/logout")
	if c.Session != nil {
		if clearErr := c.Session.Clear(); clearErr != nil && err == nil {
			err = clearErr
		}
	}
	return env, err
}

// ForgotPassword asks the server to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*Envelope, error) {
	return c.PostJSON(ctx, "/v1/auth/forgot-password", map[string]string{"email": email})
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) (*Envelope, error) {
	return c.PostJSON(ctx, "/v1/auth/reset-password/"+url.PathEscape(token), map[string]string{"password": password})
}

func (c *Client) Profile(ctx context.Context) (*models.UserResponse, *Envelope, error) {
	env, err := c.Get(ctx, "/v1/auth/profile")
	if err != nil || env.Failed() {
		return nil, env, err
	}
	user, err := ParseUser(env.Data)
	return user, env, err
}

func (c *Client) UpdateProfile(ctx context.Context, req models.EditProfileRequest) (*models.UserResponse, *Envelope, error) {
	env, err := c.PatchJSON(ctx, "/v1/auth/profile", req)
	if err != nil || env.Failed() {
		return nil, env, err
	}
	user, err := ParseUser(env.Data)
	if err != nil {
		return nil, env, err
	}
	return user, env, c.refreshSessionUser(user)
}

func (c *Client) UploadProfilePicture(ctx context.Context, file Attachment) (*models.UserResponse, *Envelope, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFile(w, "profile_picture", file); err != nil {
		return nil, nil, err
	}
	if err := w.Close(); err != nil {
		return nil, nil, errors.Wrap(err, "closing multipart body")
	}
	env, err := c.do(ctx, http.MethodPost, "/v1/auth/profile/picture", &buf, w.FormDataContentType())
	if err != nil || env.Failed() {
		return nil, env, err
	}
	user, err := ParseUser(env.Data)
	if err != nil {
		return nil, env, err
	}
	return user, env, c.refreshSessionUser(user)
}

func (c *Client) refreshSessionUser(user *models.UserResponse) error {
	if c.Session == nil {
		return nil
	}
	snap, err := c.Session.Load()
	if err != nil || !snap.SignedIn() {
		return err
	}
	return c.Session.Replace(session.Snapshot{Token: snap.Token, User: user})
}

func (c *Client) Users(ctx context.Context) ([]models.UserResponse, *Envelope, error) {
	env, err := c.Get(ctx, "/v1/auth/users")
	if err != nil || env.Failed() {
		return nil, env, err
	}
	users, errs := ParseUsers(env.Data)
	logParseErrors("users", errs)
	return users, env, nil
}

func (c *Client) Notifications(ctx context.Context) ([]Notification, *Envelope, error) {
	env, err := c.Get(ctx, "/v1/notifications")
	if err != nil || env.Failed() {
		return nil, env, err
	}
	out, errs := ParseNotifications(env.Data)
	logParseErrors("notifications", errs)
	return out, env, nil
}

func (c *Client) MarkNotificationsRead(ctx context.Context) (int64, *Envelope, error) {
	env, err := c.PutJSON(ctx, "/v1/notifications/read", struct{}{})
	if err != nil || env.Failed() {
		return 0, env, err
	}
	var body struct {
		Updated int64 `json:"updated"`
	}
	if err := decodeJSON(env.Data, &body); err != nil {
		return 0, env, errors.Wrap(err, "decoding notification update")
	}
	return body.Updated, env, nil
}

// ReportID formats a server id for use in paths.
func ReportID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
