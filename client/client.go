// Package client talks to the iReporter REST API.
//
// Every call returns an Envelope. A non-nil error means the request could not
// be performed at all; an HTTP failure is reported through Envelope.Status.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/session"
)

// Envelope is the uniform result of an API call.
type Envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Failed reports whether the server answered with a failure status.
func (e *Envelope) Failed() bool {
	return e == nil || e.Status >= http.StatusBadRequest
}

// Reason is the human readable explanation of a failure: the server message,
// then the server error, then fallback.
func (e *Envelope) Reason(fallback string) string {
	if e != nil {
		if m := strings.TrimSpace(e.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(e.Error); m != "" {
			return m
		}
	}
	return fallback
}

// Attachment is a file to upload.
type Attachment interface {
	FileName() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Field values accepted by the multipart variants. Nil values are skipped.
type Fields map[string]interface{}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session session.Store
}

// New returns a client for baseURL, e.g. http://localhost:3000/api.
func New(baseURL string, store session.Store) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
		Session: store,
	}
}

// FileURL is where stored media keys are served from.
func (c *Client) FileURL(key string) string {
	if key == "" || strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return strings.TrimSuffix(c.BaseURL, "/api") + "/uploads/" + strings.TrimPrefix(key, "/")
}

func (c *Client) Get(ctx context.Context, path string) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "")
}

func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) PatchJSON(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, body)
}

func (c *Client) PutJSON(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

func (c *Client) PostMultipart(ctx context.Context, path string, fields Fields, files []Attachment) (*Envelope, error) {
	return c.sendMultipart(ctx, http.MethodPost, path, fields, files)
}

func (c *Client) PutMultipart(ctx context.Context, path string, fields Fields, files []Attachment) (*Envelope, error) {
	return c.sendMultipart(ctx, http.MethodPut, path, fields, files)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body interface{}) (*Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request body")
	}
	return c.do(ctx, method, path, bytes.NewReader(raw), "application/json")
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, fields Fields, files []Attachment) (*Envelope, error) {
	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, body, contentType)
}

// fileField maps a MIME type to the form field the server reads it from.
// Anything other than images and videos is not sent.
func fileField(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "images"
	case strings.HasPrefix(mime, "video/"):
		return "videos"
	}
	return ""
}

func encodeMultipart(fields Fields, files []Attachment) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		s, ok := formValue(value)
		if !ok {
			continue
		}
		if err := w.WriteField(name, s); err != nil {
			return nil, "", errors.Wrapf(err, "writing field %s", name)
		}
	}

	for _, f := range files {
		field := fileField(f.ContentType())
		if field == "" {
			logrus.WithField("file", f.FileName()).Debug("skipping attachment that is neither image nor video")
			continue
		}
		if err := writeFile(w, field, f); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, f Attachment) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.FileName())
	}
	defer rc.Close()

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.FileName()))
	header.Set("Content-Type", f.ContentType())
	part, err := w.CreatePart(header)
	if err != nil {
		return errors.Wrapf(err, "adding %s", f.FileName())
	}
	if _, err := io.Copy(part, rc); err != nil {
		return errors.Wrapf(err, "reading %s", f.FileName())
	}
	return nil
}

// formValue stringifies a scalar field. Nil values, including typed nil
// pointers, report false.
func formValue(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case *float64:
		if t == nil {
			return "", false
		}
		return strconv.FormatFloat(*t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case fmt.Stringer:
		return t.String(), true
	}
	return fmt.Sprint(v), true
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.Session != nil {
		snap, err := c.Session.Load()
		if err != nil {
			return nil, err
		}
		if snap.Token != "" {
			req.Header.Set("Authorization", "Bearer "+snap.Token)
		}
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response of %s %s", method, path)
	}

	env := &Envelope{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			// Non-JSON bodies (proxies, HTML error pages) keep only the status.
			logrus.WithFields(logrus.Fields{"method": method, "path": path}).Debug("response body is not JSON")
			env = &Envelope{}
		}
	}
	env.Status = resp.StatusCode
	logrus.WithFields(logrus.Fields{"method": method, "path": path, "status": env.Status}).Debug("api call")
	return env, nil
}
