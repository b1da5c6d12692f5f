package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"sync"
	"time"

	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
)

type fakeAuthService struct {
	tokens  map[string]*models.User
	revoked []string
	logins  map[string]*models.LoginResponse
	resets  []string
}

func (f *fakeAuthService) SignupUser(req *models.SignupRequest) (*models.LoginResponse, error) {
	user := &models.User{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	user.ID = 99
	return &models.LoginResponse{Token: "signup-token", User: user.Response()}, nil
}

func (f *fakeAuthService) LoginUser(req *models.LoginRequest) (*models.LoginResponse, error) {
	if resp, ok := f.logins[req.Email]; ok {
		return resp, nil
	}
	return nil, apiError.ErrInvalidPassword
}

func (f *fakeAuthService) LogoutUser(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	delete(f.tokens, token)
	return nil
}

func (f *fakeAuthService) AuthenticateToken(_ context.Context, token string) (*models.User, error) {
	if user, ok := f.tokens[token]; ok {
		return user, nil
	}
	return nil, apiError.ErrUnauthorized
}

func (f *fakeAuthService) GetUserProfile(userID uint) (*models.User, error) {
	for _, u := range f.tokens {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apiError.ErrNotFound
}

func (f *fakeAuthService) EditUserProfile(userID uint, details *models.EditProfileRequest) (*models.User, error) {
	user, err := f.GetUserProfile(userID)
	if err != nil {
		return nil, err
	}
	if details.FirstName != nil {
		user.FirstName = *details.FirstName
	}
	return user, nil
}

func (f *fakeAuthService) UpdateProfilePicture(userID uint, key string) (*models.User, error) {
	user, err := f.GetUserProfile(userID)
	if err != nil {
		return nil, err
	}
	user.ProfilePicture = key
	return user, nil
}

func (f *fakeAuthService) GetAllUsers() ([]models.User, error) {
	var out []models.User
	for _, u := range f.tokens {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeAuthService) PromoteAdmin(string) error { return nil }

func (f *fakeAuthService) RequestPasswordReset(email string) (*models.User, string, error) {
	for _, u := range f.tokens {
		if u.Email == email {
			return u, "reset/" + email, nil
		}
	}
	return nil, "", nil
}

func (f *fakeAuthService) ResetPassword(_ context.Context, token, password string) error {
	if token != "good-reset" {
		return apiError.New("reset link is invalid or has expired", 400)
	}
	f.resets = append(f.resets, password)
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	links []string
	ttls  []time.Duration
}

func (f *fakeMailer) SendWelcomeMessage(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeMailer) SendStatusChange(context.Context, string, string, string, string) (string, error) {
	return "", nil
}

func (f *fakeMailer) SendResetPassword(_ context.Context, email, _, link string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, email+" "+link)
	f.ttls = append(f.ttls, ttl)
	return "id", nil
}

type fakeReportService struct {
	reports map[uint]*models.Report
	nextID  uint
}

func (f *fakeReportService) find(kind models.Kind, id uint) (*models.Report, error) {
	r, ok := f.reports[id]
	if !ok || r.Kind != kind {
		return nil, apiError.New(kind.Label()+" not found", 404)
	}
	return r, nil
}

func (f *fakeReportService) CreateReport(_ context.Context, user *models.User, kind models.Kind, fields *models.ReportFields, files []*multipart.FileHeader) (*models.Report, error) {
	if len(files) > models.MaxReportFiles {
		return nil, apiError.ErrTooManyFiles
	}
	f.nextID++
	r := &models.Report{Kind: kind, Title: fields.Title, Description: fields.Description, Status: models.StatusDraft, UserID: user.ID, User: *user}
	r.ID = f.nextID
	for i, fh := range files {
		r.Media = append(r.Media, models.ReportMedia{Kind: models.MediaImage, Key: "reports/images/" + fh.Filename, Position: i})
	}
	f.reports[r.ID] = r
	return r, nil
}

func (f *fakeReportService) GetReport(kind models.Kind, id uint) (*models.Report, error) {
	return f.find(kind, id)
}

func (f *fakeReportService) ListReports(kind models.Kind, filter db.ReportFilter) ([]models.Report, error) {
	var out []models.Report
	for id := uint(1); id <= f.nextID; id++ {
		r, ok := f.reports[id]
		if !ok || r.Kind != kind {
			continue
		}
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != models.StatusUnknown && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeReportService) mutable(user *models.User, kind models.Kind, id uint) (*models.Report, error) {
	r, err := f.find(kind, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != user.ID {
		return nil, apiError.ErrNotOwner
	}
	if r.Status != models.StatusDraft {
		return nil, apiError.ErrReportLocked(r.Status.Label())
	}
	return r, nil
}

func (f *fakeReportService) UpdateReport(_ context.Context, user *models.User, kind models.Kind, id uint, fields *models.ReportFields, _ []*multipart.FileHeader) (*models.Report, error) {
	r, err := f.mutable(user, kind, id)
	if err != nil {
		return nil, err
	}
	r.Title, r.Description = fields.Title, fields.Description
	return r, nil
}

func (f *fakeReportService) UpdateLocation(user *models.User, kind models.Kind, id uint, req *models.LocationRequest) (*models.Report, error) {
	r, err := f.mutable(user, kind, id)
	if err != nil {
		return nil, err
	}
	r.Latitude, r.Longitude = *req.Latitude, *req.Longitude
	return r, nil
}

func (f *fakeReportService) UpdateStatus(_ context.Context, _ *models.User, kind models.Kind, id uint, target models.Status) (*models.Report, models.Status, error) {
	r, err := f.find(kind, id)
	if err != nil {
		return nil, models.StatusUnknown, err
	}
	from := r.Status
	if !models.CanTransition(from, target) {
		return nil, from, apiError.ErrIllegalTransition(from.Label(), target.Label())
	}
	r.Status = target
	return r, from, nil
}

func (f *fakeReportService) DeleteReport(_ context.Context, user *models.User, kind models.Kind, id uint) error {
	if _, err := f.mutable(user, kind, id); err != nil {
		return err
	}
	delete(f.reports, id)
	return nil
}

type fakeMediaService struct {
	files map[string][]byte
}

func (f *fakeMediaService) ProcessMedia(context.Context, []*multipart.FileHeader) ([]models.ReportMedia, error) {
	return nil, nil
}

func (f *fakeMediaService) ProcessProfilePicture(_ context.Context, fh *multipart.FileHeader) (string, error) {
	key := "profiles/" + fh.Filename
	f.files[key] = []byte("jpeg")
	return key, nil
}

func (f *fakeMediaService) Discard(_ context.Context, keys ...string) {
	for _, k := range keys {
		delete(f.files, k)
	}
}

func (f *fakeMediaService) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, "", db.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), "image/png", nil
}

type fakeCommentService struct {
	comments []models.Comment
}

func (f *fakeCommentService) AddComment(user *models.User, kind models.Kind, reportID uint, req *models.CommentRequest) (*models.Comment, error) {
	c := models.Comment{ReportID: reportID, ReportType: kind, UserID: user.ID, User: *user, Text: req.Text, Type: models.CommentUser}
	c.ID = uint(len(f.comments) + 1)
	c.CreatedAt = time.Now()
	f.comments = append(f.comments, c)
	return &c, nil
}

func (f *fakeCommentService) GetComments(kind models.Kind, reportID uint) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range f.comments {
		if c.ReportID == reportID && c.ReportType == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentService) DeleteComment(user *models.User, id uint) error {
	for i, c := range f.comments {
		if c.ID != id {
			continue
		}
		if c.UserID != user.ID && !user.IsAdmin {
			return apiError.ErrForbidden
		}
		f.comments = append(f.comments[:i], f.comments[i+1:]...)
		return nil
	}
	return apiError.ErrNotFound
}

type fakeUpvoteService struct {
	votes map[uint]map[uint]bool
}

func (f *fakeUpvoteService) summary(userID, reportID uint) *models.UpvoteSummary {
	return &models.UpvoteSummary{Count: int64(len(f.votes[reportID])), UserUpvoted: f.votes[reportID][userID]}
}

func (f *fakeUpvoteService) GetUpvotes(userID uint, _ models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	return f.summary(userID, reportID), nil
}

func (f *fakeUpvoteService) Upvote(userID uint, _ models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	if f.votes[reportID] == nil {
		f.votes[reportID] = map[uint]bool{}
	}
	f.votes[reportID][userID] = true
	return f.summary(userID, reportID), nil
}

func (f *fakeUpvoteService) RemoveUpvote(userID uint, _ models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	delete(f.votes[reportID], userID)
	return f.summary(userID, reportID), nil
}

func (f *fakeUpvoteService) ToggleUpvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	if f.votes[reportID][userID] {
		return f.RemoveUpvote(userID, kind, reportID)
	}
	return f.Upvote(userID, kind, reportID)
}

type fakeNotificationService struct {
	mu    sync.Mutex
	items map[uint][]models.Notification
}

func (f *fakeNotificationService) NotifyStatusChange(context.Context, *models.Report, models.Status, models.Status) {
}

func (f *fakeNotificationService) GetNotifications(userID uint) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[userID], nil
}

func (f *fakeNotificationService) MarkAllRead(userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items[userID] {
		if !f.items[userID][i].IsRead {
			f.items[userID][i].IsRead = true
			n++
		}
	}
	return n, nil
}

type testServer struct {
	*Server
	auth    *fakeAuthService
	reports *fakeReportService
	media   *fakeMediaService
	owner   *models.User
	other   *models.User
	admin   *models.User
}

func newTestServer() *testServer {
	owner := &models.User{FirstName: "Ada", LastName: "Obi", Email: "ada@example.com"}
	owner.ID = 1
	other := &models.User{FirstName: "Tom", LastName: "Kato", Email: "tom@example.com"}
	other.ID = 2
	admin := &models.User{FirstName: "Root", LastName: "Admin", Email: "admin@example.com", IsAdmin: true}
	admin.ID = 3

	auth := &fakeAuthService{
		tokens: map[string]*models.User{"owner-token": owner, "other-token": other, "admin-token": admin},
		logins: map[string]*models.LoginResponse{
			owner.Email: {Token: "owner-token", User: owner.Response()},
		},
	}
	reports := &fakeReportService{reports: map[uint]*models.Report{}}
	media := &fakeMediaService{files: map[string][]byte{}}

	s := &Server{
		Config: &config.Config{
			AccessControlAllowOrigin: "*",
			AuthRateLimit:            100,
			AuthRateWindow:           time.Minute,
			ResetPasswordURL:         "http://localhost:3002/reset-password/",
			ResetTokenTTL:            30 * time.Minute,
		},
		AuthService:         auth,
		ReportService:       reports,
		MediaService:        media,
		CommentService:      &fakeCommentService{},
		UpvoteService:       &fakeUpvoteService{votes: map[uint]map[uint]bool{}},
		NotificationService: &fakeNotificationService{items: map[uint][]models.Notification{}},
		Hub:                 NewHub(),
	}
	return &testServer{Server: s, auth: auth, reports: reports, media: media, owner: owner, other: other, admin: admin}
}

// seed stores a report owned by owner with the given status.
func (ts *testServer) seed(kind models.Kind, status models.Status) *models.Report {
	ts.reports.nextID++
	r := &models.Report{Kind: kind, Title: "Broken bridge", Description: "Collapsed at dawn", Status: status, UserID: ts.owner.ID, User: *ts.owner}
	r.ID = ts.reports.nextID
	ts.reports.reports[r.ID] = r
	return r
}
