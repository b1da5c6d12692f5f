package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/ireporter/db"
	"github.com/techagentng/ireporter/models"
)

type fakeAuthRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: map[uint]*models.User{}}
}

func (f *fakeAuthRepo) CreateUser(user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return user, nil
}

func (f *fakeAuthRepo) IsEmailExist(email string) error {
	if _, err := f.FindUserByEmail(email); err == nil {
		return errors.New("email already in use")
	}
	return nil
}

func (f *fakeAuthRepo) FindUserByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.Wrap(db.ErrNotFound, "user")
}

func (f *fakeAuthRepo) FindUserByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, errors.Wrap(db.ErrNotFound, "user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuthRepo) EditUserProfile(userID uint, details *models.EditProfileRequest) (*models.User, error) {
	f.mu.Lock()
	u, ok := f.users[userID]
	if !ok {
		f.mu.Unlock()
		return nil, errors.Wrap(db.ErrNotFound, "user")
	}
	if details.FirstName != nil {
		u.FirstName = *details.FirstName
	}
	if details.LastName != nil {
		u.LastName = *details.LastName
	}
	if details.Phone != nil {
		u.Phone = *details.Phone
	}
	f.mu.Unlock()
	return f.FindUserByID(userID)
}

func (f *fakeAuthRepo) UpsertUserImage(userID uint, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.Wrap(db.ErrNotFound, "user")
	}
	u.ProfilePicture = key
	return nil
}

func (f *fakeAuthRepo) SetAdmin(email string, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u.IsAdmin = isAdmin
			return nil
		}
	}
	return errors.Wrap(db.ErrNotFound, "user")
}

func (f *fakeAuthRepo) UpdatePassword(email, hashedPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u.HashedPassword = hashedPassword
			return nil
		}
	}
	return errors.Wrap(db.ErrNotFound, "user")
}

func (f *fakeAuthRepo) GetAllUsers() ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Duration
}

func (f *fakeBlacklist) AddToBlackList(_ context.Context, token string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[string]time.Duration{}
	}
	f.tokens[token] = ttl
	return nil
}

func (f *fakeBlacklist) IsTokenInBlacklist(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	return ok, nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	nextID  uint
	reports map[uint]*models.Report
	users   *fakeAuthRepo
	// beforeWrite runs between the service's lookup and an owner's write.
	beforeWrite func(id uint)
}

func newFakeReportRepo(users *fakeAuthRepo) *fakeReportRepo {
	return &fakeReportRepo{reports: map[uint]*models.Report{}, users: users}
}

func (f *fakeReportRepo) CreateReport(report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	report.ID = f.nextID
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	cp := *report
	cp.Media = append([]models.ReportMedia(nil), report.Media...)
	f.reports[report.ID] = &cp
	return nil
}

func (f *fakeReportRepo) FindReport(kind models.Kind, id uint) (*models.Report, error) {
	f.mu.Lock()
	r, ok := f.reports[id]
	if !ok || r.Kind != kind {
		f.mu.Unlock()
		return nil, errors.Wrap(db.ErrNotFound, "report")
	}
	cp := *r
	cp.Media = append([]models.ReportMedia(nil), r.Media...)
	f.mu.Unlock()
	if u, err := f.users.FindUserByID(cp.UserID); err == nil {
		cp.User = *u
	}
	return &cp, nil
}

func (f *fakeReportRepo) ListReports(kind models.Kind, filter db.ReportFilter) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Report
	for _, r := range f.reports {
		if r.Kind != kind {
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
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// editable mirrors the guarded WHERE of the gorm repo. Callers hold f.mu.
func (f *fakeReportRepo) editable(id, userID uint) (*models.Report, error) {
	r, ok := f.reports[id]
	if !ok || r.UserID != userID || r.Status != models.StatusDraft {
		return nil, db.ErrNotEditable
	}
	return r, nil
}

func (f *fakeReportRepo) hook(id uint) {
	if f.beforeWrite != nil {
		f.beforeWrite(id)
	}
}

func (f *fakeReportRepo) UpdateReport(report *models.Report, media []models.ReportMedia) error {
	f.hook(report.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.editable(report.ID, report.UserID)
	if err != nil {
		return err
	}
	r.Title, r.Description = report.Title, report.Description
	r.Latitude, r.Longitude = report.Latitude, report.Longitude
	if media != nil {
		r.Media = append([]models.ReportMedia(nil), media...)
	}
	return nil
}

func (f *fakeReportRepo) UpdateLocation(id, userID uint, lat, lng float64) error {
	f.hook(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.editable(id, userID)
	if err != nil {
		return err
	}
	r.Latitude, r.Longitude = lat, lng
	return nil
}

func (f *fakeReportRepo) UpdateStatus(id uint, from, to models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok || r.Status != from {
		return db.ErrStaleStatus
	}
	r.Status = to
	return nil
}

func (f *fakeReportRepo) DeleteReport(id, userID uint) ([]models.ReportMedia, error) {
	f.hook(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.editable(id, userID)
	if err != nil {
		return nil, err
	}
	delete(f.reports, id)
	return r.Media, nil
}

// setStatus bypasses the workflow, the way an earlier admin action would have.
func (f *fakeReportRepo) setStatus(id uint, s models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[id].Status = s
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []models.Notification
}

func (f *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uint(len(f.items) + 1)
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotificationRepo) ListNotifications(userID uint) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkAllRead(userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent map[uint][]models.Notification
}

func (f *fakePublisher) Publish(userID uint, n *models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[uint][]models.Notification{}
	}
	f.sent[userID] = append(f.sent[userID], *n)
}

type fakeMailer struct {
	mu     sync.Mutex
	emails []string
}

func (f *fakeMailer) SendWelcomeMessage(_ context.Context, email, _ string) (string, error) {
	return "", nil
}

func (f *fakeMailer) SendStatusChange(_ context.Context, email, _, _, status string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email+":"+status)
	return "id", nil
}

func (f *fakeMailer) SendResetPassword(_ context.Context, email, _, link string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email+":"+link)
	return "id", nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[uint]*models.Comment
	nextID   uint
}

func (f *fakeCommentRepo) CreateComment(c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.comments == nil {
		f.comments = map[uint]*models.Comment{}
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.comments[c.ID] = &cp
	return nil
}

func (f *fakeCommentRepo) ListComments(reportID uint) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Comment
	for _, c := range f.comments {
		if c.ReportID == reportID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCommentRepo) FindComment(id uint) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, errors.Wrap(db.ErrNotFound, "comment")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCommentRepo) DeleteComment(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return errors.Wrap(db.ErrNotFound, "comment")
	}
	delete(f.comments, id)
	return nil
}

type fakeUpvoteRepo struct {
	mu    sync.Mutex
	votes map[[2]uint]bool
}

func (f *fakeUpvoteRepo) AddUpvote(userID, reportID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.votes == nil {
		f.votes = map[[2]uint]bool{}
	}
	f.votes[[2]uint{userID, reportID}] = true
	return nil
}

func (f *fakeUpvoteRepo) RemoveUpvote(userID, reportID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.votes, [2]uint{userID, reportID})
	return nil
}

func (f *fakeUpvoteRepo) HasUpvoted(userID, reportID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.votes[[2]uint{userID, reportID}], nil
}

func (f *fakeUpvoteRepo) CountUpvotes(reportID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.votes {
		if k[1] == reportID {
			n++
		}
	}
	return n, nil
}

// fileHeaders builds multipart headers the way gin hands them to handlers.
func fileHeaders(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["images"]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
