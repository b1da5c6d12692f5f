package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
)

func TestCommentsLifecycle(t *testing.T) {
	f := newReportFixture(t)
	r := f.create(t, models.KindRedFlag)
	svc := NewCommentService(&fakeCommentRepo{}, f.svc)

	c, err := svc.AddComment(f.other, models.KindRedFlag, r.ID, &models.CommentRequest{Text: "Seen it too"})
	require.NoError(t, err)
	assert.Equal(t, models.CommentUser, c.Type)
	assert.Equal(t, models.KindRedFlag, c.ReportType)

	_, err = svc.AddComment(f.other, models.KindRedFlag, r.ID, &models.CommentRequest{Text: "x", Type: "official"})
	assert.Equal(t, apiError.ErrAdminOnly, err)

	_, err = svc.AddComment(f.admin, models.KindRedFlag, r.ID, &models.CommentRequest{Text: "Looking into it", Type: "official"})
	require.NoError(t, err)

	_, err = svc.AddComment(f.other, models.KindIntervention, r.ID, &models.CommentRequest{Text: "wrong kind"})
	assert.Equal(t, http.StatusNotFound, apiError.StatusOf(err))

	comments, err := svc.GetComments(models.KindRedFlag, r.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	err = svc.DeleteComment(f.owner, c.ID)
	assert.Equal(t, http.StatusForbidden, apiError.StatusOf(err))
	require.NoError(t, svc.DeleteComment(f.other, c.ID))

	err = svc.DeleteComment(f.admin, c.ID)
	assert.Equal(t, http.StatusNotFound, apiError.StatusOf(err))
}

func TestUpvotes(t *testing.T) {
	f := newReportFixture(t)
	r := f.create(t, models.KindIntervention)
	svc := NewUpvoteService(&fakeUpvoteRepo{}, f.svc)

	s, err := svc.Upvote(f.other.ID, models.KindIntervention, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UpvoteSummary{Count: 1, UserUpvoted: true}, *s)

	s, err = svc.Upvote(f.other.ID, models.KindIntervention, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Count, "upvoting twice counts once")

	s, err = svc.GetUpvotes(f.owner.ID, models.KindIntervention, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UpvoteSummary{Count: 1, UserUpvoted: false}, *s)

	s, err = svc.ToggleUpvote(f.owner.ID, models.KindIntervention, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UpvoteSummary{Count: 2, UserUpvoted: true}, *s)

	s, err = svc.ToggleUpvote(f.owner.ID, models.KindIntervention, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UpvoteSummary{Count: 1, UserUpvoted: false}, *s)

	_, err = svc.Upvote(f.other.ID, models.KindRedFlag, r.ID)
	assert.Equal(t, http.StatusNotFound, apiError.StatusOf(err))
}
