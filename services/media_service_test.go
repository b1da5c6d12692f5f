package services

import (
	"bytes"
	"context"
	"image"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
)

func newMediaFixture(t *testing.T) MediaService {
	t.Helper()
	store, err := db.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return NewMediaService(store)
}

func TestProcessMediaRejectsMoreThanTwoFiles(t *testing.T) {
	svc := newMediaFixture(t)
	files := fileHeaders(t, map[string][]byte{
		"a.png": pngBytes(t, 2, 2),
		"b.png": pngBytes(t, 2, 2),
		"c.png": pngBytes(t, 2, 2),
	})

	_, err := svc.ProcessMedia(context.Background(), files)
	assert.Equal(t, apiError.ErrTooManyFiles, err)
}

func TestProcessMediaRejectsUnsupportedType(t *testing.T) {
	svc := newMediaFixture(t)
	files := fileHeaders(t, map[string][]byte{"notes.txt": []byte("just some text")})

	_, err := svc.ProcessMedia(context.Background(), files)
	assert.Equal(t, apiError.ErrUnsupportedMedia, err)
}

func TestProcessMediaFitsLargeImages(t *testing.T) {
	svc := newMediaFixture(t)
	files := fileHeaders(t, map[string][]byte{"wide.png": pngBytes(t, 2400, 10)})

	media, err := svc.ProcessMedia(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, media, 1)
	assert.Equal(t, models.MediaImage, media[0].Kind)
	assert.Equal(t, "image/png", media[0].ContentType)

	rc, contentType, err := svc.Open(context.Background(), media[0].Key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", contentType)

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, MaxImageSide, cfg.Width)
}

func TestProcessProfilePictureMakesThumbnail(t *testing.T) {
	svc := newMediaFixture(t)
	files := fileHeaders(t, map[string][]byte{"me.png": pngBytes(t, 1024, 512)})

	key, err := svc.ProcessProfilePicture(context.Background(), files[0])
	require.NoError(t, err)

	rc, contentType, err := svc.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/jpeg", contentType)

	cfg, format, err := image.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, ProfileImageSide, cfg.Width)
	assert.Equal(t, ProfileImageSide/2, cfg.Height)
}

func TestProcessProfilePictureRejectsNonImage(t *testing.T) {
	svc := newMediaFixture(t)
	files := fileHeaders(t, map[string][]byte{"me.txt": []byte("hello")})

	_, err := svc.ProcessProfilePicture(context.Background(), files[0])
	assert.Equal(t, http.StatusUnsupportedMediaType, apiError.StatusOf(err))
}
