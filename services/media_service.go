package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
	"golang.org/x/sync/errgroup"
)

const (
	MaxMediaFileSize = 25 * 1024 * 1024 // 25 MB
	MaxImageSide     = 1920
	ProfileImageSide = 256
)

type MediaService interface {
	ProcessMedia(ctx context.Context, files []*multipart.FileHeader) ([]models.ReportMedia, error)
	ProcessProfilePicture(ctx context.Context, file *multipart.FileHeader) (string, error)
	Discard(ctx context.Context, keys ...string)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type mediaService struct {
	store db.MediaStore
}

func NewMediaService(store db.MediaStore) MediaService {
	return &mediaService{store: store}
}

func CheckFileSize(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxMediaFileSize {
		return apiError.New(fmt.Sprintf("%s exceeds the maximum allowed size", fileHeader.Filename), http.StatusRequestEntityTooLarge)
	}
	return nil
}

// getFileType classifies content by its sniffed MIME type.
func getFileType(mime string) models.MediaKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.MediaImage
	case strings.HasPrefix(mime, "video/"):
		return models.MediaVideo
	case strings.HasPrefix(mime, "audio/"):
		return models.MediaAudio
	}
	return ""
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if err := CheckFileSize(fh); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ProcessMedia stores up to MaxReportFiles uploads and returns their media
// rows in upload order. Nothing is stored when any file is rejected.
func (m *mediaService) ProcessMedia(ctx context.Context, files []*multipart.FileHeader) ([]models.ReportMedia, error) {
	if len(files) > models.MaxReportFiles {
		return nil, apiError.ErrTooManyFiles
	}

	type prepared struct {
		body []byte
		mime string
		kind models.MediaKind
		ext  string
	}
	items := make([]prepared, len(files))
	for i, fh := range files {
		body, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		mime := mimetype.Detect(body)
		kind := getFileType(mime.String())
		if kind == "" {
			return nil, apiError.ErrUnsupportedMedia
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if ext == "" {
			ext = mime.Extension()
		}
		if kind == models.MediaImage {
			body, mime, err = normalizeImage(body, mime)
			if err != nil {
				return nil, apiError.New(fmt.Sprintf("%s is not a readable image", fh.Filename), http.StatusBadRequest)
			}
			ext = mime.Extension()
		}
		items[i] = prepared{body: body, mime: mime.String(), kind: kind, ext: ext}
	}

	media := make([]models.ReportMedia, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			key := db.NewMediaKey("reports/"+string(it.kind)+"s", "file"+it.ext)
			if err := m.store.Put(gctx, key, it.mime, it.body); err != nil {
				return err
			}
			media[i] = models.ReportMedia{
				Kind:        it.kind,
				Key:         key,
				ContentType: it.mime,
				Size:        int64(len(it.body)),
				Position:    i,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("storing report media")
		var stored []string
		for _, md := range media {
			if md.Key != "" {
				stored = append(stored, md.Key)
			}
		}
		m.Discard(context.Background(), stored...)
		return nil, apiError.ErrInternalServerError
	}
	return media, nil
}

// normalizeImage applies EXIF orientation and fits the image into
// MaxImageSide x MaxImageSide.
func normalizeImage(body []byte, mime *mimetype.MIME) ([]byte, *mimetype.MIME, error) {
	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err == image.ErrFormat {
		// no decoder registered (webp, heic): keep the upload as is
		return body, mime, nil
	}
	if err != nil {
		return nil, nil, err
	}
	b := img.Bounds()
	if b.Dx() > MaxImageSide || b.Dy() > MaxImageSide {
		img = imaging.Fit(img, MaxImageSide, MaxImageSide, imaging.Lanczos)
	}

	format, err := imaging.FormatFromExtension(mime.Extension())
	if err != nil {
		format = imaging.JPEG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, nil, err
	}
	out := buf.Bytes()
	return out, mimetype.Detect(out), nil
}

// ProcessProfilePicture stores a square-bounded JPEG thumbnail of the upload.
func (m *mediaService) ProcessProfilePicture(ctx context.Context, file *multipart.FileHeader) (string, error) {
	body, err := readUpload(file)
	if err != nil {
		return "", err
	}
	if getFileType(mimetype.Detect(body).String()) != models.MediaImage {
		return "", apiError.ErrUnsupportedMedia
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return "", apiError.New("profile picture is not a readable image", http.StatusBadRequest)
	}
	thumb := resize.Thumbnail(ProfileImageSide, ProfileImageSide, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return "", apiError.ErrInternalServerError
	}
	key := db.NewMediaKey("profiles", "picture.jpg")
	if err := m.store.Put(ctx, key, "image/jpeg", buf.Bytes()); err != nil {
		logrus.WithError(err).Error("storing profile picture")
		return "", apiError.ErrInternalServerError
	}
	return key, nil
}

// Discard removes stored files. Failures are logged only.
func (m *mediaService) Discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := m.store.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("failed to delete media")
		}
	}
}

func (m *mediaService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	rc, contentType, err := m.store.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = mimeFromExt(key)
	}
	return rc, contentType, nil
}

func mimeFromExt(key string) string {
	if v, ok := extToMIME[strings.ToLower(filepath.Ext(key))]; ok {
		return v
	}
	return "application/octet-stream"
}

var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
}
