package workflow

import (
	"context"
	"encoding/base64"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/client"
	"github.com/techagentng/ireporter/models"
)

// MaxFiles is the most attachments a single report may carry.
const MaxFiles = models.MaxReportFiles

var ErrTooManyFiles = errors.Errorf("a report can have at most %d files", MaxFiles)

// MediaFile is a local file picked for upload.
type MediaFile struct {
	Name string
	Size int64
	MIME string
	Path string
}

func (f MediaFile) FileName() string    { return f.Name }
func (f MediaFile) ContentType() string { return f.MIME }

func (f MediaFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func (f MediaFile) IsImage() bool { return strings.HasPrefix(f.MIME, "image/") }
func (f MediaFile) IsVideo() bool { return strings.HasPrefix(f.MIME, "video/") }

// LoadMediaFile stats path and sniffs its content type.
func LoadMediaFile(path string) (MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaFile{}, errors.Wrapf(err, "reading %s", path)
	}
	if info.IsDir() {
		return MediaFile{}, errors.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return MediaFile{}, errors.Wrapf(err, "detecting type of %s", path)
	}
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return MediaFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		MIME: mime,
		Path: path,
	}, nil
}

// Selection is the outcome of a pick. ResetPicker is always set so the same
// file can be picked again.
type Selection struct {
	Files       []MediaFile
	ResetPicker bool
}

// SelectFiles merges selected into existing, dropping entries with a
// (Name, Size) pair already present. A merge that would exceed MaxFiles is
// refused whole and existing is returned unchanged.
func SelectFiles(existing, selected []MediaFile) (Selection, error) {
	type key struct {
		name string
		size int64
	}
	seen := make(map[key]bool, len(existing)+len(selected))
	merged := make([]MediaFile, 0, len(existing)+len(selected))
	for _, f := range append(append([]MediaFile(nil), existing...), selected...) {
		k := key{f.Name, f.Size}
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, f)
	}
	if len(merged) > MaxFiles {
		return Selection{Files: append([]MediaFile(nil), existing...), ResetPicker: true}, ErrTooManyFiles
	}
	return Selection{Files: merged, ResetPicker: true}, nil
}

// RemoveFile returns files without the item at index. An index out of range
// yields an unchanged copy.
func RemoveFile(files []MediaFile, index int) []MediaFile {
	out := make([]MediaFile, 0, len(files))
	for i, f := range files {
		if i != index {
			out = append(out, f)
		}
	}
	return out
}

// Preview returns a data URL for images, a file URL for videos and "" for
// anything else. Reading the image honours ctx.
func Preview(ctx context.Context, file MediaFile) (string, error) {
	switch {
	case file.IsImage():
		return imageDataURL(ctx, file)
	case file.IsVideo():
		abs, err := filepath.Abs(file.Path)
		if err != nil {
			return "", errors.Wrap(err, "resolving video path")
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	default:
		return "", nil
	}
}

func imageDataURL(ctx context.Context, file MediaFile) (string, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(file.Path)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", errors.Wrapf(res.err, "reading %s", file.Name)
		}
		return "data:" + file.MIME + ";base64," + base64.StdEncoding.EncodeToString(res.data), nil
	}
}

// InlinePreview previews the first image, falling back to the first video.
func InlinePreview(ctx context.Context, files []MediaFile) (string, error) {
	for _, f := range files {
		if f.IsImage() {
			return Preview(ctx, f)
		}
	}
	for _, f := range files {
		if f.IsVideo() {
			return Preview(ctx, f)
		}
	}
	return "", nil
}

// StoredPreview is the URL of a report's already uploaded media, shown while
// editing without new files. fileURL is typically (*client.Client).FileURL.
func StoredPreview(fileURL func(string) string, report client.Report) string {
	switch {
	case len(report.Images) > 0:
		return fileURL(report.Images[0])
	case len(report.Videos) > 0:
		return fileURL(report.Videos[0])
	default:
		return ""
	}
}

func attachments(files []MediaFile) []client.Attachment {
	out := make([]client.Attachment, len(files))
	for i, f := range files {
		out[i] = f
	}
	return out
}
