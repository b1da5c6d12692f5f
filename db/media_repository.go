package db

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/config"
)

// MediaStore keeps uploaded files. Keys are slash separated and relative, for
// example "reports/3f2c....jpg"; clients fetch them from /uploads/<key>.
type MediaStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// NewMediaKey builds a unique object key under folder keeping the extension of name.
func NewMediaKey(folder, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)
}

// NewMediaStore picks the store named by c.MediaStore.
func NewMediaStore(ctx context.Context, c *config.Config) (MediaStore, error) {
	switch c.MediaStore {
	case "s3":
		return NewS3Store(ctx, c)
	case "disk", "":
		return NewDiskStore(c.UploadDir)
	default:
		return nil, fmt.Errorf("unknown media store %q", c.MediaStore)
	}
}

type S3Store struct {
	Client *s3.Client
	Bucket string
}

func NewS3Store(ctx context.Context, c *config.Config) (*S3Store, error) {
	if c.AWSBucket == "" {
		return nil, errors.New("aws bucket is not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.AWSRegion)}
	if c.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AWSAccessKey, c.AWSSecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load AWS config")
	}
	return &S3Store{Client: s3.NewFromConfig(cfg), Bucket: c.AWSBucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	return errors.Wrapf(err, "failed to upload %s to S3", key)
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, "", errors.Wrap(ErrNotFound, key)
		}
		return nil, "", errors.Wrapf(err, "failed to fetch %s from S3", key)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "failed to delete %s from S3", key)
}

// DiskStore keeps media under a local directory.
type DiskStore struct {
	Root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &DiskStore{Root: root}, nil
}

// resolve maps key onto a path inside Root, rejecting traversal.
func (d *DiskStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.Wrap(ErrNotFound, key)
	}
	return filepath.Join(d.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (d *DiskStore) Put(_ context.Context, key, _ string, body []byte) error {
	p, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "create media dir")
	}
	return errors.Wrap(os.WriteFile(p, body, 0o644), "write media")
}

func (d *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	p, err := d.resolve(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.Wrap(ErrNotFound, key)
		}
		return nil, "", errors.Wrap(err, "open media")
	}
	return f, "", nil
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	p, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete media")
	}
	return nil
}
