// Package storage keeps uploaded medical report files in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// ObjectClient is the subset of *minio.Client the report store uses.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	EndpointURL() *url.URL
}

// StoredObject describes an uploaded file.
type StoredObject struct {
	Key  string
	URL  string
	Size int64
}

// ReportStore stores report files in one bucket.
type ReportStore struct {
	client ObjectClient
	bucket string
	now    func() time.Time
}

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewMinIO connects to a MinIO endpoint.
func NewMinIO(cfg Config) (*ReportStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	log.WithField("endpoint", cfg.Endpoint).Info("Connected to MinIO endpoint")
	return NewReportStore(client, cfg.Bucket), nil
}

func NewReportStore(client ObjectClient, bucket string) *ReportStore {
	return &ReportStore{client: client, bucket: bucket, now: time.Now}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ReportStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	log.WithField("bucket", s.bucket).Info("Created report bucket")
	return nil
}

// Upload stores r under a key scoped to the patient. size may be -1 when unknown.
func (s *ReportStore) Upload(ctx context.Context, patientID, filename, contentType string, r io.Reader, size int64) (*StoredObject, error) {
	key := ObjectKey(patientID, filename, s.now())
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to store object in S3: %w", err)
	}

	log.WithFields(log.Fields{"bucket": s.bucket, "key": key, "size": info.Size}).Info("Stored report file")
	return &StoredObject{Key: key, URL: s.objectURL(key), Size: info.Size}, nil
}

// Delete removes a stored file. Removing a missing key is not an error.
func (s *ReportStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", key, err)
	}
	return nil
}

func (s *ReportStore) objectURL(key string) string {
	u := *s.client.EndpointURL()
	u.Path = path.Join("/", s.bucket, key)
	return u.String()
}

// ObjectKey builds reports/<patient>/<unix-nanos>-<sanitized filename>.
func ObjectKey(patientID, filename string, at time.Time) string {
	return fmt.Sprintf("reports/%s/%d-%s", sanitizeKey(patientID), at.UnixNano(), sanitizeKey(path.Base(filename)))
}

// sanitizeKey lowercases and replaces anything outside [a-z0-9._-] with hyphens.
func sanitizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 || s == "." || s == "/" {
		return "file"
	}
	return b.String()
}
