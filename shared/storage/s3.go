package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrNotConfigured = errors.New("file storage is not configured")

// Uploader stores an object and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// S3Uploader writes objects to one bucket
type S3Uploader struct {
	uploader  *s3manager.Uploader
	bucket    string
	publicURL string
}

// NewS3Uploader builds an uploader from configuration. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Uploader(cfg config.S3Config) (*S3Uploader, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Uploader{
		uploader:  s3manager.NewUploader(sess),
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"bucket": u.bucket, "key": key}).WithError(err).Error("Upload failed")
		return "", apperrors.Unavailable("File storage unavailable", err)
	}
	return u.publicURL + "/" + key, nil
}

// ObjectKey places an upload under its client's prefix with a fresh name
// that keeps the original extension
func ObjectKey(clientID uuid.UUID, filename string) string {
	return fmt.Sprintf("clients/%s/%s%s", clientID, uuid.New(), strings.ToLower(path.Ext(filename)))
}
