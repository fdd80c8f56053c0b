// Package media stores user-supplied images on an S3 compatible object store
// and returns their public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
)

// ErrEmptyPath is returned when Upload is called without a file.
var ErrEmptyPath = errors.New("empty file path")

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config describes the bucket uploads go to.
type S3Config struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string // empty for AWS, e.g. http://minio:9000 otherwise
	Bucket        string
	PublicBaseURL string // prefix of returned URLs, defaults to Endpoint
}

// S3Uploader uploads local files and returns where they can be fetched.
type S3Uploader struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Uploader builds an S3 client from static credentials.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicBaseURL
	if publicURL == "" {
		publicURL = cfg.Endpoint
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	return NewUploader(client, cfg.Bucket, publicURL), nil
}

// NewUploader wraps an existing client.
func NewUploader(client ObjectPutter, bucket, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicBaseURL, "/"),
		now:       time.Now,
	}
}

// Upload stores the file at localPath under a fresh key and returns its URL.
// The caller owns localPath and removes it afterwards.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", ErrEmptyPath
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	contentType, err := detectContentType(f)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}

	key := fmt.Sprintf("users/%s/%s%s",
		u.now().UTC().Format("2006/01/02"),
		uuid.NewString(),
		strings.ToLower(filepath.Ext(localPath)),
	)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	logger.Log.Infow("media upload",
		"bucket", u.bucket,
		"key", key,
		"content_type", contentType,
		"error", err,
	)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", u.publicURL, u.bucket, key), nil
}

func detectContentType(f *os.File) (string, error) {
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
