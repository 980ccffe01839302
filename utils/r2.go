// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	appconfig "cat-game-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MediaStore saves an uploaded object and returns its public URL.
type MediaStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// NewMediaStore returns the R2 store when credentials are configured and the
// local uploads dir otherwise.
func NewMediaStore(ctx context.Context, cfg appconfig.R2Config) (MediaStore, error) {
	if !cfg.Enabled() {
		log.Println("⚠️  [MEDIA] R2 is not configured; storing uploads locally")
		return &LocalStore{Dir: UploadDir, URLPrefix: "/" + UploadDir}, nil
	}
	return NewR2Store(ctx, cfg)
}

// R2Store writes objects to a Cloudflare R2 bucket through the S3 API.
type R2Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewR2Store(ctx context.Context, cfg appconfig.R2Config) (*R2Store, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	baseURL := strings.TrimRight(cfg.CDNBaseURL, "/")
	if baseURL == "" {
		baseURL = endpoint + "/" + cfg.Bucket
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Store{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

func (r *R2Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	// ✅ Public CDN URL when set, bucket URL otherwise
	return fmt.Sprintf("%s/%s", r.baseURL, key), nil
}

// MediaKey builds "<folder>/<slug>-<8 hex chars><ext>" for an uploaded file name.
func MediaKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	folder = slug.Make(folder)
	if folder == "" {
		folder = "media"
	}
	return fmt.Sprintf("%s/%s-%s%s", folder, base, uuid.NewString()[:8], ext)
}
