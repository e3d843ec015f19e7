package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/yungbote/travelog-backend/internal/platform/apierr"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const recordKeyPrefix = "records"

// ImageBucket stores record images in a single GCS bucket and hands back
// their public URLs. Delete accepts those URLs again.
type ImageBucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    ObjectStorageConfig
	now    func() time.Time
}

func NewImageBucket(ctx context.Context, log *logger.Logger, raw ObjectStorageConfig) (*ImageBucket, error) {
	cfg, err := ResolveObjectStorageConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	b := newImageBucket(log, client, cfg)
	b.log.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
		"bucket", cfg.Bucket,
	)
	return b, nil
}

func newImageBucket(log *logger.Logger, client *storage.Client, cfg ObjectStorageConfig) *ImageBucket {
	if log == nil {
		log = logger.Nop()
	}
	return &ImageBucket{
		log:    log.With("service", "ImageBucket"),
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
}

func (b *ImageBucket) BucketName() string { return b.cfg.Bucket }

func (b *ImageBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

// Upload writes data under records/<yyyy>/<mm>/<uuid>.<ext> and returns the
// object's public URL.
func (b *ImageBucket) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	const op = "gcs.upload"
	key := NewObjectKey(b.now(), contentType)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", apierr.Storage(op, fmt.Errorf("write %q: %w", key, err))
	}
	if err := w.Close(); err != nil {
		return "", apierr.Storage(op, fmt.Errorf("close writer for %q: %w", key, err))
	}
	return b.PublicURL(key), nil
}

// Delete removes the object behind a URL produced by Upload. An object that
// is already gone counts as deleted.
func (b *ImageBucket) Delete(ctx context.Context, rawURL string) error {
	const op = "gcs.delete"
	key, err := b.keyForURL(rawURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := b.client.Bucket(b.cfg.Bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			b.log.Debug("Object already deleted", "key", key)
			return nil
		}
		return apierr.Storage(op, fmt.Errorf("delete %q in bucket %q: %w", key, b.cfg.Bucket, err))
	}
	return nil
}

func (b *ImageBucket) keyForURL(rawURL string) (string, error) {
	if cdn := b.cfg.CDNDomain; cdn != "" {
		prefix := "https://" + cdn + "/"
		if strings.HasPrefix(rawURL, prefix) {
			key, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
			if err == nil && key != "" {
				return key, nil
			}
		}
	}
	return ObjectKeyFromURL(rawURL, b.cfg.Bucket)
}

func (b *ImageBucket) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", b.cfg.CDNDomain, key)
	}
	if b.cfg.IsEmulatorMode() && b.cfg.PublicBaseURL != "" {
		return fmt.Sprintf(
			"%s/storage/v1/b/%s/o/%s?alt=media",
			b.cfg.PublicBaseURL,
			url.PathEscape(b.cfg.Bucket),
			url.PathEscape(key),
		)
	}
	if b.cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", b.cfg.PublicBaseURL, b.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.cfg.Bucket, key)
}

// ObjectKeyFromURL returns the object key that follows the bucket segment of
// rawURL. Emulator media URLs (/storage/v1/b/<bucket>/o/<key>) are understood
// as well. A URL without the bucket segment, or with nothing after it, is a
// storage-key error.
func ObjectKeyFromURL(rawURL, bucket string) (string, error) {
	const op = "gcs.object_key"
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	if bucket == "" {
		return "", apierr.StorageKey(op, "bucket name is empty")
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", apierr.StorageKey(op, "unparseable url %q: %v", rawURL, err)
	}

	var escaped string
	switch {
	case u.Host == bucket || strings.HasPrefix(u.Host, bucket+".storage.googleapis.com"):
		escaped = strings.TrimPrefix(u.EscapedPath(), "/")
	default:
		segs := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")
		idx := -1
		for i, s := range segs {
			if s == bucket {
				idx = i
				break
			}
		}
		if idx < 0 {
			return "", apierr.StorageKey(op, "bucket %q not found in url %q", bucket, rawURL)
		}
		rest := segs[idx+1:]
		if idx > 0 && segs[idx-1] == "b" && len(rest) > 0 && rest[0] == "o" {
			rest = rest[1:]
		}
		escaped = strings.Join(rest, "/")
	}

	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", apierr.StorageKey(op, "bad escape in url %q: %v", rawURL, err)
	}
	if strings.Trim(key, "/") == "" {
		return "", apierr.StorageKey(op, "empty object key in url %q", rawURL)
	}
	return key, nil
}

// NewObjectKey builds records/<yyyy>/<mm>/<uuid><ext>.
func NewObjectKey(now time.Time, contentType string) string {
	now = now.UTC()
	name := uuid.New().String() + extForContentType(contentType)
	return path.Join(recordKeyPrefix, now.Format("2006"), now.Format("01"), name)
}

func extForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
