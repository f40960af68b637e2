package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// objectStore is the bucket surface used by Uploader.
type objectStore interface {
	NewWriter(ctx context.Context, key string) io.WriteCloser
	Delete(ctx context.Context, key string) error
}

type gcsBucket struct {
	h *storage.BucketHandle
}

func (b gcsBucket) NewWriter(ctx context.Context, key string) io.WriteCloser {
	w := b.h.Object(key).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	w.CacheControl = "public, max-age=31536000, immutable"
	return w
}

func (b gcsBucket) Delete(ctx context.Context, key string) error {
	return b.h.Object(key).Delete(ctx)
}

// Uploader stores objects in one Cloud Storage bucket and hands out their
// public URLs.
type Uploader struct {
	store   objectStore
	bucket  string
	baseURL string
	closer  io.Closer
	log     *slog.Logger
}

// NewUploader wraps an object store for bucket. Public URLs have the form
// <publicBaseURL>/<bucket>/<key>.
func NewUploader(store objectStore, bucket, publicBaseURL string, logger *slog.Logger) *Uploader {
	return &Uploader{
		store:   store,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		log:     logger.With("adapter", "gcp.storage"),
	}
}

// DialUploader opens a Cloud Storage client bound to bucket.
func DialUploader(ctx context.Context, bucket, publicBaseURL string, logger *slog.Logger, opts ...option.ClientOption) (*Uploader, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	u := NewUploader(gcsBucket{h: c.Bucket(bucket)}, bucket, publicBaseURL, logger)
	u.closer = c
	return u, nil
}

// Upload writes r to key and returns the object's public URL.
func (u *Uploader) Upload(ctx context.Context, r io.Reader, key string) (string, error) {
	w := u.store.NewWriter(ctx, key)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: write: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: close: %w", key, err)
	}

	u.log.DebugContext(ctx, "object uploaded", slog.String("key", key), slog.Int64("bytes", n))
	return u.PublicURL(key), nil
}

// Delete removes key. A missing object is not an error.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if err := u.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL an object at key is served from.
func (u *Uploader) PublicURL(key string) string {
	return u.baseURL + "/" + u.bucket + "/" + strings.TrimLeft(key, "/")
}

// Close releases the underlying client, if this Uploader opened one.
func (u *Uploader) Close() error {
	if u.closer == nil {
		return nil
	}
	return u.closer.Close()
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
