// Package gcp adapts Google Cloud clients (Translation, Text-to-Speech,
// Cloud Storage, Vision, Speech-to-Text) to the small interfaces the
// materialization services depend on.
package gcp

import (
	"context"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Queyrouzec/vocappulary-server/internal/config"
)

// ClientOptions builds client options from the google config section.
// Inline JSON wins over a credentials file; with neither, the clients fall
// back to application default credentials.
func ClientOptions(cfg config.GoogleConfig) []option.ClientOption {
	opts := []option.ClientOption{}

	creds := strings.TrimSpace(cfg.CredentialsJSON)
	if creds == "" {
		creds = strings.TrimSpace(cfg.CredentialsFile)
	}
	if creds == "" {
		return opts
	}

	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

// Transient reports whether err is a gRPC failure worth retrying.
func Transient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// retry calls fn until it succeeds, fails permanently, or maxRetries extra
// attempts are used up. The caller's context deadline bounds the whole loop.
func retry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	backoff := 250 * time.Millisecond
	var zero T
	var last error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, err := fn()
		if err == nil {
			return res, nil
		}
		last = err
		if !Transient(err) || attempt == maxRetries {
			break
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
	return zero, last
}
