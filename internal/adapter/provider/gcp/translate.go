package gcp

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// translateClient is the subset of *translate.Client used here.
type translateClient interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// Translator translates single words with Cloud Translation (v2 API).
type Translator struct {
	client translateClient
	log    *slog.Logger
}

// NewTranslator wraps an existing client.
func NewTranslator(client translateClient, logger *slog.Logger) *Translator {
	return &Translator{client: client, log: logger.With("adapter", "gcp.translate")}
}

// DialTranslator opens a Cloud Translation client. A non-empty apiKey is
// used instead of the service account credentials in opts.
func DialTranslator(ctx context.Context, apiKey string, logger *slog.Logger, opts ...option.ClientOption) (*Translator, error) {
	if apiKey != "" {
		opts = []option.ClientOption{option.WithAPIKey(apiKey)}
	}
	c, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("translate client: %w", err)
	}
	return NewTranslator(c, logger), nil
}

// Translate returns text rendered in the target language. HTML entities in
// the response are decoded before returning.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	src, err := language.Parse(from)
	if err != nil {
		return "", fmt.Errorf("translate: source language %q: %w", from, err)
	}
	dst, err := language.Parse(to)
	if err != nil {
		return "", fmt.Errorf("translate: target language %q: %w", to, err)
	}

	t.log.DebugContext(ctx, "translate request",
		slog.String("text", text), slog.String("from", from), slog.String("to", to))

	res, err := t.client.Translate(ctx, []string{text}, dst, &translate.Options{
		Source: src,
		Format: translate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(res) == 0 {
		return "", fmt.Errorf("translate: empty response")
	}

	out := strings.TrimSpace(html.UnescapeString(res[0].Text))
	if out == "" {
		return "", fmt.Errorf("translate: blank translation")
	}
	return out, nil
}

// Close releases the underlying client.
func (t *Translator) Close() error {
	return t.client.Close()
}
