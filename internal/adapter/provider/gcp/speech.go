package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// recognizeClient is the subset of *speech.Client used here.
type recognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Recognizer transcribes short AMR wideband recordings with Cloud Speech-to-Text.
type Recognizer struct {
	client     recognizeClient
	sampleRate int32
	log        *slog.Logger
	maxRetries int
}

// NewRecognizer wraps an existing client.
func NewRecognizer(client recognizeClient, sampleRateHertz int, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		client:     client,
		sampleRate: int32(sampleRateHertz),
		log:        logger.With("adapter", "gcp.speech"),
		maxRetries: 2,
	}
}

// DialRecognizer opens a Speech-to-Text client.
func DialRecognizer(ctx context.Context, sampleRateHertz int, logger *slog.Logger, opts ...option.ClientOption) (*Recognizer, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return NewRecognizer(c, sampleRateHertz, logger), nil
}

// Transcribe returns the best transcript of audio spoken in languageCode.
// Multiple result segments are joined with a space. Silence yields "".
func (r *Recognizer) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_AMR_WB,
			SampleRateHertz: r.sampleRate,
			LanguageCode:    languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := retry(ctx, r.maxRetries, func() (*speechpb.RecognizeResponse, error) {
		return r.client.Recognize(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("speech Recognize: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, res := range resp.GetResults() {
		alts := res.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	transcript := strings.Join(parts, " ")

	r.log.DebugContext(ctx, "speech recognized",
		slog.String("language", languageCode), slog.String("transcript", transcript))
	return transcript, nil
}

// Close releases the underlying client.
func (r *Recognizer) Close() error {
	return r.client.Close()
}
