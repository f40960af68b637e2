package gcp

import (
	"context"
	"fmt"
	"log/slog"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// synthesizeClient is the subset of *texttospeech.Client used here.
type synthesizeClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Synthesizer produces MP3 speech with Cloud Text-to-Speech.
type Synthesizer struct {
	client     synthesizeClient
	log        *slog.Logger
	maxRetries int
}

// NewSynthesizer wraps an existing client.
func NewSynthesizer(client synthesizeClient, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{client: client, log: logger.With("adapter", "gcp.tts"), maxRetries: 2}
}

// DialSynthesizer opens a Text-to-Speech client.
func DialSynthesizer(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Synthesizer, error) {
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	return NewSynthesizer(c, logger), nil
}

// Synthesize returns MP3 audio of text spoken in languageCode with a neutral voice.
func (s *Synthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	resp, err := retry(ctx, s.maxRetries, func() (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return s.client.SynthesizeSpeech(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("synthesize speech: empty audio")
	}

	s.log.DebugContext(ctx, "speech synthesized",
		slog.String("language", languageCode), slog.Int("bytes", len(resp.GetAudioContent())))

	return resp.GetAudioContent(), nil
}

// Close releases the underlying client.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}
