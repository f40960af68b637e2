// Package audio attaches synthesized pronunciation audio to translations.
package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

type translationRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Translation, error)
	SetAudioURL(ctx context.Context, id uuid.UUID, url string) (bool, error)
}

type synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

type uploader interface {
	Upload(ctx context.Context, r io.Reader, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Config bounds the external calls and places staged files and objects.
type Config struct {
	SynthesizeTimeout time.Duration
	UploadTimeout     time.Duration
	// StagingDir is where audio is written before upload. Empty means os.TempDir().
	StagingDir string
	KeyPrefix  string
}

// Service implements EnsureAudio.
type Service struct {
	log          *slog.Logger
	translations translationRepo
	synth        synthesizer
	uploader     uploader
	cfg          Config
}

// NewService creates an audio materializer.
func NewService(
	logger *slog.Logger,
	translations translationRepo,
	synth synthesizer,
	up uploader,
	cfg Config,
) *Service {
	return &Service{
		log:          logger.With("service", "audio"),
		translations: translations,
		synth:        synth,
		uploader:     up,
		cfg:          cfg,
	}
}

// EnsureAudio returns tr with an audio URL, synthesizing and uploading one
// if needed. Translations that already have audio, in tr or in the store,
// and languages without TTS support, are returned without any external call.
//
// On failure the unchanged translation is returned together with the
// error, so callers can still use its text.
func (s *Service) EnsureAudio(ctx context.Context, tr domain.Translation, lang domain.Language) (*domain.Translation, error) {
	if tr.HasAudio() || !lang.SupportsTTS {
		return &tr, nil
	}

	// tr may be a stale copy; an earlier call can have stored audio since.
	stored, err := s.translations.GetByID(ctx, tr.ID)
	if err != nil {
		return &tr, fmt.Errorf("get translation: %w", err)
	}
	if stored.HasAudio() {
		return stored, nil
	}

	audio, err := s.synthesize(ctx, tr.Text, lang.Code)
	if err != nil {
		return &tr, err
	}

	staged, err := s.stage(audio)
	if err != nil {
		s.log.ErrorContext(ctx, "stage audio failed", slog.String("error", err.Error()))
		return &tr, domain.NewServiceError(domain.ErrUpload, err)
	}
	defer s.unstage(ctx, staged)

	key := path.Join(s.cfg.KeyPrefix, lang.Code, tr.WordID.String()+"-"+uuid.NewString()+".mp3")
	url, err := s.upload(ctx, staged, key)
	if err != nil {
		return &tr, err
	}

	applied, err := s.translations.SetAudioURL(ctx, tr.ID, url)
	if err != nil {
		s.discard(ctx, key)
		return &tr, fmt.Errorf("set audio url: %w", err)
	}
	if !applied {
		// Another writer stored its URL first. Ours is unreferenced.
		s.log.DebugContext(ctx, "lost audio race, using existing url",
			slog.String("translation_id", tr.ID.String()),
		)
		s.discard(ctx, key)

		winner, err := s.translations.GetByID(ctx, tr.ID)
		if err != nil {
			return &tr, fmt.Errorf("get translation after audio conflict: %w", err)
		}
		return winner, nil
	}

	s.log.InfoContext(ctx, "audio stored",
		slog.String("translation_id", tr.ID.String()),
		slog.String("language", lang.Code),
		slog.String("key", key),
	)
	tr.AudioURL = &url
	return &tr, nil
}

func (s *Service) synthesize(ctx context.Context, text, code string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.SynthesizeTimeout)
	defer cancel()

	audio, err := s.synth.Synthesize(ctx, text, code)
	if err == nil && len(audio) == 0 {
		err = fmt.Errorf("empty audio for %q", text)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "synthesize failed",
			slog.String("language", code),
			slog.String("error", err.Error()),
		)
		return nil, domain.NewServiceError(domain.ErrSynthesis, err)
	}
	return audio, nil
}

func (s *Service) upload(ctx context.Context, staged, key string) (string, error) {
	f, err := os.Open(staged)
	if err != nil {
		return "", domain.NewServiceError(domain.ErrUpload, err)
	}
	defer f.Close()

	ctx, cancel := withTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	url, err := s.uploader.Upload(ctx, f, key)
	if err != nil {
		s.log.ErrorContext(ctx, "upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", domain.NewServiceError(domain.ErrUpload, err)
	}
	return url, nil
}

// stage writes audio to a fresh file in the staging directory.
func (s *Service) stage(audio []byte) (string, error) {
	f, err := os.CreateTemp(s.cfg.StagingDir, "tts-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := f.Name()

	_, err = f.Write(audio)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("write staging file: %w", err)
	}
	return name, nil
}

func (s *Service) unstage(ctx context.Context, name string) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		s.log.WarnContext(ctx, "remove staged audio", slog.String("path", name), slog.String("error", err.Error()))
	}
}

// discard deletes an uploaded object that will never be referenced. It
// runs even when ctx is already done.
func (s *Service) discard(ctx context.Context, key string) {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), s.cfg.UploadTimeout)
	defer cancel()

	if err := s.uploader.Delete(ctx, key); err != nil {
		s.log.WarnContext(ctx, "delete orphaned audio", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
