// Package pronunciation checks a learner's spoken attempt at a word against
// its translation in the language they are learning and awards points.
package pronunciation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	AddPoints(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type languageCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Language, error)
	Pivot(ctx context.Context) (*domain.Language, error)
}

type translationResolver interface {
	Resolve(ctx context.Context, wordID, languageID, pivotLanguageID uuid.UUID) (*domain.Translation, error)
}

type recognizer interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// pointsPerMatch is awarded for every matching attempt.
const pointsPerMatch = 1

// Result describes one pronunciation attempt.
type Result struct {
	// Supported is false when the learned language has no speech recognition;
	// nothing else is set then.
	Supported  bool   `json:"supported"`
	Matched    bool   `json:"matched"`
	Transcript string `json:"transcript"`
	Expected   string `json:"expected"`
	Points     int    `json:"points"`
}

// Service implements Check.
type Service struct {
	log        *slog.Logger
	users      userRepo
	languages  languageCatalog
	resolver   translationResolver
	recognizer recognizer
	timeout    time.Duration
}

// NewService creates a pronunciation service. timeout bounds each speech
// recognition call.
func NewService(
	logger *slog.Logger,
	users userRepo,
	languages languageCatalog,
	res translationResolver,
	rec recognizer,
	timeout time.Duration,
) *Service {
	return &Service{
		log:        logger.With("service", "pronunciation"),
		users:      users,
		languages:  languages,
		resolver:   res,
		recognizer: rec,
		timeout:    timeout,
	}
}

// Check transcribes audio in the user's current language and compares it
// with the word's translation in that language. A transcript containing the
// expected text, ignoring case and spacing, counts as a match and adds a
// point to the user.
func (s *Service) Check(ctx context.Context, userID, wordID uuid.UUID, audio []byte) (*Result, error) {
	if len(audio) == 0 {
		return nil, domain.NewValidationError("audio", "required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	current, err := s.languages.GetByID(ctx, user.CurrentLanguageID)
	if err != nil {
		return nil, fmt.Errorf("get current language: %w", err)
	}
	if !current.SupportsSTT {
		return &Result{Supported: false}, nil
	}

	pivot, err := s.languages.Pivot(ctx)
	if err != nil {
		return nil, err
	}
	expected, err := s.resolver.Resolve(ctx, wordID, current.ID, pivot.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s translation: %w", current.Code, err)
	}

	transcript, err := s.transcribe(ctx, audio, current.Code)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Supported:  true,
		Transcript: transcript,
		Expected:   expected.Text,
		Points:     user.Points,
	}
	if !matches(transcript, expected.Text) {
		return res, nil
	}

	res.Matched = true
	res.Points, err = s.users.AddPoints(ctx, user.ID, pointsPerMatch)
	if err != nil {
		return nil, fmt.Errorf("add points: %w", err)
	}

	s.log.InfoContext(ctx, "pronunciation matched",
		slog.String("user_id", user.ID.String()),
		slog.String("word_id", wordID.String()),
		slog.Int("points", res.Points),
	)
	return res, nil
}

func (s *Service) transcribe(ctx context.Context, audio []byte, code string) (string, error) {
	tctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	transcript, err := s.recognizer.Transcribe(tctx, audio, code)
	if err != nil {
		s.log.ErrorContext(ctx, "speech recognition failed",
			slog.String("language", code),
			slog.String("error", err.Error()),
		)
		return "", domain.NewServiceError(domain.ErrSpeechService, err)
	}
	return transcript, nil
}

func matches(transcript, expected string) bool {
	want := domain.NormalizeText(expected)
	if want == "" {
		return false
	}
	return strings.Contains(domain.NormalizeText(transcript), want)
}
