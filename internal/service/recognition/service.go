// Package recognition turns a photo into vocabulary: it labels the image,
// takes the labels in as words and returns each word translated into the
// user's native language.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
	"github.com/Queyrouzec/vocappulary-server/internal/service/intake"
)

type labeler interface {
	Labels(ctx context.Context, imageURL string, maxLabels int) ([]string, error)
}

type wordIntake interface {
	Intake(ctx context.Context, forms []string, nativeLanguageID uuid.UUID) (*intake.Result, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type translationRepo interface {
	GetByWordIDsAndLanguage(ctx context.Context, wordIDs []uuid.UUID, languageID uuid.UUID) ([]domain.Translation, error)
}

type languageCatalog interface {
	Pivot(ctx context.Context) (*domain.Language, error)
}

type translationResolver interface {
	Resolve(ctx context.Context, wordID, languageID, pivotLanguageID uuid.UUID) (*domain.Translation, error)
}

// Config tunes label detection.
type Config struct {
	MaxLabels int
	// IgnoredLabels are dropped before intake, compared case-insensitively.
	IgnoredLabels []string
	Timeout       time.Duration
	Concurrency   int
}

// Service implements RecognizeAndTranslate.
type Service struct {
	log          *slog.Logger
	labeler      labeler
	intake       wordIntake
	users        userRepo
	translations translationRepo
	languages    languageCatalog
	resolver     translationResolver
	cfg          Config
	ignored      map[string]struct{}
}

// NewService creates a recognition service.
func NewService(
	logger *slog.Logger,
	lb labeler,
	wi wordIntake,
	users userRepo,
	translations translationRepo,
	languages languageCatalog,
	res translationResolver,
	cfg Config,
) *Service {
	if cfg.MaxLabels < 1 {
		cfg.MaxLabels = 5
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	ignored := make(map[string]struct{}, len(cfg.IgnoredLabels))
	for _, l := range cfg.IgnoredLabels {
		ignored[domain.NormalizeText(l)] = struct{}{}
	}
	return &Service{
		log:          logger.With("service", "recognition"),
		labeler:      lb,
		intake:       wi,
		users:        users,
		translations: translations,
		languages:    languages,
		resolver:     res,
		cfg:          cfg,
		ignored:      ignored,
	}
}

// WordTranslation is one recognized word with its native-language text.
type WordTranslation struct {
	WordID      uuid.UUID `json:"word_id"`
	Text        string    `json:"text"`
	Translation string    `json:"translation"`
}

// WordFailure records a word whose translation could not be resolved.
type WordFailure struct {
	WordID uuid.UUID
	Text   string
	Err    error
}

// Result lists the recognized words. Words already translated come first,
// then the ones resolved by this call.
type Result struct {
	Words    []WordTranslation
	Failures []WordFailure
}

// RecognizeAndTranslate labels the image at imageURL and translates every
// label into the native language of userID. A failed word is reported in
// Failures and does not affect the others.
func (s *Service) RecognizeAndTranslate(ctx context.Context, userID uuid.UUID, imageURL string) (*Result, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, domain.NewValidationError("image_url", "required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	labels, err := s.labels(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	res := &Result{Words: []WordTranslation{}, Failures: []WordFailure{}}
	if len(labels) == 0 {
		return res, nil
	}

	words, err := s.intake.Intake(ctx, labels, user.NativeLanguageID)
	if err != nil {
		return nil, fmt.Errorf("intake labels: %w", err)
	}

	if len(words.Complete) > 0 {
		ids := make([]uuid.UUID, len(words.Complete))
		for i, w := range words.Complete {
			ids[i] = w.ID
		}
		cached, err := s.translations.GetByWordIDsAndLanguage(ctx, ids, user.NativeLanguageID)
		if err != nil {
			return nil, fmt.Errorf("get native translations: %w", err)
		}
		text := make(map[uuid.UUID]string, len(cached))
		for _, tr := range cached {
			text[tr.WordID] = tr.Text
		}
		for _, w := range words.Complete {
			res.Words = append(res.Words, WordTranslation{WordID: w.ID, Text: w.Text, Translation: text[w.ID]})
		}
	}

	if len(words.Incomplete) > 0 {
		pivot, err := s.languages.Pivot(ctx)
		if err != nil {
			return nil, err
		}
		resolved := make([]*domain.Translation, len(words.Incomplete))
		errs := make([]error, len(words.Incomplete))

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)
		for i, w := range words.Incomplete {
			g.Go(func() error {
				resolved[i], errs[i] = s.resolver.Resolve(ctx, w.ID, user.NativeLanguageID, pivot.ID)
				return nil
			})
		}
		_ = g.Wait()

		for i, w := range words.Incomplete {
			if errs[i] != nil {
				s.log.WarnContext(ctx, "label translation failed",
					slog.String("word", w.Text),
					slog.String("error", errs[i].Error()),
				)
				res.Failures = append(res.Failures, WordFailure{WordID: w.ID, Text: w.Text, Err: errs[i]})
				continue
			}
			res.Words = append(res.Words, WordTranslation{WordID: w.ID, Text: w.Text, Translation: resolved[i].Text})
		}
	}

	s.log.InfoContext(ctx, "image recognized",
		slog.String("user_id", userID.String()),
		slog.Int("labels", len(labels)),
		slog.Int("failed", len(res.Failures)),
	)
	return res, nil
}

// labels detects labels, lowercases them, drops ignored ones and caps the
// list. Words are stored lowercase, so "Cat" and "cat" land on one word.
func (s *Service) labels(ctx context.Context, imageURL string) ([]string, error) {
	lctx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	// Ask for extra labels so that ignored ones do not shrink the result.
	raw, err := s.labeler.Labels(lctx, imageURL, s.cfg.MaxLabels+len(s.ignored))
	if err != nil {
		s.log.ErrorContext(ctx, "label detection failed",
			slog.String("image_url", imageURL),
			slog.String("error", err.Error()),
		)
		return nil, domain.NewServiceError(domain.ErrRecognition, err)
	}

	out := make([]string, 0, s.cfg.MaxLabels)
	for _, l := range raw {
		l = domain.NormalizeText(l)
		if _, skip := s.ignored[l]; skip || l == "" {
			continue
		}
		out = append(out, l)
		if len(out) == s.cfg.MaxLabels {
			break
		}
	}
	return out, nil
}
