// Package resolver guarantees that a word has a translation in a language.
// Rows are created on first use from the word's pivot-language text and
// reused afterwards. Concurrent first use is settled by the store's unique
// (word_id, language_id) constraint: the loser re-reads the winner's row.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

type translationRepo interface {
	GetByWordAndLanguage(ctx context.Context, wordID, languageID uuid.UUID) (*domain.Translation, error)
	Create(ctx context.Context, wordID, languageID uuid.UUID, text string) (*domain.Translation, error)
	CreateIfAbsent(ctx context.Context, wordID, languageID uuid.UUID, text string) (*domain.Translation, bool, error)
}

type languageCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Language, error)
	GetByCode(ctx context.Context, code string) (*domain.Language, error)
}

type translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Service resolves translations through the store, falling back to the
// external translator on a miss.
type Service struct {
	log          *slog.Logger
	translations translationRepo
	languages    languageCatalog
	translator   translator
	timeout      time.Duration

	// flights coalesces concurrent misses for the same key inside this
	// process. Cross-process races are still settled by the store.
	flights singleflight.Group
}

// NewService creates a resolver. timeout bounds every translate call; zero
// leaves calls bounded only by the caller's context.
func NewService(
	logger *slog.Logger,
	translations translationRepo,
	languages languageCatalog,
	translator translator,
	timeout time.Duration,
) *Service {
	return &Service{
		log:          logger.With("service", "resolver"),
		translations: translations,
		languages:    languages,
		translator:   translator,
		timeout:      timeout,
	}
}

// Resolve returns the translation of wordID in languageID, creating it from
// the pivot-language translation when it does not exist yet.
//
// Resolving the pivot language itself is a pure lookup: a missing row
// yields ErrPivotMissing and the translator is never called.
func (s *Service) Resolve(ctx context.Context, wordID, languageID, pivotLanguageID uuid.UUID) (*domain.Translation, error) {
	tr, err := s.translations.GetByWordAndLanguage(ctx, wordID, languageID)
	if err == nil {
		return tr, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get translation: %w", err)
	}
	if languageID == pivotLanguageID {
		return nil, fmt.Errorf("word %s: %w", wordID, domain.ErrPivotMissing)
	}

	// The shared flight must not die with whichever caller started it.
	key := wordID.String() + "/" + languageID.String()
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.create(context.WithoutCancel(ctx), wordID, languageID, pivotLanguageID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*domain.Translation)
		return &out, nil
	}
}

// create runs one miss: re-check, translate from the pivot, insert.
func (s *Service) create(ctx context.Context, wordID, languageID, pivotLanguageID uuid.UUID) (*domain.Translation, error) {
	// A flight that finished just before this one started has already
	// written the row.
	existing, err := s.translations.GetByWordAndLanguage(ctx, wordID, languageID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get translation: %w", err)
	}

	pivot, err := s.translations.GetByWordAndLanguage(ctx, wordID, pivotLanguageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("word %s: %w", wordID, domain.ErrPivotMissing)
		}
		return nil, fmt.Errorf("get pivot translation: %w", err)
	}

	source, err := s.languages.GetByID(ctx, pivotLanguageID)
	if err != nil {
		return nil, fmt.Errorf("get pivot language: %w", err)
	}
	target, err := s.languages.GetByID(ctx, languageID)
	if err != nil {
		return nil, fmt.Errorf("get language: %w", err)
	}
	if !target.SupportsTranslation {
		return nil, domain.NewValidationError("language", target.Code+" does not support translation")
	}

	s.log.InfoContext(ctx, "translation cache miss",
		slog.String("word_id", wordID.String()),
		slog.String("from", source.Code),
		slog.String("to", target.Code),
	)

	text, err := s.translate(ctx, pivot.Text, source.Code, target.Code)
	if err != nil {
		return nil, err
	}

	created, err := s.translations.Create(ctx, wordID, languageID, text)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("create translation: %w", err)
	}

	s.log.DebugContext(ctx, "lost translation race, using existing row",
		slog.String("word_id", wordID.String()),
		slog.String("language", target.Code),
	)
	winner, err := s.translations.GetByWordAndLanguage(ctx, wordID, languageID)
	if err != nil {
		return nil, fmt.Errorf("get translation after conflict: %w", err)
	}
	return winner, nil
}

func (s *Service) translate(ctx context.Context, text, from, to string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.translator.Translate(ctx, text, from, to)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty translation")
	}
	if err != nil {
		s.log.ErrorContext(ctx, "translate failed",
			slog.String("text", text),
			slog.String("from", from),
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return "", domain.NewServiceError(domain.ErrTranslationService, err)
	}
	return strings.TrimSpace(out), nil
}

// Lookup returns the stored translation of wordID in the language with the
// given code. It never calls the translator.
func (s *Service) Lookup(ctx context.Context, wordID uuid.UUID, code string) (*domain.Translation, error) {
	lang, err := s.languages.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get language: %w", err)
	}
	return s.translations.GetByWordAndLanguage(ctx, wordID, lang.ID)
}

// AddTranslation stores a manually supplied translation. When one already
// exists it is returned unchanged and created is false.
func (s *Service) AddTranslation(ctx context.Context, wordID uuid.UUID, code, text string) (*domain.Translation, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, domain.NewValidationError("text", "required")
	}
	lang, err := s.languages.GetByCode(ctx, code)
	if err != nil {
		return nil, false, fmt.Errorf("get language: %w", err)
	}

	tr, created, err := s.translations.CreateIfAbsent(ctx, wordID, lang.ID, text)
	if err != nil {
		return nil, false, fmt.Errorf("add translation: %w", err)
	}
	if created {
		s.log.InfoContext(ctx, "translation added",
			slog.String("word_id", wordID.String()),
			slog.String("language", lang.Code),
		)
	}
	return tr, created, nil
}
