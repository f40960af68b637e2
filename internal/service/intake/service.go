// Package intake registers surface forms as words and reports which of them
// still lack a translation in a user's native language.
package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

type wordRepo interface {
	GetByTexts(ctx context.Context, texts []string) ([]domain.Word, error)
	GetOrCreate(ctx context.Context, text string) (*domain.Word, bool, error)
}

type translationRepo interface {
	GetByWordIDsAndLanguage(ctx context.Context, wordIDs []uuid.UUID, languageID uuid.UUID) ([]domain.Translation, error)
	CreateIfAbsent(ctx context.Context, wordID, languageID uuid.UUID, text string) (*domain.Translation, bool, error)
}

type languageCatalog interface {
	Pivot(ctx context.Context) (*domain.Language, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Result partitions the words of one intake call. Both slices keep the
// order of the input forms.
type Result struct {
	// Complete words already have a native-language translation.
	Complete []domain.Word
	// Incomplete words need one resolved.
	Incomplete []domain.Word
}

// Service implements word intake.
type Service struct {
	log          *slog.Logger
	words        wordRepo
	translations translationRepo
	languages    languageCatalog
	tx           txManager
}

// NewService creates an intake service.
func NewService(
	logger *slog.Logger,
	words wordRepo,
	translations translationRepo,
	languages languageCatalog,
	tx txManager,
) *Service {
	return &Service{
		log:          logger.With("service", "intake"),
		words:        words,
		translations: translations,
		languages:    languages,
		tx:           tx,
	}
}

// Intake finds or creates a word for every surface form, matched exactly
// after trimming, and partitions the
// words by whether a translation into nativeLanguageID exists. Every word
// returned has a pivot-language translation. Intake never calls an external
// translator, and repeating a call creates nothing new.
func (s *Service) Intake(ctx context.Context, forms []string, nativeLanguageID uuid.UUID) (*Result, error) {
	res := &Result{Complete: []domain.Word{}, Incomplete: []domain.Word{}}

	texts := domain.TrimSurfaceForms(forms)
	if len(texts) == 0 {
		return res, nil
	}

	pivot, err := s.languages.Pivot(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.words.GetByTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("get words: %w", err)
	}
	byText := make(map[string]domain.Word, len(texts))
	for _, w := range existing {
		byText[w.Text] = w
	}

	if err := s.ensurePivots(ctx, existing, pivot.ID); err != nil {
		return nil, err
	}

	created := 0
	words := make([]domain.Word, 0, len(texts))
	for _, text := range texts {
		w, ok := byText[text]
		if !ok {
			nw, err := s.createWord(ctx, text, pivot.ID)
			if err != nil {
				return nil, err
			}
			w = *nw
			byText[text] = w
			created++
		}
		words = append(words, w)
	}

	complete := make(map[uuid.UUID]struct{}, len(words))
	if nativeLanguageID == pivot.ID {
		for _, w := range words {
			complete[w.ID] = struct{}{}
		}
	} else {
		ids := make([]uuid.UUID, len(words))
		for i, w := range words {
			ids[i] = w.ID
		}
		native, err := s.translations.GetByWordIDsAndLanguage(ctx, ids, nativeLanguageID)
		if err != nil {
			return nil, fmt.Errorf("get native translations: %w", err)
		}
		for _, tr := range native {
			complete[tr.WordID] = struct{}{}
		}
	}

	for _, w := range words {
		if _, ok := complete[w.ID]; ok {
			res.Complete = append(res.Complete, w)
		} else {
			res.Incomplete = append(res.Incomplete, w)
		}
	}

	s.log.InfoContext(ctx, "words taken in",
		slog.Int("forms", len(texts)),
		slog.Int("created", created),
		slog.Int("complete", len(res.Complete)),
		slog.Int("incomplete", len(res.Incomplete)),
	)
	return res, nil
}

// createWord stores a word and its pivot translation together.
func (s *Service) createWord(ctx context.Context, text string, pivotID uuid.UUID) (*domain.Word, error) {
	var w *domain.Word
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		w, _, err = s.words.GetOrCreate(ctx, text)
		if err != nil {
			return fmt.Errorf("get or create word: %w", err)
		}
		if _, _, err := s.translations.CreateIfAbsent(ctx, w.ID, pivotID, text); err != nil {
			return fmt.Errorf("create pivot translation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ensurePivots repairs pre-existing words whose pivot translation is
// missing, using the word text itself.
func (s *Service) ensurePivots(ctx context.Context, words []domain.Word, pivotID uuid.UUID) error {
	if len(words) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	rows, err := s.translations.GetByWordIDsAndLanguage(ctx, ids, pivotID)
	if err != nil {
		return fmt.Errorf("get pivot translations: %w", err)
	}
	has := make(map[uuid.UUID]struct{}, len(rows))
	for _, tr := range rows {
		has[tr.WordID] = struct{}{}
	}

	for _, w := range words {
		if _, ok := has[w.ID]; ok {
			continue
		}
		s.log.WarnContext(ctx, "word without pivot translation, repairing",
			slog.String("word_id", w.ID.String()),
			slog.String("text", w.Text),
		)
		if _, _, err := s.translations.CreateIfAbsent(ctx, w.ID, pivotID, w.Text); err != nil {
			return fmt.Errorf("repair pivot translation: %w", err)
		}
	}
	return nil
}
