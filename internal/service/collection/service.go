// Package collection materializes collection items: for each item it makes
// sure the word is translated into the owner's native and current-learning
// languages, optionally with audio for the current language.
package collection

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

type collectionRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error)
	IncrementCount(ctx context.Context, id uuid.UUID) error
	CreateItem(ctx context.Context, collectionID, wordID uuid.UUID, imageURL string) (*domain.CollectionItem, error)
	GetItemWithOwner(ctx context.Context, itemID uuid.UUID) (*domain.OwnedItem, error)
	ListItems(ctx context.Context, collectionID uuid.UUID) ([]domain.OwnedItem, error)
	ListItemsByUser(ctx context.Context, userID uuid.UUID) ([]domain.OwnedItem, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type languageCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Language, error)
	Pivot(ctx context.Context) (*domain.Language, error)
}

type translationResolver interface {
	Resolve(ctx context.Context, wordID, languageID, pivotLanguageID uuid.UUID) (*domain.Translation, error)
}

type audioMaterializer interface {
	EnsureAudio(ctx context.Context, tr domain.Translation, lang domain.Language) (*domain.Translation, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements item materialization and its bulk variants.
type Service struct {
	log         *slog.Logger
	collections collectionRepo
	users       userRepo
	languages   languageCatalog
	resolver    translationResolver
	audio       audioMaterializer
	tx          txManager
	concurrency int
}

// NewService creates a collection service. concurrency caps how many items
// a bulk call materializes at once.
func NewService(
	logger *slog.Logger,
	collections collectionRepo,
	users userRepo,
	languages languageCatalog,
	resolver translationResolver,
	audio audioMaterializer,
	tx txManager,
	concurrency int,
) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		log:         logger.With("service", "collection"),
		collections: collections,
		users:       users,
		languages:   languages,
		resolver:    resolver,
		audio:       audio,
		tx:          tx,
		concurrency: concurrency,
	}
}
