package collection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

// Materialize resolves the item's word into its owner's native and current
// languages. With withAudio, audio is also ensured for the current-language
// translation. Any failure aborts the item.
func (s *Service) Materialize(ctx context.Context, itemID uuid.UUID, withAudio bool) (*ItemView, error) {
	item, err := s.collections.GetItemWithOwner(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return s.materialize(ctx, *item, withAudio)
}

func (s *Service) materialize(ctx context.Context, item domain.OwnedItem, withAudio bool) (*ItemView, error) {
	user, err := s.users.GetByID(ctx, item.UserID)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	pivot, err := s.languages.Pivot(ctx)
	if err != nil {
		return nil, err
	}
	native, err := s.languages.GetByID(ctx, user.NativeLanguageID)
	if err != nil {
		return nil, fmt.Errorf("get native language: %w", err)
	}
	current, err := s.languages.GetByID(ctx, user.CurrentLanguageID)
	if err != nil {
		return nil, fmt.Errorf("get current language: %w", err)
	}

	nativeTr, err := s.resolver.Resolve(ctx, item.WordID, native.ID, pivot.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s translation: %w", native.Code, err)
	}
	currentTr, err := s.resolver.Resolve(ctx, item.WordID, current.ID, pivot.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s translation: %w", current.Code, err)
	}

	if withAudio {
		currentTr, err = s.audio.EnsureAudio(ctx, *currentTr, *current)
		if err != nil {
			return nil, fmt.Errorf("ensure %s audio: %w", current.Code, err)
		}
	}

	return &ItemView{
		ItemID:          item.ID,
		WordID:          item.WordID,
		ImageURL:        item.ImageURL,
		CurrentText:     currentTr.Text,
		NativeText:      nativeTr.Text,
		CurrentAudioURL: currentTr.AudioURL,
	}, nil
}
