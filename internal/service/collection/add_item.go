package collection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

// AddItem stores a new item and bumps its collection's item count in one
// transaction, then materializes the item with audio.
//
// The stored item is kept when materialization fails; the returned result
// then carries the item id alongside the error and can be materialized
// again later.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*AddItemResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var item *domain.CollectionItem
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.collections.CreateItem(ctx, in.CollectionID, in.WordID, strings.TrimSpace(in.ImageURL))
		if err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		if err := s.collections.IncrementCount(ctx, in.CollectionID); err != nil {
			return fmt.Errorf("increment item count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "item added",
		slog.String("item_id", item.ID.String()),
		slog.String("collection_id", in.CollectionID.String()),
	)

	res := &AddItemResult{ID: item.ID}
	view, err := s.Materialize(ctx, item.ID, true)
	if err != nil {
		return res, err
	}
	res.Item = view
	return res, nil
}
