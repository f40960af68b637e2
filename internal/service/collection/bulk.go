package collection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

// MaterializeCollection materializes every item of a collection. Items run
// independently: a failed item is reported in Failures and never stops the
// others.
func (s *Service) MaterializeCollection(ctx context.Context, collectionID uuid.UUID, withAudio bool) (*BulkResult, error) {
	if _, err := s.collections.GetByID(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	items, err := s.collections.ListItems(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return s.bulk(ctx, items, withAudio), nil
}

// MaterializeUser materializes every item in every collection of a user,
// with the same isolation as MaterializeCollection.
func (s *Service) MaterializeUser(ctx context.Context, userID uuid.UUID, withAudio bool) (*BulkResult, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	items, err := s.collections.ListItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return s.bulk(ctx, items, withAudio), nil
}

func (s *Service) bulk(ctx context.Context, items []domain.OwnedItem, withAudio bool) *BulkResult {
	views := make([]*ItemView, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			views[i], errs[i] = s.materialize(ctx, item, withAudio)
			return nil
		})
	}
	_ = g.Wait()

	res := &BulkResult{Items: []ItemView{}, Failures: []ItemFailure{}}
	for i, item := range items {
		if errs[i] != nil {
			s.log.WarnContext(ctx, "item materialization failed",
				slog.String("item_id", item.ID.String()),
				slog.String("class", domain.Classify(errs[i]).String()),
				slog.String("error", errs[i].Error()),
			)
			res.Failures = append(res.Failures, ItemFailure{ItemID: item.ID, Err: errs[i]})
			continue
		}
		res.Items = append(res.Items, *views[i])
	}

	s.log.InfoContext(ctx, "items materialized",
		slog.Int("total", len(items)),
		slog.Int("failed", len(res.Failures)),
		slog.Bool("with_audio", withAudio),
	)
	return res
}
