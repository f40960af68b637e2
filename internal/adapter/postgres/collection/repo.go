// Package collection implements the Collection and CollectionItem
// repositories using PostgreSQL.
package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres"
	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

const (
	collectionsTable = "collections"
	itemsTable       = "collection_items"
)

var (
	collectionColumns = []string{"id", "user_id", "name", "is_public", "item_count", "created_at"}
	itemColumns       = []string{"id", "collection_id", "word_id", "image_url", "created_at"}
)

type collectionRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Name      string    `db:"name"`
	IsPublic  bool      `db:"is_public"`
	ItemCount int       `db:"item_count"`
	CreatedAt time.Time `db:"created_at"`
}

func (r collectionRow) toDomain() domain.Collection {
	return domain.Collection{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		IsPublic:  r.IsPublic,
		ItemCount: r.ItemCount,
		CreatedAt: r.CreatedAt,
	}
}

type itemRow struct {
	ID           uuid.UUID `db:"id"`
	CollectionID uuid.UUID `db:"collection_id"`
	WordID       uuid.UUID `db:"word_id"`
	ImageURL     string    `db:"image_url"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r itemRow) toDomain() domain.CollectionItem {
	return domain.CollectionItem{
		ID:           r.ID,
		CollectionID: r.CollectionID,
		WordID:       r.WordID,
		ImageURL:     r.ImageURL,
		CreatedAt:    r.CreatedAt,
	}
}

type ownedItemRow struct {
	ID           uuid.UUID `db:"id"`
	CollectionID uuid.UUID `db:"collection_id"`
	WordID       uuid.UUID `db:"word_id"`
	ImageURL     string    `db:"image_url"`
	CreatedAt    time.Time `db:"created_at"`
	UserID       uuid.UUID `db:"user_id"`
}

func (r ownedItemRow) toDomain() domain.OwnedItem {
	item := itemRow{
		ID:           r.ID,
		CollectionID: r.CollectionID,
		WordID:       r.WordID,
		ImageURL:     r.ImageURL,
		CreatedAt:    r.CreatedAt,
	}
	return domain.OwnedItem{CollectionItem: item.toDomain(), UserID: r.UserID}
}

func qualified(table string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = table + "." + c
	}
	return out
}

// Repo provides collection persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new collection repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// Create inserts an empty collection for userID.
func (r *Repo) Create(ctx context.Context, userID uuid.UUID, name string, isPublic bool) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "required")
	}
	q := postgres.QuerierFromCtx(ctx, r.db)

	insert := postgres.Builder().Insert(collectionsTable).
		Columns("id", "user_id", "name", "is_public").
		Values(uuid.New(), userID, name, isPublic).
		Suffix("RETURNING " + strings.Join(collectionColumns, ", "))

	res, err := postgres.Get[collectionRow](ctx, q, insert)
	if err != nil {
		return nil, postgres.MapError(err, "collection", name)
	}

	c := res.toDomain()
	return &c, nil
}

// GetByID returns a collection by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := postgres.Builder().Select(collectionColumns...).From(collectionsTable).Where(sq.Eq{"id": id})
	res, err := postgres.Get[collectionRow](ctx, q, query)
	if err != nil {
		return nil, postgres.MapError(err, "collection", id)
	}

	c := res.toDomain()
	return &c, nil
}

// ListByUser returns the user's collections ordered by creation time.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Collection, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := postgres.Builder().Select(collectionColumns...).From(collectionsTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at", "id")

	rows, err := postgres.Select[collectionRow](ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	out := make([]domain.Collection, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// IncrementCount adds one to item_count. Only that column is written.
func (r *Repo) IncrementCount(ctx context.Context, id uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	stmt := postgres.Builder().Update(collectionsTable).
		Set("item_count", sq.Expr("item_count + 1")).
		Where(sq.Eq{"id": id})

	tag, err := postgres.Exec(ctx, q, stmt)
	if err != nil {
		return postgres.MapError(err, "collection", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// CreateItem places wordID into collectionID.
func (r *Repo) CreateItem(ctx context.Context, collectionID, wordID uuid.UUID, imageURL string) (*domain.CollectionItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	insert := postgres.Builder().Insert(itemsTable).
		Columns("id", "collection_id", "word_id", "image_url").
		Values(uuid.New(), collectionID, wordID, imageURL).
		Suffix("RETURNING " + strings.Join(itemColumns, ", "))

	res, err := postgres.Get[itemRow](ctx, q, insert)
	if err != nil {
		return nil, postgres.MapError(err, "collection_item", collectionID)
	}

	item := res.toDomain()
	return &item, nil
}

func (r *Repo) ownedItemsBuilder() sq.SelectBuilder {
	cols := append(qualified("ci", itemColumns), "c.user_id")
	return postgres.Builder().Select(cols...).
		From(itemsTable + " ci").
		Join(collectionsTable + " c ON c.id = ci.collection_id")
}

// GetItemWithOwner returns an item together with the id of its owning user.
func (r *Repo) GetItemWithOwner(ctx context.Context, itemID uuid.UUID) (*domain.OwnedItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := postgres.Get[ownedItemRow](ctx, q, r.ownedItemsBuilder().Where(sq.Eq{"ci.id": itemID}))
	if err != nil {
		return nil, postgres.MapError(err, "collection_item", itemID)
	}

	item := res.toDomain()
	return &item, nil
}

// ListItems returns the items of one collection in insertion order.
func (r *Repo) ListItems(ctx context.Context, collectionID uuid.UUID) ([]domain.OwnedItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := r.ownedItemsBuilder().
		Where(sq.Eq{"ci.collection_id": collectionID}).
		OrderBy("ci.created_at", "ci.id")

	return r.selectOwned(ctx, q, query)
}

// ListItemsByUser returns every item across all of the user's collections.
func (r *Repo) ListItemsByUser(ctx context.Context, userID uuid.UUID) ([]domain.OwnedItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := r.ownedItemsBuilder().
		Where(sq.Eq{"c.user_id": userID}).
		OrderBy("c.created_at", "ci.created_at", "ci.id")

	return r.selectOwned(ctx, q, query)
}

func (r *Repo) selectOwned(ctx context.Context, q postgres.Querier, query sq.SelectBuilder) ([]domain.OwnedItem, error) {
	rows, err := postgres.Select[ownedItemRow](ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("list collection items: %w", err)
	}

	out := make([]domain.OwnedItem, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}
