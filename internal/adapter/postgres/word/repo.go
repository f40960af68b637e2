// Package word implements the Word repository using PostgreSQL.
package word

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres"
	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

const table = "words"

var columns = []string{"id", "text", "created_at"}

type row struct {
	ID        uuid.UUID `db:"id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (r row) toDomain() domain.Word {
	return domain.Word{ID: r.ID, Text: r.Text, CreatedAt: r.CreatedAt}
}

// Repo provides word persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new word repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

func (r *Repo) selectBuilder() sq.SelectBuilder {
	return postgres.Builder().Select(columns...).From(table)
}

// GetByID returns a word by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Word, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := postgres.Get[row](ctx, q, r.selectBuilder().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, postgres.MapError(err, "word", id)
	}

	w := res.toDomain()
	return &w, nil
}

// GetByText returns the word with exactly this surface form.
func (r *Repo) GetByText(ctx context.Context, text string) (*domain.Word, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := postgres.Get[row](ctx, q, r.selectBuilder().Where(sq.Eq{"text": text}))
	if err != nil {
		return nil, postgres.MapError(err, "word", text)
	}

	w := res.toDomain()
	return &w, nil
}

// GetByTexts returns the words matching any of texts. Missing forms are
// simply absent from the result; order is unspecified.
func (r *Repo) GetByTexts(ctx context.Context, texts []string) ([]domain.Word, error) {
	if len(texts) == 0 {
		return []domain.Word{}, nil
	}
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := r.selectBuilder().Where("text = ANY(?)", texts)
	rows, err := postgres.Select[row](ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("get words by texts: %w", err)
	}

	out := make([]domain.Word, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// GetOrCreate returns the word for text, inserting it if absent. created
// reports whether this call inserted the row. Concurrent callers for the same
// text all get the same row.
func (r *Repo) GetOrCreate(ctx context.Context, text string) (w *domain.Word, created bool, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, false, domain.NewValidationError("text", "required")
	}
	q := postgres.QuerierFromCtx(ctx, r.db)

	insert := postgres.Builder().Insert(table).
		Columns("id", "text").
		Values(uuid.New(), text).
		Suffix("ON CONFLICT (text) DO NOTHING RETURNING " + strings.Join(columns, ", "))

	res, err := postgres.Get[row](ctx, q, insert)
	switch {
	case err == nil:
		w := res.toDomain()
		return &w, true, nil
	case pgxscan.NotFound(err):
		// Conflict: the row already exists.
		w, err := r.GetByText(ctx, text)
		return w, false, err
	default:
		return nil, false, postgres.MapError(err, "word", text)
	}
}
