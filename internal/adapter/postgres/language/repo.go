// Package language implements the read-only Language repository using PostgreSQL.
package language

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres"
	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

const table = "languages"

var columns = []string{
	"id", "name", "code", "supports_translation", "supports_tts", "supports_stt", "flag_url", "active",
}

type row struct {
	ID                  uuid.UUID `db:"id"`
	Name                string    `db:"name"`
	Code                string    `db:"code"`
	SupportsTranslation bool      `db:"supports_translation"`
	SupportsTTS         bool      `db:"supports_tts"`
	SupportsSTT         bool      `db:"supports_stt"`
	FlagURL             *string   `db:"flag_url"`
	Active              bool      `db:"active"`
}

func (r row) toDomain() domain.Language {
	return domain.Language{
		ID:                  r.ID,
		Name:                r.Name,
		Code:                r.Code,
		SupportsTranslation: r.SupportsTranslation,
		SupportsTTS:         r.SupportsTTS,
		SupportsSTT:         r.SupportsSTT,
		FlagURL:             r.FlagURL,
		Active:              r.Active,
	}
}

// Repo provides language lookups.
type Repo struct {
	db postgres.Querier
}

// New creates a new language repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

func (r *Repo) selectBuilder() sq.SelectBuilder {
	return postgres.Builder().Select(columns...).From(table)
}

// GetByID returns a language by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Language, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := postgres.Get[row](ctx, q, r.selectBuilder().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, postgres.MapError(err, "language", id)
	}

	l := res.toDomain()
	return &l, nil
}

// GetByCode returns a language by its code. Codes are compared lowercased.
func (r *Repo) GetByCode(ctx context.Context, code string) (*domain.Language, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := postgres.Get[row](ctx, q, r.selectBuilder().Where(sq.Eq{"code": code}))
	if err != nil {
		return nil, postgres.MapError(err, "language", code)
	}

	l := res.toDomain()
	return &l, nil
}

// List returns all languages ordered by name, inactive ones included.
func (r *Repo) List(ctx context.Context) ([]domain.Language, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := postgres.Select[row](ctx, q, r.selectBuilder().OrderBy("name ASC"))
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}

	out := make([]domain.Language, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}
