// Package user implements the User repository using PostgreSQL.
package user

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres"
	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

const table = "users"

var columns = []string{
	"id", "username", "email", "points", "native_language_id", "current_language_id", "created_at",
}

type row struct {
	ID                uuid.UUID `db:"id"`
	Username          string    `db:"username"`
	Email             *string   `db:"email"`
	Points            int       `db:"points"`
	NativeLanguageID  uuid.UUID `db:"native_language_id"`
	CurrentLanguageID uuid.UUID `db:"current_language_id"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r row) toDomain() domain.User {
	return domain.User{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		Points:            r.Points,
		NativeLanguageID:  r.NativeLanguageID,
		CurrentLanguageID: r.CurrentLanguageID,
		CreatedAt:         r.CreatedAt,
	}
}

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new user repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// GetByID returns a user by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := postgres.Builder().Select(columns...).From(table).Where(sq.Eq{"id": id})
	res, err := postgres.Get[row](ctx, q, query)
	if err != nil {
		return nil, postgres.MapError(err, "user", id)
	}

	u := res.toDomain()
	return &u, nil
}

// Create inserts a new user. A zero ID is replaced with a fresh one.
func (r *Repo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := postgres.Builder().Insert(table).
		Columns("id", "username", "email", "points", "native_language_id", "current_language_id").
		Values(u.ID, u.Username, u.Email, u.Points, u.NativeLanguageID, u.CurrentLanguageID).
		Suffix("RETURNING " + strings.Join(columns, ", "))

	res, err := postgres.Get[row](ctx, q, query)
	if err != nil {
		return nil, postgres.MapError(err, "user", u.ID)
	}

	created := res.toDomain()
	return &created, nil
}

// AddPoints increments the user's points by delta and returns the new total.
// Only the points column is written.
func (r *Repo) AddPoints(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := postgres.Builder().Update(table).
		Set("points", sq.Expr("points + ?", delta)).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING points")

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var points int
	if err := q.QueryRow(ctx, sql, args...).Scan(&points); err != nil {
		return 0, postgres.MapError(err, "user", id)
	}
	return points, nil
}
