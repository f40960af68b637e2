// Package translation implements the Translation store using PostgreSQL.
// Rows are append-only cache entries: they are created once per
// (word_id, language_id) and afterwards only audio_url is ever written.
package translation

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

const table = "translations"

var columns = []string{"id", "word_id", "language_id", "text", "audio_url", "created_at", "updated_at"}

var returning = "RETURNING " + strings.Join(columns, ", ")

type row struct {
	ID         uuid.UUID `db:"id"`
	WordID     uuid.UUID `db:"word_id"`
	LanguageID uuid.UUID `db:"language_id"`
	Text       string    `db:"text"`
	AudioURL   *string   `db:"audio_url"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r row) toDomain() domain.Translation {
	return domain.Translation{
		ID:         r.ID,
		WordID:     r.WordID,
		LanguageID: r.LanguageID,
		Text:       r.Text,
		AudioURL:   r.AudioURL,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Repo provides translation persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new translation repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

func (r *Repo) selectBuilder() sq.SelectBuilder {
	return postgres.Builder().Select(columns...).From(table)
}

func wordLangKey(wordID, languageID uuid.UUID) string {
	return wordID.String() + "/" + languageID.String()
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a translation by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Translation, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := postgres.Get[row](ctx, q, r.selectBuilder().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, postgres.MapError(err, "translation", id)
	}

	tr := res.toDomain()
	return &tr, nil
}

// GetByWordAndLanguage returns the cached translation of a word in a language.
func (r *Repo) GetByWordAndLanguage(ctx context.Context, wordID, languageID uuid.UUID) (*domain.Translation, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := r.selectBuilder().Where(sq.Eq{"word_id": wordID, "language_id": languageID})
	res, err := postgres.Get[row](ctx, q, query)
	if err != nil {
		return nil, postgres.MapError(err, "translation", wordLangKey(wordID, languageID))
	}

	tr := res.toDomain()
	return &tr, nil
}

// GetByWordIDsAndLanguage returns the translations of several words in one
// language. Words without a row are absent from the result.
func (r *Repo) GetByWordIDsAndLanguage(ctx context.Context, wordIDs []uuid.UUID, languageID uuid.UUID) ([]domain.Translation, error) {
	if len(wordIDs) == 0 {
		return []domain.Translation{}, nil
	}
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := r.selectBuilder().
		Where("word_id = ANY(?)", wordIDs).
		Where(sq.Eq{"language_id": languageID})

	rows, err := postgres.Select[row](ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("get translations by word_ids: %w", err)
	}

	out := make([]domain.Translation, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new translation. If (word_id, language_id) already
// exists it returns domain.ErrAlreadyExists and leaves the stored row as is.
func (r *Repo) Create(ctx context.Context, wordID, languageID uuid.UUID, text string) (*domain.Translation, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	insert := r.insertBuilder(wordID, languageID, text).Suffix(returning)

	res, err := postgres.Get[row](ctx, q, insert)
	if err != nil {
		return nil, postgres.MapError(err, "translation", wordLangKey(wordID, languageID))
	}

	tr := res.toDomain()
	return &tr, nil
}

// CreateIfAbsent inserts the translation unless (word_id, language_id) is
// already taken. created reports whether this call inserted the row; the
// returned translation is the stored one either way.
func (r *Repo) CreateIfAbsent(ctx context.Context, wordID, languageID uuid.UUID, text string) (tr *domain.Translation, created bool, err error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	insert := r.insertBuilder(wordID, languageID, text).
		Suffix("ON CONFLICT ON CONSTRAINT translations_word_language_key DO NOTHING").
		Suffix(returning)

	res, err := postgres.Get[row](ctx, q, insert)
	switch {
	case err == nil:
		t := res.toDomain()
		return &t, true, nil
	case pgxscan.NotFound(err):
		tr, err := r.GetByWordAndLanguage(ctx, wordID, languageID)
		return tr, false, err
	default:
		return nil, false, postgres.MapError(err, "translation", wordLangKey(wordID, languageID))
	}
}

func (r *Repo) insertBuilder(wordID, languageID uuid.UUID, text string) sq.InsertBuilder {
	return postgres.Builder().Insert(table).
		Columns("id", "word_id", "language_id", "text").
		Values(uuid.New(), wordID, languageID, text)
}

// SetAudioURL stores url as the translation's audio, but only while no audio
// is recorded yet. applied is false when another writer got there first.
func (r *Repo) SetAudioURL(ctx context.Context, id uuid.UUID, url string) (applied bool, err error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	stmt := postgres.Builder().Update(table).
		Set("audio_url", url).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "audio_url": nil})

	tag, err := postgres.Exec(ctx, q, stmt)
	if err != nil {
		return false, postgres.MapError(err, "translation", id)
	}

	return tag.RowsAffected() == 1, nil
}
