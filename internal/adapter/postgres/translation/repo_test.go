package translation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/testhelper"
	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/translation"
	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

var cols = []string{"id", "word_id", "language_id", "text", "audio_url", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// ---------------------------------------------------------------------------
// Unit tests (pgxmock)
// ---------------------------------------------------------------------------

func TestRepo_Create_UniqueViolation_Mock(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	wordID, langID := uuid.New(), uuid.New()

	mock.ExpectQuery(`INSERT INTO translations .* RETURNING`).
		WithArgs(pgxmock.AnyArg(), wordID, langID, "gato").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "translations_word_language_key"})

	_, err := translation.New(mock).Create(context.Background(), wordID, langID, "gato")

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_CreateIfAbsent_Mock(t *testing.T) {
	t.Parallel()

	wordID, langID, id := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	tests := []struct {
		name        string
		setup       func(mock pgxmock.PgxPoolIface)
		wantCreated bool
		wantText    string
	}{
		{
			name: "inserted",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO translations .* ON CONFLICT ON CONSTRAINT translations_word_language_key DO NOTHING RETURNING`).
					WithArgs(pgxmock.AnyArg(), wordID, langID, "cat").
					WillReturnRows(pgxmock.NewRows(cols).AddRow(id, wordID, langID, "cat", (*string)(nil), now, now))
			},
			wantCreated: true,
			wantText:    "cat",
		},
		{
			name: "existing row wins",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO translations`).
					WithArgs(pgxmock.AnyArg(), wordID, langID, "cat").
					WillReturnRows(pgxmock.NewRows(cols))
				mock.ExpectQuery(`SELECT .* FROM translations WHERE`).
					WithArgs(langID.String(), wordID.String()).
					WillReturnRows(pgxmock.NewRows(cols).AddRow(id, wordID, langID, "Cat", (*string)(nil), now, now))
			},
			wantCreated: false,
			wantText:    "Cat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := newMock(t)
			tt.setup(mock)

			got, created, err := translation.New(mock).CreateIfAbsent(context.Background(), wordID, langID, "cat")

			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantText, got.Text)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepo_SetAudioURL_Mock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "applied", affected: 1, want: true},
		{name: "already set", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := newMock(t)
			id := uuid.New()

			mock.ExpectExec(`UPDATE translations SET audio_url = \$1, updated_at = now\(\) WHERE audio_url IS NULL AND id = \$2`).
				WithArgs("https://cdn/a.mp3", id.String()).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			got, err := translation.New(mock).SetAudioURL(context.Background(), id, "https://cdn/a.mp3")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ---------------------------------------------------------------------------
// Integration tests
// ---------------------------------------------------------------------------

func TestRepo_Integration_CreateAndLookup(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := translation.New(pool)
	ctx := context.Background()

	lang := testhelper.SeedLanguage(t, pool)
	w := testhelper.SeedWord(t, pool, "tr")

	created, err := repo.Create(ctx, w.ID, lang.ID, "texto")
	require.NoError(t, err)
	assert.Nil(t, created.AudioURL)

	_, err = repo.Create(ctx, w.ID, lang.ID, "otro")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := repo.GetByWordAndLanguage(ctx, w.ID, lang.ID)
	require.NoError(t, err)
	assert.Equal(t, "texto", got.Text)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	_, err = repo.GetByWordAndLanguage(ctx, w.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Create(ctx, w.ID, lang.ID, "")
	assert.Error(t, err)
}

func TestRepo_Integration_GetByWordIDsAndLanguage(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := translation.New(pool)

	lang := testhelper.SeedLanguage(t, pool)
	a := testhelper.SeedWord(t, pool, "batch-a")
	b := testhelper.SeedWord(t, pool, "batch-b")
	c := testhelper.SeedWord(t, pool, "batch-c")
	testhelper.SeedTranslation(t, pool, a.ID, lang.ID, "A")
	testhelper.SeedTranslation(t, pool, b.ID, lang.ID, "B")

	got, err := repo.GetByWordIDsAndLanguage(context.Background(), []uuid.UUID{a.ID, b.ID, c.ID}, lang.ID)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRepo_Integration_ConcurrentCreateOneRow(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := translation.New(pool)
	ctx := context.Background()

	lang := testhelper.SeedLanguage(t, pool)
	w := testhelper.SeedWord(t, pool, "conc")

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, w.ID, lang.ID, "x")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, domain.ErrAlreadyExists):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
}

func TestRepo_Integration_SetAudioURLOnce(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := translation.New(pool)
	ctx := context.Background()

	lang := testhelper.SeedLanguage(t, pool, testhelper.WithTTS())
	w := testhelper.SeedWord(t, pool, "audio")
	tr := testhelper.SeedTranslation(t, pool, w.ID, lang.ID, "hola")

	applied, err := repo.SetAudioURL(ctx, tr.ID, "https://cdn/first.mp3")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.SetAudioURL(ctx, tr.ID, "https://cdn/second.mp3")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AudioURL)
	assert.Equal(t, "https://cdn/first.mp3", *got.AudioURL)
	assert.Equal(t, "hola", got.Text)
}
