package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// LanguageOption customizes a seeded language.
type LanguageOption func(*domain.Language)

// WithTTS marks the seeded language as supporting speech synthesis.
func WithTTS() LanguageOption {
	return func(l *domain.Language) { l.SupportsTTS = true }
}

// WithSTT marks the seeded language as supporting speech recognition.
func WithSTT() LanguageOption {
	return func(l *domain.Language) { l.SupportsSTT = true }
}

// SeedLanguage creates an active language with a unique code.
// Translation is supported, TTS and STT are not unless options say so.
func SeedLanguage(t *testing.T, pool *pgxpool.Pool, opts ...LanguageOption) domain.Language {
	t.Helper()

	suffix := uniqueSuffix()
	lang := domain.Language{
		ID:                  uuid.New(),
		Name:                "Language " + suffix,
		Code:                "t" + suffix,
		SupportsTranslation: true,
		Active:              true,
	}
	for _, opt := range opts {
		opt(&lang)
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO languages (id, name, code, supports_translation, supports_tts, supports_stt, flag_url, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lang.ID, lang.Name, lang.Code, lang.SupportsTranslation, lang.SupportsTTS, lang.SupportsSTT, lang.FlagURL, lang.Active,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedLanguage: %v", err)
	}

	return lang
}

// SeedUser creates a user with the given native and current languages.
func SeedUser(t *testing.T, pool *pgxpool.Pool, nativeID, currentID uuid.UUID) domain.User {
	t.Helper()

	suffix := uniqueSuffix()
	email := "testuser-" + suffix + "@example.com"
	user := domain.User{
		ID:                uuid.New(),
		Username:          "user-" + suffix,
		Email:             &email,
		NativeLanguageID:  nativeID,
		CurrentLanguageID: currentID,
		CreatedAt:         time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, username, email, points, native_language_id, current_language_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.Points, user.NativeLanguageID, user.CurrentLanguageID, user.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser: %v", err)
	}

	return user
}

// SeedWord creates a word with a unique surface form starting with prefix.
func SeedWord(t *testing.T, pool *pgxpool.Pool, prefix string) domain.Word {
	t.Helper()

	word := domain.Word{
		ID:        uuid.New(),
		Text:      prefix + "-" + uniqueSuffix(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO words (id, text, created_at) VALUES ($1, $2, $3)`,
		word.ID, word.Text, word.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedWord: %v", err)
	}

	return word
}

// SeedTranslation stores text for (wordID, languageID) without audio.
func SeedTranslation(t *testing.T, pool *pgxpool.Pool, wordID, languageID uuid.UUID, text string) domain.Translation {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	tr := domain.Translation{
		ID:         uuid.New(),
		WordID:     wordID,
		LanguageID: languageID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO translations (id, word_id, language_id, text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		tr.ID, tr.WordID, tr.LanguageID, tr.Text, tr.CreatedAt, tr.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedTranslation: %v", err)
	}

	return tr
}

// SeedCollection creates an empty private collection for userID.
func SeedCollection(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) domain.Collection {
	t.Helper()

	c := domain.Collection{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "Collection " + uniqueSuffix(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO collections (id, user_id, name, is_public, item_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Name, c.IsPublic, c.ItemCount, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedCollection: %v", err)
	}

	return c
}

// SeedItem places wordID into collectionID. item_count is left untouched.
func SeedItem(t *testing.T, pool *pgxpool.Pool, collectionID, wordID uuid.UUID) domain.CollectionItem {
	t.Helper()

	item := domain.CollectionItem{
		ID:           uuid.New(),
		CollectionID: collectionID,
		WordID:       wordID,
		ImageURL:     "https://images.example.com/" + uniqueSuffix() + ".jpg",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO collection_items (id, collection_id, word_id, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.CollectionID, item.WordID, item.ImageURL, item.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedItem: %v", err)
	}

	return item
}
