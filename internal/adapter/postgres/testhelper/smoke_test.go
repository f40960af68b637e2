package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	native := SeedLanguage(t, pool)
	current := SeedLanguage(t, pool, WithTTS())
	user := SeedUser(t, pool, native.ID, current.ID)

	var username string
	err := pool.QueryRow(
		context.Background(),
		`SELECT username FROM users WHERE id = $1`,
		user.ID,
	).Scan(&username)
	if err != nil {
		t.Fatalf("expected user in DB, got error: %v", err)
	}

	if username != user.Username {
		t.Fatalf("expected username %q, got %q", user.Username, username)
	}
}

func TestSetupTestDB_SeedItemGraph(t *testing.T) {
	pool := SetupTestDB(t)

	lang := SeedLanguage(t, pool)
	user := SeedUser(t, pool, lang.ID, lang.ID)
	word := SeedWord(t, pool, "smoke")
	SeedTranslation(t, pool, word.ID, lang.ID, word.Text)
	coll := SeedCollection(t, pool, user.ID)
	item := SeedItem(t, pool, coll.ID, word.ID)

	var owner string
	err := pool.QueryRow(
		context.Background(),
		`SELECT c.user_id::text FROM collection_items ci JOIN collections c ON c.id = ci.collection_id WHERE ci.id = $1`,
		item.ID,
	).Scan(&owner)
	if err != nil {
		t.Fatalf("expected item in DB, got error: %v", err)
	}
	if owner != user.ID.String() {
		t.Fatalf("expected owner %s, got %s", user.ID, owner)
	}
}
