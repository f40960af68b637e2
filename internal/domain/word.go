package domain

import (
	"time"

	"github.com/google/uuid"
)

// Word is a canonical vocabulary item. Text is the normalized English
// surface form and is unique across all words.
type Word struct {
	ID        uuid.UUID
	Text      string
	CreatedAt time.Time
}

// Translation is the cached text of a word in one language.
// At most one exists per (WordID, LanguageID).
type Translation struct {
	ID         uuid.UUID
	WordID     uuid.UUID
	LanguageID uuid.UUID
	Text       string
	AudioURL   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasAudio reports whether synthesized audio has already been stored.
func (t *Translation) HasAudio() bool {
	return t.AudioURL != nil && *t.AudioURL != ""
}
