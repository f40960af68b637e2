package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a learner. NativeLanguageID is the language the user already
// speaks; CurrentLanguageID is the language being learned.
type User struct {
	ID                uuid.UUID
	Username          string
	Email             *string
	Points            int
	NativeLanguageID  uuid.UUID
	CurrentLanguageID uuid.UUID
	CreatedAt         time.Time
}
