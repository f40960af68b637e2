package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collection is a named group of items owned by one user.
type Collection struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	IsPublic  bool
	ItemCount int
	CreatedAt time.Time
}

// CollectionItem places a word inside a collection together with the image
// it was recognized from.
type CollectionItem struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	WordID       uuid.UUID
	ImageURL     string
	CreatedAt    time.Time
}

// OwnedItem is a collection item joined with the id of the user who owns
// its collection.
type OwnedItem struct {
	CollectionItem
	UserID uuid.UUID
}
