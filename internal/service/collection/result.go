package collection

import "github.com/google/uuid"

// ItemView is a collection item with both translations filled in.
type ItemView struct {
	ItemID          uuid.UUID `json:"item_id"`
	WordID          uuid.UUID `json:"word_id"`
	ImageURL        string    `json:"image_url"`
	CurrentText     string    `json:"current_text"`
	NativeText      string    `json:"native_text"`
	CurrentAudioURL *string   `json:"current_audio_url,omitempty"`
}

// ItemFailure records why one item of a bulk call could not be materialized.
type ItemFailure struct {
	ItemID uuid.UUID
	Err    error
}

// BulkResult holds the items that materialized and the ones that failed.
// Items keeps list order.
type BulkResult struct {
	Items    []ItemView
	Failures []ItemFailure
}

// AddItemResult is returned by AddItem. ID is set whenever the item was
// stored; Item is nil if materializing it failed afterwards.
type AddItemResult struct {
	Item *ItemView
	ID   uuid.UUID
}
