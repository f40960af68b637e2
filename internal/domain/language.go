package domain

import "github.com/google/uuid"

// Language is read-only reference data describing what the external
// capabilities can do for a language.
type Language struct {
	ID                  uuid.UUID
	Name                string
	Code                string
	SupportsTranslation bool
	SupportsTTS         bool
	SupportsSTT         bool
	FlagURL             *string
	Active              bool
}
