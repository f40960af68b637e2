package collection

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

// AddItemInput holds the parameters for adding a word to a collection.
type AddItemInput struct {
	CollectionID uuid.UUID
	WordID       uuid.UUID
	ImageURL     string
}

// Validate checks all fields and collects all errors.
func (i AddItemInput) Validate() error {
	var errs []domain.FieldError

	if i.CollectionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "collection_id", Message: "required"})
	}
	if i.WordID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "word_id", Message: "required"})
	}
	if strings.TrimSpace(i.ImageURL) == "" {
		errs = append(errs, domain.FieldError{Field: "image_url", Message: "required"})
	}
	if len(i.ImageURL) > 2048 {
		errs = append(errs, domain.FieldError{Field: "image_url", Message: "max 2048 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
