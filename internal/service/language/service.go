// Package language serves language reference data from an in-process cache.
// Languages are read-only at runtime, so rows are cached for the lifetime of
// the Catalog once seen.
package language

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

type languageRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Language, error)
	GetByCode(ctx context.Context, code string) (*domain.Language, error)
	List(ctx context.Context) ([]domain.Language, error)
}

// Catalog looks languages up by id or code and knows the system pivot language.
type Catalog struct {
	log       *slog.Logger
	repo      languageRepo
	pivotCode string

	mu     sync.RWMutex
	byID   map[uuid.UUID]domain.Language
	byCode map[string]uuid.UUID
}

// NewCatalog creates a Catalog. pivotCode names the language every word is
// stored in at intake.
func NewCatalog(logger *slog.Logger, repo languageRepo, pivotCode string) *Catalog {
	return &Catalog{
		log:       logger.With("service", "language"),
		repo:      repo,
		pivotCode: strings.ToLower(strings.TrimSpace(pivotCode)),
		byID:      map[uuid.UUID]domain.Language{},
		byCode:    map[string]uuid.UUID{},
	}
}

// Load fills the cache with every language and checks that the pivot
// language exists.
func (c *Catalog) Load(ctx context.Context) error {
	all, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	for _, l := range all {
		c.put(l)
	}

	if _, err := c.Pivot(ctx); err != nil {
		return err
	}

	c.log.InfoContext(ctx, "languages loaded", slog.Int("count", len(all)), slog.String("pivot", c.pivotCode))
	return nil
}

// GetByID returns the language with id.
func (c *Catalog) GetByID(ctx context.Context, id uuid.UUID) (*domain.Language, error) {
	c.mu.RLock()
	l, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return &l, nil
	}

	got, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(*got)
	return got, nil
}

// GetByCode returns the language with code (case-insensitive).
func (c *Catalog) GetByCode(ctx context.Context, code string) (*domain.Language, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("language", "code required")
	}

	c.mu.RLock()
	id, ok := c.byCode[code]
	l := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return &l, nil
	}

	got, err := c.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.put(*got)
	return got, nil
}

// Pivot returns the system pivot language.
func (c *Catalog) Pivot(ctx context.Context) (*domain.Language, error) {
	l, err := c.GetByCode(ctx, c.pivotCode)
	if err != nil {
		return nil, fmt.Errorf("pivot language %q: %w", c.pivotCode, err)
	}
	return l, nil
}

func (c *Catalog) put(l domain.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[l.ID] = l
	c.byCode[strings.ToLower(l.Code)] = l.ID
}
