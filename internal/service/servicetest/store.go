// Package servicetest provides in-memory stores and external-service fakes
// for exercising the materialization services together without Postgres or
// Google Cloud. The stores enforce the same uniqueness rules as the schema.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
)

// Store holds every table in memory behind one mutex.
type Store struct {
	mu           sync.Mutex
	languages    map[uuid.UUID]domain.Language
	users        map[uuid.UUID]domain.User
	words        map[uuid.UUID]domain.Word
	translations map[uuid.UUID]domain.Translation
	collections  map[uuid.UUID]domain.Collection
	items        map[uuid.UUID]domain.CollectionItem
	seq          int
	created      map[uuid.UUID]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		languages:    map[uuid.UUID]domain.Language{},
		users:        map[uuid.UUID]domain.User{},
		words:        map[uuid.UUID]domain.Word{},
		translations: map[uuid.UUID]domain.Translation{},
		collections:  map[uuid.UUID]domain.Collection{},
		items:        map[uuid.UUID]domain.CollectionItem{},
		created:      map[uuid.UUID]int{},
	}
}

// Languages returns the language repository view.
func (s *Store) Languages() *Languages { return &Languages{s} }

// Users returns the user repository view.
func (s *Store) Users() *Users { return &Users{s} }

// Words returns the word repository view.
func (s *Store) Words() *Words { return &Words{s} }

// Translations returns the translation repository view.
func (s *Store) Translations() *Translations { return &Translations{s} }

// Collections returns the collection repository view.
func (s *Store) Collections() *Collections { return &Collections{s} }

// TxManager runs fn directly; the in-memory store has no transactions.
type TxManager struct{}

// RunInTx calls fn with ctx.
func (TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// nextOrder gives rows a stable insertion order. Callers hold s.mu.
func (s *Store) nextOrder(id uuid.UUID) {
	s.seq++
	s.created[id] = s.seq
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

// AddLanguage stores a language with the given code. Translation is always
// supported; TTS and STT follow the flags.
func (s *Store) AddLanguage(code string, tts, stt bool) domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := domain.Language{
		ID:                  uuid.New(),
		Name:                strings.ToUpper(code),
		Code:                code,
		SupportsTranslation: true,
		SupportsTTS:         tts,
		SupportsSTT:         stt,
		Active:              true,
	}
	s.languages[l.ID] = l
	return l
}

// AddUser stores a user learning current with native as their own language.
func (s *Store) AddUser(native, current uuid.UUID) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := domain.User{
		ID:                uuid.New(),
		Username:          "user",
		NativeLanguageID:  native,
		CurrentLanguageID: current,
		CreatedAt:         time.Now(),
	}
	s.users[u.ID] = u
	return u
}

// AddWord stores a word without any translations.
func (s *Store) AddWord(text string) domain.Word {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := domain.Word{ID: uuid.New(), Text: text, CreatedAt: time.Now()}
	s.words[w.ID] = w
	return w
}

// AddTranslation stores text for (wordID, languageID) directly.
func (s *Store) AddTranslation(wordID, languageID uuid.UUID, text string) domain.Translation {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := newTranslation(wordID, languageID, text)
	s.translations[tr.ID] = tr
	return tr
}

// AddCollection stores an empty collection owned by userID.
func (s *Store) AddCollection(userID uuid.UUID) domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.Collection{ID: uuid.New(), UserID: userID, Name: "collection", CreatedAt: time.Now()}
	s.collections[c.ID] = c
	s.nextOrder(c.ID)
	return c
}

// AddItem places wordID into collectionID.
func (s *Store) AddItem(collectionID, wordID uuid.UUID) domain.CollectionItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := domain.CollectionItem{
		ID:           uuid.New(),
		CollectionID: collectionID,
		WordID:       wordID,
		ImageURL:     "https://images.example.com/" + wordID.String() + ".jpg",
		CreatedAt:    time.Now(),
	}
	s.items[it.ID] = it
	s.nextOrder(it.ID)
	return it
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// TranslationRows returns every stored row for (wordID, languageID). The
// store never holds more than one; tests use this to prove it.
func (s *Store) TranslationRows(wordID, languageID uuid.UUID) []domain.Translation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Translation
	for _, tr := range s.translations {
		if tr.WordID == wordID && tr.LanguageID == languageID {
			out = append(out, tr)
		}
	}
	return out
}

// WordCount returns how many words are stored.
func (s *Store) WordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.words)
}

// User returns the stored user.
func (s *Store) User(id uuid.UUID) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

// Collection returns the stored collection.
func (s *Store) Collection(id uuid.UUID) domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[id]
}

func newTranslation(wordID, languageID uuid.UUID, text string) domain.Translation {
	now := time.Now()
	return domain.Translation{
		ID:         uuid.New(),
		WordID:     wordID,
		LanguageID: languageID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ---------------------------------------------------------------------------
// Languages
// ---------------------------------------------------------------------------

// Languages implements the language repository.
type Languages struct{ s *Store }

func (r *Languages) GetByID(_ context.Context, id uuid.UUID) (*domain.Language, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.languages[id]
	if !ok {
		return nil, fmt.Errorf("language %s: %w", id, domain.ErrNotFound)
	}
	return &l, nil
}

func (r *Languages) GetByCode(_ context.Context, code string) (*domain.Language, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range r.s.languages {
		if l.Code == code {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("language %s: %w", code, domain.ErrNotFound)
}

func (r *Languages) List(_ context.Context) ([]domain.Language, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Language, 0, len(r.s.languages))
	for _, l := range r.s.languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// Users implements the user repository.
type Users struct{ s *Store }

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *Users) AddPoints(_ context.Context, id uuid.UUID, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	u.Points += delta
	r.s.users[id] = u
	return u.Points, nil
}

// ---------------------------------------------------------------------------
// Words
// ---------------------------------------------------------------------------

// Words implements the word repository with a unique text constraint.
type Words struct{ s *Store }

func (r *Words) GetByID(_ context.Context, id uuid.UUID) (*domain.Word, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.words[id]
	if !ok {
		return nil, fmt.Errorf("word %s: %w", id, domain.ErrNotFound)
	}
	return &w, nil
}

func (r *Words) GetByText(_ context.Context, text string) (*domain.Word, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if w, ok := r.s.findWord(text); ok {
		return &w, nil
	}
	return nil, fmt.Errorf("word %s: %w", text, domain.ErrNotFound)
}

func (r *Words) GetByTexts(_ context.Context, texts []string) ([]domain.Word, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.Word{}
	for _, t := range texts {
		if w, ok := r.s.findWord(t); ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *Words) GetOrCreate(_ context.Context, text string) (*domain.Word, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, false, domain.NewValidationError("text", "required")
	}
	if w, ok := r.s.findWord(text); ok {
		return &w, false, nil
	}
	w := domain.Word{ID: uuid.New(), Text: text, CreatedAt: time.Now()}
	r.s.words[w.ID] = w
	return &w, true, nil
}

func (s *Store) findWord(text string) (domain.Word, bool) {
	for _, w := range s.words {
		if w.Text == text {
			return w, true
		}
	}
	return domain.Word{}, false
}

// ---------------------------------------------------------------------------
// Translations
// ---------------------------------------------------------------------------

// Translations implements the translation store with a unique
// (word_id, language_id) constraint.
type Translations struct{ s *Store }

func (r *Translations) GetByID(_ context.Context, id uuid.UUID) (*domain.Translation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tr, ok := r.s.translations[id]
	if !ok {
		return nil, fmt.Errorf("translation %s: %w", id, domain.ErrNotFound)
	}
	return &tr, nil
}

func (r *Translations) GetByWordAndLanguage(_ context.Context, wordID, languageID uuid.UUID) (*domain.Translation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tr, ok := r.s.findTranslation(wordID, languageID); ok {
		return &tr, nil
	}
	return nil, fmt.Errorf("translation %s/%s: %w", wordID, languageID, domain.ErrNotFound)
}

func (r *Translations) GetByWordIDsAndLanguage(_ context.Context, wordIDs []uuid.UUID, languageID uuid.UUID) ([]domain.Translation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.Translation{}
	for _, id := range wordIDs {
		if tr, ok := r.s.findTranslation(id, languageID); ok {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (r *Translations) Create(_ context.Context, wordID, languageID uuid.UUID, text string) (*domain.Translation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if text == "" {
		return nil, fmt.Errorf("translation: %w", domain.ErrValidation)
	}
	if _, ok := r.s.findTranslation(wordID, languageID); ok {
		return nil, fmt.Errorf("translation %s/%s: %w", wordID, languageID, domain.ErrAlreadyExists)
	}
	tr := newTranslation(wordID, languageID, text)
	r.s.translations[tr.ID] = tr
	return &tr, nil
}

func (r *Translations) CreateIfAbsent(_ context.Context, wordID, languageID uuid.UUID, text string) (*domain.Translation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tr, ok := r.s.findTranslation(wordID, languageID); ok {
		return &tr, false, nil
	}
	tr := newTranslation(wordID, languageID, text)
	r.s.translations[tr.ID] = tr
	return &tr, true, nil
}

func (r *Translations) SetAudioURL(_ context.Context, id uuid.UUID, url string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tr, ok := r.s.translations[id]
	if !ok || tr.AudioURL != nil {
		return false, nil
	}
	tr.AudioURL = &url
	tr.UpdatedAt = time.Now()
	r.s.translations[id] = tr
	return true, nil
}

func (s *Store) findTranslation(wordID, languageID uuid.UUID) (domain.Translation, bool) {
	for _, tr := range s.translations {
		if tr.WordID == wordID && tr.LanguageID == languageID {
			return tr, true
		}
	}
	return domain.Translation{}, false
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// Collections implements the collection repository.
type Collections struct{ s *Store }

func (r *Collections) GetByID(_ context.Context, id uuid.UUID) (*domain.Collection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (r *Collections) IncrementCount(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.collections[id]
	if !ok {
		return fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}
	c.ItemCount++
	r.s.collections[id] = c
	return nil
}

func (r *Collections) CreateItem(_ context.Context, collectionID, wordID uuid.UUID, imageURL string) (*domain.CollectionItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.collections[collectionID]; !ok {
		return nil, fmt.Errorf("collection_item %s: %w", collectionID, domain.ErrNotFound)
	}
	if _, ok := r.s.words[wordID]; !ok {
		return nil, fmt.Errorf("collection_item %s: %w", collectionID, domain.ErrNotFound)
	}
	it := domain.CollectionItem{
		ID:           uuid.New(),
		CollectionID: collectionID,
		WordID:       wordID,
		ImageURL:     imageURL,
		CreatedAt:    time.Now(),
	}
	r.s.items[it.ID] = it
	r.s.nextOrder(it.ID)
	return &it, nil
}

func (r *Collections) GetItemWithOwner(_ context.Context, itemID uuid.UUID) (*domain.OwnedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	it, ok := r.s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("collection_item %s: %w", itemID, domain.ErrNotFound)
	}
	owned := domain.OwnedItem{CollectionItem: it, UserID: r.s.collections[it.CollectionID].UserID}
	return &owned, nil
}

func (r *Collections) ListItems(_ context.Context, collectionID uuid.UUID) ([]domain.OwnedItem, error) {
	return r.listItems(func(c domain.Collection) bool { return c.ID == collectionID }), nil
}

func (r *Collections) ListItemsByUser(_ context.Context, userID uuid.UUID) ([]domain.OwnedItem, error) {
	return r.listItems(func(c domain.Collection) bool { return c.UserID == userID }), nil
}

func (r *Collections) listItems(match func(domain.Collection) bool) []domain.OwnedItem {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.OwnedItem{}
	for _, it := range r.s.items {
		c := r.s.collections[it.CollectionID]
		if match(c) {
			out = append(out, domain.OwnedItem{CollectionItem: it, UserID: c.UserID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] < r.s.created[out[j].ID] })
	return out
}
