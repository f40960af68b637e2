package collection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
	"github.com/Queyrouzec/vocappulary-server/internal/service/audio"
	"github.com/Queyrouzec/vocappulary-server/internal/service/language"
	"github.com/Queyrouzec/vocappulary-server/internal/service/resolver"
	"github.com/Queyrouzec/vocappulary-server/internal/service/servicetest"
)

// ---------------------------------------------------------------------------
// Pipeline fixture: real resolver and audio services over in-memory fakes
// ---------------------------------------------------------------------------

type env struct {
	store      *servicetest.Store
	translator *servicetest.Translator
	synth      *servicetest.Synthesizer
	uploader   *servicetest.Uploader
	en, es     domain.Language
	user       domain.User
	coll       domain.Collection
	svc        *Service
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEnv builds a user who speaks English and learns Spanish.
func newEnv(t *testing.T, spanishTTS bool) *env {
	t.Helper()
	logger := newTestLogger()

	store := servicetest.NewStore()
	e := &env{
		store:      store,
		translator: &servicetest.Translator{},
		synth:      &servicetest.Synthesizer{},
		uploader:   &servicetest.Uploader{},
		en:         store.AddLanguage("en", true, true),
		es:         store.AddLanguage("es", spanishTTS, false),
	}
	e.user = store.AddUser(e.en.ID, e.es.ID)
	e.coll = store.AddCollection(e.user.ID)

	catalog := language.NewCatalog(logger, store.Languages(), "en")
	require.NoError(t, catalog.Load(context.Background()))
	res := resolver.NewService(logger, store.Translations(), catalog, e.translator, time.Second)
	aud := audio.NewService(logger, store.Translations(), e.synth, e.uploader, audio.Config{
		SynthesizeTimeout: time.Second,
		UploadTimeout:     time.Second,
		StagingDir:        t.TempDir(),
		KeyPrefix:         "words",
	})
	e.svc = NewService(logger, store.Collections(), store.Users(), catalog, res, aud, servicetest.TxManager{}, 4)
	return e
}

// addWord stores a word with its pivot translation and places it in the
// env's collection.
func (e *env) addWord(text string) (domain.Word, domain.CollectionItem) {
	w := e.store.AddWord(text)
	e.store.AddTranslation(w.ID, e.en.ID, text)
	return w, e.store.AddItem(e.coll.ID, w.ID)
}

// ---------------------------------------------------------------------------
// Materialize
// ---------------------------------------------------------------------------

func TestService_Materialize_CatInSpanishWithoutTTS(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.translator.Fn = func(text, from, to string) (string, error) {
		if text != "cat" || from != "en" || to != "es" {
			return "", errors.New("unexpected translate " + from + "->" + to + ": " + text)
		}
		return "gato", nil
	}
	_, item := e.addWord("cat")

	view, err := e.svc.Materialize(context.Background(), item.ID, true)

	require.NoError(t, err)
	assert.Equal(t, item.ID, view.ItemID)
	assert.Equal(t, item.ImageURL, view.ImageURL)
	assert.Equal(t, "gato", view.CurrentText)
	assert.Equal(t, "cat", view.NativeText)
	assert.Nil(t, view.CurrentAudioURL)
	assert.Equal(t, 0, e.synth.Calls())
	assert.Empty(t, e.uploader.Keys())
}

func TestService_Materialize_WithAudio(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	w, item := e.addWord("dog")

	view, err := e.svc.Materialize(context.Background(), item.ID, true)

	require.NoError(t, err)
	assert.Equal(t, "es:dog", view.CurrentText)
	require.NotNil(t, view.CurrentAudioURL)
	assert.Contains(t, *view.CurrentAudioURL, "words/es/"+w.ID.String())
	assert.Equal(t, 1, e.synth.Calls())

	// Second pass is served from the store.
	again, err := e.svc.Materialize(context.Background(), item.ID, true)
	require.NoError(t, err)
	assert.Equal(t, view, again)
	assert.Equal(t, 1, e.synth.Calls())
	assert.Equal(t, 1, e.translator.Calls())
}

func TestService_Materialize_WithoutAudioSkipsSynthesis(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	_, item := e.addWord("dog")

	view, err := e.svc.Materialize(context.Background(), item.ID, false)

	require.NoError(t, err)
	assert.Nil(t, view.CurrentAudioURL)
	assert.Equal(t, 0, e.synth.Calls())
}

func TestService_Materialize_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown item", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, false)

		_, err := e.svc.Materialize(context.Background(), uuid.New(), false)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("pivot missing", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, false)
		w := e.store.AddWord("ghost")
		item := e.store.AddItem(e.coll.ID, w.ID)

		_, err := e.svc.Materialize(context.Background(), item.ID, false)

		assert.ErrorIs(t, err, domain.ErrPivotMissing)
		assert.Equal(t, domain.FailureInternal, domain.Classify(err))
		assert.Equal(t, 0, e.translator.Calls())
	})

	t.Run("translator down", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, false)
		e.translator.Fn = func(string, string, string) (string, error) { return "", errors.New("503") }
		_, item := e.addWord("cat")

		_, err := e.svc.Materialize(context.Background(), item.ID, false)

		assert.ErrorIs(t, err, domain.ErrTranslationService)
		assert.Equal(t, domain.FailureRetryable, domain.Classify(err))
	})
}

// ---------------------------------------------------------------------------
// Bulk
// ---------------------------------------------------------------------------

func TestService_MaterializeCollection_IsolatesFailures(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	_, item1 := e.addWord("cat")
	w2, item2 := e.addWord("dog")
	_, item3 := e.addWord("bird")
	e.uploader.Fail = func(key string) error {
		if strings.Contains(key, w2.ID.String()) {
			return errors.New("bucket unreachable")
		}
		return nil
	}

	res, err := e.svc.MaterializeCollection(context.Background(), e.coll.ID, true)

	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, item1.ID, res.Items[0].ItemID)
	assert.Equal(t, item3.ID, res.Items[1].ItemID)
	for _, v := range res.Items {
		assert.NotNil(t, v.CurrentAudioURL)
	}

	require.Len(t, res.Failures, 1)
	assert.Equal(t, item2.ID, res.Failures[0].ItemID)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrUpload)

	// The failed item's text is still cached for the next attempt.
	rows := e.store.TranslationRows(w2.ID, e.es.ID)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].AudioURL)
}

func TestService_MaterializeCollection_SynthesisFailureIsolated(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	_, item1 := e.addWord("cat")
	_, item2 := e.addWord("dog")
	_, item3 := e.addWord("bird")
	e.synth.Fn = func(text, _ string) ([]byte, error) {
		if text == "es:dog" {
			return nil, errors.New("voice unavailable")
		}
		return []byte("mp3:" + text), nil
	}

	res, err := e.svc.MaterializeCollection(context.Background(), e.coll.ID, true)

	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, item1.ID, res.Items[0].ItemID)
	assert.Equal(t, "es:cat", res.Items[0].CurrentText)
	assert.NotNil(t, res.Items[0].CurrentAudioURL)
	assert.Equal(t, item3.ID, res.Items[1].ItemID)
	assert.NotNil(t, res.Items[1].CurrentAudioURL)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, item2.ID, res.Failures[0].ItemID)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrSynthesis)
}

func TestService_MaterializeCollection_MatchesSingleItem(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	var items []domain.CollectionItem
	for _, text := range []string{"cat", "dog", "bird", "fish", "frog"} {
		_, it := e.addWord(text)
		items = append(items, it)
	}

	res, err := e.svc.MaterializeCollection(context.Background(), e.coll.ID, false)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Len(t, res.Items, len(items))

	for i, it := range items {
		single, err := e.svc.Materialize(context.Background(), it.ID, false)
		require.NoError(t, err)
		assert.Equal(t, *single, res.Items[i])
	}
}

func TestService_MaterializeCollection_UnknownCollection(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)

	_, err := e.svc.MaterializeCollection(context.Background(), uuid.New(), false)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_MaterializeUser(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	_, a := e.addWord("cat")
	second := e.store.AddCollection(e.user.ID)
	w := e.store.AddWord("dog")
	e.store.AddTranslation(w.ID, e.en.ID, "dog")
	b := e.store.AddItem(second.ID, w.ID)

	other := e.store.AddUser(e.en.ID, e.es.ID)
	otherColl := e.store.AddCollection(other.ID)
	e.store.AddItem(otherColl.ID, w.ID)

	res, err := e.svc.MaterializeUser(context.Background(), e.user.ID, false)

	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, a.ID, res.Items[0].ItemID)
	assert.Equal(t, b.ID, res.Items[1].ItemID)
	assert.Empty(t, res.Failures)

	_, err = e.svc.MaterializeUser(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Concurrency cap (mock resolver)
// ---------------------------------------------------------------------------

type slowResolver struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *slowResolver) Resolve(_ context.Context, wordID, languageID, _ uuid.UUID) (*domain.Translation, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return &domain.Translation{ID: uuid.New(), WordID: wordID, LanguageID: languageID, Text: "x"}, nil
}

type noAudio struct{}

func (noAudio) EnsureAudio(_ context.Context, tr domain.Translation, _ domain.Language) (*domain.Translation, error) {
	return &tr, nil
}

func TestService_Bulk_RespectsConcurrency(t *testing.T) {
	t.Parallel()

	logger := newTestLogger()
	store := servicetest.NewStore()
	en := store.AddLanguage("en", false, false)
	es := store.AddLanguage("es", false, false)
	user := store.AddUser(en.ID, es.ID)
	coll := store.AddCollection(user.ID)
	for range 12 {
		store.AddItem(coll.ID, store.AddWord(uuid.NewString()).ID)
	}
	catalog := language.NewCatalog(logger, store.Languages(), "en")
	res := &slowResolver{}
	svc := NewService(logger, store.Collections(), store.Users(), catalog, res, noAudio{}, servicetest.TxManager{}, 3)

	out, err := svc.MaterializeCollection(context.Background(), coll.ID, true)

	require.NoError(t, err)
	assert.Len(t, out.Items, 12)
	assert.LessOrEqual(t, res.peak.Load(), int32(3))
}

// ---------------------------------------------------------------------------
// AddItem
// ---------------------------------------------------------------------------

func TestService_AddItem(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	w := e.store.AddWord("cat")
	e.store.AddTranslation(w.ID, e.en.ID, "cat")

	res, err := e.svc.AddItem(context.Background(), AddItemInput{
		CollectionID: e.coll.ID,
		WordID:       w.ID,
		ImageURL:     " https://img.test/cat.jpg ",
	})

	require.NoError(t, err)
	require.NotNil(t, res.Item)
	assert.Equal(t, res.ID, res.Item.ItemID)
	assert.Equal(t, "https://img.test/cat.jpg", res.Item.ImageURL)
	assert.Equal(t, "es:cat", res.Item.CurrentText)
	assert.NotNil(t, res.Item.CurrentAudioURL)
	assert.Equal(t, 1, e.store.Collection(e.coll.ID).ItemCount)
}

func TestService_AddItem_MaterializationFailureKeepsItem(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	e.synth.Fn = func(string, string) ([]byte, error) { return nil, errors.New("voice unavailable") }
	w := e.store.AddWord("cat")
	e.store.AddTranslation(w.ID, e.en.ID, "cat")

	res, err := e.svc.AddItem(context.Background(), AddItemInput{CollectionID: e.coll.ID, WordID: w.ID, ImageURL: "https://img.test/cat.jpg"})

	assert.ErrorIs(t, err, domain.ErrSynthesis)
	require.NotNil(t, res)
	assert.NotEqual(t, uuid.Nil, res.ID)
	assert.Nil(t, res.Item)
	assert.Equal(t, 1, e.store.Collection(e.coll.ID).ItemCount)

	// Retrying the stored item succeeds once the synthesizer recovers.
	e.synth.Fn = nil
	view, err := e.svc.Materialize(context.Background(), res.ID, true)
	require.NoError(t, err)
	assert.NotNil(t, view.CurrentAudioURL)
}

func TestService_AddItem_Errors(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	w := e.store.AddWord("cat")

	_, err := e.svc.AddItem(context.Background(), AddItemInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.svc.AddItem(context.Background(), AddItemInput{CollectionID: uuid.New(), WordID: w.ID, ImageURL: "https://img.test/x.jpg"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, e.store.Collection(e.coll.ID).ItemCount)
}
