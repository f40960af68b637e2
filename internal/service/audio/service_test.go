package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Queyrouzec/vocappulary-server/internal/domain"
	"github.com/Queyrouzec/vocappulary-server/internal/service/servicetest"
)

type mockTranslationRepo struct {
	mu              sync.Mutex
	setCalls        int
	GetByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Translation, error)
	SetAudioURLFunc func(ctx context.Context, id uuid.UUID, url string) (bool, error)
}

func (m *mockTranslationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Translation, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockTranslationRepo) SetAudioURL(ctx context.Context, id uuid.UUID, url string) (bool, error) {
	m.mu.Lock()
	m.setCalls++
	m.mu.Unlock()
	return m.SetAudioURLFunc(ctx, id, url)
}

var spanishTTS = domain.Language{ID: uuid.New(), Code: "es", SupportsTranslation: true, SupportsTTS: true}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, repo translationRepo, synth *servicetest.Synthesizer, up *servicetest.Uploader) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return NewService(newTestLogger(), repo, synth, up, Config{
		SynthesizeTimeout: time.Second,
		UploadTimeout:     time.Second,
		StagingDir:        dir,
		KeyPrefix:         "words",
	}), dir
}

func newTranslation(text string) domain.Translation {
	return domain.Translation{ID: uuid.New(), WordID: uuid.New(), LanguageID: spanishTTS.ID, Text: text}
}

func assertStagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files must be removed")
}

func ptr(s string) *string { return &s }

// storedAs makes GetByID return a fresh copy of tr.
func storedAs(tr domain.Translation) func(context.Context, uuid.UUID) (*domain.Translation, error) {
	return func(context.Context, uuid.UUID) (*domain.Translation, error) {
		out := tr
		return &out, nil
	}
}

func TestService_EnsureAudio_ShortCircuits(t *testing.T) {
	t.Parallel()

	withAudio := newTranslation("gato")
	withAudio.AudioURL = ptr("https://cdn.test/existing.mp3")

	tests := []struct {
		name string
		tr   domain.Translation
		lang domain.Language
	}{
		{name: "already has audio", tr: withAudio, lang: spanishTTS},
		{name: "language without tts", tr: newTranslation("gato"), lang: domain.Language{ID: uuid.New(), Code: "es"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			synth := &servicetest.Synthesizer{}
			up := &servicetest.Uploader{}
			svc, _ := newTestService(t, &mockTranslationRepo{}, synth, up)

			got, err := svc.EnsureAudio(context.Background(), tt.tr, tt.lang)

			require.NoError(t, err)
			assert.Equal(t, tt.tr, *got)
			assert.Equal(t, 0, synth.Calls())
			assert.Empty(t, up.Keys())
		})
	}
}

func TestService_EnsureAudio_Success(t *testing.T) {
	t.Parallel()

	tr := newTranslation("hola")
	var storedURL string
	repo := &mockTranslationRepo{
		GetByIDFunc: storedAs(tr),
		SetAudioURLFunc: func(_ context.Context, id uuid.UUID, url string) (bool, error) {
			assert.Equal(t, tr.ID, id)
			storedURL = url
			return true, nil
		},
	}
	synth := &servicetest.Synthesizer{}
	up := &servicetest.Uploader{}
	svc, dir := newTestService(t, repo, synth, up)

	got, err := svc.EnsureAudio(context.Background(), tr, spanishTTS)

	require.NoError(t, err)
	require.NotNil(t, got.AudioURL)
	assert.Equal(t, storedURL, *got.AudioURL)
	assert.Nil(t, tr.AudioURL, "input must not be mutated")

	keys := up.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "words/es/"+tr.WordID.String()+"-"))
	assert.True(t, strings.HasSuffix(keys[0], ".mp3"))
	assert.Equal(t, "https://cdn.test/"+keys[0], *got.AudioURL)
	assert.Equal(t, []byte("mp3:hola"), up.Object(keys[0]))
	assertStagingEmpty(t, dir)
}

func TestService_EnsureAudio_SynthesisFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string, string) ([]byte, error)
	}{
		{name: "error", fn: func(string, string) ([]byte, error) { return nil, errors.New("voice unavailable") }},
		{name: "empty audio", fn: func(string, string) ([]byte, error) { return []byte{}, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := newTranslation("hola")
			repo := &mockTranslationRepo{GetByIDFunc: storedAs(tr)}
			up := &servicetest.Uploader{}
			svc, dir := newTestService(t, repo, &servicetest.Synthesizer{Fn: tt.fn}, up)

			got, err := svc.EnsureAudio(context.Background(), tr, spanishTTS)

			assert.ErrorIs(t, err, domain.ErrSynthesis)
			assert.Equal(t, domain.FailureRetryable, domain.Classify(err))
			require.NotNil(t, got)
			assert.Nil(t, got.AudioURL)
			assert.Equal(t, "hola", got.Text)
			assert.Empty(t, up.Keys())
			assert.Zero(t, repo.setCalls)
			assertStagingEmpty(t, dir)
		})
	}
}

func TestService_EnsureAudio_UploadFails(t *testing.T) {
	t.Parallel()

	tr := newTranslation("hola")
	repo := &mockTranslationRepo{GetByIDFunc: storedAs(tr)}
	up := &servicetest.Uploader{Fail: func(string) error { return errors.New("bucket unreachable") }}
	svc, dir := newTestService(t, repo, &servicetest.Synthesizer{}, up)

	got, err := svc.EnsureAudio(context.Background(), tr, spanishTTS)

	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Nil(t, got.AudioURL)
	assert.Zero(t, repo.setCalls)
	assertStagingEmpty(t, dir)
}

func TestService_EnsureAudio_StagingFails(t *testing.T) {
	t.Parallel()

	tr := newTranslation("hola")
	up := &servicetest.Uploader{}
	svc := NewService(newTestLogger(), &mockTranslationRepo{GetByIDFunc: storedAs(tr)}, &servicetest.Synthesizer{}, up, Config{
		StagingDir: filepath.Join(t.TempDir(), "missing"),
	})

	got, err := svc.EnsureAudio(context.Background(), tr, spanishTTS)

	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Nil(t, got.AudioURL)
	assert.Empty(t, up.Keys())
}

func TestService_EnsureAudio_LostRaceDeletesOwnAsset(t *testing.T) {
	t.Parallel()

	tr := newTranslation("hola")
	winner := tr
	winner.AudioURL = ptr("https://cdn.test/words/es/winner.mp3")
	reads := 0
	repo := &mockTranslationRepo{
		SetAudioURLFunc: func(context.Context, uuid.UUID, string) (bool, error) { return false, nil },
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Translation, error) {
			assert.Equal(t, tr.ID, id)
			reads++
			if reads == 1 {
				return &tr, nil
			}
			return &winner, nil
		},
	}
	up := &servicetest.Uploader{}
	svc, dir := newTestService(t, repo, &servicetest.Synthesizer{}, up)

	got, err := svc.EnsureAudio(context.Background(), tr, spanishTTS)

	require.NoError(t, err)
	assert.Equal(t, winner.AudioURL, got.AudioURL)
	deleted := up.Deleted()
	require.Len(t, deleted, 1)
	assert.NotContains(t, deleted[0], "winner")
	assert.Empty(t, up.Keys())
	assertStagingEmpty(t, dir)
}

func TestService_EnsureAudio_StoreErrorDeletesAsset(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	tr := newTranslation("hola")
	repo := &mockTranslationRepo{
		GetByIDFunc:     storedAs(tr),
		SetAudioURLFunc: func(context.Context, uuid.UUID, string) (bool, error) { return false, boom },
	}
	up := &servicetest.Uploader{}
	svc, _ := newTestService(t, repo, &servicetest.Synthesizer{}, up)

	got, err := svc.EnsureAudio(context.Background(), tr, spanishTTS)

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got.AudioURL)
	assert.Len(t, up.Deleted(), 1)
	assert.Empty(t, up.Keys())
}

func TestService_EnsureAudio_ConcurrentKeepsOneAsset(t *testing.T) {
	t.Parallel()

	store := servicetest.NewStore()
	es := store.AddLanguage("es", true, false)
	word := store.AddWord("cat")
	tr := store.AddTranslation(word.ID, es.ID, "gato")
	synth := &servicetest.Synthesizer{}
	up := &servicetest.Uploader{}
	svc, dir := newTestService(t, store.Translations(), synth, up)

	const callers = 6
	urls := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.EnsureAudio(context.Background(), tr, es)
			if assert.NoError(t, err) && assert.NotNil(t, got.AudioURL) {
				urls[i] = *got.AudioURL
			}
		}()
	}
	wg.Wait()

	final, err := store.Translations().GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	require.NotNil(t, final.AudioURL)
	for _, u := range urls {
		assert.Equal(t, *final.AudioURL, u)
	}
	keys := up.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "https://cdn.test/"+keys[0], *final.AudioURL)
	assert.Len(t, up.Deleted(), synth.Calls()-1)
	assertStagingEmpty(t, dir)
}

func TestService_EnsureAudio_SecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	store := servicetest.NewStore()
	es := store.AddLanguage("es", true, false)
	word := store.AddWord("cat")
	tr := store.AddTranslation(word.ID, es.ID, "gato")
	synth := &servicetest.Synthesizer{}
	up := &servicetest.Uploader{}
	svc, _ := newTestService(t, store.Translations(), synth, up)

	first, err := svc.EnsureAudio(context.Background(), tr, es)
	require.NoError(t, err)
	second, err := svc.EnsureAudio(context.Background(), *first, es)
	require.NoError(t, err)

	require.NotNil(t, second.AudioURL)
	assert.Equal(t, *first.AudioURL, *second.AudioURL)
	assert.Equal(t, 1, synth.Calls())
	assert.Len(t, up.Keys(), 1)
}

func TestService_EnsureAudio_SameStaleTranslationTwice(t *testing.T) {
	t.Parallel()

	store := servicetest.NewStore()
	es := store.AddLanguage("es", true, false)
	word := store.AddWord("cat")
	tr := store.AddTranslation(word.ID, es.ID, "gato")
	synth := &servicetest.Synthesizer{}
	up := &servicetest.Uploader{}
	svc, _ := newTestService(t, store.Translations(), synth, up)

	first, err := svc.EnsureAudio(context.Background(), tr, es)
	require.NoError(t, err)
	second, err := svc.EnsureAudio(context.Background(), tr, es)
	require.NoError(t, err)

	require.NotNil(t, second.AudioURL)
	assert.Equal(t, *first.AudioURL, *second.AudioURL)
	assert.Equal(t, 1, synth.Calls())
	assert.Len(t, up.Keys(), 1)
	assert.Empty(t, up.Deleted())
}

func TestService_EnsureAudio_StoreReadFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	repo := &mockTranslationRepo{
		GetByIDFunc: func(context.Context, uuid.UUID) (*domain.Translation, error) { return nil, boom },
	}
	synth := &servicetest.Synthesizer{}
	up := &servicetest.Uploader{}
	svc, _ := newTestService(t, repo, synth, up)

	got, err := svc.EnsureAudio(context.Background(), newTranslation("hola"), spanishTTS)

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, got)
	assert.Equal(t, "hola", got.Text)
	assert.Zero(t, synth.Calls())
	assert.Empty(t, up.Keys())
}
