package servicetest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Translator is a fake translation service. By default it answers
// "<to>:<text>".
type Translator struct {
	mu    sync.Mutex
	calls int

	// Delay is waited out (or the context) before answering.
	Delay time.Duration
	Fn    func(text, from, to string) (string, error)
}

func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	t.mu.Lock()
	t.calls++
	fn := t.Fn
	t.mu.Unlock()

	if err := wait(ctx, t.Delay); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(text, from, to)
	}
	return to + ":" + text, nil
}

// Calls reports how many Translate calls were made.
func (t *Translator) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Synthesizer is a fake speech synthesizer returning "mp3:<text>".
type Synthesizer struct {
	mu    sync.Mutex
	calls int

	Fn func(text, languageCode string) ([]byte, error)
}

func (s *Synthesizer) Synthesize(_ context.Context, text, languageCode string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	fn := s.Fn
	s.mu.Unlock()

	if fn != nil {
		return fn(text, languageCode)
	}
	return []byte("mp3:" + text), nil
}

// Calls reports how many Synthesize calls were made.
func (s *Synthesizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Uploader is a fake object store serving from https://cdn.test/.
type Uploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	// Fail, when set, is consulted before every upload.
	Fail func(key string) error
}

func (u *Uploader) Upload(_ context.Context, r io.Reader, key string) (string, error) {
	u.mu.Lock()
	fail := u.Fail
	u.mu.Unlock()

	if fail != nil {
		if err := fail(key); err != nil {
			return "", err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (u *Uploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

// Keys returns the stored object keys in sorted order.
func (u *Uploader) Keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	keys := make([]string, 0, len(u.objects))
	for k := range u.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Object returns the stored bytes for key.
func (u *Uploader) Object(key string) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.objects[key]
}

// Deleted returns every key passed to Delete.
func (u *Uploader) Deleted() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.deleted...)
}

// Labeler is a fake image labeler.
type Labeler struct {
	Detected []string
	Err      error
}

func (l *Labeler) Labels(_ context.Context, _ string, maxLabels int) ([]string, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	if len(l.Detected) > maxLabels {
		return l.Detected[:maxLabels], nil
	}
	return l.Detected, nil
}

// Recognizer is a fake speech recognizer.
type Recognizer struct {
	Transcript string
	Err        error
}

func (r *Recognizer) Transcribe(context.Context, []byte, string) (string, error) {
	return r.Transcript, r.Err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
