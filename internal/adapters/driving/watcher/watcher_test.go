package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

type fakeIndexer struct {
	mu      sync.Mutex
	sources map[string]string
	builds  []string
	err     error
}

func (f *fakeIndexer) BuildCompany(_ context.Context, company string) (*domain.CompanyBuildResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, company)
	if f.err != nil {
		return &domain.CompanyBuildResult{Company: company, Skipped: true}, f.err
	}
	return &domain.CompanyBuildResult{Company: company, Indexed: 3}, nil
}

func (f *fakeIndexer) SourcePath(company string) (string, bool) {
	p, ok := f.sources[company]
	return p, ok
}

func (f *fakeIndexer) CompanyForPath(path string) (string, bool) {
	for c, p := range f.sources {
		if filepath.Clean(p) == filepath.Clean(path) {
			return c, true
		}
	}
	return "", false
}

func (f *fakeIndexer) Builds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.builds...)
}

func TestWatcher_Dirs(t *testing.T) {
	dir := t.TempDir()
	indexer := &fakeIndexer{sources: map[string]string{
		"A": filepath.Join(dir, "a.csv"),
		"B": filepath.Join(dir, "b.csv"),
		"C": filepath.Join(dir, "sub", "c.pdf"),
	}}

	w := New(indexer, []string{"A", "B", "C", "Unknown"})

	assert.Equal(t, []string{dir, filepath.Join(dir, "sub")}, w.Dirs())
}

func TestWatcher_HandleEvent(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.csv")
	indexer := &fakeIndexer{sources: map[string]string{"A": source}}
	w := New(indexer, []string{"A"})

	tests := []struct {
		name    string
		event   fsnotify.Event
		company string
		ok      bool
	}{
		{"write", fsnotify.Event{Name: source, Op: fsnotify.Write}, "A", true},
		{"create", fsnotify.Event{Name: source, Op: fsnotify.Create}, "A", true},
		{"write and chmod", fsnotify.Event{Name: source, Op: fsnotify.Write | fsnotify.Chmod}, "A", true},
		{"chmod only", fsnotify.Event{Name: source, Op: fsnotify.Chmod}, "", false},
		{"remove", fsnotify.Event{Name: source, Op: fsnotify.Remove}, "", false},
		{"rename", fsnotify.Event{Name: source, Op: fsnotify.Rename}, "", false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company, ok := w.handleEvent(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.company, company)
		})
	}
}

func TestWatcher_Run_NothingToWatch(t *testing.T) {
	w := New(&fakeIndexer{}, []string{"A"})

	err := w.Run(context.Background(), nil)

	assert.ErrorIs(t, err, ErrNothingToWatch)
}

func TestWatcher_Run_RebuildsChangedCompany(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("text\n"), 0600))
	require.NoError(t, os.WriteFile(b, []byte("text\n"), 0600))
	indexer := &fakeIndexer{sources: map[string]string{"A": a, "B": b}}
	w := New(indexer, []string{"A", "B"}, WithDebounce(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Rebuild, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, out) }()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(a, []byte("text\n보험 약관\n"), 0600))
	}

	select {
	case rb := <-out:
		assert.Equal(t, "A", rb.Company)
		assert.NoError(t, rb.Err)
		assert.Equal(t, 3, rb.Result.Indexed)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for rebuild")
	}

	select {
	case rb := <-out:
		t.Fatalf("unexpected second rebuild of %s", rb.Company)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, []string{"A"}, indexer.Builds())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Rebuild_ReportsErrors(t *testing.T) {
	indexer := &fakeIndexer{err: errors.New("no documents")}
	w := New(indexer, nil)

	rb := w.rebuild(context.Background(), "A")

	assert.Equal(t, "A", rb.Company)
	assert.EqualError(t, rb.Err, "no documents")
	require.NotNil(t, rb.Result)
	assert.True(t, rb.Result.Skipped)
}

func TestWithDebounce_IgnoresNonPositive(t *testing.T) {
	w := New(&fakeIndexer{}, nil, WithDebounce(0))

	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_SupersededTimerDoesNotFire(t *testing.T) {
	w := New(&fakeIndexer{}, nil, WithDebounce(time.Hour))
	t.Cleanup(w.stopPending)
	due := make(chan string, 2)
	ctx := context.Background()

	w.schedule(ctx, "A", due)
	w.mu.Lock()
	first := w.pending["A"]
	w.mu.Unlock()
	w.schedule(ctx, "A", due)

	assert.False(t, w.claim("A", first), "replaced timer must not claim the rebuild")
	w.mu.Lock()
	current, ok := w.pending["A"]
	w.mu.Unlock()
	require.True(t, ok, "newer timer stays pending")
	assert.NotSame(t, first, current)

	assert.True(t, w.claim("A", current))
	assert.False(t, w.claim("A", current), "a timer claims at most once")
	assert.Empty(t, due)
}
