// Package watcher rebuilds a company's index when its policy source file changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/logger"
)

// DefaultDebounce collapses the burst of events an editor emits on save.
const DefaultDebounce = 500 * time.Millisecond

// ErrNothingToWatch is returned when no company has a source file to watch.
var ErrNothingToWatch = errors.New("watcher: no source files to watch")

// Indexer rebuilds single companies and resolves their source files.
type Indexer interface {
	BuildCompany(ctx context.Context, company string) (*domain.CompanyBuildResult, error)
	SourcePath(company string) (string, bool)
	CompanyForPath(path string) (string, bool)
}

// Rebuild reports the outcome of one rebuild.
type Rebuild struct {
	Company string
	Result  *domain.CompanyBuildResult
	Err     error
}

// Watcher watches the directories holding source files.
type Watcher struct {
	indexer   Indexer
	companies []string
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a rebuild starts.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for companies.
func New(indexer Indexer, companies []string, opts ...Option) *Watcher {
	w := &Watcher{
		indexer:   indexer,
		companies: companies,
		debounce:  DefaultDebounce,
		pending:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dirs returns the distinct directories holding the companies' source files.
func (w *Watcher) Dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, c := range w.companies {
		path, ok := w.indexer.SourcePath(c)
		if !ok {
			continue
		}
		dir := filepath.Dir(path)
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Run watches until ctx is cancelled, sending one Rebuild per completed
// rebuild on out. out may be nil. Rebuilds run one at a time.
func (w *Watcher) Run(ctx context.Context, out chan<- Rebuild) error {
	dirs := w.Dirs()
	if len(dirs) == 0 {
		return ErrNothingToWatch
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("watching %s", dir)
	}

	due := make(chan string, len(w.companies)+1)
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if company, ok := w.handleEvent(event); ok {
				w.schedule(ctx, company, due)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)

		case company := <-due:
			rb := w.rebuild(ctx, company)
			if out != nil {
				select {
				case out <- rb:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// handleEvent maps a filesystem event to the company whose source changed.
// Only writes and creates count; a removed source keeps its last index.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	return w.indexer.CompanyForPath(event.Name)
}

// schedule (re)starts the company's debounce timer.
func (w *Watcher) schedule(ctx context.Context, company string, due chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[company]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		if !w.claim(company, t) {
			return
		}
		select {
		case due <- company:
		case <-ctx.Done():
		}
	})
	w.pending[company] = t
}

// claim removes t from the pending timers if it is still the company's
// current timer. A timer that fired while schedule replaced it loses.
func (w *Watcher) claim(company string, t *time.Timer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending[company] != t {
		return false
	}
	delete(w.pending, company)
	return true
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for c, t := range w.pending {
		t.Stop()
		delete(w.pending, c)
	}
}

func (w *Watcher) rebuild(ctx context.Context, company string) Rebuild {
	logger.Info("source for %s changed, rebuilding", company)
	result, err := w.indexer.BuildCompany(ctx, company)
	if err != nil {
		logger.Warn("rebuild %s: %v", company, err)
	}
	return Rebuild{Company: company, Result: result, Err: err}
}
