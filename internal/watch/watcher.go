// Package watch re-verifies proof files as they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/internal/registry"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// DefaultDebounce is how long a file must stay quiet before it is verified.
const DefaultDebounce = 300 * time.Millisecond

// Verifier checks an existing proof file. *client.Client satisfies it.
type Verifier interface {
	VerifyProof(ctx context.Context, kind models.ProverKind, content []byte, filename string) (*models.ProofResult, error)
}

// Event reports one verification triggered by a file change.
type Event struct {
	Path   string
	Prover models.ProverKind
	Result *models.ProofResult
	Err    error
}

// Handler receives events. It is called from a single goroutine.
type Handler func(Event)

// Watcher watches directories for proof file changes.
type Watcher struct {
	verifier  Verifier
	debounce  time.Duration
	recursive bool
	prover    *models.ProverKind
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive also watches subdirectories, including ones created later.
// Hidden directories are skipped.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithProver verifies every changed file with kind instead of detecting
// the prover from the file extension.
func WithProver(kind models.ProverKind) Option {
	return func(w *Watcher) { w.prover = &kind }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logging.OrNop(l) }
}

// New creates a Watcher.
func New(v Verifier, opts ...Option) *Watcher {
	w := &Watcher{
		verifier: v,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("watch")
	return w
}

// Run watches dirs until ctx is cancelled, calling handle for every
// verification. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handle Handler, dirs ...string) error {
	if len(dirs) == 0 {
		return errors.New("watch: no directories given")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range dirs {
		if err := w.add(fw, dir); err != nil {
			return err
		}
	}

	work := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range work {
			w.verify(ctx, path, handle)
		}
	}()
	defer func() {
		close(work)
		wg.Wait()
	}()

	interval := w.debounce / 4
	if interval <= 0 {
		interval = w.debounce
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case now := <-tick.C:
			for _, path := range w.due(now) {
				select {
				case work <- path:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (w *Watcher) add(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", root)
	}

	if !w.recursive {
		return fw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		w.logger.Debug("watching directory", zap.String("dir", path))
		return fw.Add(path)
	})
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) && w.recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(fw, event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	if _, ok := w.proverFor(event.Name); !ok {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now().Add(w.debounce)
	w.mu.Unlock()
}

// due removes and returns the paths whose quiet period has elapsed.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var paths []string
	for path, deadline := range w.pending {
		if !now.Before(deadline) {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

func (w *Watcher) proverFor(path string) (models.ProverKind, bool) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return 0, false
	}
	if w.prover != nil {
		return *w.prover, true
	}
	return registry.FromPath(path)
}

func (w *Watcher) verify(ctx context.Context, path string, handle Handler) {
	kind, ok := w.proverFor(path)
	if !ok {
		return
	}
	if _, err := os.Stat(path); err != nil {
		// Removed or renamed away before the quiet period ended.
		return
	}

	w.logger.Debug("verifying changed file", zap.String("path", path), zap.Stringer("prover", kind))
	result, err := w.verifier.VerifyProof(ctx, kind, nil, path)
	if ctx.Err() != nil {
		return
	}
	handle(Event{Path: path, Prover: kind, Result: result, Err: err})
}
