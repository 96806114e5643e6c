package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
)

// DefaultDebounce coalesces the burst of events an editor or a copy produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher invalidates cached corpora when their asset files change on disk.
// A change to a base file invalidates every language; a change under
// translations/<lang>/ invalidates that language only.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	hooks   []func(lang string)
}

// NewWatcher watches the store's assets directory and its translation
// folders.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &Watcher{
		store:    store,
		watcher:  fw,
		debounce: debounce,
		logger:   logger.WithComponent("corpus-watcher"),
		pending:  make(map[string]*time.Timer),
	}
	if err := w.addTree(store.Registry().Dir()); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	translations := filepath.Join(root, TranslationsDir)
	entries, err := os.ReadDir(translations)
	if err != nil {
		return nil
	}
	if err := w.watcher.Add(translations); err != nil {
		return fmt.Errorf("watching %s: %w", translations, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.watcher.Add(filepath.Join(translations, e.Name())); err != nil {
			w.logger.Warn("cannot watch translation folder", "lang", e.Name(), "error", err)
		}
	}
	return nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	w.logger.Info("watching corpus assets", "dir", w.store.Registry().Dir())
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	root := w.store.Registry().Dir()
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	switch {
	case len(parts) == 1 && strings.HasSuffix(parts[0], ".json"):
		w.schedule("*")
	case len(parts) == 2 && parts[0] == TranslationsDir:
		// A language folder appeared or went away.
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(ev.Name); err != nil {
					w.logger.Warn("cannot watch translation folder", "lang", parts[1], "error", err)
				}
			}
		}
		w.schedule(parts[1])
	case len(parts) == 3 && parts[0] == TranslationsDir && strings.HasSuffix(parts[2], ".json"):
		w.schedule(parts[1])
	}
}

// schedule runs the invalidation for key once events for it stop arriving.
// The key "*" stands for every language.
func (w *Watcher) schedule(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[key]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()
		w.apply(key)
	})
}

// OnChange registers fn to run after a language was invalidated. lang is
// "*" when a base file changed.
func (w *Watcher) OnChange(fn func(lang string)) {
	w.mu.Lock()
	w.hooks = append(w.hooks, fn)
	w.mu.Unlock()
}

func (w *Watcher) apply(key string) {
	if err := w.store.Registry().Rescan(); err != nil {
		w.logger.Error("rescanning assets failed", "error", err)
	}
	if key == "*" {
		w.store.InvalidateAll()
	} else {
		w.store.Invalidate(key)
	}
	w.mu.Lock()
	hooks := append([]func(string){}, w.hooks...)
	w.mu.Unlock()
	for _, fn := range hooks {
		fn(key)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, t := range w.pending {
		t.Stop()
		delete(w.pending, k)
	}
}
