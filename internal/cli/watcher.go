package cli

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// EventType represents the type of file change event.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// FileEvent represents a file change event.
type FileEvent struct {
	Type EventType
	Path string
	Name string
}

// String returns a human-readable string for the event type.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Watcher watches files and directories for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	handlers  map[string][]WatchHandler
	mu        sync.RWMutex
	wg        sync.WaitGroup
	events    chan FileEvent
	done      chan struct{}
	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// WatchHandler is called when a file change is detected.
type WatchHandler func(event FileEvent)

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration for file events.
// Multiple events for the same file within this duration will be coalesced.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a new file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		debounce: 100 * time.Millisecond,
		handlers: make(map[string][]WatchHandler),
		events:   make(chan FileEvent, 100),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch adds a file or directory to the watch list with an optional handler.
// The pattern must be an existing file or directory path: it is passed to
// fsnotify as-is, so a glob pattern is not expanded.
func (w *Watcher) Watch(pattern string, handler WatchHandler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Register the handler for this pattern
	w.handlers[pattern] = append(w.handlers[pattern], handler)

	// Add to fsnotify watcher
	return w.watcher.Add(pattern)
}

// WatchDir watches a directory's direct entries; subdirectories are not
// watched.
func (w *Watcher) WatchDir(dir string, handler WatchHandler) error {
	w.mu.Lock()
	w.handlers[dir] = append(w.handlers[dir], handler)
	w.mu.Unlock()

	return w.watcher.Add(dir)
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(2)

	go func() {
		defer w.wg.Done()
		w.processLoop(ctx)
	}()

	go func() {
		defer w.wg.Done()
		w.dispatchLoop(ctx)
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	return w.watcher.Close()
}

// processLoop reads fsnotify events and converts them to FileEvents.
func (w *Watcher) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// handleFSEvent converts an fsnotify event to a FileEvent and debounces it.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	var eventType EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = EventCreated
	case event.Op&fsnotify.Write != 0:
		eventType = EventModified
	case event.Op&fsnotify.Remove != 0:
		eventType = EventDeleted
	case event.Op&fsnotify.Rename != 0:
		eventType = EventRenamed
	default:
		return
	}

	fileEvent := FileEvent{
		Type: eventType,
		Path: event.Name,
		Name: filepath.Base(event.Name),
	}

	// Debounce the event
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	// Cancel any pending event for this file
	if timer, exists := w.pending[event.Name]; exists {
		timer.Stop()
	}

	// Schedule a new event
	w.pending[event.Name] = time.AfterFunc(w.debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, event.Name)
		w.pendingMu.Unlock()

		select {
		case w.events <- fileEvent:
		default:
			log.Warn().Str("path", event.Name).Msg("Event channel full, dropping event")
		}
	})
}

// dispatchLoop dispatches file events to registered handlers.
func (w *Watcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event := <-w.events:
			w.dispatchEvent(event)
		}
	}
}

// dispatchEvent finds matching handlers and calls them.
func (w *Watcher) dispatchEvent(event FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	// Find all handlers that match this event
	for pattern, handlers := range w.handlers {
		if matchesPattern(event.Path, pattern) {
			for _, handler := range handlers {
				handler(event)
			}
		}
	}
}

// matchesPattern checks if a path matches a pattern.
func matchesPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}

	if strings.HasPrefix(path, pattern+string(filepath.Separator)) {
		return true
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	return filepath.Dir(path) == pattern
}

// dataWatchDebounce coalesces the burst of Create+Write events most
// editors and `cp`/`mv` produce into a single reload.
const dataWatchDebounce = 200 * time.Millisecond

// DataWatcher watches a .reed/ data directory and reloads a Store's
// matching cache whenever one of its scalar files changes on disk,
// used by `reed watch` for the dev-mode external-edit loop.
type DataWatcher struct {
	watcher  *Watcher
	onChange func(base string)
}

// NewDataWatcher watches dataDir for changes to the five scalar files
// the Store owns and invokes onChange with the file's base name (e.g.
// "text.csv") on every create/write.
func NewDataWatcher(dataDir string, onChange func(base string)) (*DataWatcher, error) {
	w, err := NewWatcher(WithDebounce(dataWatchDebounce))
	if err != nil {
		return nil, err
	}

	dw := &DataWatcher{watcher: w, onChange: onChange}
	if err := w.WatchDir(dataDir, func(event FileEvent) {
		if event.Type != EventModified && event.Type != EventCreated {
			return
		}
		if !isReedDataFile(event.Name) {
			return
		}
		log.Info().Str("file", event.Name).Msg("reed data file changed, reloading cache")
		if dw.onChange != nil {
			dw.onChange(event.Name)
		}
	}); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return dw, nil
}

// Start begins watching in the background.
func (dw *DataWatcher) Start(ctx context.Context) { dw.watcher.Start(ctx) }

// Stop stops the watcher.
func (dw *DataWatcher) Stop() error { return dw.watcher.Stop() }

func isReedDataFile(name string) bool {
	switch name {
	case "text.csv", "routes.csv", "meta.csv", "project.csv", "server.csv":
		return true
	default:
		return false
	}
}
