// Package store implements C3 (the five-cache Store core) and C4 (the
// request/response envelope) of the reed data core: a process-wide,
// read-optimised cache over text.csv, routes.csv, meta.csv, project.csv
// and server.csv, with language/environment fallback resolution and
// write-through persistence via internal/codec and internal/backup.
package store

import (
	"sync"

	"github.com/reedcms/reed/internal/codec"
)

// Store owns every in-memory cache for the process lifetime (spec.md
// §3, "Ownership"). Each cache has its own reader-writer lock so a write
// to one cache never blocks readers of another.
type Store struct {
	dataDir       string
	defaultLang   string
	backupManager codec.Snapshotter

	textMu sync.RWMutex
	text   map[string]map[string]valueEntry // language -> key(with optional @env) -> entry

	routeMu sync.RWMutex
	route   map[string]map[string]valueEntry

	metaMu sync.RWMutex
	meta   map[string]valueEntry

	projectMu sync.RWMutex
	project   map[string]valueEntry

	serverMu sync.RWMutex
	server   map[string]valueEntry

	fileLocksMu sync.Mutex
	fileLocks   map[string]*sync.Mutex

	metaObserver MetaObserver
}

// MetaObserver is notified whenever a meta key is successfully
// rewritten via SetMeta, so a dependent that has cached something
// derived from a meta value can drop its cache entry instead of serving
// a stale derivation forever. roles.Service implements this to
// invalidate compiled CEL programs backing "rule.<rule_name>" keys.
type MetaObserver interface {
	OnMetaSet(key string)
}

// New constructs an empty, uninitialised Store rooted at dataDir. Call
// InitAll before serving any reader. backupManager is typically a
// *backup.Manager; store depends only on codec.Snapshotter so it can be
// tested without importing the backup package.
func New(dataDir, defaultLang string, backupManager codec.Snapshotter) *Store {
	return &Store{
		dataDir:       dataDir,
		defaultLang:   defaultLang,
		backupManager: backupManager,
		text:          make(map[string]map[string]valueEntry),
		route:         make(map[string]map[string]valueEntry),
		meta:          make(map[string]valueEntry),
		project:       make(map[string]valueEntry),
		server:        make(map[string]valueEntry),
		fileLocks:     make(map[string]*sync.Mutex),
	}
}

// SetMetaObserver installs the observer notified by future SetMeta
// calls. Not safe to call concurrently with SetMeta; intended to be set
// once during startup wiring, after store.New and roles.NewService but before the
// CLI or any server loop starts accepting writes.
func (s *Store) SetMetaObserver(o MetaObserver) { s.metaObserver = o }

// valueEntry is what each cache actually stores per key: the resolved
// value plus its description, so a later set_* that omits the
// description does not silently erase the one recorded at creation.
type valueEntry struct {
	Value       string
	Description string
}

// fileLock returns the exclusive per-file lock for path, creating it on
// first use. Concurrent writers to the same file are serialised through
// this lock (spec.md §5, "Write path").
func (s *Store) fileLock(path string) *sync.Mutex {
	s.fileLocksMu.Lock()
	defer s.fileLocksMu.Unlock()
	l, ok := s.fileLocks[path]
	if !ok {
		l = &sync.Mutex{}
		s.fileLocks[path] = l
	}
	return l
}
