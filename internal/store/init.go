package store

import (
	"os"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

// InitAll loads every scalar file once, building the five caches. It is
// idempotent and must complete before any reader observes the Store
// (spec.md §4.3, "Initialisation"). A parse error on any file is fatal:
// the core refuses to serve a file it cannot fully parse.
func (s *Store) InitAll() error {
	text, err := loadLanguageCache(s.textPath())
	if err != nil {
		return err
	}
	route, err := loadLanguageCache(s.routePath())
	if err != nil {
		return err
	}
	meta, err := loadFlatCache(s.metaPath())
	if err != nil {
		return err
	}
	project, err := loadFlatCache(s.projectPath())
	if err != nil {
		return err
	}
	server, err := loadFlatCache(s.serverPath())
	if err != nil {
		return err
	}

	s.textMu.Lock()
	s.text = text
	s.textMu.Unlock()

	s.routeMu.Lock()
	s.route = route
	s.routeMu.Unlock()

	s.metaMu.Lock()
	s.meta = meta
	s.metaMu.Unlock()

	s.projectMu.Lock()
	s.project = project
	s.projectMu.Unlock()

	s.serverMu.Lock()
	s.server = server
	s.serverMu.Unlock()

	return nil
}

// ReloadFile re-parses a single .reed file named by its base filename
// (e.g. "text.csv") and swaps only the matching cache, leaving the
// other four untouched. Used by `reed watch` to pick up external edits
// without a full InitAll (spec.md §4.1: still a whole-file reload, just
// scoped to the one file that changed).
func (s *Store) ReloadFile(base string) error {
	switch base {
	case "text.csv":
		cache, err := loadLanguageCache(s.textPath())
		if err != nil {
			return err
		}
		s.textMu.Lock()
		s.text = cache
		s.textMu.Unlock()
	case "routes.csv":
		cache, err := loadLanguageCache(s.routePath())
		if err != nil {
			return err
		}
		s.routeMu.Lock()
		s.route = cache
		s.routeMu.Unlock()
	case "meta.csv":
		cache, err := loadFlatCache(s.metaPath())
		if err != nil {
			return err
		}
		s.metaMu.Lock()
		s.meta = cache
		s.metaMu.Unlock()
	case "project.csv":
		cache, err := loadFlatCache(s.projectPath())
		if err != nil {
			return err
		}
		s.projectMu.Lock()
		s.project = cache
		s.projectMu.Unlock()
	case "server.csv":
		cache, err := loadFlatCache(s.serverPath())
		if err != nil {
			return err
		}
		s.serverMu.Lock()
		s.server = cache
		s.serverMu.Unlock()
	default:
		return &corerr.NotFound{Resource: "reed file", Context: base}
	}
	return nil
}

// loadLanguageCache loads a scalar file whose keys carry a required
// language suffix into a language -> key(with optional @env) -> entry map
// (TEXT and ROUTE, spec.md §4.3).
func loadLanguageCache(path string) (map[string]map[string]valueEntry, error) {
	records, err := readScalarFile(path)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]map[string]valueEntry)
	for _, rec := range records {
		pk, err := parseKey(rec.Key)
		if err != nil {
			return nil, err
		}
		if pk.lang == "" {
			return nil, &corerr.ParseError{Input: rec.Key, Reason: "language-scoped file requires a language suffix on every key"}
		}
		bucket, ok := cache[pk.lang]
		if !ok {
			bucket = make(map[string]valueEntry)
			cache[pk.lang] = bucket
		}
		bucket[withEnv(pk.base, pk.env)] = valueEntry{Value: rec.Value, Description: rec.Description}
	}
	return cache, nil
}

// loadFlatCache loads a scalar file whose keys carry no language
// dimension into a flat key(with optional @env) -> entry map (META,
// PROJECT_CONFIG, SERVER_CONFIG).
func loadFlatCache(path string) (map[string]valueEntry, error) {
	records, err := readScalarFile(path)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]valueEntry, len(records))
	for _, rec := range records {
		pk, err := parseKey(rec.Key)
		if err != nil {
			return nil, err
		}
		if pk.lang != "" {
			return nil, &corerr.ParseError{Input: rec.Key, Reason: "language-less file must not carry a language suffix"}
		}
		cache[withEnv(pk.base, pk.env)] = valueEntry{Value: rec.Value, Description: rec.Description}
	}
	return cache, nil
}

func readScalarFile(path string) ([]codec.ScalarRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &corerr.IoError{Operation: "open", Path: path, Reason: err.Error()}
	}
	defer f.Close()

	records, err := codec.ParseScalarFile(f)
	if err != nil {
		return nil, err
	}
	return records, nil
}
