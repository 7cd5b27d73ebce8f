package store

import (
	"strings"
	"sync"
	"time"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
	"github.com/reedcms/reed/internal/metrics"
)

// SetText validates, merges and atomically persists a text row, then
// updates the TEXT cache under its exclusive lock (spec.md §4.3, "Write
// semantics"). There is no partially-committed state: the cache update
// is the commit.
func (s *Store) SetText(req Request, withMetrics bool) (Response[string], error) {
	return s.setLanguageCache("text", s.textPath(), &s.textMu, s.text, req, withMetrics, nil)
}

// SetRoute behaves like SetText, plus rejects a path with a leading or
// trailing slash (spec.md §3, "Route row").
func (s *Store) SetRoute(req Request, withMetrics bool) (Response[string], error) {
	validate := func(value string) error {
		if strings.HasPrefix(value, "/") || strings.HasSuffix(value, "/") {
			return &corerr.ValidationError{Field: "path", Value: value, Constraint: "must not have a leading or trailing slash"}
		}
		return nil
	}
	return s.setLanguageCache("route", s.routePath(), &s.routeMu, s.route, req, withMetrics, validate)
}

func (s *Store) setLanguageCache(cacheName, path string, mu *sync.RWMutex, cache map[string]map[string]valueEntry, req Request, withMetrics bool, validate func(string) error) (Response[string], error) {
	start := time.Now()

	if validate != nil {
		if err := validate(req.Value); err != nil {
			metrics.RecordWrite(cacheName, "error", time.Since(start))
			return Response[string]{}, err
		}
	}

	pk, err := parseKey(req.Key)
	if err != nil {
		metrics.RecordWrite(cacheName, "error", time.Since(start))
		return Response[string]{}, err
	}
	lang := pk.lang
	if lang == "" {
		lang = req.Language
	}
	if lang == "" {
		lang = s.defaultLang
	}
	if lang == "" {
		metrics.RecordWrite(cacheName, "error", time.Since(start))
		return Response[string]{}, &corerr.ValidationError{Field: "language", Value: "", Constraint: "a language is required (key suffix, request field, or default_language)"}
	}
	env := pk.env
	if env == "" {
		env = req.Environment
	}

	fileLock := s.fileLock(path)
	fileLock.Lock()
	defer fileLock.Unlock()

	mu.Lock()
	defer mu.Unlock()

	merged := cloneLanguageCache(cache)
	bucket, ok := merged[lang]
	if !ok {
		bucket = make(map[string]valueEntry)
		merged[lang] = bucket
	}
	bucket[withEnv(pk.base, env)] = valueEntry{Value: req.Value, Description: req.Description}

	if err := s.writeScalarFile(path, emitLanguageCache(merged)); err != nil {
		metrics.RecordWrite(cacheName, "error", time.Since(start))
		return Response[string]{}, err
	}

	replaceLanguageCache(cache, merged)
	metrics.RecordWrite(cacheName, "ok", time.Since(start))

	source := "reedbase::set::" + cacheName
	return newResponse(req.Value, source, false, start, 1, metrics.CacheInfo(cacheName, source, false), withMetrics), nil
}

// SetMeta validates, merges and atomically persists a meta row (no
// language dimension), then updates the META cache and, on success,
// notifies the metaObserver (if any) with the key's base name so a
// dependent caching a derivation of this meta value — e.g.
// roles.Service's compiled condition expressions for "rule.*" keys —
// can invalidate it instead of serving a stale derivation.
func (s *Store) SetMeta(req Request, withMetrics bool) (Response[string], error) {
	resp, err := s.setFlatCache("meta", s.metaPath(), &s.metaMu, s.meta, req, withMetrics)
	if err == nil && s.metaObserver != nil {
		if pk, perr := parseKey(req.Key); perr == nil {
			s.metaObserver.OnMetaSet(pk.base)
		}
	}
	return resp, err
}

// SetConfig validates, merges and atomically persists a fully-qualified
// "project.*"/"server.*" config key into the matching flat cache.
func (s *Store) SetConfig(req Request, withMetrics bool) (Response[string], error) {
	start := time.Now()
	candidates := configCandidates(req.Key)
	if len(candidates) != 1 {
		metrics.RecordWrite("config", "error", time.Since(start))
		return Response[string]{}, &corerr.ValidationError{Field: "key", Value: req.Key, Constraint: "set_config requires a fully-qualified project.* or server.* key"}
	}
	c := candidates[0]
	inner := Request{Key: c.key, Value: req.Value, Description: req.Description, Environment: req.Environment}
	if c.cache == "project" {
		return s.setFlatCache("config", s.projectPath(), &s.projectMu, s.project, inner, withMetrics)
	}
	return s.setFlatCache("config", s.serverPath(), &s.serverMu, s.server, inner, withMetrics)
}

func (s *Store) setFlatCache(cacheName, path string, mu *sync.RWMutex, cache map[string]valueEntry, req Request, withMetrics bool) (Response[string], error) {
	start := time.Now()

	pk, err := parseKey(req.Key)
	if err != nil {
		metrics.RecordWrite(cacheName, "error", time.Since(start))
		return Response[string]{}, err
	}
	if pk.lang != "" {
		metrics.RecordWrite(cacheName, "error", time.Since(start))
		return Response[string]{}, &corerr.ValidationError{Field: "key", Value: req.Key, Constraint: "must not carry a language suffix"}
	}
	env := pk.env
	if env == "" {
		env = req.Environment
	}

	fileLock := s.fileLock(path)
	fileLock.Lock()
	defer fileLock.Unlock()

	mu.Lock()
	defer mu.Unlock()

	merged := cloneFlatCache(cache)
	merged[withEnv(pk.base, env)] = valueEntry{Value: req.Value, Description: req.Description}

	if err := s.writeScalarFile(path, emitFlatCache(merged)); err != nil {
		metrics.RecordWrite(cacheName, "error", time.Since(start))
		return Response[string]{}, err
	}

	replaceFlatCache(cache, merged)
	metrics.RecordWrite(cacheName, "ok", time.Since(start))

	source := "reedbase::set::" + cacheName
	return newResponse(req.Value, source, false, start, 1, metrics.CacheInfo(cacheName, source, false), withMetrics), nil
}

func (s *Store) writeScalarFile(path string, records []codec.ScalarRecord) error {
	data := codec.EmitScalarFile(records)
	return codec.AtomicWrite(path, data, s.backupManager)
}

func cloneLanguageCache(cache map[string]map[string]valueEntry) map[string]map[string]valueEntry {
	out := make(map[string]map[string]valueEntry, len(cache))
	for lang, bucket := range cache {
		b := make(map[string]valueEntry, len(bucket))
		for k, v := range bucket {
			b[k] = v
		}
		out[lang] = b
	}
	return out
}

func replaceLanguageCache(dst, src map[string]map[string]valueEntry) {
	for k := range dst {
		delete(dst, k)
	}
	for k, v := range src {
		dst[k] = v
	}
}

func cloneFlatCache(cache map[string]valueEntry) map[string]valueEntry {
	out := make(map[string]valueEntry, len(cache))
	for k, v := range cache {
		out[k] = v
	}
	return out
}

func replaceFlatCache(dst, src map[string]valueEntry) {
	for k := range dst {
		delete(dst, k)
	}
	for k, v := range src {
		dst[k] = v
	}
}
