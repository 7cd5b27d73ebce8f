package store

import (
	"time"

	"github.com/reedcms/reed/internal/corerr"
	"github.com/reedcms/reed/internal/metrics"
)

// GetText resolves req.Key in req.Language (falling back to the Store's
// configured default language when req.Language is empty), trying
// "key@env" before "key" (spec.md §4.3, "Fallback law").
func (s *Store) GetText(req Request, withMetrics bool) (Response[string], error) {
	start := time.Now()
	lang := req.Language
	if lang == "" {
		lang = s.defaultLang
	}

	s.textMu.RLock()
	bucket, ok := s.text[lang]
	var value string
	found := false
	if ok {
		for _, k := range lookupKeys(req.Key, req.Environment) {
			if v, exists := bucket[k]; exists {
				value, found = v.Value, true
				break
			}
		}
	}
	s.textMu.RUnlock()

	const source = "reedbase::get::text"
	metrics.RecordRead("text", sourceTag(found), time.Since(start))
	if !found {
		return Response[string]{}, &corerr.NotFound{Resource: "text", Context: req.Key}
	}
	return newResponse(value, source, true, start, 0, metrics.CacheInfo("text", source, true), withMetrics), nil
}

// GetRoute resolves req.Key in req.Language the same way as GetText.
func (s *Store) GetRoute(req Request, withMetrics bool) (Response[string], error) {
	start := time.Now()
	lang := req.Language
	if lang == "" {
		lang = s.defaultLang
	}

	s.routeMu.RLock()
	bucket, ok := s.route[lang]
	var value string
	found := false
	if ok {
		for _, k := range lookupKeys(req.Key, req.Environment) {
			if v, exists := bucket[k]; exists {
				value, found = v.Value, true
				break
			}
		}
	}
	s.routeMu.RUnlock()

	const source = "reedbase::get::route"
	metrics.RecordRead("route", sourceTag(found), time.Since(start))
	if !found {
		return Response[string]{}, &corerr.NotFound{Resource: "route", Context: req.Key}
	}
	return newResponse(value, source, true, start, 0, metrics.CacheInfo("route", source, true), withMetrics), nil
}

// GetMeta resolves req.Key with no language dimension, only the
// "key@env" then "key" fallback.
func (s *Store) GetMeta(req Request, withMetrics bool) (Response[string], error) {
	start := time.Now()

	s.metaMu.RLock()
	var value string
	found := false
	for _, k := range lookupKeys(req.Key, req.Environment) {
		if v, exists := s.meta[k]; exists {
			value, found = v.Value, true
			break
		}
	}
	s.metaMu.RUnlock()

	const source = "reedbase::get::meta"
	metrics.RecordRead("meta", sourceTag(found), time.Since(start))
	if !found {
		return Response[string]{}, &corerr.NotFound{Resource: "meta", Context: req.Key}
	}
	return newResponse(value, source, true, start, 0, metrics.CacheInfo("meta", source, true), withMetrics), nil
}

// GetConfig resolves a fully-qualified "project.*"/"server.*" key
// directly, or (when req.Key carries no namespace) tries "project.<key>"
// then "server.<key>" in that order (spec.md §4.3).
func (s *Store) GetConfig(req Request, withMetrics bool) (Response[string], error) {
	start := time.Now()

	candidates := configCandidates(req.Key)

	var value, source string
	found := false
	for _, c := range candidates {
		if v, ok := s.lookupConfig(c); ok {
			value, source, found = v.Value, c.cache, true
			break
		}
	}

	metrics.RecordRead("config", sourceTag(found), time.Since(start))
	if !found {
		return Response[string]{}, &corerr.NotFound{Resource: "config", Context: req.Key}
	}
	return newResponse(value, "reedbase::get::config", true, start, 0, metrics.CacheInfo("config", source, true), withMetrics), nil
}

type configCandidate struct {
	cache string // "project" or "server"
	key   string
}

func configCandidates(key string) []configCandidate {
	const (
		projectPrefix = "project."
		serverPrefix  = "server."
	)
	if len(key) > len(projectPrefix) && key[:len(projectPrefix)] == projectPrefix {
		return []configCandidate{{cache: "project", key: key[len(projectPrefix):]}}
	}
	if len(key) > len(serverPrefix) && key[:len(serverPrefix)] == serverPrefix {
		return []configCandidate{{cache: "server", key: key[len(serverPrefix):]}}
	}
	return []configCandidate{{cache: "project", key: key}, {cache: "server", key: key}}
}

func (s *Store) lookupConfig(c configCandidate) (valueEntry, bool) {
	switch c.cache {
	case "project":
		s.projectMu.RLock()
		defer s.projectMu.RUnlock()
		v, ok := s.project[c.key]
		return v, ok
	case "server":
		s.serverMu.RLock()
		defer s.serverMu.RUnlock()
		v, ok := s.server[c.key]
		return v, ok
	}
	return valueEntry{}, false
}

func sourceTag(found bool) string {
	if found {
		return "cache"
	}
	return "miss"
}
