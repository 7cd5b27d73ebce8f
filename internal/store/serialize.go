package store

import (
	"sort"
	"strings"

	"github.com/reedcms/reed/internal/codec"
)

// emitLanguageCache renders a language cache back into scalar records,
// reconstructing each full "base[@lang][@env]" key from its language
// bucket and within-bucket "base[@env]" form. Records are sorted by key
// for a stable, diff-friendly on-disk order.
func emitLanguageCache(cache map[string]map[string]valueEntry) []codec.ScalarRecord {
	var records []codec.ScalarRecord
	for lang, bucket := range cache {
		for keyWithEnv, entry := range bucket {
			base, env := splitEnv(keyWithEnv)
			fullKey := base + "@" + lang
			if env != "" {
				fullKey += "@" + env
			}
			records = append(records, codec.ScalarRecord{Key: fullKey, Value: entry.Value, Description: entry.Description})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records
}

// emitFlatCache renders a flat (no-language) cache back into scalar
// records, sorted by key.
func emitFlatCache(cache map[string]valueEntry) []codec.ScalarRecord {
	records := make([]codec.ScalarRecord, 0, len(cache))
	for keyWithEnv, entry := range cache {
		records = append(records, codec.ScalarRecord{Key: keyWithEnv, Value: entry.Value, Description: entry.Description})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records
}

// splitEnv reverses withEnv: "base@env" -> ("base", "env"), "base" -> ("base", "").
func splitEnv(keyWithEnv string) (base, env string) {
	if idx := strings.LastIndex(keyWithEnv, "@"); idx >= 0 {
		return keyWithEnv[:idx], keyWithEnv[idx+1:]
	}
	return keyWithEnv, ""
}
