package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reedcms/reed/internal/backup"
)

type failingSnapshotter struct{}

func (failingSnapshotter) Snapshot(path string) error { return errors.New("disk full") }

func newTestStore(t *testing.T, defaultLang string) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(dir, defaultLang, backup.NewManager(32, nil))
}

func writeSeedFile(t *testing.T, s *Store, name, content string) {
	t.Helper()
	path := filepath.Join(s.dataDir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

// TestGetText_FallbackLaw is spec.md §8 scenario S1: env override wins
// over the base key, and a missing language returns NotFound.
func TestGetText_FallbackLaw(t *testing.T) {
	s := newTestStore(t, "en")
	writeSeedFile(t, s, "text.csv",
		"key|value|description\n"+
			"page.title@en|Welcome|\n"+
			"page.title@en@dev|Welcome [DEV]|\n")

	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}

	resp, err := s.GetText(Request{Key: "page.title", Language: "en", Environment: "dev"}, false)
	if err != nil {
		t.Fatalf("GetText(dev) failed: %v", err)
	}
	if resp.Data != "Welcome [DEV]" {
		t.Errorf("expected env-specific value, got %q", resp.Data)
	}

	resp, err = s.GetText(Request{Key: "page.title", Language: "en"}, false)
	if err != nil {
		t.Fatalf("GetText(no env) failed: %v", err)
	}
	if resp.Data != "Welcome" {
		t.Errorf("expected base value, got %q", resp.Data)
	}

	_, err = s.GetText(Request{Key: "page.title", Language: "de"}, false)
	if err == nil {
		t.Error("expected NotFound for missing language")
	}
}

func TestGetText_DefaultLanguageFallThrough(t *testing.T) {
	s := newTestStore(t, "en")
	writeSeedFile(t, s, "text.csv", "key|value|description\npage.title@en|Welcome|\n")
	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}

	resp, err := s.GetText(Request{Key: "page.title"}, false)
	if err != nil {
		t.Fatalf("GetText with no language should fall through to default: %v", err)
	}
	if resp.Data != "Welcome" {
		t.Errorf("expected default-language value, got %q", resp.Data)
	}
}

func TestSetText_WritesThroughAndUpdatesCache(t *testing.T) {
	s := newTestStore(t, "en")
	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}

	if _, err := s.SetText(Request{Key: "a.b@en", Value: "v1"}, false); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}

	resp, err := s.GetText(Request{Key: "a.b", Language: "en"}, false)
	if err != nil || resp.Data != "v1" {
		t.Fatalf("cache not updated after SetText: %v, %q", err, resp.Data)
	}

	reopened := New(s.dataDir, "en", backup.NewManager(32, nil))
	if err := reopened.InitAll(); err != nil {
		t.Fatalf("re-InitAll failed: %v", err)
	}
	resp, err = reopened.GetText(Request{Key: "a.b", Language: "en"}, false)
	if err != nil || resp.Data != "v1" {
		t.Fatalf("value not persisted to disk: %v, %q", err, resp.Data)
	}
}

func TestSetRoute_RejectsLeadingSlash(t *testing.T) {
	s := newTestStore(t, "en")
	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}
	_, err := s.SetRoute(Request{Key: "home@en", Value: "/blog"}, false)
	if err == nil {
		t.Fatal("expected ValidationError for leading slash")
	}
}

func TestGetConfig_TriesProjectThenServer(t *testing.T) {
	s := newTestStore(t, "en")
	writeSeedFile(t, s, "project.csv", "key|value|description\nlanguages|en,de|\n")
	writeSeedFile(t, s, "server.csv", "key|value|description\nport|8080|\n")
	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}

	resp, err := s.GetConfig(Request{Key: "languages"}, false)
	if err != nil || resp.Data != "en,de" {
		t.Fatalf("expected project.languages, got %v %q", err, resp.Data)
	}

	resp, err = s.GetConfig(Request{Key: "server.port"}, false)
	if err != nil || resp.Data != "8080" {
		t.Fatalf("expected server.port, got %v %q", err, resp.Data)
	}

	_, err = s.GetConfig(Request{Key: "missing"}, false)
	if err == nil {
		t.Fatal("expected NotFound for unknown config key")
	}
}

// TestAtomicWrite_FaultLeavesCacheAndFileUnchanged is spec.md §8 property
// 2 / scenario S2 at the Store level: a failing backup step must leave
// both the on-disk file and the in-memory cache exactly as they were.
func TestAtomicWrite_FaultLeavesCacheAndFileUnchanged(t *testing.T) {
	s := newTestStore(t, "en")
	writeSeedFile(t, s, "text.csv", "key|value|description\na.b@en|v|\n")
	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}
	// Inject a failing snapshotter to simulate the disk-full fault of
	// scenario S2 at the backup step.
	s.backupManager = failingSnapshotter{}

	_, err := s.SetText(Request{Key: "a.b@en", Value: "new"}, false)
	if err == nil {
		t.Fatal("expected write to fail when backup snapshot cannot be written")
	}

	data, readErr := os.ReadFile(filepath.Join(s.dataDir, "text.csv"))
	if readErr != nil {
		t.Fatalf("reading text.csv: %v", readErr)
	}
	if string(data) != "key|value|description\na.b@en|v|\n" {
		t.Errorf("file content changed despite failed write: %q", data)
	}

	resp, err := s.GetText(Request{Key: "a.b", Language: "en"}, false)
	if err != nil || resp.Data != "v" {
		t.Errorf("cache changed despite failed write: %v, %q", err, resp.Data)
	}
}
