// Package backup implements the pre-write snapshot and retention layer
// (C2, spec.md §4.2): before any atomic write replaces a .reed file, the
// current contents are compressed into backups/<basename>.<unix_ts>.xz and
// older snapshots beyond the retention count are pruned.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"

	"github.com/reedcms/reed/internal/corerr"
	"github.com/reedcms/reed/internal/metrics"
)

// Mirror optionally replicates a freshly written backup file to an
// off-site store (e.g. S3). Mirror failures never fail the enclosing
// write — they are logged and otherwise ignored (spec.md does not define
// replication, §1 "Non-goals"; this is a purely additive convenience).
type Mirror interface {
	Mirror(ctx context.Context, localPath string) error
}

// Manager implements codec.Snapshotter and owns the backups/ directory
// sibling to every file it protects.
type Manager struct {
	retain int
	mirror Mirror
	clock  func() time.Time
}

// NewManager creates a Manager that retains the `retain` newest backups
// per file (spec.md §4.2 fixes this at 32; callers pass
// config.BackupConfig.RetainCount). mirror may be nil.
func NewManager(retain int, mirror Mirror) *Manager {
	if retain < 1 {
		retain = 32
	}
	return &Manager{retain: retain, mirror: mirror, clock: time.Now}
}

// Snapshot compresses the current contents of path into a timestamped
// .xz file under a sibling backups/ directory, then prunes old backups
// down to the retention count. It satisfies codec.Snapshotter.
func (m *Manager) Snapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing to snapshot yet; the file is being created for the
			// first time.
			return nil
		}
		return &corerr.IoError{Operation: "read", Path: path, Reason: err.Error()}
	}

	backupDir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return &corerr.IoError{Operation: "mkdir", Path: backupDir, Reason: err.Error()}
	}

	base := filepath.Base(path)
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s.%d.xz", base, m.clock().Unix()))

	if err := writeXZ(backupPath, data); err != nil {
		return &corerr.IoError{Operation: "compress", Path: backupPath, Reason: err.Error()}
	}
	metrics.RecordBackupWritten(base)

	pruned, err := m.prune(backupDir, base)
	if err != nil {
		return &corerr.IoError{Operation: "prune", Path: backupDir, Reason: err.Error()}
	}
	metrics.RecordBackupsPruned(base, pruned)

	if m.mirror != nil {
		if err := m.mirror.Mirror(context.Background(), backupPath); err != nil {
			log.Warn().Err(err).Str("path", backupPath).Msg("backup mirror failed, local backup retained")
		}
	}

	return nil
}

func writeXZ(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := xz.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// DecompressFile reads and decompresses a .xz backup file. Restore is a
// manual operation (spec.md §4.2); this is the primitive a restore tool
// would call, not something the core invokes on its own.
func DecompressFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &corerr.IoError{Operation: "open", Path: path, Reason: err.Error()}
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, &corerr.IoError{Operation: "decompress", Path: path, Reason: err.Error()}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &corerr.IoError{Operation: "decompress", Path: path, Reason: err.Error()}
	}
	return data, nil
}

// Prune removes backups for base beyond the retention count without
// taking a new snapshot first (`reed backup prune`).
func (m *Manager) Prune(backupDir, base string) (int, error) {
	return m.prune(backupDir, base)
}

func (m *Manager) prune(backupDir, base string) (int, error) {
	files, err := backupsFor(backupDir, base)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for i := m.retain; i < len(files); i++ {
		if err := os.Remove(filepath.Join(backupDir, files[i].name)); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

type backupFile struct {
	name string
	ts   int64
}

func backupsFor(backupDir, base string) ([]backupFile, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	prefix := base + "."
	var files []backupFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".xz") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".xz")
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, backupFile{name: name, ts: ts})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ts > files[j].ts })
	return files, nil
}

// List returns the backup file names for base (e.g. "text.csv"), newest
// first.
func List(backupDir, base string) ([]string, error) {
	files, err := backupsFor(backupDir, base)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}
