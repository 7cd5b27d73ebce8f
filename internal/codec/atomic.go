package codec

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reedcms/reed/internal/corerr"
)

// Snapshotter takes a pre-write backup of a file's current contents. It is
// satisfied by the backup package's Manager; codec never imports backup
// directly so the two packages can be tested in isolation.
type Snapshotter interface {
	Snapshot(path string) error
}

// AtomicWrite implements the atomic write protocol of spec.md §4.1:
//  1. data is already serialised by the caller.
//  2. snap.Snapshot takes a pre-write backup of the current file (C2).
//  3. data is written to a sibling temp file (mode 0600) and fsynced.
//  4. the temp file is renamed over path (atomic on the target filesystem).
//
// If any step fails, path is left untouched and the error is an IoError.
// A nil Snapshotter skips step 2 (used when a file is being created for
// the first time and has no prior content worth backing up).
func AtomicWrite(path string, data []byte, snap Snapshotter) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &corerr.IoError{Operation: "mkdir", Path: dir, Reason: err.Error()}
	}

	if snap != nil {
		if _, err := os.Stat(path); err == nil {
			if err := snap.Snapshot(path); err != nil {
				return &corerr.IoError{Operation: "backup", Path: path, Reason: err.Error()}
			}
		} else if !os.IsNotExist(err) {
			return &corerr.IoError{Operation: "stat", Path: path, Reason: err.Error()}
		}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return &corerr.IoError{Operation: "create-temp", Path: dir, Reason: err.Error()}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return &corerr.IoError{Operation: "chmod", Path: tmpPath, Reason: err.Error()}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &corerr.IoError{Operation: "write", Path: tmpPath, Reason: err.Error()}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &corerr.IoError{Operation: "fsync", Path: tmpPath, Reason: err.Error()}
	}

	if err := tmp.Close(); err != nil {
		return &corerr.IoError{Operation: "close", Path: tmpPath, Reason: err.Error()}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &corerr.IoError{Operation: "rename", Path: path, Reason: err.Error()}
	}

	return nil
}

// ReadFile is a thin wrapper that classifies a missing/unreadable file as
// an IoError consistent with the rest of the codec's error taxonomy.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &corerr.IoError{Operation: "read", Path: path, Reason: err.Error()}
	}
	return data, nil
}

// FileExists reports whether path exists, treating any stat error other
// than "not exist" as fatal.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
