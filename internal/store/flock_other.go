//go:build !unix

package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// lockFile opens the sibling .lock file without locking it. Advisory locks
// are unix-only; elsewhere the host's serialized hook execution is the only
// guard.
func lockFile(path string) (*os.File, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: lockPath derived from the state dir
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	return f, nil
}

func unlockFile(f *os.File) {
	if f == nil {
		return
	}
	_ = f.Close()
}
