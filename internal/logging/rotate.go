package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMaxBytes is the size at which the side log is rotated.
	DefaultMaxBytes int64 = 10 * 1024 * 1024
	// DefaultMaxBackups is the number of rotated files kept (hooks.log.1 … hooks.log.5).
	DefaultMaxBackups = 5
)

// RotatingFile is an append-only log file that rotates once it grows past MaxBytes.
// Rotation is checked when the file is opened, which is once per hook process.
type RotatingFile struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenRotating opens path for appending, rotating it first if it has grown
// past maxBytes. Parent directories are created as needed.
func OpenRotating(path string, maxBytes int64, maxBackups int) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	rotated, err := rotateIfNeeded(path, maxBytes, maxBackups)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: path from resolved state dir
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	if rotated {
		fmt.Fprintf(f, "[%s] Log rotated (previous file exceeded %s)\n",
			time.Now().Format("2006-01-02 15:04:05"), humanize.IBytes(uint64(maxBytes)))
	}
	return &RotatingFile{path: path, file: f}, nil
}

func rotateIfNeeded(path string, maxBytes int64, maxBackups int) (bool, error) {
	info, err := os.Stat(path)
	if err != nil || info.Size() <= maxBytes {
		return false, nil
	}

	// hooks.log.4 -> hooks.log.5, ..., hooks.log.1 -> hooks.log.2
	for i := maxBackups - 1; i >= 1; i-- {
		older := fmt.Sprintf("%s.%d", path, i)
		newer := fmt.Sprintf("%s.%d", path, i+1)
		if _, err := os.Stat(older); err == nil {
			_ = os.Rename(older, newer)
		}
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return false, fmt.Errorf("rotate log %s: %w", path, err)
	}
	return true, nil
}

// Path returns the log file location.
func (r *RotatingFile) Path() string { return r.path }

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return 0, os.ErrClosed
	}
	return r.file.Write(p)
}

// Close closes the underlying file. Nil-safe and idempotent.
func (r *RotatingFile) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
