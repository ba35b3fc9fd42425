// Package logging configures the harness's structured logging. Diagnostics
// go to stderr as JSON so the child's protocol stream and the human-readable
// report on stdout stay clean; an optional log file gets size-based rotation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ParseLevel maps a config/flag string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// RotatingWriter writes to a log file with size-based rotation.
// When the file exceeds maxBytes, it is renamed to .1 and a new file is opened.
// Old rotated files beyond maxAge are deleted.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxAge   time.Duration
	file     *os.File
	size     int64
}

// NewRotatingWriter creates a writer that rotates at maxBytes and removes
// rotated files older than maxAge.
func NewRotatingWriter(path string, maxBytes int64, maxAge time.Duration) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		path:     path,
		maxBytes: maxBytes,
		maxAge:   maxAge,
	}
	if err := rw.openFile(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingWriter) openFile() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	rw.file = f
	rw.size = info.Size()
	return nil
}

func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size+int64(len(p)) > rw.maxBytes {
		if err := rw.rotate(); err != nil {
			// Best effort: continue writing to current file
			_ = err
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *RotatingWriter) rotate() error {
	rw.file.Close()

	rotated := rw.path + ".1"
	if err := os.Rename(rw.path, rotated); err != nil {
		// If rename fails, truncate current file
		f, openErr := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if openErr != nil {
			return fmt.Errorf("rotate: rename failed (%v), truncate also failed: %w", err, openErr)
		}
		rw.file = f
		rw.size = 0
		return fmt.Errorf("rotate rename: %w", err)
	}

	if err := rw.openFile(); err != nil {
		return err
	}

	// Clean up old rotated files
	go rw.cleanOld()
	return nil
}

func (rw *RotatingWriter) cleanOld() {
	dir := filepath.Dir(rw.path)
	base := filepath.Base(rw.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-rw.maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(dir, name))
		}
	}
}

// Close closes the underlying file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file != nil {
		return rw.file.Close()
	}
	return nil
}

// Setup creates the harness logger. With an empty logFile, JSON logs go to
// stderr only; otherwise they go to a rotating file and stderr both.
// Returns the logger and a cleanup function to close the log file.
func Setup(logFile string, level slog.Level) (*slog.Logger, func(), error) {
	if logFile == "" {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return logger, func() {}, nil
	}

	rw, err := NewRotatingWriter(logFile, 10*1024*1024, 7*24*time.Hour) // 10MB, 7 days
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}

	writer := io.MultiWriter(rw, os.Stderr)
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))

	cleanup := func() {
		rw.Close()
	}
	return logger, cleanup, nil
}
