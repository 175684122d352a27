// Package lockfile guards the state directory against a second gritd
// instance. The lock is a flock(2) on a well-known file, so it disappears
// with the process however the process dies; a stale file from a crash never
// blocks the next start.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory.
const LockFileName = "gritd.lock"

// Lock is a held state-directory lock.
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// Acquire takes an exclusive lock on the state directory, creating it when
// missing. When another process holds the lock the returned error is a
// *LockError naming the holder.
func Acquire(stateDir string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)
	slog.Debug("Lockfile.Acquire: acquiring", "lock_path", lockPath)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// Opened without O_TRUNC: the holder's info must survive a failed
	// acquisition so the error can name it.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	// LOCK_NB so a second instance fails fast instead of queueing behind
	// the first.
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := describeHolder(lockPath)
		slog.Error("Lockfile.Acquire: lock already held", "lock_path", lockPath, "holder", holder)
		return nil, &LockError{LockPath: lockPath, Holder: holder, Cause: err}
	}

	info := fmt.Sprintf("pid=%d started=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := file.Truncate(0); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to truncate lock file %s: %w", lockPath, err)
	}
	if _, err := file.WriteString(info); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock info to %s: %w", lockPath, err)
	}
	if err := file.Sync(); err != nil {
		slog.Warn("Lockfile.Acquire: failed to sync lock file", "lock_path", lockPath, "error", err)
	}

	slog.Info("Lockfile.Acquire: lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

// Release drops the lock and removes the lock file. Safe to call more than
// once.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Lockfile.Release: failed to release flock", "lock_path", l.path, "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Lockfile.Release: failed to close lock file", "lock_path", l.path, "error", err)
	}
	if err := os.Remove(l.path); err != nil {
		// Not critical; the flock itself is gone.
		slog.Warn("Lockfile.Release: failed to remove lock file", "lock_path", l.path, "error", err)
	}

	l.acquired = false
	l.file = nil
	slog.Info("Lockfile.Release: lock released", "lock_path", l.path)
	return nil
}

// LockError reports a lock held by another process.
type LockError struct {
	LockPath string
	Holder   string
	Cause    error
}

func (e *LockError) Error() string {
	msg := fmt.Sprintf("another gritd instance is using this state directory (lock file %s)", e.LockPath)
	if e.Holder != "" {
		msg += ": " + e.Holder
	}
	msg += fmt.Sprintf("; if that process is gone, remove the stale lock with: rm %s", e.LockPath)
	return msg
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// describeHolder reads the existing lock file so the error can name the
// process holding it.
func describeHolder(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return "unable to read lock file"
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "lock file carries no process information"
	}
	if pid := parsePID(content); pid > 0 {
		if isProcessRunning(pid) {
			return fmt.Sprintf("PID %d (running)", pid)
		}
		return fmt.Sprintf("PID %d (not running, stale lock)", pid)
	}
	return content
}

// parsePID extracts the pid=N field from lock file content.
func parsePID(content string) int {
	for _, field := range strings.Fields(content) {
		if rest, ok := strings.CutPrefix(field, "pid="); ok {
			if pid, err := strconv.Atoi(rest); err == nil {
				return pid
			}
		}
	}
	return 0
}

// isProcessRunning probes a PID with signal 0, which checks existence
// without delivering anything.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
