// Package lock keeps a single vchatd per profile using an flock'd file.
package lock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Holder describes the daemon recorded in a lock file.
type Holder struct {
	PID     int
	Profile string
	Since   time.Time
}

// LockHeldError is returned when another daemon holds the profile lock.
type LockHeldError struct {
	Holder
	Path string
}

func (e *LockHeldError) Error() string {
	msg := fmt.Sprintf("profile %q already served by vchatd PID %d", e.Profile, e.PID)
	if !e.Since.IsZero() {
		msg += " since " + e.Since.Format(time.RFC3339)
	}
	return msg + " (" + e.Path + ")"
}

// Lock is an acquired lock file. The zero value and nil are released locks.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the exclusive lock at path for profile without blocking.
// A lock held by another open file description yields *LockHeldError.
func Acquire(path, profile string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		h, _ := ReadHolder(path)
		if h.Profile == "" {
			h.Profile = profile
		}
		return nil, &LockHeldError{Holder: h, Path: path}
	}

	if err := writeHolder(f, Holder{PID: os.Getpid(), Profile: profile, Since: time.Now().UTC()}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{file: f, path: path}, nil
}

func writeHolder(f *os.File, h Holder) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "pid=%d\nprofile=%s\nsince=%s\n", h.PID, h.Profile, h.Since.Format(time.RFC3339))
	if err != nil {
		return err
	}
	return f.Sync()
}

// Release unlocks and removes the lock file. It is safe to call more than
// once and on a nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Removed while still locked so a waiting daemon never sees a stale holder.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadHolder parses the lock file at path. ok is false when there is no
// file or it names no PID.
func ReadHolder(path string) (h Holder, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return Holder{}, false
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, found := strings.Cut(sc.Text(), "=")
		if !found {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "profile":
			h.Profile = value
		case "since":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h, h.PID > 0
}

// HolderPID returns the PID recorded at path, or 0 when the lock is free.
func HolderPID(path string) int {
	h, _ := ReadHolder(path)
	return h.PID
}
