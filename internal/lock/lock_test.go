package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "profiles", "main", "LOCK")
}

func TestAcquireWritesHolder(t *testing.T) {
	path := lockPath(t)
	before := time.Now().Add(-time.Second)

	l, err := Acquire(path, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = l.Release() }()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("lock file mode = %o, want 600", perm)
	}

	h, ok := ReadHolder(path)
	if !ok {
		t.Fatal("ReadHolder() found no holder")
	}
	if h.PID != os.Getpid() || h.Profile != "main" {
		t.Errorf("holder = %+v", h)
	}
	if h.Since.Before(before) {
		t.Errorf("Since = %v, want after %v", h.Since, before)
	}
}

func TestSecondAcquireReportsHolder(t *testing.T) {
	path := lockPath(t)

	l1, err := Acquire(path, "main")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(path, "main")
	var held *LockHeldError
	if !errors.As(err, &held) {
		t.Fatalf("second Acquire() error = %v, want *LockHeldError", err)
	}
	if held.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", held.PID, os.Getpid())
	}
	if held.Path != path {
		t.Errorf("Path = %q, want %q", held.Path, path)
	}
	if !strings.Contains(held.Error(), `profile "main"`) || !strings.Contains(held.Error(), " since ") {
		t.Errorf("Error() = %q", held.Error())
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path, "main")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file still present after Release: %v", err)
	}

	l, err = Acquire(path, "main")
	if err != nil {
		t.Fatalf("Acquire() after Release error = %v", err)
	}
	_ = l.Release()
}

func TestHolderPID(t *testing.T) {
	path := lockPath(t)
	if pid := HolderPID(path); pid != 0 {
		t.Errorf("HolderPID() without lock = %d, want 0", pid)
	}

	l, err := Acquire(path, "main")
	if err != nil {
		t.Fatal(err)
	}
	if pid := HolderPID(path); pid != os.Getpid() {
		t.Errorf("HolderPID() = %d, want %d", pid, os.Getpid())
	}
	_ = l.Release()
	if pid := HolderPID(path); pid != 0 {
		t.Errorf("HolderPID() after release = %d, want 0", pid)
	}
}

func TestReadHolderIgnoresJunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")
	if err := os.WriteFile(path, []byte("garbage\npid=oops\nsince=yesterday\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if h, ok := ReadHolder(path); ok || h.PID != 0 || !h.Since.IsZero() {
		t.Errorf("ReadHolder() = %+v, %v", h, ok)
	}
}

func TestReleaseNilAndTwice(t *testing.T) {
	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}

	l, err := Acquire(lockPath(t), "main")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}
