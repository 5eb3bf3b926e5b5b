package fwait

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeTarget(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"plain path", "/tmp/x/data.txt", "_tmp_x_data_txt"},
		{"alphanumeric only", "abcXYZ019", "abcXYZ019"},
		{"wildcard pattern", "/var/log/app-*.log", "_var_log_app___log"},
		{"spaces and symbols", "a b!c@d", "a_b_c_d"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTarget(tt.target)
			if got != tt.want {
				t.Errorf("SanitizeTarget(%q) = %q, want %q", tt.target, got, tt.want)
			}
			if len(got) != len(tt.target) {
				t.Errorf("SanitizeTarget(%q) changed length: %d -> %d", tt.target, len(tt.target), len(got))
			}
			for i := 0; i < len(got); i++ {
				c := got[i]
				ok := c == '_' ||
					(c >= 'a' && c <= 'z') ||
					(c >= 'A' && c <= 'Z') ||
					(c >= '0' && c <= '9')
				if !ok {
					t.Errorf("SanitizeTarget(%q) produced invalid byte %q at %d", tt.target, c, i)
				}
			}
		})
	}
}

func TestAcquireLockMutualExclusion(t *testing.T) {
	dir := t.TempDir()
	target := "/tmp/x/data.txt"

	lock, err := AcquireLock(dir, target, nil)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	// flock conflicts across file descriptors even within one process, so a
	// second acquire must fail while the first is held.
	if _, err := AcquireLock(dir, target, nil); !errors.Is(err, ErrCannotLock) {
		t.Fatalf("second acquire: got %v, want ErrCannotLock", err)
	}

	// The contended lock file must be left in place for the holder.
	if _, err := os.Stat(lock.Path()); err != nil {
		t.Fatalf("lock file missing after contention: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file still exists after release: %v", err)
	}

	// Target must be acquirable again once released.
	relock, err := AcquireLock(dir, target, nil)
	if err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
	if err := relock.Release(); err != nil {
		t.Fatalf("second release failed: %v", err)
	}
}

func TestAcquireLockDeterministicPath(t *testing.T) {
	dir := t.TempDir()
	target := "/tmp/x/data.txt"

	lock, err := AcquireLock(dir, target, nil)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer lock.Release()

	want := filepath.Join(dir, SanitizeTarget(target))
	if lock.Path() != want {
		t.Errorf("lock path = %q, want %q", lock.Path(), want)
	}
}

func TestAcquireLockCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")

	lock, err := AcquireLock(dir, "target", nil)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer lock.Release()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("lock directory not created: %v", err)
	}
}

func TestReleaseOrderingKeepsExclusion(t *testing.T) {
	dir := t.TempDir()
	target := "/tmp/x/data.txt"

	a, err := AcquireLock(dir, target, nil)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Replay a release mid-flight: the file is already removed but the lock
	// is still held, with two other watchers racing in between. The second
	// racer must contend with the first, never with a deleted inode.
	if err := os.Remove(a.path); err != nil {
		t.Fatal(err)
	}

	b, err := AcquireLock(dir, target, nil)
	if err != nil {
		t.Fatalf("acquire against a fresh lock file failed: %v", err)
	}

	if _, err := AcquireLock(dir, target, nil); !errors.Is(err, ErrCannotLock) {
		t.Fatalf("concurrent acquire: got %v, want ErrCannotLock", err)
	}

	// Finishing the first watcher's release changes nothing for the holder.
	if err := a.fl.Unlock(); err != nil {
		t.Fatal(err)
	}
	a.released = true

	if _, err := AcquireLock(dir, target, nil); !errors.Is(err, ErrCannotLock) {
		t.Fatalf("acquire after old unlock: got %v, want ErrCannotLock", err)
	}

	if err := b.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir, "target", nil)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second release failed: %v", err)
	}

	var nilLock *TargetLock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil release failed: %v", err)
	}
}
