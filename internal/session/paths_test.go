package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".wazapp", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestAppDBPath(t *testing.T) {
	got := AppDBPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "wazapp.db")) {
		t.Errorf("AppDBPath(test) = %q, want suffix sessions/test/wazapp.db", got)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix sessions/test/LOCK", got)
	}
}

func TestPictureCacheDir(t *testing.T) {
	got := PictureCacheDir("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "pictures")) {
		t.Errorf("PictureCacheDir(test) = %q, want suffix sessions/test/pictures", got)
	}
}
