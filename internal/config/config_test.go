package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), perm); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	// WriteFile is subject to umask
	if err := os.Chmod(filepath.Join(dir, FileName), perm); err != nil {
		t.Fatalf("failed to chmod config file: %v", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `version: 1
backend: file
unlock_duration: 90s
log_level: debug
cooldown:
  enabled: false
`, 0600)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != "file" {
		t.Errorf("expected backend 'file', got '%s'", cfg.Backend)
	}
	if cfg.UnlockDuration != 90*time.Second {
		t.Errorf("expected unlock_duration 90s, got %v", cfg.UnlockDuration)
	}
	if cfg.Cooldown.Enabled {
		t.Error("expected cooldown disabled")
	}
	level, err := cfg.Level()
	if err != nil || level != zerolog.DebugLevel {
		t.Errorf("Level() = %v, %v; want debug", level, err)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "version: 1\nunlock_duration: 1h\n", 0600)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	want.UnlockDuration = time.Hour
	if *cfg != *want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"bad backend", "version: 1\nbackend: redis\n"},
		{"memory backend", "version: 1\nbackend: memory\n"},
		{"zero duration", "version: 1\nunlock_duration: 0s\n"},
		{"negative duration", "version: 1\nunlock_duration: -5m\n"},
		{"too long", "version: 1\nunlock_duration: 48h\n"},
		{"bad duration", "version: 1\nunlock_duration: soon\n"},
		{"bad level", "version: 1\nlog_level: loud\n"},
		{"not yaml", "version: [1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.content, 0600)

			_, err := Load(tmpDir)
			if !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoad_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "version: 1\n", 0644)

	_, err := Load(tmpDir)
	if !errors.Is(err, ErrConfigInsecure) {
		t.Errorf("expected ErrConfigInsecure, got %v", err)
	}
}

func TestLoad_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "real.yaml")
	if err := os.WriteFile(target, []byte("version: 1\n"), 0600); err != nil {
		t.Fatalf("failed to write target: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(tmpDir, FileName)); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	_, err := Load(tmpDir)
	if !errors.Is(err, ErrConfigSymlink) {
		t.Errorf("expected ErrConfigSymlink, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "vault")
	cfg := Default()
	cfg.Backend = "file"
	cfg.UnlockDuration = 5 * time.Minute

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(tmpDir, FileName))
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %04o", perm)
		}
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("got %+v, want %+v", loaded, cfg)
	}
}

func TestSave_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Version = 0
	if err := cfg.Save(t.TempDir()); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestHomeDir(t *testing.T) {
	t.Setenv(EnvHome, "/tmp/custom-vault")
	dir, err := HomeDir()
	if err != nil {
		t.Fatalf("HomeDir failed: %v", err)
	}
	if dir != "/tmp/custom-vault" {
		t.Errorf("expected /tmp/custom-vault, got %s", dir)
	}

	t.Setenv(EnvHome, "")
	dir, err = HomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if filepath.Base(dir) != DirName {
		t.Errorf("expected default dir to end in %s, got %s", DirName, dir)
	}
}
