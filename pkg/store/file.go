package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Constants
const (
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only

	// MinDiskSpaceBytes is the free space required before any write.
	MinDiskSpaceBytes = 1024 * 1024
	// DiskWarningPercent triggers a warning when the disk is this full.
	DiskWarningPercent = 90

	recordExt = ".rec"
)

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}

// File stores each key as one file in a directory. File names are the
// SHA-256 of the key so account ids never reach the file system.
type File struct {
	dir string
	mu  sync.Mutex
	log zerolog.Logger

	// diskSpace is replaceable in tests
	diskSpace func(path string) (*DiskSpaceInfo, error)
}

// NewFile creates a file store rooted at dir, creating it with 0700.
func NewFile(dir string, logger zerolog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return nil, fmt.Errorf("store: failed to create directory: %w", err)
	}
	return &File{
		dir:       dir,
		log:       logger,
		diskSpace: CheckDiskSpace,
	}, nil
}

// Dir returns the store directory.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(h[:])+recordExt)
}

// Get implements Store.
func (f *File) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store: failed to read record: %w", err)
	}
	return string(data), nil
}

// Set implements Store. The value is written to a temporary file which is
// synced and renamed over the target, so readers never see a partial record.
func (f *File) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrKeyInvalid
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkDiskSpaceForWrite(len(value)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("store: failed to set permissions: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("store: failed to write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: failed to sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: failed to close record: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return fmt.Errorf("store: failed to replace record: %w", err)
	}
	return nil
}

// Remove implements Store.
func (f *File) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: failed to remove record: %w", err)
	}
	return nil
}

// checkDiskSpaceForWrite verifies sufficient disk space before write operations
func (f *File) checkDiskSpaceForWrite(dataSize int) error {
	info, err := f.diskSpace(f.dir)
	if err != nil {
		// Don't block the write on a failed stat
		f.log.Warn().Err(err).Msg("failed to check disk space")
		return nil
	}

	required := uint64(MinDiskSpaceBytes)
	if uint64(dataSize*2) > required {
		required = uint64(dataSize * 2)
	}

	if info.Available < required {
		return fmt.Errorf("%w: only %d bytes available, need at least %d",
			ErrInsufficientDisk, info.Available, required)
	}

	if info.UsedPct >= DiskWarningPercent {
		f.log.Warn().Int("used_pct", info.UsedPct).Msg("disk is nearly full")
	}
	return nil
}
