package store

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// RecordsDirName is the file backend directory inside a vault directory.
const RecordsDirName = "records"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open creates the named backend rooted at dir. The returned Closer must be
// closed when the store is no longer used.
func Open(backend, dir string, logger zerolog.Logger) (Store, io.Closer, error) {
	switch backend {
	case BackendSQLite, "":
		s, err := OpenSQLite(filepath.Join(dir, DBFileName))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendFile:
		f, err := NewFile(filepath.Join(dir, RecordsDirName), logger)
		if err != nil {
			return nil, nil, err
		}
		return f, nopCloser{}, nil
	case BackendMemory:
		return NewMemory(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
