package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// localStore keeps archives in a directory on disk.
type localStore struct {
	dir    string
	logger zerolog.Logger
}

// NewLocalStore creates a store rooted at dir. The directory is created on
// first save.
func NewLocalStore(dir string, logger zerolog.Logger) Store {
	return &localStore{
		dir:    dir,
		logger: logger.With().Str("component", "local-archive").Logger(),
	}
}

func (s *localStore) Save(_ context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalise archive %s: %w", path, err)
	}

	s.logger.Debug().Str("file", path).Int("bytes", len(data)).Msg("archive written")
	return nil
}

func (s *localStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("failed to open archive")
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return f, nil
}
