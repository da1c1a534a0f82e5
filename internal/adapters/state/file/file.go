// Package file persists interface counters as a JSON document, replaced
// atomically on every save.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
)

type Store struct {
	path string
}

var _ ports.StateStore = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Save(_ context.Context, states []domain.InterfaceState) error {
	if states == nil {
		states = []domain.InterfaceState{}
	}
	return writeJSONAtomic(s.path, states)
}

// Load returns the saved states. A missing file is not an error.
func (s *Store) Load(_ context.Context) (states []domain.InterfaceState, retErr error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			retErr = multierr.Append(retErr, fmt.Errorf("close: %w", cerr))
		}
	}()

	if err := json.NewDecoder(f).Decode(&states); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return states, nil
}

func writeJSONAtomic(path string, v any) (retErr error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".vnstat-state-*")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()
	renamed := false
	closed := false
	defer func() {
		if !closed {
			retErr = multierr.Append(retErr, tmp.Close())
		}
		if !renamed {
			if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
				retErr = multierr.Append(retErr, fmt.Errorf("remove tmp: %w", err))
			}
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync tmp: %w", err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	renamed = true
	return nil
}
