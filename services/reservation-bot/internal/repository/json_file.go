package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

// JSONFileStore keeps the store as a single JSON object on disk.
type JSONFileStore struct {
	path string
	log  *slog.Logger
}

func NewJSONFileStore(path string, log *slog.Logger) *JSONFileStore {
	return &JSONFileStore{path: path, log: log.With("component", "json-store")}
}

// Load never fails: a missing, empty or unparsable file reads as an empty store.
func (s *JSONFileStore) Load(ctx context.Context) (domain.Store, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.ErrorContext(ctx, "data load error", "path", s.path, "err", err)
		}
		return domain.Store{}, nil
	}
	return decodeStore(ctx, b, s.log, s.path), nil
}

// Save replaces the file through a temp file and rename.
func (s *JSONFileStore) Save(ctx context.Context, st domain.Store) error {
	b, err := encodeStore(st)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func decodeStore(ctx context.Context, b []byte, log *slog.Logger, source string) domain.Store {
	if len(bytes.TrimSpace(b)) == 0 {
		return domain.Store{}
	}
	var st domain.Store
	if err := json.Unmarshal(b, &st); err != nil {
		log.ErrorContext(ctx, "data load error", "source", source, "err", err)
		return domain.Store{}
	}
	if st == nil {
		return domain.Store{}
	}
	st.SyncIDs()
	return st
}

func encodeStore(st domain.Store) ([]byte, error) {
	if st == nil {
		st = domain.Store{}
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode store: %w", err)
	}
	return b, nil
}
