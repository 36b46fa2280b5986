package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LightmNFT/lightm-market/internal/storage/postgres"
)

// StateStore persists the export cursor between runs.
type StateStore interface {
	Load(ctx context.Context) (seq uint64, ok bool, err error)
	Save(ctx context.Context, seq uint64) error
}

type cursorFile struct {
	LastExportedSeq uint64 `json:"last_exported_seq"`
	UpdatedAt       string `json:"updated_at"`
}

// FileStateStore keeps the cursor in a small JSON file, written atomically
// via a temp file and rename.
type FileStateStore struct {
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (s *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat export state: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("export state path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, false, fmt.Errorf("read export state: %w", err)
	}

	var cf cursorFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return 0, false, fmt.Errorf("parse export state: %w", err)
	}
	return cf.LastExportedSeq, true, nil
}

func (s *FileStateStore) Save(_ context.Context, seq uint64) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export state dir: %w", err)
		}
	}

	cf := cursorFile{
		LastExportedSeq: seq,
		UpdatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cf)
	if err != nil {
		return fmt.Errorf("marshal export state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write export state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename export state: %w", err)
	}
	return nil
}

// MemoryStateStore holds the cursor in memory only. Useful for devnet runs
// where losing the cursor on restart is fine.
type MemoryStateStore struct {
	mu  sync.Mutex
	seq uint64
	set bool
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (s *MemoryStateStore) Load(_ context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq, s.set, nil
}

func (s *MemoryStateStore) Save(_ context.Context, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = seq
	s.set = true
	return nil
}

// PostgresStateStore keeps the cursor in the market_state table so the
// exporter resumes where the database left off.
type PostgresStateStore struct {
	store *postgres.Store
	name  string
}

func NewPostgresStateStore(store *postgres.Store, name string) *PostgresStateStore {
	return &PostgresStateStore{store: store, name: name}
}

func (s *PostgresStateStore) Load(ctx context.Context) (uint64, bool, error) {
	return s.store.LoadState(ctx, s.name)
}

func (s *PostgresStateStore) Save(ctx context.Context, seq uint64) error {
	return s.store.SaveState(ctx, s.name, seq)
}
