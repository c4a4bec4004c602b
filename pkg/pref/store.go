package pref

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eneky/projet-ui/internal/errors"
)

// Record is a stored preference value.
type Record struct {
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists preference records by key. Keys look like
// "<visitor>/<preference>".
type Store interface {
	// Get returns the record for key. ok is false when nothing is stored.
	Get(ctx context.Context, key string) (rec Record, ok bool, err error)

	// Put stores rec under key.
	Put(ctx context.Context, key string, rec Record) error
}

// Key joins a visitor id and a preference name into a store key.
func Key(visitor, name string) string {
	return visitor + "/" + name
}

// ValidateKey rejects keys that are empty or could escape a directory.
func ValidateKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return errors.New("E303").WithDetail("invalid preference key: " + key)
	}
	return nil
}

// Load merges the stored value for key into p. A missing record leaves p alone.
func Load[T any](ctx context.Context, s Store, key string, p *Pref[T]) error {
	rec, ok, err := s.Get(ctx, key)
	if err != nil {
		return errors.FromError(err, "E300")
	}
	if !ok {
		return nil
	}
	var v T
	if err := json.Unmarshal(rec.Value, &v); err != nil {
		return errors.New("E300").Wrap(err)
	}
	p.SetFromRemote(v, rec.UpdatedAt)
	return nil
}

// Save writes value under key.
func Save[T any](ctx context.Context, s Store, key string, value T, updatedAt time.Time) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.New("E301").Wrap(err)
	}
	if err := s.Put(ctx, key, Record{Value: raw, UpdatedAt: updatedAt}); err != nil {
		return errors.FromError(err, "E301")
	}
	return nil
}

// MemoryStore keeps records in memory. Useful for tests and single-process
// deployments that do not need preferences to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	if err := ValidateKey(key); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, rec Record) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FileStore keeps all records in one JSON file, rewritten atomically on
// every Put.
type FileStore struct {
	path string

	mu      sync.RWMutex
	records map[string]Record
}

// NewFileStore opens path, creating its directory if needed. A missing file
// is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.New("E301").Wrap(err)
	}
	s := &FileStore{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.New("E300").Wrap(err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.records); err != nil {
			return nil, errors.New("E300").WithDetail("preference file is corrupt: " + path).Wrap(err)
		}
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (Record, bool, error) {
	if err := ValidateKey(key); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *FileStore) Put(_ context.Context, key string, rec Record) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.records[key]
	s.records[key] = rec
	if err := s.flush(); err != nil {
		if had {
			s.records[key] = prev
		} else {
			delete(s.records, key)
		}
		return errors.New("E301").Wrap(err)
	}
	return nil
}

// flush writes records to a temp file and renames it over the store file.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
