package devices

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultStorePath returns the default credential file location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tuyactl", "devices.yaml")
}

// FileStore persists credentials in a human-readable YAML file, one record
// per device keyed by address. Reads are concurrent; writes are serialized
// and flushed to disk immediately.
type FileStore struct {
	path string

	mu      sync.RWMutex
	records map[string]Credentials
}

// NewFileStore opens (or lazily creates) the credential file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		records: make(map[string]Credentials),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("devices: reading store: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("devices: parsing store: %w", err)
	}
	// The map key is authoritative for the address.
	for addr, rec := range s.records {
		rec.Address = addr
		s.records[addr] = rec
	}
	return s, nil
}

func (s *FileStore) Get(address string) (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.records[address]
	return creds, ok
}

func (s *FileStore) Put(creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[creds.Address] = creds
	return s.save()
}

func (s *FileStore) List() []Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Credentials, 0, len(s.records))
	for _, creds := range s.records {
		out = append(out, creds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// save writes the store to disk. Caller must hold mu.
func (s *FileStore) save() error {
	data, err := yaml.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("devices: encoding store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("devices: creating store directory: %w", err)
		}
	}
	// Credentials are secrets; keep the file private.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("devices: writing store: %w", err)
	}
	return nil
}

// Compile-time check that FileStore implements Store.
var _ Store = (*FileStore)(nil)
