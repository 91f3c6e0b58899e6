package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	stateFileName = "reading_positions.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// ReadingState stores position for a single document
type ReadingState struct {
	// Offset is the byte offset of the first word of the page being read.
	Offset  int       `json:"offset"`
	Updated time.Time `json:"updated"`
}

// Store manages persistent reading state
type Store struct {
	path string
	data map[string]ReadingState
	mu   sync.RWMutex
}

// NewStore creates or loads state from dir, XDG_STATE_HOME/leaf/ when dir is
// empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = stateDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create state directory: %w", err)
	}

	store := &Store{
		path: filepath.Join(dir, stateFileName),
		data: make(map[string]ReadingState),
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = make(map[string]ReadingState)
	}
	return store, nil
}

// stateDir returns XDG_STATE_HOME/leaf or ~/.local/state/leaf
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "leaf")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "leaf")
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return hashOf(buf[:n]), nil
}

// HashText generates content hash for text that did not come from a file.
func HashText(text string) string {
	return hashOf([]byte(text[:min(len(text), hashBytes)]))
}

func hashOf(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:16]) // First 16 bytes = 32 hex chars
}

// GetPosition returns saved offset for document, or 0 if not found
func (s *Store) GetPosition(hash string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.data[hash]; ok {
		return state.Offset
	}
	return 0
}

// SetPosition saves offset for document
func (s *Store) SetPosition(hash string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = ReadingState{Offset: offset, Updated: time.Now().UTC()}
	return s.save()
}

// Clear removes saved position for document
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

// MaxDocuments bounds the number of remembered documents, the least
// recently read are forgotten first.
const MaxDocuments = 500

func (s *Store) prune() {
	if len(s.data) <= MaxDocuments {
		return
	}
	hashes := make([]string, 0, len(s.data))
	for h := range s.data {
		hashes = append(hashes, h)
	}
	slices.SortFunc(hashes, func(a, b string) int {
		return s.data[b].Updated.Compare(s.data[a].Updated)
	})
	for _, h := range hashes[MaxDocuments:] {
		delete(s.data, h)
	}
}

// save replaces the state file in one rename so a crash never leaves it
// half written.
func (s *Store) save() error {
	s.prune()
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".positions-*")
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
