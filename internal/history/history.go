// Package history keeps a bounded, persisted list of recent transcriptions.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// MaxEntries is the history capacity; the oldest entry is evicted past it.
const MaxEntries = 20

// Store is a newest-first transcription history persisted to a JSON file.
type Store struct {
	path string

	mu      sync.Mutex
	entries []string
}

// NewStore loads history from path, tolerating a missing or corrupt file.
func NewStore(path string) *Store {
	s := &Store{path: path}
	if data, err := os.ReadFile(path); err == nil {
		var entries []string
		if json.Unmarshal(data, &entries) == nil {
			if len(entries) > MaxEntries {
				entries = entries[:MaxEntries]
			}
			s.entries = entries
		}
	}
	return s
}

// Add prepends a transcription, evicting the oldest entry past capacity.
// Blank text is ignored.
func (s *Store) Add(text string) error {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	s.entries = append([]string{text}, s.entries...)
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	snapshot := append([]string(nil), s.entries...)
	s.mu.Unlock()

	return s.persist(snapshot)
}

// All returns every entry, newest first. Never nil, so callers can encode
// it as a JSON array.
func (s *Store) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Delete removes the entry at index. Returns false when out of range.
func (s *Store) Delete(index int) (bool, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.entries) {
		s.mu.Unlock()
		return false, nil
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	snapshot := append([]string(nil), s.entries...)
	s.mu.Unlock()

	return true, s.persist(snapshot)
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return s.persist([]string{})
}

func (s *Store) persist(entries []string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encoding: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("history: writing %s: %w", s.path, err)
	}
	return nil
}
