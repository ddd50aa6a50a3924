// Package vocab manages the custom vocabulary used to bias transcription.
//
// Terms live in a plain text file (one term per line, # comments) so they can
// be edited outside the running process; a background watcher picks up
// external edits without a restart. Readers always see an immutable snapshot.
package vocab

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

const fileHeader = `# Custom vocabulary for speech-to-text
# One word/phrase per line, comments start with #
# Terms keep the casing written here

`

// Store manages vocabulary terms with file persistence and auto-reload.
// Terms are unique case-insensitively; the casing of the first add wins and
// insertion order is preserved for prompt construction.
type Store struct {
	path string

	mu       sync.Mutex
	terms    []string
	modTime  time.Time
	onChange func([]string)

	stopWatch chan struct{}
	watchOnce sync.Once
}

// NewStore opens (or creates) the vocabulary file at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, stopWatch: make(chan struct{})}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(nil); err != nil {
			return nil, err
		}
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// OnChange registers a callback invoked with the new term snapshot whenever
// the vocabulary changes, including external file edits.
func (s *Store) OnChange(fn func([]string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Terms returns an immutable snapshot of the current terms in insertion order.
func (s *Store) Terms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Add inserts a term, preserving its casing. Adding a term that already
// exists under case-insensitive comparison is a no-op and returns false.
// Empty terms return an error.
func (s *Store) Add(term string) (bool, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return false, fmt.Errorf("vocab: term must not be empty")
	}

	s.mu.Lock()
	for _, t := range s.terms {
		if strings.EqualFold(t, term) {
			s.mu.Unlock()
			return false, nil
		}
	}
	s.terms = append(s.terms, term)
	snapshot := append([]string(nil), s.terms...)
	s.mu.Unlock()

	if err := s.save(snapshot); err != nil {
		return false, err
	}
	s.notify(snapshot)
	slog.Info("[vocab] term added", "term", term, "count", len(snapshot))
	return true, nil
}

// Remove deletes a term by case-insensitive match. Returns false if the term
// was not present.
func (s *Store) Remove(term string) (bool, error) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	idx := -1
	for i, t := range s.terms {
		if strings.EqualFold(t, term) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	removed := s.terms[idx]
	s.terms = append(s.terms[:idx], s.terms[idx+1:]...)
	snapshot := append([]string(nil), s.terms...)
	s.mu.Unlock()

	if err := s.save(snapshot); err != nil {
		return false, err
	}
	s.notify(snapshot)
	slog.Info("[vocab] term removed", "term", removed, "count", len(snapshot))
	return true, nil
}

// Prompt builds the natural-language biasing hint handed to providers.
// Returns "" when the vocabulary is empty.
func Prompt(terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	return fmt.Sprintf("Vocabulary: %s.", strings.Join(terms, ", "))
}

// ApplyCasing rewrites whole-word, case-insensitive occurrences of each term
// back to its canonical casing and reports which terms matched.
func ApplyCasing(text string, terms []string) (string, []string) {
	if text == "" || len(terms) == 0 {
		return text, nil
	}
	var matched []string
	for _, term := range terms {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			matched = append(matched, term)
			text = re.ReplaceAllString(text, term)
		}
	}
	return text, matched
}

// Watch starts polling the backing file for external edits every interval.
// Safe to call once; Stop terminates the watcher.
func (s *Store) Watch(interval time.Duration) {
	s.watchOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-s.stopWatch:
					return
				case <-ticker.C:
					if err := s.reload(); err != nil {
						slog.Warn("[vocab] reload failed", "error", err)
					}
				}
			}
		}()
		slog.Info("[vocab] file watcher started", "interval", interval)
	})
}

// Stop terminates the file watcher.
func (s *Store) Stop() {
	select {
	case <-s.stopWatch:
	default:
		close(s.stopWatch)
	}
}

// reload re-reads the file if its mtime changed and publishes a new snapshot.
func (s *Store) reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("vocab: stat %s: %w", s.path, err)
	}

	s.mu.Lock()
	if info.ModTime().Equal(s.modTime) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("vocab: reading %s: %w", s.path, err)
	}

	var terms []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dup := false
		for _, t := range terms {
			if strings.EqualFold(t, line) {
				dup = true
				break
			}
		}
		if !dup {
			terms = append(terms, line)
		}
	}

	s.mu.Lock()
	changed := !equalTerms(s.terms, terms)
	s.terms = terms
	s.modTime = info.ModTime()
	s.mu.Unlock()

	if changed {
		slog.Info("[vocab] file reloaded", "count", len(terms))
		s.notify(terms)
	}
	return nil
}

// save writes the snapshot to the backing file and records the new mtime so
// the watcher does not immediately re-trigger.
func (s *Store) save(terms []string) error {
	var b strings.Builder
	b.WriteString(fileHeader)
	for _, t := range terms {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("vocab: writing %s: %w", s.path, err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.mu.Lock()
		s.modTime = info.ModTime()
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) notify(terms []string) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(terms)
	}
}

func equalTerms(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
