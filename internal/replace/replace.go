// Package replace applies post-transcription text substitution rules.
//
// Rules are (from, to) pairs stored in a JSON file that may be edited outside
// the running process; edits are hot-reloaded by a polling watcher. Rules are
// applied in insertion order with whole-word, case-insensitive matching so
// overlapping rules resolve deterministically.
package replace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// MaxRules caps the rule list; beyond this, application cost on every
// transcription stops being negligible.
const MaxRules = 100

// Rule rewrites occurrences of From into To.
type Rule struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type fileFormat struct {
	Replacements []Rule `json:"replacements"`
}

// Store manages replacement rules with file persistence and auto-reload.
type Store struct {
	path string

	mu       sync.Mutex
	rules    []Rule
	modTime  time.Time
	onChange func([]Rule)

	stopWatch chan struct{}
	watchOnce sync.Once
}

// NewStore opens (or creates) the replacements file at path.
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

// OnChange registers a callback invoked with the new rule snapshot on change.
func (s *Store) OnChange(fn func([]Rule)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Rules returns an immutable snapshot in application order.
func (s *Store) Rules() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Add appends a rule. The from phrase must be non-empty, distinct from to,
// and not already mapped; violations are rejected with a descriptive error
// and the store is left unchanged.
func (s *Store) Add(from, to string) error {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	if from == "" {
		return fmt.Errorf("replace: source text is required")
	}
	if to == "" {
		return fmt.Errorf("replace: replacement text is required")
	}
	if strings.EqualFold(from, to) {
		return fmt.Errorf("replace: source and replacement must be different")
	}

	s.mu.Lock()
	if len(s.rules) >= MaxRules {
		s.mu.Unlock()
		return fmt.Errorf("replace: rule limit reached (%d), remove a rule first", MaxRules)
	}
	for _, r := range s.rules {
		if strings.EqualFold(r.From, from) {
			s.mu.Unlock()
			return fmt.Errorf("replace: rule for %q already exists", from)
		}
	}
	s.rules = append(s.rules, Rule{From: from, To: to})
	snapshot := append([]Rule(nil), s.rules...)
	s.mu.Unlock()

	if err := s.save(snapshot); err != nil {
		return err
	}
	s.notify(snapshot)
	slog.Info("[replace] rule added", "from", from, "to", to, "count", len(snapshot))
	return nil
}

// Remove deletes the rule whose From matches case-insensitively. Returns
// false if no such rule exists.
func (s *Store) Remove(from string) (bool, error) {
	from = strings.TrimSpace(from)

	s.mu.Lock()
	idx := -1
	for i, r := range s.rules {
		if strings.EqualFold(r.From, from) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	removed := s.rules[idx]
	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	snapshot := append([]Rule(nil), s.rules...)
	s.mu.Unlock()

	if err := s.save(snapshot); err != nil {
		return false, err
	}
	s.notify(snapshot)
	slog.Info("[replace] rule removed", "from", removed.From, "to", removed.To, "count", len(snapshot))
	return true, nil
}

// Apply rewrites text under every rule in insertion order using whole-word,
// case-insensitive matching.
func Apply(text string, rules []Rule) string {
	if text == "" || len(rules) == 0 {
		return text
	}
	for _, r := range rules {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(r.From) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, r.To)
	}
	return text
}

// Watch starts polling the backing file for external edits every interval.
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
						slog.Warn("[replace] reload failed", "error", err)
					}
				}
			}
		}()
		slog.Info("[replace] file watcher started", "interval", interval)
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

func (s *Store) reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("replace: stat %s: %w", s.path, err)
	}

	s.mu.Lock()
	unchanged := info.ModTime().Equal(s.modTime)
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("replace: reading %s: %w", s.path, err)
	}

	var parsed fileFormat
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("replace: parsing %s: %w", s.path, err)
	}

	var rules []Rule
	for _, r := range parsed.Replacements {
		from := strings.TrimSpace(r.From)
		to := strings.TrimSpace(r.To)
		if from == "" || to == "" {
			continue
		}
		dup := false
		for _, have := range rules {
			if strings.EqualFold(have.From, from) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		rules = append(rules, Rule{From: from, To: to})
		if len(rules) == MaxRules {
			slog.Warn("[replace] rule limit exceeded, extra rules ignored", "limit", MaxRules)
			break
		}
	}

	s.mu.Lock()
	changed := !equalRules(s.rules, rules)
	s.rules = rules
	s.modTime = info.ModTime()
	s.mu.Unlock()

	if changed {
		slog.Info("[replace] file reloaded", "count", len(rules))
		s.notify(rules)
	}
	return nil
}

func (s *Store) save(rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	data, err := json.MarshalIndent(fileFormat{Replacements: rules}, "", "  ")
	if err != nil {
		return fmt.Errorf("replace: encoding rules: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("replace: writing %s: %w", s.path, err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.mu.Lock()
		s.modTime = info.ModTime()
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) notify(rules []Rule) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(rules)
	}
}

func equalRules(a, b []Rule) bool {
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
