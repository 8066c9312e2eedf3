// Package classification provides the static bank descriptor dictionary.
package classification

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/cofre/internal/model"
)

// Entry maps a descriptor pattern to a category with a fixed confidence.
type Entry struct {
	Name           string
	Pattern        string // Regex matched against the normalized descriptor
	CategoryID     string
	SubcategoryID  string
	Classification model.Classification
	Priority       int     // Higher priority entries are checked first
	Confidence     float64 // Returned as-is on match (0.0-1.0)
}

// compiledEntry holds a compiled regex with its entry.
type compiledEntry struct {
	compiledRegex *regexp.Regexp
	Entry
}

// Match is a dictionary hit.
type Match struct {
	EntryName      string
	CategoryID     string
	SubcategoryID  string
	Classification model.Classification
	Confidence     float64
}

// Suggestion converts the match into a regex-tier suggestion.
func (m *Match) Suggestion() model.Suggestion {
	return model.Suggestion{
		CategoryID:     m.CategoryID,
		SubcategoryID:  m.SubcategoryID,
		Classification: m.Classification,
		Confidence:     m.Confidence,
		Source:         model.SourceRegex,
		PatternName:    m.EntryName,
	}.Normalized()
}

// Dictionary is an ordered, first-match-wins descriptor table. It never touches
// the network or the database.
type Dictionary struct {
	entries []compiledEntry
	mu      sync.RWMutex
}

// New creates a dictionary from entries.
func New(entries []Entry) (*Dictionary, error) {
	compiled, err := compile(entries)
	if err != nil {
		return nil, err
	}
	return &Dictionary{entries: compiled}, nil
}

// MustDefault returns a dictionary over DefaultEntries and panics if they do not compile.
func MustDefault() *Dictionary {
	d, err := New(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return d
}

func compile(entries []Entry) ([]compiledEntry, error) {
	compiled := make([]compiledEntry, 0, len(entries))

	for _, e := range entries {
		if e.CategoryID == "" {
			return nil, fmt.Errorf("entry %s has no category", e.Name)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return nil, fmt.Errorf("entry %s confidence %.2f out of range", e.Name, e.Confidence)
		}
		if _, err := model.ParseClassification(string(e.Classification)); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.Name, err)
		}

		regexStr := e.Pattern
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr
		}

		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile entry %s: %w", e.Name, err)
		}

		compiled = append(compiled, compiledEntry{
			Entry:         e,
			compiledRegex: regex,
		})
	}

	// Highest priority first; table order breaks ties.
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})

	return compiled, nil
}

// Lookup returns the first entry matching the normalized descriptor.
func (d *Dictionary) Lookup(normalized string) (*Match, bool) {
	if normalized == "" {
		return nil, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range d.entries {
		if e.compiledRegex.MatchString(normalized) {
			return &Match{
				EntryName:      e.Name,
				CategoryID:     e.CategoryID,
				SubcategoryID:  e.SubcategoryID,
				Classification: e.Classification,
				Confidence:     e.Confidence,
			}, true
		}
	}

	return nil, false
}

// Replace swaps the dictionary contents.
func (d *Dictionary) Replace(entries []Entry) error {
	compiled, err := compile(entries)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.entries = compiled
	d.mu.Unlock()

	return nil
}

// Len returns the number of loaded entries.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
