// Package lexicon holds weighted term lists per alignment axis. A store is
// immutable once constructed; loading validates every entry before anything
// becomes queryable.
package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError reports a malformed lexicon entry. Fatal to the whole load:
// entries are never silently dropped.
type ValidationError struct {
	Axis   string
	Term   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("lexicon %q: %s", e.Axis, e.Reason)
	}
	return fmt.Sprintf("lexicon %q term %q: %s", e.Axis, e.Term, e.Reason)
}

// Entry is one signed term weight. Terms may be n-grams (space separated).
type Entry struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// AxisLexicon is the raw, not-yet-validated term list for one axis.
type AxisLexicon struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"terms"`
}

type lexiconFile struct {
	Axes []AxisLexicon `yaml:"axes"`
}

// Store is a read-only lookup over validated axis lexicons.
type Store struct {
	axes  map[string]map[string]float64 // axis -> normalized term -> weight
	grams map[string]int                // axis -> longest n-gram length
}

// NewStore validates the given lexicons and builds a queryable store. The
// construction is atomic: any out-of-range weight or duplicate term rejects
// the whole load.
func NewStore(lexicons []AxisLexicon) (*Store, error) {
	s := &Store{
		axes:  make(map[string]map[string]float64, len(lexicons)),
		grams: make(map[string]int, len(lexicons)),
	}
	for _, lex := range lexicons {
		name := strings.TrimSpace(strings.ToLower(lex.Name))
		if name == "" {
			return nil, &ValidationError{Reason: "axis name is empty"}
		}
		if _, ok := s.axes[name]; ok {
			return nil, &ValidationError{Axis: name, Reason: "duplicate axis"}
		}
		terms := make(map[string]float64, len(lex.Entries))
		longest := 0
		for _, e := range lex.Entries {
			term := NormalizeTerm(e.Term)
			if term == "" {
				return nil, &ValidationError{Axis: name, Term: e.Term, Reason: "empty term"}
			}
			if e.Weight < -1 || e.Weight > 1 {
				return nil, &ValidationError{Axis: name, Term: term, Reason: fmt.Sprintf("weight %v outside [-1, 1]", e.Weight)}
			}
			if _, dup := terms[term]; dup {
				return nil, &ValidationError{Axis: name, Term: term, Reason: "duplicate term"}
			}
			terms[term] = e.Weight
			if n := len(strings.Fields(term)); n > longest {
				longest = n
			}
		}
		s.axes[name] = terms
		s.grams[name] = longest
	}
	return s, nil
}

// LoadFile reads a YAML lexicon file and builds a store.
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon file: %w", err)
	}
	var f lexiconFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing lexicon file %s: %w", path, err)
	}
	return NewStore(f.Axes)
}

// Lookup returns the weight for a normalized term on an axis.
func (s *Store) Lookup(axis, term string) (float64, bool) {
	terms, ok := s.axes[strings.ToLower(axis)]
	if !ok {
		return 0, false
	}
	w, ok := terms[term]
	return w, ok
}

// Axes returns the sorted axis names the store covers.
func (s *Store) Axes() []string {
	out := make([]string, 0, len(s.axes))
	for name := range s.axes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasAxis reports whether the store carries a lexicon for the axis.
func (s *Store) HasAxis(axis string) bool {
	_, ok := s.axes[strings.ToLower(axis)]
	return ok
}

// MaxGram returns the longest n-gram length present on an axis; 0 when the
// axis is unknown or empty.
func (s *Store) MaxGram(axis string) int {
	return s.grams[strings.ToLower(axis)]
}

// TermCount returns the number of terms loaded for an axis.
func (s *Store) TermCount(axis string) int {
	return len(s.axes[strings.ToLower(axis)])
}

// NormalizeTerm lowercases a term and collapses internal whitespace so that
// lookup keys match tokenizer output.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
