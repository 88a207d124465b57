package reference

import (
	"strconv"
	"strings"

	"complexome/internal/dataprocessing"
)

// SynonymPlaceholder replaces synonym cells that hold no usable text
const SynonymPlaceholder = "-"

// Entry is one reference gene with its alternative symbols
type Entry struct {
	Symbol   string
	Synonyms []string
}

// Set is a curated reference gene set for one organism
type Set struct {
	Name     string
	Organism string
	Entries  []Entry

	lookup map[string]struct{}
}

// NewSet builds a set from parallel symbol and raw synonym columns.
// Synonym cells are '|' separated; empty, not-available and numeric cells
// become the placeholder.
func NewSet(name, organism string, symbols, synonyms []string) *Set {
	s := &Set{
		Name:     name,
		Organism: organism,
		Entries:  make([]Entry, 0, len(symbols)),
		lookup:   make(map[string]struct{}),
	}
	for i, symbol := range symbols {
		raw := ""
		if i < len(synonyms) {
			raw = synonyms[i]
		}
		entry := Entry{Symbol: strings.TrimSpace(symbol), Synonyms: splitSynonyms(raw)}
		s.Entries = append(s.Entries, entry)

		if entry.Symbol != "" {
			s.lookup[entry.Symbol] = struct{}{}
		}
		for _, syn := range entry.Synonyms {
			if syn != SynonymPlaceholder && syn != "" {
				s.lookup[syn] = struct{}{}
			}
		}
	}
	return s
}

// Contains reports whether gene equals a symbol or one of its synonyms.
// The empty gene never matches.
func (s *Set) Contains(gene string) bool {
	if gene == "" {
		return false
	}
	_, ok := s.lookup[gene]
	return ok
}

// Len returns the number of entries
func (s *Set) Len() int {
	return len(s.Entries)
}

func splitSynonyms(raw string) []string {
	raw = strings.TrimSpace(raw)
	if dataprocessing.IsNAToken(raw) {
		return []string{SynonymPlaceholder}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return []string{SynonymPlaceholder}
	}
	parts := strings.Split(raw, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
