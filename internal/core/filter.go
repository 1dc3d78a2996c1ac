package core

import (
	"sort"
	"strings"
)

// MaterialSet is the active material filter. An empty set matches every
// material; membership is exact string match, not case-folded.
type MaterialSet map[string]struct{}

// NewMaterialSet builds a set from the given materials.
func NewMaterialSet(materials ...string) MaterialSet {
	s := make(MaterialSet, len(materials))
	for _, m := range materials {
		if m != "" {
			s[m] = struct{}{}
		}
	}
	return s
}

// Toggle adds the material if absent and removes it if present.
func (s MaterialSet) Toggle(material string) {
	if _, ok := s[material]; ok {
		delete(s, material)
	} else {
		s[material] = struct{}{}
	}
}

// Clear resets the set to the match-everything state.
func (s MaterialSet) Clear() {
	for m := range s {
		delete(s, m)
	}
}

func (s MaterialSet) Contains(material string) bool {
	_, ok := s[material]
	return ok
}

// Values returns the materials in sorted order, for serialization.
func (s MaterialSet) Values() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// matchesFilter combines both predicates with a logical AND: case-insensitive
// substring of query against the product name, and exact material membership.
func matchesFilter(name, material, query string, materials MaterialSet) bool {
	if query != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
		return false
	}
	if len(materials) > 0 && !materials.Contains(material) {
		return false
	}
	return true
}

// FilterTransactions returns the subset passing both predicates. The input
// slice is never modified.
func FilterTransactions(txs []Transaction, query string, materials MaterialSet) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if matchesFilter(t.Name, t.Material, query, materials) {
			out = append(out, t)
		}
	}
	return out
}

// FilterStats returns the subset of stats rows passing both predicates.
func FilterStats(rows []ProductStats, query string, materials MaterialSet) []ProductStats {
	out := make([]ProductStats, 0, len(rows))
	for _, s := range rows {
		if matchesFilter(s.Name, s.Material, query, materials) {
			out = append(out, s)
		}
	}
	return out
}
