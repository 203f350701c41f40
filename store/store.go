package store

import (
	"crd-scraper/models"
)

// AcceptPolicy decides whether a split reaction is worth keeping.
type AcceptPolicy string

const (
	// PolicyRejectEmptyProducts drops records with no product components.
	// This is the default: a reaction that produces nothing is almost
	// always an extraction artifact.
	PolicyRejectEmptyProducts AcceptPolicy = "strict"

	// PolicyAnyNonEmpty keeps any record with at least one component in
	// any role. Useful when harvesting from pages with partial data.
	PolicyAnyNonEmpty AcceptPolicy = "lenient"
)

// ParsePolicy maps a config string to an AcceptPolicy, defaulting to strict.
func ParsePolicy(s string) AcceptPolicy {
	if AcceptPolicy(s) == PolicyAnyNonEmpty {
		return PolicyAnyNonEmpty
	}
	return PolicyRejectEmptyProducts
}

// Store accumulates the deduplicated reactions of one scrape run.
// It preserves insertion order and grows monotonically; records are never
// removed or replaced. Not safe for concurrent use; each run owns its own
// Store.
type Store struct {
	policy  AcceptPolicy
	seen    map[string]bool
	records []models.ReactionRecord
}

// New creates an empty Store with the given acceptance policy.
func New(policy AcceptPolicy) *Store {
	return &Store{
		policy: policy,
		seen:   make(map[string]bool),
	}
}

// Insert adds a record unless the policy rejects it or a record with the
// same reaction string is already present. Reports whether the record was
// stored. Inserting a duplicate is a no-op, so Insert is idempotent per
// reaction string.
func (s *Store) Insert(rec models.ReactionRecord) bool {
	if !s.accepts(rec) {
		return false
	}
	if s.seen[rec.ReactionSMILES] {
		return false
	}
	s.seen[rec.ReactionSMILES] = true
	s.records = append(s.records, rec)
	return true
}

// accepts applies the store's acceptance policy.
func (s *Store) accepts(rec models.ReactionRecord) bool {
	switch s.policy {
	case PolicyAnyNonEmpty:
		return len(rec.Reactants) > 0 || len(rec.Reagents) > 0 || len(rec.Products) > 0
	default:
		return len(rec.Products) > 0
	}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Export returns the stored records in insertion order. The returned slice
// is a copy; mutating it does not affect the store.
func (s *Store) Export() []models.ReactionRecord {
	out := make([]models.ReactionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Summary computes run totals: record count plus the number of distinct
// reactant and product components across all records.
func (s *Store) Summary(doi string) models.Summary {
	reactants := make(map[string]bool)
	products := make(map[string]bool)
	for _, rec := range s.records {
		for _, c := range rec.Reactants {
			reactants[c] = true
		}
		for _, c := range rec.Products {
			products[c] = true
		}
	}
	return models.Summary{
		DOI:             doi,
		TotalReactions:  len(s.records),
		UniqueReactants: len(reactants),
		UniqueProducts:  len(products),
	}
}
