package smiles

import "strings"

// Reaction holds the component lists of a split reaction SMILES string.
// Component order follows their order in the source string.
type Reaction struct {
	Reactants []string
	Reagents  []string
	Products  []string
}

// SplitReaction splits a raw reaction SMILES string into reactant, reagent
// and product components. Two arrow forms are recognized, checked in order:
//
//	reactants>>products          (no reagents)
//	reactants>reagents>products
//
// The split happens at the first ">>" or the first two ">" occurrences;
// anything past that stays in the products field. Within each field,
// components are separated by "." and trimmed; blank components are dropped.
// Returns false when the string contains no recognizable arrow.
func SplitReaction(raw string) (*Reaction, bool) {
	switch {
	case strings.Contains(raw, ">>"):
		parts := strings.SplitN(raw, ">>", 2)
		return &Reaction{
			Reactants: splitComponents(parts[0]),
			Reagents:  []string{},
			Products:  splitComponents(parts[1]),
		}, true
	case strings.Contains(raw, ">"):
		parts := strings.SplitN(raw, ">", 3)
		if len(parts) < 3 {
			// A single ">" is not a reaction arrow.
			return nil, false
		}
		return &Reaction{
			Reactants: splitComponents(parts[0]),
			Reagents:  splitComponents(parts[1]),
			Products:  splitComponents(parts[2]),
		}, true
	default:
		return nil, false
	}
}

// splitComponents splits a reaction field on "." into trimmed, non-empty
// component SMILES.
func splitComponents(field string) []string {
	out := []string{}
	for _, c := range strings.Split(field, ".") {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
