package store

import (
	"testing"

	"crd-scraper/models"
)

func record(smiles string, reactants, reagents, products []string) models.ReactionRecord {
	return models.ReactionRecord{
		ReactionSMILES: smiles,
		Reactants:      reactants,
		Reagents:       reagents,
		Products:       products,
	}
}

func TestInsertDeduplicates(t *testing.T) {
	s := New(PolicyRejectEmptyProducts)

	first := record("CCO>>CC=O", []string{"CCO"}, nil, []string{"CC=O"})
	if !s.Insert(first) {
		t.Fatal("Insert() first record = false, want true")
	}

	// Same reaction string again, even with different metadata.
	dup := first
	dup.SourceURL = "https://example.org/other-page"
	if s.Insert(dup) {
		t.Error("Insert() duplicate = true, want false")
	}

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestInsertPolicyStrict(t *testing.T) {
	tests := []struct {
		name string
		rec  models.ReactionRecord
		want bool
	}{
		{
			name: "products present",
			rec:  record("CCO>>CC=O", []string{"CCO"}, nil, []string{"CC=O"}),
			want: true,
		},
		{
			name: "empty products rejected",
			rec:  record("CCO>>", []string{"CCO"}, nil, nil),
			want: false,
		},
		{
			name: "only reagents rejected",
			rec:  record(">[Pt]>", nil, []string{"[Pt]"}, nil),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(PolicyRejectEmptyProducts)
			if got := s.Insert(tt.rec); got != tt.want {
				t.Errorf("Insert() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInsertPolicyLenient(t *testing.T) {
	tests := []struct {
		name string
		rec  models.ReactionRecord
		want bool
	}{
		{
			name: "empty products accepted",
			rec:  record("CCO>>", []string{"CCO"}, nil, nil),
			want: true,
		},
		{
			name: "only reagents accepted",
			rec:  record(">[Pt]>", nil, []string{"[Pt]"}, nil),
			want: true,
		},
		{
			name: "all roles empty rejected",
			rec:  record(">>", nil, nil, nil),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(PolicyAnyNonEmpty)
			if got := s.Insert(tt.rec); got != tt.want {
				t.Errorf("Insert() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExportPreservesInsertionOrder(t *testing.T) {
	s := New(PolicyRejectEmptyProducts)
	inputs := []string{"A>>B", "C>>D", "E>>F"}
	for _, smiles := range inputs {
		s.Insert(record(smiles, []string{"x"}, nil, []string{"y"}))
	}

	got := s.Export()
	if len(got) != len(inputs) {
		t.Fatalf("Export() returned %d records, want %d", len(got), len(inputs))
	}
	for i, smiles := range inputs {
		if got[i].ReactionSMILES != smiles {
			t.Errorf("Export()[%d].ReactionSMILES = %q, want %q", i, got[i].ReactionSMILES, smiles)
		}
	}

	// The export is a copy; mutating it must not touch the store.
	got[0].ReactionSMILES = "mutated"
	if s.Export()[0].ReactionSMILES != "A>>B" {
		t.Error("Export() slice shares backing storage with the store")
	}
}

func TestSummaryCountsUniqueComponents(t *testing.T) {
	s := New(PolicyRejectEmptyProducts)
	s.Insert(record("CCO.CC(=O)O>>CC(=O)OCC.O", []string{"CCO", "CC(=O)O"}, []string{}, []string{"CC(=O)OCC", "O"}))
	s.Insert(record("CCO.O>>CCO", []string{"CCO", "O"}, []string{}, []string{"CCO"}))

	sum := s.Summary("10.1021/jacsau.4c01276")
	if sum.DOI != "10.1021/jacsau.4c01276" {
		t.Errorf("Summary().DOI = %q, want %q", sum.DOI, "10.1021/jacsau.4c01276")
	}
	if sum.TotalReactions != 2 {
		t.Errorf("Summary().TotalReactions = %d, want 2", sum.TotalReactions)
	}
	// CCO, CC(=O)O, O
	if sum.UniqueReactants != 3 {
		t.Errorf("Summary().UniqueReactants = %d, want 3", sum.UniqueReactants)
	}
	// CC(=O)OCC, O, CCO
	if sum.UniqueProducts != 3 {
		t.Errorf("Summary().UniqueProducts = %d, want 3", sum.UniqueProducts)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input string
		want  AcceptPolicy
	}{
		{"strict", PolicyRejectEmptyProducts},
		{"lenient", PolicyAnyNonEmpty},
		{"", PolicyRejectEmptyProducts},
		{"garbage", PolicyRejectEmptyProducts},
	}

	for _, tt := range tests {
		if got := ParsePolicy(tt.input); got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
