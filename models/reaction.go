package models

import "time"

// Extraction methods recorded on candidates and exported records.
const (
	MethodAttribute     = "attribute"
	MethodScriptPattern = "script-pattern"
	MethodTableCell     = "table-cell"
)

// RawCandidate is a reaction string found on a page before splitting,
// tagged with the strategy that found it.
type RawCandidate struct {
	Text   string
	Method string
}

// ReactionRecord is one deduplicated reaction as stored and exported.
type ReactionRecord struct {
	ReactionSMILES string    `json:"reaction_smiles"`
	Reactants      []string  `json:"reactant_smiles"`
	Reagents       []string  `json:"reagent_smiles"`
	Products       []string  `json:"product_smiles"`
	SourceURL      string    `json:"source_url"`
	ScrapedAt      time.Time `json:"scraped_at"`
	Method         string    `json:"extraction_method,omitempty"`
}

// Summary aggregates a finished run for display and notifications.
type Summary struct {
	DOI             string
	TotalReactions  int
	UniqueReactants int
	UniqueProducts  int
}

// RunResult reports how a scrape run ended.
type RunResult struct {
	RunID       string
	DOI         string
	PagesLoaded int
	NewRecords  int
	StopReason  string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Stop reasons reported in RunResult.
const (
	StopPageLimit  = "page_limit"
	StopCycle      = "repeated_url"
	StopFetchError = "fetch_error"
	StopNoNextPage = "no_next_page"
	StopCanceled   = "canceled"
)
