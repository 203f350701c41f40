package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"crd-scraper/models"
)

// Document is the JSON export payload: run metadata plus the collected
// reactions in insertion order.
type Document struct {
	Metadata  Metadata                `json:"metadata"`
	Reactions []models.ReactionRecord `json:"reactions"`
}

// Metadata describes where and when the reactions were collected.
type Metadata struct {
	DOI            string    `json:"doi"`
	TotalReactions int       `json:"total_reactions"`
	ScrapedAt      time.Time `json:"scraped_at"`
	Source         string    `json:"source"`
}

// BuildDocument assembles the export document for a finished (or partially
// finished) run.
func BuildDocument(doi, source string, records []models.ReactionRecord) *Document {
	if records == nil {
		// An empty run still exports an empty array, not null.
		records = []models.ReactionRecord{}
	}
	return &Document{
		Metadata: Metadata{
			DOI:            doi,
			TotalReactions: len(records),
			ScrapedAt:      time.Now().UTC(),
			Source:         source,
		},
		Reactions: records,
	}
}

// WriteJSON writes the document to path as indented JSON.
func WriteJSON(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// csvHeader is the column layout of the CSV export.
var csvHeader = []string{
	"reaction_smiles",
	"reactant_smiles",
	"reagent_smiles",
	"product_smiles",
	"source_url",
	"scraped_at",
	"extraction_method",
}

// WriteCSV writes one row per record. Component lists are joined with "."
// so each cell is itself a valid SMILES fragment list.
func WriteCSV(path string, records []models.ReactionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ReactionSMILES,
			strings.Join(rec.Reactants, "."),
			strings.Join(rec.Reagents, "."),
			strings.Join(rec.Products, "."),
			rec.SourceURL,
			rec.ScrapedAt.Format(time.RFC3339),
			rec.Method,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
