package extractor

import (
	"regexp"
	"strings"

	"crd-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// Patterns that capture reaction strings embedded in script blocks or
// inline JS. Applied to the raw page source, not just <script> bodies,
// so server-rendered variants are caught too.
var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`reactions\.push\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`reaction[Ss]miles\s*[=:]\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`data-reaction-smiles\s*=\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`smiles\s*:\s*['"]([^'"]+>>?[^'"]+)['"]`),
}

// smilesCellPattern whitelists the characters a reaction SMILES table cell
// may contain. Anything else (prose, units, markup leftovers) disqualifies
// the cell.
var smilesCellPattern = regexp.MustCompile(`^[A-Za-z0-9\[\]()=#@+\-\\/.>]+$`)

// strategy is one way of locating reaction strings on a page.
type strategy struct {
	name string
	find func(doc *goquery.Document, pageSource string) []string
}

// Extractor runs a fixed, ordered set of extraction strategies over a page
// and unions their hits.
type Extractor struct {
	strategies []strategy
}

// New creates an Extractor with the standard strategies: explicit
// data attributes first, then script patterns, then table-cell heuristics.
func New() *Extractor {
	return &Extractor{
		strategies: []strategy{
			{models.MethodAttribute, findAttributeCandidates},
			{models.MethodScriptPattern, findScriptCandidates},
			{models.MethodTableCell, findTableCandidates},
		},
	}
}

// Extract returns every candidate reaction string found on the page,
// deduplicated by exact text. Strategies run in their fixed order and the
// first one to produce a given string determines its method tag, so output
// order and tagging are deterministic for a given page.
func (e *Extractor) Extract(doc *goquery.Document, pageSource string) []models.RawCandidate {
	seen := make(map[string]bool)
	var candidates []models.RawCandidate

	for _, st := range e.strategies {
		for _, text := range st.find(doc, pageSource) {
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true
			candidates = append(candidates, models.RawCandidate{Text: text, Method: st.name})
		}
	}

	return candidates
}

// findAttributeCandidates collects data-reaction-smiles attribute values.
func findAttributeCandidates(doc *goquery.Document, _ string) []string {
	var out []string
	doc.Find("[data-reaction-smiles]").Each(func(i int, s *goquery.Selection) {
		value := strings.TrimSpace(s.AttrOr("data-reaction-smiles", ""))
		if value != "" {
			out = append(out, value)
		}
	})
	return out
}

// findScriptCandidates matches the script patterns against the raw page
// source. Matches without a reaction arrow are noise and dropped.
func findScriptCandidates(_ *goquery.Document, pageSource string) []string {
	var out []string
	for _, re := range scriptPatterns {
		for _, m := range re.FindAllStringSubmatch(pageSource, -1) {
			text := strings.TrimSpace(m[1])
			if text != "" && strings.Contains(text, ">") {
				out = append(out, text)
			}
		}
	}
	return out
}

// findTableCandidates scans table cells for strings that look like reaction
// SMILES: arrow plus component separator plus nothing outside the SMILES
// alphabet.
func findTableCandidates(doc *goquery.Document, _ string) []string {
	var out []string
	doc.Find("table td, table th").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if strings.Contains(text, ">") && strings.Contains(text, ".") && smilesCellPattern.MatchString(text) {
			out = append(out, text)
		}
	})
	return out
}
