package paginate

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPageSize is the observed result-page stride of the source site.
const DefaultPageSize = 10

// nextWords are the anchor texts treated as "next page" links, checked as
// case-insensitive substrings.
var nextWords = []string{"next", "»", ">", "→", "forward"}

// offsetPattern pulls the numeric offset out of /start/{n} result URLs.
var offsetPattern = regexp.MustCompile(`/start/(\d+)`)

// Planner decides which page URL to visit next. It first looks for an
// explicit next-page anchor in the document; failing that it advances the
// numeric /start/ offset of the current URL by the page size. Both are
// heuristics against an undocumented site and may break if its pagination
// markup changes.
type Planner struct {
	base     *url.URL
	doi      string
	pageSize int
}

// NewPlanner creates a Planner for one DOI. A non-positive pageSize falls
// back to DefaultPageSize.
func NewPlanner(base *url.URL, doi string, pageSize int) *Planner {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Planner{base: base, doi: doi, pageSize: pageSize}
}

// StartURL returns the first result page for the planner's DOI.
func (p *Planner) StartURL() string {
	return p.pageURL(0)
}

// pageURL builds the result-page URL for a given offset. The DOI is kept
// verbatim in the path (including its slash), matching what the site expects.
func (p *Planner) pageURL(offset int) string {
	base := strings.TrimRight(p.base.String(), "/")
	return fmt.Sprintf("%s/data/reaction/doi/%s/start/%d", base, p.doi, offset)
}

// Next returns the URL of the page after currentURL, or false when no
// further page can be derived. An explicit next-page anchor wins over the
// numeric offset fallback.
func (p *Planner) Next(doc *goquery.Document, currentURL string) (string, bool) {
	if next, ok := p.nextFromAnchors(doc); ok {
		return next, true
	}
	return p.nextFromOffset(currentURL)
}

// nextFromAnchors scans the document's anchors for next-page link text and
// resolves the first hit against the base origin.
func (p *Planner) nextFromAnchors(doc *goquery.Document) (string, bool) {
	var next string
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if text == "" || !containsNextWord(text) {
			return true
		}
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		next = p.base.ResolveReference(ref).String()
		return false
	})
	return next, next != ""
}

// nextFromOffset advances the /start/{n} offset of the current URL by the
// page size. URLs without an offset segment cannot be advanced.
func (p *Planner) nextFromOffset(currentURL string) (string, bool) {
	m := offsetPattern.FindStringSubmatch(currentURL)
	if m == nil {
		return "", false
	}
	offset, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return p.pageURL(offset + p.pageSize), true
}

func containsNextWord(text string) bool {
	for _, w := range nextWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
