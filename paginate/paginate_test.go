package paginate

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func testPlanner(t *testing.T, pageSize int) *Planner {
	t.Helper()
	base, err := url.Parse("https://kmt.vander-lingen.nl")
	if err != nil {
		t.Fatalf("Failed to parse base URL: %v", err)
	}
	return NewPlanner(base, "10.1021/jacsau.4c01276", pageSize)
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

func TestStartURL(t *testing.T) {
	p := testPlanner(t, 0)
	want := "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/0"
	if got := p.StartURL(); got != want {
		t.Errorf("StartURL() = %q, want %q", got, want)
	}
}

func TestNextFromAnchors(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "relative href resolved against base",
			html: `<a href="/data/reaction/doi/10.1021/jacsau.4c01276/start/10">Next</a>`,
			want: "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/10",
		},
		{
			name: "absolute href kept",
			html: `<a href="https://kmt.vander-lingen.nl/page/2">next page</a>`,
			want: "https://kmt.vander-lingen.nl/page/2",
		},
		{
			name: "case insensitive match",
			html: `<a href="/p2">NEXT</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
		{
			name: "guillemet",
			html: `<a href="/p2">»</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
		{
			name: "angle bracket",
			html: `<a href="/p2">&gt;</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
		{
			name: "arrow",
			html: `<a href="/p2">→</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
		{
			name: "forward",
			html: `<a href="/p2">Forward</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
		{
			name: "substring inside longer label",
			html: `<a href="/p2">Go to next results</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
		{
			name: "first matching anchor wins",
			html: `<a href="/first">next</a><a href="/second">next</a>`,
			want: "https://kmt.vander-lingen.nl/first",
		},
		{
			name: "non-matching anchors skipped",
			html: `<a href="/prev">Previous</a><a href="/p2">Next</a>`,
			want: "https://kmt.vander-lingen.nl/p2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPlanner(t, 0)
			got, ok := p.Next(parseDoc(t, tt.html), "https://kmt.vander-lingen.nl/whatever")
			if !ok {
				t.Fatalf("Next() ok = false, want link %q", tt.want)
			}
			if got != tt.want {
				t.Errorf("Next() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextFromOffset(t *testing.T) {
	tests := []struct {
		name       string
		pageSize   int
		currentURL string
		want       string
		wantOK     bool
	}{
		{
			name:       "default page size",
			pageSize:   0,
			currentURL: "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/0",
			want:       "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/10",
			wantOK:     true,
		},
		{
			name:       "advances from later offset",
			pageSize:   0,
			currentURL: "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/30",
			want:       "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/40",
			wantOK:     true,
		},
		{
			name:       "custom page size",
			pageSize:   25,
			currentURL: "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/25",
			want:       "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/50",
			wantOK:     true,
		},
		{
			name:       "no offset segment",
			pageSize:   0,
			currentURL: "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPlanner(t, tt.pageSize)
			doc := parseDoc(t, `<html><body><p>no links</p></body></html>`)
			got, ok := p.Next(doc, tt.currentURL)
			if ok != tt.wantOK {
				t.Fatalf("Next() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Next() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnchorWinsOverOffset(t *testing.T) {
	p := testPlanner(t, 0)
	doc := parseDoc(t, `<a href="/via-anchor">next</a>`)
	current := "https://kmt.vander-lingen.nl/data/reaction/doi/10.1021/jacsau.4c01276/start/0"

	got, ok := p.Next(doc, current)
	if !ok {
		t.Fatal("Next() ok = false, want true")
	}
	if want := "https://kmt.vander-lingen.nl/via-anchor"; got != want {
		t.Errorf("Next() = %q, want %q", got, want)
	}
}

func TestNoNextPage(t *testing.T) {
	p := testPlanner(t, 0)
	doc := parseDoc(t, `<a href="/prev">Previous</a>`)

	if got, ok := p.Next(doc, "https://kmt.vander-lingen.nl/overview"); ok {
		t.Errorf("Next() = %q, want no next page", got)
	}
}
