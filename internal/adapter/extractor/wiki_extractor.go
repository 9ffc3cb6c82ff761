// Package extractor turns encyclopedia article markup into the text fed to the quiz generator.
package extractor

import (
	"regexp"
	"strings"

	"wiki-quiz/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelectors are removed before any text is read.
var noiseSelectors = strings.Join([]string{
	"table", "script", "style", "noscript",
	"sup", "footer", "nav", "aside",
	".mw-editsection", ".reference", ".navbox",
}, ", ")

const (
	titleSelector   = "h1#firstHeading"
	sectionSelector = "h2, h3"
	bodySelector    = "h1, h2, h3, h4, p, li"
)

// summarySelectors are tried in order; the first non-empty paragraph wins.
var summarySelectors = []string{
	"div.mw-parser-output > p",
	"#mw-content-text p",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	editMarker    = regexp.MustCompile(`\s*\[\s*edit\s*\]\s*$`)
)

// CleanWhitespace collapses every whitespace run to one space and trims the ends.
func CleanWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// StripEditMarker removes a trailing "[edit]" marker from a section heading.
func StripEditMarker(heading string) string {
	return strings.TrimSpace(editMarker.ReplaceAllString(heading, ""))
}

// WikiExtractor implements domain.TextExtractor for MediaWiki article pages.
// It holds no state; every call parses its own document.
type WikiExtractor struct{}

func NewWikiExtractor() *WikiExtractor {
	return &WikiExtractor{}
}

// Extract never fails: missing elements produce empty fields.
func (e *WikiExtractor) Extract(markup string) *domain.ExtractedContent {
	content := &domain.ExtractedContent{Sections: []string{}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return content
	}
	doc.Find(noiseSelectors).Remove()

	content.Title = extractTitle(doc)
	content.Summary = extractSummary(doc)
	content.Sections = extractSections(doc)
	content.ExtractedText = extractBody(doc)
	return content
}

func extractTitle(doc *goquery.Document) string {
	title := doc.Find(titleSelector).First()
	if title.Length() == 0 {
		title = doc.Find("h1").First()
	}
	if title.Length() == 0 {
		return ""
	}
	return nodeText(title)
}

func extractSummary(doc *goquery.Document) string {
	for _, sel := range summarySelectors {
		var summary string
		doc.Find(sel).EachWithBreak(func(_ int, p *goquery.Selection) bool {
			summary = nodeText(p)
			return summary == ""
		})
		if summary != "" {
			return summary
		}
	}
	return ""
}

func extractSections(doc *goquery.Document) []string {
	sections := []string{}
	doc.Find(sectionSelector).Each(func(_ int, h *goquery.Selection) {
		if text := StripEditMarker(nodeText(h)); text != "" {
			sections = append(sections, text)
		}
	})
	return sections
}

func extractBody(doc *goquery.Document) string {
	var parts []string
	doc.Find(bodySelector).Each(func(_ int, s *goquery.Selection) {
		if text := nodeText(s); text != "" {
			parts = append(parts, text)
		}
	})
	return CleanWhitespace(strings.Join(parts, " "))
}

// nodeText joins the selection's text nodes with single spaces, so inline
// elements do not glue neighbouring words together.
func nodeText(s *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return CleanWhitespace(sb.String())
}

var _ domain.TextExtractor = (*WikiExtractor)(nil)
