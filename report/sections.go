// Package report parses engine-produced report HTML into the named
// sections the dashboard renders as tabs.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/quantitva/market-intel/errors"
)

// Sections is a report split into the four dashboard tabs. Every field is
// an HTML fragment; a tab with no matching content carries a placeholder
// paragraph instead of an empty string.
type Sections struct {
	Overview    string `json:"overview"`
	Trends      string `json:"trends"`
	Competitors string `json:"competitors"`
	Insights    string `json:"insights"`
}

// Heading keywords routing content into each section. Matching is
// case-insensitive substring search on h1-h3 text.
var (
	overviewKeywords    = []string{"market overview", "market size", "growth outlook", "market segmentation", "introduction"}
	trendsKeywords      = []string{"trends", "key trends", "emerging", "developments", "shaping the market"}
	competitorsKeywords = []string{"competitive", "competitors", "competitive landscape", "market leaders", "key players"}
	insightsKeywords    = []string{"insights", "recommendations", "strategic", "opportunities", "outlook", "forward-looking"}
)

// ParseSections splits an HTML report into sections by walking its
// top-level elements. An h1-h3 heading whose text matches a section's
// keywords opens that section; everything that follows accumulates there
// until the next recognized heading. Content before any heading, and
// headings that match nothing, default to the overview.
//
// Keyword order matters: a heading like "Market Trends Overview" contains
// keywords of several sections and goes to the first match, overview.
func ParseSections(htmlContent string) (*Sections, error) {
	nodes, err := parseFragment(htmlContent)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse report html")
	}

	buckets := map[string]*strings.Builder{
		"overview":    {},
		"trends":      {},
		"competitors": {},
		"insights":    {},
	}

	current := ""
	for _, node := range nodes {
		if isSectionHeading(node) {
			if section := matchSection(textContent(node)); section != "" {
				current = section
			} else if current == "" {
				current = "overview"
			}
			appendNode(buckets[current], node)
			continue
		}
		if current != "" {
			appendNode(buckets[current], node)
		} else {
			appendNode(buckets["overview"], node)
		}
	}

	return &Sections{
		Overview:    finalize(buckets["overview"], "overview"),
		Trends:      finalize(buckets["trends"], "trends"),
		Competitors: finalize(buckets["competitors"], "competitors"),
		Insights:    finalize(buckets["insights"], "insights"),
	}, nil
}

// parseFragment returns the top-level nodes of an HTML fragment. The
// fragment is parsed in a body context so bare <h1>/<p> elements survive.
func parseFragment(content string) ([]*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(content), body)
}

func isSectionHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "h1", "h2", "h3":
		return true
	}
	return false
}

func matchSection(headingText string) string {
	text := strings.ToLower(headingText)
	for _, section := range orderedKeywords {
		for _, kw := range section.words {
			if strings.Contains(text, kw) {
				return section.name
			}
		}
	}
	return ""
}

// orderedKeywords fixes the match precedence. A map literal would
// randomize iteration and make section routing nondeterministic.
var orderedKeywords = []struct {
	name  string
	words []string
}{
	{"overview", overviewKeywords},
	{"trends", trendsKeywords},
	{"competitors", competitorsKeywords},
	{"insights", insightsKeywords},
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func appendNode(sb *strings.Builder, n *html.Node) {
	// Render cannot fail on a strings.Builder.
	_ = html.Render(sb, n)
}

func finalize(sb *strings.Builder, name string) string {
	if sb.Len() == 0 {
		return fmt.Sprintf(`<p class="text-gray-500 italic">No specific %s information available in this report.</p>`, name)
	}
	return sb.String()
}
