package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Nodes whose text never renders on the page.
var invisible = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// CollapseSpaces folds NBSP into a space, collapses whitespace runs and trims.
func CollapseSpaces(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// SelectionText returns the text of sel with its text nodes joined by spaces.
func SelectionText(sel *goquery.Selection) string {
	var parts []string
	collectText(sel, &parts)
	return CollapseSpaces(strings.Join(parts, " "))
}

// PageText renders the visible text of the whole document as one line.
func PageText(doc *goquery.Document) string {
	return SelectionText(doc.Selection)
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			if text := strings.TrimSpace(node.Text()); text != "" {
				*parts = append(*parts, text)
			}
		case name == "#comment" || invisible[name]:
		default:
			collectText(node, parts)
		}
	})
}
