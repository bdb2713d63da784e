package scraper

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"vinwreck-parser/internal/normalize"
)

var (
	// Label, optional separator, then a run of digits, dots, commas and spaces.
	mileageRe = regexp.MustCompile(`(?i)(Mileage|Odometer|Пробег)\s*[:\-]?\s*([\d., ]+)`)

	// First match wins. The plural run/drive form is tried before the
	// singular one so "Runs and Drives" is captured whole.
	conditionRe = regexp.MustCompile(`(?i)(Runs.*?Drives|Run.*?Drive|Engine\s*Starts|Starts|Parts\s*Only|Non[-\s]?repairable)`)

	nonDigitRe = regexp.MustCompile(`\D`)
)

// Extract derives the lot fields from a parsed page. Fields that cannot be
// found are left empty; extraction never fails.
func Extract(doc *goquery.Document) LotFields {
	text := normalize.PageText(doc)
	return LotFields{
		Title:         extractTitle(doc),
		MileageKm:     ExtractMileage(text),
		ConditionText: ExtractCondition(text),
	}
}

func extractTitle(doc *goquery.Document) string {
	if title := normalize.SelectionText(doc.Find("h1").First()); title != "" {
		return title
	}
	if title := normalize.SelectionText(doc.Find("title").First()); title != "" {
		return title
	}
	ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content")
	return normalize.CollapseSpaces(ogTitle)
}

// ExtractMileage returns the first labelled odometer value in text with all
// separators removed, or nil.
func ExtractMileage(text string) *int64 {
	m := mileageRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	digits := nonDigitRe.ReplaceAllString(m[2], "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractCondition returns the first condition phrase in text verbatim, or "".
func ExtractCondition(text string) string {
	m := conditionRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
