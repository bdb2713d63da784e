package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxImages caps the photo candidates kept per lot. It is also the
// largest cap NewScraper accepts.
const DefaultMaxImages = 25

type Scraper struct {
	origin    string
	maxImages int
}

// NewScraper builds a scraper resolving root-relative URLs against origin,
// e.g. "https://carstat.info".
func NewScraper(origin string, maxImages int) *Scraper {
	if maxImages <= 0 || maxImages > DefaultMaxImages {
		maxImages = DefaultMaxImages
	}
	return &Scraper{
		origin:    strings.TrimRight(origin, "/"),
		maxImages: maxImages,
	}
}

// ParseLot parses a lot page and extracts its fields and photo candidates.
func (s *Scraper) ParseLot(html string) (*LotPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &LotPage{
		LotFields: Extract(doc),
		ImageURLs: s.CollectImageURLs(doc),
	}, nil
}
