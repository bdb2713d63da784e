package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const lotImageMarker = "lot-image"

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// CollectImageURLs gathers photo candidates: every img src, then every
// anchor href carrying the lot-image marker. URLs are made absolute, kept
// only if they look like images, deduplicated in first-seen document order
// and capped.
func (s *Scraper) CollectImageURLs(doc *goquery.Document) []string {
	var raw []string
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		if src, _ := img.Attr("src"); src != "" {
			raw = append(raw, src)
		}
	})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, _ := a.Attr("href"); strings.Contains(href, lotImageMarker) {
			raw = append(raw, href)
		}
	})

	seen := make(map[string]struct{}, len(raw))
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = AbsoluteURL(u, s.origin)
		if !isImageURL(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		if len(urls) == s.maxImages {
			break
		}
	}
	return urls
}

// AbsoluteURL resolves protocol-relative and root-relative URLs; anything
// else is returned unchanged.
func AbsoluteURL(u, origin string) string {
	switch {
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return origin + u
	default:
		return u
	}
}

func isImageURL(u string) bool {
	if strings.Contains(u, lotImageMarker) {
		return true
	}
	path := u
	if idx := strings.IndexAny(path, "?#"); idx > -1 {
		path = path[:idx]
	}
	path = strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
