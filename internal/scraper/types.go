package scraper

// LotFields are the values extracted from a lot page's text.
type LotFields struct {
	Title string
	// MileageKm is nil when the page shows no readable odometer value.
	MileageKm     *int64
	ConditionText string
}

// LotPage is everything the ingestion needs from one lot page.
type LotPage struct {
	LotFields
	// ImageURLs are absolute, deduplicated and in document order.
	ImageURLs []string
}
