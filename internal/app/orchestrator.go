package app

import (
	"context"
	"time"

	"vinwreck-parser/internal/config"
	"vinwreck-parser/internal/fetcher"
	"vinwreck-parser/internal/filter"
	"vinwreck-parser/internal/observability"
	"vinwreck-parser/internal/scraper"
	"vinwreck-parser/internal/storage"
)

// PageFetcher is the outbound HTTP capability used for pages and photos.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.FetchResponse, error)
}

// Outcome is the terminal state of one lot URL.
type Outcome string

const (
	OutcomeSaved           Outcome = "saved"
	OutcomeSkippedByFilter Outcome = "skipped_by_filter"
	OutcomeFetchFailed     Outcome = "fetch_failed"
	OutcomePersistFailed   Outcome = "persist_failed"
)

type LotResult struct {
	URL           string
	Outcome       Outcome
	LotID         int64
	Title         string
	ConditionText string
	Candidates    int
	Photos        []PhotoResult
	Err           error
}

func (r *LotResult) PhotosSaved() int {
	n := 0
	for _, p := range r.Photos {
		if p.Err == nil {
			n++
		}
	}
	return n
}

type RunStats struct {
	URLs            int
	Saved           int
	SkippedByFilter int
	FetchFailed     int
	PersistFailed   int
	PhotosSaved     int
	PhotosFailed    int
	Duration        time.Duration
	Lots            []*LotResult
}

type Orchestrator struct {
	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	fetcher  PageFetcher
	scraper  *scraper.Scraper
	filter   *filter.KeywordFilter
	repo     storage.Repository
	blobs    storage.BlobStore
	newToken func() string
}

func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	f PageFetcher,
	s *scraper.Scraper,
	kf *filter.KeywordFilter,
	repo storage.Repository,
	blobs storage.BlobStore,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		fetcher:  f,
		scraper:  s,
		filter:   kf,
		repo:     repo,
		blobs:    blobs,
		newToken: randomToken,
	}
}

// Run processes every configured lot URL in order. Failures of a single
// URL are logged and counted; only cancellation of ctx stops the run early.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	urls := o.cfg.Source.LotURLs
	if len(urls) == 0 {
		return nil, config.ErrNoSourceURLs
	}

	start := time.Now()
	stats := &RunStats{}

	o.logger.Info("Starting ingestion run", "source", o.cfg.Source.Name, "urls", len(urls))

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("Run interrupted", "processed", stats.URLs, "total", len(urls))
			stats.Duration = time.Since(start)
			return stats, err
		}

		res := o.ProcessLot(ctx, u)
		stats.add(res)
		o.metrics.LotOutcome(string(res.Outcome))
	}

	stats.Duration = time.Since(start)
	o.metrics.RunFinished(stats.Duration)

	o.logger.Info("Ingestion run completed",
		"urls", stats.URLs,
		"saved", stats.Saved,
		"skipped_by_filter", stats.SkippedByFilter,
		"fetch_failed", stats.FetchFailed,
		"persist_failed", stats.PersistFailed,
		"photos_saved", stats.PhotosSaved,
		"photos_failed", stats.PhotosFailed,
		"duration", stats.Duration.String(),
	)

	return stats, nil
}

// ProcessLot drives one URL through fetch, extract, filter, lot upsert and
// photo ingestion. It never returns an error; the outcome says what happened.
func (o *Orchestrator) ProcessLot(ctx context.Context, url string) *LotResult {
	res := &LotResult{URL: url}

	o.logger.Info("Processing lot", "url", url)

	resp, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		o.logger.Error("Lot page fetch failed", "url", url, "error", err)
		res.Outcome, res.Err = OutcomeFetchFailed, err
		return res
	}

	page, err := o.scraper.ParseLot(string(resp.Body))
	if err != nil {
		o.logger.Error("Lot page parse failed", "url", url, "error", err)
		res.Outcome, res.Err = OutcomeFetchFailed, err
		return res
	}
	res.Title = page.Title
	res.ConditionText = page.ConditionText
	res.Candidates = len(page.ImageURLs)

	decision := o.filter.Decide(page.ConditionText)
	if !decision.Eligible {
		fields := []interface{}{"url", url, "condition_text", page.ConditionText}
		if decision.Phrase != "" {
			fields = append(fields, "deny_phrase", decision.Phrase)
		}
		o.logger.Info("Lot skipped by filter", fields...)
		res.Outcome = OutcomeSkippedByFilter
		return res
	}

	lotID, err := o.repo.UpsertLot(ctx, &storage.Lot{
		Source:        o.cfg.Source.Name,
		SourceURL:     url,
		Title:         page.Title,
		MileageKm:     page.MileageKm,
		ConditionText: page.ConditionText,
	})
	if err != nil {
		o.logger.Error("Lot upsert failed", "url", url, "error", err)
		res.Outcome, res.Err = OutcomePersistFailed, err
		return res
	}
	res.LotID = lotID

	o.logger.Info("Lot saved",
		"url", url,
		"lot_id", lotID,
		"title", page.Title,
		"mileage_km", page.MileageKm,
		"condition_text", page.ConditionText,
		"matched_allow", decision.Phrase,
		"photo_candidates", len(page.ImageURLs),
	)

	res.Photos = o.savePhotos(ctx, lotID, page.ImageURLs)
	res.Outcome = OutcomeSaved

	o.logger.Info("Lot photos done",
		"lot_id", lotID,
		"saved", res.PhotosSaved(),
		"candidates", len(page.ImageURLs),
	)
	return res
}

// savePhotos attempts every candidate in discovery order. Sort values are
// the candidate positions, so a failed photo leaves a gap instead of
// renumbering the rest.
func (o *Orchestrator) savePhotos(ctx context.Context, lotID int64, urls []string) []PhotoResult {
	results := make([]PhotoResult, 0, len(urls))
	delay := o.cfg.GetPhotoDelay()

	for i, imgURL := range urls {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				o.logger.Warn("Photo ingestion interrupted", "lot_id", lotID, "attempted", i, "candidates", len(urls))
				break
			}
		}

		pr := o.savePhoto(ctx, lotID, i+1, imgURL)
		o.metrics.Photo(pr.Err == nil)
		if pr.Err != nil {
			o.logger.Warn("Photo skipped",
				"lot_id", lotID,
				"sort", pr.Sort,
				"url", imgURL,
				"stage", pr.Stage,
				"error", pr.Err,
			)
		} else {
			o.logger.Debug("Photo saved", "lot_id", lotID, "sort", pr.Sort, "path", pr.Path)
		}
		results = append(results, pr)
	}
	return results
}

func (s *RunStats) add(res *LotResult) {
	s.URLs++
	s.Lots = append(s.Lots, res)
	switch res.Outcome {
	case OutcomeSaved:
		s.Saved++
	case OutcomeSkippedByFilter:
		s.SkippedByFilter++
	case OutcomeFetchFailed:
		s.FetchFailed++
	case OutcomePersistFailed:
		s.PersistFailed++
	}
	for _, p := range res.Photos {
		if p.Err == nil {
			s.PhotosSaved++
		} else {
			s.PhotosFailed++
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
