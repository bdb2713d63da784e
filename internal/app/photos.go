package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vinwreck-parser/internal/storage"
)

// PhotoStage names the step of the photo pipeline that failed.
type PhotoStage string

const (
	StageFetch  PhotoStage = "fetch"
	StageUpload PhotoStage = "upload"
	StageInsert PhotoStage = "insert"
)

// PhotoResult is the outcome of one photo candidate. Err is nil on success;
// otherwise Stage says where it failed.
type PhotoResult struct {
	Sort  int
	URL   string
	Path  string
	Stage PhotoStage
	Err   error
}

// savePhoto fetches, uploads and records a single photo. sort is fixed by the
// caller from the discovery position.
func (o *Orchestrator) savePhoto(ctx context.Context, lotID int64, sort int, imgURL string) PhotoResult {
	pr := PhotoResult{Sort: sort, URL: imgURL}

	resp, err := o.fetcher.Fetch(ctx, imgURL)
	if err != nil {
		pr.Stage, pr.Err = StageFetch, err
		return pr
	}

	contentType := resp.ContentType()
	pr.Path = PhotoPath(lotID, sort, o.newToken(), PhotoExtension(contentType))

	if err := o.blobs.Upload(ctx, pr.Path, resp.Body, contentType); err != nil {
		pr.Stage, pr.Err = StageUpload, err
		return pr
	}

	if err := o.repo.InsertPhoto(ctx, &storage.Photo{LotID: lotID, Path: pr.Path, Sort: sort}); err != nil {
		pr.Stage, pr.Err = StageInsert, err
		return pr
	}

	return pr
}

// PhotoPath builds the object key lots/{lotID}/{sort:02}_{token}.{ext}.
func PhotoPath(lotID int64, sort int, token, ext string) string {
	return fmt.Sprintf("lots/%d/%02d_%s.%s", lotID, sort, token, ext)
}

// PhotoExtension maps a media type to a file extension, jpg by default.
func PhotoExtension(contentType string) string {
	switch {
	case strings.HasSuffix(contentType, "png"):
		return "png"
	case strings.HasSuffix(contentType, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
