package storage

import (
	"context"
	"errors"
)

// ErrNoLotID is returned when an upsert succeeds but yields no lot id.
var ErrNoLotID = errors.New("upsert returned no lot id")

// Lot is one auction listing, identified by (Source, SourceURL).
type Lot struct {
	Source        string
	SourceURL     string
	Title         string
	MileageKm     *int64 // NULL when unknown
	ConditionText string
}

// Photo links a stored object to its lot. Sort is the 1-based position of
// the photo among the lot page's candidates.
type Photo struct {
	LotID int64
	Path  string
	Sort  int
}

// Repository persists lots and their photo records.
type Repository interface {
	// UpsertLot inserts or updates the lot matched on (Source, SourceURL)
	// and returns its id, which is stable across calls.
	UpsertLot(ctx context.Context, lot *Lot) (int64, error)

	// InsertPhoto always appends a new photo row.
	InsertPhoto(ctx context.Context, photo *Photo) error

	Close() error
}

// BlobStore writes photo bytes to object storage. Writing an existing key
// overwrites it.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
}
