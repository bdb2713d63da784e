package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"vinwreck-parser/internal/observability"
	"vinwreck-parser/internal/storage"
)

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, maxConns int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

// UpsertLot merges the lot on (source, source_url) and returns its id.
func (r *Repository) UpsertLot(ctx context.Context, lot *storage.Lot) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	// HOLDLOCK keeps two concurrent runs from both taking the INSERT branch.
	query := `
		MERGE INTO lots WITH (HOLDLOCK) AS target
		USING (SELECT @Source AS source, @SourceURL AS source_url) AS src
		ON target.[source] = src.source AND target.[source_url] = src.source_url
		WHEN MATCHED THEN
			UPDATE SET
				[title] = @Title,
				[mileage_km] = @MileageKm,
				[condition_text] = @ConditionText
		WHEN NOT MATCHED THEN
			INSERT ([source], [source_url], [title], [mileage_km], [condition_text])
			VALUES (@Source, @SourceURL, @Title, @MileageKm, @ConditionText)
		OUTPUT inserted.[id];
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err)
		}
	}()

	mileage := sql.NullInt64{}
	if lot.MileageKm != nil {
		mileage = sql.NullInt64{Int64: *lot.MileageKm, Valid: true}
	}

	var id int64
	err = stmt.QueryRowContext(ctx,
		sql.Named("Source", lot.Source),
		sql.Named("SourceURL", lot.SourceURL),
		sql.Named("Title", lot.Title),
		sql.Named("MileageKm", mileage),
		sql.Named("ConditionText", lot.ConditionText),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNoLotID
		}
		return 0, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return id, nil
}

// InsertPhoto appends a photo row.
func (r *Repository) InsertPhoto(ctx context.Context, photo *storage.Photo) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `INSERT INTO lot_photos ([lot_id], [path], [sort]) VALUES (@LotID, @Path, @Sort)`

	_, err := r.db.ExecContext(ctx, query,
		sql.Named("LotID", photo.LotID),
		sql.Named("Path", photo.Path),
		sql.Named("Sort", photo.Sort),
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
