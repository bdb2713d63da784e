package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vinwreck-parser/internal/observability"
	"vinwreck-parser/internal/storage"
)

const upsertLotSQL = `
	INSERT INTO lots (source, source_url, title, mileage_km, condition_text)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (source, source_url) DO UPDATE SET
		title = EXCLUDED.title,
		mileage_km = EXCLUDED.mileage_km,
		condition_text = EXCLUDED.condition_text
	RETURNING id`

const insertPhotoSQL = `INSERT INTO lot_photos (lot_id, path, sort) VALUES ($1, $2, $3)`

// dbPool is the subset of *pgxpool.Pool the repository uses.
type dbPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

type Repository struct {
	pool           dbPool
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(ctx context.Context, dsn string, commandTimeout time.Duration, maxConns int, viaBouncer bool, logger *observability.Logger) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)
	if viaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pgPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pgPool.Ping(pingCtx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("Postgres pool ready", "max_conns", maxConns, "via_bouncer", viaBouncer)

	return &Repository{
		pool:           pgPool,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

// UpsertLot relies on the unique (source, source_url) constraint; on
// conflict the row is updated in place and its existing id returned.
func (r *Repository) UpsertLot(ctx context.Context, lot *storage.Lot) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var id int64
	err := r.pool.QueryRow(ctx, upsertLotSQL,
		lot.Source, lot.SourceURL, lot.Title, lot.MileageKm, lot.ConditionText,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNoLotID
		}
		return 0, fmt.Errorf("failed to upsert lot: %w", err)
	}
	return id, nil
}

func (r *Repository) InsertPhoto(ctx context.Context, photo *storage.Photo) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, insertPhotoSQL, photo.LotID, photo.Path, photo.Sort); err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}
