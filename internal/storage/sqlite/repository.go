// Package sqlite is an embedded datastore for local runs. Unlike the remote
// stores it creates its own tables on open.
package sqlite

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"vinwreck-parser/internal/observability"
	"vinwreck-parser/internal/storage"
)

type lotRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Source        string `gorm:"column:source;not null;uniqueIndex:ux_lots_source_url,priority:1"`
	SourceURL     string `gorm:"column:source_url;not null;uniqueIndex:ux_lots_source_url,priority:2"`
	Title         string `gorm:"column:title"`
	MileageKm     *int64 `gorm:"column:mileage_km"`
	ConditionText string `gorm:"column:condition_text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (lotRow) TableName() string { return "lots" }

type photoRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	LotID     int64     `gorm:"column:lot_id;not null;index"`
	Path      string    `gorm:"column:path;not null"`
	Sort      int       `gorm:"column:sort;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (photoRow) TableName() string { return "lot_photos" }

type Repository struct {
	db             *gorm.DB
	commandTimeout time.Duration
}

// NewRepository opens dsn (a file path or "file:...?mode=memory") and
// ensures the lots and lot_photos tables exist.
func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// sqlite serializes writers anyway; one connection also keeps an
	// in-memory database alive for the lifetime of the repository.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&lotRow{}, &photoRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("SQLite datastore ready", "dsn", dsn)

	return &Repository{db: db, commandTimeout: commandTimeout}, nil
}

func (r *Repository) UpsertLot(ctx context.Context, lot *storage.Lot) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	row := lotRow{
		Source:        lot.Source,
		SourceURL:     lot.SourceURL,
		Title:         lot.Title,
		MileageKm:     lot.MileageKm,
		ConditionText: lot.ConditionText,
	}

	var id int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "source_url"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "mileage_km", "condition_text", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		var stored lotRow
		if err := tx.Select("id").
			Where("source = ? AND source_url = ?", lot.Source, lot.SourceURL).
			Take(&stored).Error; err != nil {
			return err
		}
		id = stored.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert lot: %w", err)
	}
	if id == 0 {
		return 0, storage.ErrNoLotID
	}
	return id, nil
}

func (r *Repository) InsertPhoto(ctx context.Context, photo *storage.Photo) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	row := photoRow{LotID: photo.LotID, Path: photo.Path, Sort: photo.Sort}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
