package mssql

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinwreck-parser/internal/observability"
	"vinwreck-parser/internal/storage"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &Repository{
		db:             db,
		commandTimeout: time.Second,
		logger:         observability.NewLoggerTo(io.Discard, "error"),
	}, mock
}

func TestUpsertLotReturnsMergedID(t *testing.T) {
	repo, mock := newMockRepository(t)
	mileage := int64(45210)

	mock.ExpectPrepare(`MERGE INTO lots WITH \(HOLDLOCK\)`).
		ExpectQuery().
		WithArgs(
			sql.Named("Source", "carstat.info"),
			sql.Named("SourceURL", "https://carstat.info/lot/1"),
			sql.Named("Title", "2015 Toyota Camry"),
			sql.Named("MileageKm", int64(45210)),
			sql.Named("ConditionText", "Runs and Drives"),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.UpsertLot(context.Background(), &storage.Lot{
		Source:        "carstat.info",
		SourceURL:     "https://carstat.info/lot/1",
		Title:         "2015 Toyota Camry",
		MileageKm:     &mileage,
		ConditionText: "Runs and Drives",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLotSendsNullMileage(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectPrepare(`MERGE INTO lots`).
		ExpectQuery().
		WithArgs(
			sql.Named("Source", "carstat.info"),
			sql.Named("SourceURL", "https://carstat.info/lot/2"),
			sql.Named("Title", ""),
			sql.Named("MileageKm", nil),
			sql.Named("ConditionText", "Engine Starts"),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	id, err := repo.UpsertLot(context.Background(), &storage.Lot{
		Source:        "carstat.info",
		SourceURL:     "https://carstat.info/lot/2",
		ConditionText: "Engine Starts",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLotErrors(t *testing.T) {
	t.Run("no id returned", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectPrepare(`MERGE INTO lots`).
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.UpsertLot(context.Background(), &storage.Lot{Source: "carstat.info", SourceURL: "https://carstat.info/lot/3"})
		assert.ErrorIs(t, err, storage.ErrNoLotID)
	})

	t.Run("query failure", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		boom := errors.New("deadlock victim")
		mock.ExpectPrepare(`MERGE INTO lots`).
			ExpectQuery().
			WillReturnError(boom)

		_, err := repo.UpsertLot(context.Background(), &storage.Lot{Source: "carstat.info", SourceURL: "https://carstat.info/lot/4"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestInsertPhoto(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO lot_photos`).
		WithArgs(
			sql.Named("LotID", int64(7)),
			sql.Named("Path", "lots/7/03_abc.png"),
			sql.Named("Sort", 3),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertPhoto(context.Background(), &storage.Photo{LotID: 7, Path: "lots/7/03_abc.png", Sort: 3})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
