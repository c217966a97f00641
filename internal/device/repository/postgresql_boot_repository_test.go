package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/envoy-gateway/internal/database"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
)

func newTestBootEvent() *deviceDomain.BootEvent {
	return &deviceDomain.BootEvent{
		ID:            uuid.Must(uuid.NewV7()),
		DeviceID:      "test-device-001",
		ConfigVersion: "v2",
		IPAddress:     "10.0.0.7",
		Timestamp:     time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewPostgreSQLBootRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLBootRepository(db, database.NewTxManager(db))
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLBootRepository{}, repo)
}

func TestPostgreSQLBootRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLBootRepository(db, database.NewTxManager(db))
		event := newTestBootEvent()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO boot_events").
			WithArgs(event.ID, event.DeviceID, event.ConfigVersion, event.IPAddress, event.Timestamp).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("(?s)INSERT INTO devices .* ON CONFLICT \\(device_id\\) DO UPDATE").
			WithArgs(event.DeviceID, event.ID, event.ConfigVersion, event.IPAddress, event.Timestamp).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_InsertEventRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLBootRepository(db, database.NewTxManager(db))
		dbErr := errors.New("connection reset")

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO boot_events").WillReturnError(dbErr)
		mock.ExpectRollback()

		err = repo.Save(ctx, newTestBootEvent())

		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to insert boot event")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UpsertDeviceRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLBootRepository(db, database.NewTxManager(db))
		dbErr := errors.New("deadlock detected")

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO boot_events").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO devices").WillReturnError(dbErr)
		mock.ExpectRollback()

		err = repo.Save(ctx, newTestBootEvent())

		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to upsert device")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_BeginFails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLBootRepository(db, database.NewTxManager(db))
		beginErr := errors.New("too many connections")

		mock.ExpectBegin().WillReturnError(beginErr)

		err = repo.Save(ctx, newTestBootEvent())

		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
