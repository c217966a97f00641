package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/envoy-gateway/internal/database"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
)

// MySQLBootRepository implements boot event persistence for MySQL databases.
// Ids are stored as BINARY(16).
type MySQLBootRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// Save records the boot event and refreshes the device's latest state.
func (m *MySQLBootRepository) Save(ctx context.Context, event *deviceDomain.BootEvent) error {
	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal boot event id")
	}

	return m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		querier := database.GetTx(txCtx, m.db)

		query := `INSERT INTO boot_events (id, device_id, config_version, ip_address, booted_at)
				  VALUES (?, ?, ?, ?, ?)`

		_, err := querier.ExecContext(
			txCtx,
			query,
			id,
			event.DeviceID,
			event.ConfigVersion,
			event.IPAddress,
			event.Timestamp,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to insert boot event")
		}

		query = `INSERT INTO devices (device_id, last_boot_event_id, config_version, ip_address, last_boot_at)
				 VALUES (?, ?, ?, ?, ?)
				 ON DUPLICATE KEY UPDATE
				 last_boot_event_id = VALUES(last_boot_event_id),
				 config_version = VALUES(config_version),
				 ip_address = VALUES(ip_address),
				 last_boot_at = VALUES(last_boot_at)`

		_, err = querier.ExecContext(
			txCtx,
			query,
			event.DeviceID,
			id,
			event.ConfigVersion,
			event.IPAddress,
			event.Timestamp,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to upsert device")
		}
		return nil
	})
}

// NewMySQLBootRepository creates a new MySQL boot event repository.
func NewMySQLBootRepository(db *sql.DB, txManager database.TxManager) *MySQLBootRepository {
	return &MySQLBootRepository{db: db, txManager: txManager}
}
