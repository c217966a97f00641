package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/envoy-gateway/internal/database"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
)

// PostgreSQLBootRepository implements boot event persistence for PostgreSQL databases.
// Every announcement is appended to boot_events and the devices row is upserted in the
// same transaction.
type PostgreSQLBootRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// Save records the boot event and refreshes the device's latest state.
func (p *PostgreSQLBootRepository) Save(ctx context.Context, event *deviceDomain.BootEvent) error {
	return p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		querier := database.GetTx(txCtx, p.db)

		query := `INSERT INTO boot_events (id, device_id, config_version, ip_address, booted_at)
				  VALUES ($1, $2, $3, $4, $5)`

		_, err := querier.ExecContext(
			txCtx,
			query,
			event.ID,
			event.DeviceID,
			event.ConfigVersion,
			event.IPAddress,
			event.Timestamp,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to insert boot event")
		}

		query = `INSERT INTO devices (device_id, last_boot_event_id, config_version, ip_address, last_boot_at)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (device_id) DO UPDATE SET
				 last_boot_event_id = EXCLUDED.last_boot_event_id,
				 config_version = EXCLUDED.config_version,
				 ip_address = EXCLUDED.ip_address,
				 last_boot_at = EXCLUDED.last_boot_at`

		_, err = querier.ExecContext(
			txCtx,
			query,
			event.DeviceID,
			event.ID,
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

// NewPostgreSQLBootRepository creates a new PostgreSQL boot event repository.
func NewPostgreSQLBootRepository(db *sql.DB, txManager database.TxManager) *PostgreSQLBootRepository {
	return &PostgreSQLBootRepository{db: db, txManager: txManager}
}
