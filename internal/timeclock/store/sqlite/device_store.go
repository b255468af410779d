package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/timeclock/internal/db"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type DeviceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDeviceStore(db *sql.DB, writer *dbpkg.Worker) *DeviceStore {
	return &DeviceStore{db: db, writer: writer}
}

func (s *DeviceStore) ListDevices(ctx context.Context) ([]types.DeviceConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT serial_no, device_name, extract_required
FROM device_configs
ORDER BY serial_no;`)
	if err != nil {
		return nil, fmt.Errorf("ListDevices query: %w", err)
	}
	defer rows.Close()

	var out []types.DeviceConfig
	for rows.Next() {
		var (
			d       types.DeviceConfig
			extract int
		)
		if err := rows.Scan(&d.SerialNo, &d.DeviceName, &extract); err != nil {
			return nil, fmt.Errorf("ListDevices scan: %w", err)
		}
		d.ExtractRequired = extract == 1
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDevices rows: %w", err)
	}
	return out, nil
}

// UpsertDevice creates or updates a terminal by serial number.
func (s *DeviceStore) UpsertDevice(ctx context.Context, d types.DeviceConfig) error {
	d.SerialNo = strings.TrimSpace(d.SerialNo)
	if d.SerialNo == "" {
		return fmt.Errorf("UpsertDevice: empty serial number")
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO device_configs(serial_no, device_name, extract_required, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(serial_no) DO UPDATE SET
  device_name      = excluded.device_name,
  extract_required = excluded.extract_required,
  updated_at_ms    = excluded.updated_at_ms;`,
			d.SerialNo, d.DeviceName, boolInt(d.ExtractRequired), ms, ms,
		); err != nil {
			return fmt.Errorf("UpsertDevice: %w", err)
		}
		return nil
	})
}
