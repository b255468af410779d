package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/BrandonDHaskell/timeclock/internal/db"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type TimeclockStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    func() time.Time
}

func NewTimeclockStore(db *sql.DB, writer *dbpkg.Worker) *TimeclockStore {
	return &TimeclockStore{db: db, writer: writer, now: time.Now}
}

const timeclockCols = `id, user_id, shift_start_ms, shift_end_ms, shift_active,
  in_device, in_device_type, out_device, out_device_type`

func (s *TimeclockStore) OpenShifts(ctx context.Context, userIDs []string) ([]types.ShiftRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(userIDs)
	return s.query(ctx, "OpenShifts", `
SELECT `+timeclockCols+`
FROM timeclocks
WHERE shift_active = 1 AND user_id IN (`+ph+`)
ORDER BY user_id, shift_start_ms;`, args...)
}

func (s *TimeclockStore) ShiftsInRange(ctx context.Context, userIDs []string, from, to time.Time) ([]types.ShiftRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(userIDs)
	f, t := toMs(from), toMs(to)
	args = append(args, f, t, f, t)

	return s.query(ctx, "ShiftsInRange", `
SELECT `+timeclockCols+`
FROM timeclocks
WHERE user_id IN (`+ph+`)
  AND ((shift_start_ms >= ? AND shift_start_ms < ?)
    OR (shift_end_ms IS NOT NULL AND shift_end_ms >= ? AND shift_end_ms < ?))
ORDER BY user_id, shift_start_ms;`, args...)
}

func (s *TimeclockStore) query(ctx context.Context, op, q string, args ...any) ([]types.ShiftRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	var out []types.ShiftRecord
	for rows.Next() {
		var (
			r      types.ShiftRecord
			start  int64
			end    sql.NullInt64
			active int
		)
		if err := rows.Scan(&r.ID, &r.UserID, &start, &end, &active,
			&r.InDevice, &r.InDeviceType, &r.OutDevice, &r.OutDeviceType); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		r.ShiftStart = fromMs(start)
		r.ShiftEnd = fromNullMs(end)
		r.ShiftActive = active == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}

// InsertShifts writes every record in one transaction.
func (s *TimeclockStore) InsertShifts(ctx context.Context, recs []types.ShiftRecord) ([]types.ShiftRecord, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make([]types.ShiftRecord, len(recs))
	for i, r := range recs {
		if !r.Valid() {
			return nil, fmt.Errorf("InsertShifts: record %d for %s has inconsistent active flag", i, r.UserID)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		out[i] = r
	}
	nowMs := toMs(s.now())

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO timeclocks(`+timeclockCols+`, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return fmt.Errorf("InsertShifts prepare: %w", err)
		}
		defer stmt.Close()

		for _, r := range out {
			var end any
			if r.ShiftEnd != nil {
				end = toMs(*r.ShiftEnd)
			}
			if _, err := stmt.ExecContext(ctx,
				r.ID, r.UserID, toMs(r.ShiftStart), end, boolInt(r.ShiftActive),
				r.InDevice, r.InDeviceType, r.OutDevice, r.OutDeviceType,
				nowMs, nowMs,
			); err != nil {
				return fmt.Errorf("InsertShifts %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CloseShifts applies every closure in one transaction. The active guard in
// the WHERE clause keeps a closed record from being closed twice.
func (s *TimeclockStore) CloseShifts(ctx context.Context, closures []types.ShiftClosure) (int, error) {
	if len(closures) == 0 {
		return 0, nil
	}
	nowMs := toMs(s.now())

	var closed int
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		closed = 0
		for _, c := range closures {
			res, err := tx.ExecContext(ctx, `
UPDATE timeclocks
SET shift_end_ms    = ?,
    shift_active    = 0,
    out_device      = ?,
    out_device_type = ?,
    updated_at_ms   = ?
WHERE id = ? AND shift_active = 1;`,
				toMs(c.ShiftEnd), c.OutDevice, c.OutDeviceType, nowMs, c.ID)
			if err != nil {
				return fmt.Errorf("CloseShifts %s: %w", c.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("CloseShifts rows affected: %w", err)
			}
			closed += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return closed, nil
}
