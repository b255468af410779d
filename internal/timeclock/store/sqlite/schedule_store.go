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

type ScheduleStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewScheduleStore(db *sql.DB, writer *dbpkg.Worker) *ScheduleStore {
	return &ScheduleStore{db: db, writer: writer}
}

// ApprovedSchedules loads the users' schedules and keeps the eligible ones.
// Status matching stays in Go so every backend agrees on what "approved"
// means.
func (s *ScheduleStore) ApprovedSchedules(ctx context.Context, userIDs []string) ([]types.Schedule, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(userIDs)

	rows, err := s.db.QueryContext(ctx, `
SELECT schedule_id, user_id, status, created_by_request
FROM schedules
WHERE user_id IN (`+ph+`)
ORDER BY schedule_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("ApprovedSchedules query: %w", err)
	}
	defer rows.Close()

	var out []types.Schedule
	for rows.Next() {
		var (
			sc  types.Schedule
			req int
		)
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Status, &req); err != nil {
			return nil, fmt.Errorf("ApprovedSchedules scan: %w", err)
		}
		sc.CreatedByRequest = req == 1
		if sc.Eligible() {
			out = append(out, sc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ApprovedSchedules rows: %w", err)
	}
	return out, nil
}

func (s *ScheduleStore) ScheduleShifts(ctx context.Context, scheduleIDs []string, from, to time.Time) ([]types.ScheduleShift, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(scheduleIDs)
	args = append(args, toMs(from), toMs(to))

	rows, err := s.db.QueryContext(ctx, `
SELECT shift_id, schedule_id, COALESCE(config_id, ''), shift_start_ms, shift_end_ms
FROM schedule_shifts
WHERE schedule_id IN (`+ph+`)
  AND shift_start_ms >= ? AND shift_start_ms < ?
ORDER BY shift_start_ms, shift_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("ScheduleShifts query: %w", err)
	}
	defer rows.Close()

	var out []types.ScheduleShift
	for rows.Next() {
		var (
			sh         types.ScheduleShift
			start, end int64
		)
		if err := rows.Scan(&sh.ID, &sh.ScheduleID, &sh.ScheduleConfigID, &start, &end); err != nil {
			return nil, fmt.Errorf("ScheduleShifts scan: %w", err)
		}
		sh.ShiftStart, sh.ShiftEnd = fromMs(start), fromMs(end)
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ScheduleShifts rows: %w", err)
	}
	return out, nil
}

func (s *ScheduleStore) ScheduleConfigs(ctx context.Context, ids []string) ([]types.ScheduleConfig, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph, args := inClause(ids)

	rows, err := s.db.QueryContext(ctx, `
SELECT config_id, name, shift_start, shift_end
FROM schedule_configs
WHERE config_id IN (`+ph+`)
ORDER BY config_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("ScheduleConfigs query: %w", err)
	}
	defer rows.Close()

	var out []types.ScheduleConfig
	for rows.Next() {
		var c types.ScheduleConfig
		if err := rows.Scan(&c.ID, &c.Name, &c.ShiftStart, &c.ShiftEnd); err != nil {
			return nil, fmt.Errorf("ScheduleConfigs scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ScheduleConfigs rows: %w", err)
	}
	return out, nil
}

func (s *ScheduleStore) ConfigShifts(ctx context.Context, scheduleConfigIDs []string) ([]types.ConfigShift, error) {
	if len(scheduleConfigIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(scheduleConfigIDs)

	rows, err := s.db.QueryContext(ctx, `
SELECT id, config_id, config_name, config_shift_start, config_shift_end
FROM schedule_config_shifts
WHERE config_id IN (`+ph+`)
ORDER BY config_id, id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("ConfigShifts query: %w", err)
	}
	defer rows.Close()

	var out []types.ConfigShift
	for rows.Next() {
		var c types.ConfigShift
		if err := rows.Scan(&c.ID, &c.ScheduleConfigID, &c.ConfigName, &c.ConfigShiftStart, &c.ConfigShiftEnd); err != nil {
			return nil, fmt.Errorf("ConfigShifts scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ConfigShifts rows: %w", err)
	}
	return out, nil
}

// PutSchedule upserts a schedule and inserts its shift rows. Rows without an
// id get a generated one.
func (s *ScheduleStore) PutSchedule(ctx context.Context, sc types.Schedule, shifts ...types.ScheduleShift) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO schedules(schedule_id, user_id, status, created_by_request) VALUES (?, ?, ?, ?)
ON CONFLICT(schedule_id) DO UPDATE SET
  user_id            = excluded.user_id,
  status             = excluded.status,
  created_by_request = excluded.created_by_request;`,
			sc.ID, sc.UserID, sc.Status, boolInt(sc.CreatedByRequest)); err != nil {
			return fmt.Errorf("PutSchedule: %w", err)
		}
		for _, sh := range shifts {
			if sh.ID == "" {
				sh.ID = uuid.NewString()
			}
			var cfg any
			if sh.ScheduleConfigID != "" {
				cfg = sh.ScheduleConfigID
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO schedule_shifts(shift_id, schedule_id, config_id, shift_start_ms, shift_end_ms)
VALUES (?, ?, ?, ?, ?);`,
				sh.ID, sc.ID, cfg, toMs(sh.ShiftStart), toMs(sh.ShiftEnd)); err != nil {
				return fmt.Errorf("PutSchedule shift %s: %w", sh.ID, err)
			}
		}
		return nil
	})
}

// PutConfig upserts a schedule template and replaces its sub-windows.
func (s *ScheduleStore) PutConfig(ctx context.Context, c types.ScheduleConfig, shifts ...types.ConfigShift) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO schedule_configs(config_id, name, shift_start, shift_end) VALUES (?, ?, ?, ?)
ON CONFLICT(config_id) DO UPDATE SET
  name        = excluded.name,
  shift_start = excluded.shift_start,
  shift_end   = excluded.shift_end;`,
			c.ID, c.Name, c.ShiftStart, c.ShiftEnd); err != nil {
			return fmt.Errorf("PutConfig: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_config_shifts WHERE config_id = ?;`, c.ID); err != nil {
			return fmt.Errorf("PutConfig clear shifts: %w", err)
		}
		for _, cs := range shifts {
			if cs.ID == "" {
				cs.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO schedule_config_shifts(id, config_id, config_name, config_shift_start, config_shift_end)
VALUES (?, ?, ?, ?, ?);`,
				cs.ID, c.ID, cs.ConfigName, cs.ConfigShiftStart, cs.ConfigShiftEnd); err != nil {
				return fmt.Errorf("PutConfig shift %s: %w", cs.ConfigName, err)
			}
		}
		return nil
	})
}
