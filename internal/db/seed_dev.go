package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Now anchors the seeded schedule and terminal events. Defaults to time.Now.
	Now time.Time
	// Location is the wall-clock zone the terminals record in. Defaults to UTC.
	Location *time.Location
	// Days of schedule and events to seed, ending today. Defaults to 3.
	Days int
}

type devUser struct {
	id, legacy, branch, dept string
	active                   bool
}

var devUsers = []devUser{
	{"user-ana", "501", "branch-hq", "dept-ops", true},
	{"user-ben", "502", "branch-hq", "dept-ops", true},
	{"user-cho", "503", "branch-east", "dept-night", true},
	{"user-dev", "504", "branch-east", "dept-ops", false},
}

// SeedDev writes a small, self-consistent data set: three terminals, four
// users, approved day and night schedules, and terminal events that match
// them (plus one missing check-out). Existing rows are left in place.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	if opt.Days <= 0 {
		opt.Days = 3
	}
	nowMs := opt.Now.UTC().UnixMilli()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range []struct {
		serial, name string
		extract      int
	}{
		{"DS-K1T341-0001", "Main Entrance", 1},
		{"DS-K1T341-0002", "", 1},
		{"DS-K1T341-0099", "Car Park Barrier", 0},
	} {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO device_configs(serial_no, device_name, extract_required, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(serial_no) DO UPDATE SET
  device_name      = excluded.device_name,
  extract_required = excluded.extract_required,
  updated_at_ms    = excluded.updated_at_ms;`,
			d.serial, d.name, d.extract, nowMs, nowMs); err != nil {
			return fmt.Errorf("seed device %s: %w", d.serial, err)
		}
	}

	for _, u := range devUsers {
		active := 0
		if u.active {
			active = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO users(user_id, employee_id, is_active) VALUES (?, ?, ?);`,
			u.id, u.legacy, active); err != nil {
			return fmt.Errorf("seed user %s: %w", u.id, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO user_org_units(user_id, kind, unit_id) VALUES (?, 'branch', ?), (?, 'department', ?);`,
			u.id, u.branch, u.id, u.dept); err != nil {
			return fmt.Errorf("seed org units %s: %w", u.id, err)
		}
	}

	// Night template with explicit check windows.
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO schedule_configs(config_id, name, shift_start, shift_end)
VALUES ('cfg-night', 'Night', '22:00', '06:00');`); err != nil {
		return fmt.Errorf("seed schedule config: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO schedule_config_shifts(id, config_id, config_name, config_shift_start, config_shift_end)
VALUES ('cfg-night-in', 'cfg-night', 'validCheckIn', '20:30', '23:30'),
       ('cfg-night-out', 'cfg-night', 'validCheckOut', '05:00', '09:00');`); err != nil {
		return fmt.Errorf("seed config shifts: %w", err)
	}

	for _, u := range devUsers {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO schedules(schedule_id, user_id, status, created_by_request)
VALUES (?, ?, 'Approved', 0);`, "sched-"+u.id, u.id); err != nil {
			return fmt.Errorf("seed schedule %s: %w", u.id, err)
		}
	}

	y, m, d := opt.Now.In(opt.Location).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, opt.Location)

	wall := func(day time.Time, h, min int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, min, 0, 0, opt.Location)
	}

	for i := opt.Days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format("20060102")

		for _, u := range devUsers {
			var start, end time.Time
			cfg := any(nil)
			if u.dept == "dept-night" {
				start, end = wall(day, 22, 0), wall(day.AddDate(0, 0, 1), 6, 0)
				cfg = "cfg-night"
			} else {
				start, end = wall(day, 8, 0), wall(day, 17, 0)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO schedule_shifts(shift_id, schedule_id, config_id, shift_start_ms, shift_end_ms)
VALUES (?, ?, ?, ?, ?);`,
				"shift-"+u.id+"-"+key, "sched-"+u.id, cfg, start.UTC().UnixMilli(), end.UTC().UnixMilli()); err != nil {
				return fmt.Errorf("seed schedule shift %s: %w", u.id, err)
			}
		}

		events := []struct {
			legacy string
			at     time.Time
			serial string
			name   string
		}{
			{"501", wall(day, 7, 52), "DS-K1T341-0001", "terminal-a"},
			{"501", wall(day, 12, 3), "DS-K1T341-0001", "terminal-a"},
			{"501", wall(day, 17, 9), "DS-K1T341-0002", "terminal-b"},
			{"502", wall(day, 8, 14), "DS-K1T341-0002", "terminal-b"},
			{"503", wall(day, 21, 47), "DS-K1T341-0001", "terminal-a"},
			{"503", wall(day.AddDate(0, 0, 1), 6, 4), "DS-K1T341-0001", "terminal-a"},
			{"502", wall(day, 8, 20), "DS-K1T341-0099", "barrier"},
		}
		for _, e := range events {
			// Future events are not seeded; the terminal could not have seen them.
			if e.at.After(opt.Now) {
				continue
			}
			var n int
			if err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM auth_logs WHERE ID = ? AND authDateTime = ?;`,
				e.legacy, e.at.Format(time.DateTime)).Scan(&n); err != nil {
				return fmt.Errorf("seed auth_logs lookup: %w", err)
			}
			if n > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO auth_logs(ID, authDateTime, deviceSerialNo, deviceName) VALUES (?, ?, ?, ?);`,
				e.legacy, e.at.Format(time.DateTime), e.serial, e.name); err != nil {
				return fmt.Errorf("seed auth_logs: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	return nil
}
