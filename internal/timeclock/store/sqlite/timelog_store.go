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

type TimeLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTimeLogStore(db *sql.DB, writer *dbpkg.Worker) *TimeLogStore {
	return &TimeLogStore{db: db, writer: writer}
}

func (s *TimeLogStore) TimeLogsInRange(ctx context.Context, userIDs []string, from, to time.Time) ([]types.TimeLog, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(userIDs)
	args = append(args, toMs(from), toMs(to))

	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, timelog_ms, device_serial_no
FROM timelogs
WHERE user_id IN (`+ph+`) AND timelog_ms >= ? AND timelog_ms < ?
ORDER BY user_id, timelog_ms;`, args...)
	if err != nil {
		return nil, fmt.Errorf("TimeLogsInRange query: %w", err)
	}
	defer rows.Close()

	var out []types.TimeLog
	for rows.Next() {
		var (
			l  types.TimeLog
			ms int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &ms, &l.DeviceSerialNo); err != nil {
			return nil, fmt.Errorf("TimeLogsInRange scan: %w", err)
		}
		l.Timelog = fromMs(ms)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TimeLogsInRange rows: %w", err)
	}
	return out, nil
}

func (s *TimeLogStore) InsertTimeLogs(ctx context.Context, logs []types.TimeLog) ([]types.TimeLog, error) {
	if len(logs) == 0 {
		return nil, nil
	}
	out := make([]types.TimeLog, len(logs))
	for i, l := range logs {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		out[i] = l
	}
	nowMs := time.Now().UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, l := range out {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO timelogs(id, user_id, timelog_ms, device_serial_no, created_at_ms)
VALUES (?, ?, ?, ?, ?);`,
				l.ID, l.UserID, toMs(l.Timelog), l.DeviceSerialNo, nowMs); err != nil {
				return fmt.Errorf("InsertTimeLogs %s: %w", l.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
