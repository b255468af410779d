// Package sqlite implements the timeclock stores on modernc.org/sqlite.
// Reads go straight to *sql.DB; every write goes through a db.Worker so each
// batch is one transaction.
package sqlite

import (
	"database/sql"
	"strings"
	"time"
)

// inClause returns "?, ?, ?" for n values and the values as []any.
func inClause(vals []string) (string, []any) {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", "), args
}

func toMs(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func fromNullMs(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMs(ms.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
