// Package source reads raw authentication events from the terminal vendor's
// relational table. Production is SQL Server; dev and tests use SQLite with
// the same columns.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"

	DefaultTable = "auth_logs"

	// SQL Server rejects statements with more than 2100 parameters.
	maxIDsPerQuery = 1000
)

var (
	ErrBadTable  = errors.New("source: invalid table name")
	ErrBadDriver = errors.New("source: unsupported driver")

	identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

type Config struct {
	Driver string // "sqlserver" | "sqlite"
	DSN    string
	Table  string // may be schema-qualified, e.g. dbo.auth_logs

	// Location is the zone the terminals record wall-clock times in.
	Location *time.Location
}

// dialect holds what differs between the drivers.
type dialect struct {
	placeholder func(n int) string
	timeLayout  string
	// numericID reads the text ID column as an integer so "0501" and "501"
	// compare equal. Rows that do not convert yield NULL or 0 and are
	// dropped again by ParseLegacyID when scanned.
	numericID string
}

var dialects = map[string]dialect{
	DriverSQLServer: {
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		timeLayout:  "2006-01-02T15:04:05.000",
		numericID:   "TRY_CAST(ID AS BIGINT)",
	},
	DriverSQLite: {
		placeholder: func(int) string { return "?" },
		timeLayout:  time.DateTime,
		numericID:   "CAST(ID AS INTEGER)",
	},
}

// SQLSource implements store.EventSource over database/sql.
type SQLSource struct {
	db    *sql.DB
	table string
	d     dialect
	loc   *time.Location
	owned bool
}

// Open opens cfg.DSN with cfg.Driver and pings it.
func Open(ctx context.Context, cfg Config) (*SQLSource, error) {
	if _, ok := dialects[cfg.Driver]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadDriver, cfg.Driver)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("source open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("source ping: %w", err)
	}

	s, err := New(db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(db *sql.DB, cfg Config) (*SQLSource, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadDriver, cfg.Driver)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !identRE.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: %q", ErrBadTable, cfg.Table)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SQLSource{db: db, table: cfg.Table, d: d, loc: cfg.Location}, nil
}

// Close closes the connection if Open created it.
func (s *SQLSource) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// QueryEvents returns events in [q.From, q.To) for the given legacy ids,
// ordered by id then time. Rows whose ID is not a non-negative integer are
// skipped.
func (s *SQLSource) QueryEvents(ctx context.Context, q store.EventQuery) ([]types.RawEvent, error) {
	if len(q.LegacyIDs) == 0 {
		return nil, nil
	}
	if q.DeviceSerials != nil && len(q.DeviceSerials) == 0 {
		return nil, nil
	}

	var out []types.RawEvent
	for start := 0; start < len(q.LegacyIDs); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(q.LegacyIDs))
		chunk, err := s.query(ctx, q.LegacyIDs[start:end], q)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].AuthTime.Before(out[j].AuthTime)
	})
	return out, nil
}

func (s *SQLSource) query(ctx context.Context, ids []types.LegacyID, q store.EventQuery) ([]types.RawEvent, error) {
	var (
		args []any
		sb   strings.Builder
	)
	next := func(v any) string {
		args = append(args, v)
		return s.d.placeholder(len(args))
	}
	list := func(vals []any) string {
		ph := make([]string, len(vals))
		for i, v := range vals {
			ph[i] = next(v)
		}
		return strings.Join(ph, ", ")
	}

	nums := make([]any, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(string(id), 10, 64)
		if err != nil || n < 0 {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return nil, nil
	}
	serials := make([]any, len(q.DeviceSerials))
	for i, sn := range q.DeviceSerials {
		serials[i] = sn
	}

	fmt.Fprintf(&sb, "SELECT ID, authDateTime, deviceSerialNo, deviceName FROM %s WHERE authDateTime >= %s AND authDateTime < %s AND %s IN (%s)",
		s.table,
		next(q.From.In(s.loc).Format(s.d.timeLayout)),
		next(q.To.In(s.loc).Format(s.d.timeLayout)),
		s.d.numericID,
		list(nums),
	)
	if q.DeviceSerials != nil {
		fmt.Fprintf(&sb, " AND deviceSerialNo IN (%s)", list(serials))
	}
	sb.WriteString(" ORDER BY ID, authDateTime")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []types.RawEvent
	for rows.Next() {
		var (
			rawID        string
			rawTime      any
			serial, name sql.NullString
		)
		if err := rows.Scan(&rawID, &rawTime, &serial, &name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		id, ok := types.ParseLegacyID(rawID)
		if !ok {
			continue
		}
		at, err := s.wallClock(rawTime)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", rawID, err)
		}
		out = append(out, types.RawEvent{
			EmployeeID:     id,
			AuthTime:       at,
			DeviceSerialNo: serial.String,
			DeviceName:     name.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", s.table, err)
	}
	return out, nil
}

var textLayouts = []string{
	time.DateTime,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// wallClock reads an authDateTime value as a wall-clock time in s.loc. Any
// zone the driver attached is discarded.
func (s *SQLSource) wallClock(v any) (time.Time, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		return s.parseText(x)
	case []byte:
		return s.parseText(string(x))
	default:
		return time.Time{}, fmt.Errorf("unsupported authDateTime type %T", v)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), s.loc), nil
}

func (s *SQLSource) parseText(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), s.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable authDateTime %q", v)
}
