package source_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/timeclock/internal/db"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/source"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

var loc = time.FixedZone("UTC+8", 8*3600)

func openAuthLogs(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:src_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(context.Background(), conn))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func insert(t *testing.T, conn *sql.DB, id, at, serial, name string) {
	t.Helper()
	_, err := conn.Exec(`INSERT INTO auth_logs(ID, authDateTime, deviceSerialNo, deviceName) VALUES (?, ?, ?, ?)`, id, at, serial, name)
	require.NoError(t, err)
}

func wall(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, loc)
}

func newSource(t *testing.T, conn *sql.DB) *source.SQLSource {
	t.Helper()
	s, err := source.New(conn, source.Config{Driver: source.DriverSQLite, Location: loc})
	require.NoError(t, err)
	return s
}

func TestSQLSource_QueryEvents_FiltersAndOrders(t *testing.T) {
	conn := openAuthLogs(t)
	insert(t, conn, "502", "2024-01-10 08:10:00", "SN-1", "a")
	insert(t, conn, "501", "2024-01-10 17:05:00", "SN-2", "b")
	insert(t, conn, "501", "2024-01-10 07:55:00", "SN-1", "a")
	insert(t, conn, "501", "2024-01-09 23:59:59", "SN-1", "a") // before range
	insert(t, conn, "501", "2024-01-11 00:00:00", "SN-1", "a") // at exclusive upper bound
	insert(t, conn, "501", "2024-01-10 09:00:00", "SN-9", "x") // device not requested
	insert(t, conn, "503", "2024-01-10 09:00:00", "SN-1", "a") // id not requested

	got, err := newSource(t, conn).QueryEvents(context.Background(), store.EventQuery{
		LegacyIDs:     []types.LegacyID{"501", "502"},
		DeviceSerials: []string{"SN-1", "SN-2"},
		From:          wall(2024, 1, 10, 0, 0),
		To:            wall(2024, 1, 11, 0, 0),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, types.LegacyID("501"), got[0].EmployeeID)
	assert.True(t, got[0].AuthTime.Equal(wall(2024, 1, 10, 7, 55)), "wall clock is read in the configured zone: %s", got[0].AuthTime)
	assert.Equal(t, "SN-1", got[0].DeviceSerialNo)
	assert.True(t, got[1].AuthTime.Equal(wall(2024, 1, 10, 17, 5)))
	assert.Equal(t, types.LegacyID("502"), got[2].EmployeeID)
}

func TestSQLSource_QueryEvents_NilDevicesMeansAll(t *testing.T) {
	conn := openAuthLogs(t)
	insert(t, conn, "501", "2024-01-10 07:55:00", "SN-1", "a")
	insert(t, conn, "501", "2024-01-10 09:00:00", "SN-9", "x")
	s := newSource(t, conn)

	q := store.EventQuery{
		LegacyIDs: []types.LegacyID{"501"},
		From:      wall(2024, 1, 10, 0, 0),
		To:        wall(2024, 1, 11, 0, 0),
	}
	all, err := s.QueryEvents(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	q.DeviceSerials = []string{}
	none, err := s.QueryEvents(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLSource_QueryEvents_BoundsAreConvertedToSourceZone(t *testing.T) {
	conn := openAuthLogs(t)
	insert(t, conn, "501", "2024-01-10 07:55:00", "SN-1", "a")

	// 2024-01-09 23:00 UTC is 07:00 on the 10th in UTC+8.
	got, err := newSource(t, conn).QueryEvents(context.Background(), store.EventQuery{
		LegacyIDs: []types.LegacyID{"501"},
		From:      time.Date(2024, 1, 9, 23, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSQLSource_QueryEvents_MatchesZeroPaddedIDs(t *testing.T) {
	conn := openAuthLogs(t)
	insert(t, conn, "0501", "2024-01-10 07:55:00", "SN-1", "a")
	insert(t, conn, " 501", "2024-01-10 12:00:00", "SN-1", "a")
	insert(t, conn, "501", "2024-01-10 17:05:00", "SN-1", "a")
	insert(t, conn, "5010", "2024-01-10 08:00:00", "SN-1", "a")
	insert(t, conn, "badge", "2024-01-10 08:00:00", "SN-1", "a")

	got, err := newSource(t, conn).QueryEvents(context.Background(), store.EventQuery{
		LegacyIDs: []types.LegacyID{"501", "0"},
		From:      wall(2024, 1, 10, 0, 0),
		To:        wall(2024, 1, 11, 0, 0),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, e := range got {
		assert.Equal(t, types.LegacyID("501"), e.EmployeeID)
	}
	assert.True(t, got[0].AuthTime.Equal(wall(2024, 1, 10, 7, 55)))
	assert.True(t, got[2].AuthTime.Equal(wall(2024, 1, 10, 17, 5)))
}

func TestSQLSource_QueryEvents_ChunksLargeIDLists(t *testing.T) {
	conn := openAuthLogs(t)
	insert(t, conn, "5", "2024-01-10 07:55:00", "SN-1", "a")
	insert(t, conn, "2400", "2024-01-10 07:56:00", "SN-1", "a")

	ids := make([]types.LegacyID, 2500)
	for i := range ids {
		ids[i] = types.LegacyID(fmt.Sprint(i))
	}
	got, err := newSource(t, conn).QueryEvents(context.Background(), store.EventQuery{
		LegacyIDs: ids,
		From:      wall(2024, 1, 10, 0, 0),
		To:        wall(2024, 1, 11, 0, 0),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.LegacyID("2400"), got[0].EmployeeID)
}

func TestSQLSource_New_RejectsBadConfig(t *testing.T) {
	conn := openAuthLogs(t)

	_, err := source.New(conn, source.Config{Driver: source.DriverSQLite, Table: "auth_logs; DROP TABLE users"})
	assert.True(t, errors.Is(err, source.ErrBadTable))

	_, err = source.New(conn, source.Config{Driver: "oracle"})
	assert.True(t, errors.Is(err, source.ErrBadDriver))

	_, err = source.New(conn, source.Config{Driver: source.DriverSQLServer, Table: "dbo.auth_logs"})
	assert.NoError(t, err)
}

func TestSQLSource_QueryEvents_ContextCanceled(t *testing.T) {
	conn := openAuthLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSource(t, conn).QueryEvents(ctx, store.EventQuery{
		LegacyIDs: []types.LegacyID{"501"},
		From:      wall(2024, 1, 10, 0, 0),
		To:        wall(2024, 1, 11, 0, 0),
	})
	assert.Error(t, err)
}
