package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// DeviceStore lists configured terminals.
type DeviceStore interface {
	ListDevices(ctx context.Context) ([]types.DeviceConfig, error)
}

// ScheduleStore reads schedules, their shift rows and templates.
type ScheduleStore interface {
	// ApprovedSchedules returns the eligible schedules of the given users.
	ApprovedSchedules(ctx context.Context, userIDs []string) ([]types.Schedule, error)
	// ScheduleShifts returns shift rows of the given schedules whose start
	// lies in [from, to).
	ScheduleShifts(ctx context.Context, scheduleIDs []string, from, to time.Time) ([]types.ScheduleShift, error)
	ScheduleConfigs(ctx context.Context, ids []string) ([]types.ScheduleConfig, error)
	ConfigShifts(ctx context.Context, scheduleConfigIDs []string) ([]types.ConfigShift, error)
}

// TimeclockStore persists shift records.
type TimeclockStore interface {
	OpenShifts(ctx context.Context, userIDs []string) ([]types.ShiftRecord, error)
	// ShiftsInRange returns records whose start or end lies in [from, to).
	ShiftsInRange(ctx context.Context, userIDs []string, from, to time.Time) ([]types.ShiftRecord, error)
	// InsertShifts writes recs in one batch and returns them with ids set.
	InsertShifts(ctx context.Context, recs []types.ShiftRecord) ([]types.ShiftRecord, error)
	// CloseShifts applies closures in one batch. Records that are already
	// closed are left untouched. It returns the number of records closed.
	CloseShifts(ctx context.Context, closures []types.ShiftClosure) (int, error)
}

// TimeLogStore persists plain time logs.
type TimeLogStore interface {
	TimeLogsInRange(ctx context.Context, userIDs []string, from, to time.Time) ([]types.TimeLog, error)
	InsertTimeLogs(ctx context.Context, logs []types.TimeLog) ([]types.TimeLog, error)
}

// UserFilter narrows a directory lookup. A nil IDs slice means every user.
type UserFilter struct {
	IDs        []string
	ActiveOnly bool
}

// Directory is the identity source.
type Directory interface {
	ResolveUsers(ctx context.Context, filter UserFilter) ([]types.User, error)
	// ResolveOrgMembers returns users belonging to any of the given
	// branches or any of the given departments.
	ResolveOrgMembers(ctx context.Context, branchIDs, departmentIDs []string) ([]types.User, error)
}

// EventQuery selects raw terminal events in [From, To).
// A nil DeviceSerials means no device filter.
type EventQuery struct {
	LegacyIDs     []types.LegacyID
	DeviceSerials []string
	From          time.Time
	To            time.Time
}

// EventSource is the relational raw-event source.
type EventSource interface {
	QueryEvents(ctx context.Context, q EventQuery) ([]types.RawEvent, error)
}
