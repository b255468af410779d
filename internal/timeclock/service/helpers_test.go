package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/lock"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store/memory"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// All fixtures run in a fixed UTC+8 zone so that day boundaries differ
// from UTC.
var loc = time.FixedZone("UTC+8", 8*3600)

func date(t *testing.T, s string) types.Date {
	t.Helper()
	d, err := types.ParseDate(s)
	require.NoError(t, err)
	return d
}

func tod(t *testing.T, s string) types.TimeOfDay {
	t.Helper()
	v, err := types.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func at(t *testing.T, day, hm string) time.Time {
	t.Helper()
	return tod(t, hm).On(date(t, day), loc)
}

func ev(t *testing.T, id, day, hm string) types.RawEvent {
	t.Helper()
	return types.RawEvent{
		EmployeeID:     types.LegacyID(id),
		AuthTime:       at(t, day, hm),
		DeviceSerialNo: "SN-1",
		DeviceName:     "terminal-raw",
	}
}

type fixture struct {
	dir       *memory.Directory
	devices   *memory.DeviceStore
	schedules *memory.ScheduleStore
	clocks    *memory.TimeclockStore
	source    *memory.EventSource
	locker    *lock.MemoryLocker
	x         *service.TimeclockExtractor
}

// newFixture wires user u1 <-> legacy 501 and an extraction device SN-1.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir: memory.NewDirectory(
			types.User{ID: "u1", LegacyEmployeeID: "501", IsActive: true, BranchIDs: []string{"b1"}},
		),
		devices: memory.NewDeviceStore(
			types.DeviceConfig{SerialNo: "SN-1", DeviceName: "Front door", ExtractRequired: true},
			types.DeviceConfig{SerialNo: "SN-2", ExtractRequired: true},
			types.DeviceConfig{SerialNo: "SN-3", DeviceName: "Warehouse"},
		),
		schedules: memory.NewScheduleStore(),
		clocks:    memory.NewTimeclockStore(),
		source:    memory.NewEventSource(),
		locker:    lock.NewMemoryLocker(),
	}
	f.x = service.NewTimeclockExtractor(service.ExtractorDeps{
		Directory:  f.dir,
		Devices:    f.devices,
		Schedules:  f.schedules,
		Timeclocks: f.clocks,
		Source:     f.source,
		Locker:     f.locker,
		Logger:     zap.NewNop(),
	}, service.ExtractorConfig{Location: loc})
	return f
}

var scheduleSeq int

// schedule adds an approved schedule for userID with one shift per entry of
// hours ("08:00-17:00"). An end earlier than the start lands on the next day.
func (f *fixture) schedule(t *testing.T, userID, day string, hours ...string) {
	t.Helper()
	scheduleSeq++
	sc := types.Schedule{
		ID:     fmt.Sprintf("s%d", scheduleSeq),
		UserID: userID,
		Status: "Approved",
	}
	var shifts []types.ScheduleShift
	for _, h := range hours {
		shifts = append(shifts, shiftRow(t, day, h))
	}
	f.schedules.AddSchedule(sc, shifts...)
}

func shiftRow(t *testing.T, day, hours string) types.ScheduleShift {
	t.Helper()
	require.Len(t, hours, 11, "hours must look like 08:00-17:00")
	start := tod(t, hours[:5])
	end := tod(t, hours[6:])
	d := date(t, day)
	endDay := d
	if types.Overnight(start, end) {
		endDay = d.AddDays(1)
	}
	return types.ScheduleShift{ShiftStart: start.On(d, loc), ShiftEnd: end.On(endDay, loc)}
}

func (f *fixture) run(t *testing.T, start, end string) types.ExtractResult {
	t.Helper()
	res, err := f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: start,
		EndDate:   end,
		UserIDs:   []string{"u1"},
	})
	require.NoError(t, err)
	return res
}

func requireAllValid(t *testing.T, recs []types.ShiftRecord) {
	t.Helper()
	for _, r := range recs {
		require.Truef(t, r.Valid(), "record %s violates active/end invariant: %+v", r.ID, r)
	}
}
