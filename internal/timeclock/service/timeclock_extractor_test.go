package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/lock"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Single simple shift
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_ClosedShiftFromTwoEvents(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Add(
		ev(t, "501", "2024-01-10", "17:10"),
		ev(t, "501", "2024-01-10", "07:55"),
	)

	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Created, 1)
	rec := res.Created[0]
	assert.Equal(t, "u1", rec.UserID)
	assert.True(t, rec.ShiftStart.Equal(at(t, "2024-01-10", "07:55")))
	require.NotNil(t, rec.ShiftEnd)
	assert.True(t, rec.ShiftEnd.Equal(at(t, "2024-01-10", "17:10")))
	assert.False(t, rec.ShiftActive)
	assert.Equal(t, "Front door", rec.InDevice)
	assert.Equal(t, types.DeviceTypeFaceTerminal, rec.InDeviceType)
	assert.Equal(t, "Front door", rec.OutDevice)
	assert.Equal(t, types.DeviceTypeFaceTerminal, rec.OutDeviceType)
	assert.NotEmpty(t, rec.ID)
	requireAllValid(t, f.clocks.All())
}

func TestExtract_OpenShiftThenLaterRunClosesIt(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Add(ev(t, "501", "2024-01-10", "07:55"))

	first := f.run(t, "2024-01-10", "2024-01-10")
	require.Len(t, first.Created, 1)
	assert.True(t, first.Created[0].ShiftActive)
	assert.Nil(t, first.Created[0].ShiftEnd)
	assert.Empty(t, first.Created[0].OutDevice)

	f.source.Add(ev(t, "501", "2024-01-10", "17:10"))
	second := f.run(t, "2024-01-10", "2024-01-10")

	assert.Empty(t, second.Created, "the closing run must not create a duplicate")
	require.Len(t, second.Closed, 1)
	assert.Equal(t, first.Created[0].ID, second.Closed[0].ID)

	all := f.clocks.All()
	require.Len(t, all, 1)
	assert.False(t, all[0].ShiftActive)
	require.NotNil(t, all[0].ShiftEnd)
	assert.True(t, all[0].ShiftEnd.Equal(at(t, "2024-01-10", "17:10")))
	assert.Equal(t, "Front door", all[0].OutDevice)
	requireAllValid(t, all)
}

func TestExtract_IdempotentOnRerun(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.schedule(t, "u1", "2024-01-11", "08:00-17:00")
	f.source.Add(
		ev(t, "501", "2024-01-10", "07:55"),
		ev(t, "501", "2024-01-10", "17:10"),
		ev(t, "501", "2024-01-11", "08:02"),
		ev(t, "501", "2024-01-11", "16:58"),
	)

	first := f.run(t, "2024-01-10", "2024-01-11")
	require.Len(t, first.Created, 2)
	before := f.clocks.All()

	second := f.run(t, "2024-01-10", "2024-01-11")
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Closed)
	assert.Equal(t, 2, second.Dropped)
	assert.Equal(t, before, f.clocks.All())
}

func TestExtract_EventOutsideWindowsProducesNothing(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Add(ev(t, "501", "2024-01-10", "04:30"))

	res := f.run(t, "2024-01-10", "2024-01-10")
	assert.Empty(t, res.Created)
	assert.Empty(t, f.clocks.All())
}

func TestExtract_NoScheduleForDaySkips(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Add(
		ev(t, "501", "2024-01-12", "07:55"),
		ev(t, "501", "2024-01-12", "17:10"),
	)

	res := f.run(t, "2024-01-10", "2024-01-12")
	assert.Empty(t, res.Created)
}

// ═══════════════════════════════════════════════════════════════════════════
// Overnight shifts
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_OvernightShiftEndsNextDay(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "22:00-06:00")
	f.source.Add(
		ev(t, "501", "2024-01-10", "21:50"),
		ev(t, "501", "2024-01-11", "06:10"),
	)

	// Only the 10th is requested; the check-out on the 11th is still read.
	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Created, 1)
	rec := res.Created[0]
	assert.True(t, rec.ShiftStart.Equal(at(t, "2024-01-10", "21:50")))
	require.NotNil(t, rec.ShiftEnd)
	assert.True(t, rec.ShiftEnd.Equal(at(t, "2024-01-11", "06:10")))
}

func TestExtract_OvernightCheckoutNotReusedAsNextDayStart(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "22:00-06:00")
	f.schedule(t, "u1", "2024-01-11", "08:00-17:00")
	f.source.Add(
		ev(t, "501", "2024-01-10", "21:50"),
		ev(t, "501", "2024-01-11", "06:10"),
		ev(t, "501", "2024-01-11", "16:55"),
	)

	res := f.run(t, "2024-01-10", "2024-01-11")

	// The 06:10 event closes the night shift. The 08:00 shift's check-in
	// window is cut to [07:00, 11:00] and holds nothing.
	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].ShiftStart.Equal(at(t, "2024-01-10", "21:50")))
}

func TestExtract_NightShiftThenEarlyShiftNextDay(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "22:00-06:00")
	f.schedule(t, "u1", "2024-01-11", "08:00-16:00")
	f.source.Add(
		ev(t, "501", "2024-01-10", "21:55"),
		ev(t, "501", "2024-01-11", "06:02"),
		ev(t, "501", "2024-01-11", "07:58"),
		ev(t, "501", "2024-01-11", "16:05"),
	)

	res := f.run(t, "2024-01-10", "2024-01-11")

	require.Len(t, res.Created, 2)
	night, morning := res.Created[0], res.Created[1]
	if morning.ShiftStart.Before(night.ShiftStart) {
		night, morning = morning, night
	}

	assert.True(t, night.ShiftStart.Equal(at(t, "2024-01-10", "21:55")))
	require.NotNil(t, night.ShiftEnd)
	assert.True(t, night.ShiftEnd.Equal(at(t, "2024-01-11", "06:02")))

	assert.True(t, morning.ShiftStart.Equal(at(t, "2024-01-11", "07:58")))
	require.NotNil(t, morning.ShiftEnd)
	assert.True(t, morning.ShiftEnd.Equal(at(t, "2024-01-11", "16:05")))
	requireAllValid(t, res.Created)
}

func TestExtract_OpenNightShiftDoesNotTakeNextMorningCheckIn(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "22:00-06:00")
	f.schedule(t, "u1", "2024-01-11", "08:00-16:00")
	open, err := f.clocks.InsertShifts(context.Background(), []types.ShiftRecord{{
		UserID:      "u1",
		ShiftStart:  at(t, "2024-01-10", "21:55"),
		ShiftActive: true,
	}})
	require.NoError(t, err)
	f.source.Add(
		ev(t, "501", "2024-01-11", "06:02"),
		ev(t, "501", "2024-01-11", "07:58"),
		ev(t, "501", "2024-01-11", "16:05"),
	)

	res := f.run(t, "2024-01-10", "2024-01-11")

	require.Len(t, res.Closed, 1)
	assert.Equal(t, open[0].ID, res.Closed[0].ID)
	assert.True(t, res.Closed[0].ShiftEnd.Equal(at(t, "2024-01-11", "06:02")))

	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].ShiftStart.Equal(at(t, "2024-01-11", "07:58")))
}

// ═══════════════════════════════════════════════════════════════════════════
// Multi-config days
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_TwoShiftsOneDayStaySeparate(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "14:00-18:00", "08:00-12:00")
	f.source.Add(
		ev(t, "501", "2024-01-10", "07:58"),
		ev(t, "501", "2024-01-10", "12:03"),
		ev(t, "501", "2024-01-10", "13:57"),
		ev(t, "501", "2024-01-10", "18:05"),
	)

	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Created, 2)
	morning, afternoon := res.Created[0], res.Created[1]

	assert.True(t, morning.ShiftStart.Equal(at(t, "2024-01-10", "07:58")))
	require.NotNil(t, morning.ShiftEnd)
	assert.True(t, morning.ShiftEnd.Equal(at(t, "2024-01-10", "12:03")))

	assert.True(t, afternoon.ShiftStart.Equal(at(t, "2024-01-10", "13:57")))
	require.NotNil(t, afternoon.ShiftEnd)
	assert.True(t, afternoon.ShiftEnd.Equal(at(t, "2024-01-10", "18:05")))
	requireAllValid(t, res.Created)
}

// ═══════════════════════════════════════════════════════════════════════════
// Unfinished shifts
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_UnfinishedShiftConsumesEventsUpToItsEnd(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "09:00-17:00")
	open, err := f.clocks.InsertShifts(context.Background(), []types.ShiftRecord{{
		UserID:       "u1",
		ShiftStart:   at(t, "2024-01-10", "09:00"),
		ShiftActive:  true,
		InDevice:     "Front door",
		InDeviceType: types.DeviceTypeFaceTerminal,
	}})
	require.NoError(t, err)

	// 12:00 sits inside the default check-in window [06:00, 12:00] and would
	// open a second record if it were not consumed by the closure.
	f.source.Add(
		ev(t, "501", "2024-01-10", "12:00"),
		ev(t, "501", "2024-01-10", "17:30"),
	)

	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Closed, 1)
	assert.Equal(t, open[0].ID, res.Closed[0].ID)
	assert.True(t, res.Closed[0].ShiftEnd.Equal(at(t, "2024-01-10", "17:30")))
	assert.Empty(t, res.Created)

	all := f.clocks.All()
	require.Len(t, all, 1)
	assert.False(t, all[0].ShiftActive)
	requireAllValid(t, all)
}

func TestExtract_UnfinishedShiftClosedBySecondConfigOfDay(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-12:00", "13:00-17:00")
	open, err := f.clocks.InsertShifts(context.Background(), []types.ShiftRecord{{
		UserID:      "u1",
		ShiftStart:  at(t, "2024-01-10", "07:55"),
		ShiftActive: true,
	}})
	require.NoError(t, err)

	// Morning check-out window is [09:00, 12:30] and holds nothing. 13:05
	// lies in the afternoon check-in window and must not open a new record
	// once the closure has consumed it.
	f.source.Add(
		ev(t, "501", "2024-01-10", "07:55"),
		ev(t, "501", "2024-01-10", "13:05"),
		ev(t, "501", "2024-01-10", "16:58"),
	)

	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Closed, 1)
	assert.Equal(t, open[0].ID, res.Closed[0].ID)
	assert.True(t, res.Closed[0].ShiftEnd.Equal(at(t, "2024-01-10", "16:58")))
	assert.Empty(t, res.Created)
	assert.Zero(t, res.Dropped)

	all := f.clocks.All()
	require.Len(t, all, 1)
	assert.False(t, all[0].ShiftActive)
	requireAllValid(t, all)
}

func TestExtract_UnfinishedShiftWithNoMatchingConfigStaysOpen(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-12:00", "13:00-17:00")
	open, err := f.clocks.InsertShifts(context.Background(), []types.ShiftRecord{{
		UserID:      "u1",
		ShiftStart:  at(t, "2024-01-10", "07:55"),
		ShiftActive: true,
	}})
	require.NoError(t, err)
	f.source.Add(ev(t, "501", "2024-01-10", "21:30"))

	res := f.run(t, "2024-01-10", "2024-01-10")

	assert.Empty(t, res.Closed)
	assert.Empty(t, res.Created)
	all := f.clocks.All()
	require.Len(t, all, 1)
	assert.Equal(t, open[0].ID, all[0].ID)
	assert.True(t, all[0].ShiftActive)
}

func TestExtract_UnfinishedShiftWithoutScheduleStaysOpen(t *testing.T) {
	f := newFixture(t)
	_, err := f.clocks.InsertShifts(context.Background(), []types.ShiftRecord{{
		UserID:      "u1",
		ShiftStart:  at(t, "2024-01-09", "09:00"),
		ShiftActive: true,
	}})
	require.NoError(t, err)
	f.source.Add(ev(t, "501", "2024-01-09", "17:30"))

	res := f.run(t, "2024-01-09", "2024-01-09")

	assert.Empty(t, res.Closed)
	all := f.clocks.All()
	require.Len(t, all, 1)
	assert.True(t, all[0].ShiftActive)
}

func TestExtract_ClosePersistenceFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "09:00-17:00")
	_, err := f.clocks.InsertShifts(context.Background(), []types.ShiftRecord{{
		UserID:      "u1",
		ShiftStart:  at(t, "2024-01-10", "09:00"),
		ShiftActive: true,
	}})
	require.NoError(t, err)
	f.source.Add(ev(t, "501", "2024-01-10", "17:30"))
	f.clocks.FailClose = errors.New("bulk write rejected")

	_, err = f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: "2024-01-10", EndDate: "2024-01-10", UserIDs: []string{"u1"},
	})
	require.ErrorIs(t, err, service.ErrPersistence)
}

// ═══════════════════════════════════════════════════════════════════════════
// Templates with explicit sub-windows
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_TemplateSubWindows(t *testing.T) {
	f := newFixture(t)
	f.schedules.AddConfig(
		types.ScheduleConfig{ID: "cfg-day", Name: "Day", ShiftStart: "08:00", ShiftEnd: "17:00"},
		types.ConfigShift{ID: "cs1", ConfigName: "validcheckin", ConfigShiftStart: "07:00", ConfigShiftEnd: "09:00"},
		types.ConfigShift{ID: "cs2", ConfigName: "ValidCheckOut", ConfigShiftStart: "16:00", ConfigShiftEnd: "19:00"},
	)
	row := shiftRow(t, "2024-01-10", "10:00-11:00")
	row.ScheduleConfigID = "cfg-day"
	f.schedules.AddSchedule(types.Schedule{ID: "tmpl", UserID: "u1", Status: "approved"}, row)

	f.source.Add(
		ev(t, "501", "2024-01-10", "06:50"),
		ev(t, "501", "2024-01-10", "07:10"),
		ev(t, "501", "2024-01-10", "18:30"),
		ev(t, "501", "2024-01-10", "19:30"),
	)

	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].ShiftStart.Equal(at(t, "2024-01-10", "07:10")))
	require.NotNil(t, res.Created[0].ShiftEnd)
	assert.True(t, res.Created[0].ShiftEnd.Equal(at(t, "2024-01-10", "18:30")))
}

// ═══════════════════════════════════════════════════════════════════════════
// Schedule eligibility and devices
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_IgnoresUnapprovedAndRequestSchedules(t *testing.T) {
	f := newFixture(t)
	f.schedules.AddSchedule(types.Schedule{ID: "p", UserID: "u1", Status: "Pending"},
		shiftRow(t, "2024-01-10", "08:00-17:00"))
	f.schedules.AddSchedule(types.Schedule{ID: "r", UserID: "u1", Status: "Approved", CreatedByRequest: true},
		shiftRow(t, "2024-01-11", "08:00-17:00"))
	f.source.Add(
		ev(t, "501", "2024-01-10", "07:55"),
		ev(t, "501", "2024-01-11", "07:55"),
	)

	res := f.run(t, "2024-01-10", "2024-01-11")
	assert.Empty(t, res.Created)
}

func TestExtract_DeviceNameFallsBackToEventName(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	in := ev(t, "501", "2024-01-10", "07:55")
	in.DeviceSerialNo = "SN-2"
	in.DeviceName = "Side gate"
	f.source.Add(in, ev(t, "501", "2024-01-10", "17:10"))

	res := f.run(t, "2024-01-10", "2024-01-10")

	require.Len(t, res.Created, 1)
	assert.Equal(t, "Side gate", res.Created[0].InDevice)
	assert.Equal(t, "Front door", res.Created[0].OutDevice)
}

func TestExtract_EventsFromNonExtractDevicesIgnored(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	e := ev(t, "501", "2024-01-10", "07:55")
	e.DeviceSerialNo = "SN-3"
	f.source.Add(e)

	res := f.run(t, "2024-01-10", "2024-01-10")
	assert.Empty(t, res.Created)
}

// ═══════════════════════════════════════════════════════════════════════════
// Scope and errors
// ═══════════════════════════════════════════════════════════════════════════

func TestExtract_EmptyScopeIsNotAnError(t *testing.T) {
	f := newFixture(t)
	res, err := f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: "2024-01-10", EndDate: "2024-01-10",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Closed)
}

func TestExtract_ExtractAll(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Add(ev(t, "501", "2024-01-10", "07:55"))

	res, err := f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: "2024-01-10", EndDate: "2024-01-10", ExtractAll: true,
	})
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
}

func TestExtract_SourceFailureIsConnectionError(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Err = errors.New("login failed for user")

	_, err := f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: "2024-01-10", EndDate: "2024-01-10", UserIDs: []string{"u1"},
	})
	require.ErrorIs(t, err, service.ErrSourceUnavailable)
	assert.Empty(t, f.clocks.All())
}

func TestExtract_InsertFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "u1", "2024-01-10", "08:00-17:00")
	f.source.Add(ev(t, "501", "2024-01-10", "07:55"))
	f.clocks.FailInsert = errors.New("write concern")

	_, err := f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: "2024-01-10", EndDate: "2024-01-10", UserIDs: []string{"u1"},
	})
	require.ErrorIs(t, err, service.ErrPersistence)
}

func TestExtract_LockedScopeFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.locker.Acquire(context.Background(), lock.UserKey("u1"), time.Minute)
	require.NoError(t, err)

	_, err = f.x.Extract(context.Background(), types.ExtractRequest{
		StartDate: "2024-01-10", EndDate: "2024-01-10", UserIDs: []string{"u1"},
	})
	require.ErrorIs(t, err, service.ErrScopeLocked)
}

func TestExtract_ReleasesLocksAfterRun(t *testing.T) {
	f := newFixture(t)
	f.run(t, "2024-01-10", "2024-01-10")

	rel, err := f.locker.Acquire(context.Background(), lock.UserKey("u1"), time.Minute)
	require.NoError(t, err)
	_ = rel(context.Background())
}

func TestExtract_RejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.x.Extract(ctx, types.ExtractRequest{StartDate: "2024-01-11", EndDate: "2024-01-10", ExtractAll: true})
	assert.ErrorIs(t, err, service.ErrInvalidRange)

	_, err = f.x.Extract(ctx, types.ExtractRequest{StartDate: "10/01/2024", EndDate: "2024-01-10", ExtractAll: true})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = f.x.Extract(ctx, types.ExtractRequest{EndDate: "2024-01-10"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}
