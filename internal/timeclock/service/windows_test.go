package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

func assertInterval(t *testing.T, iv service.Interval, fromDay, fromHM, toDay, toHM string) {
	t.Helper()
	assert.Truef(t, iv.From.Equal(at(t, fromDay, fromHM)), "from: got %s", iv.From)
	assert.Truef(t, iv.To.Equal(at(t, toDay, toHM)), "to: got %s", iv.To)
}

func TestWindows_DefaultDayShift(t *testing.T) {
	w := service.NewWindows(0, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "08:00"), tod(t, "17:00"))
	require.False(t, cfg.Overnight)

	sw := w.For(date(t, "2024-01-10"), cfg)
	assertInterval(t, sw.CheckIn, "2024-01-10", "05:00", "2024-01-10", "11:00")
	assertInterval(t, sw.CheckOut, "2024-01-10", "14:00", "2024-01-10", "20:00")
}

func TestWindows_OvernightEndUsesNextDay(t *testing.T) {
	w := service.NewWindows(0, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "22:00"), tod(t, "06:00"))
	require.True(t, cfg.Overnight)

	sw := w.For(date(t, "2024-01-10"), cfg)
	assertInterval(t, sw.CheckIn, "2024-01-10", "19:00", "2024-01-11", "01:00")
	assertInterval(t, sw.CheckOut, "2024-01-11", "03:00", "2024-01-11", "09:00")
}

func TestWindows_MonthBoundary(t *testing.T) {
	w := service.NewWindows(0, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "22:00"), tod(t, "06:00"))

	sw := w.For(date(t, "2024-01-31"), cfg)
	assertInterval(t, sw.CheckOut, "2024-02-01", "03:00", "2024-02-01", "09:00")
}

func TestWindows_CustomTolerance(t *testing.T) {
	w := service.NewWindows(30*time.Minute, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "08:00"), tod(t, "17:00"))

	sw := w.For(date(t, "2024-01-10"), cfg)
	assertInterval(t, sw.CheckIn, "2024-01-10", "07:30", "2024-01-10", "08:30")
}

func TestWindows_ExtendedCheckIn(t *testing.T) {
	w := service.NewWindows(0, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "22:00"), tod(t, "06:00"))
	cfg.ValidCheckIn = types.NewCheckWindow(tod(t, "21:00"), tod(t, "01:00"))
	require.True(t, cfg.ValidCheckIn.Overnight)

	sw := w.For(date(t, "2024-01-10"), cfg)
	assertInterval(t, sw.CheckIn, "2024-01-10", "21:00", "2024-01-11", "01:00")
}

func TestWindows_ExtendedCheckOutOnOvernightShift(t *testing.T) {
	w := service.NewWindows(0, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "22:00"), tod(t, "06:00"))
	cfg.ValidCheckOut = types.NewCheckWindow(tod(t, "05:00"), tod(t, "08:00"))

	sw := w.For(date(t, "2024-01-10"), cfg)
	assertInterval(t, sw.CheckOut, "2024-01-11", "05:00", "2024-01-11", "08:00")
}

func TestWindows_ExtendedOvernightCheckOut(t *testing.T) {
	w := service.NewWindows(0, loc)
	cfg := types.NewShiftWindowConfig(tod(t, "14:00"), tod(t, "23:30"))
	cfg.ValidCheckOut = types.NewCheckWindow(tod(t, "23:00"), tod(t, "02:00"))

	sw := w.For(date(t, "2024-01-10"), cfg)
	assertInterval(t, sw.CheckOut, "2024-01-10", "23:00", "2024-01-11", "02:00")
}

func TestWindows_AdjacentDefaultWindowsSplitAtMidpoint(t *testing.T) {
	w := service.NewWindows(0, loc)
	day := date(t, "2024-01-10")
	cfgs := []types.ShiftWindowConfig{
		types.NewShiftWindowConfig(tod(t, "08:00"), tod(t, "12:00")),
		types.NewShiftWindowConfig(tod(t, "14:00"), tod(t, "18:00")),
	}

	ws := w.Day(day, cfgs)
	require.Len(t, ws, 2)
	assertInterval(t, ws[0].CheckOut, "2024-01-10", "09:00", "2024-01-10", "13:00")
	assertInterval(t, ws[1].CheckIn, "2024-01-10", "13:00", "2024-01-10", "17:00")
	// Outer bounds are untouched.
	assertInterval(t, ws[0].CheckIn, "2024-01-10", "05:00", "2024-01-10", "11:00")
	assertInterval(t, ws[1].CheckOut, "2024-01-10", "15:00", "2024-01-10", "21:00")
}

func TestWindows_ExtendedWindowsAreNotSplit(t *testing.T) {
	w := service.NewWindows(0, loc)
	day := date(t, "2024-01-10")
	first := types.NewShiftWindowConfig(tod(t, "08:00"), tod(t, "12:00"))
	first.ValidCheckOut = types.NewCheckWindow(tod(t, "11:00"), tod(t, "15:00"))
	second := types.NewShiftWindowConfig(tod(t, "14:00"), tod(t, "18:00"))

	ws := w.Day(day, []types.ShiftWindowConfig{first, second})
	assertInterval(t, ws[0].CheckOut, "2024-01-10", "11:00", "2024-01-10", "15:00")
	assertInterval(t, ws[1].CheckIn, "2024-01-10", "11:00", "2024-01-10", "17:00")
}

func TestInterval_ContainsIsInclusive(t *testing.T) {
	iv := service.Interval{From: at(t, "2024-01-10", "08:00"), To: at(t, "2024-01-10", "09:00")}
	assert.True(t, iv.Contains(at(t, "2024-01-10", "08:00")))
	assert.True(t, iv.Contains(at(t, "2024-01-10", "09:00")))
	assert.False(t, iv.Contains(at(t, "2024-01-10", "09:01")))
}

func TestWindows_NightThenMorningSplitAcrossDays(t *testing.T) {
	w := service.NewWindows(0, loc)
	night := types.NewShiftWindowConfig(tod(t, "22:00"), tod(t, "06:00"))
	morning := types.NewShiftWindowConfig(tod(t, "08:00"), tod(t, "16:00"))
	cfgs := map[types.Date][]types.ShiftWindowConfig{
		date(t, "2024-01-10"): {night},
		date(t, "2024-01-11"): {morning},
	}

	perDay := w.Days([]types.Date{date(t, "2024-01-10"), date(t, "2024-01-11")},
		func(d types.Date) []types.ShiftWindowConfig { return cfgs[d] })

	require.Len(t, perDay, 2)
	assertInterval(t, perDay[0][0].CheckOut, "2024-01-11", "03:00", "2024-01-11", "07:00")
	assertInterval(t, perDay[1][0].CheckIn, "2024-01-11", "07:00", "2024-01-11", "11:00")
}

func TestWindows_NonConsecutiveDaysAreNotSplit(t *testing.T) {
	w := service.NewWindows(0, loc)
	night := types.NewShiftWindowConfig(tod(t, "22:00"), tod(t, "06:00"))
	morning := types.NewShiftWindowConfig(tod(t, "08:00"), tod(t, "16:00"))
	cfgs := map[types.Date][]types.ShiftWindowConfig{
		date(t, "2024-01-10"): {night},
		date(t, "2024-01-12"): {morning},
	}

	perDay := w.Days([]types.Date{date(t, "2024-01-10"), date(t, "2024-01-12")},
		func(d types.Date) []types.ShiftWindowConfig { return cfgs[d] })

	assertInterval(t, perDay[0][0].CheckOut, "2024-01-11", "03:00", "2024-01-11", "09:00")
	assertInterval(t, perDay[1][0].CheckIn, "2024-01-12", "05:00", "2024-01-12", "11:00")
}
