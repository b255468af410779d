package service

import (
	"time"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// DefaultTolerance is the half-width of a window derived from a scheduled
// start or end when the template gives no explicit sub-window.
const DefaultTolerance = 3 * time.Hour

// Interval is a closed time range [From, To].
type Interval struct {
	From time.Time
	To   time.Time
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.From) && !t.After(iv.To)
}

// ShiftWindows are the acceptance windows of one config on one day.
type ShiftWindows struct {
	Config   types.ShiftWindowConfig
	CheckIn  Interval
	CheckOut Interval

	// Scheduled instants, used to split adjacent default windows.
	scheduledStart time.Time
	scheduledEnd   time.Time
	defaultIn      bool
	defaultOut     bool
}

// Windows computes acceptance windows in a fixed location.
type Windows struct {
	Tolerance time.Duration
	Loc       *time.Location
}

func NewWindows(tolerance time.Duration, loc *time.Location) Windows {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Windows{Tolerance: tolerance, Loc: loc}
}

// For computes the windows of cfg scheduled on day.
func (w Windows) For(day types.Date, cfg types.ShiftWindowConfig) ShiftWindows {
	next := day.AddDays(1)

	endDay := day
	if cfg.Overnight {
		endDay = next
	}

	sw := ShiftWindows{
		Config:         cfg,
		scheduledStart: cfg.ShiftStart.On(day, w.Loc),
		scheduledEnd:   cfg.ShiftEnd.On(endDay, w.Loc),
	}

	if in := cfg.ValidCheckIn; in != nil {
		toDay := day
		if in.Overnight {
			toDay = next
		}
		sw.CheckIn = Interval{From: in.Start.On(day, w.Loc), To: in.End.On(toDay, w.Loc)}
	} else {
		sw.defaultIn = true
		sw.CheckIn = Interval{From: sw.scheduledStart.Add(-w.Tolerance), To: sw.scheduledStart.Add(w.Tolerance)}
	}

	if out := cfg.ValidCheckOut; out != nil {
		if out.Overnight {
			sw.CheckOut = Interval{From: out.Start.On(day, w.Loc), To: out.End.On(next, w.Loc)}
		} else {
			sw.CheckOut = Interval{From: out.Start.On(endDay, w.Loc), To: out.End.On(endDay, w.Loc)}
		}
	} else {
		sw.defaultOut = true
		sw.CheckOut = Interval{From: sw.scheduledEnd.Add(-w.Tolerance), To: sw.scheduledEnd.Add(w.Tolerance)}
	}

	return sw
}

// Day computes the windows of every config of one day, in index order.
// When one config's default check-out window runs into the next config's
// default check-in window, both are cut at the midpoint between the
// scheduled end and the following scheduled start, so events of two
// back-to-back shifts never pair up across the gap.
func (w Windows) Day(day types.Date, cfgs []types.ShiftWindowConfig) []ShiftWindows {
	out := make([]ShiftWindows, len(cfgs))
	for i, cfg := range cfgs {
		out[i] = w.For(day, cfg)
	}
	for i := 0; i+1 < len(out); i++ {
		splitAdjacent(&out[i], &out[i+1])
	}
	return out
}

// Days computes the windows of each day in order and applies the same
// midpoint cut between the last config of one day and the first config of
// the following day, so an overnight check-out never reaches the next
// morning's check-in.
func (w Windows) Days(days []types.Date, configs func(types.Date) []types.ShiftWindowConfig) [][]ShiftWindows {
	out := make([][]ShiftWindows, len(days))
	for i, day := range days {
		out[i] = w.Day(day, configs(day))
	}
	for i := 0; i+1 < len(out); i++ {
		if len(out[i]) == 0 || len(out[i+1]) == 0 {
			continue
		}
		if days[i+1] != days[i].AddDays(1) {
			continue
		}
		splitAdjacent(&out[i][len(out[i])-1], &out[i+1][0])
	}
	return out
}

func splitAdjacent(cur, nxt *ShiftWindows) {
	if !cur.defaultOut || !nxt.defaultIn {
		return
	}
	gap := nxt.scheduledStart.Sub(cur.scheduledEnd)
	if gap < 0 {
		return
	}
	mid := cur.scheduledEnd.Add(gap / 2)
	if cur.CheckOut.To.After(mid) {
		cur.CheckOut.To = mid
	}
	if nxt.CheckIn.From.Before(mid) {
		nxt.CheckIn.From = mid
	}
}
