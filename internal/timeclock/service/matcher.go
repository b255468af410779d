package service

import (
	"time"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// Match holds event indices into one employee's slice of an EventBatch.
// -1 means not found.
type Match struct {
	Start int
	End   int
}

func (m Match) HasStart() bool { return m.Start >= 0 }
func (m Match) HasEnd() bool   { return m.End >= 0 }

type Matcher struct {
	windows Windows
}

func NewMatcher(w Windows) *Matcher {
	return &Matcher{windows: w}
}

func (m *Matcher) Windows() Windows { return m.windows }

// Match runs the start and end scans for one config. With a nil
// knownStart the start is the first unconsumed event in the check-in
// window; otherwise it is the first unconsumed event at or after
// knownStart. The end is the last unconsumed event in the check-out
// window and must be strictly later than the start instant.
func (m *Matcher) Match(b *EventBatch, id types.LegacyID, w ShiftWindows, knownStart *time.Time) Match {
	res := Match{Start: -1, End: -1}

	var startAt time.Time
	if knownStart != nil {
		res.Start = b.FirstAtOrAfter(id, *knownStart)
		startAt = *knownStart
	} else {
		res.Start = b.FirstIn(id, w.CheckIn)
		if res.Start >= 0 {
			startAt = b.Event(id, res.Start).AuthTime
		}
	}
	if res.Start < 0 {
		return res
	}

	end := b.LastIn(id, w.CheckOut)
	if end >= 0 && b.Event(id, end).AuthTime.After(startAt) {
		res.End = end
	}
	return res
}

// MatchDay matches every config of one day in order, consuming the events
// each match covers before the next config is scanned.
func (m *Matcher) MatchDay(b *EventBatch, id types.LegacyID, day types.Date, cfgs []types.ShiftWindowConfig) []Match {
	return m.MatchWindows(b, id, m.windows.Day(day, cfgs))
}

// MatchWindows is MatchDay over windows already computed, for callers that
// cut windows across day boundaries.
func (m *Matcher) MatchWindows(b *EventBatch, id types.LegacyID, wins []ShiftWindows) []Match {
	var out []Match
	for _, w := range wins {
		mt := m.Match(b, id, w, nil)
		if !mt.HasStart() {
			continue
		}
		b.Consume(id, mt.Start, mt.End)
		out = append(out, mt)
	}
	return out
}
