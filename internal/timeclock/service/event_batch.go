package service

import (
	"sort"
	"time"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// EventBatch owns the raw events of a run, grouped per employee and sorted
// by time. Matching never removes events; it marks them consumed so that a
// consumed event is invisible to every later scan of the run.
type EventBatch struct {
	byEmployee map[types.LegacyID]*employeeEvents
}

type employeeEvents struct {
	events   []types.RawEvent
	consumed []bool
}

// NewEventBatch groups and sorts events. Input order does not matter.
func NewEventBatch(events []types.RawEvent) *EventBatch {
	b := &EventBatch{byEmployee: make(map[types.LegacyID]*employeeEvents)}
	for _, e := range events {
		ee, ok := b.byEmployee[e.EmployeeID]
		if !ok {
			ee = &employeeEvents{}
			b.byEmployee[e.EmployeeID] = ee
		}
		ee.events = append(ee.events, e)
	}
	for _, ee := range b.byEmployee {
		sort.SliceStable(ee.events, func(i, j int) bool {
			return ee.events[i].AuthTime.Before(ee.events[j].AuthTime)
		})
		ee.consumed = make([]bool, len(ee.events))
	}
	return b
}

// Events returns the sorted events of one employee, consumed or not.
func (b *EventBatch) Events(id types.LegacyID) []types.RawEvent {
	if ee := b.byEmployee[id]; ee != nil {
		return ee.events
	}
	return nil
}

// Event returns event i of employee id.
func (b *EventBatch) Event(id types.LegacyID, i int) types.RawEvent {
	return b.byEmployee[id].events[i]
}

// FirstIn returns the index of the first unconsumed event inside iv, or -1.
func (b *EventBatch) FirstIn(id types.LegacyID, iv Interval) int {
	return b.first(id, iv.Contains)
}

// FirstAtOrAfter returns the index of the first unconsumed event at or
// after t, or -1.
func (b *EventBatch) FirstAtOrAfter(id types.LegacyID, t time.Time) int {
	return b.first(id, func(at time.Time) bool { return !at.Before(t) })
}

// LastIn returns the index of the last unconsumed event inside iv, or -1.
// It walks the same sorted slice backwards.
func (b *EventBatch) LastIn(id types.LegacyID, iv Interval) int {
	ee := b.byEmployee[id]
	if ee == nil {
		return -1
	}
	for i := len(ee.events) - 1; i >= 0; i-- {
		if !ee.consumed[i] && iv.Contains(ee.events[i].AuthTime) {
			return i
		}
	}
	return -1
}

func (b *EventBatch) first(id types.LegacyID, match func(time.Time) bool) int {
	ee := b.byEmployee[id]
	if ee == nil {
		return -1
	}
	for i, e := range ee.events {
		if !ee.consumed[i] && match(e.AuthTime) {
			return i
		}
	}
	return -1
}

// Consume marks events from..to (inclusive) of employee id as used.
func (b *EventBatch) Consume(id types.LegacyID, from, to int) {
	ee := b.byEmployee[id]
	if ee == nil || from < 0 {
		return
	}
	if to < from {
		to = from
	}
	if to >= len(ee.events) {
		to = len(ee.events) - 1
	}
	for i := from; i <= to; i++ {
		ee.consumed[i] = true
	}
}

func (b *EventBatch) Consumed(id types.LegacyID, i int) bool {
	ee := b.byEmployee[id]
	return ee != nil && i >= 0 && i < len(ee.consumed) && ee.consumed[i]
}

// Remaining counts the unconsumed events of employee id.
func (b *EventBatch) Remaining(id types.LegacyID) int {
	ee := b.byEmployee[id]
	if ee == nil {
		return 0
	}
	n := 0
	for _, c := range ee.consumed {
		if !c {
			n++
		}
	}
	return n
}
