// Package memory holds in-process stores for tests and single-node dev runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func idSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// ── Devices ────────────────────────────────────────────────────────────────

type DeviceStore struct {
	mu      sync.RWMutex
	devices []types.DeviceConfig
}

func NewDeviceStore(devices ...types.DeviceConfig) *DeviceStore {
	return &DeviceStore{devices: append([]types.DeviceConfig(nil), devices...)}
}

func (s *DeviceStore) ListDevices(_ context.Context) ([]types.DeviceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.DeviceConfig(nil), s.devices...), nil
}

// ── Schedules ──────────────────────────────────────────────────────────────

type ScheduleStore struct {
	mu           sync.RWMutex
	schedules    []types.Schedule
	shifts       []types.ScheduleShift
	configs      []types.ScheduleConfig
	configShifts []types.ConfigShift
}

func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{}
}

func (s *ScheduleStore) AddSchedule(sc types.Schedule, shifts ...types.ScheduleShift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, sc)
	for _, sh := range shifts {
		if sh.ScheduleID == "" {
			sh.ScheduleID = sc.ID
		}
		if sh.ID == "" {
			sh.ID = uuid.NewString()
		}
		s.shifts = append(s.shifts, sh)
	}
}

func (s *ScheduleStore) AddConfig(c types.ScheduleConfig, shifts ...types.ConfigShift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append(s.configs, c)
	for _, cs := range shifts {
		if cs.ScheduleConfigID == "" {
			cs.ScheduleConfigID = c.ID
		}
		s.configShifts = append(s.configShifts, cs)
	}
}

func (s *ScheduleStore) ApprovedSchedules(_ context.Context, userIDs []string) ([]types.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := idSet(userIDs)
	var out []types.Schedule
	for _, sc := range s.schedules {
		if _, ok := users[sc.UserID]; ok && sc.Eligible() {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *ScheduleStore) ScheduleShifts(_ context.Context, scheduleIDs []string, from, to time.Time) ([]types.ScheduleShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := idSet(scheduleIDs)
	var out []types.ScheduleShift
	for _, sh := range s.shifts {
		if _, ok := ids[sh.ScheduleID]; ok && inRange(sh.ShiftStart, from, to) {
			out = append(out, sh)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ShiftStart.Before(out[j].ShiftStart) })
	return out, nil
}

func (s *ScheduleStore) ScheduleConfigs(_ context.Context, ids []string) ([]types.ScheduleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(ids)
	var out []types.ScheduleConfig
	for _, c := range s.configs {
		if _, ok := want[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *ScheduleStore) ConfigShifts(_ context.Context, scheduleConfigIDs []string) ([]types.ConfigShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(scheduleConfigIDs)
	var out []types.ConfigShift
	for _, cs := range s.configShifts {
		if _, ok := want[cs.ScheduleConfigID]; ok {
			out = append(out, cs)
		}
	}
	return out, nil
}

// ── Timeclocks ─────────────────────────────────────────────────────────────

type TimeclockStore struct {
	mu      sync.RWMutex
	records []types.ShiftRecord

	// FailInsert / FailClose make the next batch call fail. Test-only.
	FailInsert error
	FailClose  error
}

func NewTimeclockStore(seed ...types.ShiftRecord) *TimeclockStore {
	s := &TimeclockStore{}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.records = append(s.records, r)
	}
	return s
}

func (s *TimeclockStore) OpenShifts(_ context.Context, userIDs []string) ([]types.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := idSet(userIDs)
	var out []types.ShiftRecord
	for _, r := range s.records {
		if _, ok := users[r.UserID]; ok && r.ShiftActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *TimeclockStore) ShiftsInRange(_ context.Context, userIDs []string, from, to time.Time) ([]types.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := idSet(userIDs)
	var out []types.ShiftRecord
	for _, r := range s.records {
		if _, ok := users[r.UserID]; !ok {
			continue
		}
		if inRange(r.ShiftStart, from, to) || (r.ShiftEnd != nil && inRange(*r.ShiftEnd, from, to)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *TimeclockStore) InsertShifts(_ context.Context, recs []types.ShiftRecord) ([]types.ShiftRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailInsert; err != nil {
		s.FailInsert = nil
		return nil, err
	}
	out := make([]types.ShiftRecord, len(recs))
	for i, r := range recs {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		out[i] = r
	}
	s.records = append(s.records, out...)
	return out, nil
}

func (s *TimeclockStore) CloseShifts(_ context.Context, closures []types.ShiftClosure) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailClose; err != nil {
		s.FailClose = nil
		return 0, err
	}
	n := 0
	for _, c := range closures {
		for i := range s.records {
			if s.records[i].ID == c.ID && s.records[i].ShiftActive {
				s.records[i] = c.Apply(s.records[i])
				n++
			}
		}
	}
	return n, nil
}

// All returns a copy of every stored record. Test-only helper.
func (s *TimeclockStore) All() []types.ShiftRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ShiftRecord(nil), s.records...)
}

// ── Time logs ──────────────────────────────────────────────────────────────

type TimeLogStore struct {
	mu   sync.RWMutex
	logs []types.TimeLog
}

func NewTimeLogStore() *TimeLogStore {
	return &TimeLogStore{}
}

func (s *TimeLogStore) TimeLogsInRange(_ context.Context, userIDs []string, from, to time.Time) ([]types.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := idSet(userIDs)
	var out []types.TimeLog
	for _, l := range s.logs {
		if _, ok := users[l.UserID]; ok && inRange(l.Timelog, from, to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *TimeLogStore) InsertTimeLogs(_ context.Context, logs []types.TimeLog) ([]types.TimeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.TimeLog, len(logs))
	for i, l := range logs {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		out[i] = l
	}
	s.logs = append(s.logs, out...)
	return out, nil
}

// All returns a copy of every stored log. Test-only helper.
func (s *TimeLogStore) All() []types.TimeLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.TimeLog(nil), s.logs...)
}

// ── Raw events ─────────────────────────────────────────────────────────────

// EventSource serves raw events from memory, ordered by id then time.
type EventSource struct {
	mu     sync.RWMutex
	events []types.RawEvent

	// Err makes every query fail. Test-only.
	Err error
}

func NewEventSource(events ...types.RawEvent) *EventSource {
	return &EventSource{events: append([]types.RawEvent(nil), events...)}
}

func (s *EventSource) Add(events ...types.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *EventSource) QueryEvents(ctx context.Context, q store.EventQuery) ([]types.RawEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make(map[types.LegacyID]struct{}, len(q.LegacyIDs))
	for _, id := range q.LegacyIDs {
		ids[id] = struct{}{}
	}
	var serials map[string]struct{}
	if q.DeviceSerials != nil {
		serials = idSet(q.DeviceSerials)
	}

	var out []types.RawEvent
	for _, e := range s.events {
		if _, ok := ids[e.EmployeeID]; !ok {
			continue
		}
		if serials != nil {
			if _, ok := serials[e.DeviceSerialNo]; !ok {
				continue
			}
		}
		if inRange(e.AuthTime, q.From, q.To) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].AuthTime.Before(out[j].AuthTime)
	})
	return out, nil
}
