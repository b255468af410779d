package types

import (
	"regexp"
	"sort"
	"time"
)

var approvedStatus = regexp.MustCompile(`(?i)approved`)

// Schedule is an employee's schedule header. Only approved schedules that
// were not created from an employee request feed the schedule index.
type Schedule struct {
	ID               string `json:"id" bson:"_id"`
	UserID           string `json:"user_id" bson:"userId"`
	Status           string `json:"status" bson:"status"`
	CreatedByRequest bool   `json:"created_by_request" bson:"createdByRequest"`
}

// Eligible reports whether the schedule may be used for matching.
func (s Schedule) Eligible() bool {
	return approvedStatus.MatchString(s.Status) && !s.CreatedByRequest
}

// ScheduleShift is one concrete scheduled shift of a schedule.
// ScheduleConfigID optionally links a reusable template.
type ScheduleShift struct {
	ID               string    `json:"id" bson:"_id"`
	ScheduleID       string    `json:"schedule_id" bson:"scheduleId"`
	ScheduleConfigID string    `json:"schedule_config_id,omitempty" bson:"scheduleConfigId,omitempty"`
	ShiftStart       time.Time `json:"shift_start" bson:"shiftStart"`
	ShiftEnd         time.Time `json:"shift_end" bson:"shiftEnd"`
}

// ScheduleConfig is a reusable shift template. Empty ShiftStart/ShiftEnd
// fall back to the linked shift's own times.
type ScheduleConfig struct {
	ID         string `json:"id" bson:"_id"`
	Name       string `json:"name" bson:"scheduleName"`
	ShiftStart string `json:"shift_start,omitempty" bson:"shiftStart,omitempty"`
	ShiftEnd   string `json:"shift_end,omitempty" bson:"shiftEnd,omitempty"`
}

// Names of the template sub-windows, compared case-insensitively.
const (
	ConfigValidCheckIn  = "validCheckIn"
	ConfigValidCheckOut = "validCheckOut"
)

// ConfigShift is a named sub-window belonging to a template.
type ConfigShift struct {
	ID               string `json:"id" bson:"_id"`
	ScheduleConfigID string `json:"schedule_config_id" bson:"scheduleConfigId"`
	ConfigName       string `json:"config_name" bson:"configName"`
	ConfigShiftStart string `json:"config_shift_start" bson:"configShiftStart"`
	ConfigShiftEnd   string `json:"config_shift_end" bson:"configShiftEnd"`
}

// CheckWindow is an explicit acceptance sub-window taken from a template.
type CheckWindow struct {
	Start     TimeOfDay
	End       TimeOfDay
	Overnight bool
}

// NewCheckWindow derives the overnight flag from the bounds.
func NewCheckWindow(start, end TimeOfDay) *CheckWindow {
	return &CheckWindow{Start: start, End: end, Overnight: Overnight(start, end)}
}

// ShiftWindowConfig is the scheduled shape of one shift on one day.
// A nil ValidCheckIn/ValidCheckOut means the default tolerance window.
type ShiftWindowConfig struct {
	ShiftStart    TimeOfDay
	ShiftEnd      TimeOfDay
	Overnight     bool
	ValidCheckIn  *CheckWindow
	ValidCheckOut *CheckWindow
}

// NewShiftWindowConfig derives the overnight flag from the bounds.
func NewShiftWindowConfig(start, end TimeOfDay) ShiftWindowConfig {
	return ShiftWindowConfig{ShiftStart: start, ShiftEnd: end, Overnight: Overnight(start, end)}
}

// ScheduleIndex maps userID -> day -> shift configs for that day. Lookups on
// an absent user or day return nil; callers skip rather than default.
type ScheduleIndex map[string]map[Date][]ShiftWindowConfig

// Add appends cfg to the user's configs for day.
func (idx ScheduleIndex) Add(userID string, day Date, cfg ShiftWindowConfig) {
	days, ok := idx[userID]
	if !ok {
		days = make(map[Date][]ShiftWindowConfig)
		idx[userID] = days
	}
	days[day] = append(days[day], cfg)
}

// Configs returns the configs for (userID, day), ordered by scheduled start.
func (idx ScheduleIndex) Configs(userID string, day Date) []ShiftWindowConfig {
	return idx[userID][day]
}

// Days returns the scheduled days of a user in chronological order.
func (idx ScheduleIndex) Days(userID string) []Date {
	days := idx[userID]
	if len(days) == 0 {
		return nil
	}
	out := make([]Date, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Users returns the indexed user ids in sorted order.
func (idx ScheduleIndex) Users() []string {
	out := make([]string, 0, len(idx))
	for u := range idx {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Sort orders each day's configs by scheduled start time.
func (idx ScheduleIndex) Sort() {
	for _, days := range idx {
		for d, cfgs := range days {
			sort.SliceStable(cfgs, func(i, j int) bool {
				return cfgs[i].ShiftStart.Before(cfgs[j].ShiftStart)
			})
			days[d] = cfgs
		}
	}
}
