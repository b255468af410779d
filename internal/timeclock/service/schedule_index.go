package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type ScheduleIndexBuilder struct {
	store  store.ScheduleStore
	loc    *time.Location
	logger *zap.Logger
}

func NewScheduleIndexBuilder(st store.ScheduleStore, loc *time.Location, logger *zap.Logger) *ScheduleIndexBuilder {
	return &ScheduleIndexBuilder{store: st, loc: loc, logger: logger}
}

// Build indexes the approved shifts of userIDs starting in [from, to).
// Users with nothing scheduled are absent from the result.
func (b *ScheduleIndexBuilder) Build(ctx context.Context, userIDs []string, from, to time.Time) (types.ScheduleIndex, error) {
	idx := make(types.ScheduleIndex)
	if len(userIDs) == 0 {
		return idx, nil
	}

	schedules, err := b.store.ApprovedSchedules(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	inScope := toSet(userIDs)
	owner := make(map[string]string, len(schedules))
	scheduleIDs := make([]string, 0, len(schedules))
	for _, s := range schedules {
		if !s.Eligible() {
			continue
		}
		if _, ok := inScope[s.UserID]; !ok {
			continue
		}
		owner[s.ID] = s.UserID
		scheduleIDs = append(scheduleIDs, s.ID)
	}
	if len(scheduleIDs) == 0 {
		return idx, nil
	}
	sort.Strings(scheduleIDs)

	shifts, err := b.store.ScheduleShifts(ctx, scheduleIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("load schedule shifts: %w", err)
	}

	templates, subWindows, err := b.loadTemplates(ctx, shifts)
	if err != nil {
		return nil, err
	}

	for _, sh := range shifts {
		userID, ok := owner[sh.ScheduleID]
		if !ok {
			continue
		}

		var tmpl *types.ScheduleConfig
		var cfgShifts []types.ConfigShift
		if sh.ScheduleConfigID != "" {
			if t, ok := templates[sh.ScheduleConfigID]; ok {
				tmpl = &t
				cfgShifts = subWindows[sh.ScheduleConfigID]
			}
		}

		cfg, err := MergeShiftWindow(sh, tmpl, cfgShifts, b.loc)
		if err != nil {
			b.logger.Warn("skipping schedule shift",
				zap.String("shift_id", sh.ID),
				zap.String("user_id", userID),
				zap.Error(err))
			continue
		}
		idx.Add(userID, types.DateOf(sh.ShiftStart, b.loc), cfg)
	}

	idx.Sort()
	return idx, nil
}

func (b *ScheduleIndexBuilder) loadTemplates(ctx context.Context, shifts []types.ScheduleShift) (map[string]types.ScheduleConfig, map[string][]types.ConfigShift, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, sh := range shifts {
		if sh.ScheduleConfigID == "" {
			continue
		}
		if _, ok := seen[sh.ScheduleConfigID]; ok {
			continue
		}
		seen[sh.ScheduleConfigID] = struct{}{}
		ids = append(ids, sh.ScheduleConfigID)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}
	sort.Strings(ids)

	configs, err := b.store.ScheduleConfigs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule configs: %w", err)
	}
	cfgShifts, err := b.store.ConfigShifts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule config shifts: %w", err)
	}

	templates := make(map[string]types.ScheduleConfig, len(configs))
	for _, c := range configs {
		templates[c.ID] = c
	}
	subWindows := make(map[string][]types.ConfigShift)
	for _, cs := range cfgShifts {
		subWindows[cs.ScheduleConfigID] = append(subWindows[cs.ScheduleConfigID], cs)
	}
	return templates, subWindows, nil
}

// MergeShiftWindow builds the window config of one shift row.
//
// Start and end come from the template when it sets them, else from the
// shift row's own start and end observed in loc. Overnight is derived from
// the merged values. Template sub-windows named validCheckIn/validCheckOut
// (case-insensitive) become the extended check-in/check-out windows.
func MergeShiftWindow(shift types.ScheduleShift, tmpl *types.ScheduleConfig, configShifts []types.ConfigShift, loc *time.Location) (types.ShiftWindowConfig, error) {
	start := types.TimeOfDayOf(shift.ShiftStart, loc)
	end := types.TimeOfDayOf(shift.ShiftEnd, loc)

	if tmpl != nil {
		if s := strings.TrimSpace(tmpl.ShiftStart); s != "" {
			t, err := types.ParseTimeOfDay(s)
			if err != nil {
				return types.ShiftWindowConfig{}, fmt.Errorf("template %s start: %w", tmpl.ID, err)
			}
			start = t
		}
		if s := strings.TrimSpace(tmpl.ShiftEnd); s != "" {
			t, err := types.ParseTimeOfDay(s)
			if err != nil {
				return types.ShiftWindowConfig{}, fmt.Errorf("template %s end: %w", tmpl.ID, err)
			}
			end = t
		}
	}

	cfg := types.NewShiftWindowConfig(start, end)
	if tmpl == nil {
		return cfg, nil
	}

	for _, cs := range configShifts {
		var slot **types.CheckWindow
		switch {
		case strings.EqualFold(cs.ConfigName, types.ConfigValidCheckIn):
			slot = &cfg.ValidCheckIn
		case strings.EqualFold(cs.ConfigName, types.ConfigValidCheckOut):
			slot = &cfg.ValidCheckOut
		default:
			continue
		}
		ws, err := types.ParseTimeOfDay(cs.ConfigShiftStart)
		if err != nil {
			return types.ShiftWindowConfig{}, fmt.Errorf("template %s %s: %w", tmpl.ID, cs.ConfigName, err)
		}
		we, err := types.ParseTimeOfDay(cs.ConfigShiftEnd)
		if err != nil {
			return types.ShiftWindowConfig{}, fmt.Errorf("template %s %s: %w", tmpl.ID, cs.ConfigName, err)
		}
		*slot = types.NewCheckWindow(ws, we)
	}
	return cfg, nil
}
