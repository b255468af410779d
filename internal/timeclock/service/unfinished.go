package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// UnfinishedResolver closes open records from earlier runs with the events
// of the current batch.
type UnfinishedResolver struct {
	store   store.TimeclockStore
	matcher *Matcher
	logger  *zap.Logger
}

func NewUnfinishedResolver(st store.TimeclockStore, m *Matcher, logger *zap.Logger) *UnfinishedResolver {
	return &UnfinishedResolver{store: st, matcher: m, logger: logger}
}

// UnfinishedInput is the run state the resolver reads and mutates.
type UnfinishedInput struct {
	Employees EmployeeMap
	Index     types.ScheduleIndex
	Batch     *EventBatch
	Devices   DeviceSnapshot
}

// Run loads the open records of the in-scope users, resolves them, and
// writes every closure in a single batch before returning.
func (r *UnfinishedResolver) Run(ctx context.Context, in UnfinishedInput) ([]types.ShiftClosure, error) {
	open, err := r.store.OpenShifts(ctx, in.Employees.UserIDs())
	if err != nil {
		return nil, fmt.Errorf("load open shifts: %w", err)
	}

	closures := r.Resolve(open, in)
	if len(closures) == 0 {
		return nil, nil
	}

	n, err := r.store.CloseShifts(ctx, closures)
	if err != nil {
		return nil, fmt.Errorf("%w: close shifts: %w", ErrPersistence, err)
	}
	if n != len(closures) {
		r.logger.Warn("some open shifts were already closed",
			zap.Int("staged", len(closures)),
			zap.Int("closed", n))
	}
	return closures, nil
}

// Resolve matches each open record against its scheduled day and marks the
// events it uses as consumed. Records with no schedule for their day, or no
// qualifying end event, stay open.
func (r *UnfinishedResolver) Resolve(open []types.ShiftRecord, in UnfinishedInput) []types.ShiftClosure {
	sorted := append([]types.ShiftRecord(nil), open...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ShiftStart.Before(sorted[j].ShiftStart)
	})

	wins := r.matcher.Windows()
	var closures []types.ShiftClosure

	for _, rec := range sorted {
		if !rec.ShiftActive || rec.ShiftEnd != nil {
			continue
		}
		legacy, ok := in.Employees.LegacyID(rec.UserID)
		if !ok {
			continue
		}
		day := types.DateOf(rec.ShiftStart, wins.Loc)
		cfgs := in.Index.Configs(rec.UserID, day)
		if len(cfgs) == 0 {
			continue
		}

		next := day.AddDays(1)
		perDay := wins.Days([]types.Date{day, next}, func(d types.Date) []types.ShiftWindowConfig {
			return in.Index.Configs(rec.UserID, d)
		})

		start := rec.ShiftStart
		for _, w := range perDay[0] {
			m := r.matcher.Match(in.Batch, legacy, w, &start)
			if !m.HasEnd() {
				continue
			}

			out := in.Batch.Event(legacy, m.End)
			closures = append(closures, types.ShiftClosure{
				ID:            rec.ID,
				UserID:        rec.UserID,
				ShiftStart:    rec.ShiftStart,
				ShiftEnd:      out.AuthTime,
				OutDevice:     in.Devices.Resolve(out.DeviceSerialNo, out.DeviceName),
				OutDeviceType: types.DeviceTypeFaceTerminal,
			})
			in.Batch.Consume(legacy, m.Start, m.End)
			break
		}
	}
	return closures
}
