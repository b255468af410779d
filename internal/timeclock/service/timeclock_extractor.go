package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/lock"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// ExtractorConfig holds the run parameters shared by both extractors.
type ExtractorConfig struct {
	Location     *time.Location
	Tolerance    time.Duration
	QueryTimeout time.Duration // 0 = no timeout on the raw-event query
	LockTTL      time.Duration
}

// ExtractorDeps are the collaborators of TimeclockExtractor.
type ExtractorDeps struct {
	Directory  store.Directory
	Devices    store.DeviceStore
	Schedules  store.ScheduleStore
	Timeclocks store.TimeclockStore
	Source     store.EventSource
	Locker     lock.Locker // nil disables locking
	Logger     *zap.Logger
}

// TimeclockExtractor turns raw terminal events into shift records.
type TimeclockExtractor struct {
	cfg        ExtractorConfig
	employees  *EmployeeResolver
	devices    *DeviceRegistry
	schedules  *ScheduleIndexBuilder
	matcher    *Matcher
	unfinished *UnfinishedResolver
	timeclocks store.TimeclockStore
	source     store.EventSource
	locker     lock.Locker
	logger     *zap.Logger
}

func NewTimeclockExtractor(d ExtractorDeps, cfg ExtractorConfig) *TimeclockExtractor {
	cfg = cfg.withDefaults()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := NewMatcher(NewWindows(cfg.Tolerance, cfg.Location))

	return &TimeclockExtractor{
		cfg:        cfg,
		employees:  NewEmployeeResolver(d.Directory, logger),
		devices:    NewDeviceRegistry(d.Devices),
		schedules:  NewScheduleIndexBuilder(d.Schedules, cfg.Location, logger),
		matcher:    matcher,
		unfinished: NewUnfinishedResolver(d.Timeclocks, matcher, logger),
		timeclocks: d.Timeclocks,
		source:     d.Source,
		locker:     d.Locker,
		logger:     logger.Named("timeclock_extractor"),
	}
}

func (c ExtractorConfig) withDefaults() ExtractorConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Minute
	}
	return c
}

// Extract runs the whole pipeline for one request. Any collaborator failure
// aborts the run; closures already written by the unfinished-shift step
// are not rolled back.
func (x *TimeclockExtractor) Extract(ctx context.Context, req types.ExtractRequest) (types.ExtractResult, error) {
	var res types.ExtractResult

	rng, scope, err := ParseRequest(req, x.cfg.Location)
	if err != nil {
		return res, err
	}

	emps, err := x.employees.Resolve(ctx, scope)
	if err != nil {
		return res, err
	}
	if emps.Len() == 0 {
		x.logger.Info("no employees in scope", zap.Stringer("start", rng.Start), zap.Stringer("end", rng.End))
		return res, nil
	}
	userIDs := emps.UserIDs()

	release, err := lockUsers(ctx, x.locker, userIDs, x.cfg.LockTTL)
	if err != nil {
		return res, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			x.logger.Warn("release scope lock", zap.Error(err))
		}
	}()

	devices, err := x.devices.Snapshot(ctx)
	if err != nil {
		return res, err
	}
	serials := devices.ExtractSerials()
	if len(serials) == 0 {
		x.logger.Info("no devices flagged for extraction")
		return res, nil
	}

	dayFrom, dayTo := rng.DayBounds()
	index, err := x.schedules.Build(ctx, userIDs, dayFrom, dayTo)
	if err != nil {
		return res, err
	}

	evFrom, evTo := rng.EventBounds()
	events, err := queryEvents(ctx, x.source, x.cfg.QueryTimeout, store.EventQuery{
		LegacyIDs:     emps.LegacyIDs(),
		DeviceSerials: serials,
		From:          evFrom,
		To:            evTo,
	})
	if err != nil {
		return res, err
	}

	existing, err := x.timeclocks.ShiftsInRange(ctx, userIDs, evFrom, evTo)
	if err != nil {
		return res, fmt.Errorf("load existing shifts: %w", err)
	}

	batch := NewEventBatch(events)
	closures, err := x.unfinished.Run(ctx, UnfinishedInput{
		Employees: emps,
		Index:     index,
		Batch:     batch,
		Devices:   devices,
	})
	if err != nil {
		return res, err
	}
	res.Closed = closures
	existing = mergeClosures(existing, closures)

	var fresh []types.ShiftRecord
	for _, userID := range userIDs {
		legacy, _ := emps.LegacyID(userID)
		days := index.Days(userID)
		perDay := x.matcher.Windows().Days(days, func(d types.Date) []types.ShiftWindowConfig {
			return index.Configs(userID, d)
		})
		for _, wins := range perDay {
			for _, m := range x.matcher.MatchWindows(batch, legacy, wins) {
				if rec, ok := NewShiftRecord(userID, batch, legacy, m, devices); ok {
					fresh = append(fresh, rec)
				}
			}
		}
	}

	kept, dropped := FilterExisting(fresh, existing)
	res.Dropped = dropped

	if len(kept) > 0 {
		inserted, err := x.timeclocks.InsertShifts(ctx, kept)
		if err != nil {
			return res, fmt.Errorf("%w: insert shifts: %w", ErrPersistence, err)
		}
		res.Created = inserted
	}

	x.logger.Info("timeclock extraction finished",
		zap.Stringer("start", rng.Start),
		zap.Stringer("end", rng.End),
		zap.Int("employees", emps.Len()),
		zap.Int("events", len(events)),
		zap.Int("created", len(res.Created)),
		zap.Int("closed", len(res.Closed)),
		zap.Int("dropped", res.Dropped))
	return res, nil
}

// mergeClosures reflects this run's closures in the existing-record list so
// that dedup sees the new end timestamps.
func mergeClosures(existing []types.ShiftRecord, closures []types.ShiftClosure) []types.ShiftRecord {
	if len(closures) == 0 {
		return existing
	}
	pos := make(map[string]int, len(existing))
	for i, r := range existing {
		if r.ID != "" {
			pos[r.ID] = i
		}
	}
	for _, c := range closures {
		if i, ok := pos[c.ID]; ok {
			existing[i] = c.Apply(existing[i])
			continue
		}
		existing = append(existing, c.Apply(types.ShiftRecord{
			ID:         c.ID,
			UserID:     c.UserID,
			ShiftStart: c.ShiftStart,
		}))
	}
	return existing
}

func lockUsers(ctx context.Context, l lock.Locker, userIDs []string, ttl time.Duration) (lock.Release, error) {
	if l == nil {
		return func(context.Context) error { return nil }, nil
	}
	keys := make([]string, len(userIDs))
	for i, u := range userIDs {
		keys[i] = lock.UserKey(u)
	}
	release, err := lock.AcquireAll(ctx, l, keys, ttl)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, fmt.Errorf("%w: %w", ErrScopeLocked, err)
		}
		return nil, fmt.Errorf("acquire scope lock: %w", err)
	}
	return release, nil
}

func queryEvents(ctx context.Context, src store.EventSource, timeout time.Duration, q store.EventQuery) ([]types.RawEvent, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	events, err := src.QueryEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return events, nil
}
