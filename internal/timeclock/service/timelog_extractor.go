package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/lock"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// TimeLogDeps are the collaborators of TimeLogExtractor.
type TimeLogDeps struct {
	Directory store.Directory
	TimeLogs  store.TimeLogStore
	Source    store.EventSource
	Locker    lock.Locker
	Logger    *zap.Logger
}

// TimeLogExtractor copies raw authentication timestamps into time logs with
// no shift pairing.
type TimeLogExtractor struct {
	cfg       ExtractorConfig
	employees *EmployeeResolver
	logs      store.TimeLogStore
	source    store.EventSource
	locker    lock.Locker
	logger    *zap.Logger
}

func NewTimeLogExtractor(d TimeLogDeps, cfg ExtractorConfig) *TimeLogExtractor {
	cfg = cfg.withDefaults()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeLogExtractor{
		cfg:       cfg,
		employees: NewEmployeeResolver(d.Directory, logger),
		logs:      d.TimeLogs,
		source:    d.Source,
		locker:    d.Locker,
		logger:    logger.Named("timelog_extractor"),
	}
}

// Extract inserts every in-scope event of the range whose (user, instant)
// is not already logged.
func (x *TimeLogExtractor) Extract(ctx context.Context, req types.ExtractRequest) (types.TimeLogResult, error) {
	var res types.TimeLogResult

	rng, scope, err := ParseRequest(req, x.cfg.Location)
	if err != nil {
		return res, err
	}

	emps, err := x.employees.Resolve(ctx, scope)
	if err != nil {
		return res, err
	}
	if emps.Len() == 0 {
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

	from, to := rng.DayBounds()
	events, err := queryEvents(ctx, x.source, x.cfg.QueryTimeout, store.EventQuery{
		LegacyIDs: emps.LegacyIDs(),
		From:      from,
		To:        to,
	})
	if err != nil {
		return res, err
	}

	existing, err := x.logs.TimeLogsInRange(ctx, userIDs, from, to)
	if err != nil {
		return res, fmt.Errorf("load existing time logs: %w", err)
	}

	fresh, dropped := NewTimeLogs(events, emps, existing)
	res.Dropped = dropped

	if len(fresh) > 0 {
		inserted, err := x.logs.InsertTimeLogs(ctx, fresh)
		if err != nil {
			return res, fmt.Errorf("%w: insert time logs: %w", ErrPersistence, err)
		}
		res.Created = inserted
	}

	x.logger.Info("time log extraction finished",
		zap.Stringer("start", rng.Start),
		zap.Stringer("end", rng.End),
		zap.Int("events", len(events)),
		zap.Int("created", len(res.Created)),
		zap.Int("dropped", res.Dropped))
	return res, nil
}

// NewTimeLogs maps events to time logs, dropping events of unknown
// employees and any (user, millisecond) already present in existing or
// earlier in the batch.
func NewTimeLogs(events []types.RawEvent, emps EmployeeMap, existing []types.TimeLog) ([]types.TimeLog, int) {
	type key struct {
		user string
		ms   int64
	}
	seen := make(map[key]struct{}, len(existing))
	for _, l := range existing {
		seen[key{l.UserID, l.Timelog.UnixMilli()}] = struct{}{}
	}

	var out []types.TimeLog
	dropped := 0
	for _, e := range events {
		userID, ok := emps.UserID(e.EmployeeID)
		if !ok {
			continue
		}
		k := key{userID, e.AuthTime.UnixMilli()}
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, types.TimeLog{
			UserID:         userID,
			Timelog:        e.AuthTime,
			DeviceSerialNo: e.DeviceSerialNo,
		})
	}
	return out, dropped
}
