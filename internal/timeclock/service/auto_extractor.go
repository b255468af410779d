package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// Extractor is implemented by TimeclockExtractor.
type Extractor interface {
	Extract(ctx context.Context, req types.ExtractRequest) (types.ExtractResult, error)
}

// AutoExtractor periodically runs an extract-all over the most recent days.
// It runs as a background goroutine and is stopped via its context or Stop.
//
// An interval of 0 disables it.
type AutoExtractor struct {
	extractor Extractor
	interval  time.Duration
	lookback  int
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// AutoExtractConfig holds the parameters for NewAutoExtractor.
type AutoExtractConfig struct {
	// Interval between runs. 0 means the loop does not start.
	Interval time.Duration

	// LookbackDays is how many days before today each run covers.
	// Defaults to 1 (yesterday and today).
	LookbackDays int

	Location *time.Location

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// NewAutoExtractor creates the loop but does not start it.
func NewAutoExtractor(x Extractor, cfg AutoExtractConfig, logger *zap.Logger) *AutoExtractor {
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = 1
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AutoExtractor{
		extractor: x,
		interval:  cfg.Interval,
		lookback:  lookback,
		loc:       loc,
		now:       now,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs one extraction immediately, then repeats on the interval.
func (a *AutoExtractor) Start(ctx context.Context) {
	if a.interval <= 0 {
		a.logger.Info("auto extractor disabled (interval=0)")
		close(a.done)
		return
	}

	ctx, a.cancel = context.WithCancel(ctx)
	go a.loop(ctx)

	a.logger.Info("auto extractor started",
		zap.Duration("interval", a.interval),
		zap.Int("lookback_days", a.lookback))
}

// Stop signals the loop to exit and waits for it.
func (a *AutoExtractor) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	<-a.done
}

func (a *AutoExtractor) loop(ctx context.Context) {
	defer close(a.done)

	a.RunOnce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// Request returns the extract-all request covering the lookback window
// ending today.
func (a *AutoExtractor) Request() types.ExtractRequest {
	today := types.DateOf(a.now(), a.loc)
	return types.ExtractRequest{
		StartDate:  today.AddDays(-a.lookback).String(),
		EndDate:    today.String(),
		ExtractAll: true,
	}
}

// RunOnce performs a single extraction and logs the outcome.
func (a *AutoExtractor) RunOnce(ctx context.Context) {
	req := a.Request()
	res, err := a.extractor.Extract(ctx, req)
	if err != nil {
		a.logger.Error("auto extraction failed",
			zap.String("start", req.StartDate),
			zap.String("end", req.EndDate),
			zap.Error(err))
		return
	}
	a.logger.Info("auto extraction done",
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate),
		zap.Int("created", len(res.Created)),
		zap.Int("closed", len(res.Closed)))
}
