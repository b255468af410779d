package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type recordingExtractor struct {
	mu   sync.Mutex
	reqs []types.ExtractRequest
	err  error
}

func (r *recordingExtractor) Extract(_ context.Context, req types.ExtractRequest) (types.ExtractResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return types.ExtractResult{}, r.err
}

func (r *recordingExtractor) calls() []types.ExtractRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ExtractRequest(nil), r.reqs...)
}

func TestAutoExtractor_DisabledWhenIntervalZero(t *testing.T) {
	rec := &recordingExtractor{}
	a := service.NewAutoExtractor(rec, service.AutoExtractConfig{}, zap.NewNop())

	a.Start(context.Background())
	a.Stop()

	if n := len(rec.calls()); n != 0 {
		t.Fatalf("expected no runs, got %d", n)
	}
}

func TestAutoExtractor_RequestCoversLookback(t *testing.T) {
	// 2024-01-10 18:00 UTC is already the 11th in UTC+8.
	now := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	a := service.NewAutoExtractor(&recordingExtractor{}, service.AutoExtractConfig{
		Interval:     time.Hour,
		LookbackDays: 2,
		Location:     loc,
		Now:          func() time.Time { return now },
	}, zap.NewNop())

	req := a.Request()
	if req.StartDate != "2024-01-09" || req.EndDate != "2024-01-11" {
		t.Fatalf("unexpected range %s..%s", req.StartDate, req.EndDate)
	}
	if !req.ExtractAll {
		t.Fatal("expected extract-all request")
	}
}

func TestAutoExtractor_RunsImmediatelyOnStart(t *testing.T) {
	rec := &recordingExtractor{err: errors.New("source down")}
	a := service.NewAutoExtractor(rec, service.AutoExtractConfig{Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.Start(ctx)
	a.Stop()

	if n := len(rec.calls()); n != 1 {
		t.Fatalf("expected exactly one run before stop, got %d", n)
	}
}

func TestAutoExtractor_StopIsIdempotent(t *testing.T) {
	a := service.NewAutoExtractor(&recordingExtractor{}, service.AutoExtractConfig{Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	cancel()
	a.Stop()
	a.Stop()
}
