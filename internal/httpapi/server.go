package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type TimeclockExtractor interface {
	Extract(ctx context.Context, req types.ExtractRequest) (types.ExtractResult, error)
}

type TimeLogExtractor interface {
	Extract(ctx context.Context, req types.ExtractRequest) (types.TimeLogResult, error)
}

type Dependencies struct {
	Logger     *zap.Logger
	Addr       string
	Timeclocks TimeclockExtractor
	TimeLogs   TimeLogExtractor
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	timeclocks TimeclockExtractor
	timelogs   TimeLogExtractor
	ready      func(ctx context.Context) error
}

type extractResponse struct {
	OK      bool                `json:"ok"`
	Created int                 `json:"created"`
	Closed  int                 `json:"closed"`
	Dropped int                 `json:"dropped"`
	Result  types.ExtractResult `json:"result"`
}

type timeLogResponse struct {
	OK      bool                `json:"ok"`
	Created int                 `json:"created"`
	Dropped int                 `json:"dropped"`
	Result  types.TimeLogResult `json:"result"`
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		timeclocks: d.Timeclocks,
		timelogs:   d.TimeLogs,
		ready:      d.Ready,
	}

	mux.HandleFunc("POST /v1/extract/timeclocks", s.handleExtractTimeclocks)
	mux.HandleFunc("POST /v1/extract/timelogs", s.handleExtractTimeLogs)
	mux.HandleFunc("GET /v1/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           loggingMiddleware(d.Logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleExtractTimeclocks(w http.ResponseWriter, r *http.Request) {
	var req types.ExtractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	res, err := s.timeclocks.Extract(runContext(r), req)
	if err != nil {
		s.writeRunError(w, "extract timeclocks", err)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		OK:      true,
		Created: len(res.Created),
		Closed:  len(res.Closed),
		Dropped: res.Dropped,
		Result:  res,
	})
}

func (s *Server) handleExtractTimeLogs(w http.ResponseWriter, r *http.Request) {
	var req types.ExtractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	res, err := s.timelogs.Extract(runContext(r), req)
	if err != nil {
		s.writeRunError(w, "extract timelogs", err)
		return
	}

	writeJSON(w, http.StatusOK, timeLogResponse{
		OK:      true,
		Created: len(res.Created),
		Dropped: res.Dropped,
		Result:  res,
	})
}

// runContext keeps request values but drops cancellation: a client that
// disconnects must not stop a run between its close and insert batches. The
// raw-event query is bounded by source.query_timeout inside the extractor.
func runContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "unavailable", "backing store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "server_time": time.Now().UTC().UnixMilli()})
}

func (s *Server) writeRunError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, service.ErrScopeLocked):
		writeError(w, http.StatusConflict, "scope_locked", err.Error())
	case errors.Is(err, service.ErrSourceUnavailable):
		s.logger.Error(op, zap.Error(err))
		writeError(w, http.StatusBadGateway, "source_unavailable", "raw event source unavailable")
	default:
		s.logger.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
