package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/app"
	"github.com/BrandonDHaskell/timeclock/internal/config"
	"github.com/BrandonDHaskell/timeclock/internal/grpcapi"
	"github.com/BrandonDHaskell/timeclock/internal/httpapi"
	"github.com/BrandonDHaskell/timeclock/internal/logger"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
)

func main() {
	configPath := flag.String("config", "", "config file (default ./config.yaml)")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("close", zap.Error(err))
		}
	}()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     log,
		Addr:       cfg.Server.HTTPAddr,
		Timeclocks: a.Timeclocks,
		TimeLogs:   a.TimeLogs,
		Ready:      a.Ping,
	})
	go func() {
		log.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	// gRPC health
	var health *grpcapi.Server
	if cfg.Server.GRPCAddr != "" {
		health = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: log,
			Addr:   cfg.Server.GRPCAddr,
			Ready:  a.Ping,
		})
		go func() {
			log.Info("grpc health listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := health.Serve(ctx); err != nil {
				log.Error("grpc server error", zap.Error(err))
				stop()
			}
		}()
	}

	// Scheduled extraction
	var auto *service.AutoExtractor
	if cfg.AutoExtract.Enabled {
		auto = service.NewAutoExtractor(a.Timeclocks, service.AutoExtractConfig{
			Interval:     cfg.AutoExtract.Interval,
			LookbackDays: cfg.AutoExtract.LookbackDays,
			Location:     cfg.Location(),
		}, log)
		auto.Start(ctx)
	}

	<-ctx.Done()
	log.Info("shutting down")

	if auto != nil {
		auto.Stop()
	}
	if health != nil {
		health.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
