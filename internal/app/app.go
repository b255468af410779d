// Package app builds the extraction services from configuration. Both
// binaries share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/config"
	"github.com/BrandonDHaskell/timeclock/internal/db"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/lock"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/service"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/source"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store/memory"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store/mongostore"
	sqlitestore "github.com/BrandonDHaskell/timeclock/internal/timeclock/store/sqlite"
)

// Stores is one backend's set of persistence adapters.
type Stores struct {
	Directory  store.Directory
	Devices    store.DeviceStore
	Schedules  store.ScheduleStore
	Timeclocks store.TimeclockStore
	TimeLogs   store.TimeLogStore
}

type App struct {
	Config *config.Config
	Logger *zap.Logger

	Stores     Stores
	Source     store.EventSource
	Locker     lock.Locker
	Timeclocks *service.TimeclockExtractor
	TimeLogs   *service.TimeLogExtractor

	// SQL is the sqlite store connection; nil with the mongo backend.
	SQL *sql.DB

	pingers []func(ctx context.Context) error
	closers []func(ctx context.Context) error
}

// Build opens every backend named by cfg. On error anything already opened
// is closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if err := a.open(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	xcfg := service.ExtractorConfig{
		Location:     cfg.Location(),
		Tolerance:    cfg.Matching.Tolerance,
		QueryTimeout: cfg.Source.QueryTimeout,
		LockTTL:      cfg.Redis.LockTTL,
	}
	a.Timeclocks = service.NewTimeclockExtractor(service.ExtractorDeps{
		Directory:  a.Stores.Directory,
		Devices:    a.Stores.Devices,
		Schedules:  a.Stores.Schedules,
		Timeclocks: a.Stores.Timeclocks,
		Source:     a.Source,
		Locker:     a.Locker,
		Logger:     logger,
	}, xcfg)
	a.TimeLogs = service.NewTimeLogExtractor(service.TimeLogDeps{
		Directory: a.Stores.Directory,
		TimeLogs:  a.Stores.TimeLogs,
		Source:    a.Source,
		Locker:    a.Locker,
		Logger:    logger,
	}, xcfg)

	return a, nil
}

func (a *App) open(ctx context.Context) error {
	var err error
	switch a.Config.Store.Backend {
	case config.BackendSQLite:
		err = a.openSQLite(ctx)
	case config.BackendMongo:
		err = a.openMongo(ctx)
	default:
		err = fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}
	if err != nil {
		return err
	}

	if a.Config.Directory.Backend == config.DirectoryFile {
		if err := a.loadRoster(ctx); err != nil {
			return err
		}
	}
	if err := a.openSource(ctx); err != nil {
		return err
	}
	return a.openLocker(ctx)
}

func (a *App) openSQLite(ctx context.Context) error {
	conn, err := db.Open(ctx, db.Config{Path: a.Config.Store.SQLitePath, Env: a.Config.Store.Env})
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	writer := db.NewWorker(conn)
	a.SQL = conn
	a.closers = append(a.closers, func(context.Context) error {
		writer.Close()
		return conn.Close()
	})
	a.pingers = append(a.pingers, conn.PingContext)

	a.Stores = Stores{
		Directory:  sqlitestore.NewDirectory(conn, writer),
		Devices:    sqlitestore.NewDeviceStore(conn, writer),
		Schedules:  sqlitestore.NewScheduleStore(conn, writer),
		Timeclocks: sqlitestore.NewTimeclockStore(conn, writer),
		TimeLogs:   sqlitestore.NewTimeLogStore(conn, writer),
	}
	a.Logger.Info("sqlite store opened", zap.String("path", a.Config.Store.SQLitePath))
	return nil
}

func (a *App) openMongo(ctx context.Context) error {
	client, err := mongostore.Connect(ctx, a.Config.Store.MongoURI)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Disconnect)
	a.pingers = append(a.pingers, func(ctx context.Context) error { return client.Ping(ctx, nil) })

	mdb := client.Database(a.Config.Store.MongoDatabase)
	if err := mongostore.EnsureIndexes(ctx, mdb); err != nil {
		return err
	}
	a.Stores = mongoStores(mdb)
	a.Logger.Info("mongo store opened", zap.String("database", a.Config.Store.MongoDatabase))
	return nil
}

func mongoStores(mdb *mongo.Database) Stores {
	return Stores{
		Directory:  mongostore.NewDirectory(mdb),
		Devices:    mongostore.NewDeviceStore(mdb),
		Schedules:  mongostore.NewScheduleStore(mdb),
		Timeclocks: mongostore.NewTimeclockStore(mdb),
		TimeLogs:   mongostore.NewTimeLogStore(mdb),
	}
}

// loadRoster swaps in the YAML directory. Devices listed in the roster
// replace the store's device list.
func (a *App) loadRoster(ctx context.Context) error {
	roster, err := memory.LoadRosterFile(a.Config.Directory.RosterFile)
	if err != nil {
		return err
	}
	a.Stores.Directory = roster.Directory

	devs, err := roster.Devices.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devs) > 0 {
		a.Stores.Devices = roster.Devices
	}
	a.Logger.Info("roster loaded",
		zap.String("path", a.Config.Directory.RosterFile),
		zap.Int("devices", len(devs)))
	return nil
}

func (a *App) openSource(ctx context.Context) error {
	sc := source.Config{
		Driver:   a.Config.Source.Driver,
		DSN:      a.Config.Source.DSN,
		Table:    a.Config.Source.Table,
		Location: a.Config.Location(),
	}

	// Dev: the terminal table lives in the store's own sqlite file.
	if sc.Driver == source.DriverSQLite && sc.DSN == "" && a.SQL != nil {
		src, err := source.New(a.SQL, sc)
		if err != nil {
			return err
		}
		a.Source = src
		return nil
	}

	src, err := source.Open(ctx, sc)
	if err != nil {
		return fmt.Errorf("open event source: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return src.Close() })
	a.Source = src
	return nil
}

func (a *App) openLocker(ctx context.Context) error {
	if !a.Config.Redis.Enabled {
		a.Locker = lock.NewMemoryLocker()
		return nil
	}
	rdb, err := lock.OpenRedis(ctx, lock.RedisOptions{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.pingers = append(a.pingers, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	a.Locker = lock.NewRedisLocker(rdb)
	return nil
}

// Ping checks every backing connection.
func (a *App) Ping(ctx context.Context) error {
	var errs []error
	for _, p := range a.pingers {
		if err := p(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SeedDev fills the sqlite store with days of demo data ending today.
func (a *App) SeedDev(ctx context.Context, days int) error {
	if a.SQL == nil {
		return fmt.Errorf("seed-dev needs the sqlite store backend, got %q", a.Config.Store.Backend)
	}
	return db.SeedDev(ctx, a.SQL, db.SeedDevOptions{Location: a.Config.Location(), Days: days})
}
