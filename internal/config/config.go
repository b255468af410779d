package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"

	DirectoryStore = "store" // users live next to the other data
	DirectoryFile  = "file"  // YAML roster
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Timezone    string            `mapstructure:"timezone"`
	Store       StoreConfig       `mapstructure:"store"`
	Source      SourceConfig      `mapstructure:"source"`
	Directory   DirectoryConfig   `mapstructure:"directory"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Matching    MatchingConfig    `mapstructure:"matching"`
	AutoExtract AutoExtractConfig `mapstructure:"auto_extract"`

	location *time.Location
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	GRPCAddr string `mapstructure:"grpc_addr"` // empty disables the health listener
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" | "console"
}

type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	Env           string `mapstructure:"env"` // "dev" | "prod"
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type SourceConfig struct {
	Driver string `mapstructure:"driver"` // "sqlserver" | "sqlite"
	// DSN of the terminal database. Empty with the sqlite driver reads the
	// auth_logs table of store.sqlite_path.
	DSN          string        `mapstructure:"dsn"`
	Table        string        `mapstructure:"table"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type DirectoryConfig struct {
	Backend    string `mapstructure:"backend"`
	RosterFile string `mapstructure:"roster_file"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type MatchingConfig struct {
	Tolerance time.Duration `mapstructure:"tolerance"`
}

type AutoExtractConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	LookbackDays int           `mapstructure:"lookback_days"`
}

// Load reads defaults, then the config file, then TIMECLOCK_* env vars.
// An empty path searches ./config.yaml and ./config/config.yaml; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("timezone", "UTC")

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.env", "dev")
	v.SetDefault("store.sqlite_path", "./data/timeclock.db")
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.mongo_database", "timeclock")

	v.SetDefault("source.driver", "sqlite")
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.table", "auth_logs")
	v.SetDefault("source.query_timeout", "10m")

	v.SetDefault("directory.backend", DirectoryStore)
	v.SetDefault("directory.roster_file", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10m")

	v.SetDefault("matching.tolerance", "3h")

	v.SetDefault("auto_extract.enabled", false)
	v.SetDefault("auto_extract.interval", "1h")
	v.SetDefault("auto_extract.lookback_days", 1)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TIMECLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Directory.Backend = strings.ToLower(strings.TrimSpace(c.Directory.Backend))
	c.Source.Driver = strings.ToLower(strings.TrimSpace(c.Source.Driver))

	// Unknown env values fall back to dev.
	c.Store.Env = strings.ToLower(c.Store.Env)
	if c.Store.Env != "dev" && c.Store.Env != "prod" {
		c.Store.Env = "dev"
	}
}

// Validate checks cross-field constraints and resolves the timezone.
func (c *Config) Validate() error {
	var errs []error

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	} else {
		c.location = loc
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store.mongo_uri is required for the mongo backend"))
		}
		if c.Store.MongoDatabase == "" {
			errs = append(errs, errors.New("store.mongo_database is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want sqlite or mongo", c.Store.Backend))
	}

	switch c.Directory.Backend {
	case DirectoryStore:
	case DirectoryFile:
		if c.Directory.RosterFile == "" {
			errs = append(errs, errors.New("directory.roster_file is required for the file directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("directory.backend %q: want store or file", c.Directory.Backend))
	}

	switch c.Source.Driver {
	case "sqlite":
		if c.Source.DSN == "" && c.Store.Backend != BackendSQLite {
			errs = append(errs, errors.New("source.dsn is required unless the sqlite store doubles as the source"))
		}
	case "sqlserver":
		if c.Source.DSN == "" {
			errs = append(errs, errors.New("source.dsn is required for sqlserver"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.driver %q: want sqlserver or sqlite", c.Source.Driver))
	}
	if c.Source.QueryTimeout < 0 {
		errs = append(errs, errors.New("source.query_timeout must not be negative"))
	}

	if c.Matching.Tolerance <= 0 {
		errs = append(errs, errors.New("matching.tolerance must be positive"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("redis.lock_ttl must be positive"))
	}
	if c.AutoExtract.Enabled {
		if c.AutoExtract.Interval <= 0 {
			errs = append(errs, errors.New("auto_extract.interval must be positive when enabled"))
		}
		if c.AutoExtract.LookbackDays < 1 {
			errs = append(errs, errors.New("auto_extract.lookback_days must be at least 1"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location is the zone named by Timezone. Valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
