package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "devicelink/pkg/platform/strings"
)

// DefaultBaseURL is the Health Canada medical devices API root.
const DefaultBaseURL = "https://health-products.canada.ca/api/medical-devices"

// Config is the full runtime configuration. Precedence, lowest first:
// defaults, YAML file, DEVICELINK_* environment, command-line flags.
type Config struct {
	Log     Log     `yaml:"log"`
	Lookup  Lookup  `yaml:"lookup"`
	Batch   Batch   `yaml:"batch"`
	Cache   Cache   `yaml:"cache"`
	Publish Publish `yaml:"publish"`
	Upload  Upload  `yaml:"upload"`
	Server  Server  `yaml:"server"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Lookup configures calls to the identifier lookup service.
type Lookup struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	UserAgent  string        `yaml:"user_agent"`
}

// Batch configures row processing. Pace is the minimum interval between the
// first requests of consecutive rows; zero disables pacing.
type Batch struct {
	Workers int           `yaml:"workers"`
	Pace    time.Duration `yaml:"pace"`
}

// Cache selects the resolution cache backend.
type Cache struct {
	Driver      string        `yaml:"driver"`
	TTL         time.Duration `yaml:"ttl"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	Redis       Redis         `yaml:"redis"`
}

type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Publish configures the optional Kafka outcome stream.
type Publish struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Upload configures S3 report uploads.
type Upload struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `yaml:"addr"`
}

// Cache drivers.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Format: "text"},
		Lookup: Lookup{
			BaseURL:    DefaultBaseURL,
			Timeout:    10 * time.Second,
			Retries:    2,
			RetryDelay: time.Second,
			UserAgent:  "devicelink/1.0",
		},
		Batch: Batch{Workers: 1, Pace: 300 * time.Millisecond},
		Cache: Cache{
			Driver:     CacheNone,
			TTL:        24 * time.Hour,
			SQLitePath: "devicelink-cache.db",
			Redis: Redis{
				PoolSize:     10,
				MinIdleConns: 1,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
		},
		Publish: Publish{Topic: "devicelink.outcomes"},
		Upload:  Upload{Region: "us-east-1"},
		Server:  Server{Addr: ":8080"},
	}
}

// Load builds a Config from defaults, the optional YAML file at path and the
// environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults and environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("DEVICELINK_LOG_LEVEL", &c.Log.Level)
	str("DEVICELINK_LOG_FORMAT", &c.Log.Format)
	str("DEVICELINK_LOOKUP_BASE_URL", &c.Lookup.BaseURL)
	dur("DEVICELINK_LOOKUP_TIMEOUT", &c.Lookup.Timeout)
	num("DEVICELINK_LOOKUP_RETRIES", &c.Lookup.Retries)
	dur("DEVICELINK_LOOKUP_RETRY_DELAY", &c.Lookup.RetryDelay)
	str("DEVICELINK_LOOKUP_USER_AGENT", &c.Lookup.UserAgent)
	num("DEVICELINK_BATCH_WORKERS", &c.Batch.Workers)
	dur("DEVICELINK_BATCH_PACE", &c.Batch.Pace)
	str("DEVICELINK_CACHE_DRIVER", &c.Cache.Driver)
	dur("DEVICELINK_CACHE_TTL", &c.Cache.TTL)
	str("DEVICELINK_CACHE_SQLITE_PATH", &c.Cache.SQLitePath)
	str("DEVICELINK_CACHE_POSTGRES_DSN", &c.Cache.PostgresDSN)
	str("DEVICELINK_CACHE_REDIS_URL", &c.Cache.Redis.URL)
	str("DEVICELINK_PUBLISH_TOPIC", &c.Publish.Topic)
	if v, ok := lookup("DEVICELINK_PUBLISH_BROKERS"); ok && v != "" {
		c.Publish.Brokers = pstrings.SplitList(v, ",")
	}
	str("DEVICELINK_UPLOAD_REGION", &c.Upload.Region)
	str("DEVICELINK_UPLOAD_ENDPOINT", &c.Upload.Endpoint)
	if v, ok := lookup("DEVICELINK_UPLOAD_PATH_STYLE"); ok {
		c.Upload.PathStyle = strings.EqualFold(v, "true")
	}
	str("DEVICELINK_SERVER_ADDR", &c.Server.Addr)

	return errors.Join(errs...)
}

// Validate rejects configurations the resolver cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Lookup.BaseURL == "" {
		errs = append(errs, errors.New("lookup.base_url is required"))
	}
	if c.Lookup.Retries < 0 {
		errs = append(errs, fmt.Errorf("lookup.retries must be >= 0, got %d", c.Lookup.Retries))
	}
	if c.Lookup.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("lookup.timeout must be positive, got %s", c.Lookup.Timeout))
	}
	if c.Lookup.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("lookup.retry_delay must be >= 0, got %s", c.Lookup.RetryDelay))
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("batch.workers must be >= 1, got %d", c.Batch.Workers))
	}
	if c.Batch.Pace < 0 {
		errs = append(errs, fmt.Errorf("batch.pace must be >= 0, got %s", c.Batch.Pace))
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory, CacheSQLite:
	case CachePostgres:
		if c.Cache.PostgresDSN == "" {
			errs = append(errs, errors.New("cache.postgres_dsn is required for the postgres cache"))
		}
	case CacheRedis:
		if c.Cache.Redis.URL == "" {
			errs = append(errs, errors.New("cache.redis.url is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.Cache.Driver))
	}
	if len(pstrings.DedupeAndTrim(c.Publish.Brokers)) > 0 && c.Publish.Topic == "" {
		errs = append(errs, errors.New("publish.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}
