package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	BackendEthereum = "ethereum"
	BackendMirror   = "mirror"
)

type Config struct {
	Port        string        `env:"PORT,         default=8080"`
	Env         string        `env:"ENV,          default=development"`
	JWTSecret   string        `env:"JWT_SECRET"`
	LogLevel    string        `env:"LOG_LEVEL,    default=info"`
	LoadTimeout time.Duration `env:"LOAD_TIMEOUT, default=30s"`

	Ledger     LedgerConfig
	Aggregator AggregatorConfig
	Mongo      MongoConfig
	Redis      RedisConfig
}

type LedgerConfig struct {
	Backend       string `env:"LEDGER_BACKEND,        default=ethereum"`
	RPCURL        string `env:"LEDGER_RPC_URL,        default=http://127.0.0.1:7545"`
	Network       string `env:"LEDGER_NETWORK"`
	Deployments   string `env:"LEDGER_DEPLOYMENTS"`
	ViewerAddress string `env:"LEDGER_VIEWER_ADDRESS"`
}

type AggregatorConfig struct {
	RecordConcurrency int  `env:"AGGREGATOR_RECORD_CONCURRENCY, default=1"`
	RefreshWorkers    int  `env:"AGGREGATOR_REFRESH_WORKERS,    default=4"`
	Audit             bool `env:"AGGREGATOR_AUDIT,              default=false"`
	MaxSelectors      int  `env:"AGGREGATOR_MAX_SELECTORS,      default=256"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=campaign_results"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED,   default=false"`
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	GuardTTL time.Duration `env:"REDIS_GUARD_TTL, default=2m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Ledger.Backend {
	case BackendEthereum:
		if c.Ledger.RPCURL == "" {
			errs = append(errs, errors.New("LEDGER_RPC_URL is required for the ethereum backend"))
		}
		if c.Ledger.Deployments == "" {
			errs = append(errs, errors.New("LEDGER_DEPLOYMENTS is required for the ethereum backend"))
		}
	case BackendMirror:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mirror backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}
	if c.Aggregator.RecordConcurrency < 1 {
		errs = append(errs, errors.New("AGGREGATOR_RECORD_CONCURRENCY must be at least 1"))
	}
	if c.Aggregator.RefreshWorkers < 1 {
		errs = append(errs, errors.New("AGGREGATOR_REFRESH_WORKERS must be at least 1"))
	}
	if c.Aggregator.MaxSelectors < 1 {
		errs = append(errs, errors.New("AGGREGATOR_MAX_SELECTORS must be at least 1"))
	}
	if c.LoadTimeout <= 0 {
		errs = append(errs, errors.New("LOAD_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment enables pretty console logging.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NeedsMongo reports whether any component reads or writes MongoDB.
func (c *Config) NeedsMongo() bool {
	return c.Ledger.Backend == BackendMirror || c.Aggregator.Audit
}
