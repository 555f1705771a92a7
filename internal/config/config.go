package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Leave     LeaveConfig     `mapstructure:"leave"`
	API       APIConfig       `mapstructure:"api"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// DSN builds the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	Topic           string        `mapstructure:"topic"`
	GroupID         string        `mapstructure:"group_id"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	// OutboxRetention is how long relayed outbox rows are kept.
	OutboxRetention time.Duration `mapstructure:"outbox_retention"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Backing names the storage behind the leave lifecycle store.
type Backing string

const (
	BackingMemory   Backing = "memory"
	BackingPostgres Backing = "postgres"
	BackingRemote   Backing = "remote"
)

type LeaveConfig struct {
	EntitlementDays int           `mapstructure:"entitlement_days"`
	CountMode       string        `mapstructure:"count_mode"`
	IncludePending  bool          `mapstructure:"include_pending"`
	Backing         Backing       `mapstructure:"backing"`
	BalanceCacheTTL time.Duration `mapstructure:"balance_cache_ttl"`
	// StoreMaxAge bounds how long a fetched request set is trusted before
	// reads go back to the backing.
	StoreMaxAge time.Duration `mapstructure:"store_max_age"`
}

type APIConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Token               string        `mapstructure:"token"`
	Timeout             time.Duration `mapstructure:"timeout"`
	BreakerMaxFailures  uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenDuration time.Duration `mapstructure:"breaker_open_duration"`
}

// RateLimitConfig limits submissions per employee (RPS, Burst) and every api
// call per client IP (IPRPS, IPBurst).
type RateLimitConfig struct {
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
	IPRPS   float64 `mapstructure:"ip_rps"`
	IPBurst int     `mapstructure:"ip_burst"`
}

// Load reads .env, then the config file, then ELMS_* environment variables.
// Precedence: environment > file > defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ELMS")
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "elms")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_retries", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "elms.leave.request.changed.v1")
	v.SetDefault("kafka.group_id", "go-elms-leave-events")
	v.SetDefault("kafka.poll_interval", "3s")
	v.SetDefault("kafka.outbox_retention", "72h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("leave.entitlement_days", 12)
	v.SetDefault("leave.count_mode", "weekday")
	v.SetDefault("leave.include_pending", true)
	v.SetDefault("leave.backing", string(BackingPostgres))
	v.SetDefault("leave.balance_cache_ttl", "5m")
	v.SetDefault("leave.store_max_age", "30s")

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.breaker_max_failures", 3)
	v.SetDefault("api.breaker_open_duration", "30s")

	v.SetDefault("rate_limit.rps", 2)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("rate_limit.ip_rps", 20)
	v.SetDefault("rate_limit.ip_burst", 40)
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if c.Leave.EntitlementDays < 0 {
		return errors.New("config: leave.entitlement_days must not be negative")
	}
	switch c.Leave.CountMode {
	case "weekday", "calendar":
	default:
		return fmt.Errorf("config: unknown leave.count_mode %q", c.Leave.CountMode)
	}
	switch c.Leave.Backing {
	case BackingMemory, BackingPostgres:
	case BackingRemote:
		if c.API.BaseURL == "" {
			return errors.New("config: api.base_url is required for the remote backing")
		}
	default:
		return fmt.Errorf("config: unknown leave.backing %q", c.Leave.Backing)
	}
	return nil
}
