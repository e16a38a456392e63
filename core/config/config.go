package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Calendar     CalendarConfig     `mapstructure:"calendar"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CalendarConfig bounds request windows and mutation locking.
type CalendarConfig struct {
	MaxRangeDays           int           `mapstructure:"max_range_days"`
	MutationLockTTL        time.Duration `mapstructure:"mutation_lock_ttl"`
	DefaultDurationMinutes int           `mapstructure:"default_duration_minutes"`
}

type SubscriptionConfig struct {
	WorkerEnabled bool          `mapstructure:"worker_enabled"`
	RefreshCron   string        `mapstructure:"refresh_cron"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	Concurrency   int           `mapstructure:"concurrency"`
	HorizonDays   int           `mapstructure:"horizon_days"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7070)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "household")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("calendar.max_range_days", 366)
	v.SetDefault("calendar.mutation_lock_ttl", "10s")
	v.SetDefault("calendar.default_duration_minutes", 30)

	v.SetDefault("subscription.worker_enabled", false)
	v.SetDefault("subscription.refresh_cron", "*/30 * * * *")
	v.SetDefault("subscription.fetch_timeout", "20s")
	v.SetDefault("subscription.concurrency", 4)
	v.SetDefault("subscription.horizon_days", 90)
}

// Load reads config.yaml (optional) and the environment. Environment keys use
// underscores, e.g. DATABASE_HOST overrides database.host.
func Load() (*Config, error) {
	// .env is optional in every environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Set(&cfg)
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Calendar.MaxRangeDays <= 0 {
		return errors.New("calendar.max_range_days must be positive")
	}
	if c.Subscription.Concurrency <= 0 {
		c.Subscription.Concurrency = 1
	}
	return nil
}

func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}

// Get returns the loaded config and panics when Load has not run.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config not initialized")
	}
	return cfg
}

func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}
