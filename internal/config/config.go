package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jwalitptl/reminder-api/internal/repository/sqlstore"
	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/messaging/redis"
)

const envPrefix = "REMINDERS"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Notification NotificationConfig `mapstructure:"notification"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=postgres sqlite memory"`
	Host         string `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name" validate:"required_if=Driver postgres"`
	SSLMode      string `mapstructure:"sslmode"`
	Path         string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver" validate:"oneof=memory redis"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type SchedulerConfig struct {
	ScanInterval  time.Duration `mapstructure:"scan_interval" validate:"gte=1s"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	SentRetention time.Duration `mapstructure:"sent_retention" validate:"gt=0"`
	SendTimeout   time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
}

type NotificationConfig struct {
	Driver  string `mapstructure:"driver" validate:"oneof=log redis"`
	Channel string `mapstructure:"channel" validate:"required"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" validate:"required,min=16"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("scheduler.scan_interval", 5*time.Minute)
	v.SetDefault("scheduler.retry_delay", 5*time.Minute)
	v.SetDefault("scheduler.sent_retention", time.Hour)
	v.SetDefault("scheduler.send_timeout", 30*time.Second)

	v.SetDefault("notification.driver", "log")
	v.SetDefault("notification.channel", "reminders")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "reminder-api")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// LoadConfig reads config.yaml from path (or . and ./config when empty),
// applies REMINDERS_* environment overrides and validates the result. A
// missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if (c.Cache.Driver == "redis" || c.Notification.Driver == "redis") && c.Redis.URL == "" {
		return fmt.Errorf("invalid config: redis.url is required when a redis driver is selected")
	}
	return nil
}

func (c DatabaseConfig) SQLStore() sqlstore.Config {
	return sqlstore.Config{
		Driver:       c.Driver,
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Name:         c.Name,
		SSLMode:      c.SSLMode,
		Path:         c.Path,
		MaxOpenConns: c.MaxOpenConns,
	}
}

func (c RedisConfig) Client() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c SchedulerConfig) Worker() worker.SchedulerConfig {
	return worker.SchedulerConfig{
		ScanInterval:  c.ScanInterval,
		RetryDelay:    c.RetryDelay,
		SentRetention: c.SentRetention,
		SendTimeout:   c.SendTimeout,
	}
}
