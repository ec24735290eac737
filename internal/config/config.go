package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Бэкенды хранилища и блокировок
const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"

	LockingBackendMemory = "memory"
	LockingBackendRedis  = "redis"
)

// ErrInvalidConfig возвращается, если значения конфигурации несовместимы
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Storage     StorageConfig     `toml:"storage"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	UserService UserServiceConfig `toml:"user_service"`
	Scheduling  SchedulingConfig  `toml:"scheduling"`
	Locking     LockingConfig     `toml:"locking"`
	Redis       RedisConfig       `toml:"redis"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
}

// ServerConfig параметры HTTP-сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig параметры подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
	AutoMigrate     bool   `toml:"auto_migrate"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// StorageConfig выбор хранилища: postgres или memory (для локального запуска)
type StorageConfig struct {
	Backend string `toml:"backend"`
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type UserServiceConfig struct {
	// URL пустой - справочник пользователей не используется
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// SchedulingConfig глобальная политика; переопределяется для специалиста
type SchedulingConfig struct {
	SundayClosed        bool `toml:"sunday_closed"`
	EnforceWorkingHours bool `toml:"enforce_working_hours"`
}

// LockingConfig блокировки критической секции бронирования (миллисекунды)
type LockingConfig struct {
	Backend          string `toml:"backend"`
	TTLMs            int    `toml:"ttl_ms"`
	AcquireTimeoutMs int    `toml:"acquire_timeout_ms"`
	RetryIntervalMs  int    `toml:"retry_interval_ms"`
}

func (l LockingConfig) TTL() time.Duration {
	return time.Duration(l.TTLMs) * time.Millisecond
}

func (l LockingConfig) AcquireTimeout() time.Duration {
	return time.Duration(l.AcquireTimeoutMs) * time.Millisecond
}

func (l LockingConfig) RetryInterval() time.Duration {
	return time.Duration(l.RetryIntervalMs) * time.Millisecond
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RateLimitConfig ограничение частоты изменяющих запросов по IP
type RateLimitConfig struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

// Load читает .env (если есть), TOML-файл и переменные окружения
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default значения по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Storage: StorageConfig{Backend: StorageBackendPostgres},
		Logs:    LogsConfig{Level: "info"},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "scheduling-service",
		},
		UserService: UserServiceConfig{Timeout: 5},
		Locking: LockingConfig{
			Backend:          LockingBackendMemory,
			TTLMs:            10000,
			AcquireTimeoutMs: 5000,
			RetryIntervalMs:  25,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Burst:             20,
		},
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCHEDULING_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("SCHEDULING_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("SCHEDULING_DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SCHEDULING_DB_PORT=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Database.Port = port
	}
	if v := os.Getenv("SCHEDULING_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SCHEDULING_USER_SERVICE_URL"); v != "" {
		c.UserService.URL = v
	}
	return nil
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port=%d", ErrInvalidConfig, c.Server.HTTPPort)
	}

	switch c.Storage.Backend {
	case StorageBackendPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("%w: database.host and database.dbname are required for postgres storage", ErrInvalidConfig)
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("%w: storage.backend=%q", ErrInvalidConfig, c.Storage.Backend)
	}

	switch c.Locking.Backend {
	case LockingBackendMemory:
	case LockingBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for redis locking", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: locking.backend=%q", ErrInvalidConfig, c.Locking.Backend)
	}

	if c.Locking.AcquireTimeoutMs <= 0 || c.Locking.TTLMs <= 0 {
		return fmt.Errorf("%w: locking timeouts must be positive", ErrInvalidConfig)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate_limit values must be positive", ErrInvalidConfig)
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("%w: metrics.path is required", ErrInvalidConfig)
	}

	return nil
}
