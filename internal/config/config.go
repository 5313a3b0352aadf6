package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	MetricsPort int           `yaml:"metrics_port"`
	Timeout     time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	Concurrency int `yaml:"concurrency"` // asynq worker concurrency
}

type AIConfig struct {
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max in-flight provider calls
	CallTimeout     time.Duration `yaml:"call_timeout"`
}

type StorageConfig struct {
	Root     string `yaml:"root"`      // artifact output area
	FontPath string `yaml:"font_path"` // TTF used for text overlays
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type WorkerConfig struct {
	StaleJobAge  time.Duration `yaml:"stale_job_age"` // PROCESSING older than this is failed by the reaper
	ReapInterval time.Duration `yaml:"reap_interval"` // reaper tick
	JobLockTTL   time.Duration `yaml:"job_lock_ttl"`  // redis lock lease per job
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Queue    QueueConfig    `yaml:"queue"`
	AI       AIConfig       `yaml:"ai"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Security SecurityConfig `yaml:"security"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort <= 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 120 * time.Second
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "./data/artifacts"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 30 * time.Minute
	}
	if cfg.Auth.RefreshTTL <= 0 {
		cfg.Auth.RefreshTTL = 14 * 24 * time.Hour
	}
	if cfg.Worker.StaleJobAge <= 0 {
		cfg.Worker.StaleJobAge = 2 * time.Hour
	}
	if cfg.Worker.ReapInterval <= 0 {
		cfg.Worker.ReapInterval = 10 * time.Minute
	}
	if cfg.Worker.JobLockTTL <= 0 {
		cfg.Worker.JobLockTTL = 5 * time.Minute
	}
}
