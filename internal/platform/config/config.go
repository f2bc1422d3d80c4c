// Package config loads server configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	strutil "custodian/pkg/platform/strings"
)

const devSecret = "dev-secret-key-change-in-production"

// DefaultExtensions are the evidence binary formats accepted by the file store.
var DefaultExtensions = []string{".e01", ".dd", ".raw", ".img", ".001"}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `yaml:"addr"`
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	MaxUpload     int64         `yaml:"max_upload_bytes"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type Database struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
}

// RedisConfig configures the audit spill queue. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SpillKey     string        `yaml:"spill_key"`
	ReplayEvery  time.Duration `yaml:"replay_every"`
}

// Kafka configures the security event stream. No brokers disables it.
type Kafka struct {
	Brokers       []string `yaml:"brokers"`
	SecurityTopic string   `yaml:"security_topic"`
}

type Evidence struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
}

type Signing struct {
	Secret     string `yaml:"secret"`
	ScryptCost int    `yaml:"scrypt_cost"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   Server      `yaml:"server"`
	Database Database    `yaml:"database"`
	Redis    RedisConfig `yaml:"redis"`
	Kafka    Kafka       `yaml:"kafka"`
	Evidence Evidence    `yaml:"evidence"`
	Signing  Signing     `yaml:"signing"`
	Log      Log         `yaml:"log"`
}

// Default returns development defaults. Secrets must be overridden in production.
func Default() Config {
	return Config{
		Server: Server{
			Addr:          ":8080",
			JWTSigningKey: devSecret,
			MaxUpload:     64 << 30,
			ShutdownGrace: 15 * time.Second,
		},
		Database: Database{MaxOpenConns: 20, TxTimeout: 5 * time.Second},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			ReplayEvery:  time.Minute,
		},
		Evidence: Evidence{Root: "./evidence", Extensions: DefaultExtensions},
		Signing:  Signing{Secret: devSecret, ScryptCost: 1 << 15},
		Log:      Log{Level: "info", Format: "json"},
	}
}

// Load reads path when non-empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from defaults and environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		var raw string
		str(key, &raw)
		if out := strutil.SplitList(raw); out != nil {
			*dst = out
		}
	}

	str("CUSTODIAN_ADDR", &c.Server.Addr)
	str("JWT_SIGNING_KEY", &c.Server.JWTSigningKey)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_URL", &c.Redis.URL)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("SECURITY_TOPIC", &c.Kafka.SecurityTopic)
	str("EVIDENCE_ROOT", &c.Evidence.Root)
	list("EVIDENCE_EXTENSIONS", &c.Evidence.Extensions)
	str("SIGNING_SECRET", &c.Signing.Secret)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	var cost, timeout string
	str("SCRYPT_COST", &cost)
	if cost != "" {
		n, err := strconv.Atoi(cost)
		if err != nil {
			return fmt.Errorf("SCRYPT_COST: %w", err)
		}
		c.Signing.ScryptCost = n
	}
	str("TX_TIMEOUT", &timeout)
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("TX_TIMEOUT: %w", err)
		}
		c.Database.TxTimeout = d
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Signing.Secret == "" {
		errs = append(errs, errors.New("signing secret is required"))
	}
	if c.Signing.ScryptCost < 2 || c.Signing.ScryptCost&(c.Signing.ScryptCost-1) != 0 {
		errs = append(errs, errors.New("scrypt cost must be a power of two greater than one"))
	}
	if c.Evidence.Root == "" {
		errs = append(errs, errors.New("evidence root is required"))
	}
	if c.Database.TxTimeout <= 0 {
		errs = append(errs, errors.New("transaction timeout must be positive"))
	}
	return errors.Join(errs...)
}

// UsesDevSecrets reports whether either secret is still the development default.
func (c Config) UsesDevSecrets() bool {
	return c.Signing.Secret == devSecret || c.Server.JWTSigningKey == devSecret
}
