package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env"

	"prms/internal/pid/sequence"
	pstrings "prms/pkg/platform/strings"
)

// Sequence store and audit sink names.
const (
	StoreMemory   = sequence.StoreMemory
	StoreRandom   = sequence.StoreRandom
	StoreRedis    = sequence.StoreRedis
	StorePostgres = sequence.StorePostgres
	StoreBolt     = sequence.StoreBolt

	AuditMemory   = "memory"
	AuditKafka    = "kafka"
	AuditPostgres = "postgres"
)

var (
	sequenceStores = []string{StoreMemory, StoreRandom, StoreRedis, StorePostgres, StoreBolt}
	auditStores    = []string{AuditMemory, AuditKafka, AuditPostgres}
	databaseDriver = []string{"postgres", "pgx"}
)

// Config captures process configuration read from the environment.
type Config struct {
	Addr            string        `env:"PRMS_ADDR" envDefault:":8080"`
	SiteCode        string        `env:"PRMS_SITE_CODE" envDefault:"KTH"`
	SequenceStore   string        `env:"PRMS_SEQUENCE_STORE" envDefault:"memory"`
	ShutdownTimeout time.Duration `env:"PRMS_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	RedisURL          string        `env:"REDIS_URL"`
	RedisKeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"prms:pid:seq:"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisDialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	RedisReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	RedisWriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseDriver   string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"10"`

	BoltPath string `env:"BOLT_PATH" envDefault:"prms-sequences.db"`

	MQTTBroker           string `env:"MQTT_BROKER"`
	MQTTClientID         string `env:"MQTT_CLIENT_ID" envDefault:"prms-server"`
	MQTTUsername         string `env:"MQTT_USERNAME"`
	MQTTPassword         string `env:"MQTT_PASSWORD"`
	WristbandTopicPrefix string `env:"WRISTBAND_TOPIC_PREFIX" envDefault:"prms/wristband"`
	WristbandPrinter     string `env:"WRISTBAND_DEFAULT_PRINTER" envDefault:"admissions"`

	AuditStore   string   `env:"AUDIT_STORE" envDefault:"memory"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"prms.audit.v1"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.KafkaBrokers = pstrings.CleanList(cfg.KafkaBrokers)
	cfg.CORSAllowedOrigins = pstrings.CleanListFold(cfg.CORSAllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(sequenceStores, c.SequenceStore) {
		errs = append(errs, fmt.Errorf("PRMS_SEQUENCE_STORE %q must be one of %v", c.SequenceStore, sequenceStores))
	}
	if c.SequenceStore == StoreRedis && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for the redis sequence store"))
	}
	if c.SequenceStore == StorePostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres sequence store"))
	}
	if !slices.Contains(auditStores, c.AuditStore) {
		errs = append(errs, fmt.Errorf("AUDIT_STORE %q must be one of %v", c.AuditStore, auditStores))
	}
	if c.AuditStore == AuditKafka && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka audit store"))
	}
	if c.AuditStore == AuditPostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres audit store"))
	}
	if !slices.Contains(databaseDriver, c.DatabaseDriver) {
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q must be one of %v", c.DatabaseDriver, databaseDriver))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Redis returns the Redis connection settings.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     c.RedisPoolSize,
		MinIdleConns: c.RedisMinIdleConns,
		DialTimeout:  c.RedisDialTimeout,
		ReadTimeout:  c.RedisReadTimeout,
		WriteTimeout: c.RedisWriteTimeout,
	}
}

// NeedsDatabase reports whether any component uses PostgreSQL.
func (c Config) NeedsDatabase() bool {
	return c.SequenceStore == StorePostgres || c.AuditStore == AuditPostgres
}
