package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prms/internal/pid/sequence"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "KTH", cfg.SiteCode)
	assert.Equal(t, StoreMemory, cfg.SequenceStore)
	assert.Equal(t, AuditMemory, cfg.AuditStore)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "prms.audit.v1", cfg.AuditTopic)
	assert.False(t, cfg.NeedsDatabase())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PRMS_SITE_CODE", "UPP")
	t.Setenv("PRMS_SEQUENCE_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_DIAL_TIMEOUT", "250ms")
	t.Setenv("AUDIT_STORE", "kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://prms.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "UPP", cfg.SiteCode)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://prms.example.org"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, RedisConfig{
		URL:          "redis://localhost:6379/0",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  250 * time.Millisecond,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, cfg.Redis())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{SequenceStore: StoreMemory, AuditStore: AuditMemory, DatabaseDriver: "postgres", LogFormat: "json"}
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown store", func(c *Config) { c.SequenceStore = "etcd" }, "PRMS_SEQUENCE_STORE"},
		{"redis without url", func(c *Config) { c.SequenceStore = StoreRedis }, "REDIS_URL"},
		{"postgres without url", func(c *Config) { c.SequenceStore = StorePostgres }, "DATABASE_URL"},
		{"kafka without brokers", func(c *Config) { c.AuditStore = AuditKafka }, "KAFKA_BROKERS"},
		{"postgres audit without url", func(c *Config) { c.AuditStore = AuditPostgres }, "DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "DATABASE_DRIVER"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestLoadCleansLists(t *testing.T) {
	t.Setenv("AUDIT_STORE", "kafka")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-1:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://PRMS.example.org,https://prms.example.org")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://prms.example.org"}, cfg.CORSAllowedOrigins)

	t.Setenv("KAFKA_BROKERS", " , ")
	_, err = Load()
	assert.ErrorContains(t, err, "KAFKA_BROKERS")
}

func TestValidateAcceptsEverySequenceStore(t *testing.T) {
	for _, store := range []string{
		sequence.StoreMemory,
		sequence.StoreRandom,
		sequence.StoreRedis,
		sequence.StorePostgres,
		sequence.StoreBolt,
	} {
		t.Run(store, func(t *testing.T) {
			cfg := Config{
				SequenceStore:  store,
				AuditStore:     AuditMemory,
				DatabaseDriver: "postgres",
				LogFormat:      "json",
				RedisURL:       "redis://localhost:6379/0",
				DatabaseURL:    "postgres://localhost/prms",
			}
			assert.NoError(t, cfg.Validate())
		})
	}
}
