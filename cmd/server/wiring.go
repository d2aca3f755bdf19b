package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"prms/internal/pid"
	pidmetrics "prms/internal/pid/metrics"
	"prms/internal/pid/sequence"
	"prms/internal/pid/service"
	"prms/internal/platform/config"
	"prms/internal/platform/mqtt"
	"prms/internal/platform/postgres"
	"prms/internal/platform/redis"
	httptransport "prms/internal/transport/http"
	"prms/internal/wristband"
	audit "prms/pkg/platform/audit"
	"prms/pkg/platform/audit/publishers/compliance"
	"prms/pkg/platform/audit/publishers/kafka"
	"prms/pkg/platform/audit/publishers/ops"
	"prms/pkg/platform/audit/publishers/security"
	auditmemory "prms/pkg/platform/audit/store/memory"
	auditpostgres "prms/pkg/platform/audit/store/postgres"
)

// dependencies owns every external connection the server opens.
type dependencies struct {
	allocator    pid.SequenceAllocator
	auditStore   audit.Store
	security     *security.Publisher
	printer      *wristband.Dispatcher
	healthChecks map[string]httptransport.HealthCheck
	closers      []func()
}

func (d *dependencies) onClose(fn func()) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDependencies(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *dependencies, err error) {
	d := &dependencies{healthChecks: map[string]httptransport.HealthCheck{}}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	var db *sql.DB
	if cfg.NeedsDatabase() {
		db, err = postgres.Open(ctx, postgres.Config{
			URL:      cfg.DatabaseURL,
			Driver:   cfg.DatabaseDriver,
			MaxConns: cfg.DatabaseMaxConns,
		})
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = db.Close() })
		d.healthChecks["postgres"] = db.PingContext
	}

	if d.allocator, err = openAllocator(ctx, cfg, db, d, log); err != nil {
		return nil, err
	}
	if d.auditStore, err = openAuditStore(ctx, cfg, db, d, log); err != nil {
		return nil, err
	}
	d.security = security.New(d.auditStore,
		security.WithLogger(log),
		security.WithMetrics(security.NewMetrics()),
	)

	client, err := mqtt.New(ctx, mqtt.Config{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		return nil, err
	}
	if client != nil {
		d.onClose(func() { _ = client.Close() })
		d.healthChecks["mqtt"] = client.Health
		d.printer, err = wristband.NewDispatcher(client,
			wristband.WithTopicPrefix(cfg.WristbandTopicPrefix),
			wristband.WithDefaultPrinter(cfg.WristbandPrinter),
		)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("MQTT_BROKER not set; wristband printing disabled")
	}
	return d, nil
}

func openAllocator(ctx context.Context, cfg config.Config, db *sql.DB, d *dependencies, log *slog.Logger) (pid.SequenceAllocator, error) {
	switch cfg.SequenceStore {
	case config.StoreMemory:
		log.Warn("in-memory sequence store: identifiers repeat after restart")
		return sequence.NewInMemory(), nil
	case config.StoreRandom:
		log.Warn("random sequence store: identifiers are not unique, demo use only")
		return sequence.NewRandom(), nil
	case config.StoreRedis:
		client, err := redis.Open(ctx, cfg.Redis())
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = client.Close() })
		d.healthChecks["redis"] = redis.HealthCheck(client)
		return sequence.NewRedis(client, sequence.WithKeyPrefix(cfg.RedisKeyPrefix)), nil
	case config.StorePostgres:
		return sequence.NewPostgres(db), nil
	case config.StoreBolt:
		a, err := sequence.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = a.Close() })
		return a, nil
	default:
		return nil, fmt.Errorf("unknown sequence store %q", cfg.SequenceStore)
	}
}

func openAuditStore(ctx context.Context, cfg config.Config, db *sql.DB, d *dependencies, log *slog.Logger) (audit.Store, error) {
	switch cfg.AuditStore {
	case config.AuditMemory:
		return auditmemory.NewInMemoryStore(), nil
	case config.AuditPostgres:
		return auditpostgres.New(db), nil
	case config.AuditKafka:
		store, err := kafka.New(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return nil, err
		}
		d.onClose(store.Close)
		d.healthChecks["kafka"] = store.Ping
		// Clusters that forbid topic creation still work if the topic was
		// provisioned out of band.
		if err := store.EnsureTopic(ctx, -1, -1); err != nil {
			log.WarnContext(ctx, "could not ensure audit topic", "topic", cfg.AuditTopic, "error", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown audit store %q", cfg.AuditStore)
	}
}

func newService(cfg config.Config, d *dependencies, log *slog.Logger, m *pidmetrics.Metrics) (*service.Service, error) {
	codec, err := pid.New(pid.Config{SiteCode: cfg.SiteCode}, d.allocator)
	if err != nil {
		return nil, err
	}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithSecurityAuditor(d.security),
		service.WithOpsTracker(ops.New(d.auditStore,
			ops.WithLogger(log),
			ops.WithMetrics(ops.NewMetrics()),
		)),
	}
	if d.printer != nil {
		opts = append(opts, service.WithWristbandPrinter(d.printer))
	}
	return service.New(codec,
		compliance.New(d.auditStore,
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics()),
		),
		opts...,
	)
}
