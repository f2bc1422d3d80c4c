// Package app wires the custody subsystem from configuration. The server and
// the operator CLI share it so both run the same services over the same store.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodian/internal/audit"
	"custodian/internal/audit/stream"
	"custodian/internal/custody"
	custodymetrics "custodian/internal/custody/metrics"
	"custodian/internal/evidence"
	evidencemetrics "custodian/internal/evidence/metrics"
	"custodian/internal/filestore"
	"custodian/internal/platform/config"
	"custodian/internal/platform/redis"
	"custodian/internal/qa"
	"custodian/internal/signer"
	"custodian/internal/storage/memory"
	"custodian/internal/storage/postgres"
)

// Store is everything the services need from a backend. Both the memory and
// the Postgres store satisfy it.
type Store interface {
	evidence.Store
	custody.Store
	audit.Store
	qa.Store
}

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    Store
	DB       *sql.DB
	Redis    *redis.Client
	Kafka    *kgo.Client
	Files    *filestore.Store
	Signer   *signer.Signer
	Ledger   *custody.Ledger
	Audit    *audit.Service
	Custody  *custody.Service
	Evidence *evidence.Service
	QA       *qa.Service

	closers []func() error
}

type options struct {
	registerer prometheus.Registerer
	store      Store
}

type Option func(*options)

// WithRegisterer sends module metrics to reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithStore bypasses the configured database, for tests and tools.
func WithStore(store Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// New connects the configured backends and builds every service. An empty
// database URL selects the in-memory store; no Redis URL disables the audit
// spill queue; no Kafka brokers disables the security stream.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.connect(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.build(o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context, o options) error {
	cfg := a.Config
	switch {
	case o.store != nil:
		a.Store = o.store
	case cfg.Database.URL == "":
		a.Logger.WarnContext(ctx, "no database configured, using in-memory store")
		a.Store = memory.New()
	default:
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		a.Store = postgres.New(db, postgres.WithTxTimeout(cfg.Database.TxTimeout))
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		a.Redis = client
		a.closers = append(a.closers, client.Close)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kc, err := stream.NewClient(cfg.Kafka.Brokers, cfg.Kafka.SecurityTopic)
		if err != nil {
			return err
		}
		a.Kafka = kc
		a.closers = append(a.closers, func() error { kc.Close(); return nil })
	}
	return nil
}

func (a *App) build(o options) error {
	cfg := a.Config

	files, err := filestore.New(cfg.Evidence.Root, cfg.Evidence.Extensions)
	if err != nil {
		return fmt.Errorf("evidence file store: %w", err)
	}
	a.Files = files

	sign, err := signer.New(cfg.Signing.Secret, signer.WithCost(cfg.Signing.ScryptCost))
	if err != nil {
		return fmt.Errorf("integrity signer: %w", err)
	}
	a.Signer = sign
	a.Ledger = custody.NewLedger(sign, a.Store)

	auditOpts := []audit.Option{
		audit.WithLogger(a.Logger),
		audit.WithMetrics(audit.NewMetrics(o.registerer)),
	}
	if a.Redis != nil {
		auditOpts = append(auditOpts, audit.WithSpill(audit.NewRedisSpill(a.Redis.Client, cfg.Redis.SpillKey)))
	}
	a.Audit = audit.New(a.Store, auditOpts...)

	custodyOpts := []custody.Option{
		custody.WithLogger(a.Logger),
		custody.WithMetrics(custodymetrics.New(o.registerer)),
	}
	if a.Kafka != nil {
		publisher := stream.New(a.Kafka, cfg.Kafka.SecurityTopic,
			stream.WithLogger(a.Logger),
			stream.WithMetrics(stream.NewMetrics(o.registerer)),
		)
		custodyOpts = append(custodyOpts, custody.WithSecurityPublisher(publisher))
	}
	a.Custody = custody.New(a.Store, a.Ledger, a.Audit, custodyOpts...)

	a.Evidence = evidence.New(a.Store, a.Ledger, a.Audit,
		evidence.WithLogger(a.Logger),
		evidence.WithMetrics(evidencemetrics.New(o.registerer)),
		evidence.WithFileStore(files),
		evidence.WithCustodyReader(a.Custody),
	)
	a.QA = qa.New(a.Store, a.Audit,
		qa.WithLogger(a.Logger),
		qa.WithMetrics(qa.NewMetrics(o.registerer)),
	)
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
