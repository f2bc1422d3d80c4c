package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"custodian/internal/app"
	"custodian/internal/audit"
	audithandler "custodian/internal/audit/handler"
	custodyhandler "custodian/internal/custody/handler"
	evidencehandler "custodian/internal/evidence/handler"
	jwttoken "custodian/internal/jwt_token"
	"custodian/internal/platform/config"
	"custodian/internal/platform/httpserver"
	"custodian/internal/platform/logger"
	"custodian/internal/platform/metrics"
	qahandler "custodian/internal/qa/handler"
	httptransport "custodian/internal/transport/http"
)

const (
	tokenIssuer   = "custodian"
	tokenAudience = "custodian-api"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	configPath := flag.String("config", os.Getenv("CUSTODIAN_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDevSecrets() {
		log.Warn("running with development secrets; set SIGNING_SECRET and JWT_SIGNING_KEY", "log_type", "security")
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing backends", "error", err)
		}
	}()

	checks := map[string]httptransport.HealthCheck{}
	if a.DB != nil {
		checks["postgres"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Health
	}
	if a.Kafka != nil {
		checks["kafka"] = a.Kafka.Ping
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:        log,
		Authenticator: jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience),
		Metrics:       metrics.New(prometheus.DefaultRegisterer),
		Checks:        checks,
		Handlers: []httptransport.Registrar{
			audithandler.New(a.Audit, log),
			custodyhandler.New(a.Custody, log),
			evidencehandler.New(a.Evidence, log, cfg.Server.MaxUpload),
			qahandler.New(a.QA, log),
		},
	})
	srv := httpserver.New(cfg.Server.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting custodian", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.Redis != nil && cfg.Redis.ReplayEvery > 0 {
		worker := audit.NewReplayWorker(a.Audit, cfg.Redis.ReplayEvery, log)
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "grace", cfg.Server.ShutdownGrace)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
