package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/locus/internal/adapters/memory"
	natsadapter "github.com/samirrijal/locus/internal/adapters/nats"
	"github.com/samirrijal/locus/internal/adapters/postgres"
	"github.com/samirrijal/locus/internal/adapters/valkey"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/core/usecases"
	"github.com/samirrijal/locus/internal/pkg/config"
	"github.com/samirrijal/locus/internal/pkg/logging"
	"github.com/samirrijal/locus/internal/pkg/telemetry"
	"github.com/samirrijal/locus/internal/workflows"
)

func main() {
	cfg, err := config.Load("locus-registrar")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	var repo ports.LocationSetRepository
	if cfg.Registry.Storage == "memory" {
		// Only useful next to an API process sharing nothing; for local runs.
		repo = memory.NewRegistryRepo()
	} else {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewLocationSetRepo(db)
	}

	var cachePort ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cachePort = cache
	}

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	svc := usecases.NewRegistrationService(usecases.NewValidator(cfg.Registry.Params()), repo, publisher, cachePort)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RegistrationWorkflow)
	w.RegisterActivity(&workflows.RegistrationActivities{Registrations: svc})

	slog.Info("registrar worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
