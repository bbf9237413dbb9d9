package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/locus/internal/adapters/memory"
	natsadapter "github.com/samirrijal/locus/internal/adapters/nats"
	"github.com/samirrijal/locus/internal/adapters/postgres"
	"github.com/samirrijal/locus/internal/adapters/valkey"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/core/usecases"
	"github.com/samirrijal/locus/internal/pkg/config"
	"github.com/samirrijal/locus/internal/pkg/logging"
	"github.com/samirrijal/locus/internal/pkg/metrics"
)

const consumerName = "locus-notifier"

func main() {
	cfg, err := config.Load(consumerName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		repo  ports.LocationSetRepository
		audit ports.AuditRepository
	)
	if cfg.Registry.Storage == "memory" {
		repo = memory.NewRegistryRepo()
	} else {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewLocationSetRepo(db)
		audit = postgres.NewAuditRepo(db)
	}

	var cachePort ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable, cache will not be warmed", "error", err)
	} else {
		defer cache.Close()
		cachePort = cache
	}

	svc := usecases.NewRegistrationService(usecases.NewValidator(cfg.Registry.Params()), repo, nil, cachePort)
	auditSvc := usecases.NewAuditService(svc, audit, consumerName)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, consumerName)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	logger := slog.Default().With("consumer", consumerName)
	if err := subscribe(logging.WithLogger(ctx, logger), sub, auditSvc); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// Metrics only
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	logger.Info("notifier started", "subject", natsadapter.SubjectRegistered)
	<-ctx.Done()

	logger.Info("shutting down")
	_ = app.Shutdown()
}

func subscribe(ctx context.Context, events ports.EventSubscriber, audit *usecases.AuditService) error {
	return events.SubscribeRegistrations(ctx, audit.HandleRegistration)
}
