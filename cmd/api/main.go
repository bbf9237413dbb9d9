package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/samirrijal/locus/internal/adapters/http"
	"github.com/samirrijal/locus/internal/adapters/memory"
	natsadapter "github.com/samirrijal/locus/internal/adapters/nats"
	"github.com/samirrijal/locus/internal/adapters/postgres"
	"github.com/samirrijal/locus/internal/adapters/valkey"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/core/usecases"
	"github.com/samirrijal/locus/internal/pkg/config"
	"github.com/samirrijal/locus/internal/pkg/logging"
	"github.com/samirrijal/locus/internal/pkg/metrics"
	"github.com/samirrijal/locus/internal/pkg/telemetry"
	"github.com/samirrijal/locus/internal/workflows"
)

func main() {
	cfg, err := config.Load("locus-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		Geo:                usecases.NewGeoService(cfg.Registry.Params()),
		MaxLocationsPerSet: cfg.Registry.MaxLocationsPerSet,
	}

	// Registry storage
	var repo ports.LocationSetRepository
	switch cfg.Registry.Storage {
	case "memory":
		slog.Warn("registry is held in memory and will not survive a restart")
		repo = memory.NewRegistryRepo()
	default:
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deps.DB = db
		repo = postgres.NewLocationSetRepo(db)
		go reportPoolStats(ctx, db)
	}

	// Cache and publisher are optional; keep the interfaces nil when absent.
	var cachePort ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
		cachePort = cache
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	// Temporal, for ?async=true proposals
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		slog.Warn("temporal unavailable, asynchronous registration disabled", "error", err)
	} else {
		defer tc.Close()
		deps.Workflows = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	}

	validator := usecases.NewValidator(cfg.Registry.Params())
	deps.Registrations = usecases.NewRegistrationService(validator, repo, publisher, cachePort)

	if stats, err := deps.Registrations.Stats(ctx); err != nil {
		slog.Warn("registry stats unavailable", "error", err)
	} else {
		slog.Info("registry loaded", "location_sets", stats.LocationSets, "locations", stats.Locations)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // a full set of 4096 locations is ~200 KB of JSON
		AppName:      "Locus Registry",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "storage", cfg.Registry.Storage)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats copies pgxpool statistics into the metrics gauges.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
