package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samirrijal/locus/internal/adapters/memory"
	natsadapter "github.com/samirrijal/locus/internal/adapters/nats"
	"github.com/samirrijal/locus/internal/adapters/postgres"
	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/core/usecases"
	"github.com/samirrijal/locus/internal/pkg/config"
	"github.com/samirrijal/locus/internal/pkg/logging"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

// Manifest lists location sets to register, typically the genesis sets of
// a new registry. Entries are proposed in file order; order matters because
// each set is validated against the ones before it.
type Manifest struct {
	Source       string          `json:"source"`
	LocationSets []LocationEntry `json:"location_sets"`
}

type LocationEntry struct {
	Name          string             `json:"name"`
	Proposer      domain.AccountID   `json:"proposer"`
	Locations     []domain.Location  `json:"locations"`
	Bootstrappers []domain.AccountID `json:"bootstrappers"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	dryRun := flag.Bool("dry-run", false, "validate against the registry without committing")
	only := flag.String("only", "", "comma-separated entry names to import")
	flag.Parse()

	cfg, err := config.Load("locus-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	manifestPath := "manifest.json"
	if flag.NArg() > 0 {
		manifestPath = flag.Arg(0)
	}
	manifest, err := loadManifest(ctx, manifestPath)
	if err != nil {
		log.Fatalf("load manifest: %v", err)
	}
	slog.Info("locus importer", "location_sets", len(manifest.LocationSets), "source", manifest.Source, "dry_run", *dryRun)

	var repo ports.LocationSetRepository
	if cfg.Registry.Storage == "memory" {
		repo = memory.NewRegistryRepo()
	} else {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		repo = postgres.NewLocationSetRepo(db)
	}

	var publisher ports.EventPublisher
	if !*dryRun {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, registrations will not be announced", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	svc := usecases.NewRegistrationService(usecases.NewValidator(cfg.Registry.Params()), repo, publisher, nil)

	filter := map[string]bool{}
	for _, name := range strings.Split(*only, ",") {
		if name = strings.TrimSpace(name); name != "" {
			filter[name] = true
		}
	}

	report := importAll(ctx, svc, manifest, filter, *dryRun, cfg.Registry.MaxLocationsPerSet)
	slog.Info("import complete",
		"accepted", report.accepted,
		"rejected", report.rejected,
		"failed", report.failed,
		"skipped", report.skipped,
	)
	if report.failed > 0 {
		os.Exit(1)
	}
}

type importReport struct {
	accepted, rejected, failed, skipped int
}

// importAll proposes entries one by one. A rejection is reported and the
// import continues; an infrastructure error stops it, since later entries
// would be validated against an incomplete registry.
func importAll(ctx context.Context, svc *usecases.RegistrationService, m *Manifest, filter map[string]bool, dryRun bool, maxLocations int) importReport {
	var r importReport
	for i, e := range m.LocationSets {
		if len(filter) > 0 && !filter[e.Name] {
			r.skipped++
			continue
		}
		logger := slog.With("entry", i, "name", e.Name)
		if maxLocations > 0 && len(e.Locations) > maxLocations {
			logger.Warn("entry exceeds max_locations_per_set", "locations", len(e.Locations))
			r.rejected++
			continue
		}

		set := domain.LocationSet{Locations: e.Locations, Bootstrappers: e.Bootstrappers}
		var err error
		if dryRun {
			_, err = svc.Check(ctx, set)
		} else {
			_, err = svc.Propose(ctx, e.Proposer, set)
		}

		var rej *domain.RejectionError
		switch {
		case err == nil:
			logger.Info("accepted", "location_set_id", set.ID().String())
			r.accepted++
		case errors.As(err, &rej):
			logger.Warn("rejected", "reason", rej.Reason, "detail", rej.Error())
			r.rejected++
		default:
			logger.Error("import failed", "error", err)
			r.failed++
			return r
		}
	}
	return r
}

// loadManifest reads a manifest from a file path or an http(s) URL.
func loadManifest(ctx context.Context, src string) (*Manifest, error) {
	var data []byte
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		client := &http.Client{Timeout: 60 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
		}
		if data, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
	} else {
		var err error
		if data, err = os.ReadFile(src); err != nil {
			return nil, err
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
