package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/samirrijal/locus/internal/adapters/postgres"
	"github.com/samirrijal/locus/internal/pkg/config"
	"github.com/samirrijal/locus/internal/pkg/logging"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_name.up.sql / .down.sql files")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: migrate [-dir migrations] <up|down>")
	}
	direction := flag.Arg(0)
	if direction != "up" && direction != "down" {
		log.Fatalf("unknown command: %s", direction)
	}

	cfg, err := config.Load("locus-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, *dir, direction); err != nil {
		log.Fatalf("migrate %s: %v", direction, err)
	}
	log.Printf("migrations %s complete", direction)
}
