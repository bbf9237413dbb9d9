package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/locus/internal/pkg/config"
)

// DB wraps pgxpool.Pool and provides a shared connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// PoolConfig builds the pool settings from the database section of the
// service config. It does not connect.
func PoolConfig(dc config.DatabaseConfig) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dc.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if dc.MaxConns > 0 {
		cfg.MaxConns = dc.MaxConns
	}
	if dc.MinConns > 0 {
		cfg.MinConns = dc.MinConns
	}
	if dc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = time.Duration(dc.MaxConnLifetime) * time.Second
	}
	if dc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = time.Duration(dc.MaxConnIdleTime) * time.Second
	}
	return cfg, nil
}

// New opens the pool and pings the server once.
func New(ctx context.Context, dc config.DatabaseConfig) (*DB, error) {
	cfg, err := PoolConfig(dc)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s:%d/%s: %w", dc.Host, dc.Port, dc.DBName, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d: %w", dc.Host, dc.Port, err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases pool resources.
func (db *DB) Close() {
	db.Pool.Close()
}
