package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/pkg/fixed"
)

// registryLockKey is the transaction-scoped advisory lock serialising commits
// across every process sharing the database.
const registryLockKey int64 = 0x6c6f637573 // "locus"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LocationSetRepo implements ports.LocationSetRepository with pgx.
type LocationSetRepo struct {
	db *DB
}

// NewLocationSetRepo creates a new LocationSetRepo.
func NewLocationSetRepo(db *DB) *LocationSetRepo {
	return &LocationSetRepo{db: db}
}

// Snapshot loads every committed set in registration order.
func (r *LocationSetRepo) Snapshot(ctx context.Context) (*domain.Registry, error) {
	return loadRegistry(ctx, r.db.Pool)
}

// Commit stores reg in one transaction. The advisory lock makes verify and
// the insert atomic with respect to other committers.
func (r *LocationSetRepo) Commit(ctx context.Context, reg *domain.Registration, verify ports.VerifyFunc) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registryLockKey); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM location_sets WHERE id = $1)`, reg.ID[:],
	).Scan(&exists); err != nil {
		return fmt.Errorf("uniqueness check: %w", err)
	}
	if exists {
		return domain.ErrDuplicate
	}

	if verify != nil {
		snapshot, err := loadRegistry(ctx, tx)
		if err != nil {
			return err
		}
		if err := verify(snapshot); err != nil {
			return err
		}
	}

	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO location_sets (id, proposer, registered_at)
		VALUES ($1, $2, $3)
		RETURNING seq
	`, reg.ID[:], reg.Proposer[:], reg.RegisteredAt).Scan(&seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert location set: %w", err)
	}

	batch := &pgx.Batch{}
	for i, l := range reg.Set.Locations {
		batch.Queue(`
			INSERT INTO locations (set_seq, position, lat_bits, lon_bits)
			VALUES ($1, $2, $3, $4)
		`, seq, i, l.Lat.Bits(), l.Lon.Bits())
	}
	for i, a := range reg.Set.Bootstrappers {
		batch.Queue(`
			INSERT INTO bootstrappers (set_seq, position, account)
			VALUES ($1, $2, $3)
		`, seq, i, a[:])
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns a registration by id.
func (r *LocationSetRepo) GetByID(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error) {
	var (
		seq      int64
		proposer []byte
		at       time.Time
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT seq, proposer, registered_at FROM location_sets WHERE id = $1
	`, id[:]).Scan(&seq, &proposer, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	reg := &domain.Registration{ID: id, RegisteredAt: at.UTC()}
	copy(reg.Proposer[:], proposer)

	sets, err := loadMembers(ctx, r.db.Pool, `WHERE set_seq = $1`, seq)
	if err != nil {
		return nil, err
	}
	if s, ok := sets[seq]; ok {
		reg.Set = *s
	}
	return reg, nil
}

// ListIDs returns a page of ids in registration order and the total count.
func (r *LocationSetRepo) ListIDs(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM location_sets`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id FROM location_sets ORDER BY seq OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ids := make([]domain.LocationSetID, 0, limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, err
		}
		var id domain.LocationSetID
		copy(id[:], raw)
		ids = append(ids, id)
	}
	return ids, total, rows.Err()
}

// Stats returns registry totals.
func (r *LocationSetRepo) Stats(ctx context.Context) (domain.RegistryStats, error) {
	var s domain.RegistryStats
	err := r.db.Pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM location_sets), (SELECT count(*) FROM locations)
	`).Scan(&s.LocationSets, &s.Locations)
	return s, err
}

// loadRegistry rebuilds the registry from the three tables.
func loadRegistry(ctx context.Context, q querier) (*domain.Registry, error) {
	rows, err := q.Query(ctx, `SELECT seq, id FROM location_sets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load location sets: %w", err)
	}
	type entry struct {
		seq int64
		id  domain.LocationSetID
	}
	var order []entry
	for rows.Next() {
		var (
			e   entry
			raw []byte
		)
		if err := rows.Scan(&e.seq, &raw); err != nil {
			rows.Close()
			return nil, err
		}
		copy(e.id[:], raw)
		order = append(order, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sets, err := loadMembers(ctx, q, "", nil)
	if err != nil {
		return nil, err
	}

	registry := domain.NewRegistry()
	for _, e := range order {
		var set domain.LocationSet
		if s, ok := sets[e.seq]; ok {
			set = *s
		}
		if err := registry.Append(e.id, set); err != nil {
			return nil, fmt.Errorf("registry %s: %w", e.id, err)
		}
	}
	return registry, nil
}

// loadMembers reads locations and bootstrappers, keyed by set_seq. where is
// an optional filter on set_seq; arg is its parameter.
func loadMembers(ctx context.Context, q querier, where string, arg any) (map[int64]*domain.LocationSet, error) {
	var args []any
	if arg != nil {
		args = append(args, arg)
	}
	sets := make(map[int64]*domain.LocationSet)
	get := func(seq int64) *domain.LocationSet {
		s, ok := sets[seq]
		if !ok {
			s = &domain.LocationSet{}
			sets[seq] = s
		}
		return s
	}

	rows, err := q.Query(ctx, `SELECT set_seq, lat_bits, lon_bits FROM locations `+where+` ORDER BY set_seq, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	for rows.Next() {
		var seq, lat, lon int64
		if err := rows.Scan(&seq, &lat, &lon); err != nil {
			rows.Close()
			return nil, err
		}
		s := get(seq)
		s.Locations = append(s.Locations, domain.Location{Lat: fixed.FromBits(lat), Lon: fixed.FromBits(lon)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `SELECT set_seq, account FROM bootstrappers `+where+` ORDER BY set_seq, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("load bootstrappers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			seq int64
			raw []byte
		)
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, err
		}
		var a domain.AccountID
		copy(a[:], raw)
		s := get(seq)
		s.Bootstrappers = append(s.Bootstrappers, a)
	}
	return sets, rows.Err()
}
