package memory

import (
	"context"
	"sync"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
)

// RegistryRepo implements ports.LocationSetRepository in process memory.
// Commits replace the registry with an extended copy, so a snapshot handed
// out earlier never changes.
type RegistryRepo struct {
	mu       sync.RWMutex
	registry *domain.Registry
	regs     map[domain.LocationSetID]*domain.Registration
}

// NewRegistryRepo creates an empty registry.
func NewRegistryRepo() *RegistryRepo {
	return &RegistryRepo{
		registry: domain.NewRegistry(),
		regs:     make(map[domain.LocationSetID]*domain.Registration),
	}
}

// Snapshot returns the current registry. Callers must not mutate it.
func (r *RegistryRepo) Snapshot(ctx context.Context) (*domain.Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry, nil
}

// Commit verifies reg against the current registry and appends it.
func (r *RegistryRepo) Commit(ctx context.Context, reg *domain.Registration, verify ports.VerifyFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registry.Contains(reg.ID) {
		return domain.ErrDuplicate
	}
	if verify != nil {
		if err := verify(r.registry); err != nil {
			return err
		}
	}

	next := r.registry.Clone()
	if err := next.Append(reg.ID, reg.Set); err != nil {
		return err
	}
	stored := *reg
	stored.Set = reg.Set.Clone()
	r.registry = next
	r.regs[reg.ID] = &stored
	return nil
}

// GetByID returns a copy of the registration stored under id.
func (r *RegistryRepo) GetByID(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *reg
	out.Set = reg.Set.Clone()
	return &out, nil
}

// ListIDs returns ids in registration order.
func (r *RegistryRepo) ListIDs(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.registry.IDs()
	total := len(ids)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.LocationSetID{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return ids[offset:end], total, nil
}

// Stats returns registry totals.
func (r *RegistryRepo) Stats(ctx context.Context) (domain.RegistryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.RegistryStats{
		LocationSets: r.registry.Len(),
		Locations:    r.registry.LocationCount(),
	}, nil
}
