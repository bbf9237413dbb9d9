package ports

import (
	"context"

	"github.com/samirrijal/locus/internal/core/domain"
)

// RegistrySnapshot is a read-only view of the registry at one point in time.
// *domain.Registry implements it.
type RegistrySnapshot interface {
	Contains(id domain.LocationSetID) bool
	Lookup(id domain.LocationSetID) (domain.LocationSet, bool)
	IDs() []domain.LocationSetID
}

// VerifyFunc re-checks a registration against the registry as it stands at
// commit time. A non-nil error aborts the commit.
type VerifyFunc func(snapshot RegistrySnapshot) error

// LocationSetRepository persists accepted location sets.
type LocationSetRepository interface {
	// Snapshot returns the registry as currently committed.
	Snapshot(ctx context.Context) (*domain.Registry, error)
	// Commit stores reg atomically. verify runs against the committed
	// registry while the repository holds its write lock; it returns
	// domain.ErrDuplicate if the id is already registered.
	Commit(ctx context.Context, reg *domain.Registration, verify VerifyFunc) error
	GetByID(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error)
	ListIDs(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error)
	Stats(ctx context.Context) (domain.RegistryStats, error)
}

// AuditRepository records registry events as they are consumed.
type AuditRepository interface {
	// RecordRegistration is idempotent per location set id.
	RecordRegistration(ctx context.Context, event *domain.RegistrationAccepted) error
}
