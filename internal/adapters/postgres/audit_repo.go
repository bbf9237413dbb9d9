package postgres

import (
	"context"

	"github.com/samirrijal/locus/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository with pgx.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// RecordRegistration stores one audit row per id; redeliveries are ignored.
func (r *AuditRepo) RecordRegistration(ctx context.Context, e *domain.RegistrationAccepted) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO registration_audit (id, proposer, locations)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, e.ID[:], e.Proposer[:], e.Locations)
	return err
}
