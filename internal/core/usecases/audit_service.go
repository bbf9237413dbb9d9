package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/pkg/logging"
	"github.com/samirrijal/locus/internal/pkg/metrics"
)

// Outcome labels of consumed registry events.
const (
	ConsumeOK       = "ok"
	ConsumeNotFound = "not_found"
	ConsumeError    = "error"
)

// AuditService reacts to accepted registrations: it warms the registration
// cache and records an audit row.
type AuditService struct {
	registrations *RegistrationService
	audit         ports.AuditRepository
	consumer      string
}

// NewAuditService creates a new AuditService. audit may be nil, in which
// case only the cache is warmed.
func NewAuditService(registrations *RegistrationService, audit ports.AuditRepository, consumer string) *AuditService {
	return &AuditService{registrations: registrations, audit: audit, consumer: consumer}
}

// HandleRegistration processes one RegistrationAccepted event. A returned
// error asks for redelivery. Events naming a set this registry does not
// hold are logged and dropped.
func (s *AuditService) HandleRegistration(ctx context.Context, event *domain.RegistrationAccepted) error {
	logger := logging.FromContext(ctx).With("location_set_id", event.ID.String())

	reg, err := s.registrations.Get(ctx, event.ID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("registration event for unknown location set")
		metrics.EventsConsumed.WithLabelValues(s.consumer, ConsumeNotFound).Inc()
		return nil
	}
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(s.consumer, ConsumeError).Inc()
		return fmt.Errorf("load registration: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.RecordRegistration(ctx, event); err != nil {
			metrics.EventsConsumed.WithLabelValues(s.consumer, ConsumeError).Inc()
			return fmt.Errorf("record audit: %w", err)
		}
	}

	logger.Info("registration audited",
		"proposer", event.Proposer.String(),
		"locations", len(reg.Set.Locations),
		"registered_at", event.RegisteredAt,
	)
	metrics.EventsConsumed.WithLabelValues(s.consumer, ConsumeOK).Inc()
	return nil
}
