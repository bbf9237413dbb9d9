package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/pkg/logging"
	"github.com/samirrijal/locus/internal/pkg/metrics"
	"github.com/samirrijal/locus/internal/pkg/telemetry"
)

// registrationTTL is how long a registration stays cached. Registrations
// never change once committed.
const registrationTTL = 3600

// RegistrationService admits location sets into the registry.
type RegistrationService struct {
	// mu serialises proposals so validation and commit see the same registry.
	mu        sync.Mutex
	validator *Validator
	repo      ports.LocationSetRepository
	publisher ports.EventPublisher
	cache     ports.CacheService
	now       func() time.Time
}

// NewRegistrationService creates a new RegistrationService. publisher and
// cache may be nil.
func NewRegistrationService(
	validator *Validator,
	repo ports.LocationSetRepository,
	publisher ports.EventPublisher,
	cache ports.CacheService,
) *RegistrationService {
	return &RegistrationService{
		validator: validator,
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		now:       time.Now,
	}
}

// Params returns the separation constants in force.
func (s *RegistrationService) Params() domain.Params { return s.validator.Params() }

// Propose validates set against the registry and, if admissible, commits it
// on behalf of proposer. A rejected proposal returns a *domain.RejectionError
// and leaves the registry untouched.
func (s *RegistrationService) Propose(ctx context.Context, proposer domain.AccountID, set domain.LocationSet) (*domain.Registration, error) {
	id := set.ID()
	ctx, span := telemetry.Tracer().Start(ctx, "registry.Propose")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrLocationSetID.String(id.String()),
		telemetry.AttrLocations.Int(len(set.Locations)),
		telemetry.AttrBootstrappers.Int(len(set.Bootstrappers)),
	)
	log := logging.FromContext(ctx).With("location_set_id", id.String(), "locations", len(set.Locations))

	reg := &domain.Registration{
		ID:       id,
		Set:      set.Clone(),
		Proposer: proposer,
	}

	s.mu.Lock()
	reg.RegisteredAt = s.now().UTC()
	start := time.Now()
	err := s.repo.Commit(ctx, reg, func(snapshot ports.RegistrySnapshot) error {
		return s.validator.ValidateID(reg.Set, id, snapshot)
	})
	s.mu.Unlock()
	metrics.ValidationDuration.WithLabelValues("propose").Observe(time.Since(start).Seconds())

	if errors.Is(err, domain.ErrDuplicate) {
		conflict := id
		rej := domain.Reject(domain.ReasonDuplicateIdentifier, -1)
		rej.Conflict = &conflict
		err = rej
	}

	var rej *domain.RejectionError
	switch {
	case errors.As(err, &rej):
		metrics.ProposalsTotal.WithLabelValues(telemetry.OutcomeRejected).Inc()
		metrics.RejectionsTotal.WithLabelValues(string(rej.Reason)).Inc()
		span.SetAttributes(
			telemetry.AttrOutcome.String(telemetry.OutcomeRejected),
			telemetry.AttrRejectReason.String(string(rej.Reason)),
		)
		log.Info("location set rejected", "reason", rej.Reason, "index", rej.Index, "conflict", rej.Conflict)
		s.publishRejection(ctx, proposer, id, rej)
		return nil, rej

	case err != nil:
		metrics.ProposalsTotal.WithLabelValues(telemetry.OutcomeError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("commit location set", "error", err)
		return nil, fmt.Errorf("commit location set: %w", err)
	}

	metrics.ProposalsTotal.WithLabelValues(telemetry.OutcomeAccepted).Inc()
	span.SetAttributes(telemetry.AttrOutcome.String(telemetry.OutcomeAccepted))
	log.Info("location set registered", "proposer", proposer.String())

	s.cacheRegistration(ctx, reg)
	s.refreshGauges(ctx)

	if s.publisher != nil {
		event := &domain.RegistrationAccepted{
			Proposer:     proposer,
			ID:           id,
			Locations:    len(reg.Set.Locations),
			RegisteredAt: reg.RegisteredAt,
		}
		if err := s.publisher.PublishRegistration(ctx, event); err != nil {
			// The registration is committed; subscribers catch up from the store.
			log.Warn("publish registration", "error", err)
		}
	}

	return reg, nil
}

// Check runs the validator against the current registry without committing.
// It returns the set's id together with nil (admissible), a
// *domain.RejectionError, or an infrastructure error.
func (s *RegistrationService) Check(ctx context.Context, set domain.LocationSet) (domain.LocationSetID, error) {
	id := set.ID()
	ctx, span := telemetry.Tracer().Start(ctx, "registry.Check")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrLocationSetID.String(id.String()),
		telemetry.AttrLocations.Int(len(set.Locations)),
	)

	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return id, fmt.Errorf("load registry snapshot: %w", err)
	}
	span.SetAttributes(telemetry.AttrRegistrySets.Int(snapshot.Len()))

	start := time.Now()
	err = s.validator.ValidateID(set, id, snapshot)
	metrics.ValidationDuration.WithLabelValues("check").Observe(time.Since(start).Seconds())

	if reason, ok := domain.ReasonOf(err); ok {
		span.SetAttributes(
			telemetry.AttrOutcome.String(telemetry.OutcomeRejected),
			telemetry.AttrRejectReason.String(string(reason)),
		)
	} else {
		span.SetAttributes(telemetry.AttrOutcome.String(telemetry.OutcomeAccepted))
	}
	return id, err
}

// Get returns a registration by id.
func (s *RegistrationService) Get(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error) {
	cacheKey := registrationCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var reg domain.Registration
			if err := json.Unmarshal(data, &reg); err == nil {
				metrics.CacheHits.WithLabelValues("location_set").Inc()
				return &reg, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("location_set").Inc()
	}

	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheRegistration(ctx, reg)
	return reg, nil
}

// List returns a page of registered ids in registration order and the total
// number of registered sets.
func (s *RegistrationService) List(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListIDs(ctx, offset, limit)
}

// Stats returns registry totals and refreshes the registry gauges.
func (s *RegistrationService) Stats(ctx context.Context) (domain.RegistryStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("registry stats: %w", err)
	}
	metrics.SetRegistrySize(stats.LocationSets, stats.Locations)
	return stats, nil
}

func (s *RegistrationService) cacheRegistration(ctx context.Context, reg *domain.Registration) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(reg); err == nil {
		_ = s.cache.Set(ctx, registrationCacheKey(reg.ID), data, registrationTTL)
	}
}

func (s *RegistrationService) refreshGauges(ctx context.Context) {
	if _, err := s.Stats(ctx); err != nil {
		logging.FromContext(ctx).Warn("refresh registry gauges", "error", err)
	}
}

func (s *RegistrationService) publishRejection(ctx context.Context, proposer domain.AccountID, id domain.LocationSetID, rej *domain.RejectionError) {
	if s.publisher == nil {
		return
	}
	event := &domain.ProposalRejected{
		Proposer:   proposer,
		ID:         id,
		Reason:     rej.Reason,
		Index:      rej.Index,
		Conflict:   rej.Conflict,
		RejectedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishRejection(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish rejection", "error", err)
	}
}

func registrationCacheKey(id domain.LocationSetID) string {
	return "location_sets:id:" + id.String()
}
