package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/usecases"
)

type mockAuditRepo struct {
	recordFn func(ctx context.Context, e *domain.RegistrationAccepted) error
	recorded []domain.LocationSetID
}

func (m *mockAuditRepo) RecordRegistration(ctx context.Context, e *domain.RegistrationAccepted) error {
	if m.recordFn != nil {
		if err := m.recordFn(ctx, e); err != nil {
			return err
		}
	}
	m.recorded = append(m.recorded, e.ID)
	return nil
}

func TestAuditService_WarmsCacheAndRecords(t *testing.T) {
	repo := newMockRegistryRepo()
	cache := newMockCache()
	svc := newService(repo, nil, cache)
	s := set(t, [2]float64{10, 10})
	reg, err := svc.Propose(context.Background(), proposer, s)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	// Drop what Propose cached, as another node would not have it.
	_ = cache.Delete(context.Background(), "location_sets:id:"+reg.ID.String())

	audit := &mockAuditRepo{}
	a := usecases.NewAuditService(svc, audit, "test")
	event := &domain.RegistrationAccepted{Proposer: proposer, ID: reg.ID, Locations: 1, RegisteredAt: time.Now()}

	if err := a.HandleRegistration(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(audit.recorded) != 1 || audit.recorded[0] != reg.ID {
		t.Errorf("recorded = %v", audit.recorded)
	}
	if _, err := cache.Get(context.Background(), "location_sets:id:"+reg.ID.String()); err != nil {
		t.Error("registration not cached")
	}
}

func TestAuditService_UnknownSetIsDropped(t *testing.T) {
	audit := &mockAuditRepo{}
	a := usecases.NewAuditService(newService(newMockRegistryRepo(), nil, nil), audit, "test")

	err := a.HandleRegistration(context.Background(), &domain.RegistrationAccepted{ID: domain.LocationSetID{9}})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(audit.recorded) != 0 {
		t.Error("unknown set audited")
	}
}

func TestAuditService_AuditFailureRedelivers(t *testing.T) {
	repo := newMockRegistryRepo()
	svc := newService(repo, nil, nil)
	reg, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{10, 10}))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	audit := &mockAuditRepo{
		recordFn: func(ctx context.Context, e *domain.RegistrationAccepted) error {
			return errors.New("db down")
		},
	}
	a := usecases.NewAuditService(svc, audit, "test")

	if err := a.HandleRegistration(context.Background(), &domain.RegistrationAccepted{ID: reg.ID}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAuditService_NilAuditRepo(t *testing.T) {
	repo := newMockRegistryRepo()
	svc := newService(repo, nil, nil)
	reg, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{10, 10}))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	a := usecases.NewAuditService(svc, nil, "test")
	if err := a.HandleRegistration(context.Background(), &domain.RegistrationAccepted{ID: reg.ID}); err != nil {
		t.Fatalf("handle: %v", err)
	}
}
