package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/core/usecases"
)

// --- Mock LocationSetRepository ---

// mockRegistryRepo keeps registrations in a domain.Registry unless a
// function field overrides the call.
type mockRegistryRepo struct {
	mu        sync.Mutex
	registry  *domain.Registry
	regs      map[domain.LocationSetID]*domain.Registration
	commitFn  func(ctx context.Context, reg *domain.Registration, verify ports.VerifyFunc) error
	getByIDFn func(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error)
	getCalls  int
}

func newMockRegistryRepo() *mockRegistryRepo {
	return &mockRegistryRepo{
		registry: domain.NewRegistry(),
		regs:     make(map[domain.LocationSetID]*domain.Registration),
	}
}

func (m *mockRegistryRepo) Snapshot(ctx context.Context) (*domain.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Clone(), nil
}

func (m *mockRegistryRepo) Commit(ctx context.Context, reg *domain.Registration, verify ports.VerifyFunc) error {
	if m.commitFn != nil {
		return m.commitFn(ctx, reg, verify)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := verify(m.registry); err != nil {
		return err
	}
	if err := m.registry.Append(reg.ID, reg.Set); err != nil {
		return err
	}
	m.regs[reg.ID] = reg
	return nil
}

func (m *mockRegistryRepo) GetByID(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error) {
	m.getCalls++
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return reg, nil
}

func (m *mockRegistryRepo) ListIDs(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockRegistryRepo) Stats(ctx context.Context) (domain.RegistryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.RegistryStats{LocationSets: m.registry.Len(), Locations: m.registry.LocationCount()}, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	accepted []*domain.RegistrationAccepted
	rejected []*domain.ProposalRejected
	err      error
}

func (m *mockPublisher) PublishRegistration(ctx context.Context, event *domain.RegistrationAccepted) error {
	m.accepted = append(m.accepted, event)
	return m.err
}

func (m *mockPublisher) PublishRejection(ctx context.Context, event *domain.ProposalRejected) error {
	m.rejected = append(m.rejected, event)
	return m.err
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- Tests ---

var proposer = domain.AccountID{0xaa}

func newService(repo ports.LocationSetRepository, pub ports.EventPublisher, cache ports.CacheService) *usecases.RegistrationService {
	return usecases.NewRegistrationService(usecases.NewValidator(domain.DefaultParams()), repo, pub, cache)
}

func TestRegistrationService_Propose_Accepts(t *testing.T) {
	repo := newMockRegistryRepo()
	pub := &mockPublisher{}
	svc := newService(repo, pub, nil)

	s := set(t, [2]float64{1, 1}, [2]float64{1, 2})
	reg, err := svc.Propose(context.Background(), proposer, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.ID != s.ID() {
		t.Errorf("expected id %s, got %s", s.ID(), reg.ID)
	}
	if reg.Proposer != proposer {
		t.Errorf("expected proposer %s, got %s", proposer, reg.Proposer)
	}
	if reg.RegisteredAt.IsZero() {
		t.Error("expected registration time to be set")
	}
	if repo.registry.Len() != 1 {
		t.Fatalf("expected 1 registered set, got %d", repo.registry.Len())
	}
	if len(pub.accepted) != 1 || pub.accepted[0].ID != s.ID() || pub.accepted[0].Proposer != proposer {
		t.Errorf("expected one RegistrationAccepted event, got %+v", pub.accepted)
	}
	if pub.accepted[0].Locations != 2 {
		t.Errorf("expected 2 locations in event, got %d", pub.accepted[0].Locations)
	}
}

func TestRegistrationService_Propose_Rejects(t *testing.T) {
	repo := newMockRegistryRepo()
	pub := &mockPublisher{}
	svc := newService(repo, pub, nil)

	_, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{85, 0}))
	rej := expectReason(t, err, domain.ReasonTooNearPole)
	if rej.Index != 0 {
		t.Errorf("expected index 0, got %d", rej.Index)
	}
	if repo.registry.Len() != 0 {
		t.Errorf("rejected proposal must not be committed")
	}
	if len(pub.accepted) != 0 {
		t.Error("rejected proposal must not emit RegistrationAccepted")
	}
	if len(pub.rejected) != 1 || pub.rejected[0].Reason != domain.ReasonTooNearPole {
		t.Errorf("expected one ProposalRejected event, got %+v", pub.rejected)
	}
}

func TestRegistrationService_Propose_DuplicateAfterAccept(t *testing.T) {
	repo := newMockRegistryRepo()
	svc := newService(repo, nil, nil)
	s := set(t, [2]float64{1, 1}, [2]float64{1, 2})

	if _, err := svc.Propose(context.Background(), proposer, s); err != nil {
		t.Fatalf("first proposal: %v", err)
	}
	_, err := svc.Propose(context.Background(), proposer, s)
	expectReason(t, err, domain.ReasonDuplicateIdentifier)
	if repo.registry.Len() != 1 {
		t.Errorf("expected registry unchanged, got %d sets", repo.registry.Len())
	}
}

func TestRegistrationService_Propose_StoreDuplicateIsRejection(t *testing.T) {
	repo := newMockRegistryRepo()
	repo.commitFn = func(ctx context.Context, reg *domain.Registration, verify ports.VerifyFunc) error {
		return domain.ErrDuplicate
	}
	svc := newService(repo, nil, nil)

	_, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{1, 1}))
	rej := expectReason(t, err, domain.ReasonDuplicateIdentifier)
	if rej.Conflict == nil {
		t.Error("expected conflicting id on duplicate rejection")
	}
}

func TestRegistrationService_Propose_StoreError(t *testing.T) {
	repo := newMockRegistryRepo()
	boom := errors.New("connection reset")
	repo.commitFn = func(ctx context.Context, reg *domain.Registration, verify ports.VerifyFunc) error {
		return boom
	}
	svc := newService(repo, nil, nil)

	_, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{1, 1}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, domain.ErrRejected) {
		t.Error("store failure must not look like a rejection")
	}
}

func TestRegistrationService_Propose_PublishFailureKeepsRegistration(t *testing.T) {
	repo := newMockRegistryRepo()
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := newService(repo, pub, nil)

	if _, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{1, 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.registry.Len() != 1 {
		t.Error("registration must survive a publish failure")
	}
}

func TestRegistrationService_Propose_Concurrent(t *testing.T) {
	repo := newMockRegistryRepo()
	svc := newService(repo, nil, nil)
	s := set(t, [2]float64{1, 1}, [2]float64{1, 2})

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Propose(context.Background(), proposer, s)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		if reason, _ := domain.ReasonOf(err); reason != domain.ReasonDuplicateIdentifier {
			t.Errorf("expected DuplicateIdentifier, got %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("expected exactly one acceptance, got %d", accepted)
	}
}

func TestRegistrationService_Check(t *testing.T) {
	repo := newMockRegistryRepo()
	svc := newService(repo, nil, nil)
	if _, err := svc.Propose(context.Background(), proposer, set(t, [2]float64{80, 10})); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := set(t, [2]float64{80, 12})
	id, err := svc.Check(context.Background(), s)
	if id != s.ID() {
		t.Errorf("expected id %s, got %s", s.ID(), id)
	}
	expectReason(t, err, domain.ReasonTooCloseToOtherRegisteredSet)

	if _, err := svc.Check(context.Background(), set(t, [2]float64{1, 1})); err != nil {
		t.Errorf("expected admissible set, got %v", err)
	}
	if repo.registry.Len() != 1 {
		t.Errorf("check must not commit, got %d sets", repo.registry.Len())
	}
}

func TestRegistrationService_Get_UsesCache(t *testing.T) {
	repo := newMockRegistryRepo()
	cache := newMockCache()
	svc := newService(repo, nil, cache)

	s := set(t, [2]float64{1, 1}, [2]float64{1, 2})
	if _, err := svc.Propose(context.Background(), proposer, s); err != nil {
		t.Fatalf("propose: %v", err)
	}

	reg, err := svc.Get(context.Background(), s.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Set.ID() != s.ID() {
		t.Errorf("cached registration changed the set id")
	}
	if repo.getCalls != 0 {
		t.Errorf("expected cache hit, repo called %d times", repo.getCalls)
	}
}

func TestRegistrationService_Get_ReadThrough(t *testing.T) {
	s := set(t, [2]float64{1, 1})
	repo := newMockRegistryRepo()
	repo.getByIDFn = func(ctx context.Context, id domain.LocationSetID) (*domain.Registration, error) {
		return &domain.Registration{ID: id, Set: s, Proposer: proposer}, nil
	}
	cache := newMockCache()
	svc := newService(repo, nil, cache)

	if _, err := svc.Get(context.Background(), s.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, ok := cache.data["location_sets:id:"+s.ID().String()]
	if !ok {
		t.Fatal("expected registration to be cached")
	}
	var cached domain.Registration
	if err := json.Unmarshal(data, &cached); err != nil {
		t.Fatalf("cached value: %v", err)
	}
	if cached.ID != s.ID() {
		t.Errorf("expected cached id %s, got %s", s.ID(), cached.ID)
	}
}

func TestRegistrationService_Get_NotFound(t *testing.T) {
	svc := newService(newMockRegistryRepo(), nil, nil)
	_, err := svc.Get(context.Background(), domain.LocationSetID{1})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistrationService_List_ClampsLimit(t *testing.T) {
	called := false
	repo := newMockRegistryRepo()
	repo.listFn = func(ctx context.Context, offset, limit int) ([]domain.LocationSetID, int, error) {
		called = true
		if limit != 20 {
			t.Errorf("expected limit clamped to 20, got %d", limit)
		}
		if offset != 0 {
			t.Errorf("expected offset clamped to 0, got %d", offset)
		}
		return nil, 0, nil
	}
	svc := newService(repo, nil, nil)
	_, _, _ = svc.List(context.Background(), -5, 999)
	if !called {
		t.Error("repo was not called")
	}
}

func TestRegistrationService_Stats(t *testing.T) {
	repo := newMockRegistryRepo()
	svc := newService(repo, nil, nil)
	_, _ = svc.Propose(context.Background(), proposer, set(t, [2]float64{1, 1}, [2]float64{1, 2}))

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.LocationSets != 1 || stats.Locations != 2 {
		t.Errorf("expected 1 set / 2 locations, got %+v", stats)
	}
}
