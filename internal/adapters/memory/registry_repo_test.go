package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/locus/internal/adapters/memory"
	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
	"github.com/samirrijal/locus/internal/pkg/fixed"
)

func registration(lat, lon int64) *domain.Registration {
	set := domain.LocationSet{
		Locations:     []domain.Location{{Lat: fixed.FromInt(lat), Lon: fixed.FromInt(lon)}},
		Bootstrappers: []domain.AccountID{{1}},
	}
	return &domain.Registration{ID: set.ID(), Set: set, Proposer: domain.AccountID{9}}
}

func TestRegistryRepo_CommitAndGet(t *testing.T) {
	repo := memory.NewRegistryRepo()
	ctx := context.Background()
	reg := registration(1, 1)

	if err := repo.Commit(ctx, reg, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Proposer != reg.Proposer || got.Set.ID() != reg.ID {
		t.Errorf("unexpected registration %+v", got)
	}

	if _, err := repo.GetByID(ctx, domain.LocationSetID{7}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryRepo_CommitDuplicate(t *testing.T) {
	repo := memory.NewRegistryRepo()
	ctx := context.Background()
	reg := registration(1, 1)
	_ = repo.Commit(ctx, reg, nil)

	if err := repo.Commit(ctx, reg, nil); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegistryRepo_VerifyAbortsCommit(t *testing.T) {
	repo := memory.NewRegistryRepo()
	ctx := context.Background()
	_ = repo.Commit(ctx, registration(1, 1), nil)

	rejected := errors.New("rejected")
	var seen int
	err := repo.Commit(ctx, registration(2, 2), func(s ports.RegistrySnapshot) error {
		seen = len(s.IDs())
		return rejected
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("expected verify error, got %v", err)
	}
	if seen != 1 {
		t.Errorf("verify should see 1 committed set, saw %d", seen)
	}
	stats, _ := repo.Stats(ctx)
	if stats.LocationSets != 1 {
		t.Errorf("expected 1 set after aborted commit, got %d", stats.LocationSets)
	}
}

func TestRegistryRepo_SnapshotIsStable(t *testing.T) {
	repo := memory.NewRegistryRepo()
	ctx := context.Background()
	_ = repo.Commit(ctx, registration(1, 1), nil)

	snap, _ := repo.Snapshot(ctx)
	_ = repo.Commit(ctx, registration(2, 2), nil)

	if snap.Len() != 1 {
		t.Errorf("snapshot changed after commit: %d sets", snap.Len())
	}
	now, _ := repo.Snapshot(ctx)
	if now.Len() != 2 {
		t.Errorf("expected 2 sets in new snapshot, got %d", now.Len())
	}
}

func TestRegistryRepo_ListIDs(t *testing.T) {
	repo := memory.NewRegistryRepo()
	ctx := context.Background()
	var want []domain.LocationSetID
	for i := int64(0); i < 5; i++ {
		reg := registration(i, i)
		want = append(want, reg.ID)
		_ = repo.Commit(ctx, reg, nil)
	}

	ids, total, err := repo.ListIDs(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(ids) != 2 || ids[0] != want[1] || ids[1] != want[2] {
		t.Errorf("expected registration order page, got %v", ids)
	}

	ids, _, _ = repo.ListIDs(ctx, 10, 2)
	if len(ids) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(ids))
	}
}

func TestRegistryRepo_CancelledContext(t *testing.T) {
	repo := memory.NewRegistryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.Commit(ctx, registration(1, 1), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
