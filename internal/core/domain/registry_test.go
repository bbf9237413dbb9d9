package domain_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/locus/internal/core/domain"
)

func TestRegistry_AppendAndLookup(t *testing.T) {
	r := domain.NewRegistry()
	set := sampleSet()
	id := set.ID()

	if err := r.Append(id, set); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !r.Contains(id) {
		t.Error("expected registry to contain id")
	}
	got, ok := r.Lookup(id)
	if !ok || got.ID() != id {
		t.Errorf("lookup returned %v, %v", got, ok)
	}
	if r.Len() != 1 || r.LocationCount() != 2 {
		t.Errorf("expected 1 set / 2 locations, got %d / %d", r.Len(), r.LocationCount())
	}
}

func TestRegistry_AppendDuplicate(t *testing.T) {
	r := domain.NewRegistry()
	set := sampleSet()
	_ = r.Append(set.ID(), set)
	if err := r.Append(set.ID(), set); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := domain.NewRegistry()
	set := sampleSet()
	_ = r.Append(set.ID(), set)

	c := r.Clone()
	other := set.Clone()
	other.Bootstrappers = nil
	_ = c.Append(other.ID(), other)

	if r.Len() != 1 {
		t.Errorf("original registry mutated: %d sets", r.Len())
	}
	if c.Len() != 2 {
		t.Errorf("expected clone to hold 2 sets, got %d", c.Len())
	}
}

func TestRegistry_StoresCopies(t *testing.T) {
	r := domain.NewRegistry()
	set := sampleSet()
	id := set.ID()
	_ = r.Append(id, set)

	set.Locations[0] = domain.NorthPole
	got, _ := r.Lookup(id)
	if got.Locations[0] == domain.NorthPole {
		t.Error("registry must not alias caller slices")
	}
}
