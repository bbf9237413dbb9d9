package usecases_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/usecases"
)

func loc(t *testing.T, lat, lon float64) domain.Location {
	t.Helper()
	l, err := domain.NewLocation(lat, lon)
	if err != nil {
		t.Fatalf("location (%v, %v): %v", lat, lon, err)
	}
	return l
}

func set(t *testing.T, coords ...[2]float64) domain.LocationSet {
	t.Helper()
	s := domain.LocationSet{Bootstrappers: []domain.AccountID{{1}, {2}, {3}}}
	for _, c := range coords {
		s.Locations = append(s.Locations, loc(t, c[0], c[1]))
	}
	return s
}

func registryWith(t *testing.T, sets ...domain.LocationSet) *domain.Registry {
	t.Helper()
	r := domain.NewRegistry()
	for _, s := range sets {
		if err := r.Append(s.ID(), s); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return r
}

func expectReason(t *testing.T, err error, want domain.RejectReason) *domain.RejectionError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection %s, got accept", want)
	}
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected *RejectionError, got %T: %v", err, err)
	}
	if rej.Reason != want {
		t.Fatalf("expected %s, got %s (%v)", want, rej.Reason, err)
	}
	return rej
}

func TestValidator_AcceptsSeparatedSet(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	if err := v.Validate(set(t, [2]float64{1, 1}, [2]float64{1, 2}), domain.NewRegistry()); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestValidator_AcceptsAgainstSeparatedRegistry(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	reg := registryWith(t, set(t, [2]float64{1, 1}, [2]float64{1, 2}))
	if err := v.Validate(set(t, [2]float64{1, 4}), reg); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestValidator_NilSnapshotMeansEmptyRegistry(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	if err := v.Validate(set(t, [2]float64{1, 1}), nil); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestValidator_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		coords [][2]float64
		reason domain.RejectReason
		index  int
	}{
		{"empty", nil, domain.ReasonEmptyLocationSet, -1},
		{"latitude above pole", [][2]float64{{1, 1}, {91, 0}}, domain.ReasonInvalidGeolocation, 1},
		{"latitude below pole", [][2]float64{{-90.5, 0}}, domain.ReasonInvalidGeolocation, 0},
		{"longitude out of range", [][2]float64{{0, -180.5}}, domain.ReasonInvalidGeolocation, 0},
		{"coincident members", [][2]float64{{10, 10}, {10, 10}}, domain.ReasonIntraSetTooClose, 0},
		{"members 1e-7 degrees apart", [][2]float64{{1, 1}, {10, 10}, {10, 10.0000001}}, domain.ReasonIntraSetTooClose, 1},
		{"high latitude neighbours", [][2]float64{{80, 10}, {80, 12}}, domain.ReasonIntraSetTooClose, 0},
		{"near north pole", [][2]float64{{1, 1}, {85, 0}}, domain.ReasonTooNearPole, 1},
		{"near south pole", [][2]float64{{-85, 0}}, domain.ReasonTooNearPole, 0},
		{"on north pole", [][2]float64{{90, 0}}, domain.ReasonTooNearPole, 0},
		{"east of dateline", [][2]float64{{0, 179}}, domain.ReasonTooNearDateline, 0},
		{"west of dateline", [][2]float64{{1, 1}, {0, -179}}, domain.ReasonTooNearDateline, 1},
	}

	v := usecases.NewValidator(domain.DefaultParams())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := expectReason(t, v.Validate(set(t, tt.coords...), domain.NewRegistry()), tt.reason)
			if rej.Index != tt.index {
				t.Errorf("expected index %d, got %d", tt.index, rej.Index)
			}
		})
	}
}

func TestValidator_CheckOrder(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	tests := []struct {
		name   string
		coords [][2]float64
		reason domain.RejectReason
	}{
		{"invalid before intra-set", [][2]float64{{0, 0}, {0, 0}, {91, 0}}, domain.ReasonInvalidGeolocation},
		{"intra-set before pole", [][2]float64{{85, 0}, {85, 0}}, domain.ReasonIntraSetTooClose},
		{"pole before dateline", [][2]float64{{89.5, 179}}, domain.ReasonTooNearPole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectReason(t, v.Validate(set(t, tt.coords...), nil), tt.reason)
		})
	}
}

func TestValidator_DuplicateIdentifier(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	s := set(t, [2]float64{1, 1}, [2]float64{1, 2})
	reg := registryWith(t, s)

	rej := expectReason(t, v.Validate(s, reg), domain.ReasonDuplicateIdentifier)
	if rej.Conflict == nil || *rej.Conflict != s.ID() {
		t.Errorf("expected conflict %s, got %v", s.ID(), rej.Conflict)
	}
}

func TestValidator_DuplicateCheckedBeforeGeometry(t *testing.T) {
	// A registered set would fail its own global scan; the id check must win.
	v := usecases.NewValidator(domain.DefaultParams())
	s := set(t, [2]float64{1, 1})
	expectReason(t, v.Validate(s, registryWith(t, s)), domain.ReasonDuplicateIdentifier)
}

func TestValidator_TooCloseToRegisteredSet(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	tests := []struct {
		name       string
		registered [2]float64
		proposed   [2]float64
	}{
		{"high latitude", [2]float64{80, 10}, [2]float64{80, 12}},
		{"1e-7 degrees apart", [2]float64{10, 10}, [2]float64{10, 10.0000001}},
		{"same point", [2]float64{-30, 45}, [2]float64{-30, 45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := set(t, [2]float64{1, 1}, tt.registered)
			reg := registryWith(t, other)
			proposed := set(t, [2]float64{1, 4}, tt.proposed)

			rej := expectReason(t, v.Validate(proposed, reg), domain.ReasonTooCloseToOtherRegisteredSet)
			if rej.Index != 1 {
				t.Errorf("expected index 1, got %d", rej.Index)
			}
			if rej.Conflict == nil || *rej.Conflict != other.ID() {
				t.Errorf("expected conflict %s, got %v", other.ID(), rej.Conflict)
			}
		})
	}
}

func TestValidator_ReportsFirstConflictingSet(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	first := set(t, [2]float64{20, 20})
	second := set(t, [2]float64{-20, -20}, [2]float64{20, 20.0000001})
	reg := registryWith(t, first, second)

	rej := expectReason(t, v.Validate(set(t, [2]float64{20, 20.00000005}), reg), domain.ReasonTooCloseToOtherRegisteredSet)
	if *rej.Conflict != first.ID() {
		t.Errorf("expected conflict with first registered set, got %s", rej.Conflict)
	}
}

func TestValidator_LongitudeOffsetIsNotWrapped(t *testing.T) {
	// (0,-170) and (0,170) are 20 degrees apart, but the raw longitude
	// difference of 340 degrees outweighs the flight time.
	v := usecases.NewValidator(domain.DefaultParams())
	reg := registryWith(t, set(t, [2]float64{0, -170}))
	expectReason(t, v.Validate(set(t, [2]float64{0, 170}), reg), domain.ReasonTooCloseToOtherRegisteredSet)
}

func TestValidator_Idempotent(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	reg := registryWith(t, set(t, [2]float64{80, 10}))
	proposals := []domain.LocationSet{
		set(t, [2]float64{1, 1}, [2]float64{1, 2}),
		set(t, [2]float64{80, 12}),
		set(t, [2]float64{0, 179}),
	}
	for _, p := range proposals {
		first := v.Validate(p, reg)
		for i := 0; i < 3; i++ {
			again := v.Validate(p, reg)
			r1, ok1 := domain.ReasonOf(first)
			r2, ok2 := domain.ReasonOf(again)
			if (first == nil) != (again == nil) || r1 != r2 || ok1 != ok2 {
				t.Fatalf("decision changed: %v then %v", first, again)
			}
		}
	}
	if reg.Len() != 1 {
		t.Errorf("validation must not mutate the snapshot, got %d sets", reg.Len())
	}
}

func TestValidator_CustomParams(t *testing.T) {
	// A smaller exclusion radius admits (0,179).
	p := domain.DefaultParams()
	p.DatelineDistance = 100_000
	v := usecases.NewValidator(p)
	if err := v.Validate(set(t, [2]float64{0, 179}), nil); err != nil {
		t.Fatalf("expected accept with 100 km radius, got %v", err)
	}
}

type mockSnapshot struct {
	idsFn    func() []domain.LocationSetID
	lookupFn func(id domain.LocationSetID) (domain.LocationSet, bool)
}

func (m *mockSnapshot) Contains(id domain.LocationSetID) bool {
	_, ok := m.Lookup(id)
	return ok
}

func (m *mockSnapshot) Lookup(id domain.LocationSetID) (domain.LocationSet, bool) {
	return m.lookupFn(id)
}

func (m *mockSnapshot) IDs() []domain.LocationSetID { return m.idsFn() }

func TestValidator_SkipsUnresolvedRegisteredIDs(t *testing.T) {
	v := usecases.NewValidator(domain.DefaultParams())
	near := set(t, [2]float64{10, 10})
	dangling := domain.LocationSetID{0xde, 0xad}
	snap := &mockSnapshot{
		idsFn: func() []domain.LocationSetID { return []domain.LocationSetID{dangling, near.ID()} },
		lookupFn: func(id domain.LocationSetID) (domain.LocationSet, bool) {
			if id == near.ID() {
				return near, true
			}
			return domain.LocationSet{}, false
		},
	}

	if err := v.Validate(set(t, [2]float64{-40, -40}), snap); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
	rej := expectReason(t, v.Validate(set(t, [2]float64{10, 10.00001}), snap), domain.ReasonTooCloseToOtherRegisteredSet)
	if rej.Conflict == nil || *rej.Conflict != near.ID() {
		t.Errorf("expected conflict with %s, got %v", near.ID(), rej.Conflict)
	}
}
