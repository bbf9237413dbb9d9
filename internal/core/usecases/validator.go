package usecases

import (
	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/ports"
)

// Validator decides whether a location set may join the registry. It holds
// no mutable state; the same proposal against the same snapshot always
// yields the same decision.
type Validator struct {
	params domain.Params
}

// NewValidator creates a Validator using the given separation constants.
func NewValidator(params domain.Params) *Validator {
	return &Validator{params: params}
}

// Params returns the constants the validator was built with.
func (v *Validator) Params() domain.Params { return v.params }

// proposal is the input shared by every step of the pipeline.
type proposal struct {
	set      domain.LocationSet
	id       domain.LocationSetID
	snapshot ports.RegistrySnapshot
}

type step func(v *Validator, p *proposal) *domain.RejectionError

// Steps run in order and stop at the first rejection.
var pipeline = []step{
	(*Validator).checkNotEmpty,
	(*Validator).checkUnique,
	(*Validator).checkGeolocations,
	(*Validator).checkIntraSet,
	(*Validator).checkPoles,
	(*Validator).checkDateline,
	(*Validator).checkRegistered,
}

// Validate returns nil if set is admissible against snapshot, otherwise a
// *domain.RejectionError naming the first failed check.
func (v *Validator) Validate(set domain.LocationSet, snapshot ports.RegistrySnapshot) error {
	return v.ValidateID(set, set.ID(), snapshot)
}

// ValidateID is Validate for callers that already derived the set's id.
func (v *Validator) ValidateID(set domain.LocationSet, id domain.LocationSetID, snapshot ports.RegistrySnapshot) error {
	p := &proposal{set: set, id: id, snapshot: snapshot}
	for _, check := range pipeline {
		if rej := check(v, p); rej != nil {
			return rej
		}
	}
	return nil
}

func (v *Validator) checkNotEmpty(p *proposal) *domain.RejectionError {
	if len(p.set.Locations) == 0 {
		return domain.Reject(domain.ReasonEmptyLocationSet, -1)
	}
	return nil
}

func (v *Validator) checkUnique(p *proposal) *domain.RejectionError {
	if p.snapshot != nil && p.snapshot.Contains(p.id) {
		rej := domain.Reject(domain.ReasonDuplicateIdentifier, -1)
		conflict := p.id
		rej.Conflict = &conflict
		return rej
	}
	return nil
}

func (v *Validator) checkGeolocations(p *proposal) *domain.RejectionError {
	for i, l := range p.set.Locations {
		if !l.IsValid() {
			return rejectAt(domain.ReasonInvalidGeolocation, i, l)
		}
	}
	return nil
}

// checkIntraSet compares every pair of member positions. Solar trip time is
// symmetric, so visiting i < j covers all ordered pairs and the first
// offending i is the same either way.
func (v *Validator) checkIntraSet(p *proposal) *domain.RejectionError {
	locs := p.set.Locations
	for i := range locs {
		for j := i + 1; j < len(locs); j++ {
			if locs[i].SolarTripTimeTo(locs[j], v.params.MaxSpeedMPS) < v.params.MinSolarTripTime {
				return rejectAt(domain.ReasonIntraSetTooClose, i, locs[i])
			}
		}
	}
	return nil
}

func (v *Validator) checkPoles(p *proposal) *domain.RejectionError {
	for i, l := range p.set.Locations {
		if l.DistanceTo(domain.NorthPole) < v.params.DatelineDistance ||
			l.DistanceTo(domain.SouthPole) < v.params.DatelineDistance {
			return rejectAt(domain.ReasonTooNearPole, i, l)
		}
	}
	return nil
}

// checkDateline probes the point on the anti-meridian at the same latitude.
func (v *Validator) checkDateline(p *proposal) *domain.RejectionError {
	for i, l := range p.set.Locations {
		probe := domain.Location{Lat: l.Lat, Lon: domain.DatelineLon}
		if l.DistanceTo(probe) < v.params.DatelineDistance {
			return rejectAt(domain.ReasonTooNearDateline, i, l)
		}
	}
	return nil
}

// checkRegistered scans every location of every registered set. Cost grows
// with proposed × registered locations.
func (v *Validator) checkRegistered(p *proposal) *domain.RejectionError {
	if p.snapshot == nil {
		return nil
	}
	type registered struct {
		id  domain.LocationSetID
		set domain.LocationSet
	}
	ids := p.snapshot.IDs()
	sets := make([]registered, 0, len(ids))
	for _, id := range ids {
		// A consistent snapshot resolves every id it lists; an id without
		// a set has no locations to conflict with.
		set, ok := p.snapshot.Lookup(id)
		if !ok {
			continue
		}
		sets = append(sets, registered{id: id, set: set})
	}

	for i, l := range p.set.Locations {
		for _, other := range sets {
			for _, o := range other.set.Locations {
				if l.SolarTripTimeTo(o, v.params.MaxSpeedMPS) < v.params.MinSolarTripTime {
					rej := rejectAt(domain.ReasonTooCloseToOtherRegisteredSet, i, l)
					conflict := other.id
					rej.Conflict = &conflict
					return rej
				}
			}
		}
	}
	return nil
}

func rejectAt(reason domain.RejectReason, index int, l domain.Location) *domain.RejectionError {
	rej := domain.Reject(reason, index)
	rej.Location = &l
	return rej
}
