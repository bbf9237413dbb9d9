package usecases

import (
	"fmt"

	"github.com/samirrijal/locus/internal/core/domain"
)

// GeoService exposes the geodesic primitives used by the validator.
type GeoService struct {
	params domain.Params
}

// NewGeoService creates a new GeoService.
func NewGeoService(params domain.Params) *GeoService {
	return &GeoService{params: params}
}

// Params returns the constants the service was built with.
func (s *GeoService) Params() domain.Params { return s.params }

// Distance returns the great-circle distance between a and b in meters.
func (s *GeoService) Distance(a, b domain.Location) (uint32, error) {
	if err := checkLocations(a, b); err != nil {
		return 0, err
	}
	return a.DistanceTo(b), nil
}

// SolarTripTime returns the solar trip time between a and b in seconds. It
// may be negative.
func (s *GeoService) SolarTripTime(a, b domain.Location) (int64, error) {
	if err := checkLocations(a, b); err != nil {
		return 0, err
	}
	return a.SolarTripTimeTo(b, s.params.MaxSpeedMPS), nil
}

// IsValid reports whether l is a valid coordinate.
func (s *GeoService) IsValid(l domain.Location) bool {
	return l.IsValid()
}

// LocationAssessment describes how a single location fares against the
// per-location checks of the validator.
type LocationAssessment struct {
	Location              domain.Location `json:"location"`
	Valid                 bool            `json:"valid"`
	NorthPoleDistance     uint32          `json:"north_pole_distance_m,omitempty"`
	SouthPoleDistance     uint32          `json:"south_pole_distance_m,omitempty"`
	DatelineDistance      uint32          `json:"dateline_distance_m,omitempty"`
	TooNearPole           bool            `json:"too_near_pole"`
	TooNearDateline       bool            `json:"too_near_dateline"`
	MinimumDistanceMeters uint32          `json:"minimum_distance_m"`
}

// Assess reports validity and the pole and dateline distances of l.
func (s *GeoService) Assess(l domain.Location) LocationAssessment {
	a := LocationAssessment{
		Location:              l,
		Valid:                 l.IsValid(),
		MinimumDistanceMeters: s.params.DatelineDistance,
	}
	if !a.Valid {
		return a
	}
	a.NorthPoleDistance = l.DistanceTo(domain.NorthPole)
	a.SouthPoleDistance = l.DistanceTo(domain.SouthPole)
	a.DatelineDistance = l.DistanceTo(domain.Location{Lat: l.Lat, Lon: domain.DatelineLon})
	a.TooNearPole = a.NorthPoleDistance < s.params.DatelineDistance || a.SouthPoleDistance < s.params.DatelineDistance
	a.TooNearDateline = a.DatelineDistance < s.params.DatelineDistance
	return a
}

func checkLocations(locs ...domain.Location) error {
	for _, l := range locs {
		if !l.IsValid() {
			return fmt.Errorf("%w: %s", domain.ErrInvalidLocation, l)
		}
	}
	return nil
}
