package geospatial

import "github.com/samirrijal/locus/internal/pkg/fixed"

var (
	MaxLatitude  = fixed.FromInt(90)
	MinLatitude  = fixed.FromInt(-90)
	MaxLongitude = fixed.FromInt(180)
	MinLongitude = fixed.FromInt(-180)
)

// IsValidLatLon validates geographic coordinates. It is a pure range check
// and must pass before a coordinate reaches Haversine.
func IsValidLatLon(lat, lon fixed.I32F32) bool {
	if lat > MaxLatitude || lat < MinLatitude {
		return false
	}
	if lon > MaxLongitude || lon < MinLongitude {
		return false
	}
	return true
}
