package geospatial

import "github.com/samirrijal/locus/internal/pkg/fixed"

// SecondsPerDegree is the shift in local solar time per degree of
// longitude: 24h · 3600s / 360°.
const SecondsPerDegree = 240

// SolarTripTime estimates how many seconds of local (solar) time an
// adversary travelling at maxSpeedMPS needs to get from one point to the
// other. Travelling east or west shifts local time by SecondsPerDegree per
// degree, which is subtracted from the flight time. Small or negative values
// mean both points can be reached on the same local day.
//
// maxSpeedMPS must be positive; callers pass a validated constant.
func SolarTripTime(lat1, lon1, lat2, lon2 fixed.I32F32, maxSpeedMPS int64) int64 {
	d := int64(Haversine(lat1, lon1, lat2, lon2))
	flight := d / maxSpeedMPS
	offset := lon1.Sub(lon2).Abs().MulInt(SecondsPerDegree).Trunc()
	return flight - offset
}
