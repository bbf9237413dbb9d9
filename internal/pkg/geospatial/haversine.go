package geospatial

import "github.com/samirrijal/locus/internal/pkg/fixed"

const (
	// EarthRadiusMeters is the mean earth radius.
	EarthRadiusMeters = 6371000

	// RadiansPerDegree is round(π/180 · 2^64) as an unsigned Q0.64 fraction.
	RadiansPerDegree uint64 = 0x0477D1A894A74E45
)

// Haversine calculates the great-circle distance in meters between two
// points given in fixed-point degrees, rounded to the nearest meter.
// The result is bit-identical for Haversine(a, b) and Haversine(b, a).
func Haversine(lat1, lon1, lat2, lon2 fixed.I32F32) uint32 {
	theta1 := ToRadians(lat1)
	theta2 := ToRadians(lat2)
	dTheta := theta1.Sub(theta2)
	dLambda := ToRadians(lon1.Sub(lon2))

	sinLat := fixed.Sin(dTheta.DivInt(2))
	sinLon := fixed.Sin(dLambda.DivInt(2))

	a := fixed.Powi(sinLat, 2).Add(
		fixed.Cos(theta1).Mul(fixed.Cos(theta2)).Mul(fixed.Powi(sinLon, 2)),
	)
	// Rounding can push a marginally outside [0, 1] near antipodes.
	a = a.Clamp(0, fixed.One)

	c := fixed.Asin(fixed.Sqrt(a)).MulInt(2)
	return uint32(c.MulInt(EarthRadiusMeters).Round())
}

// ToRadians converts fixed-point degrees to fixed-point radians.
func ToRadians(deg fixed.I32F32) fixed.I32F32 {
	return deg.MulQ64(RadiansPerDegree)
}
