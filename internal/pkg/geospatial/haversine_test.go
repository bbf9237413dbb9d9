package geospatial_test

import (
	"testing"

	"github.com/samirrijal/locus/internal/pkg/fixed"
	"github.com/samirrijal/locus/internal/pkg/geospatial"
)

func deg(f float64) fixed.I32F32 { return fixed.MustFloat64(f) }

type pair struct {
	name                   string
	lat1, lon1, lat2, lon2 float64
}

func TestHaversine_KnownDistances(t *testing.T) {
	cases := []struct {
		pair
		want uint32
	}{
		{pair{"equator one degree", 0, 0, 0, 1}, 111195},
		{pair{"pole to pole", 90, 0, -90, 0}, 20015087},
		{pair{"equatorial antipodes", 0, -90, 0, 90}, 20015087},
		{pair{"zurich to paris", 47.3769, 8.5417, 48.8566, 2.3522}, 487877},
		{pair{"sydney to london", -33.9, 151.2, 51.5, -0.12}, 16995927},
		{pair{"over the pole", 60, 0, 60, 180}, 6671696},
		{pair{"high latitude", 80, 10, 80, 12}, 38616},
		{pair{"near north pole", 85, 0, 90, 0}, 555975},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := geospatial.Haversine(deg(tc.lat1), deg(tc.lon1), deg(tc.lat2), deg(tc.lon2))
			if got != tc.want {
				t.Errorf("expected %d m, got %d m", tc.want, got)
			}
		})
	}
}

func TestHaversine_SamePointIsZero(t *testing.T) {
	for _, p := range [][2]float64{{0, 0}, {47.3769, 8.5417}, {-89.9, 179.9}, {90, 0}, {-33.9, -70.6}} {
		if d := geospatial.Haversine(deg(p[0]), deg(p[1]), deg(p[0]), deg(p[1])); d != 0 {
			t.Errorf("distance(%v, %v) = %d, expected 0", p, p, d)
		}
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	for lat := -80.0; lat <= 80; lat += 20 {
		for lon := -170.0; lon <= 170; lon += 37.5 {
			a := [2]fixed.I32F32{deg(lat), deg(lon)}
			b := [2]fixed.I32F32{deg(-lat / 3), deg(lon/2 + 11.25)}
			ab := geospatial.Haversine(a[0], a[1], b[0], b[1])
			ba := geospatial.Haversine(b[0], b[1], a[0], a[1])
			if ab != ba {
				t.Errorf("asymmetric at %v/%v: %d vs %d", a, b, ab, ba)
			}
		}
	}
}

func TestHaversine_HalfCircumference(t *testing.T) {
	want := uint32(20015087) // π · 6371000
	got := geospatial.Haversine(geospatial.MaxLatitude, 0, geospatial.MinLatitude, 0)
	if got < want-2 || got > want+2 {
		t.Errorf("expected ~%d, got %d", want, got)
	}
}

func TestToRadians(t *testing.T) {
	got := geospatial.ToRadians(fixed.FromInt(180))
	if diff := (got - fixed.Pi).Abs(); diff > 2 {
		t.Errorf("180° should be π, got %v (diff %d ulp)", got, diff.Bits())
	}
}
