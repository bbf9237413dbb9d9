package geospatial_test

import (
	"testing"

	"github.com/samirrijal/locus/internal/pkg/fixed"
	"github.com/samirrijal/locus/internal/pkg/geospatial"
)

func TestIsValidLatLon(t *testing.T) {
	ulp := fixed.FromBits(1)
	cases := []struct {
		name     string
		lat, lon fixed.I32F32
		want     bool
	}{
		{"origin", 0, 0, true},
		{"north pole", geospatial.MaxLatitude, 0, true},
		{"south pole", geospatial.MinLatitude, 0, true},
		{"dateline east", 0, geospatial.MaxLongitude, true},
		{"dateline west", 0, geospatial.MinLongitude, true},
		{"above north pole", geospatial.MaxLatitude + ulp, 0, false},
		{"below south pole", geospatial.MinLatitude - ulp, 0, false},
		{"east of dateline", 0, geospatial.MaxLongitude + ulp, false},
		{"west of dateline", 0, geospatial.MinLongitude - ulp, false},
		{"way out", fixed.FromInt(1000), fixed.FromInt(-1000), false},
	}
	for _, tc := range cases {
		if got := geospatial.IsValidLatLon(tc.lat, tc.lon); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
