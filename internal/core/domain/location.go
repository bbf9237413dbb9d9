package domain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samirrijal/locus/internal/pkg/fixed"
	"github.com/samirrijal/locus/internal/pkg/geospatial"
)

// Location is a meetup point in fixed-point degrees (I32F32: sign bit,
// 31 integer bits, 32 fractional bits). The bit layout is the binary
// contract shared by every copy of the registry.
type Location struct {
	Lat fixed.I32F32
	Lon fixed.I32F32
}

// LocationSize is the encoded size of a Location in bytes.
const LocationSize = 16

var (
	NorthPole = Location{Lat: geospatial.MaxLatitude, Lon: 0}
	SouthPole = Location{Lat: geospatial.MinLatitude, Lon: 0}
	// DatelineLon is the longitude of the anti-meridian probe.
	DatelineLon = geospatial.MaxLongitude
)

// NewLocation converts decimal degrees to a Location. It does not check
// ranges; use IsValid for that.
func NewLocation(lat, lon float64) (Location, error) {
	fLat, err := fixed.FromFloat64(lat)
	if err != nil {
		return Location{}, fmt.Errorf("latitude: %w", err)
	}
	fLon, err := fixed.FromFloat64(lon)
	if err != nil {
		return Location{}, fmt.Errorf("longitude: %w", err)
	}
	return Location{Lat: fLat, Lon: fLon}, nil
}

// IsValid reports whether the coordinate lies within the pole latitudes and
// [-180°, 180°] longitude.
func (l Location) IsValid() bool {
	return geospatial.IsValidLatLon(l.Lat, l.Lon)
}

// DistanceTo returns the great-circle distance in meters.
func (l Location) DistanceTo(o Location) uint32 {
	return geospatial.Haversine(l.Lat, l.Lon, o.Lat, o.Lon)
}

// SolarTripTimeTo returns the solar trip time in seconds at maxSpeedMPS.
func (l Location) SolarTripTimeTo(o Location, maxSpeedMPS int64) int64 {
	return geospatial.SolarTripTime(l.Lat, l.Lon, o.Lat, o.Lon, maxSpeedMPS)
}

// AppendBinary appends lat then lon, each as 8 bytes little-endian.
func (l Location) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint64(b, uint64(l.Lat.Bits()))
	return binary.LittleEndian.AppendUint64(b, uint64(l.Lon.Bits()))
}

// DecodeLocation reads a Location written by AppendBinary.
func DecodeLocation(b []byte) (Location, error) {
	if len(b) < LocationSize {
		return Location{}, fmt.Errorf("location: need %d bytes, got %d", LocationSize, len(b))
	}
	return Location{
		Lat: fixed.FromBits(int64(binary.LittleEndian.Uint64(b[0:8]))),
		Lon: fixed.FromBits(int64(binary.LittleEndian.Uint64(b[8:16]))),
	}, nil
}

func (l Location) String() string {
	return fmt.Sprintf("(%s, %s)", l.Lat, l.Lon)
}

type locationJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MarshalJSON writes decimal degrees. Valid coordinates need far fewer than
// 53 significant bits, so the float64 form round-trips exactly.
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{Lat: l.Lat.Float64(), Lon: l.Lon.Float64()})
}

// coordinate decodes a JSON number or a decimal string such as "47.3".
type coordinate float64

func (c *coordinate) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*c = coordinate(f)
		return nil
	}
	return json.Unmarshal(data, (*float64)(c))
}

// UnmarshalJSON accepts degrees as numbers or decimal strings.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat coordinate `json:"lat"`
		Lon coordinate `json:"lon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	loc, err := NewLocation(float64(raw.Lat), float64(raw.Lon))
	if err != nil {
		return err
	}
	*l = loc
	return nil
}
