package domain

// Reference point that pseudo-geocoded locations are offset from.
const (
	ReferenceLat = 20.5937
	ReferenceLng = 78.9629
)

// FallbackCoordinate maps free text to a deterministic pseudo coordinate for
// locations with no real geocoder result. The hash is a rolling polynomial
// (h = h*31 + byte) over the UTF-8 bytes with 32-bit wraparound; the low two
// decimal digits pick an offset of up to 0.0099 degrees from the reference
// point. Same text always yields the same position. Collisions between
// different texts are possible and acceptable.
func FallbackCoordinate(text string) Coordinate {
	var h uint32
	for _, b := range []byte(text) {
		h = h*31 + uint32(b)
	}
	offset := float64(h%100) / 10000
	return Coordinate{
		Lat: ReferenceLat + offset,
		Lng: ReferenceLng + offset,
	}
}
