// Package domain models route safety scoring for accessibility-focused trip
// planning.
//
// # Locations
//
// A location starts life as free text typed by the rider ("Central Park",
// "Met General Hospital"). Text is resolved to a WGS-84 coordinate through a
// [LocationResolver] (address search), with two special cases:
//
//	"Current Location" — resolved through a [DevicePositioner]. If the device
//	position is denied or unavailable, resolution fails with
//	[ErrLocationUnavailable]; it never falls back to the hash below, because
//	plotting a synthetic "current" position would be misleading.
//
//	No resolver result — the text is mapped to a deterministic pseudo
//	coordinate by [FallbackCoordinate]: a rolling polynomial hash
//	(h = h*31 + byte, 32-bit wraparound) over the UTF-8 bytes picks an offset
//	of (h mod 100)/10000 degrees from a fixed reference point. The same text
//	always plots at the same position. Distinct texts may collide; that is
//	acceptable for demo locations that only need a stable map marker.
//
// # Safety scores
//
// A route's safety score is an integer in [0,100], higher is safer. The
// scoring contract guarantees that a route carrying hazards never outscores a
// hazard-free alternative produced for the same request. Live hazard events
// adjust scores by a severity delta, clamped to [0,100].
//
// # Hazards
//
// Route hazards are human-readable descriptions ("Steep Slope (8%)",
// "Blocked Sidewalk") appended in arrival order. Radius-scan hazards are
// typed markers (crowd, construction, obstacle) positioned by small lat/lng
// offsets from a scan center and are not tied to any route.
package domain
