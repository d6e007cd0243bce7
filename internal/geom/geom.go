// Package geom contains the pure measurement functions of the viewer:
// great-circle distances, geodesic areas and the human-readable unit
// formatting used by segment and area labels.
package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// MinPolygonArea is the noise threshold in square meters below which an
// area label is suppressed. A polygon with only two distinct vertices is
// valid but yields near-zero area; showing "0.00 m²" for an accidental
// click would just be clutter.
const MinPolygonArea = 0.5

// SnapCloseTolerance is the fixed metric distance in meters within which a
// click near the first vertex closes the polygon ring being drawn. It does
// not scale with zoom.
const SnapCloseTolerance = 1.5

// SegmentLength returns the great-circle distance in meters between two
// (lon, lat) points.
func SegmentLength(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// LineLength returns the total great-circle length in meters of a line.
func LineLength(line orb.LineString) float64 {
	var total float64
	for i := 0; i+1 < len(line); i++ {
		total += SegmentLength(line[i], line[i+1])
	}
	return total
}

// PolygonArea returns the absolute geodesic area in square meters of a
// ring, regardless of winding order.
func PolygonArea(ring orb.Ring) float64 {
	return math.Abs(geo.Area(orb.Polygon{ring}))
}

// Midpoint returns the great-circle midpoint between two points. Segment
// labels are anchored here.
func Midpoint(a, b orb.Point) orb.Point {
	return geo.Midpoint(a, b)
}

// InteriorPoint returns a point guaranteed to lie on or inside the ring.
// The centroid is used when it falls inside; for concave rings where it
// does not, midpoints between the centroid and each vertex are probed
// instead of anchoring a label outside the shape.
func InteriorPoint(ring orb.Ring) orb.Point {
	if len(ring) == 0 {
		return orb.Point{}
	}

	centroid, _ := planar.CentroidArea(orb.Polygon{ring})
	if planar.RingContains(ring, centroid) {
		return centroid
	}

	for _, v := range ring {
		probe := orb.Point{(centroid[0] + v[0]) / 2, (centroid[1] + v[1]) / 2}
		if planar.RingContains(ring, probe) {
			return probe
		}
	}

	// Degenerate ring, fall back to a vertex which is on the boundary.
	return ring[0]
}

// FormatDistance renders meters as centimeters below 1 m, meters below
// 1 km and kilometers above.
func FormatDistance(meters float64) string {
	if meters < 1 {
		return fmt.Sprintf("%.1f cm", meters*100)
	}
	if meters < 1000 {
		return fmt.Sprintf("%.2f m", meters)
	}
	return fmt.Sprintf("%.3f km", meters/1000)
}

// FormatArea renders square meters with two decimals. The display
// deliberately never downshifts to hectares or square kilometers.
func FormatArea(squareMeters float64) string {
	return fmt.Sprintf("%.2f m²", squareMeters)
}
