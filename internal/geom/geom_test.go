package geom

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestFormatDistanceBrackets(t *testing.T) {
	cases := []struct {
		meters float64
		want   string
	}{
		{0, "0.0 cm"},
		{0.5, "50.0 cm"},
		{0.999, "99.9 cm"},
		{1, "1.00 m"},
		{42.1234, "42.12 m"},
		{999.994, "999.99 m"},
		{1000, "1.000 km"},
		{1234.5, "1.235 km"},
	}
	for _, c := range cases {
		if got := FormatDistance(c.meters); got != c.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", c.meters, got, c.want)
		}
	}
}

func TestFormatDistanceMonotonic(t *testing.T) {
	// Within the meter bracket, a longer segment never formats smaller.
	var prev float64
	for m := 1.0; m < 1000; m += 7.5 {
		var cur float64
		if _, err := fmt.Sscanf(FormatDistance(m), "%f m", &cur); err != nil {
			t.Fatalf("unexpected format %q: %v", FormatDistance(m), err)
		}
		if cur < prev {
			t.Fatalf("formatting not monotonic: %v then %v", prev, cur)
		}
		prev = cur
	}
}

func TestFormatAreaAlwaysSquareMeters(t *testing.T) {
	cases := []struct {
		m2   float64
		want string
	}{
		{0, "0.00 m²"},
		{100, "100.00 m²"},
		{12345.678, "12345.68 m²"},
		{2_500_000, "2500000.00 m²"}, // no downshift to km²
	}
	for _, c := range cases {
		if got := FormatArea(c.m2); got != c.want {
			t.Errorf("FormatArea(%v) = %q, want %q", c.m2, got, c.want)
		}
	}
}

func TestSegmentLengthMeridian(t *testing.T) {
	// 0.01 degrees of latitude at the equator is ~1.11 km.
	a := orb.Point{0, 0}
	b := orb.Point{0, 0.01}
	m := SegmentLength(a, b)
	if m < 1100 || m > 1120 {
		t.Fatalf("SegmentLength = %v m, want ~1113 m", m)
	}
	if got := FormatDistance(m); !strings.HasSuffix(got, " km") {
		t.Errorf("FormatDistance(%v) = %q, want kilometers", m, got)
	}
}

func TestSegmentLengthZero(t *testing.T) {
	p := orb.Point{72.5, 23.0}
	if m := SegmentLength(p, p); m != 0 {
		t.Fatalf("zero-length segment = %v, want 0", m)
	}
	if got := FormatDistance(0); got != "0.0 cm" {
		t.Errorf("FormatDistance(0) = %q, want \"0.0 cm\"", got)
	}
}

// squareRing returns a closed ring approximating a size x size meter
// square anchored at (lon, lat).
func squareRing(lon, lat, size float64) orb.Ring {
	dLat := size / 111320.0
	dLon := size / (111320.0 * math.Cos(lat*math.Pi/180))
	return orb.Ring{
		{lon, lat},
		{lon + dLon, lat},
		{lon + dLon, lat + dLat},
		{lon, lat + dLat},
		{lon, lat},
	}
}

func TestPolygonAreaSquare(t *testing.T) {
	ring := squareRing(0, 0, 10)
	area := PolygonArea(ring)
	if math.Abs(area-100) > 2 {
		t.Fatalf("PolygonArea = %v m², want ~100 m²", area)
	}
}

func TestPolygonAreaWindingInsensitive(t *testing.T) {
	ring := squareRing(72.5, 23.0, 25)
	reversed := make(orb.Ring, len(ring))
	for i, p := range ring {
		reversed[len(ring)-1-i] = p
	}
	a1 := PolygonArea(ring)
	a2 := PolygonArea(reversed)
	if math.Abs(a1-a2) > 1e-6 {
		t.Fatalf("area depends on winding: %v vs %v", a1, a2)
	}
}

func TestPolygonAreaDegenerate(t *testing.T) {
	// Two distinct vertices plus closing point: valid but near-zero.
	ring := orb.Ring{{0, 0}, {0.00001, 0}, {0, 0}}
	if area := PolygonArea(ring); area > MinPolygonArea {
		t.Fatalf("degenerate ring area = %v, want under noise threshold", area)
	}
}

func TestMidpoint(t *testing.T) {
	mid := Midpoint(orb.Point{0, 0}, orb.Point{0, 0.02})
	if math.Abs(mid[1]-0.01) > 1e-6 || math.Abs(mid[0]) > 1e-6 {
		t.Fatalf("Midpoint = %v, want ~(0, 0.01)", mid)
	}
}

func TestInteriorPointConvex(t *testing.T) {
	ring := squareRing(10, 10, 100)
	p := InteriorPoint(ring)
	if p[0] <= 10 || p[1] <= 10 {
		t.Fatalf("InteriorPoint %v not inside square", p)
	}
}

func TestInteriorPointConcave(t *testing.T) {
	// U-shaped ring whose bounding-box centroid falls in the notch.
	ring := orb.Ring{
		{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}, {0, 0},
	}
	p := InteriorPoint(ring)
	inNotch := p[0] > 1 && p[0] < 2 && p[1] > 1
	if inNotch {
		t.Fatalf("InteriorPoint %v landed in the concave notch", p)
	}
}
