package geometry

import (
	"errors"
	"math"
	"testing"

	"templatealign/internal/models"
)

// planePoints generates a grid of points lying exactly on the plane
// through origin spanned by u and v.
func planePoints(origin, u, v models.Point, n int) models.PointSet {
	var points models.PointSet
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			a, b := float64(i), float64(j)
			points = append(points, models.Point{
				Z: origin.Z + a*u.Z + b*v.Z,
				Y: origin.Y + a*u.Y + b*v.Y,
				X: origin.X + a*u.X + b*v.X,
			})
		}
	}
	return points
}

func dot(a, b models.Point) float64 {
	return a.Z*b.Z + a.Y*b.Y + a.X*b.X
}

func norm(p models.Point) float64 {
	return math.Sqrt(dot(p, p))
}

// angleBetween returns the angle between two directions, ignoring sign.
func angleBetween(a, b models.Point) float64 {
	c := math.Abs(dot(a, b)) / (norm(a) * norm(b))
	if c > 1 {
		c = 1
	}
	return math.Acos(c)
}

func TestFitPlaneExact(t *testing.T) {
	// Plane with normal (1, 2, 2)/3, spanned by two orthogonal in-plane
	// directions.
	origin := models.Point{Z: 10, Y: 20, X: 30}
	u := models.Point{Z: 2, Y: -1, X: 0}
	v := models.Point{Z: 2, Y: 4, X: -5}
	wantNormal := models.Point{Z: 1.0 / 3, Y: 2.0 / 3, X: 2.0 / 3}

	points := planePoints(origin, u, v, 2)

	plane, err := FitPlane(points)
	if err != nil {
		t.Fatalf("FitPlane failed: %v", err)
	}

	if angle := angleBetween(plane.Normal, wantNormal); angle > 1e-9 {
		t.Errorf("Normal off by %g rad: got (%g, %g, %g)", angle, plane.Normal.Z, plane.Normal.Y, plane.Normal.X)
	}
	if math.Abs(norm(plane.Normal)-1) > 1e-12 {
		t.Errorf("Normal is not unit length: %g", norm(plane.Normal))
	}

	centroid := points.Centroid()
	if math.Abs(plane.Centroid.Z-centroid.Z) > 1e-9 ||
		math.Abs(plane.Centroid.Y-centroid.Y) > 1e-9 ||
		math.Abs(plane.Centroid.X-centroid.X) > 1e-9 {
		t.Errorf("Centroid should equal the point mean, got (%g, %g, %g)",
			plane.Centroid.Z, plane.Centroid.Y, plane.Centroid.X)
	}
}

// TestFitPlaneSignConvention: the dominant component of the normal is
// non-negative regardless of point orientation.
func TestFitPlaneSignConvention(t *testing.T) {
	u := models.Point{Z: 0, Y: 1, X: 0}
	v := models.Point{Z: 0.2, Y: 0, X: 1}
	points := planePoints(models.Point{}, u, v, 2)

	// Reversing the point order flips the implicit orientation; the
	// fitted normal must not change.
	reversed := make(models.PointSet, len(points))
	for i, p := range points {
		reversed[len(points)-1-i] = p
	}

	p1, err := FitPlane(points)
	if err != nil {
		t.Fatalf("FitPlane failed: %v", err)
	}
	p2, err := FitPlane(reversed)
	if err != nil {
		t.Fatalf("FitPlane on reversed points failed: %v", err)
	}

	components := [3]float64{p1.Normal.Z, p1.Normal.Y, p1.Normal.X}
	dominant := 0
	for i := 1; i < 3; i++ {
		if math.Abs(components[i]) > math.Abs(components[dominant]) {
			dominant = i
		}
	}
	if components[dominant] < 0 {
		t.Errorf("Dominant normal component should be non-negative, got %g", components[dominant])
	}

	if math.Abs(p1.Normal.Z-p2.Normal.Z) > 1e-12 ||
		math.Abs(p1.Normal.Y-p2.Normal.Y) > 1e-12 ||
		math.Abs(p1.Normal.X-p2.Normal.X) > 1e-12 {
		t.Error("Normal should be identical for reversed point order")
	}
}

func TestFitPlaneCollinear(t *testing.T) {
	var points models.PointSet
	for i := 0; i < 9; i++ {
		points = append(points, models.Point{Z: float64(i), Y: 2 * float64(i), X: -float64(i)})
	}

	_, err := FitPlane(points)
	if !errors.Is(err, ErrDegeneratePointSet) {
		t.Fatalf("Expected ErrDegeneratePointSet for collinear points, got %v", err)
	}
}

func TestFitPlaneTooFewPoints(t *testing.T) {
	points := models.PointSet{{Z: 0}, {Z: 1}}

	_, err := FitPlane(points)
	if !errors.Is(err, ErrDegeneratePointSet) {
		t.Fatalf("Expected ErrDegeneratePointSet for 2 points, got %v", err)
	}
}

func TestFitPlaneCoincidentPoints(t *testing.T) {
	points := models.PointSet{{Z: 1, Y: 1, X: 1}, {Z: 1, Y: 1, X: 1}, {Z: 1, Y: 1, X: 1}}

	_, err := FitPlane(points)
	if !errors.Is(err, ErrDegeneratePointSet) {
		t.Fatalf("Expected ErrDegeneratePointSet for coincident points, got %v", err)
	}
}
