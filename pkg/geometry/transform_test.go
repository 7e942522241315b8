package geometry

import (
	"math"
	"testing"

	"templatealign/internal/models"
)

func TestComposeAlignmentCanonicalPlaneIsIdentity(t *testing.T) {
	// Plane already at canonical orientation and position: normal along z,
	// centroid on the mid-slice of a 50-deep volume.
	plane := models.Plane{
		Centroid: models.Point{Z: 25, Y: 20, X: 30},
		Normal:   models.Point{Z: 1},
	}

	affine, err := ComposeAlignment(plane, 50, 50, 50)
	if err != nil {
		t.Fatalf("ComposeAlignment failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(affine.Linear.At(i, j)-want) > 1e-12 {
				t.Errorf("Linear part should be identity, got %g at (%d,%d)", affine.Linear.At(i, j), i, j)
			}
		}
	}
	if math.Abs(affine.Offset.Z) > 1e-12 || math.Abs(affine.Offset.Y) > 1e-12 || math.Abs(affine.Offset.X) > 1e-12 {
		t.Errorf("Offset should be zero, got (%g, %g, %g)", affine.Offset.Z, affine.Offset.Y, affine.Offset.X)
	}
}

func TestComposeAlignmentTranslatesToMidSlice(t *testing.T) {
	// Canonical orientation but off the mid-slice: the transform reduces
	// to a pure z translation by centroid_z - floor(depth/2).
	plane := models.Plane{
		Centroid: models.Point{Z: 10, Y: 25, X: 25},
		Normal:   models.Point{Z: 1},
	}

	affine, err := ComposeAlignment(plane, 50, 50, 51)
	if err != nil {
		t.Fatalf("ComposeAlignment failed: %v", err)
	}

	wantShift := 10.0 - 25.0 // centroid_z - floor(51/2)
	if math.Abs(affine.Offset.Z-wantShift) > 1e-12 {
		t.Errorf("Expected z offset %g, got %g", wantShift, affine.Offset.Z)
	}
	if math.Abs(affine.Offset.Y) > 1e-12 || math.Abs(affine.Offset.X) > 1e-12 {
		t.Errorf("In-plane offsets should be zero, got y=%g x=%g", affine.Offset.Y, affine.Offset.X)
	}
}

// TestComposeAlignmentMapsMidSliceOntoPlane: as a pull map, any output
// voxel on the canonical mid-slice must sample a point on the fitted
// plane.
func TestComposeAlignmentMapsMidSliceOntoPlane(t *testing.T) {
	normal := models.Point{Z: math.Cos(0.5), Y: math.Sin(0.5), X: 0}
	plane := models.Plane{
		Centroid: models.Point{Z: 22, Y: 28, X: 25},
		Normal:   normal,
	}

	affine, err := ComposeAlignment(plane, 50, 50, 50)
	if err != nil {
		t.Fatalf("ComposeAlignment failed: %v", err)
	}

	mid := 25.0
	for _, q := range []models.Point{
		{Z: mid, Y: 10, X: 10},
		{Z: mid, Y: 40, X: 5},
		{Z: mid, Y: 25, X: 25},
	} {
		p := affine.Apply(q)
		d := models.Point{Z: p.Z - plane.Centroid.Z, Y: p.Y - plane.Centroid.Y, X: p.X - plane.Centroid.X}
		if dist := math.Abs(dot(d, normal)); dist > 1e-9 {
			t.Errorf("Output point (%g, %g, %g) maps %g voxels off the plane", q.Z, q.Y, q.X, dist)
		}
	}

	// The linear part is the alignment rotation itself.
	if det := math.Abs(affine.Linear.At(0, 0)*affine.Linear.At(1, 1)-affine.Linear.At(0, 1)*affine.Linear.At(1, 0)) *
		math.Abs(affine.Linear.At(2, 2)); math.Abs(det-1) > 1e-9 {
		t.Errorf("Linear part should be a rotation in the z-y plane, block determinant %g", det)
	}
}

func TestComposeAlignmentInvalidShape(t *testing.T) {
	plane := models.Plane{Centroid: models.Point{}, Normal: models.Point{Z: 1}}
	if _, err := ComposeAlignment(plane, 0, 10, 10); err == nil {
		t.Fatal("Expected an error for a zero-extent shape")
	}
}

func TestComposeAlignmentZeroNormal(t *testing.T) {
	plane := models.Plane{Centroid: models.Point{Z: 1}}
	if _, err := ComposeAlignment(plane, 10, 10, 10); err == nil {
		t.Fatal("Expected an error for a zero-length normal")
	}
}
