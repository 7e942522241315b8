package segmentation

import (
	"testing"

	"templatealign/internal/models"
)

func TestErodeZeroRadiusIsIdentity(t *testing.T) {
	mask := models.NewMask(9, 9, 9)
	fillBox(mask, 2, 7, 2, 7, 2, 7)

	out, err := Erode(mask, 0)
	if err != nil {
		t.Fatalf("Erode failed: %v", err)
	}

	for i := range mask.Data {
		if out.Data[i] != mask.Data[i] {
			t.Fatalf("Zero-radius erosion changed voxel %d", i)
		}
	}

	// The result must be a fresh copy, not an alias.
	out.Set(0, 0, 0, true)
	if mask.At(0, 0, 0) {
		t.Error("Erode(mask, 0) must not alias the input")
	}
}

func TestErodeNegativeRadius(t *testing.T) {
	mask := models.NewMask(3, 3, 3)
	if _, err := Erode(mask, -1); err == nil {
		t.Fatal("Expected an error for negative radius")
	}
}

// TestErodeShrinksCube verifies that a radius-1 cubic erosion peels one
// voxel from every face of a cube.
func TestErodeShrinksCube(t *testing.T) {
	mask := models.NewMask(9, 9, 9)
	fillBox(mask, 2, 7, 2, 7, 2, 7) // 5x5x5 cube

	out, err := Erode(mask, 1)
	if err != nil {
		t.Fatalf("Erode failed: %v", err)
	}

	if got := out.Count(); got != 27 {
		t.Errorf("Expected a 3x3x3 remnant (27 voxels), got %d", got)
	}
	for z := 3; z < 6; z++ {
		for y := 3; y < 6; y++ {
			for x := 3; x < 6; x++ {
				if !out.At(z, y, x) {
					t.Fatalf("Interior voxel (%d,%d,%d) should survive", z, y, x)
				}
			}
		}
	}
	if out.At(2, 4, 4) {
		t.Error("Face voxel should be eroded")
	}
}

// TestErodeAtBoundary verifies that voxels beyond the volume count as
// background, so a full mask erodes at the volume faces.
func TestErodeAtBoundary(t *testing.T) {
	mask := models.NewMask(5, 5, 5)
	fillBox(mask, 0, 5, 0, 5, 0, 5)

	out, err := Erode(mask, 1)
	if err != nil {
		t.Fatalf("Erode failed: %v", err)
	}

	if got := out.Count(); got != 27 {
		t.Errorf("Expected 27 interior voxels, got %d", got)
	}
	if out.At(0, 2, 2) {
		t.Error("Voxel on the volume face should be eroded")
	}
	if !out.At(2, 2, 2) {
		t.Error("Volume center should survive")
	}
}
