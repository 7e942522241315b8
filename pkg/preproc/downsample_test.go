package preproc

import (
	"math"
	"testing"

	"templatealign/internal/models"
)

func TestDownsampleStackBlockMean(t *testing.T) {
	vol := models.NewVolume(4, 4, 2)
	for i := range vol.Data {
		vol.Data[i] = float64(i)
	}

	out, err := DownsampleStack(vol, 2, 2)
	if err != nil {
		t.Fatalf("DownsampleStack failed: %v", err)
	}

	if out.Width != 2 || out.Height != 2 || out.Depth != 1 {
		t.Fatalf("Expected shape (1, 2, 2), got (%d, %d, %d)", out.Depth, out.Height, out.Width)
	}

	// Block at output (0, 0, 0) averages input voxels {0,1,4,5} from slice 0
	// and {16,17,20,21} from slice 1.
	want := (0.0 + 1 + 4 + 5 + 16 + 17 + 20 + 21) / 8
	if math.Abs(out.At(0, 0, 0)-want) > 1e-12 {
		t.Errorf("Block mean: expected %g, got %g", want, out.At(0, 0, 0))
	}
}

func TestDownsampleStackIdentityFactors(t *testing.T) {
	vol := models.NewVolume(3, 3, 3)
	for i := range vol.Data {
		vol.Data[i] = float64(i) * 0.5
	}

	out, err := DownsampleStack(vol, 1, 1)
	if err != nil {
		t.Fatalf("DownsampleStack failed: %v", err)
	}

	for i := range vol.Data {
		if out.Data[i] != vol.Data[i] {
			t.Fatalf("Factor 1 should preserve voxel %d", i)
		}
	}
}

// TestDownsampleStackDropsPartialBlocks: a 5-wide volume with factor 2
// keeps only the first 4 columns.
func TestDownsampleStackDropsPartialBlocks(t *testing.T) {
	vol := models.NewVolume(5, 4, 2)
	for i := range vol.Data {
		vol.Data[i] = 1
	}
	// Poison the column that must be dropped.
	for z := 0; z < 2; z++ {
		for y := 0; y < 4; y++ {
			vol.Set(z, y, 4, 1000)
		}
	}

	out, err := DownsampleStack(vol, 2, 2)
	if err != nil {
		t.Fatalf("DownsampleStack failed: %v", err)
	}

	if out.Width != 2 || out.Height != 2 || out.Depth != 1 {
		t.Fatalf("Expected shape (1, 2, 2), got (%d, %d, %d)", out.Depth, out.Height, out.Width)
	}
	for i, v := range out.Data {
		if v != 1 {
			t.Errorf("Trailing column leaked into output voxel %d: %g", i, v)
		}
	}
}

func TestDownsampleStackAnisotropicFactors(t *testing.T) {
	vol := models.NewVolume(6, 6, 9)
	for i := range vol.Data {
		vol.Data[i] = 2
	}

	out, err := DownsampleStack(vol, 3, 1)
	if err != nil {
		t.Fatalf("DownsampleStack failed: %v", err)
	}

	if out.Width != 2 || out.Height != 2 || out.Depth != 9 {
		t.Fatalf("Expected shape (9, 2, 2), got (%d, %d, %d)", out.Depth, out.Height, out.Width)
	}
	for i, v := range out.Data {
		if v != 2 {
			t.Errorf("Constant volume should stay constant, voxel %d is %g", i, v)
		}
	}
}

func TestDownsampleStackInvalidFactor(t *testing.T) {
	vol := models.NewVolume(4, 4, 4)

	if _, err := DownsampleStack(vol, 0, 1); err == nil {
		t.Fatal("Expected an error for an in-plane factor below 1")
	}
	if _, err := DownsampleStack(vol, 1, -2); err == nil {
		t.Fatal("Expected an error for a negative axial factor")
	}
}

func TestDownsampleStackTooSmall(t *testing.T) {
	vol := models.NewVolume(2, 2, 2)

	if _, err := DownsampleStack(vol, 4, 1); err == nil {
		t.Fatal("Expected an error when a factor exceeds the volume extent")
	}
}
