// Package preproc prepares raw acquisitions for template building.
// Microscopy stacks are typically anisotropic (finer in-plane than between
// slices), so they are brought to an isotropic target resolution by
// block-mean downsampling with separate in-plane and axial factors.
package preproc

import (
	"fmt"

	"templatealign/internal/models"
)

// DownsampleStack reduces a volume by integer factors: inPlaneFactor along
// x and y, axialFactor along z. Each output voxel is the mean of its
// source block; trailing voxels that do not fill a complete block are
// dropped.
func DownsampleStack(vol *models.Volume, inPlaneFactor, axialFactor int) (*models.Volume, error) {
	if inPlaneFactor < 1 || axialFactor < 1 {
		return nil, fmt.Errorf("downsampling factors must be >= 1, got in-plane %d, axial %d", inPlaneFactor, axialFactor)
	}

	w := vol.Width / inPlaneFactor
	h := vol.Height / inPlaneFactor
	d := vol.Depth / axialFactor
	if w < 1 || h < 1 || d < 1 {
		return nil, fmt.Errorf("volume %dx%dx%d too small for factors in-plane %d, axial %d",
			vol.Depth, vol.Height, vol.Width, inPlaneFactor, axialFactor)
	}

	out := models.NewVolume(w, h, d)
	blockSize := float64(inPlaneFactor * inPlaneFactor * axialFactor)

	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum := 0.0
				for bz := 0; bz < axialFactor; bz++ {
					for by := 0; by < inPlaneFactor; by++ {
						for bx := 0; bx < inPlaneFactor; bx++ {
							sum += vol.At(z*axialFactor+bz, y*inPlaneFactor+by, x*inPlaneFactor+bx)
						}
					}
				}
				out.Set(z, y, x, sum/blockSize)
			}
		}
	}

	return out, nil
}
