package segmentation

import (
	"fmt"

	"templatealign/internal/models"
)

// Erode shrinks a mask by binary erosion with a cubic structuring element
// of side 2*radius+1: an output voxel is foreground only if every input
// voxel covered by the element is foreground. Voxels beyond the volume
// boundary count as background, so foreground touching the boundary is
// always eroded there.
//
// A radius of zero is a documented no-op that returns a copy of the input.
func Erode(mask *models.Mask, radius int) (*models.Mask, error) {
	if radius < 0 {
		return nil, fmt.Errorf("erosion radius must be >= 0, got %d", radius)
	}
	if radius == 0 {
		return mask.Clone(), nil
	}

	// Erosion by a cube separates into one 1D erosion per axis.
	out := erodeAxis(mask, radius, 0, 0, 1) // x
	out = erodeAxis(out, radius, 0, 1, 0)   // y
	out = erodeAxis(out, radius, 1, 0, 0)   // z
	return out, nil
}

// erodeAxis performs a 1D erosion along the axis selected by the unit step
// (sz, sy, sx).
func erodeAxis(mask *models.Mask, radius, sz, sy, sx int) *models.Mask {
	w, h, d := mask.Width, mask.Height, mask.Depth
	out := models.NewMask(w, h, d)

	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !mask.At(z, y, x) {
					continue
				}
				keep := true
				for o := -radius; o <= radius && keep; o++ {
					nz, ny, nx := z+o*sz, y+o*sy, x+o*sx
					if nz < 0 || nz >= d || ny < 0 || ny >= h || nx < 0 || nx >= w {
						keep = false
					} else if !mask.At(nz, ny, nx) {
						keep = false
					}
				}
				if keep {
					out.Set(z, y, x, true)
				}
			}
		}
	}
	return out
}
