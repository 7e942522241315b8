// Package resample applies affine transforms to 3D scalar volumes. The
// transform is interpreted as a pull map: every output voxel samples the
// input volume at the transformed coordinate, so the output grid is always
// fully populated.
package resample

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"templatealign/internal/models"
)

// Order selects the interpolation scheme.
type Order int

const (
	// Nearest snaps the sampling coordinate to the closest voxel.
	Nearest Order = 0

	// Linear performs trilinear interpolation over the 8 surrounding
	// voxels. This matches the default behaviour of the affine resampling
	// routine the pipeline was built against.
	Linear Order = 1
)

// Resampler resamples volumes through affine transforms. A Resampler is
// stateless between calls and safe for concurrent use.
type Resampler struct {
	order      Order
	numWorkers int
}

// NewResampler creates a resampler with the given interpolation order.
// numWorkers bounds the number of goroutines used per call; values below 1
// fall back to the number of CPUs.
func NewResampler(order Order, numWorkers int) (*Resampler, error) {
	if order != Nearest && order != Linear {
		return nil, fmt.Errorf("unsupported interpolation order %d", order)
	}
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	return &Resampler{order: order, numWorkers: numWorkers}, nil
}

// Apply resamples a volume through the affine map linear*p + offset and
// returns a newly allocated volume of identical shape. Coordinates that
// land outside the input are filled with the constant 0.
//
// Output voxels are independent, so the work is split across z-slices and
// computed in parallel without synchronization: the input is read-only and
// every worker writes a disjoint output range.
func (r *Resampler) Apply(vol *models.Volume, linear *mat.Dense, offset models.Point) (*models.Volume, error) {
	if rows, cols := linear.Dims(); rows != 3 || cols != 3 {
		return nil, fmt.Errorf("linear part must be 3x3, got %dx%d", rows, cols)
	}

	w, h, d := vol.Width, vol.Height, vol.Depth
	out := models.NewVolume(w, h, d)

	var l [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			l[i][j] = linear.At(i, j)
		}
	}
	off := [3]float64{offset.Z, offset.Y, offset.X}

	workers := r.numWorkers
	if workers > d {
		workers = d
	}
	slicesPerWorker := (d + workers - 1) / workers

	var wg sync.WaitGroup
	for c := 0; c < workers; c++ {
		wg.Add(1)
		go func(startZ int) {
			defer wg.Done()
			endZ := startZ + slicesPerWorker
			if endZ > d {
				endZ = d
			}
			for z := startZ; z < endZ; z++ {
				for y := 0; y < h; y++ {
					for x := 0; x < w; x++ {
						fz := float64(z)
						fy := float64(y)
						fx := float64(x)
						sz := l[0][0]*fz + l[0][1]*fy + l[0][2]*fx + off[0]
						sy := l[1][0]*fz + l[1][1]*fy + l[1][2]*fx + off[1]
						sx := l[2][0]*fz + l[2][1]*fy + l[2][2]*fx + off[2]

						var value float64
						if r.order == Nearest {
							value = sampleNearest(vol, sz, sy, sx)
						} else {
							value = sampleTrilinear(vol, sz, sy, sx)
						}
						out.Set(z, y, x, value)
					}
				}
			}
		}(c * slicesPerWorker)
	}
	wg.Wait()

	return out, nil
}

func sampleNearest(vol *models.Volume, z, y, x float64) float64 {
	iz := int(math.Round(z))
	iy := int(math.Round(y))
	ix := int(math.Round(x))
	if iz < 0 || iz >= vol.Depth || iy < 0 || iy >= vol.Height || ix < 0 || ix >= vol.Width {
		return 0
	}
	return vol.At(iz, iy, ix)
}

func sampleTrilinear(vol *models.Volume, z, y, x float64) float64 {
	z0 := int(math.Floor(z))
	y0 := int(math.Floor(y))
	x0 := int(math.Floor(x))

	tz := z - float64(z0)
	ty := y - float64(y0)
	tx := x - float64(x0)

	var acc float64
	for dz := 0; dz <= 1; dz++ {
		wz := 1 - tz
		if dz == 1 {
			wz = tz
		}
		for dy := 0; dy <= 1; dy++ {
			wy := 1 - ty
			if dy == 1 {
				wy = ty
			}
			for dx := 0; dx <= 1; dx++ {
				wx := 1 - tx
				if dx == 1 {
					wx = tx
				}
				weight := wz * wy * wx
				if weight == 0 {
					continue
				}
				acc += weight * sampleAt(vol, z0+dz, y0+dy, x0+dx)
			}
		}
	}
	return acc
}

// sampleAt reads a voxel with constant-zero padding outside the volume.
func sampleAt(vol *models.Volume, z, y, x int) float64 {
	if z < 0 || z >= vol.Depth || y < 0 || y >= vol.Height || x < 0 || x >= vol.Width {
		return 0
	}
	return vol.At(z, y, x)
}
