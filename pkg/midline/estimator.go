// Package midline derives landmark points approximating the midline
// surface of a segmented specimen. The points feed the plane fit that
// determines the alignment rotation.
package midline

import (
	"errors"
	"fmt"

	"templatealign/internal/models"
)

// NumPoints is the fixed number of midline landmarks. Downstream tooling
// labels the points 1..NumPoints by position, so the count and order are
// part of the contract.
const NumPoints = 9

// ErrInsufficientForeground is returned when a mask does not contain
// enough foreground voxels to place a landmark in every slab.
var ErrInsufficientForeground = errors.New("insufficient foreground voxels for midline estimation")

// EstimatePoints estimates NumPoints ordered midline landmarks from a
// binary mask holding a single connected object.
//
// The object's bounding extent along its longest axis is split into
// NumPoints near-equal slabs. Each slab contributes the centroid of its
// foreground voxels, projected onto the slab's central cross-section (the
// slab-axis coordinate is replaced by the slab center). Points are emitted
// from the low end of the axis to the high end.
func EstimatePoints(mask *models.Mask) (models.PointSet, error) {
	bounds, count := foregroundBounds(mask)
	if count < NumPoints {
		return nil, fmt.Errorf("%w: have %d voxels, need at least %d", ErrInsufficientForeground, count, NumPoints)
	}

	// Longest bounding-box axis; ties resolve in (z, y, x) order.
	extents := [3]int{
		bounds[0][1] - bounds[0][0] + 1,
		bounds[1][1] - bounds[1][0] + 1,
		bounds[2][1] - bounds[2][0] + 1,
	}
	axis := 0
	for a := 1; a < 3; a++ {
		if extents[a] > extents[axis] {
			axis = a
		}
	}

	start := bounds[axis][0]
	extent := extents[axis]

	// Slab widths: extent/NumPoints each, with the remainder spread over
	// the leading slabs.
	base := extent / NumPoints
	rem := extent % NumPoints

	points := make(models.PointSet, 0, NumPoints)
	lo := start
	for i := 0; i < NumPoints; i++ {
		width := base
		if i < rem {
			width++
		}
		hi := lo + width // exclusive

		centroid, n := slabCentroid(mask, axis, lo, hi)
		if n == 0 {
			return nil, fmt.Errorf("%w: slab %d of %d is empty", ErrInsufficientForeground, i+1, NumPoints)
		}

		// Project onto the slab's central cross-section.
		center := float64(lo) + float64(width-1)/2
		switch axis {
		case 0:
			centroid.Z = center
		case 1:
			centroid.Y = center
		case 2:
			centroid.X = center
		}
		points = append(points, centroid)
		lo = hi
	}

	return points, nil
}

// foregroundBounds returns the inclusive (z, y, x) bounding box of the
// foreground and the foreground voxel count.
func foregroundBounds(mask *models.Mask) (bounds [3][2]int, count int) {
	for a := 0; a < 3; a++ {
		bounds[a][0] = 1 << 30
		bounds[a][1] = -1
	}
	for z := 0; z < mask.Depth; z++ {
		for y := 0; y < mask.Height; y++ {
			for x := 0; x < mask.Width; x++ {
				if !mask.At(z, y, x) {
					continue
				}
				count++
				c := [3]int{z, y, x}
				for a := 0; a < 3; a++ {
					if c[a] < bounds[a][0] {
						bounds[a][0] = c[a]
					}
					if c[a] > bounds[a][1] {
						bounds[a][1] = c[a]
					}
				}
			}
		}
	}
	return bounds, count
}

// slabCentroid returns the centroid of foreground voxels whose coordinate
// along the given axis lies in [lo, hi), and the number of such voxels.
func slabCentroid(mask *models.Mask, axis, lo, hi int) (models.Point, int) {
	var sz, sy, sx float64
	n := 0
	for z := 0; z < mask.Depth; z++ {
		for y := 0; y < mask.Height; y++ {
			for x := 0; x < mask.Width; x++ {
				if !mask.At(z, y, x) {
					continue
				}
				c := [3]int{z, y, x}
				if c[axis] < lo || c[axis] >= hi {
					continue
				}
				sz += float64(z)
				sy += float64(y)
				sx += float64(x)
				n++
			}
		}
	}
	if n == 0 {
		return models.Point{}, 0
	}
	f := float64(n)
	return models.Point{Z: sz / f, Y: sy / f, X: sx / f}, n
}
