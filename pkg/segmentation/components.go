package segmentation

import (
	"errors"

	"templatealign/internal/models"
)

// ErrEmptyMask is returned when a mask contains no foreground voxels.
var ErrEmptyMask = errors.New("mask has no foreground voxels")

// LargestComponent labels the connected components of a binary mask using
// full 26-connectivity (faces, edges and corners) and returns a new mask
// containing only the component with the most voxels. Components are
// discovered in ascending (z, y, x) scan order, so a size tie is broken in
// favour of the first component encountered.
func LargestComponent(mask *models.Mask) (*models.Mask, error) {
	w, h, d := mask.Width, mask.Height, mask.Depth
	labels := make([]int32, len(mask.Data))

	var sizes []int
	next := int32(0)

	// Explicit stack flood fill; recursion would overflow on large
	// specimen-sized components.
	stack := make([]int, 0, 1024)

	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				idx := z*w*h + y*w + x
				if !mask.Data[idx] || labels[idx] != 0 {
					continue
				}

				next++
				label := next
				size := 0
				labels[idx] = label
				stack = append(stack[:0], idx)

				for len(stack) > 0 {
					cur := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					size++

					cz := cur / (w * h)
					cy := (cur / w) % h
					cx := cur % w

					for dz := -1; dz <= 1; dz++ {
						for dy := -1; dy <= 1; dy++ {
							for dx := -1; dx <= 1; dx++ {
								if dz == 0 && dy == 0 && dx == 0 {
									continue
								}
								nz, ny, nx := cz+dz, cy+dy, cx+dx
								if nz < 0 || nz >= d || ny < 0 || ny >= h || nx < 0 || nx >= w {
									continue
								}
								nidx := nz*w*h + ny*w + nx
								if mask.Data[nidx] && labels[nidx] == 0 {
									labels[nidx] = label
									stack = append(stack, nidx)
								}
							}
						}
					}
				}

				sizes = append(sizes, size)
			}
		}
	}

	if next == 0 {
		return nil, ErrEmptyMask
	}

	// First label with the maximal count wins; strict inequality keeps the
	// tie-break deterministic in scan order.
	best := int32(1)
	for i, s := range sizes {
		if s > sizes[best-1] {
			best = int32(i + 1)
		}
	}

	out := models.NewMask(w, h, d)
	for i, l := range labels {
		out.Data[i] = l == best
	}
	return out, nil
}
