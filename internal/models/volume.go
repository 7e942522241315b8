// Package models defines the value types passed between the alignment
// pipeline stages. The types carry data only; all behaviour lives in the
// processing packages.
package models

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when two volumetric entities that must share
// a shape (for example a mask and the volume it was derived from) disagree
// in one or more dimensions.
var ErrShapeMismatch = errors.New("shape mismatch")

// Volume represents a 3D scalar intensity volume.
type Volume struct {
	// Data is the voxel data as a 1D array in row-major order,
	// indexed as z*Width*Height + y*Width + x.
	Data []float64

	// Width is the extent along x in voxels.
	Width int

	// Height is the extent along y in voxels.
	Height int

	// Depth is the extent along z in voxels. The z axis is the slicing
	// axis and the canonical alignment axis.
	Depth int
}

// NewVolume allocates a zero-filled volume with the given dimensions.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// At returns the intensity at voxel (z, y, x).
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set stores an intensity at voxel (z, y, x).
func (v *Volume) Set(z, y, x int, value float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	out := NewVolume(v.Width, v.Height, v.Depth)
	copy(out.Data, v.Data)
	return out
}

// Mask represents a binary segmentation with the same addressing scheme
// as Volume. Each pipeline stage consumes one mask and produces a new one;
// masks are never aliased across stage boundaries.
type Mask struct {
	// Data holds the foreground flags in row-major order.
	Data []bool

	// Width, Height and Depth mirror the source volume's dimensions.
	Width  int
	Height int
	Depth  int
}

// NewMask allocates an all-background mask with the given dimensions.
func NewMask(width, height, depth int) *Mask {
	return &Mask{
		Data:   make([]bool, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// At reports whether voxel (z, y, x) is foreground.
func (m *Mask) At(z, y, x int) bool {
	return m.Data[z*m.Width*m.Height+y*m.Width+x]
}

// Set stores a foreground flag at voxel (z, y, x).
func (m *Mask) Set(z, y, x int, value bool) {
	m.Data[z*m.Width*m.Height+y*m.Width+x] = value
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Width, m.Height, m.Depth)
	copy(out.Data, m.Data)
	return out
}

// Count returns the number of foreground voxels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// CheckSameShape returns ErrShapeMismatch (wrapped with both shapes) unless
// the mask and volume agree in all three dimensions.
func CheckSameShape(m *Mask, v *Volume) error {
	if m.Width != v.Width || m.Height != v.Height || m.Depth != v.Depth {
		return fmt.Errorf("mask %dx%dx%d vs volume %dx%dx%d: %w",
			m.Depth, m.Height, m.Width, v.Depth, v.Height, v.Width, ErrShapeMismatch)
	}
	return nil
}
