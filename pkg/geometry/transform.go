package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"templatealign/internal/models"
)

// Affine is an affine map over (z, y, x) coordinates: a 3x3 linear part
// plus a translation offset. The alignment pipeline uses it as a pull map,
// sampling the input volume at Linear*p + Offset for each output voxel p.
type Affine struct {
	Linear *mat.Dense
	Offset models.Point
}

// Apply maps a single point through the transform.
func (a Affine) Apply(p models.Point) models.Point {
	v := []float64{p.Z, p.Y, p.X}
	out := make([]float64, 3)
	for i := 0; i < 3; i++ {
		out[i] = a.Linear.At(i, 0)*v[0] + a.Linear.At(i, 1)*v[1] + a.Linear.At(i, 2)*v[2]
	}
	return models.Point{
		Z: out[0] + a.Offset.Z,
		Y: out[1] + a.Offset.Y,
		X: out[2] + a.Offset.X,
	}
}

// ComposeAlignment builds the transform that aligns a fitted midline plane
// with the canonical orientation: after resampling with the returned pull
// map, the plane's normal lies along the z (slicing) axis and the plane
// itself sits at the volume's mid-slice index floor(depth/2).
//
// The transform is composed from four homogeneous 4x4 operations in a
// fixed order:
//
//	M = inv(T_to_origin) * R * T_to_origin * T_to_mid
//
// where T_to_origin translates the plane centroid to the origin, R rotates
// the canonical axis onto the plane normal (so that, read as a pull map,
// output slices perpendicular to z sample input slices perpendicular to
// the normal), and T_to_mid shifts along z by centroid_z - floor(depth/2).
// The order is load-bearing; reordering the factors changes the result.
func ComposeAlignment(plane models.Plane, width, height, depth int) (Affine, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return Affine{}, fmt.Errorf("invalid volume shape %dx%dx%d", depth, height, width)
	}

	canonical := models.Point{Z: 1}
	r, err := AlignVectors(canonical, plane.Normal)
	if err != nil {
		return Affine{}, fmt.Errorf("aligning canonical axis with plane normal: %w", err)
	}

	c := plane.Centroid
	mid := float64(depth / 2)

	toOrigin := translation(models.Point{Z: -c.Z, Y: -c.Y, X: -c.X})
	fromOrigin := translation(c)
	toMid := translation(models.Point{Z: c.Z - mid})
	rot := embedRotation(r)

	var m mat.Dense
	m.Mul(fromOrigin, rot)
	m.Mul(&m, toOrigin)
	m.Mul(&m, toMid)

	linear := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			linear.Set(i, j, m.At(i, j))
		}
	}
	offset := models.Point{Z: m.At(0, 3), Y: m.At(1, 3), X: m.At(2, 3)}

	return Affine{Linear: linear, Offset: offset}, nil
}

// translation returns the 4x4 homogeneous matrix translating by t.
func translation(t models.Point) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, t.Z,
		0, 1, 0, t.Y,
		0, 0, 1, t.X,
		0, 0, 0, 1,
	})
}

// embedRotation lifts a 3x3 rotation into a 4x4 homogeneous matrix.
func embedRotation(r *mat.Dense) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, r.At(i, j))
		}
	}
	m.Set(3, 3, 1)
	return m
}
