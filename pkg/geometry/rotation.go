package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"templatealign/internal/models"
)

// parallelTol is the squared cross-product magnitude below which two unit
// vectors are treated as (anti-)parallel.
const parallelTol = 1e-18

// AlignVectors computes the minimal-angle proper rotation R with R*s = t,
// via the Rodrigues axis-angle construction: the axis is the cross product
// of the two (normalized) vectors and the angle comes from their dot
// product. The result is a 3x3 orthonormal matrix with determinant +1
// acting on (z, y, x) vectors.
//
// Parallel inputs return the identity. Anti-parallel inputs have no unique
// minimal rotation; the axis is then chosen as the canonical basis vector
// with the smallest |component| of s, orthogonalized against s, and the
// rotation is by pi. The choice is fixed, so equal inputs always produce
// the same matrix.
func AlignVectors(source, target models.Point) (*mat.Dense, error) {
	s, err := normalize(source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	t, err := normalize(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	c := s[0]*t[0] + s[1]*t[1] + s[2]*t[2]
	v := [3]float64{
		s[1]*t[2] - s[2]*t[1],
		s[2]*t[0] - s[0]*t[2],
		s[0]*t[1] - s[1]*t[0],
	}
	n2 := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]

	if n2 < parallelTol {
		if c > 0 {
			return identity3(), nil
		}
		return halfTurn(orthogonalTo(s)), nil
	}

	// R = I + K + K^2 * (1-c)/|v|^2, with K the skew matrix of v.
	k := skew(v)
	var k2 mat.Dense
	k2.Mul(k, k)
	k2.Scale((1-c)/n2, &k2)

	r := identity3()
	r.Add(r, k)
	r.Add(r, &k2)
	return r, nil
}

func normalize(p models.Point) ([3]float64, error) {
	n := math.Sqrt(p.Z*p.Z + p.Y*p.Y + p.X*p.X)
	if n == 0 {
		return [3]float64{}, fmt.Errorf("cannot align zero-length vector")
	}
	return [3]float64{p.Z / n, p.Y / n, p.X / n}, nil
}

// orthogonalTo returns a unit vector orthogonal to the unit vector s,
// built from the canonical basis vector with the smallest |s| component.
func orthogonalTo(s [3]float64) [3]float64 {
	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(s[i]) < math.Abs(s[axis]) {
			axis = i
		}
	}
	var e [3]float64
	e[axis] = 1

	dot := e[0]*s[0] + e[1]*s[1] + e[2]*s[2]
	var a [3]float64
	for i := range a {
		a[i] = e[i] - dot*s[i]
	}
	n := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
	for i := range a {
		a[i] /= n
	}
	return a
}

// halfTurn returns the rotation by pi around the unit axis a:
// R = 2*a*a^T - I.
func halfTurn(a [3]float64) *mat.Dense {
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := 2 * a[i] * a[j]
			if i == j {
				v -= 1
			}
			r.Set(i, j, v)
		}
	}
	return r
}

func skew(v [3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}
