// Package geometry provides the numerical core of the alignment pipeline:
// total-least-squares plane fitting, minimal rotations between vectors, and
// homogeneous affine transform composition. All coordinates follow the
// volume convention (z, y, x).
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"templatealign/internal/models"
)

// ErrDegeneratePointSet is returned when a plane fit is ill-conditioned:
// fewer than 3 points, (near-)collinear points, or a scatter matrix whose
// two smallest eigenvalues cannot be separated.
var ErrDegeneratePointSet = errors.New("degenerate point set")

// eigenGapTol is the relative spread between the two smallest scatter
// eigenvalues below which the normal direction is considered undefined.
const eigenGapTol = 1e-6

// FitPlane fits a plane to a point set by total least squares. The plane
// passes through the centroid; its normal is the eigenvector of the 3x3
// scatter matrix with the smallest eigenvalue (the direction of least
// variance).
//
// The normal is unit length with a deterministic sign: the component with
// the largest magnitude is forced non-negative, keeping the fit stable
// across near-symmetric inputs.
func FitPlane(points models.PointSet) (models.Plane, error) {
	if len(points) < 3 {
		return models.Plane{}, fmt.Errorf("%w: need at least 3 points, got %d", ErrDegeneratePointSet, len(points))
	}

	centroid := points.Centroid()

	// Scatter matrix of the centered coordinates, in (z, y, x) order.
	var s [3][3]float64
	for _, p := range points {
		d := [3]float64{p.Z - centroid.Z, p.Y - centroid.Y, p.X - centroid.X}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				s[i][j] += d[i] * d[j]
			}
		}
	}
	scatter := mat.NewSymDense(3, []float64{
		s[0][0], s[0][1], s[0][2],
		s[1][0], s[1][1], s[1][2],
		s[2][0], s[2][1], s[2][2],
	})

	var es mat.EigenSym
	if !es.Factorize(scatter, true) {
		return models.Plane{}, fmt.Errorf("%w: eigendecomposition failed", ErrDegeneratePointSet)
	}

	// Eigenvalues come back in ascending order. The normal is well defined
	// only if the smallest eigenvalue is clearly separated from the next.
	vals := es.Values(nil)
	if vals[2] <= 0 {
		return models.Plane{}, fmt.Errorf("%w: all points coincide", ErrDegeneratePointSet)
	}
	if vals[1]-vals[0] <= eigenGapTol*vals[2] {
		return models.Plane{}, fmt.Errorf("%w: smallest eigenvalues %g and %g are not separable", ErrDegeneratePointSet, vals[0], vals[1])
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)
	normal := [3]float64{vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)}

	// Normalize and apply the sign convention.
	norm := math.Sqrt(normal[0]*normal[0] + normal[1]*normal[1] + normal[2]*normal[2])
	dominant := 0
	for i := 1; i < 3; i++ {
		if math.Abs(normal[i]) > math.Abs(normal[dominant]) {
			dominant = i
		}
	}
	if normal[dominant] < 0 {
		norm = -norm
	}
	for i := range normal {
		normal[i] /= norm
	}

	return models.Plane{
		Centroid: centroid,
		Normal:   models.Point{Z: normal[0], Y: normal[1], X: normal[2]},
	}, nil
}
