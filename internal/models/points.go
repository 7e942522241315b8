package models

// Point is a real-valued 3D coordinate in (z, y, x) order, matching the
// volume addressing scheme. It doubles as a 3-vector where directions are
// needed (plane normals, translation offsets).
type Point struct {
	Z, Y, X float64
}

// PointSet is an ordered sequence of points. Order is semantically
// meaningful: callers assign landmark labels 1..N by position, so it must
// be preserved end-to-end.
type PointSet []Point

// Centroid returns the arithmetic mean of the points. It returns the zero
// point for an empty set.
func (ps PointSet) Centroid() Point {
	if len(ps) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range ps {
		c.Z += p.Z
		c.Y += p.Y
		c.X += p.X
	}
	n := float64(len(ps))
	return Point{Z: c.Z / n, Y: c.Y / n, X: c.X / n}
}

// Plane is a plane in volume space described by a point on the plane and a
// unit normal. The normal always has unit L2 norm and its
// largest-magnitude component is non-negative (the fit's sign convention).
type Plane struct {
	Centroid Point
	Normal   Point
}
