package pdf2img

import "math"

// Point is a location in page-unit (1/72 inch) space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle positioned at (X, Y) with size (W, H),
// expressed in whichever coordinate space the caller is working in (page
// units or device pixels).
type Rect struct {
	X, Y, W, H float64
}

// Union returns the smallest rectangle that contains both r and other.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	x := math.Min(r.X, other.X)
	y := math.Min(r.Y, other.Y)
	x2 := math.Max(r.X+r.W, other.X+other.W)
	y2 := math.Max(r.Y+r.H, other.Y+other.H)
	return Rect{X: x, Y: y, W: x2 - x, H: y2 - y}
}

// IsEmpty returns true if the rectangle has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// Area returns the area of the rectangle.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.W * r.H
}

// Matrix is a PDF-style 2D affine transform [a b c d e f]:
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity transform.
func IdentityMatrix() Matrix {
	return Matrix{A: 1, D: 1}
}

// Multiply returns the product m*other, matching PDF's post-multiplication
// convention for concatenating a `cm` operator onto the current transform.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.C*other.B,
		B: m.B*other.A + m.D*other.B,
		C: m.A*other.C + m.C*other.D,
		D: m.B*other.C + m.D*other.D,
		E: m.A*other.E + m.C*other.F + m.E,
		F: m.B*other.E + m.D*other.F + m.F,
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix) TransformPoint(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// IsIdentity reports whether m is (within tolerance) the identity matrix.
func (m Matrix) IsIdentity() bool {
	const eps = 1e-9
	return math.Abs(m.A-1) < eps && math.Abs(m.B) < eps &&
		math.Abs(m.C) < eps && math.Abs(m.D-1) < eps &&
		math.Abs(m.E) < eps && math.Abs(m.F) < eps
}

// IsSkewed reports whether the matrix has a rotation/shear component, per
// the geometry warning rule: b != 0 or c != 0.
func (m Matrix) IsSkewed() bool {
	return m.B != 0 || m.C != 0
}

// ZoomX and ZoomY return the matrix's A and D entries: the drawn width and
// height, in page units, of a placed image. The pixels-per-page-unit zoom of
// a placement is computed by derivedZoom in compositor.go.
func (m Matrix) ZoomX() float64 { return m.A }
func (m Matrix) ZoomY() float64 { return m.D }

// NonUniform reports whether the horizontal and vertical scale of a
// placement differ by more than 1% of width, the reference scale the
// difference is measured against (the compositor passes the horizontal zoom).
func NonUniform(zoomX, zoomY, width float64) bool {
	if width == 0 {
		return false
	}
	return math.Abs(zoomX-zoomY) > 0.01*width
}
