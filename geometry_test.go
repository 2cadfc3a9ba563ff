package pdf2img

import "testing"

func TestMatrixIdentity(t *testing.T) {
	m := IdentityMatrix()
	if !m.IsIdentity() {
		t.Fatalf("IdentityMatrix() should report IsIdentity()")
	}
	if x, y := m.TransformPoint(3, 4); x != 3 || y != 4 {
		t.Fatalf("identity transform changed point: got (%v,%v)", x, y)
	}
}

func TestMatrixIsSkewed(t *testing.T) {
	cases := []struct {
		m    Matrix
		want bool
	}{
		{Matrix{A: 1, D: 1}, false},
		{Matrix{A: 1, B: 0.1, D: 1}, true},
		{Matrix{A: 1, C: 0.1, D: 1}, true},
	}
	for _, c := range cases {
		if got := c.m.IsSkewed(); got != c.want {
			t.Errorf("Matrix(%+v).IsSkewed() = %v, want %v", c.m, got, c.want)
		}
	}
}

func TestNonUniform(t *testing.T) {
	if NonUniform(100, 100, 200) {
		t.Fatalf("equal zooms should not be non-uniform")
	}
	if !NonUniform(100, 110, 200) {
		t.Fatalf("5%% asymmetry should exceed the 1%% threshold")
	}
	if NonUniform(100, 100.5, 200) {
		t.Fatalf("0.25%% asymmetry should be within the 1%% threshold")
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: -5, W: 10, H: 10}
	u := a.Union(b)
	if u.X != -0 && u.X != 0 {
		t.Errorf("unexpected union X: %v", u.X)
	}
	if u.Y != -5 {
		t.Errorf("unexpected union Y: %v", u.Y)
	}
	if u.W != 15 {
		t.Errorf("unexpected union W: %v", u.W)
	}
	if u.H != 15 {
		t.Errorf("unexpected union H: %v", u.H)
	}
}

func TestRectUnionWithEmpty(t *testing.T) {
	a := Rect{X: 1, Y: 1, W: 10, H: 10}
	if got := a.Union(Rect{}); got != a {
		t.Errorf("union with empty rect should return the non-empty rect unchanged, got %+v", got)
	}
}
