package spline

import (
	"math"
	"math/rand"
	"testing"
)

func defaultParams(extrap Extrap) Params {
	return Params{XLo: 0, XHi: 1, YLo: 0, YHi: 1, Extrap: extrap}
}

func randRaw(r *rand.Rand, n int) []float64 {
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = 2 * r.NormFloat64()
	}
	return raw
}

func TestIdentityInitialization(t *testing.T) {
	// all-zero raw parameters must give the identity map with unit
	// derivative everywhere inside the domain
	p := defaultParams(Extrap{})
	for _, m := range []int{2, 4, 8} {
		s, err := p.Build(make([]float64, 3*m-2))
		if err != nil {
			t.Fatalf("m=%d: %v", m, err)
		}
		for _, x := range []float64{0, 0.1, 0.25, 0.5, 0.77, 1} {
			y, g := s.Forward(x)
			if math.Abs(y-x) > 1e-12 {
				t.Fatalf("m=%d: forward(%v) = %v, want identity", m, x, y)
			}
			if math.Abs(g-1) > 1e-12 {
				t.Fatalf("m=%d: derivative at %v = %v, want 1", m, x, g)
			}
		}
	}
}

func TestKnotLayouts(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	fixed := []float64{0, 0.25, 0.5, 0.75, 1}
	cases := []struct {
		name  string
		p     Params
		width int
	}{
		{"both-free", defaultParams(Extrap{}), 3*5 - 2},
		{"x-fixed", Params{XHi: 1, YHi: 1, KnotsX: fixed}, 2*5 - 1},
		{"y-fixed", Params{XHi: 1, YHi: 1, KnotsY: fixed}, 2*5 - 1},
		{"both-fixed", Params{XHi: 1, YHi: 1, KnotsX: fixed, KnotsY: fixed}, 5},
	}
	for _, c := range cases {
		s, err := c.p.Build(randRaw(r, c.width))
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		lo, hi := s.Domain()
		if lo != 0 || hi != 1 {
			t.Fatalf("%s: domain [%v,%v], want [0,1]", c.name, lo, hi)
		}
		lo, hi = s.Codomain()
		if lo != 0 || hi != 1 {
			t.Fatalf("%s: codomain [%v,%v], want [0,1]", c.name, lo, hi)
		}
	}
	if _, err := defaultParams(Extrap{}).Build(randRaw(r, 12)); err == nil {
		t.Fatal("accepted width 12, which is not 3m-2")
	}
	if _, err := defaultParams(Extrap{}).Build([]float64{0}); err == nil {
		t.Fatal("accepted a single-knot layout")
	}
}

func TestMonotoneAndRoundtrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	extraps := []Extrap{
		{Left: Linear, Right: Linear},
		{Left: Anti, Right: Anti},
		{Left: Anti, Right: Linear},
	}
	for _, ex := range extraps {
		for trial := 0; trial < 20; trial++ {
			p := defaultParams(ex)
			s, err := p.Build(randRaw(r, 3*8-2))
			if err != nil {
				t.Fatal(err)
			}
			prev := math.Inf(-1)
			for i := 0; i <= 200; i++ {
				// cover the interior and both extrapolation regions
				x := -0.5 + 2*float64(i)/200
				y, g := s.Forward(x)
				if y <= prev {
					t.Fatalf("extrap=%v: not strictly increasing at x=%v", ex, x)
				}
				if !(g > 0) {
					t.Fatalf("extrap=%v: derivative %v at x=%v", ex, g, x)
				}
				prev = y
				xb, gb := s.Backward(y)
				if math.Abs(xb-x) > 1e-9 {
					t.Fatalf("extrap=%v: backward(forward(%v)) = %v", ex, x, xb)
				}
				if math.Abs(gb*g-1) > 1e-6 {
					t.Fatalf("extrap=%v: derivative product %v at x=%v", ex, gb*g, x)
				}
			}
		}
	}
}

func TestLinearExtrapolationSlope(t *testing.T) {
	p := defaultParams(Extrap{})
	s, err := p.Build(make([]float64, 3*4-2))
	if err != nil {
		t.Fatal(err)
	}
	y, g := s.Forward(1.5)
	if math.Abs(y-1.5) > 1e-12 || math.Abs(g-1) > 1e-12 {
		t.Fatalf("identity spline linear extrapolation: (%v, %v)", y, g)
	}
	y, g = s.Forward(-0.25)
	if math.Abs(y+0.25) > 1e-12 || math.Abs(g-1) > 1e-12 {
		t.Fatalf("identity spline left extrapolation: (%v, %v)", y, g)
	}
}

func TestAntiReflection(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	p := defaultParams(Extrap{Left: Anti, Right: Anti})
	s, err := p.Build(randRaw(r, 3*6-2))
	if err != nil {
		t.Fatal(err)
	}
	// past the right edge, f(x) = 2*y_hi - f(2*x_hi - x)
	x := 1.3
	y, g := s.Forward(x)
	yr, gr := s.Forward(2*1 - x)
	if math.Abs(y-(2*1-yr)) > 1e-12 {
		t.Fatalf("anti reflection value: %v vs %v", y, 2*1-yr)
	}
	if math.Abs(g-gr) > 1e-12 {
		t.Fatalf("anti reflection derivative: %v vs %v", g, gr)
	}
}

func TestInvalidKnots(t *testing.T) {
	if _, err := New([]float64{0, 1}, []float64{0, 1}, []float64{1}, Extrap{}); err == nil {
		t.Fatal("accepted mismatched derivative length")
	}
	if _, err := New([]float64{0, 1, 0.5}, []float64{0, 0.5, 1}, []float64{1, 1, 1}, Extrap{}); err == nil {
		t.Fatal("accepted non-increasing knots_x")
	}
	if _, err := New([]float64{0, 1}, []float64{0, 1}, []float64{1, -1}, Extrap{}); err == nil {
		t.Fatal("accepted a negative derivative")
	}
	if _, err := New([]float64{0}, []float64{0}, []float64{1}, Extrap{}); err == nil {
		t.Fatal("accepted fewer than 2 knots")
	}
}
