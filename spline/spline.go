// Package spline implements monotone rational-quadratic-spline bijections
// on an interval, built from unconstrained parameters so that layers can
// drive them with raw network outputs. Forward and Backward are exact
// inverses in closed form and both report the local derivative.
package spline

import (
	"fmt"
	"math"
	"sort"
)

// Mode selects how the map extends beyond a domain boundary.
type Mode int

const (
	// Linear continues with the boundary-knot derivative.
	Linear Mode = iota
	// Anti extends by odd reflection about the boundary knot:
	// f(x) = 2*y_hi - f(2*x_hi - x) past the right edge, mirrored on the
	// left. Monotone and C1 whenever the spline is.
	Anti
)

// Extrap holds the per-boundary extrapolation policy.
type Extrap struct {
	Left, Right Mode
}

// Spline is a monotone rational-quadratic spline through m knots with
// prescribed positive derivatives at the knots.
type Spline struct {
	x, y, d []float64
	extrap  Extrap
}

// New validates the knot sequences and returns a Spline. Both coordinate
// sequences must be strictly increasing, the derivatives strictly
// positive, and all three of equal length >= 2.
func New(knotsX, knotsY, knotsD []float64, extrap Extrap) (*Spline, error) {
	m := len(knotsX)
	if m < 2 {
		return nil, fmt.Errorf("spline: need at least 2 knots, got %d", m)
	}
	if len(knotsY) != m || len(knotsD) != m {
		return nil, fmt.Errorf("spline: knot lengths differ: %d, %d, %d",
			m, len(knotsY), len(knotsD))
	}
	for i := 0; i < m-1; i++ {
		if !(knotsX[i+1] > knotsX[i]) {
			return nil, fmt.Errorf("spline: knots_x not increasing at %d", i)
		}
		if !(knotsY[i+1] > knotsY[i]) {
			return nil, fmt.Errorf("spline: knots_y not increasing at %d", i)
		}
	}
	for i, d := range knotsD {
		if !(d > 0) {
			return nil, fmt.Errorf("spline: knots_d[%d] = %v not positive", i, d)
		}
	}
	return &Spline{x: knotsX, y: knotsY, d: knotsD, extrap: extrap}, nil
}

// Domain returns the spline's x-range.
func (s *Spline) Domain() (lo, hi float64) { return s.x[0], s.x[len(s.x)-1] }

// Codomain returns the spline's y-range.
func (s *Spline) Codomain() (lo, hi float64) { return s.y[0], s.y[len(s.y)-1] }

// Forward evaluates the spline and its derivative at x.
func (s *Spline) Forward(x float64) (y, deriv float64) {
	m := len(s.x)
	switch {
	case x < s.x[0]:
		if s.extrap.Left == Anti {
			yr, g := s.Forward(2*s.x[0] - x)
			return 2*s.y[0] - yr, g
		}
		return s.y[0] + s.d[0]*(x-s.x[0]), s.d[0]
	case x > s.x[m-1]:
		if s.extrap.Right == Anti {
			yr, g := s.Forward(2*s.x[m-1] - x)
			return 2*s.y[m-1] - yr, g
		}
		return s.y[m-1] + s.d[m-1]*(x-s.x[m-1]), s.d[m-1]
	}
	k := bracket(s.x, x)
	w := s.x[k+1] - s.x[k]
	sl := (s.y[k+1] - s.y[k]) / w
	xi := (x - s.x[k]) / w
	om := xi * (1 - xi)
	den := sl + (s.d[k+1]+s.d[k]-2*sl)*om
	y = s.y[k] + (s.y[k+1]-s.y[k])*(sl*xi*xi+s.d[k]*om)/den
	deriv = sl * sl * (s.d[k+1]*xi*xi + 2*sl*om + s.d[k]*(1-xi)*(1-xi)) / (den * den)
	return y, deriv
}

// Backward inverts the spline at y, returning x and dx/dy.
func (s *Spline) Backward(y float64) (x, deriv float64) {
	m := len(s.y)
	switch {
	case y < s.y[0]:
		if s.extrap.Left == Anti {
			xr, g := s.Backward(2*s.y[0] - y)
			return 2*s.x[0] - xr, g
		}
		return s.x[0] + (y-s.y[0])/s.d[0], 1 / s.d[0]
	case y > s.y[m-1]:
		if s.extrap.Right == Anti {
			xr, g := s.Backward(2*s.y[m-1] - y)
			return 2*s.x[m-1] - xr, g
		}
		return s.x[m-1] + (y-s.y[m-1])/s.d[m-1], 1 / s.d[m-1]
	}
	k := bracket(s.y, y)
	w := s.x[k+1] - s.x[k]
	sl := (s.y[k+1] - s.y[k]) / w
	dy := y - s.y[k]
	t := s.d[k+1] + s.d[k] - 2*sl
	a := (s.y[k+1]-s.y[k])*(sl-s.d[k]) + dy*t
	b := (s.y[k+1]-s.y[k])*s.d[k] - dy*t
	c := -sl * dy
	// stable root of a*xi^2 + b*xi + c = 0 with xi in [0,1]
	xi := 2 * c / (-b - math.Sqrt(b*b-4*a*c))
	x = s.x[k] + xi*w
	om := xi * (1 - xi)
	den := sl + t*om
	fwd := sl * sl * (s.d[k+1]*xi*xi + 2*sl*om + s.d[k]*(1-xi)*(1-xi)) / (den * den)
	return x, 1 / fwd
}

// bracket returns k such that knots[k] <= v <= knots[k+1], for v inside
// the knot range.
func bracket(knots []float64, v float64) int {
	k := sort.SearchFloat64s(knots, v) - 1
	if k < 0 {
		k = 0
	}
	if k > len(knots)-2 {
		k = len(knots) - 2
	}
	return k
}
