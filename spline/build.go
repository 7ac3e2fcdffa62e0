package spline

import (
	"fmt"
	"math"
)

// Params describes how raw, unconstrained parameters are turned into a
// monotone spline on [XLo,XHi] -> [YLo,YHi]. When KnotsX or KnotsY is
// non-nil that coordinate sequence is fixed and Build expects fewer raw
// values. The first and last knots are always pinned to the domain and
// codomain corners.
type Params struct {
	XLo, XHi float64
	YLo, YHi float64
	KnotsX   []float64 // fixed x-knots, nil when free
	KnotsY   []float64 // fixed y-knots, nil when free
	Extrap   Extrap
}

// softplus with beta = ln 2, so softplus(0) = 1 and all-zero raw input
// yields unit derivatives at every knot.
func softplus(v float64) float64 {
	t := math.Ln2 * v
	if t > 30 {
		return v + math.Log1p(math.Exp(-t))/math.Ln2
	}
	return math.Log1p(math.Exp(t)) / math.Ln2
}

// toCoords maps m-1 free values to m strictly increasing coordinates from
// lo to hi: softmax the free values, cumulative-sum the weights, rescale,
// and prepend the zero-padded slot as the lower endpoint. Both endpoints
// are pinned exactly.
func toCoords(w []float64, lo, hi float64) []float64 {
	m := len(w) + 1
	out := make([]float64, m)
	out[0] = lo
	max := w[0]
	for _, v := range w[1:] {
		if v > max {
			max = v
		}
	}
	norm := 0.0
	for _, v := range w {
		norm += math.Exp(v - max)
	}
	cum := 0.0
	for i, v := range w {
		cum += math.Exp(v-max) / norm
		out[i+1] = lo + cum*(hi-lo)
	}
	out[m-1] = hi
	return out
}

// NumKnots returns the knot count implied by a raw-parameter width, or an
// error when the width is inconsistent with the fixed-knot policy.
func (p Params) NumKnots(width int) (int, error) {
	var m int
	switch {
	case p.KnotsX == nil && p.KnotsY == nil:
		m = (width + 2) / 3
		if 3*m-2 != width {
			return 0, fmt.Errorf("spline: width %d is not 3m-2", width)
		}
	case p.KnotsX == nil || p.KnotsY == nil:
		m = (width + 1) / 2
		if 2*m-1 != width {
			return 0, fmt.Errorf("spline: width %d is not 2m-1", width)
		}
	default:
		m = width
	}
	if m < 2 {
		return 0, fmt.Errorf("spline: width %d implies %d knots, need at least 2", width, m)
	}
	if p.KnotsX != nil && len(p.KnotsX) != m {
		return 0, fmt.Errorf("spline: fixed knots_x has %d knots, want %d", len(p.KnotsX), m)
	}
	if p.KnotsY != nil && len(p.KnotsY) != m {
		return 0, fmt.Errorf("spline: fixed knots_y has %d knots, want %d", len(p.KnotsY), m)
	}
	return m, nil
}

// Build constructs the spline for one raw-parameter vector. The layout is
// (m-1 | m-1 | m) values for knots_x, knots_y, knots_d when both
// coordinate sets are free, (m-1 | m) when one is fixed, and m when both
// are fixed.
func (p Params) Build(raw []float64) (*Spline, error) {
	if !(p.XHi > p.XLo) || !(p.YHi > p.YLo) {
		return nil, fmt.Errorf("spline: empty domain [%v,%v] -> [%v,%v]",
			p.XLo, p.XHi, p.YLo, p.YHi)
	}
	m, err := p.NumKnots(len(raw))
	if err != nil {
		return nil, err
	}
	knotsX := p.KnotsX
	knotsY := p.KnotsY
	var rawD []float64
	switch {
	case knotsX == nil && knotsY == nil:
		knotsX = toCoords(raw[:m-1], p.XLo, p.XHi)
		knotsY = toCoords(raw[m-1:2*(m-1)], p.YLo, p.YHi)
		rawD = raw[2*(m-1):]
	case knotsX == nil:
		knotsX = toCoords(raw[:m-1], p.XLo, p.XHi)
		rawD = raw[m-1:]
	case knotsY == nil:
		knotsY = toCoords(raw[:m-1], p.YLo, p.YHi)
		rawD = raw[m-1:]
	default:
		rawD = raw
	}
	knotsD := make([]float64, m)
	for i, v := range rawD {
		knotsD[i] = softplus(v)
	}
	return New(knotsX, knotsY, knotsD, p.Extrap)
}
