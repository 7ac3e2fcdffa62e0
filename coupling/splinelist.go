package coupling

import (
	"fmt"
	"math"

	"normflow/mask"
	"normflow/spline"
)

// SplineConfig configures the spline transform of one coupling list: the
// domain/codomain box, optional pre-fixed knot coordinates, the boundary
// extrapolation policy, and whether net outputs are forced non-negative
// (the sign-flip symmetry mode).
type SplineConfig struct {
	XLo, XHi  float64
	YLo, YHi  float64
	KnotsX    []float64
	KnotsY    []float64
	Extrap    spline.Extrap
	Symmetric bool
}

func (c SplineConfig) params() spline.Params {
	return spline.Params{
		XLo: c.XLo, XHi: c.XHi,
		YLo: c.YLo, YHi: c.YHi,
		KnotsX: c.KnotsX, KnotsY: c.KnotsY,
		Extrap: c.Extrap,
	}
}

// NewSplineList builds a coupling list of rational-quadratic-spline
// layers. Each net must emit 3m-2 channels for m knots (2m-1 or m when
// knot coordinates are pre-fixed); every active site is transformed
// through a spline built fresh from the net output at that site, and the
// log-Jacobian accumulates the log of the local derivative.
func NewSplineList(nets []Net, m *mask.Mask, cfg SplineConfig) (*List, error) {
	return newList(nets, m, &splineTr{m: m, cfg: cfg})
}

type splineTr struct {
	m   *mask.Mask
	cfg SplineConfig
}

func (s *splineTr) forward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	return s.apply(active, frozen, parity, net, logJ, false)
}

func (s *splineTr) backward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	return s.apply(active, frozen, parity, net, logJ, true)
}

func (s *splineTr) apply(active, frozen [][]float64, parity int, net Net, logJ []float64, backward bool) ([][]float64, error) {
	out, err := net.Eval(frozen)
	if err != nil {
		return nil, err
	}
	if len(out) != len(active) {
		return nil, fmt.Errorf("net returned batch %d, want %d", len(out), len(active))
	}
	p := s.cfg.params()
	res := make([][]float64, len(active))
	grad := make([][]float64, len(active))
	raw := make([]float64, 0, 8)
	for b := range active {
		width := len(out[b])
		if _, err := p.NumKnots(width); err != nil {
			return nil, err
		}
		row := make([]float64, len(active[b]))
		g := make([]float64, len(active[b]))
		for i, v := range active[b] {
			raw = raw[:0]
			for c := 0; c < width; c++ {
				if len(out[b][c]) != len(active[b]) {
					return nil, fmt.Errorf("net channel %d has %d sites, want %d",
						c, len(out[b][c]), len(active[b]))
				}
				u := out[b][c][i]
				if s.cfg.Symmetric {
					u = math.Abs(u)
				}
				raw = append(raw, u)
			}
			sp, err := p.Build(raw)
			if err != nil {
				return nil, err
			}
			if backward {
				row[i], g[i] = sp.Backward(v)
			} else {
				row[i], g[i] = sp.Forward(v)
			}
		}
		res[b] = row
		grad[b] = g
	}
	res = s.m.Purify(res, parity, false)
	grad = s.m.Purify(grad, parity, true)
	for b := range grad {
		for _, g := range grad[b] {
			logJ[b] += math.Log(g)
		}
	}
	return res, nil
}

// NewMultiSplineList builds a coupling list whose active channel is cut
// into len(cfgs) equal sub-channels, each transformed by its own
// independently configured spline. The net output is cut the same way,
// one parameter group per sub-channel.
func NewMultiSplineList(nets []Net, m *mask.Mask, cfgs []SplineConfig) (*List, error) {
	if len(cfgs) < 2 {
		return nil, fmt.Errorf("coupling: multi-spline needs at least 2 configs, got %d", len(cfgs))
	}
	return newList(nets, m, &multiSpline{m: m, cfgs: cfgs})
}

type multiSpline struct {
	m    *mask.Mask
	cfgs []SplineConfig
}

func (s *multiSpline) forward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	return s.apply(active, frozen, parity, net, logJ, false)
}

func (s *multiSpline) backward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	return s.apply(active, frozen, parity, net, logJ, true)
}

func (s *multiSpline) apply(active, frozen [][]float64, parity int, net Net, logJ []float64, backward bool) ([][]float64, error) {
	out, err := net.Eval(frozen)
	if err != nil {
		return nil, err
	}
	if len(out) != len(active) {
		return nil, fmt.Errorf("net returned batch %d, want %d", len(out), len(active))
	}
	k := len(s.cfgs)
	res := make([][]float64, len(active))
	grad := make([][]float64, len(active))
	raw := make([]float64, 0, 8)
	for b := range active {
		n := len(active[b])
		if n%k != 0 {
			return nil, fmt.Errorf("active channel size %d not divisible by %d splines", n, k)
		}
		width := len(out[b])
		if width%k != 0 {
			return nil, fmt.Errorf("net width %d not divisible by %d splines", width, k)
		}
		seg := n / k
		wseg := width / k
		row := make([]float64, n)
		g := make([]float64, n)
		for j, cfg := range s.cfgs {
			p := cfg.params()
			if _, err := p.NumKnots(wseg); err != nil {
				return nil, fmt.Errorf("spline %d: %w", j, err)
			}
			for i := j * seg; i < (j+1)*seg; i++ {
				raw = raw[:0]
				for c := j * wseg; c < (j+1)*wseg; c++ {
					if len(out[b][c]) != n {
						return nil, fmt.Errorf("net channel %d has %d sites, want %d",
							c, len(out[b][c]), n)
					}
					u := out[b][c][i]
					if cfg.Symmetric {
						u = math.Abs(u)
					}
					raw = append(raw, u)
				}
				sp, err := p.Build(raw)
				if err != nil {
					return nil, fmt.Errorf("spline %d: %w", j, err)
				}
				if backward {
					row[i], g[i] = sp.Backward(active[b][i])
				} else {
					row[i], g[i] = sp.Forward(active[b][i])
				}
			}
		}
		res[b] = row
		grad[b] = g
	}
	res = s.m.Purify(res, parity, false)
	grad = s.m.Purify(grad, parity, true)
	for b := range grad {
		for _, g := range grad[b] {
			logJ[b] += math.Log(g)
		}
	}
	return res, nil
}
