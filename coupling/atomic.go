package coupling

import (
	"math"

	"normflow/mask"
)

// NewShiftList builds a coupling list of shift layers. Each net must emit
// one channel t; the active channel becomes active + t. Shifts are volume
// preserving, so the log-Jacobian is untouched.
func NewShiftList(nets []Net, m *mask.Mask) (*List, error) {
	return newList(nets, m, &shift{m: m})
}

type shift struct {
	m *mask.Mask
}

func (s *shift) forward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	return s.apply(active, frozen, parity, net, 1)
}

func (s *shift) backward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	return s.apply(active, frozen, parity, net, -1)
}

func (s *shift) apply(active, frozen [][]float64, parity int, net Net, sign float64) ([][]float64, error) {
	out, err := evalParams(net, frozen, active, 1)
	if err != nil {
		return nil, err
	}
	res := make([][]float64, len(active))
	for b := range active {
		row := make([]float64, len(active[b]))
		for i, v := range active[b] {
			row[i] = v + sign*out[b][0][i]
		}
		res[b] = row
	}
	return s.m.Purify(res, parity, false), nil
}

// NewAffineList builds a coupling list of affine layers. Each net must
// emit two channels (t, s); forward maps the active channel to
// t + active*exp(-s) and the log-Jacobian decreases by the sum of s over
// the active sites. With symmetric set, s is replaced by |s| so the layer
// respects a sign-flip symmetry of nets that already respect it.
func NewAffineList(nets []Net, m *mask.Mask, symmetric bool) (*List, error) {
	return newList(nets, m, &affine{m: m, symmetric: symmetric})
}

type affine struct {
	m         *mask.Mask
	symmetric bool
}

func (a *affine) params(active, frozen [][]float64, parity int, net Net) (t, s [][]float64, err error) {
	out, err := evalParams(net, frozen, active, 2)
	if err != nil {
		return nil, nil, err
	}
	t = make([][]float64, len(out))
	s = make([][]float64, len(out))
	for b := range out {
		t[b] = out[b][0]
		s[b] = out[b][1]
	}
	t = a.m.Purify(t, parity, false)
	s = a.m.Purify(s, parity, false)
	if a.symmetric {
		for b := range s {
			for i, v := range s[b] {
				s[b][i] = math.Abs(v)
			}
		}
	}
	return t, s, nil
}

func (a *affine) forward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	t, s, err := a.params(active, frozen, parity, net)
	if err != nil {
		return nil, err
	}
	res := make([][]float64, len(active))
	for b := range active {
		row := make([]float64, len(active[b]))
		for i, v := range active[b] {
			row[i] = t[b][i] + v*math.Exp(-s[b][i])
			logJ[b] -= s[b][i]
		}
		res[b] = row
	}
	return res, nil
}

func (a *affine) backward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error) {
	t, s, err := a.params(active, frozen, parity, net)
	if err != nil {
		return nil, err
	}
	res := make([][]float64, len(active))
	for b := range active {
		row := make([]float64, len(active[b]))
		for i, v := range active[b] {
			row[i] = (v - t[b][i]) * math.Exp(s[b][i])
			logJ[b] += s[b][i]
		}
		res[b] = row
	}
	return res, nil
}
