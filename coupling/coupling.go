// Package coupling composes masked coupling layers into an exactly
// invertible, Jacobian-tracking transformation. A List holds an ordered
// sequence of layers that alternate which mask channel is active; each
// layer feeds the frozen channel to an external parametric function and
// transforms the active channel with the result. Forward applies the
// layers in order, Backward undoes them in reverse order, and both
// accumulate the exact log-Jacobian of the composite map.
package coupling

import (
	"fmt"

	"normflow/mask"
)

// Net is the external parametric function attached to one coupling layer.
// Eval maps a frozen channel (batch x n_frozen) to transformation
// parameters (batch x width x n_active); the width each atomic transform
// expects is part of its contract. Transfer returns an equivalent
// function for a domain rescaled by scaleFactor.
type Net interface {
	Eval(frozen [][]float64) ([][][]float64, error)
	Transfer(scaleFactor float64) (Net, error)
}

// NetFunc adapts a plain function to Net for scale-invariant parametric
// functions; Transfer returns the receiver unchanged.
type NetFunc func(frozen [][]float64) ([][][]float64, error)

// Eval calls f.
func (f NetFunc) Eval(frozen [][]float64) ([][][]float64, error) { return f(frozen) }

// Transfer returns f itself.
func (f NetFunc) Transfer(float64) (Net, error) { return f, nil }

// atomic is the per-layer transform strategy. Implementations mutate
// nothing; logJ is accumulated in place, one entry per batch element.
type atomic interface {
	forward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error)
	backward(active, frozen [][]float64, parity int, net Net, logJ []float64) ([][]float64, error)
}

// List is an ordered list of coupling layers sharing one mask. Layer k
// treats channel k mod 2 as active and the other as frozen.
type List struct {
	nets []Net
	mask *mask.Mask
	atom atomic
}

func newList(nets []Net, m *mask.Mask, atom atomic) (*List, error) {
	if len(nets) == 0 {
		return nil, fmt.Errorf("coupling: no layers")
	}
	if m == nil {
		return nil, fmt.Errorf("coupling: nil mask")
	}
	for i, net := range nets {
		if net == nil {
			return nil, fmt.Errorf("coupling: nil net at layer %d", i)
		}
	}
	return &List{nets: append([]Net(nil), nets...), mask: m, atom: atom}, nil
}

// Len returns the number of coupling layers.
func (l *List) Len() int { return len(l.nets) }

// Mask returns the shared channel mask.
func (l *List) Mask() *mask.Mask { return l.mask }

func initLogJ(batch int, log0 []float64) ([]float64, error) {
	logJ := make([]float64, batch)
	if log0 != nil {
		if len(log0) != batch {
			return nil, fmt.Errorf("coupling: log0 has %d entries for batch %d", len(log0), batch)
		}
		copy(logJ, log0)
	}
	return logJ, nil
}

// Forward transforms x through all layers in order, starting the
// log-Jacobian accumulator from log0 (nil means zero).
func (l *List) Forward(x [][]float64, log0 []float64) ([][]float64, []float64, error) {
	return l.forwardFrom(x, nil, log0)
}

// Backward inverts Forward: the same layers in reverse order, each
// exactly undoing its forward map, so the returned log-Jacobian cancels
// the forward one.
func (l *List) Backward(y [][]float64, log0 []float64) ([][]float64, []float64, error) {
	return l.backwardFrom(y, nil, log0)
}

// forwardFrom runs the forward pass with an optional control array
// replacing the frozen input of the first layer.
func (l *List) forwardFrom(x, control [][]float64, log0 []float64) ([][]float64, []float64, error) {
	logJ, err := initLogJ(len(x), log0)
	if err != nil {
		return nil, nil, err
	}
	x0, x1, err := l.mask.Split(x)
	if err != nil {
		return nil, nil, err
	}
	ch := [2][][]float64{x0, x1}
	for k, net := range l.nets {
		parity := k % 2
		frozen := ch[1-parity]
		if k == 0 && control != nil {
			frozen = control
		}
		out, err := l.atom.forward(ch[parity], frozen, parity, net, logJ)
		if err != nil {
			return nil, nil, fmt.Errorf("coupling: layer %d forward: %w", k, err)
		}
		ch[parity] = out
	}
	y, err := l.mask.Cat(ch[0], ch[1])
	if err != nil {
		return nil, nil, err
	}
	return y, logJ, nil
}

func (l *List) backwardFrom(y, control [][]float64, log0 []float64) ([][]float64, []float64, error) {
	logJ, err := initLogJ(len(y), log0)
	if err != nil {
		return nil, nil, err
	}
	x0, x1, err := l.mask.Split(y)
	if err != nil {
		return nil, nil, err
	}
	ch := [2][][]float64{x0, x1}
	for k := len(l.nets) - 1; k >= 0; k-- {
		parity := k % 2
		frozen := ch[1-parity]
		if k == 0 && control != nil {
			frozen = control
		}
		out, err := l.atom.backward(ch[parity], frozen, parity, l.nets[k], logJ)
		if err != nil {
			return nil, nil, fmt.Errorf("coupling: layer %d backward: %w", k, err)
		}
		ch[parity] = out
	}
	x, err := l.mask.Cat(ch[0], ch[1])
	if err != nil {
		return nil, nil, err
	}
	return x, logJ, nil
}

// Transfer returns a new List with the same topology and every parametric
// function rescaled by scaleFactor. A non-nil mask replaces the shared
// mask, for adapting a trained model to another lattice size.
func (l *List) Transfer(scaleFactor float64, m *mask.Mask) (*List, error) {
	nets := make([]Net, len(l.nets))
	for i, net := range l.nets {
		tn, err := net.Transfer(scaleFactor)
		if err != nil {
			return nil, fmt.Errorf("coupling: transfer layer %d: %w", i, err)
		}
		nets[i] = tn
	}
	if m == nil {
		m = l.mask
	}
	return &List{nets: nets, mask: m, atom: l.atom}, nil
}

// evalParams runs a layer's net and validates the returned parameter
// block against the active channel and the expected width.
func evalParams(net Net, frozen, active [][]float64, width int) ([][][]float64, error) {
	out, err := net.Eval(frozen)
	if err != nil {
		return nil, err
	}
	if len(out) != len(active) {
		return nil, fmt.Errorf("net returned batch %d, want %d", len(out), len(active))
	}
	for b := range out {
		if len(out[b]) != width {
			return nil, fmt.Errorf("net returned %d channels, want %d", len(out[b]), width)
		}
		for c := range out[b] {
			if len(out[b][c]) != len(active[b]) {
				return nil, fmt.Errorf("net channel %d has %d sites, want %d",
					c, len(out[b][c]), len(active[b]))
			}
		}
	}
	return out, nil
}
