package coupling

import (
	"errors"
	"fmt"
)

// ErrNoControl is returned when a generated-control list is run backward
// before any forward pass has produced a control array.
var ErrNoControl = errors.New("coupling: backward before forward on a generated-control list")

// Controlled wraps a List so the frozen input of the first layer is an
// externally supplied control array instead of the structural
// complementary channel. Every later layer couples as usual.
type Controlled struct {
	list *List
}

// NewControlled wraps l with direct control injection.
func NewControlled(l *List) (*Controlled, error) {
	if l == nil {
		return nil, fmt.Errorf("coupling: nil list")
	}
	return &Controlled{list: l}, nil
}

// List returns the wrapped coupling list.
func (c *Controlled) List() *List { return c.list }

// Forward runs the forward pass with control conditioning the first layer.
func (c *Controlled) Forward(x, control [][]float64, log0 []float64) ([][]float64, []float64, error) {
	if err := checkControl(x, control); err != nil {
		return nil, nil, err
	}
	return c.list.forwardFrom(x, control, log0)
}

// Backward inverts Forward under the same control array.
func (c *Controlled) Backward(y, control [][]float64, log0 []float64) ([][]float64, []float64, error) {
	if err := checkControl(y, control); err != nil {
		return nil, nil, err
	}
	return c.list.backwardFrom(y, control, log0)
}

func checkControl(x, control [][]float64) error {
	if control == nil {
		return fmt.Errorf("coupling: nil control")
	}
	if len(control) != len(x) {
		return fmt.Errorf("coupling: control batch %d, want %d", len(control), len(x))
	}
	return nil
}

// ControlGenerator produces a fresh control array for a batch size.
type ControlGenerator func(batchSize int) [][]float64

// GenControlled is a controlled list whose control array is generated
// internally on every forward call and retained, unexposed, for the
// paired backward call.
type GenControlled struct {
	list    *List
	gen     ControlGenerator
	control [][]float64
}

// NewGenControlled wraps l with an internal control generator.
func NewGenControlled(l *List, gen ControlGenerator) (*GenControlled, error) {
	if l == nil {
		return nil, fmt.Errorf("coupling: nil list")
	}
	if gen == nil {
		return nil, fmt.Errorf("coupling: nil control generator")
	}
	return &GenControlled{list: l, gen: gen}, nil
}

// Forward generates a control array for the batch, retains it, and runs
// the controlled forward pass.
func (g *GenControlled) Forward(x [][]float64, log0 []float64) ([][]float64, []float64, error) {
	control := g.gen(len(x))
	if err := checkControl(x, control); err != nil {
		return nil, nil, err
	}
	y, logJ, err := g.list.forwardFrom(x, control, log0)
	if err != nil {
		return nil, nil, err
	}
	g.control = control
	return y, logJ, nil
}

// Backward inverts the most recent Forward using its retained control.
// Calling it before any forward pass is a state error.
func (g *GenControlled) Backward(y [][]float64, log0 []float64) ([][]float64, []float64, error) {
	if g.control == nil {
		return nil, nil, ErrNoControl
	}
	if len(g.control) != len(y) {
		return nil, nil, fmt.Errorf("coupling: batch %d does not match retained control batch %d",
			len(y), len(g.control))
	}
	return g.list.backwardFrom(y, g.control, log0)
}
