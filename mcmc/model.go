package mcmc

import (
	"fmt"
)

// Prior is a tractable base distribution over flattened configurations.
type Prior interface {
	// Sample draws batchSize independent configurations.
	Sample(batchSize int) [][]float64
	// LogProb returns the log-density of each configuration.
	LogProb(x [][]float64) []float64
	// NVar is the number of variables per configuration.
	NVar() int
}

// BlockUpdater mutates one contiguous block of a configuration in place
// and can undo exactly its most recent mutation of that block.
type BlockUpdater interface {
	Update(x []float64, block int)
	Restore(x []float64, block int) error
}

// BlockPrior is a Prior that supports blocked in-place updates.
type BlockPrior interface {
	Prior
	SetupBlockUpdater(blockLen int) (BlockUpdater, error)
}

// Action evaluates the target action of one configuration; the target
// log-density is its negative.
type Action func(cfg []float64) float64

// Flow is an invertible, Jacobian-tracking map between pre-image and
// field configurations.
type Flow interface {
	Forward(x [][]float64, log0 []float64) ([][]float64, []float64, error)
	Backward(y [][]float64, log0 []float64) ([][]float64, []float64, error)
}

// Model ties a prior, a flow and a target action together. Drawing from
// it yields i.i.d. proposals from the flow's generative distribution with
// the exact density ratio in closed form: logq is the prior log-density
// minus the accumulated log-Jacobian, logp the negative action.
type Model struct {
	Prior  Prior
	Flow   Flow
	Action Action
}

func (m Model) validate() error {
	if m.Prior == nil || m.Flow == nil || m.Action == nil {
		return fmt.Errorf("mcmc: model needs prior, flow and action")
	}
	return nil
}

// Draw samples batchSize proposals with their exact logq and logp.
func (m Model) Draw(batchSize int) (y [][]float64, logq, logp []float64, err error) {
	if err := m.validate(); err != nil {
		return nil, nil, nil, err
	}
	if batchSize < 1 {
		return nil, nil, nil, fmt.Errorf("mcmc: batch size %d", batchSize)
	}
	x := m.Prior.Sample(batchSize)
	y, logJ, err := m.Flow.Forward(x, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mcmc: flow forward: %w", err)
	}
	logPrior := m.Prior.LogProb(x)
	logq = make([]float64, batchSize)
	logp = make([]float64, batchSize)
	for i := range logq {
		logq[i] = logPrior[i] - logJ[i]
		logp[i] = -m.Action(y[i])
	}
	return y, logq, logp, nil
}
