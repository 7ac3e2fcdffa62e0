package mcmc

import (
	"fmt"
	"math"
)

// NormalPrior is a free prior: independent Gaussians of one standard
// deviation at every lattice site. It implements BlockPrior, so it also
// drives the blocked sampler.
type NormalPrior struct {
	shape []int
	nvar  int
	sigma float64
	rng   *RNG
}

// NewNormalPrior builds a Gaussian prior over the given lattice shape.
// A nil rng uses the process-wide source.
func NewNormalPrior(shape []int, sigma float64, rng *RNG) (*NormalPrior, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("mcmc: empty prior shape")
	}
	nvar := 1
	for _, l := range shape {
		if l < 1 {
			return nil, fmt.Errorf("mcmc: invalid dimension %d in shape %v", l, shape)
		}
		nvar *= l
	}
	if !(sigma > 0) {
		return nil, fmt.Errorf("mcmc: sigma %v not positive", sigma)
	}
	if rng == nil {
		rng = defaultRNG
	}
	return &NormalPrior{shape: append([]int(nil), shape...), nvar: nvar, sigma: sigma, rng: rng}, nil
}

// Shape returns the lattice shape.
func (p *NormalPrior) Shape() []int { return append([]int(nil), p.shape...) }

// NVar returns the number of variables per configuration.
func (p *NormalPrior) NVar() int { return p.nvar }

// Sample draws batchSize configurations.
func (p *NormalPrior) Sample(batchSize int) [][]float64 {
	x := make([][]float64, batchSize)
	for b := range x {
		row := make([]float64, p.nvar)
		for i := range row {
			row[i] = p.sigma * p.rng.Normal()
		}
		x[b] = row
	}
	return x
}

// LogProb returns the Gaussian log-density of each configuration.
func (p *NormalPrior) LogProb(x [][]float64) []float64 {
	c := -0.5*math.Log(2*math.Pi) - math.Log(p.sigma)
	out := make([]float64, len(x))
	for b, row := range x {
		s := 0.0
		for _, v := range row {
			z := v / p.sigma
			s += c - 0.5*z*z
		}
		out[b] = s
	}
	return out
}

// SetupBlockUpdater returns an updater that redraws one contiguous block
// of blockLen sites from the prior, keeping an undo copy so a rejected
// update can be restored exactly.
func (p *NormalPrior) SetupBlockUpdater(blockLen int) (BlockUpdater, error) {
	if blockLen < 1 || p.nvar%blockLen != 0 {
		return nil, fmt.Errorf("mcmc: block length %d does not divide %d variables", blockLen, p.nvar)
	}
	return &normalBlockUpdater{blockLen: blockLen, sigma: p.sigma, rng: p.rng,
		undo: make([]float64, blockLen), lastBlock: -1}, nil
}

type normalBlockUpdater struct {
	blockLen  int
	sigma     float64
	rng       *RNG
	undo      []float64
	lastBlock int
}

func (u *normalBlockUpdater) Update(x []float64, block int) {
	lo := block * u.blockLen
	copy(u.undo, x[lo:lo+u.blockLen])
	u.lastBlock = block
	for i := lo; i < lo+u.blockLen; i++ {
		x[i] = u.sigma * u.rng.Normal()
	}
}

func (u *normalBlockUpdater) Restore(x []float64, block int) error {
	if block != u.lastBlock {
		return fmt.Errorf("mcmc: restore of block %d, but last update was block %d", block, u.lastBlock)
	}
	copy(x[block*u.blockLen:], u.undo)
	u.lastBlock = -1
	return nil
}
