package mcmc

import (
	"gonum.org/v1/gonum/stat"
)

// Resampler estimates the sampling error of a statistic by bootstrap:
// draw with replacement, re-evaluate, and report the spread of the
// re-evaluations.
type Resampler struct {
	rng *RNG
}

// NewResampler returns a bootstrap resampler drawing from rng; nil means
// the process-wide source.
func NewResampler(rng *RNG) Resampler {
	if rng == nil {
		rng = defaultRNG
	}
	return Resampler{rng: rng}
}

// Eval bootstraps fn over values: nResamples resampled evaluations,
// returning their mean and standard deviation. With fewer than two
// resamples the statistic is evaluated once and the error is zero.
func (r Resampler) Eval(values []float64, fn func([]float64) float64, nResamples int) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	if nResamples < 2 {
		return fn(values), 0
	}
	rng := r.rng
	if rng == nil {
		rng = defaultRNG
	}
	estimates := make([]float64, nResamples)
	resample := make([]float64, len(values))
	for k := range estimates {
		for i := range resample {
			resample[i] = values[int(rng.Uniform()*float64(len(values)))]
		}
		estimates[k] = fn(resample)
	}
	return stat.Mean(estimates, nil), stat.StdDev(estimates, nil)
}
