package mcmc

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// logMeanExpNeg returns log(mean(exp(-v))), the reweighting estimate of
// the log partition function from logqp = log q - log p values.
func logMeanExpNeg(v []float64) float64 {
	neg := make([]float64, len(v))
	for i, x := range v {
		neg[i] = -x
	}
	return floats.LogSumExp(neg) - math.Log(float64(len(v)))
}

// EstimateLogz estimates the log partition function from proposal
// log-ratios, with a bootstrap standard error over nResamples resamples.
func EstimateLogz(logqp []float64, res Resampler, nResamples int) (mean, std float64) {
	if len(logqp) == 0 {
		return 0, 0
	}
	return res.Eval(logqp, logMeanExpNeg, nResamples)
}
