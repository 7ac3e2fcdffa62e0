package mcmc

import (
	"fmt"
)

// CalcAcceptStatus runs the independence-chain Metropolis accept/reject
// step over a sequence of proposal log-ratios logqp = log q - log p,
// strictly in draw order. Element i is accepted when
// log(u) < logqpRef - logqp[i]; on accept the running reference moves to
// logqp[i]. A nil logqpRef starts the reference at logqp[0]. A nil rng
// uses the process-wide source.
func CalcAcceptStatus(logqp []float64, logqpRef *float64, rng *RNG) []bool {
	if rng == nil {
		rng = defaultRNG
	}
	logu := make([]float64, len(logqp))
	for i := range logu {
		logu[i] = rng.LogUniform()
	}
	return acceptStatus(logqp, logqpRef, logu)
}

// acceptStatus is the deterministic core of CalcAcceptStatus, taking the
// log-uniform draws explicitly. The accept decision and reference update
// are sequential; the draws may come from anywhere.
func acceptStatus(logqp []float64, logqpRef *float64, logu []float64) []bool {
	status := make([]bool, len(logqp))
	if len(logqp) == 0 {
		return status
	}
	ref := logqp[0]
	if logqpRef != nil {
		ref = *logqpRef
	}
	for i, v := range logqp {
		status[i] = logu[i] < ref-v
		if status[i] {
			ref = v
		}
	}
	return status
}

// CalcAcceptIndices maps each position to the index of the most recent
// accepted position at or before it. Position 0 maps to itself even when
// rejected; the caller substitutes the externally carried reference
// sample for that case.
func CalcAcceptIndices(status []bool) []int {
	indices := make([]int, len(status))
	cntr := 0
	for i, accept := range status {
		if accept {
			cntr = i
		}
		indices[i] = cntr
	}
	return indices
}

// CalcAcceptCount returns the index of the first accepted position and,
// for each accepted position, how many chain steps it persists before the
// next acceptance (the last count runs to the end of the sequence).
func CalcAcceptCount(status []bool) (first int, counts []int, err error) {
	var accepted []int
	for i, ok := range status {
		if ok {
			accepted = append(accepted, i)
		}
	}
	if len(accepted) == 0 {
		return 0, nil, fmt.Errorf("mcmc: no accepted positions")
	}
	counts = make([]int, len(accepted))
	for j := 0; j < len(accepted)-1; j++ {
		counts[j] = accepted[j+1] - accepted[j]
	}
	counts[len(accepted)-1] = len(status) - accepted[len(accepted)-1]
	return accepted[0], counts, nil
}
