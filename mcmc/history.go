package mcmc

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// History is the append-only bookkeeping of a sampler: one entry per
// recorded batch, in call order. Acceptance rates are recorded on every
// sampling call; the remaining streams only when bookkeeping is
// requested.
type History struct {
	Logq       [][]float64
	Logp       [][]float64
	RawLogq    [][]float64
	RawLogp    [][]float64
	AcceptSeq  [][]bool
	AcceptInd  [][]int
	AcceptRate []float64
}

// NewHistory returns an empty history.
func NewHistory() *History { return &History{} }

// Reset drops all recorded batches.
func (h *History) Reset() { *h = History{} }

// Logqp returns log q - log p per recorded batch.
func (h *History) Logqp() [][]float64 { return diffBatches(h.Logq, h.Logp) }

// RawLogqp returns the pre-correction log q - log p per recorded batch.
func (h *History) RawLogqp() [][]float64 { return diffBatches(h.RawLogq, h.RawLogp) }

func diffBatches(a, b [][]float64) [][]float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([][]float64, n)
	for k := 0; k < n; k++ {
		row := make([]float64, len(a[k]))
		for i := range row {
			row[i] = a[k][i] - b[k][i]
		}
		out[k] = row
	}
	return out
}

func cloneFloats(v []float64) []float64 { return append([]float64(nil), v...) }

func (h *History) recordRate(rate float64) { h.AcceptRate = append(h.AcceptRate, rate) }

func (h *History) recordRaw(logq, logp []float64) {
	h.RawLogq = append(h.RawLogq, cloneFloats(logq))
	h.RawLogp = append(h.RawLogp, cloneFloats(logp))
}

func (h *History) record(logq, logp []float64) {
	h.Logq = append(h.Logq, cloneFloats(logq))
	h.Logp = append(h.Logp, cloneFloats(logp))
}

func (h *History) recordAccept(seq []bool, ind []int) {
	h.AcceptSeq = append(h.AcceptSeq, append([]bool(nil), seq...))
	if ind != nil {
		h.AcceptInd = append(h.AcceptInd, append([]int(nil), ind...))
	}
}

// Summary reports the headline chain statistics, each as value and
// bootstrap/sample error.
type Summary struct {
	LogqpMean, LogqpErr float64
	LogzMean, LogzErr   float64
	RateMean, RateErr   float64
}

// String formats the summary with FmtValErr at two error digits.
func (s Summary) String() string {
	return fmt.Sprintf("logqp: %s  logz: %s  accept_rate: %s",
		FmtValErr(s.LogqpMean, s.LogqpErr, 2),
		FmtValErr(s.LogzMean, s.LogzErr, 2),
		FmtValErr(s.RateMean, s.RateErr, 2))
}

// ReportSummary computes summary statistics from the most recent recorded
// batch (log q - log p and the partition-function estimate) and from the
// full acceptance-rate stream. Requires at least one bookkept batch.
func (h *History) ReportSummary(res Resampler, nResamples int) (Summary, error) {
	if len(h.Logq) == 0 || len(h.Logp) == 0 {
		return Summary{}, fmt.Errorf("mcmc: history holds no bookkept batches")
	}
	last := len(h.Logq) - 1
	logqp := make([]float64, len(h.Logq[last]))
	for i := range logqp {
		logqp[i] = h.Logq[last][i] - h.Logp[last][i]
	}
	var s Summary
	s.LogqpMean = stat.Mean(logqp, nil)
	s.LogqpErr = stat.StdDev(logqp, nil)
	s.LogzMean, s.LogzErr = EstimateLogz(logqp, res, nResamples)
	s.RateMean = stat.Mean(h.AcceptRate, nil)
	if len(h.AcceptRate) > 1 {
		s.RateErr = stat.StdDev(h.AcceptRate, nil)
	}
	return s, nil
}

// Snapshot is the flat, serializable view of a history, consumed by the
// flowplot command.
type Snapshot struct {
	AcceptRate []float64 `json:"accept_rate"`
	Logqp      []float64 `json:"logqp"`
	RawLogqp   []float64 `json:"raw_logqp"`
}

// Snapshot flattens the history's batch streams.
func (h *History) Snapshot() Snapshot {
	var s Snapshot
	s.AcceptRate = cloneFloats(h.AcceptRate)
	for _, row := range h.Logqp() {
		s.Logqp = append(s.Logqp, row...)
	}
	for _, row := range h.RawLogqp() {
		s.RawLogqp = append(s.RawLogqp, row...)
	}
	return s
}

// WriteJSON writes the snapshot as one JSON document.
func (h *History) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(h.Snapshot())
}
