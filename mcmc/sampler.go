package mcmc

// ChainState is the last accepted state of a chain: the sample together
// with its log-densities. It is the only state carried between batch
// calls and makes checkpoint/restart explicit.
type ChainState struct {
	Sample []float64
	Logq   float64
	Logp   float64
	ok     bool
}

// Empty reports whether the chain has no accepted state yet.
func (c ChainState) Empty() bool { return !c.ok }

// Logqp returns log q - log p of the carried state.
func (c ChainState) Logqp() float64 { return c.Logq - c.Logp }

// Sampler draws batches of i.i.d. proposals from a model and corrects
// them to the target density with in-order Metropolis accept/reject,
// carrying the chain across batches through its ChainState.
type Sampler struct {
	model   Model
	rng     *RNG
	ref     ChainState
	History *History
}

// NewSampler builds a sampler over model. A nil rng uses the
// process-wide source.
func NewSampler(model Model, rng *RNG) (*Sampler, error) {
	if err := model.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = defaultRNG
	}
	return &Sampler{model: model, rng: rng, History: NewHistory()}, nil
}

// Ref returns the carried chain state.
func (s *Sampler) Ref() ChainState { return s.ref }

// SetRef installs a chain state, e.g. one recovered from a checkpoint.
func (s *Sampler) SetRef(ref ChainState) {
	ref.Sample = cloneFloats(ref.Sample)
	ref.ok = ref.Sample != nil
	s.ref = ref
}

// Sample returns a batch of chain samples.
func (s *Sampler) Sample(batchSize int) ([][]float64, error) {
	y, _, _, err := s.SampleFull(batchSize, false)
	return y, err
}

// SampleFull returns a batch of chain samples with their log-densities.
// Proposals are drawn i.i.d. from the model and corrected in draw order
// against the carried reference, so consecutive calls continue one chain.
// The batch acceptance rate is always recorded; with bookkeeping set, the
// raw and corrected per-sample streams are recorded too.
func (s *Sampler) SampleFull(batchSize int, bookkeeping bool) (y [][]float64, logq, logp []float64, err error) {
	y, logq, logp, err = s.model.Draw(batchSize)
	if err != nil {
		return nil, nil, nil, err
	}
	if bookkeeping {
		s.History.recordRaw(logq, logp)
	}
	y, logq, logp = s.acceptReject(y, logq, logp, bookkeeping)
	if bookkeeping {
		s.History.record(logq, logp)
	}
	return y, logq, logp, nil
}

// acceptReject applies the Metropolis correction to a proposal batch and
// advances the carried chain state to the batch's last element.
func (s *Sampler) acceptReject(y [][]float64, logq, logp []float64, bookkeeping bool) ([][]float64, []float64, []float64) {
	logqp := make([]float64, len(logq))
	for i := range logqp {
		logqp[i] = logq[i] - logp[i]
	}
	var refqp *float64
	if !s.ref.Empty() {
		v := s.ref.Logqp()
		refqp = &v
	}
	status := CalcAcceptStatus(logqp, refqp, s.rng)

	// a rejected first element repeats the carried reference sample
	if len(status) > 0 && !status[0] && !s.ref.Empty() {
		y[0] = cloneFloats(s.ref.Sample)
		logq[0] = s.ref.Logq
		logp[0] = s.ref.Logp
	}
	indices := CalcAcceptIndices(status)
	outY := make([][]float64, len(indices))
	outQ := make([]float64, len(indices))
	outP := make([]float64, len(indices))
	for i, j := range indices {
		outY[i] = y[j]
		outQ[i] = logq[j]
		outP[i] = logp[j]
	}
	last := len(indices) - 1
	s.ref = ChainState{
		Sample: cloneFloats(outY[last]),
		Logq:   outQ[last],
		Logp:   outP[last],
		ok:     true,
	}
	rate := 0.0
	for _, ok := range status {
		if ok {
			rate++
		}
	}
	s.History.recordRate(rate / float64(len(status)))
	if bookkeeping {
		s.History.recordAccept(status, indices)
	}
	return outY, outQ, outP
}

// CalcAcceptRate estimates the acceptance rate from a fresh proposal
// batch, independent of the carried chain, with a bootstrap standard
// error over nResamples resamples.
func (s *Sampler) CalcAcceptRate(batchSize, nResamples int) (mean, std float64, err error) {
	_, logq, logp, err := s.model.Draw(batchSize)
	if err != nil {
		return 0, 0, err
	}
	logqp := make([]float64, len(logq))
	for i := range logqp {
		logqp[i] = logq[i] - logp[i]
	}
	rate := func(v []float64) float64 {
		status := CalcAcceptStatus(v, nil, s.rng)
		n := 0
		for _, ok := range status {
			if ok {
				n++
			}
		}
		return float64(n) / float64(len(status))
	}
	mean, std = NewResampler(s.rng).Eval(logqp, rate, nResamples)
	return mean, std, nil
}

// SerialGenerator yields chain samples one at a time, refilling its batch
// from the sampler every batchSize draws. Iterate with Next/Value and
// check Err afterwards.
type SerialGenerator struct {
	s     *Sampler
	n     int
	batch int
	drawn int
	pos   int
	y     [][]float64
	logq  []float64
	logp  []float64
	err   error
}

// SerialGenerator returns a generator of nSamples single samples backed
// by internal batches of batchSize.
func (s *Sampler) SerialGenerator(nSamples, batchSize int) *SerialGenerator {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SerialGenerator{s: s, n: nSamples, batch: batchSize, pos: batchSize}
}

// Next advances the generator; it returns false when nSamples have been
// produced or an error occurred.
func (g *SerialGenerator) Next() bool {
	if g.err != nil || g.drawn >= g.n {
		return false
	}
	if g.pos >= g.batch {
		g.y, g.logq, g.logp, g.err = g.s.SampleFull(g.batch, false)
		if g.err != nil {
			return false
		}
		g.pos = 0
	}
	g.drawn++
	return true
}

// Value returns the current sample and its log-densities; valid after a
// true Next.
func (g *SerialGenerator) Value() (cfg []float64, logq, logp float64) {
	cfg, logq, logp = g.y[g.pos], g.logq[g.pos], g.logp[g.pos]
	g.pos++
	return cfg, logq, logp
}

// Err reports a model failure during refill, if any.
func (g *SerialGenerator) Err() error { return g.err }

// meanBool is the acceptance fraction of a status matrix.
func meanBool(status [][]bool) float64 {
	n, total := 0, 0
	for _, row := range status {
		for _, ok := range row {
			total++
			if ok {
				n++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
