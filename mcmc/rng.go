// Package mcmc corrects a normalizing flow's generative distribution to
// an exact target density with Metropolis accept/reject steps. It
// provides the independence-chain Sampler, the blocked
// Metropolis-within-Gibbs BlockedSampler, and the bookkeeping and
// diagnostics around them.
package mcmc

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"

	"github.com/tuneinsight/lattigo/v4/utils"
	"golang.org/x/crypto/sha3"
)

// RNG draws the randomness for acceptance decisions and priors from a
// keyed PRNG, so seeded runs reproduce exactly. Not safe for concurrent
// use; each sampler owns its own.
type RNG struct {
	prng     utils.PRNG
	buf      [8]byte
	spare    float64
	hasSpare bool
}

// NewRNG derives a PRNG key from seed and returns a deterministic RNG.
func NewRNG(seed int64) *RNG {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(seed))
	key := sha3.Sum256(b[:])
	prng, _ := utils.NewKeyedPRNG(key[:])
	return &RNG{prng: prng}
}

// NewKeyedRNG builds an RNG from an explicit PRNG key.
func NewKeyedRNG(key []byte) (*RNG, error) {
	prng, err := utils.NewKeyedPRNG(key)
	if err != nil {
		return nil, err
	}
	return &RNG{prng: prng}, nil
}

func (r *RNG) uint64() uint64 {
	if _, err := r.prng.Read(r.buf[:]); err != nil {
		// the keyed PRNG is an XOF and does not fail after construction
		panic("mcmc: prng read: " + err.Error())
	}
	return binary.LittleEndian.Uint64(r.buf[:])
}

// Uniform returns a draw from [0, 1).
func (r *RNG) Uniform() float64 {
	return float64(r.uint64()>>11) * 0x1p-53
}

// LogUniform returns log(u) for u drawn from (0, 1].
func (r *RNG) LogUniform() float64 {
	return math.Log(1 - r.Uniform())
}

// Normal returns a standard Gaussian draw via Box-Muller.
func (r *RNG) Normal() float64 {
	if r.hasSpare {
		r.hasSpare = false
		return r.spare
	}
	u := 1 - r.Uniform() // (0, 1]
	v := r.Uniform()
	rad := math.Sqrt(-2 * math.Log(u))
	r.spare = rad * math.Sin(2*math.Pi*v)
	r.hasSpare = true
	return rad * math.Cos(2*math.Pi*v)
}

// defaultRNG backs samplers constructed without an explicit RNG. Seeded
// from the OS entropy source at startup.
var defaultRNG *RNG

func init() {
	var seed int64
	if err := binary.Read(rand.Reader, binary.LittleEndian, &seed); err != nil {
		seed = time.Now().UnixNano()
	}
	defaultRNG = NewRNG(seed)
}
