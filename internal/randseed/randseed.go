// Package randseed derives reproducible per-peer RNG streams from a single
// base seed, so that identical (config, seed) pairs always produce
// byte-identical simulation output.
package randseed

import "math/rand"

// Mix combines a 64-bit base seed with a peer id through xor-shift-multiply
// rounds (splitmix64-style) to produce an independent, reproducible 64-bit
// seed per peer.
func Mix(base uint64, id uint64) uint64 {
	x := base
	x ^= id + 0x9e3779b97f4a7c15
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Stream is one peer's private RNG, seeded via Mix so that every peer's
// draws are independent of draw order across peers.
type Stream struct {
	r *rand.Rand
}

// NewStream mixes baseSeed with peerUID and returns a stream private to
// that peer.
func NewStream(baseSeed uint64, peerUID int) *Stream {
	mixed := Mix(baseSeed, uint64(peerUID))
	// #nosec G404 -- determinism, not cryptographic secrecy, is the goal.
	return &Stream{r: rand.New(rand.NewSource(int64(mixed)))}
}

// Bernoulli reports true with probability p (p clamped to [0,1]).
func (s *Stream) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.r.Float64() < p
}

// IntN returns a uniform random integer in [0, n).
func (s *Stream) IntN(n int) int {
	return s.r.Intn(n)
}

// WeightedChoice samples an index into weights according to its relative
// weight (a categorical / discrete distribution). weights must be
// non-empty and sum to a positive value. There is no standard-library
// equivalent of std::discrete_distribution, so this performs the classic
// cumulative-sum-then-uniform-draw sampling by hand.
func (s *Stream) WeightedChoice(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	target := s.r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
