// Package rand provides the seedable random source used by the simulation
// engines. All stochastic decisions go through Source so that runs can be
// reproduced from a seed.
package rand

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

// Source is the minimal random interface consumed by the engines.
type Source interface {
	// Float64 returns a uniform value in [0,1).
	Float64() float64
	// Intn returns a uniform value in [0,n). n must be positive.
	Intn(n int) int
}

const pcgStream = 0xda3e39cb94b95bdb

// Rand is a PCG32 backed Source. Not safe for concurrent use.
type Rand struct {
	r *pcg.PCG32
}

var _ Source = (*Rand)(nil)

// New returns a generator seeded with seed.
func New(seed int64) *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	r.Seed(seed)
	return r
}

// NewTimeSeeded returns a generator seeded from the wall clock.
func NewTimeSeeded() *Rand {
	return New(time.Now().UnixNano())
}

func (r *Rand) Seed(seed int64) {
	r.r.Seed(uint64(seed), pcgStream)
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

func (r *Rand) Float64() float64 {
	// 53 bits from two draws
	hi := uint64(r.r.Random()) >> 5
	lo := uint64(r.r.Random()) >> 6
	return float64(hi<<26|lo) / (1 << 53)
}

func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("rand: invalid argument to Intn")
	}
	return int(r.r.Bounded(uint32(n)))
}

// Uniform returns a value in [lo,hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Shuffle permutes the first n elements using Fisher-Yates.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		swap(i, j)
	}
}

// Perm returns a random permutation of [0,n).
func Perm(src Source, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	Shuffle(src, n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}
