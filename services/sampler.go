package services

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Sampler picks k distinct indices out of [0, n). Implementations must
// return min(k, n) indices.
type Sampler interface {
	Sample(n, k int) []int
}

// RandomSampler draws uniformly without replacement using a partial
// Fisher-Yates shuffle.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler returns a sampler seeded with seed, or with the current
// time when seed is 0.
func NewRandomSampler(seed uint64) *RandomSampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomSampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomSampler) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
