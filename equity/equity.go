// Package equity estimates showdown win probabilities by Monte Carlo
// simulation. Each estimate is cached under a fingerprint of the hole
// cards, community cards, and player count, so repeated queries for the
// same spot cost a cache lookup rather than a fresh simulation run.
package equity

import (
	"expvar"
	"math/rand"
	"strconv"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

var (
	cacheHits    = expvar.NewInt("equity/cache_hits")
	cacheMisses  = expvar.NewInt("equity/cache_misses")
	cacheHitRate = expvar.NewFloat("equity/cache_hit_rate")
	cacheSize    = expvar.NewInt("equity/cache_size")
)

const (
	// DefaultSamples is the number of trials simulated when the caller
	// does not specify a sample count.
	DefaultSamples = 10000
	// DefaultCacheSize bounds the total number of cached estimates.
	DefaultCacheSize = 100000

	numShards = 64
)

// Estimator is a memoizing Monte Carlo equity calculator.
//
// It is safe for concurrent use by multiple goroutines. The cache is
// sharded so that queries for different hands do not contend on a single
// lock, and each shard evicts its least recently used entries once full.
type Estimator struct {
	shards  [numShards]*lru.Cache
	samples int64 // total trials simulated, updated atomically
}

// NewEstimator creates an Estimator whose cache holds approximately
// cacheSize entries. If cacheSize <= 0, DefaultCacheSize is used.
func NewEstimator(cacheSize int) *Estimator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	perShard := cacheSize / numShards
	if perShard < 1 {
		perShard = 1
	}

	e := &Estimator{}
	for i := range e.shards {
		cache, err := lru.New(perShard)
		if err != nil {
			panic(err) // only possible with non-positive size
		}
		e.shards[i] = cache
	}
	return e
}

// WinProbability returns the estimated probability in [0, 1] that the
// given hand beats every one of numPlayers-1 opponents at showdown.
// If samples <= 0, DefaultSamples trials are run. Results are cached by
// (hole, community, numPlayers); a cached answer is returned as-is even
// if the requested sample count differs from the one it was computed
// with, since the estimates are statistically interchangeable.
func (e *Estimator) WinProbability(hole, community []poker.Card, numPlayers, samples int) float64 {
	if samples <= 0 {
		samples = DefaultSamples
	}

	key := fingerprint(hole, community, numPlayers)
	cache := e.shards[shardIndex(key)]
	if cached, ok := cache.Get(key); ok {
		cacheHits.Add(1)
		cacheHitRate.Set(float64(cacheHits.Value()) / float64(cacheHits.Value()+cacheMisses.Value()))
		return cached.(float64)
	}

	cacheMisses.Add(1)
	cacheHitRate.Set(float64(cacheHits.Value()) / float64(cacheHits.Value()+cacheMisses.Value()))

	p := e.simulate(hole, community, numPlayers, samples)
	cache.Add(key, p)
	cacheSize.Set(int64(e.Len()))
	return p
}

// Samples returns the total number of trials simulated so far. Cache
// hits do not increase it.
func (e *Estimator) Samples() int64 {
	return atomic.LoadInt64(&e.samples)
}

// Len returns the number of cached estimates.
func (e *Estimator) Len() int {
	n := 0
	for _, cache := range e.shards {
		n += cache.Len()
	}
	return n
}

func (e *Estimator) simulate(hole, community []poker.Card, numPlayers, samples int) float64 {
	rng := rand.New(rand.NewSource(rand.Int63()))
	hero := heroStrength(hole, community)
	skill := skillScale(community)

	wins := 0
	for i := 0; i < samples; i++ {
		if heroWinsTrial(rng, hero, numPlayers-1, skill) {
			wins++
		}
	}

	atomic.AddInt64(&e.samples, int64(samples))
	return float64(wins) / float64(samples)
}

// heroWinsTrial samples one opponent strength per opponent and reports
// whether the hero strictly beats all of them. Ties lose: an equal draw
// means the hero's edge was not realized.
func heroWinsTrial(rng *rand.Rand, hero float64, numOpponents int, skill float64) bool {
	for i := 0; i < numOpponents; i++ {
		opp := rng.Float64()*0.6 + 0.2 + rng.Float64()*skill
		if opp >= hero {
			return false
		}
	}
	return true
}

// skillScale is the width of the round-dependent bonus added to each
// sampled opponent strength. Ranges tighten on later streets: weak
// hands mostly fold before the turn and river.
func skillScale(community []poker.Card) float64 {
	switch len(community) {
	case 3:
		return 0.1
	case 4:
		return 0.15
	case 5:
		return 0.2
	}
	return 0
}

// heroStrength scores the hero's hand once per simulation run: the
// heuristic hand strength plus a bonus for board interaction.
func heroStrength(hole, community []poker.Card) float64 {
	s := poker.HandStrength(hole, community) + boardInteraction(hole, community)
	if s > 1 {
		return 1
	}
	return s
}

// boardInteraction rewards pairing the board and holding a live flush
// draw: +0.15 for each hole card that pairs a board rank, +0.08 when the
// hole cards are suited and at least two board cards share that suit.
func boardInteraction(hole, community []poker.Card) float64 {
	bonus := 0.0
	for _, h := range hole {
		for _, b := range community {
			if h.Rank == b.Rank {
				bonus += 0.15
			}
		}
	}

	if len(hole) >= 2 && hole[0].Suit == hole[1].Suit {
		suited := 0
		for _, b := range community {
			if b.Suit == hole[0].Suit {
				suited++
			}
		}
		if suited >= 2 {
			bonus += 0.08
		}
	}
	return bonus
}

// fingerprint builds the cache key. The sample count is deliberately
// excluded so that a spot estimated at any resolution satisfies later
// queries for the same cards and table size.
func fingerprint(hole, community []poker.Card, numPlayers int) string {
	buf := make([]byte, 0, 2*(len(hole)+len(community))+4)
	for _, c := range hole {
		buf = append(buf, c.String()...)
	}
	buf = append(buf, '|')
	for _, c := range community {
		buf = append(buf, c.String()...)
	}
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(numPlayers), 10)
	return string(buf)
}

func shardIndex(key string) int {
	h := uint32(2166136261)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return int(h % numShards)
}
