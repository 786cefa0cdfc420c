package rtpa

import (
	"expvar"
	"math"

	"github.com/golang/glog"

	"github.com/MDS-AnGe/RTPA-Studio/internal/f64"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

var (
	nodesVisited    = expvar.NewInt("walker/nodes_visited")
	terminalsHit    = expvar.NewInt("walker/nodes_visited/terminal")
	depthCapReached = expvar.NewInt("walker/depth_cap_reached")
)

// Walker runs the counterfactual-regret recursion over sampled states,
// accumulating regret and strategy weight into a shared StrategyStore.
// A Walker is not safe for concurrent use: training runs one Walker per
// worker goroutine, all writing through the same store.
type Walker struct {
	store    StrategyStore
	abs      *Abstractor
	maxDepth int

	slicePool *floatSlicePool

	// Per-walk accumulators for the convergence metric.
	absRegret   float64
	regretTerms int
}

// NewWalker creates a Walker over the given store and abstraction. If
// maxDepth <= 0, DefaultMaxDepth is used.
func NewWalker(store StrategyStore, abs *Abstractor, maxDepth int) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{
		store:     store,
		abs:       abs,
		maxDepth:  maxDepth,
		slicePool: &floatSlicePool{},
	}
}

// Walk traverses the full game tree below state with unit reach
// probabilities. It returns the root counterfactual value and the
// walk's convergence contribution: the mean magnitude of the regret
// increments applied during the walk, normalized by the chips in play
// to [0, 1]. Lower means closer to equilibrium.
func (w *Walker) Walk(state *poker.State) (value, convergence float64) {
	w.absRegret = 0
	w.regretTerms = 0

	value = w.walk(state, 1, 1, 0)

	scale := state.Pot + state.Stack
	if w.regretTerms == 0 || scale <= 0 {
		return value, 0
	}
	convergence = w.absRegret / float64(w.regretTerms) / scale
	if convergence > 1 {
		convergence = 1
	}
	return value, convergence
}

// Value computes the counterfactual value of state for the player to
// act, with explicit reach probabilities. Updates are still applied to
// the store.
func (w *Walker) Value(state *poker.State, reachPlayer, reachOpponent float64) float64 {
	return w.walk(state, reachPlayer, reachOpponent, 0)
}

// walk is one level of the recursion. Perspective alternates with the
// acting player: a child's value is negated on the way up unless the
// child is terminal, whose payoff is already scored for the player who
// just acted.
func (w *Walker) walk(state *poker.State, reachP, reachO float64, depth int) float64 {
	nodesVisited.Add(1)

	if state.Terminal() {
		terminalsHit.Add(1)
		return w.payoff(state)
	}
	if depth >= w.maxDepth {
		depthCapReached.Add(1)
		glog.V(1).Infof("Depth cap %d reached at %v", w.maxDepth, state)
		return w.payoff(state)
	}

	actions := state.Actions
	classes := make([]ActionClass, len(actions))
	for i, a := range actions {
		classes[i] = ClassOf(a, state.Pot)
	}

	policy := w.store.Get(w.abs.Key(state))

	strategy := w.slicePool.alloc(len(actions))
	policy.Current(classes, strategy)

	actionValues := w.slicePool.alloc(len(actions))
	for i, a := range actions {
		child := poker.Apply(state, a)
		if child.Terminal() {
			actionValues[i] = w.walk(child, reachO, reachP, depth+1)
		} else {
			actionValues[i] = -w.walk(child, reachO, reachP*strategy[i], depth+1)
		}
	}

	value := f64.DotUnitary(strategy, actionValues)

	regrets := w.slicePool.alloc(len(actions))
	weights := w.slicePool.alloc(len(actions))
	for i := range actions {
		regrets[i] = reachO * (actionValues[i] - value)
		weights[i] = reachP * strategy[i]
		w.absRegret += math.Abs(regrets[i])
	}
	w.regretTerms += len(actions)

	policy.Update(classes, regrets, weights)

	w.slicePool.free(weights)
	w.slicePool.free(regrets)
	w.slicePool.free(actionValues)
	w.slicePool.free(strategy)
	return value
}

// payoff scores a finished hand for the player whose turn it would be:
// a folded hand surrenders half the pot, otherwise hand strength
// decides how much of the pot is claimed versus forfeited.
func (w *Walker) payoff(state *poker.State) float64 {
	if state.Folded {
		return -state.Pot / 2
	}
	s := poker.HandStrength(state.Hole, state.Community)
	return s*state.Pot - (1-s)*state.Pot*0.5
}
