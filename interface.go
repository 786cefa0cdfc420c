package rtpa

import (
	"context"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// Policy accumulates regrets and strategy weights for a single
// information set and answers strategy queries derived from them.
// Implementations must serialize concurrent updates to the same entry.
type Policy interface {
	// Current computes the regret-matching strategy over the given
	// action classes into dst: each class is weighted by its positive
	// accumulated regret, falling back to a uniform distribution when
	// no class has positive regret. dst must have len(classes) > 0.
	Current(classes []ActionClass, dst []float64)

	// Update applies one walk's worth of increments under a single
	// lock acquisition: regrets[i] is added to the regret sum of
	// classes[i], and weights[i] to its strategy sum.
	Update(classes []ActionClass, regrets, weights []float64)

	// AddRegret adds amount (which may be negative) to the accumulated
	// regret for the given class, creating it on first sight.
	AddRegret(class ActionClass, amount float64)

	// AddStrategyWeight adds a non-negative reach-probability weight
	// to the accumulated strategy sum for the given class.
	AddStrategyWeight(class ActionClass, w float64)

	// Average returns the time-averaged strategy: each recorded
	// class's share of the total accumulated strategy weight. It
	// returns nil when no weight has been recorded; callers substitute
	// a default mix.
	Average() map[ActionClass]float64
}

// StrategyStore maintains a Policy for every information-set key seen
// during traversal. Implementations must allow concurrent access to
// distinct keys without blocking each other; entries are created lazily
// and live until the store is reset or closed.
type StrategyStore interface {
	// Get returns the Policy for key, creating it on first use.
	Get(key string) Policy

	// Lookup returns the Policy for key without creating one, so
	// queries do not grow the store.
	Lookup(key string) (Policy, bool)

	// Len returns the number of entries in the store.
	Len() int

	// ForEach visits every entry in unspecified order, stopping at the
	// first error. The callback must not retain p past its return.
	ForEach(fn func(key string, p Policy) error) error
}

// Device is an opaque batch-compute backend. The trainer routes large
// batches to it and treats any error as a signal to fall back to the
// CPU path; a Device is never required for training to make progress.
type Device interface {
	// TrainBatch walks every state in the batch, applying table
	// updates through whatever mechanism the device was built with,
	// and returns the batch convergence value. It must respect ctx
	// cancellation: a stuck device cannot be allowed to hang training.
	TrainBatch(ctx context.Context, states []*poker.State) (float64, error)

	// Close releases device resources.
	Close() error
}
