package rtpa

import (
	"context"

	"github.com/pkg/errors"

	"github.com/MDS-AnGe/RTPA-Studio/equity"
	"github.com/MDS-AnGe/RTPA-Studio/internal/f64"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// defaultMix is the fallback recommendation for decision points the
// tables have not visited. Kinds without a weight fall out of the mix.
var defaultMix = map[poker.ActionKind]float64{
	poker.Fold:  0.2,
	poker.Call:  0.3,
	poker.Bet:   0.3,
	poker.Check: 0.2,
}

// Advice is one action of a recommendation, with the probability the
// learned strategy assigns to it.
type Advice struct {
	Action poker.Action
	Prob   float64
}

// Status describes the advisor at a point in time.
type Status struct {
	Training     TrainingStats
	InfoSets     int
	CacheEntries int
}

// Advisor bundles the strategy store, card abstraction, equity
// estimator and trainer behind a query surface. All methods are safe
// for concurrent use, including while training runs.
type Advisor struct {
	store StrategyStore
	abs   *Abstractor
	est   *equity.Estimator
	tr    *Trainer
	cfg   Config
}

// NewAdvisor assembles an advisor from cfg. A nil store starts with an
// empty in-memory table; pass a restored or disk-backed store to
// continue from existing strategies. device may be nil for CPU-only
// operation.
func NewAdvisor(cfg Config, store StrategyStore, pool []*poker.State, device Device) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	if store == nil {
		store = NewTable()
	}
	tr, err := NewTrainer(store, pool, device, cfg)
	if err != nil {
		return nil, err
	}

	return &Advisor{
		store: store,
		abs:   NewAbstractor(cfg.Buckets),
		est:   equity.NewEstimator(cfg.EquityCacheSize),
		tr:    tr,
		cfg:   cfg,
	}, nil
}

// Start launches background training. It returns ErrAlreadyTraining
// while a session is active.
func (a *Advisor) Start(ctx context.Context) error { return a.tr.Start(ctx) }

// Stop requests the current training session end.
func (a *Advisor) Stop() { a.tr.Stop() }

// Wait blocks until the current training session ends.
func (a *Advisor) Wait() { a.tr.Wait() }

// Store exposes the backing strategy store, for snapshots and exports.
func (a *Advisor) Store() StrategyStore { return a.store }

// Status reports training progress and table sizes.
func (a *Advisor) Status() Status {
	return Status{
		Training:     a.tr.Stats(),
		InfoSets:     a.store.Len(),
		CacheEntries: a.est.Len(),
	}
}

// Equity estimates the win probability of the hero hand in s using the
// configured Monte-Carlo sample count.
func (a *Advisor) Equity(s *poker.State) float64 {
	return a.est.WinProbability(s.Hole, s.Community, s.NumPlayers, a.cfg.MCSamples)
}

// Strategy recommends a probability for every legal action in s. It
// returns the learned average strategy when this decision point has
// accumulated one, and otherwise the default mix filtered to the
// legal actions. Querying never creates table entries.
func (a *Advisor) Strategy(s *poker.State) ([]Advice, error) {
	if s == nil || len(s.Actions) == 0 {
		return nil, errors.New("rtpa: state has no legal actions")
	}

	advice := make([]Advice, len(s.Actions))
	probs := make([]float64, len(s.Actions))

	if p, ok := a.store.Lookup(a.abs.Key(s)); ok {
		if avg := p.Average(); avg != nil {
			for i, act := range s.Actions {
				probs[i] = avg[ClassOf(act, s.Pot)]
			}
		}
	}
	if f64.Sum(probs) == 0 {
		for i, act := range s.Actions {
			probs[i] = defaultMix[act.Kind]
		}
	}

	total := f64.Sum(probs)
	for i, act := range s.Actions {
		advice[i].Action = act
		if total > 0 {
			advice[i].Prob = probs[i] / total
		} else {
			advice[i].Prob = 1 / float64(len(s.Actions))
		}
	}
	return advice, nil
}
