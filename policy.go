package rtpa

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/MDS-AnGe/RTPA-Studio/internal/f64"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// ActionClass is the bucketed identity of an action inside the
// strategy table. Bet and raise amounts are reduced to a coarse
// pot-relative size so that the class set of an information set stays
// stable across the whole run even as nominal amounts drift.
type ActionClass struct {
	Kind poker.ActionKind
	Size uint8
}

func (c ActionClass) String() string {
	if c.Kind == poker.Bet || c.Kind == poker.Raise {
		return fmt.Sprintf("%s:%d", c.Kind, c.Size)
	}
	return c.Kind.String()
}

// ClassOf buckets an action relative to the pot it was offered into.
// Unsized kinds (fold, check, call, all-in) ignore the amount.
func ClassOf(a poker.Action, pot float64) ActionClass {
	if !a.Sized() {
		return ActionClass{Kind: a.Kind}
	}
	return ActionClass{Kind: a.Kind, Size: sizeBucket(a.Amount, pot)}
}

// sizeBucket maps a bet-to-pot ratio onto four coarse sizes: small
// (<= 0.4 pot), medium (<= 0.8), large (<= 1.2), and overbet.
func sizeBucket(amount, pot float64) uint8 {
	if pot <= 0 {
		return 3
	}
	ratio := amount / pot
	switch {
	case ratio <= 0.4:
		return 0
	case ratio <= 0.8:
		return 1
	case ratio <= 1.2:
		return 2
	}
	return 3
}

// Strategy accumulates regrets and strategy weights for one
// information set. Accumulators are indexed by ActionClass and grow on
// first sight of a class; classes never observed stay absent and read
// as zero regret. All methods are safe for concurrent use; updates to
// the same entry serialize on its lock.
type Strategy struct {
	mu          sync.Mutex
	classes     []ActionClass
	regretSum   []float64
	strategySum []float64
}

// NewStrategy creates an empty Strategy. Accumulators appear as
// classes are first updated.
func NewStrategy() *Strategy {
	return &Strategy{}
}

// Current implements regret matching: dst[i] is proportional to the
// positive accumulated regret of classes[i], and uniform over classes
// when no positive regret has accumulated. dst must have len(classes).
func (s *Strategy) Current(classes []ActionClass, dst []float64) {
	s.mu.Lock()
	for i, c := range classes {
		dst[i] = s.regret(c)
	}
	s.mu.Unlock()

	makePositive(dst)
	total := f64.Sum(dst)
	if total > 0 {
		f64.ScalUnitary(1.0/total, dst)
	} else {
		for i := range dst {
			dst[i] = 1.0 / float64(len(dst))
		}
	}
}

// Update applies one walk's worth of increments under a single lock
// acquisition: regrets[i] is added to the regret sum for classes[i]
// and weights[i] to its strategy sum.
func (s *Strategy) Update(classes []ActionClass, regrets, weights []float64) {
	s.mu.Lock()
	for i, c := range classes {
		j := s.index(c)
		s.regretSum[j] += regrets[i]
		s.strategySum[j] += weights[i]
	}
	s.mu.Unlock()
}

// AddRegret adds amount (which may be negative) to the accumulated
// regret for class.
func (s *Strategy) AddRegret(class ActionClass, amount float64) {
	s.mu.Lock()
	s.regretSum[s.index(class)] += amount
	s.mu.Unlock()
}

// AddStrategyWeight adds a reach-probability weight to the accumulated
// strategy sum for class.
func (s *Strategy) AddStrategyWeight(class ActionClass, w float64) {
	s.mu.Lock()
	s.strategySum[s.index(class)] += w
	s.mu.Unlock()
}

// Average returns the time-averaged strategy, each recorded class's
// share of the total strategy weight. It returns nil when no weight
// has ever been recorded.
func (s *Strategy) Average() map[ActionClass]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := f64.Sum(s.strategySum)
	if total <= 0 {
		return nil
	}

	avg := make(map[ActionClass]float64, len(s.classes))
	for i, c := range s.classes {
		avg[c] = s.strategySum[i] / total
	}
	return avg
}

// AbsRegretSum returns the sum of absolute accumulated regrets, the
// raw material of the convergence metric.
func (s *Strategy) AbsRegretSum() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f64.AbsSum(s.regretSum)
}

// regret reads the accumulated regret for class without growing the
// entry. Callers must hold s.mu.
func (s *Strategy) regret(class ActionClass) float64 {
	for i, c := range s.classes {
		if c == class {
			return s.regretSum[i]
		}
	}
	return 0
}

// index returns the accumulator position for class, growing the entry
// on first sight. Callers must hold s.mu.
func (s *Strategy) index(class ActionClass) int {
	for i, c := range s.classes {
		if c == class {
			return i
		}
	}
	s.classes = append(s.classes, class)
	s.regretSum = append(s.regretSum, 0)
	s.strategySum = append(s.strategySum, 0)
	return len(s.classes) - 1
}

// MarshalBinary encodes the entry for persistence.
func (s *Strategy) MarshalBinary() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(s.classes); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.regretSum); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.strategySum); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the entry's accumulators with the encoded
// ones.
func (s *Strategy) UnmarshalBinary(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&s.classes); err != nil {
		return err
	}
	if err := dec.Decode(&s.regretSum); err != nil {
		return err
	}
	return dec.Decode(&s.strategySum)
}

func uniformDist(n int) []float64 {
	result := make([]float64, n)
	p := 1.0 / float64(n)
	f64.AddConst(p, result)
	return result
}

func makePositive(v []float64) {
	for i := range v {
		if v[i] < 0 {
			v[i] = 0.0
		}
	}
}
