package poker

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
)

// Round is one of the four betting streets, ordered.
type Round int8

const (
	Preflop Round = iota
	Flop
	Turn
	River
)

var roundStr = [...]string{
	"preflop",
	"flop",
	"turn",
	"river",
}

func (r Round) String() string {
	if r < 0 || int(r) >= len(roundStr) {
		return fmt.Sprintf("Round(%d)", int(r))
	}
	return roundStr[r]
}

// State is one betting decision point from the acting player's
// perspective. States are never mutated in place: Apply returns a
// successor so that reach probabilities remain attached to the
// states they were computed for.
type State struct {
	Hole      []Card
	Community []Card
	Pot       float64
	Stack     float64
	Position  int
	NumPlayers int
	Round     Round
	Actions   []Action
	Folded    bool
}

// Terminal reports whether no further decisions are possible.
func (s *State) Terminal() bool {
	return len(s.Actions) == 0 || s.Stack <= 0
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	next := *s
	next.Hole = append([]Card(nil), s.Hole...)
	next.Community = append([]Card(nil), s.Community...)
	next.Actions = append([]Action(nil), s.Actions...)
	return &next
}

// Validate checks the structural invariants a sampled state must
// satisfy before it can be trained on.
func (s *State) Validate() error {
	if len(s.Hole) > 2 {
		return errors.Errorf("too many hole cards: %d", len(s.Hole))
	}
	if len(s.Community) > 5 {
		return errors.Errorf("too many community cards: %d", len(s.Community))
	}
	if s.Pot < 0 {
		return errors.Errorf("negative pot: %v", s.Pot)
	}
	if s.Stack < 0 {
		return errors.Errorf("negative stack: %v", s.Stack)
	}
	if s.NumPlayers < 2 {
		return errors.Errorf("too few players: %d", s.NumPlayers)
	}
	if s.Position < 0 {
		return errors.Errorf("negative position: %d", s.Position)
	}
	if s.Round < Preflop || s.Round > River {
		return errors.Errorf("invalid round: %d", int(s.Round))
	}

	var seen [52]bool
	for _, c := range append(append([]Card(nil), s.Hole...), s.Community...) {
		if !c.Valid() {
			return errors.Errorf("invalid card %v", c)
		}
		if seen[cardIndex(c)] {
			return errors.Errorf("duplicate card %v", c)
		}
		seen[cardIndex(c)] = true
	}

	return nil
}

// LegalActions generates the action set for a state. Fold is only
// offered when there is a pot to surrender; bet sizes are pot
// fractions, gated on the remaining stack.
func LegalActions(s *State) []Action {
	actions := make([]Action, 0, 8)

	if s.Pot > 0 {
		actions = append(actions, Action{Kind: Fold})
	}

	actions = append(actions, Action{Kind: Call}, Action{Kind: Check})

	if s.Pot > 0 && s.Stack > s.Pot*0.25 {
		actions = append(actions,
			Action{Kind: Bet, Amount: s.Pot * 0.33},
			Action{Kind: Bet, Amount: s.Pot * 0.66},
			Action{Kind: Bet, Amount: s.Pot})

		if s.Stack > s.Pot*1.5 {
			actions = append(actions,
				Action{Kind: Raise, Amount: s.Pot * 1.5},
				Action{Kind: AllIn})
		}
	}

	return actions
}

// Apply plays an action and returns the successor state. The receiver
// is not modified. Fold and AllIn end the hand; Check and Call advance
// the betting round; Bet and Raise move chips and then advance.
func Apply(s *State, a Action) *State {
	next := s.Clone()

	switch a.Kind {
	case Fold:
		next.Folded = true
		next.Actions = nil
	case Check, Call:
		advanceRound(next)
	case Bet, Raise:
		next.Pot += a.Amount
		next.Stack -= a.Amount
		advanceRound(next)
	case AllIn:
		next.Pot += next.Stack
		next.Stack = 0
		next.Actions = nil
	default:
		panic(fmt.Sprintf("unknown action kind: %v", a.Kind))
	}

	return next
}

// advanceRound moves the state to the next street, dealing community
// cards exactly once per street boundary. Past the river the hand is
// over and no actions remain.
func advanceRound(s *State) {
	switch s.Round {
	case Preflop:
		s.Round = Flop
		if len(s.Community) == 0 {
			dealCommunity(s, 3)
		}
	case Flop:
		s.Round = Turn
		if len(s.Community) == 3 {
			dealCommunity(s, 1)
		}
	case Turn:
		s.Round = River
		if len(s.Community) == 4 {
			dealCommunity(s, 1)
		}
	case River:
		s.Actions = nil
		return
	}

	if len(s.Actions) > 0 {
		s.Actions = LegalActions(s)
	}
}

// dealCommunity draws n cards from the deck excluding cards already in
// play. The draw is seeded from the cards in play so that a given
// state always deals the same board, keeping traversals repeatable.
func dealCommunity(s *State, n int) {
	seed := hashCards(s.Hole, s.Community) ^ uint64(s.Round)<<56
	rng := rand.New(rand.NewSource(int64(seed)))

	deck := remaining(append(append([]Card(nil), s.Hole...), s.Community...))
	for i := 0; i < n && i < len(deck); i++ {
		j := i + rng.Intn(len(deck)-i)
		deck[i], deck[j] = deck[j], deck[i]
		s.Community = append(s.Community, deck[i])
	}
}

const fnvPrime64 = 1099511628211

// hashCards folds rank/suit pairs into a 64-bit FNV-style product.
func hashCards(groups ...[]Card) uint64 {
	var h uint64
	for _, cards := range groups {
		for _, c := range cards {
			h *= fnvPrime64
			h ^= uint64(c.Rank)<<8 | uint64(c.Suit)
		}
	}
	return h
}
