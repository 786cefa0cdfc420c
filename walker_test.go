package rtpa

import (
	"math"
	"testing"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// twoActionState is a hand with exactly two choices, fold or shove,
// whose terminal payoffs differ: -10 for folding, -15 for shoving a
// trash hand. The gap drives a known regret update.
func twoActionState() *poker.State {
	return &poker.State{
		Hole:       []poker.Card{poker.MustCard("7h"), poker.MustCard("2d")},
		Pot:        20,
		Stack:      100,
		Position:   1,
		NumPlayers: 2,
		Round:      poker.Preflop,
		Actions: []poker.Action{
			{Kind: poker.Fold},
			{Kind: poker.AllIn},
		},
	}
}

func newTestWalker(maxDepth int) (*Walker, *Table) {
	tbl := NewTable()
	return NewWalker(tbl, NewAbstractor(0), maxDepth), tbl
}

func TestWalkSingleActionReturnsTerminalPayoff(t *testing.T) {
	w, _ := newTestWalker(0)
	s := twoActionState()
	s.Actions = []poker.Action{{Kind: poker.AllIn}}

	terminal := poker.Apply(s, s.Actions[0])
	if !terminal.Terminal() {
		t.Fatal("shove child should be terminal")
	}
	want := w.payoff(terminal)

	// The value of a forced move is its terminal payoff, whatever the
	// reach probabilities are.
	if got := w.Value(s, 1, 1); math.Abs(got-want) > 1e-12 {
		t.Errorf("Value(1,1) = %v, want terminal payoff %v", got, want)
	}
	if got := w.Value(s, 0.3, 0.9); math.Abs(got-want) > 1e-12 {
		t.Errorf("Value(0.3,0.9) = %v, want terminal payoff %v", got, want)
	}
}

func TestWalkFoldedPayoffIsHalfPot(t *testing.T) {
	w, _ := newTestWalker(0)
	s := twoActionState()
	s.Actions = []poker.Action{{Kind: poker.Fold}}

	if got := w.Value(s, 1, 1); math.Abs(got-(-10)) > 1e-12 {
		t.Errorf("forced fold value = %v, want -10", got)
	}
}

func TestWalkFirstPassIsUniform(t *testing.T) {
	w, _ := newTestWalker(0)

	// Fold scores -10, shove scores 0.25*120 - 0.75*60 = -15; a fresh
	// entry mixes them evenly.
	value, conv := w.Walk(twoActionState())
	if math.Abs(value-(-12.5)) > 1e-12 {
		t.Errorf("first walk value = %v, want -12.5", value)
	}

	// Instantaneous regrets are +2.5/-2.5, so the walk's convergence
	// contribution is 2.5 / (pot + stack).
	want := 2.5 / 120
	if math.Abs(conv-want) > 1e-12 {
		t.Errorf("first walk convergence = %v, want %v", conv, want)
	}
}

func TestWalkSteersTowardBetterAction(t *testing.T) {
	w, tbl := newTestWalker(0)
	s := twoActionState()

	w.Walk(s)

	// After the first walk the fold branch holds all positive regret,
	// so the second walk plays it pure.
	value, _ := w.Walk(s)
	if math.Abs(value-(-10)) > 1e-12 {
		t.Errorf("second walk value = %v, want pure-fold -10", value)
	}

	avg := tbl.strategy(NewAbstractor(0).Key(s)).Average()
	foldClass := ActionClass{Kind: poker.Fold}
	allinClass := ActionClass{Kind: poker.AllIn}
	if math.Abs(avg[foldClass]-0.75) > 1e-12 || math.Abs(avg[allinClass]-0.25) > 1e-12 {
		t.Errorf("average strategy = %v, want fold 0.75 / allin 0.25", avg)
	}
}

func TestWalkFullTree(t *testing.T) {
	w, tbl := newTestWalker(0)
	s := &poker.State{
		Hole:       []poker.Card{poker.MustCard("Ah"), poker.MustCard("Kh")},
		Pot:        20,
		Stack:      100,
		Position:   3,
		NumPlayers: 6,
		Round:      poker.Preflop,
	}
	s.Actions = poker.LegalActions(s)

	value, conv := w.Walk(s)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		t.Fatalf("walk value = %v", value)
	}
	if conv < 0 || conv > 1 {
		t.Errorf("convergence %v outside [0, 1]", conv)
	}
	if tbl.Len() < 2 {
		t.Errorf("full walk touched only %d information sets", tbl.Len())
	}
}

func TestWalkDepthCap(t *testing.T) {
	w, tbl := newTestWalker(1)
	s := twoActionState()
	s.Actions = []poker.Action{{Kind: poker.Check}}

	// The check child advances to the flop with a fresh action set, but
	// the cap stops the recursion there.
	w.Walk(s)
	if tbl.Len() != 1 {
		t.Errorf("depth-capped walk touched %d information sets, want 1", tbl.Len())
	}
}

func TestPayoff(t *testing.T) {
	w, _ := newTestWalker(0)

	folded := &poker.State{Pot: 40, Stack: 50, NumPlayers: 2, Folded: true}
	if got := w.payoff(folded); got != -20 {
		t.Errorf("folded payoff = %v, want -20", got)
	}

	// Strength 0.25 on a 120 pot: claims 30, forfeits 45.
	shoved := &poker.State{
		Hole:       []poker.Card{poker.MustCard("7h"), poker.MustCard("2d")},
		Pot:        120,
		NumPlayers: 2,
	}
	if got := w.payoff(shoved); math.Abs(got-(-15)) > 1e-12 {
		t.Errorf("shoved payoff = %v, want -15", got)
	}

	empty := &poker.State{NumPlayers: 2}
	if got := w.payoff(empty); got != 0 {
		t.Errorf("zero-pot payoff = %v, want 0", got)
	}
}
