package poker

import (
	"testing"
)

func testState() *State {
	s := &State{
		Hole:       cards("Ah", "Kh"),
		Pot:        20,
		Stack:      100,
		Position:   3,
		NumPlayers: 6,
		Round:      Preflop,
	}
	s.Actions = LegalActions(s)
	return s
}

func TestLegalActionsFullSet(t *testing.T) {
	s := testState()
	// pot 20, stack 100: fold, call, check, three bets, raise, allin.
	if len(s.Actions) != 8 {
		t.Fatalf("len(LegalActions) = %d, expected 8: %v", len(s.Actions), s.Actions)
	}
	if s.Actions[0].Kind != Fold {
		t.Errorf("first action = %v, expected fold", s.Actions[0])
	}
}

func TestLegalActionsNoFoldWithoutPot(t *testing.T) {
	s := &State{Stack: 100}
	for _, a := range LegalActions(s) {
		if a.Kind == Fold {
			t.Error("fold offered with empty pot")
		}
		if a.Sized() || a.Kind == AllIn {
			t.Errorf("betting action %v offered with empty pot", a)
		}
	}
}

func TestLegalActionsShortStack(t *testing.T) {
	s := &State{Pot: 100, Stack: 20} // stack <= pot*0.25
	for _, a := range LegalActions(s) {
		if a.Kind == Bet || a.Kind == Raise || a.Kind == AllIn {
			t.Errorf("betting action %v offered with short stack", a)
		}
	}
}

func TestLegalActionsNoRaiseWithMediumStack(t *testing.T) {
	s := &State{Pot: 100, Stack: 50} // pot*0.25 < stack <= pot*1.5
	var bets int
	for _, a := range LegalActions(s) {
		switch a.Kind {
		case Bet:
			bets++
		case Raise, AllIn:
			t.Errorf("action %v offered with medium stack", a)
		}
	}
	if bets != 3 {
		t.Errorf("got %d bet sizes, expected 3", bets)
	}
}

func TestApplyFoldTerminates(t *testing.T) {
	s := testState()
	next := Apply(s, Action{Kind: Fold})

	if !next.Terminal() {
		t.Error("state after fold is not terminal")
	}
	if !next.Folded {
		t.Error("folded flag not set")
	}
	if len(s.Actions) == 0 {
		t.Error("Apply mutated the parent state")
	}
}

func TestApplyAllInTerminates(t *testing.T) {
	s := testState()
	next := Apply(s, Action{Kind: AllIn})

	if !next.Terminal() {
		t.Error("state after all-in is not terminal")
	}
	if next.Stack != 0 {
		t.Errorf("stack after all-in = %v, expected 0", next.Stack)
	}
	if next.Pot != s.Pot+s.Stack {
		t.Errorf("pot after all-in = %v, expected %v", next.Pot, s.Pot+s.Stack)
	}
}

func TestApplyBetMovesChipsAndAdvances(t *testing.T) {
	s := testState()
	bet := Action{Kind: Bet, Amount: 10}
	next := Apply(s, bet)

	if next.Pot != 30 {
		t.Errorf("pot = %v, expected 30", next.Pot)
	}
	if next.Stack != 90 {
		t.Errorf("stack = %v, expected 90", next.Stack)
	}
	if next.Round != Flop {
		t.Errorf("round = %v, expected flop", next.Round)
	}
	if len(next.Community) != 3 {
		t.Errorf("community = %v, expected 3 cards for the flop", next.Community)
	}
}

func TestApplyCallAdvancesEachStreet(t *testing.T) {
	s := testState()

	wantCommunity := []int{3, 4, 5}
	wantRound := []Round{Flop, Turn, River}
	for i := range wantRound {
		s = Apply(s, Action{Kind: Call})
		if s.Round != wantRound[i] {
			t.Fatalf("round = %v, expected %v", s.Round, wantRound[i])
		}
		if len(s.Community) != wantCommunity[i] {
			t.Fatalf("community count = %d, expected %d on %v", len(s.Community), wantCommunity[i], s.Round)
		}
	}

	// Calling on the river ends the hand.
	s = Apply(s, Action{Kind: Call})
	if !s.Terminal() {
		t.Error("state after river call is not terminal")
	}
	if len(s.Community) != 5 {
		t.Errorf("community count = %d after river, expected 5", len(s.Community))
	}
}

func TestDealIsDeterministicPerState(t *testing.T) {
	a := Apply(testState(), Action{Kind: Call})
	b := Apply(testState(), Action{Kind: Call})

	if len(a.Community) != len(b.Community) {
		t.Fatalf("community lengths differ: %d vs %d", len(a.Community), len(b.Community))
	}
	for i := range a.Community {
		if a.Community[i] != b.Community[i] {
			t.Errorf("board differs at %d: %v vs %v", i, a.Community[i], b.Community[i])
		}
	}
}

func TestDealNeverDuplicatesCards(t *testing.T) {
	s := testState()
	for !s.Terminal() {
		s = Apply(s, Action{Kind: Call})
	}

	if err := s.Validate(); err != nil {
		t.Errorf("fully dealt state invalid: %v", err)
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	s := &State{
		Hole:       cards("Ah", "Ah"),
		Pot:        10,
		Stack:      100,
		NumPlayers: 2,
	}
	if err := s.Validate(); err == nil {
		t.Error("expected duplicate card error")
	}
}

func TestValidateRejectsBadShapes(t *testing.T) {
	cases := []*State{
		{Hole: cards("Ah", "Kh", "Qh"), NumPlayers: 2},
		{Hole: cards("Ah"), Pot: -1, NumPlayers: 2},
		{Hole: cards("Ah"), Stack: -1, NumPlayers: 2},
		{Hole: cards("Ah"), NumPlayers: 1},
		{Hole: cards("Ah"), NumPlayers: 2, Round: 7},
	}
	for i, s := range cases {
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
