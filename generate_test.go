package rtpa

import (
	"testing"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

func TestGeneratorRoundMix(t *testing.T) {
	g := NewSeededGenerator(1)
	states := g.States(100)
	if len(states) != 100 {
		t.Fatalf("generated %d states, want 100", len(states))
	}

	byRound := make(map[poker.Round]int)
	for _, s := range states {
		byRound[s.Round]++
	}
	want := map[poker.Round]int{
		poker.Preflop: 40,
		poker.Flop:    30,
		poker.Turn:    20,
		poker.River:   10,
	}
	for round, n := range want {
		if byRound[round] != n {
			t.Errorf("round %v: %d states, want %d", round, byRound[round], n)
		}
	}
}

func TestGeneratorStatesAreValid(t *testing.T) {
	g := NewSeededGenerator(2)
	for _, s := range g.States(200) {
		if err := s.Validate(); err != nil {
			t.Fatalf("generated invalid state: %v", err)
		}
		if len(s.Actions) == 0 {
			t.Fatal("generated state with no legal actions")
		}
		if len(s.Hole) != 2 {
			t.Fatalf("generated %d hole cards", len(s.Hole))
		}

		var wantBoard int
		switch s.Round {
		case poker.Flop:
			wantBoard = 3
		case poker.Turn:
			wantBoard = 4
		case poker.River:
			wantBoard = 5
		}
		if len(s.Community) != wantBoard {
			t.Fatalf("round %v with %d community cards", s.Round, len(s.Community))
		}
	}
}

func TestGeneratorBounds(t *testing.T) {
	g := NewSeededGenerator(3)
	for _, s := range g.States(200) {
		if s.Stack < 50 || s.Stack > 200 {
			t.Errorf("stack %v outside [50, 200]", s.Stack)
		}
		if s.Pot < 5 || s.Pot > 50 {
			t.Errorf("pot %v outside [5, 50]", s.Pot)
		}
		if s.Position < 0 || s.Position > 8 {
			t.Errorf("position %d outside [0, 8]", s.Position)
		}
		if s.NumPlayers < 2 || s.NumPlayers > 9 {
			t.Errorf("players %d outside [2, 9]", s.NumPlayers)
		}
	}
}

func TestGeneratorSeedReproducible(t *testing.T) {
	a := NewSeededGenerator(42).States(20)
	b := NewSeededGenerator(42).States(20)
	for i := range a {
		if a[i].Round != b[i].Round || a[i].Pot != b[i].Pot || a[i].Hole[0] != b[i].Hole[0] {
			t.Fatalf("state %d diverged between identically seeded generators", i)
		}
	}
}
