package rtpa

import (
	"math/rand"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// Generator builds synthetic training pools: random hands spread
// across betting rounds with realistic pot, stack, and seat values.
// It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded from the global source.
func NewGenerator() *Generator {
	return NewSeededGenerator(rand.Int63())
}

// NewSeededGenerator creates a Generator with a fixed seed, for
// reproducible pools.
func NewSeededGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// States generates count states mixed 40% preflop, 30% flop, 20% turn,
// and the remainder river, shuffled so batches drawn from the front do
// not skew toward one street.
func (g *Generator) States(count int) []*poker.State {
	preflop := int(float64(count) * 0.4)
	flop := int(float64(count) * 0.3)
	turn := int(float64(count) * 0.2)
	river := count - preflop - flop - turn

	states := make([]*poker.State, 0, count)
	for i := 0; i < preflop; i++ {
		states = append(states, g.state(poker.Preflop))
	}
	for i := 0; i < flop; i++ {
		states = append(states, g.state(poker.Flop))
	}
	for i := 0; i < turn; i++ {
		states = append(states, g.state(poker.Turn))
	}
	for i := 0; i < river; i++ {
		states = append(states, g.state(poker.River))
	}

	g.rng.Shuffle(len(states), func(i, j int) {
		states[i], states[j] = states[j], states[i]
	})
	return states
}

// state deals hole and community cards for the round from one shuffled
// deck, so a generated state never holds duplicate cards.
func (g *Generator) state(round poker.Round) *poker.State {
	deck := poker.NewDeck()
	g.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	var boardSize int
	switch round {
	case poker.Flop:
		boardSize = 3
	case poker.Turn:
		boardSize = 4
	case poker.River:
		boardSize = 5
	}

	stack := 50 + g.rng.Float64()*150
	pot := 5 + g.rng.Float64()*45

	s := &poker.State{
		Hole:       append([]poker.Card(nil), deck[:2]...),
		Community:  append([]poker.Card(nil), deck[2:2+boardSize]...),
		Pot:        pot,
		Stack:      stack,
		Position:   g.rng.Intn(9),
		NumPlayers: 2 + g.rng.Intn(8),
		Round:      round,
	}

	if stack > pot {
		s.Actions = []poker.Action{
			{Kind: poker.Fold},
			{Kind: poker.Call},
			{Kind: poker.Raise, Amount: pot * 0.5},
			{Kind: poker.Raise, Amount: pot},
		}
	} else {
		s.Actions = []poker.Action{
			{Kind: poker.Fold},
			{Kind: poker.Call},
			{Kind: poker.AllIn},
		}
	}
	return s
}
