// Package poker implements the game primitives used by the solver:
// cards, betting state, actions, and the heuristic hand evaluator.
package poker

import (
	"github.com/pkg/errors"
)

// Rank of a card: 2-14, where 11=J, 12=Q, 13=K, 14=A.
type Rank int8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Suit of a card: 0-3.
type Suit int8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var rankChars = "23456789TJQKA"
var suitChars = "cdhs"

// Card is an immutable rank/suit pair.
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard validates the rank and suit ranges.
func NewCard(rank Rank, suit Suit) (Card, error) {
	c := Card{Rank: rank, Suit: suit}
	if !c.Valid() {
		return Card{}, errors.Errorf("invalid card: rank=%d suit=%d", rank, suit)
	}
	return c, nil
}

// ParseCard parses two-character notation like "Ah" or "Td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, errors.Errorf("invalid card %q: must be 2 characters", s)
	}

	var c Card
	switch {
	case s[0] >= '2' && s[0] <= '9':
		c.Rank = Rank(s[0] - '0')
	case s[0] == 'T':
		c.Rank = Ten
	case s[0] == 'J':
		c.Rank = Jack
	case s[0] == 'Q':
		c.Rank = Queen
	case s[0] == 'K':
		c.Rank = King
	case s[0] == 'A':
		c.Rank = Ace
	default:
		return Card{}, errors.Errorf("invalid card %q: unknown rank %q", s, s[0])
	}

	switch s[1] {
	case 'c':
		c.Suit = Clubs
	case 'd':
		c.Suit = Diamonds
	case 'h':
		c.Suit = Hearts
	case 's':
		c.Suit = Spades
	default:
		return Card{}, errors.Errorf("invalid card %q: unknown suit %q", s, s[1])
	}

	return c, nil
}

// MustCard is ParseCard that panics on invalid input.
// It is intended for tests and static tables.
func MustCard(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Card) Valid() bool {
	return c.Rank >= Two && c.Rank <= Ace && c.Suit >= Clubs && c.Suit <= Spades
}

// String implements fmt.Stringer, inverse of ParseCard.
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string([]byte{rankChars[c.Rank-Two], suitChars[c.Suit]})
}

// NewDeck returns all 52 cards in rank-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for r := Two; r <= Ace; r++ {
		for s := Clubs; s <= Spades; s++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// remaining returns the deck minus the given cards, in stable order.
func remaining(exclude []Card) []Card {
	var used [52]bool
	for _, c := range exclude {
		used[cardIndex(c)] = true
	}

	deck := make([]Card, 0, 52-len(exclude))
	for r := Two; r <= Ace; r++ {
		for s := Clubs; s <= Spades; s++ {
			c := Card{Rank: r, Suit: s}
			if !used[cardIndex(c)] {
				deck = append(deck, c)
			}
		}
	}
	return deck
}

func cardIndex(c Card) int {
	return int(c.Rank-Two)*4 + int(c.Suit)
}
