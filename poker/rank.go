package poker

import (
	"fmt"
	"sort"
)

// HandClass is the made-hand category, ordered weakest to strongest.
type HandClass int8

const (
	HighCard HandClass = iota
	OnePair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
)

var handClassStr = [...]string{
	"high card",
	"one pair",
	"two pair",
	"three of a kind",
	"straight",
	"flush",
	"full house",
	"four of a kind",
}

func (h HandClass) String() string {
	if h < 0 || int(h) >= len(handClassStr) {
		return fmt.Sprintf("HandClass(%d)", int(h))
	}
	return handClassStr[h]
}

// Classify determines the strongest made-hand category present in the
// given cards (hole plus community, 5-7 cards in normal play).
func Classify(cards []Card) HandClass {
	ranks := rankCounts(cards)
	suits := suitCounts(cards)

	var pairs, trips, quads int
	for _, n := range ranks {
		switch n {
		case 2:
			pairs++
		case 3:
			trips++
		case 4:
			quads++
		}
	}

	switch {
	case quads > 0:
		return Quads
	case trips > 0 && pairs > 0:
		return FullHouse
	case hasFlush(suits):
		return Flush
	case hasStraight(cards):
		return Straight
	case trips > 0:
		return Trips
	case pairs >= 2:
		return TwoPair
	case pairs == 1:
		return OnePair
	default:
		return HighCard
	}
}

func rankCounts(cards []Card) [15]int {
	var counts [15]int
	for _, c := range cards {
		counts[c.Rank]++
	}
	return counts
}

func suitCounts(cards []Card) [4]int {
	var counts [4]int
	for _, c := range cards {
		counts[c.Suit]++
	}
	return counts
}

func hasFlush(suits [4]int) bool {
	for _, n := range suits {
		if n >= 5 {
			return true
		}
	}
	return false
}

// hasStraight detects five consecutive distinct ranks, including the
// wheel (A-2-3-4-5).
func hasStraight(cards []Card) bool {
	ranks := distinctRanks(cards)

	for i := 0; i+5 <= len(ranks); i++ {
		consecutive := true
		for j := 1; j < 5; j++ {
			if ranks[i+j] != ranks[i+j-1]+1 {
				consecutive = false
				break
			}
		}
		if consecutive {
			return true
		}
	}

	return containsRanks(ranks, Ace, Two, Three, Four, Five)
}

// distinctRanks returns the sorted set of ranks present.
func distinctRanks(cards []Card) []Rank {
	var seen [15]bool
	for _, c := range cards {
		seen[c.Rank] = true
	}

	ranks := make([]Rank, 0, len(cards))
	for r := Two; r <= Ace; r++ {
		if seen[r] {
			ranks = append(ranks, r)
		}
	}
	return ranks
}

func containsRanks(sorted []Rank, want ...Rank) bool {
	for _, w := range want {
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= w })
		if i == len(sorted) || sorted[i] != w {
			return false
		}
	}
	return true
}

func topRank(cards []Card) Rank {
	top := Two
	for _, c := range cards {
		if c.Rank > top {
			top = c.Rank
		}
	}
	return top
}
