package poker

// Draw-potential codes. Both scales are ordinal: a higher code always
// means strictly more potential.
const (
	SuitNone     uint8 = 0 // no two cards share a suit
	SuitedHole   uint8 = 1 // two of a suit
	SuitBackdoor uint8 = 2 // three of a suit
	SuitDraw     uint8 = 3 // four of a suit
	SuitMade     uint8 = 4 // made flush

	StraightNone    uint8 = 0
	StraightGutshot uint8 = 1 // loose proxy: three or more distinct ranks
	StraightOpen    uint8 = 3 // four in a row
	StraightMade    uint8 = 4
)

// SuitPotential codes how far the combined cards are toward a flush.
func SuitPotential(hole, community []Card) uint8 {
	all := make([]Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)

	max := 0
	for _, n := range suitCounts(all) {
		if n > max {
			max = n
		}
	}

	switch {
	case max >= 5:
		return SuitMade
	case max == 4:
		return SuitDraw
	case max == 3:
		return SuitBackdoor
	case max == 2:
		return SuitedHole
	default:
		return SuitNone
	}
}

// StraightPotential codes how far the combined cards are toward a
// straight. The gutshot code is a deliberately loose proxy; the open-
// ended code requires four consecutive distinct ranks.
func StraightPotential(hole, community []Card) uint8 {
	all := make([]Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)

	if hasStraight(all) {
		return StraightMade
	}

	ranks := distinctRanks(all)
	for i := 0; i+4 <= len(ranks); i++ {
		if ranks[i+1] == ranks[i]+1 && ranks[i+2] == ranks[i]+2 && ranks[i+3] == ranks[i]+3 {
			return StraightOpen
		}
	}

	if len(ranks) >= 3 {
		return StraightGutshot
	}

	return StraightNone
}
