package poker

// HandStrength estimates hand strength in [0,1]. Preflop uses a
// closed-form table over the two hole cards; postflop assigns a fixed
// band per made-hand category. An empty hole yields 0 and is not an
// error; so does a community count that matches no street.
func HandStrength(hole, community []Card) float64 {
	if len(hole) == 0 {
		return 0
	}

	var strength float64
	switch len(community) {
	case 0:
		strength = preflopStrength(hole)
	case 3, 4, 5:
		all := make([]Card, 0, len(hole)+len(community))
		all = append(all, hole...)
		all = append(all, community...)
		strength = postflopStrength(all)
	default:
		return 0
	}

	return clamp01(strength)
}

func preflopStrength(hole []Card) float64 {
	if len(hole) < 2 {
		return 0
	}

	high, low := hole[0].Rank, hole[1].Rank
	if low > high {
		high, low = low, high
	}

	if high == low {
		return pairStrength(high)
	}

	strength := float64(high-2)/12.0*0.6 + float64(low-2)/12.0*0.3

	if hole[0].Suit == hole[1].Suit {
		strength += 0.1
	}
	if high-low <= 2 {
		strength += 0.05 // connectors
	}
	if high >= Ten && low >= Ten {
		strength += 0.1 // broadway
	}

	return strength
}

func pairStrength(rank Rank) float64 {
	switch rank {
	case Ace:
		return 0.95
	case King:
		return 0.90
	case Queen:
		return 0.85
	case Jack:
		return 0.75
	case Ten:
		return 0.65
	case Nine:
		return 0.55
	case Eight:
		return 0.45
	case Seven:
		return 0.35
	case Six:
		return 0.25
	default:
		return 0.15 // small pairs
	}
}

// postflopStrength maps the made-hand category to a fixed band. High
// card is the only category scored by rank rather than a band.
func postflopStrength(all []Card) float64 {
	switch Classify(all) {
	case Quads:
		return 0.95
	case FullHouse:
		return 0.90
	case Flush:
		return 0.85
	case Straight:
		return 0.80
	case Trips:
		return 0.75
	case TwoPair:
		return 0.65
	case OnePair:
		return 0.45
	default:
		return float64(topRank(all)-2) / 12.0 * 0.3
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
