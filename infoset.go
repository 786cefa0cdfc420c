package rtpa

import (
	"strconv"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// InfoSet is the abstracted, player-observable identity of a game
// state: states that differ only in ways the abstraction discards are
// solved as one. It is produced by an Abstractor and used only as a
// strategy table key.
type InfoSet struct {
	// CardHash combines the hand-strength bucket with the suit- and
	// straight-potential codes, so two hands land in the same slot
	// only when all three agree.
	CardHash uint64
	Round    poker.Round
	// PotCode is the pot-to-stack ratio bucketed into [0, 10], with
	// 255 marking an effectively all-in stack.
	PotCode  uint8
	Position uint8
}

// Key returns the string form used to index the strategy table. The
// components stay visible through the encoding so exported tables
// remain inspectable by hand.
func (is InfoSet) Key() string {
	buf := make([]byte, 0, 28)
	buf = strconv.AppendUint(buf, is.CardHash, 16)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, uint64(is.Round), 10)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, uint64(is.PotCode), 10)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, uint64(is.Position), 10)
	return string(buf)
}

// Abstractor reduces concrete game states to InfoSets. The only
// configuration is the number of hand-strength buckets; all other
// codes are fixed. Abstractors are stateless and safe for concurrent
// use.
type Abstractor struct {
	buckets int
}

// NewAbstractor creates an Abstractor with the given number of
// hand-strength buckets. If buckets <= 0, DefaultBuckets is used.
func NewAbstractor(buckets int) *Abstractor {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	return &Abstractor{buckets: buckets}
}

// InfoSet abstracts a state down to its InfoSet. It is a total
// function: degenerate states (no hole cards, zero stack) map to valid
// keys rather than failing.
func (a *Abstractor) InfoSet(s *poker.State) InfoSet {
	strength := poker.HandStrength(s.Hole, s.Community)
	bucket := int(strength * float64(a.buckets))
	if bucket >= a.buckets {
		bucket = a.buckets - 1
	}

	suit := poker.SuitPotential(s.Hole, s.Community)
	straight := poker.StraightPotential(s.Hole, s.Community)

	return InfoSet{
		CardHash: cardHash(uint64(bucket), uint64(suit), uint64(straight)),
		Round:    s.Round,
		PotCode:  potCode(s.Pot, s.Stack),
		Position: uint8(s.Position % 10),
	}
}

// Key is shorthand for InfoSet(s).Key().
func (a *Abstractor) Key(s *poker.State) string {
	return a.InfoSet(s).Key()
}

func potCode(pot, stack float64) uint8 {
	if stack <= 0 {
		return 255
	}
	code := int(pot / stack * 10)
	if code > 10 {
		code = 10
	}
	return uint8(code)
}

// cardHash folds the abstraction triple FNV-style into a single value.
// The full triple participates, so distinct (bucket, suit, straight)
// combinations collide only by 64-bit accident.
func cardHash(vals ...uint64) uint64 {
	h := uint64(14695981039346656037)
	for _, v := range vals {
		h ^= v
		h *= 1099511628211
	}
	return h
}
