package poker

import (
	"fmt"
)

// ActionKind is the variant tag of a betting action.
type ActionKind int8

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

var actionKindStr = [...]string{
	"fold",
	"check",
	"call",
	"bet",
	"raise",
	"allin",
}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionKindStr) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionKindStr[k]
}

// Action is a betting decision. Amount is meaningful only for Bet and
// Raise; it is the number of chips added to the pot.
type Action struct {
	Kind   ActionKind
	Amount float64
}

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a.Kind {
	case Bet, Raise:
		return fmt.Sprintf("%s %.1f", a.Kind, a.Amount)
	default:
		return a.Kind.String()
	}
}

// Sized reports whether the action carries a chip amount.
func (a Action) Sized() bool {
	return a.Kind == Bet || a.Kind == Raise
}
