package game

import "github.com/lox/twentyone/internal/deck"

// Score computes the blackjack point total for a sequence of revealed ranks.
// Numeric ranks count face value, J/Q/K count 10, and each ace counts 11
// unless that would push the total past 21 with the remaining aces still
// presumed high, in which case it counts 1. The result is order independent
// and may exceed 21; bust detection is the round's job, not the evaluator's.
//
// ok is false when no ranks are revealed, meaning there is no score to show.
func Score(ranks []deck.Rank) (total int, ok bool) {
	if len(ranks) == 0 {
		return 0, false
	}

	aces := 0
	for _, r := range ranks {
		switch {
		case r == deck.Ace:
			aces++
		case r >= deck.Ten:
			total += 10
		default:
			total += int(r)
		}
	}

	for i := 0; i < aces; i++ {
		remaining := aces - i - 1
		if total+11+remaining*11 <= 21 {
			total += 11
		} else {
			total++
		}
	}

	return total, true
}
