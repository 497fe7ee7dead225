package game

import (
	"strings"

	"github.com/lox/twentyone/internal/deck"
)

// HandCard is a card dealt into a hand together with its visibility. A
// hidden card contributes nothing to the hand's score until revealed.
type HandCard struct {
	Card   deck.Card `json:"card"`
	Hidden bool      `json:"hidden"`
}

// Hand is an ordered sequence of cards belonging to one side of the table.
// Cards are appended hidden and flipped exactly once; they are never removed
// within a round.
type Hand struct {
	cards []HandCard
}

// Append adds a card face down and returns its index.
func (h *Hand) Append(card deck.Card) int {
	h.cards = append(h.cards, HandCard{Card: card, Hidden: true})
	return len(h.cards) - 1
}

// Reveal flips the card at index face up. Revealing an already-visible card
// is a no-op.
func (h *Hand) Reveal(index int) {
	if index < 0 || index >= len(h.cards) {
		return
	}
	h.cards[index].Hidden = false
}

// Cards returns a copy of the hand's cards in deal order.
func (h *Hand) Cards() []HandCard {
	out := make([]HandCard, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the total number of cards dealt into the hand.
func (h *Hand) Len() int {
	return len(h.cards)
}

// RevealedCount returns how many cards are face up.
func (h *Hand) RevealedCount() int {
	n := 0
	for _, c := range h.cards {
		if !c.Hidden {
			n++
		}
	}
	return n
}

// RevealedRanks returns the ranks of the face-up cards, in deal order.
func (h *Hand) RevealedRanks() []deck.Rank {
	ranks := make([]deck.Rank, 0, len(h.cards))
	for _, c := range h.cards {
		if !c.Hidden {
			ranks = append(ranks, c.Card.Rank)
		}
	}
	return ranks
}

// Score evaluates the hand's revealed cards. ok is false while nothing is
// revealed.
func (h *Hand) Score() (int, bool) {
	return Score(h.RevealedRanks())
}

// Clear empties the hand for the next round.
func (h *Hand) Clear() {
	h.cards = h.cards[:0]
}

// String renders the hand for logs, hidden cards as "??".
func (h *Hand) String() string {
	parts := make([]string, len(h.cards))
	for i, c := range h.cards {
		if c.Hidden {
			parts[i] = "??"
		} else {
			parts[i] = c.Card.String()
		}
	}
	return strings.Join(parts, " ")
}
