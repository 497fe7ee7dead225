package deck

import rand "math/rand/v2"

// Side identifies which hand a drawn card is destined for. A real shoe
// doesn't care, but the fixed shoe keeps an independent sequence per side so
// scripted deals stay readable.
type Side int

const (
	PlayerSide Side = iota
	DealerSide
)

// String returns the string representation of a side
func (s Side) String() string {
	switch s {
	case PlayerSide:
		return "player"
	case DealerSide:
		return "dealer"
	default:
		return "?"
	}
}

// Shoe supplies the next card to deal. Implementations must be total:
// NextCard never fails, a shoe that runs out replenishes itself.
type Shoe interface {
	NextCard(side Side) Card
	CardsRemaining() int
}

// MultiDeckShoe is a shuffled shoe built from one or more standard 52-card
// decks. Cards are dealt without repetition until the shoe is exhausted,
// then it reshuffles in place.
type MultiDeckShoe struct {
	cards []Card
	next  int
	rng   *rand.Rand
}

// NewMultiDeckShoe creates a shuffled shoe of decks standard decks using the
// provided RNG. A nil RNG or decks < 1 are programmer errors surfaced as a
// single-deck shoe with the global source.
func NewMultiDeckShoe(decks int, rng *rand.Rand) *MultiDeckShoe {
	if decks < 1 {
		decks = 1
	}

	s := &MultiDeckShoe{
		cards: make([]Card, 0, decks*52),
		rng:   rng,
	}
	for d := 0; d < decks; d++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				s.cards = append(s.cards, NewCard(suit, rank))
			}
		}
	}

	s.Shuffle()
	return s
}

// Shuffle reshuffles the entire shoe using Fisher-Yates and rewinds the
// dealing cursor.
func (s *MultiDeckShoe) Shuffle() {
	s.next = 0
	for i := len(s.cards) - 1; i > 0; i-- {
		var j int
		if s.rng != nil {
			j = s.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// NextCard deals the next card, reshuffling first if the shoe is empty.
// The side is ignored; every hand draws from the same shoe.
func (s *MultiDeckShoe) NextCard(_ Side) Card {
	if s.next >= len(s.cards) {
		s.Shuffle()
	}
	card := s.cards[s.next]
	s.next++
	return card
}

// CardsRemaining returns the number of undealt cards before the next
// reshuffle.
func (s *MultiDeckShoe) CardsRemaining() int {
	return len(s.cards) - s.next
}

// FixedShoe cycles through a fixed sequence of cards per side, wrapping on
// exhaustion. It is the seam tests use to script exact deals.
type FixedShoe struct {
	player []Card
	dealer []Card
	pNext  int
	dNext  int
}

// NewFixedShoe creates a fixed shoe from per-side sequences. Both sequences
// must be non-empty.
func NewFixedShoe(player, dealer []Card) *FixedShoe {
	return &FixedShoe{
		player: append([]Card(nil), player...),
		dealer: append([]Card(nil), dealer...),
	}
}

// NextCard returns the next card in the side's sequence, wrapping when the
// sequence is exhausted.
func (s *FixedShoe) NextCard(side Side) Card {
	if side == DealerSide {
		card := s.dealer[s.dNext%len(s.dealer)]
		s.dNext++
		return card
	}
	card := s.player[s.pNext%len(s.player)]
	s.pNext++
	return card
}

// CardsRemaining reports the cards left before either side wraps.
func (s *FixedShoe) CardsRemaining() int {
	remaining := 0
	if n := len(s.player) - s.pNext; n > 0 {
		remaining += n
	}
	if n := len(s.dealer) - s.dNext; n > 0 {
		remaining += n
	}
	return remaining
}
