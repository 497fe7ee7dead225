package deck

import (
	"fmt"
	"strings"
)

// ParseCards parses compact card notation like "AsKhTd" into cards. Ranks
// are 2-9, T, J, Q, K, A; suits are s, h, d, c. Case insensitive.
func ParseCards(input string) ([]Card, error) {
	s := strings.ReplaceAll(input, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("card string must be pairs of rank+suit, got %q", input)
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		card, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// ParseCard parses a single two-character card like "Ah".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("card must be two characters, got %q", s)
	}

	var rank Rank
	switch strings.ToUpper(s[:1]) {
	case "2":
		rank = Two
	case "3":
		rank = Three
	case "4":
		rank = Four
	case "5":
		rank = Five
	case "6":
		rank = Six
	case "7":
		rank = Seven
	case "8":
		rank = Eight
	case "9":
		rank = Nine
	case "T":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	case "A":
		rank = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank %q", s[:1])
	}

	var suit Suit
	switch strings.ToLower(s[1:2]) {
	case "s":
		suit = Spades
	case "h":
		suit = Hearts
	case "d":
		suit = Diamonds
	case "c":
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit %q", s[1:2])
	}

	return NewCard(suit, rank), nil
}

// MustParseCards is ParseCards that panics on error, for tests and fixtures.
func MustParseCards(input string) []Card {
	cards, err := ParseCards(input)
	if err != nil {
		panic(err)
	}
	return cards
}
