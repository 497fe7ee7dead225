package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/twentyone/internal/randutil"
)

func TestMultiDeckShoeDealsEveryCardOnce(t *testing.T) {
	shoe := NewMultiDeckShoe(1, randutil.New(42))
	require.Equal(t, 52, shoe.CardsRemaining())

	seen := make(map[Card]int)
	for i := 0; i < 52; i++ {
		seen[shoe.NextCard(PlayerSide)]++
	}

	assert.Len(t, seen, 52)
	for card, count := range seen {
		assert.Equal(t, 1, count, "card %s dealt %d times", card, count)
	}
	assert.Equal(t, 0, shoe.CardsRemaining())
}

func TestMultiDeckShoeReshufflesOnExhaustion(t *testing.T) {
	shoe := NewMultiDeckShoe(1, randutil.New(7))
	for i := 0; i < 52; i++ {
		shoe.NextCard(PlayerSide)
	}

	// The 53rd draw must still succeed; NextCard is total.
	card := shoe.NextCard(DealerSide)
	assert.GreaterOrEqual(t, int(card.Rank), int(Two))
	assert.Equal(t, 51, shoe.CardsRemaining())
}

func TestMultiDeckShoeDeterministicWithSeed(t *testing.T) {
	a := NewMultiDeckShoe(2, randutil.New(99))
	b := NewMultiDeckShoe(2, randutil.New(99))

	for i := 0; i < 104; i++ {
		require.Equal(t, a.NextCard(PlayerSide), b.NextCard(PlayerSide), "draw %d", i)
	}
}

func TestMultiDeckShoeSize(t *testing.T) {
	assert.Equal(t, 312, NewMultiDeckShoe(6, randutil.New(1)).CardsRemaining())
	// Degenerate deck counts fall back to a single deck.
	assert.Equal(t, 52, NewMultiDeckShoe(0, randutil.New(1)).CardsRemaining())
}

func TestFixedShoeCyclesPerSide(t *testing.T) {
	player := MustParseCards("AhKs")
	dealer := MustParseCards("Td7c2h")
	shoe := NewFixedShoe(player, dealer)

	// Player sequence wraps independently of the dealer's.
	assert.Equal(t, player[0], shoe.NextCard(PlayerSide))
	assert.Equal(t, player[1], shoe.NextCard(PlayerSide))
	assert.Equal(t, player[0], shoe.NextCard(PlayerSide))

	assert.Equal(t, dealer[0], shoe.NextCard(DealerSide))
	assert.Equal(t, dealer[1], shoe.NextCard(DealerSide))
	assert.Equal(t, dealer[2], shoe.NextCard(DealerSide))
	assert.Equal(t, dealer[0], shoe.NextCard(DealerSide))
}

func TestSideString(t *testing.T) {
	assert.Equal(t, "player", PlayerSide.String())
	assert.Equal(t, "dealer", DealerSide.String())
}
