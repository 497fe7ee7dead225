package tui

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/server"
)

// fakeClient records actions instead of talking to a server
type fakeClient struct {
	messages chan *server.Message
	calls    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: make(chan *server.Message, 16)}
}

func (f *fakeClient) Login(playerName, token string) error {
	f.calls = append(f.calls, "login:"+playerName)
	return nil
}
func (f *fakeClient) PlaceBet(amount int) error {
	f.calls = append(f.calls, "place_bet")
	return nil
}
func (f *fakeClient) Hit() error    { f.calls = append(f.calls, "hit"); return nil }
func (f *fakeClient) Stand() error  { f.calls = append(f.calls, "stand"); return nil }
func (f *fakeClient) Double() error { f.calls = append(f.calls, "double"); return nil }
func (f *fakeClient) Reset() error  { f.calls = append(f.calls, "reset"); return nil }

func (f *fakeClient) Messages() <-chan *server.Message { return f.messages }

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func message(t *testing.T, messageType server.MessageType, data interface{}) *server.Message {
	t.Helper()
	msg, err := server.NewMessage(messageType, data)
	require.NoError(t, err)
	return msg
}

func TestApplyLoginResponse(t *testing.T) {
	m := New(newFakeClient(), testLogger())

	m.apply(message(t, server.MessageTypeLoginResponse, server.LoginResponseData{
		Success: true,
		Name:    "drew",
		Chips:   10000,
	}))

	assert.Equal(t, screenTable, m.screen)
	assert.Equal(t, "drew", m.playerName)
	assert.Equal(t, 10000, m.chips)
}

func TestApplyFailedLoginReturnsToLoginScreen(t *testing.T) {
	m := New(newFakeClient(), testLogger())
	m.screen = screenTable

	m.apply(message(t, server.MessageTypeLoginResponse, server.LoginResponseData{
		Success: false,
		Error:   "login rejected",
	}))

	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, "login rejected", m.status)
}

func TestApplyCardFlow(t *testing.T) {
	m := New(newFakeClient(), testLogger())

	m.apply(message(t, server.MessageTypeCardDealt, server.CardDealtData{
		Side: "dealer", Index: 0, Hidden: true,
	}))
	require.Len(t, m.dealer.cards, 1)
	assert.True(t, m.dealer.cards[0].hidden)

	card := deck.MustParseCards("Td")[0]
	m.apply(message(t, server.MessageTypeCardRevealed, server.CardRevealedData{
		Side: "dealer", Index: 0, Card: card,
	}))
	assert.False(t, m.dealer.cards[0].hidden)
	assert.Equal(t, card, m.dealer.cards[0].card)

	m.apply(message(t, server.MessageTypeScoreUpdated, server.ScoreUpdatedData{
		Side: "dealer", Score: 10, HasScore: true,
	}))
	assert.Equal(t, 10, m.dealer.score)
	assert.True(t, m.dealer.hasScore)
}

func TestApplyRoundSettledUpdatesChipsAndState(t *testing.T) {
	m := New(newFakeClient(), testLogger())
	m.roundState = "dealer_turn"

	m.apply(message(t, server.MessageTypeRoundSettled, server.RoundSettledData{
		Outcome: "win",
		Reason:  "higher_total",
		Balance: 10100,
	}))

	assert.Equal(t, "result", m.roundState)
	assert.Equal(t, 10100, m.chips)
	require.NotNil(t, m.result)
	assert.Equal(t, "win", m.result.Outcome)
}

func TestApplyStateChangedToDealingClearsTheTable(t *testing.T) {
	m := New(newFakeClient(), testLogger())
	m.blackjack = true
	m.player.cards = []cardView{{hidden: true}}

	m.apply(message(t, server.MessageTypeStateChanged, server.StateChangedData{
		From: "ready", To: "dealing",
	}))

	assert.Equal(t, "dealing", m.roundState)
	assert.False(t, m.blackjack)
	assert.Empty(t, m.player.cards)
}

func TestActionKeysDuringPlayerTurn(t *testing.T) {
	client := newFakeClient()
	m := New(client, testLogger())
	m.screen = screenTable
	m.roundState = "player_turn"

	for _, key := range []string{"h", "s", "d"} {
		_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	}

	assert.Equal(t, []string{"hit", "stand", "double"}, client.calls)
}

func TestBetEntryPlacesBet(t *testing.T) {
	client := newFakeClient()
	m := New(client, testLogger())
	m.screen = screenTable
	m.roundState = "ready"
	m.betInput.SetValue("100")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"place_bet"}, client.calls)
	assert.Empty(t, m.betInput.Value())
}

func TestBetEntryRejectsNonNumbers(t *testing.T) {
	client := newFakeClient()
	m := New(client, testLogger())
	m.screen = screenTable
	m.roundState = "ready"
	m.betInput.SetValue("all of it")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, client.calls)
	assert.Equal(t, "enter a positive bet", m.status)
}

func TestGuestLoginFromNameField(t *testing.T) {
	client := newFakeClient()
	m := New(client, testLogger(), WithPlayerName("drew"))

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"login:drew"}, client.calls)
	assert.Equal(t, screenTable, m.screen)
}

func TestHiddenCardsRenderAsCardBacks(t *testing.T) {
	m := New(newFakeClient(), testLogger())
	m.dealer = handView{cards: []cardView{
		{card: deck.MustParseCards("Td")[0]},
		{hidden: true},
	}}

	out := m.renderHand(m.dealer)
	assert.Contains(t, out, "??")
	assert.Contains(t, out, "10♦")
}
