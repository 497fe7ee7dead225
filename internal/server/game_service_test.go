package server

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/twentyone/internal/auth"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// stubValidator returns a canned identity or error for every token
type stubValidator struct {
	identity *auth.Identity
	err      error
}

func (v *stubValidator) Validate(ctx context.Context, token string) (*auth.Identity, error) {
	return v.identity, v.err
}

// stubSaver records balances written back to the account store
type stubSaver struct {
	saved map[string]int
	err   error
}

func (s *stubSaver) SaveChips(ctx context.Context, playerID string, chips int) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = map[string]int{}
	}
	s.saved[playerID] = chips
	return nil
}

func TestLoginWithoutTokenGetsGuestSession(t *testing.T) {
	config := DefaultServerConfig()
	service := NewGameService(config, &stubValidator{err: auth.ErrInvalidToken}, testLogger())

	session, err := service.Login(t.Context(), "drew", "")
	require.NoError(t, err)
	assert.Equal(t, "drew", session.Name)
	assert.Equal(t, config.Table.StartingChips, session.Chips)
}

func TestLoginWithValidTokenUsesAccountIdentity(t *testing.T) {
	validator := &stubValidator{identity: &auth.Identity{
		PlayerID: "acct_1234",
		Name:     "casey",
		Chips:    4200,
	}}
	service := NewGameService(DefaultServerConfig(), validator, testLogger())

	session, err := service.Login(t.Context(), "ignored", "token-1")
	require.NoError(t, err)
	assert.Equal(t, "casey", session.Name)
	assert.Equal(t, 4200, session.Chips)
	assert.Equal(t, "acct_1234", session.PlayerID, "account ID is kept for balance writes")
}

func TestPersistChipsWritesAuthenticatedBalances(t *testing.T) {
	saver := &stubSaver{}
	service := NewGameService(DefaultServerConfig(), auth.NewNoopValidator(), testLogger(),
		WithChipSaver(saver))

	service.PersistChips(t.Context(), "acct_1234", "casey", 12345)
	assert.Equal(t, map[string]int{"acct_1234": 12345}, saver.saved)

	// Guest sessions have no account to write to.
	service.PersistChips(t.Context(), "", "drew", 999)
	assert.NotContains(t, saver.saved, "")
}

func TestPersistChipsSwallowsSaverErrors(t *testing.T) {
	service := NewGameService(DefaultServerConfig(), auth.NewNoopValidator(), testLogger(),
		WithChipSaver(&stubSaver{err: auth.ErrUnavailable}))

	// Must not panic or surface the error; the session balance stays live.
	service.PersistChips(t.Context(), "acct_1234", "casey", 12345)
}

func TestLoginWithInvalidTokenIsRejected(t *testing.T) {
	service := NewGameService(DefaultServerConfig(), &stubValidator{err: auth.ErrInvalidToken}, testLogger())

	_, err := service.Login(t.Context(), "drew", "bad-token")
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestLoginFailOpenWhenAccountServiceDown(t *testing.T) {
	validator := &stubValidator{err: auth.ErrUnavailable}

	t.Run("fail open allows guest session", func(t *testing.T) {
		config := DefaultServerConfig()
		config.Auth.FailOpen = true
		service := NewGameService(config, validator, testLogger())

		session, err := service.Login(t.Context(), "drew", "token-1")
		require.NoError(t, err)
		assert.Equal(t, config.Table.StartingChips, session.Chips)
	})

	t.Run("fail closed rejects", func(t *testing.T) {
		config := DefaultServerConfig()
		config.Auth.FailOpen = false
		service := NewGameService(config, validator, testLogger())

		_, err := service.Login(t.Context(), "drew", "token-1")
		assert.ErrorIs(t, err, ErrLoginRejected)
	})
}

func TestLoginWithNoopValidator(t *testing.T) {
	service := NewGameService(DefaultServerConfig(), auth.NewNoopValidator(), testLogger())

	session, err := service.Login(t.Context(), "drew", "any-token")
	require.NoError(t, err)
	assert.Equal(t, "drew", session.Name)
}

func TestStartRoundForwardsEventsToSubscriber(t *testing.T) {
	config := DefaultServerConfig()
	config.Table.RevealDelayMs = 0
	service := NewGameService(config, auth.NewNoopValidator(), testLogger(),
		WithShoeFactory(func() deck.Shoe {
			return deck.NewFixedShoe(
				deck.MustParseCards("AhKs"),
				deck.MustParseCards("Td7c"),
			)
		}),
	)

	session, err := service.Login(t.Context(), "drew", "")
	require.NoError(t, err)

	var events []game.Event
	round := service.StartRound(session, game.SubscriberFunc(func(event game.Event) {
		events = append(events, event)
	}))

	require.NoError(t, round.PlaceBet(100))
	require.NoError(t, round.Stand())

	require.Equal(t, game.StateResult, round.State())
	result := round.Result()
	require.NotNil(t, result)
	assert.Equal(t, game.OutcomeWin, result.Outcome)
	assert.NotEmpty(t, events)

	var settled bool
	for _, event := range events {
		if event.EventType() == game.EventTypeRoundSettled {
			settled = true
		}
	}
	assert.True(t, settled, "expected a round settled event")
}

func TestFixedShoeFromConfig(t *testing.T) {
	config := DefaultServerConfig()
	config.Table.FixedShoePlayer = "AhKs"
	config.Table.FixedShoeDealer = "Td7c"
	require.NoError(t, config.Validate())

	service := NewGameService(config, auth.NewNoopValidator(), testLogger())
	shoe := service.newShoe()
	assert.Equal(t, deck.MustParseCards("Ah")[0], shoe.NextCard(deck.PlayerSide))
	assert.Equal(t, deck.MustParseCards("Td")[0], shoe.NextCard(deck.DealerSide))
}

func TestShoeSeedIsDeterministic(t *testing.T) {
	config := DefaultServerConfig()
	config.Table.Decks = 1

	draw := func() deck.Card {
		service := NewGameService(config, auth.NewNoopValidator(), testLogger(), WithShoeSeed(42))
		shoe := service.newShoe()
		return shoe.NextCard(deck.PlayerSide)
	}

	assert.Equal(t, draw(), draw())
}
