package server

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/twentyone/internal/auth"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/randutil"
)

// ErrLoginRejected is returned when a token fails validation.
var ErrLoginRejected = errors.New("login rejected")

// GameService manages login and per-connection rounds. Each connection gets
// its own session, shoe and round; there is no shared table state.
type GameService struct {
	validator     auth.Validator
	saver         auth.Saver
	failOpen      bool
	startingChips int
	decks         int
	newShoe       func() deck.Shoe
	revealDelay   time.Duration
	clock         quartz.Clock
	logger        *log.Logger
}

// GameServiceOption configures a GameService
type GameServiceOption func(*GameService)

// WithShoeFactory overrides how shoes are built for new rounds
func WithShoeFactory(factory func() deck.Shoe) GameServiceOption {
	return func(s *GameService) {
		s.newShoe = factory
	}
}

// WithShoeSeed makes every shoe deterministic from the given seed
func WithShoeSeed(seed int64) GameServiceOption {
	return func(s *GameService) {
		decks := s.decks
		s.newShoe = func() deck.Shoe {
			return deck.NewMultiDeckShoe(decks, randutil.New(seed))
		}
	}
}

// WithChipSaver enables writing settled balances back to the account service
func WithChipSaver(saver auth.Saver) GameServiceOption {
	return func(s *GameService) {
		s.saver = saver
	}
}

// WithServiceClock sets the clock used to pace card reveals
func WithServiceClock(clock quartz.Clock) GameServiceOption {
	return func(s *GameService) {
		s.clock = clock
	}
}

// NewGameService creates a game service from server configuration
func NewGameService(config *ServerConfig, validator auth.Validator, logger *log.Logger, opts ...GameServiceOption) *GameService {
	decks := config.Table.Decks
	service := &GameService{
		validator:     validator,
		failOpen:      config.Auth.FailOpen,
		startingChips: config.Table.StartingChips,
		decks:         decks,
		revealDelay:   time.Duration(config.Table.RevealDelayMs) * time.Millisecond,
		clock:         quartz.NewReal(),
		logger:        logger.WithPrefix("game-service"),
		newShoe: func() deck.Shoe {
			return deck.NewMultiDeckShoe(decks, randutil.New(time.Now().UnixNano()))
		},
	}

	// Scripted deals replace the shuffled shoe; Validate has already
	// checked the card notation.
	if config.Table.FixedShoePlayer != "" {
		player := deck.MustParseCards(config.Table.FixedShoePlayer)
		dealer := deck.MustParseCards(config.Table.FixedShoeDealer)
		service.newShoe = func() deck.Shoe {
			return deck.NewFixedShoe(player, dealer)
		}
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Login resolves a player name and optional account token into a session.
// Tokens are validated against the account service when one is configured.
// When the account service cannot be reached and fail_open is set, the
// player gets a fresh guest session rather than an error.
func (s *GameService) Login(ctx context.Context, name, token string) (*game.Session, error) {
	if token == "" || s.validator == nil {
		return game.NewSessionWithChips(name, s.startingChips), nil
	}

	identity, err := s.validator.Validate(ctx, token)
	switch {
	case err == nil && identity == nil:
		// NoopValidator: accept everyone as a guest
		return game.NewSessionWithChips(name, s.startingChips), nil

	case err == nil:
		if identity.Name != "" {
			name = identity.Name
		}
		chips := identity.Chips
		if chips <= 0 {
			chips = s.startingChips
		}
		s.logger.Info("Authenticated player", "player", name, "chips", chips)
		session := game.NewSessionWithChips(name, chips)
		session.PlayerID = identity.PlayerID
		return session, nil

	case errors.Is(err, auth.ErrUnavailable) && s.failOpen:
		s.logger.Warn("Account service unavailable, allowing guest session", "player", name, "error", err)
		return game.NewSessionWithChips(name, s.startingChips), nil

	default:
		s.logger.Info("Login rejected", "player", name, "error", err)
		return nil, ErrLoginRejected
	}
}

// PersistChips writes a settled balance back to the account store. Guest
// sessions and servers without a configured saver are skipped. Failures are
// logged, not surfaced; the next settlement writes the then-current balance.
func (s *GameService) PersistChips(ctx context.Context, playerID, name string, chips int) {
	if s.saver == nil || playerID == "" {
		return
	}
	if err := s.saver.SaveChips(ctx, playerID, chips); err != nil {
		s.logger.Warn("Failed to persist chips", "player", name, "id", playerID, "error", err)
		return
	}
	s.logger.Debug("Chips persisted", "player", name, "id", playerID, "chips", chips)
}

// StartRound creates a round for a session with a fresh shoe. Events are
// delivered synchronously to the subscriber, so it must not block or call
// back into the round.
func (s *GameService) StartRound(session *game.Session, subscriber game.EventSubscriber) *game.Round {
	bus := game.NewEventBus()
	if subscriber != nil {
		bus.Subscribe(subscriber)
	}

	return game.NewRound(s.logger, s.newShoe(), session,
		game.WithEventBus(bus),
		game.WithClock(s.clock),
		game.WithRevealDelay(s.revealDelay),
	)
}
