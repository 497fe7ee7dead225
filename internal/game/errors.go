package game

import "errors"

var (
	// ErrIllegalAction is returned when an action arrives outside its legal
	// state or while a prior action's reveal sequence is still settling.
	// Rejecting explicitly lets the transport give the player feedback.
	ErrIllegalAction = errors.New("game: action not legal in current state")

	// ErrInsufficientChips is returned when a bet (or a doubled bet) exceeds
	// the session's chip balance. Nothing is mutated.
	ErrInsufficientChips = errors.New("game: insufficient chips")

	// ErrInvalidBet is returned for a non-positive bet amount.
	ErrInvalidBet = errors.New("game: bet must be positive")
)
