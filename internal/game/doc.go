// Package game implements the blackjack round engine: hand scoring, the
// round state machine (betting, dealing, player turn, dealer auto-play,
// settlement), and chip payout. The engine is pure domain logic; transports
// and rendering subscribe to its event bus.
package game
