package game

import "math"

const (
	// StartingChips is the balance a fresh session begins with.
	StartingChips = 10000

	// HouseBankroll is the dealer's effectively unlimited balance. It is
	// never debited; it exists so displays have something to show.
	HouseBankroll = math.MaxInt32
)

// Session is the player aggregate a round operates on: an authenticated
// identity plus the chip balance that persists across rounds. It is owned by
// exactly one Round at a time and mutated only at settlement.
//
// PlayerID is the account store ID for authenticated players, so settled
// balances can be written back. Guests have no PlayerID.
type Session struct {
	PlayerID string
	Name     string
	Chips    int
}

// NewSession creates a session with the standard starting balance.
func NewSession(name string) *Session {
	return &Session{Name: name, Chips: StartingChips}
}

// NewSessionWithChips creates a session with a carried-over balance, e.g.
// one restored from the account store.
func NewSessionWithChips(name string, chips int) *Session {
	return &Session{Name: name, Chips: chips}
}
