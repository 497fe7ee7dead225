package game

// Settle applies a round's outcome to a chip balance: a win pays even money
// on the bet, a loss forfeits it, a push leaves the balance untouched.
// Settle does not validate the bet against the balance; that check happens
// at bet placement and at double-down time.
func Settle(balance, bet int, outcome Outcome) int {
	switch outcome {
	case OutcomeWin:
		return balance + bet
	case OutcomeLose:
		return balance - bet
	default:
		return balance
	}
}
