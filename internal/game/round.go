package game

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/roundid"
)

// State identifies where a round is in its lifecycle. Exactly one state is
// active at a time and it is the single source of truth for which actions
// are legal.
type State int

const (
	StateReady State = iota
	StateDealing
	StatePlayerTurn
	StateDealerTurn
	StateResult
)

// String returns the string representation of a state
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDealing:
		return "dealing"
	case StatePlayerTurn:
		return "player_turn"
	case StateDealerTurn:
		return "dealer_turn"
	case StateResult:
		return "result"
	default:
		return "unknown"
	}
}

// Outcome is the result of a round from the player's perspective.
type Outcome int

const (
	OutcomeWin Outcome = iota
	OutcomeLose
	OutcomePush
)

// String returns the string representation of an outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLose:
		return "lose"
	case OutcomePush:
		return "push"
	default:
		return "unknown"
	}
}

// Reason tags an outcome with why it happened.
type Reason string

const (
	ReasonBust        Reason = "bust"
	ReasonDealerBust  Reason = "dealer_bust"
	ReasonHigherTotal Reason = "higher_total"
	ReasonLowerTotal  Reason = "lower_total"
	ReasonTie         Reason = "tie"
)

// Result is computed once per round at settlement and immutable thereafter.
type Result struct {
	Outcome     Outcome `json:"outcome"`
	Reason      Reason  `json:"reason"`
	PlayerScore int     `json:"playerScore"`
	DealerScore int     `json:"dealerScore"`
	Bet         int     `json:"bet"`
	Balance     int     `json:"balance"`
}

// Round owns one hand of blackjack: both hands, the bet, the state machine,
// and settlement against the session's chips. Actions are serialized by the
// round's lock plus busy flags; a second action arriving while a reveal
// sequence is still settling is rejected with ErrIllegalAction.
type Round struct {
	mu      sync.Mutex
	logger  *log.Logger
	shoe    deck.Shoe
	session *Session
	bus     EventBus

	clock       quartz.Clock
	revealDelay time.Duration

	id           string
	state        State
	bet          int
	doubled      bool
	player       Hand
	dealer       Hand
	result       *Result
	playerActing bool
	dealerActing bool
}

// RoundOption configures a Round.
type RoundOption func(*Round)

// WithEventBus attaches an existing bus instead of a fresh one.
func WithEventBus(bus EventBus) RoundOption {
	return func(r *Round) { r.bus = bus }
}

// WithClock injects the clock used for reveal pacing. Defaults to the real
// clock.
func WithClock(clock quartz.Clock) RoundOption {
	return func(r *Round) { r.clock = clock }
}

// WithRevealDelay sets the pause between reveal steps. The delay is a
// presentation pacing hint only; zero (the default) collapses it entirely
// without changing outcomes.
func WithRevealDelay(d time.Duration) RoundOption {
	return func(r *Round) { r.revealDelay = d }
}

// NewRound creates a round controller for one session against the given
// draw source.
func NewRound(logger *log.Logger, shoe deck.Shoe, session *Session, opts ...RoundOption) *Round {
	r := &Round{
		logger:  logger.WithPrefix("game"),
		shoe:    shoe,
		session: session,
		state:   StateReady,
		clock:   quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = NewEventBus()
	}
	return r
}

// EventBus returns the bus carrying this round's presentation notifications.
func (r *Round) EventBus() EventBus {
	return r.bus
}

// Session returns the session aggregate this round settles against.
func (r *Round) Session() *Session {
	return r.session
}

// State returns the current round state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the settled result, or nil before settlement.
func (r *Round) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return nil
	}
	res := *r.result
	return &res
}

// HandView is a point-in-time copy of one hand for rendering.
type HandView struct {
	Cards    []HandCard `json:"cards"`
	Score    int        `json:"score"`
	HasScore bool       `json:"hasScore"`
}

// Snapshot is a consistent copy of the round for transports and renderers.
type Snapshot struct {
	RoundID string   `json:"roundId"`
	State   State    `json:"state"`
	Bet     int      `json:"bet"`
	Doubled bool     `json:"doubled"`
	Chips   int      `json:"chips"`
	Player  HandView `json:"player"`
	Dealer  HandView `json:"dealer"`
	Result  *Result  `json:"result,omitempty"`
}

// Snapshot returns a consistent copy of the round's visible state.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		RoundID: r.id,
		State:   r.state,
		Bet:     r.bet,
		Doubled: r.doubled,
		Chips:   r.session.Chips,
		Player:  handViewLocked(&r.player),
		Dealer:  handViewLocked(&r.dealer),
	}
	if r.result != nil {
		res := *r.result
		snap.Result = &res
	}
	return snap
}

func handViewLocked(h *Hand) HandView {
	score, ok := h.Score()
	return HandView{Cards: h.Cards(), Score: score, HasScore: ok}
}

// PlaceBet records the bet and deals the opening hands: player, dealer,
// player, dealer, with the dealer's second card left face down. A two-card
// 21 raises the blackjack signal; it does not end the round early.
func (r *Round) PlaceBet(amount int) error {
	r.mu.Lock()
	if r.state != StateReady || r.busyLocked() {
		r.mu.Unlock()
		return ErrIllegalAction
	}
	if amount <= 0 {
		r.mu.Unlock()
		return ErrInvalidBet
	}
	if amount > r.session.Chips {
		r.mu.Unlock()
		return ErrInsufficientChips
	}

	r.id = roundid.Generate()
	r.bet = amount
	r.dealerActing = true // player input is ignored mid-deal
	id := r.id
	r.setStateLocked(StateDealing)
	r.mu.Unlock()

	r.logger.Info("Bet placed", "round", id, "player", r.session.Name, "bet", amount)

	r.draw(deck.PlayerSide, false)
	r.draw(deck.DealerSide, false)
	r.draw(deck.PlayerSide, false)
	r.draw(deck.DealerSide, true) // hole card

	r.mu.Lock()
	score, ok := r.player.Score()
	blackjack := ok && r.player.RevealedCount() == 2 && score == 21
	r.dealerActing = false
	r.setStateLocked(StatePlayerTurn)
	r.mu.Unlock()

	if blackjack {
		r.logger.Info("Blackjack", "round", id, "player", r.session.Name)
		r.bus.Publish(NewBlackjackEvent(id))
	}
	return nil
}

// Hit draws one card to the player. A bust settles the round immediately
// without a dealer turn; otherwise the player keeps acting.
func (r *Round) Hit() error {
	r.mu.Lock()
	if r.state != StatePlayerTurn || r.busyLocked() {
		r.mu.Unlock()
		return ErrIllegalAction
	}
	r.playerActing = true
	r.mu.Unlock()

	r.draw(deck.PlayerSide, false)

	r.mu.Lock()
	score, _ := r.player.Score()
	if score <= 21 {
		r.playerActing = false
		r.mu.Unlock()
		return nil
	}

	// Bust short-circuits straight to settlement; the dealer never plays.
	dealerScore, _ := r.dealer.Score()
	result := r.settleLocked(OutcomeLose, ReasonBust, score, dealerScore)
	r.playerActing = false
	id := r.id
	r.mu.Unlock()

	r.publishSettled(id, result)
	return nil
}

// Stand ends the player's turn and runs the dealer's auto-play.
func (r *Round) Stand() error {
	r.mu.Lock()
	if r.state != StatePlayerTurn || r.busyLocked() {
		r.mu.Unlock()
		return ErrIllegalAction
	}
	playerScore, _ := r.player.Score()
	r.dealerActing = true
	r.setStateLocked(StateDealerTurn)
	r.mu.Unlock()

	r.dealerPlay(playerScore)
	return nil
}

// Double doubles the bet in exchange for exactly one more card, then runs
// the dealer's auto-play regardless of the draw (even a bust settles via
// the dealer-turn outcome rule, not the immediate-bust shortcut). Legal only
// with exactly two revealed player cards and chips covering the doubled bet.
func (r *Round) Double() error {
	r.mu.Lock()
	if r.state != StatePlayerTurn || r.busyLocked() {
		r.mu.Unlock()
		return ErrIllegalAction
	}
	if r.player.RevealedCount() != 2 || r.doubled {
		r.mu.Unlock()
		return ErrIllegalAction
	}
	if r.bet*2 > r.session.Chips {
		r.mu.Unlock()
		return ErrInsufficientChips
	}
	r.bet *= 2
	r.doubled = true
	r.playerActing = true
	id, bet := r.id, r.bet
	r.mu.Unlock()

	r.logger.Info("Double down", "round", id, "player", r.session.Name, "bet", bet)

	r.draw(deck.PlayerSide, false)

	r.mu.Lock()
	playerScore, _ := r.player.Score()
	r.playerActing = false
	r.dealerActing = true
	r.setStateLocked(StateDealerTurn)
	r.mu.Unlock()

	r.dealerPlay(playerScore)
	return nil
}

// Reset clears the table for the next round. Legal only from the result
// state; the chip balance carries over.
func (r *Round) Reset() error {
	r.mu.Lock()
	if r.state != StateResult || r.busyLocked() {
		r.mu.Unlock()
		return ErrIllegalAction
	}
	r.player.Clear()
	r.dealer.Clear()
	r.bet = 0
	r.doubled = false
	r.result = nil
	r.setStateLocked(StateReady)
	r.mu.Unlock()
	return nil
}

// dealerPlay reveals the hole card and draws while the dealer's score is
// below 17, then settles. playerScore is the player's final score captured
// before the dealer turn began.
func (r *Round) dealerPlay(playerScore int) {
	r.mu.Lock()
	hole := -1
	for i, c := range r.dealer.Cards() {
		if c.Hidden {
			hole = i
			break
		}
	}
	r.mu.Unlock()

	if hole >= 0 {
		r.pause()
		r.reveal(deck.DealerSide, hole)
	}

	for {
		r.mu.Lock()
		score, _ := r.dealer.Score()
		r.mu.Unlock()
		if score >= 17 {
			break
		}
		r.draw(deck.DealerSide, false)
	}

	r.mu.Lock()
	dealerScore, _ := r.dealer.Score()
	outcome, reason := outcomeOf(playerScore, dealerScore)
	result := r.settleLocked(outcome, reason, playerScore, dealerScore)
	r.dealerActing = false
	id := r.id
	r.mu.Unlock()

	r.publishSettled(id, result)
}

// outcomeOf applies the outcome rule to the captured final scores.
func outcomeOf(player, dealer int) (Outcome, Reason) {
	switch {
	case dealer > 21 && player <= 21:
		return OutcomeWin, ReasonDealerBust
	case player > 21 && dealer <= 21:
		return OutcomeLose, ReasonBust
	case player == dealer:
		return OutcomePush, ReasonTie
	case player > dealer:
		return OutcomeWin, ReasonHigherTotal
	default:
		return OutcomeLose, ReasonLowerTotal
	}
}

// settleLocked computes the result, applies the payout and enters the result
// state. Called exactly once per round with the lock held.
func (r *Round) settleLocked(outcome Outcome, reason Reason, playerScore, dealerScore int) Result {
	r.session.Chips = Settle(r.session.Chips, r.bet, outcome)
	res := Result{
		Outcome:     outcome,
		Reason:      reason,
		PlayerScore: playerScore,
		DealerScore: dealerScore,
		Bet:         r.bet,
		Balance:     r.session.Chips,
	}
	r.result = &res
	r.setStateLocked(StateResult)
	return res
}

func (r *Round) publishSettled(id string, result Result) {
	r.logger.Info("Round settled",
		"round", id,
		"player", r.session.Name,
		"outcome", result.Outcome,
		"reason", result.Reason,
		"playerScore", result.PlayerScore,
		"dealerScore", result.DealerScore,
		"bet", result.Bet,
		"balance", result.Balance)
	r.bus.Publish(NewRoundSettledEvent(id, result))
}

// draw deals the next card to a side, face down first, then flips it after
// the reveal pause. Hole cards stay face down.
func (r *Round) draw(side deck.Side, hole bool) {
	card := r.shoe.NextCard(side)

	r.mu.Lock()
	h := r.handFor(side)
	idx := h.Append(card)
	id := r.id
	r.mu.Unlock()

	r.bus.Publish(NewCardDealtEvent(id, side, idx, card, true))
	if hole {
		return
	}

	r.pause()
	r.reveal(side, idx)
}

// reveal flips a card face up and publishes the side's recomputed score.
func (r *Round) reveal(side deck.Side, idx int) {
	r.mu.Lock()
	h := r.handFor(side)
	h.Reveal(idx)
	card := h.Cards()[idx].Card
	score, ok := h.Score()
	id := r.id
	r.mu.Unlock()

	r.bus.Publish(NewCardRevealedEvent(id, side, idx, card))
	r.bus.Publish(NewScoreUpdatedEvent(id, side, score, ok))
}

func (r *Round) handFor(side deck.Side) *Hand {
	if side == deck.DealerSide {
		return &r.dealer
	}
	return &r.player
}

func (r *Round) busyLocked() bool {
	return r.playerActing || r.dealerActing
}

// setStateLocked transitions the state machine and publishes the change.
// Subscribers must not call back into the round.
func (r *Round) setStateLocked(to State) {
	from := r.state
	r.state = to
	r.logger.Debug("State change", "round", r.id, "from", from, "to", to)
	r.bus.Publish(NewStateChangedEvent(r.id, from, to))
}

// pause waits out the reveal delay between presentation steps.
func (r *Round) pause() {
	if r.revealDelay <= 0 {
		return
	}
	timer := r.clock.NewTimer(r.revealDelay, "reveal")
	<-timer.C
}
