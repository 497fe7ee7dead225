package game

import (
	"time"

	"github.com/lox/twentyone/internal/deck"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for round domain events. These are the presentation
// notifications: transports forward them verbatim, renderers animate them.
const (
	EventTypeStateChanged EventType = "state_changed"
	EventTypeCardDealt    EventType = "card_dealt"
	EventTypeCardRevealed EventType = "card_revealed"
	EventTypeScoreUpdated EventType = "score_updated"
	EventTypeBlackjack    EventType = "blackjack"
	EventTypeRoundSettled EventType = "round_settled"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event represents any event that occurs during a blackjack round
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// StateChangedEvent is published on every round state transition.
type StateChangedEvent struct {
	RoundID   string
	From      State
	To        State
	timestamp time.Time
}

func (e StateChangedEvent) EventType() EventType { return EventTypeStateChanged }
func (e StateChangedEvent) Timestamp() time.Time { return e.timestamp }

// NewStateChangedEvent creates a new state changed event
func NewStateChangedEvent(roundID string, from, to State) StateChangedEvent {
	return StateChangedEvent{RoundID: roundID, From: from, To: to, timestamp: time.Now()}
}

// CardDealtEvent is published when a card is appended to a hand, always face
// down first.
type CardDealtEvent struct {
	RoundID   string
	Side      deck.Side
	Index     int
	Card      deck.Card
	Hidden    bool
	timestamp time.Time
}

func (e CardDealtEvent) EventType() EventType { return EventTypeCardDealt }
func (e CardDealtEvent) Timestamp() time.Time { return e.timestamp }

// NewCardDealtEvent creates a new card dealt event
func NewCardDealtEvent(roundID string, side deck.Side, index int, card deck.Card, hidden bool) CardDealtEvent {
	return CardDealtEvent{RoundID: roundID, Side: side, Index: index, Card: card, Hidden: hidden, timestamp: time.Now()}
}

// CardRevealedEvent is published when a hidden card is flipped face up.
type CardRevealedEvent struct {
	RoundID   string
	Side      deck.Side
	Index     int
	Card      deck.Card
	timestamp time.Time
}

func (e CardRevealedEvent) EventType() EventType { return EventTypeCardRevealed }
func (e CardRevealedEvent) Timestamp() time.Time { return e.timestamp }

// NewCardRevealedEvent creates a new card revealed event
func NewCardRevealedEvent(roundID string, side deck.Side, index int, card deck.Card) CardRevealedEvent {
	return CardRevealedEvent{RoundID: roundID, Side: side, Index: index, Card: card, timestamp: time.Now()}
}

// ScoreUpdatedEvent is published after every reveal with the side's new
// revealed score. HasScore is false while the side has no face-up cards.
type ScoreUpdatedEvent struct {
	RoundID   string
	Side      deck.Side
	Score     int
	HasScore  bool
	timestamp time.Time
}

func (e ScoreUpdatedEvent) EventType() EventType { return EventTypeScoreUpdated }
func (e ScoreUpdatedEvent) Timestamp() time.Time { return e.timestamp }

// NewScoreUpdatedEvent creates a new score updated event
func NewScoreUpdatedEvent(roundID string, side deck.Side, score int, hasScore bool) ScoreUpdatedEvent {
	return ScoreUpdatedEvent{RoundID: roundID, Side: side, Score: score, HasScore: hasScore, timestamp: time.Now()}
}

// BlackjackEvent is the transient celebratory signal raised when the initial
// two player cards score 21. It does not end the round by itself.
type BlackjackEvent struct {
	RoundID   string
	timestamp time.Time
}

func (e BlackjackEvent) EventType() EventType { return EventTypeBlackjack }
func (e BlackjackEvent) Timestamp() time.Time { return e.timestamp }

// NewBlackjackEvent creates a new blackjack event
func NewBlackjackEvent(roundID string) BlackjackEvent {
	return BlackjackEvent{RoundID: roundID, timestamp: time.Now()}
}

// RoundSettledEvent is published once per round, atomically with the
// transition into the result state, after the payout has been applied.
type RoundSettledEvent struct {
	RoundID   string
	Result    Result
	timestamp time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundSettledEvent creates a new round settled event
func NewRoundSettledEvent(roundID string, result Result) RoundSettledEvent {
	return RoundSettledEvent{RoundID: roundID, Result: result, timestamp: time.Now()}
}

// EventSubscriber can subscribe to round events
type EventSubscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event Event)
}

// SimpleEventBus is a basic in-memory event bus implementation. Delivery is
// synchronous and best-effort from the round's perspective; subscribers must
// not block.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event Event) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}

// SubscriberFunc adapts a function to the EventSubscriber interface.
type SubscriberFunc func(event Event)

// OnEvent implements EventSubscriber
func (f SubscriberFunc) OnEvent(event Event) { f(event) }
