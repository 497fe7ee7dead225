package server

import (
	"encoding/json"
	"time"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
)

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeLogin    MessageType = "login"
	MessageTypePlaceBet MessageType = "place_bet"
	MessageTypeHit      MessageType = "hit"
	MessageTypeStand    MessageType = "stand"
	MessageTypeDouble   MessageType = "double"
	MessageTypeReset    MessageType = "reset"

	// Server to client messages
	MessageTypeLoginResponse MessageType = "login_response"
	MessageTypeTableState    MessageType = "table_state"
	MessageTypeStateChanged  MessageType = "state_changed"
	MessageTypeCardDealt     MessageType = "card_dealt"
	MessageTypeCardRevealed  MessageType = "card_revealed"
	MessageTypeScoreUpdated  MessageType = "score_updated"
	MessageTypeBlackjack     MessageType = "blackjack"
	MessageTypeRoundSettled  MessageType = "round_settled"
	MessageTypeError         MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type LoginData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type PlaceBetData struct {
	Amount int `json:"amount"`
}

// Server → Client Messages

type LoginResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	Chips    int    `json:"chips,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StateChangedData struct {
	RoundID string `json:"roundId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type CardDealtData struct {
	RoundID string     `json:"roundId"`
	Side    string     `json:"side"`
	Index   int        `json:"index"`
	Card    *deck.Card `json:"card,omitempty"` // omitted while face down
	Hidden  bool       `json:"hidden"`
}

type CardRevealedData struct {
	RoundID string    `json:"roundId"`
	Side    string    `json:"side"`
	Index   int       `json:"index"`
	Card    deck.Card `json:"card"`
}

type ScoreUpdatedData struct {
	RoundID  string `json:"roundId"`
	Side     string `json:"side"`
	Score    int    `json:"score"`
	HasScore bool   `json:"hasScore"`
}

type BlackjackData struct {
	RoundID string `json:"roundId"`
}

type RoundSettledData struct {
	RoundID     string `json:"roundId"`
	Outcome     string `json:"outcome"`
	Reason      string `json:"reason"`
	PlayerScore int    `json:"playerScore"`
	DealerScore int    `json:"dealerScore"`
	Bet         int    `json:"bet"`
	Balance     int    `json:"balance"`
}

// TableStateData mirrors game.Snapshot for clients joining or resyncing.
type TableStateData struct {
	RoundID string        `json:"roundId"`
	State   string        `json:"state"`
	Bet     int           `json:"bet"`
	Doubled bool          `json:"doubled"`
	Chips   int           `json:"chips"`
	Player  game.HandView `json:"player"`
	Dealer  game.HandView `json:"dealer"`
	Result  *game.Result  `json:"result,omitempty"`
}

// TableStateFromSnapshot converts an engine snapshot to the wire format.
// Face-down card identities are scrubbed before they leave the server.
func TableStateFromSnapshot(snap game.Snapshot) TableStateData {
	return TableStateData{
		RoundID: snap.RoundID,
		State:   snap.State.String(),
		Bet:     snap.Bet,
		Doubled: snap.Doubled,
		Chips:   snap.Chips,
		Player:  redactHidden(snap.Player),
		Dealer:  redactHidden(snap.Dealer),
		Result:  snap.Result,
	}
}

func redactHidden(view game.HandView) game.HandView {
	for i := range view.Cards {
		if view.Cards[i].Hidden {
			view.Cards[i].Card = deck.Card{}
		}
	}
	return view
}

// MessageFromEvent converts a round event into its wire message. The dealt
// card is withheld while face down; clients render a card back until the
// reveal arrives.
func MessageFromEvent(event game.Event) (*Message, error) {
	switch e := event.(type) {
	case game.StateChangedEvent:
		return NewMessage(MessageTypeStateChanged, StateChangedData{
			RoundID: e.RoundID,
			From:    e.From.String(),
			To:      e.To.String(),
		})

	case game.CardDealtEvent:
		data := CardDealtData{
			RoundID: e.RoundID,
			Side:    e.Side.String(),
			Index:   e.Index,
			Hidden:  e.Hidden,
		}
		if !e.Hidden {
			card := e.Card
			data.Card = &card
		}
		return NewMessage(MessageTypeCardDealt, data)

	case game.CardRevealedEvent:
		return NewMessage(MessageTypeCardRevealed, CardRevealedData{
			RoundID: e.RoundID,
			Side:    e.Side.String(),
			Index:   e.Index,
			Card:    e.Card,
		})

	case game.ScoreUpdatedEvent:
		return NewMessage(MessageTypeScoreUpdated, ScoreUpdatedData{
			RoundID:  e.RoundID,
			Side:     e.Side.String(),
			Score:    e.Score,
			HasScore: e.HasScore,
		})

	case game.BlackjackEvent:
		return NewMessage(MessageTypeBlackjack, BlackjackData{RoundID: e.RoundID})

	case game.RoundSettledEvent:
		return NewMessage(MessageTypeRoundSettled, RoundSettledData{
			RoundID:     e.RoundID,
			Outcome:     e.Result.Outcome.String(),
			Reason:      string(e.Result.Reason),
			PlayerScore: e.Result.PlayerScore,
			DealerScore: e.Result.DealerScore,
			Bet:         e.Result.Bet,
			Balance:     e.Result.Balance,
		})

	default:
		return nil, nil
	}
}
