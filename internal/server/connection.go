package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/twentyone/internal/game"
)

// Connection represents a WebSocket connection to a client. Each connection
// plays at its own table: one session, one round.
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
	session     *game.Session
	round       *game.Round
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// PlayerName returns the logged-in player name, or "" before login
func (c *Connection) PlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Name
}

func (c *Connection) currentRound() *game.Round {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.round
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.PlayerName())

	switch msg.Type {
	case MessageTypeLogin:
		var data LoginData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse login data")
			return
		}
		c.handleLogin(data)

	case MessageTypePlaceBet:
		var data PlaceBetData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse bet data")
			return
		}
		c.handleAction("place_bet", func(round *game.Round) error {
			return round.PlaceBet(data.Amount)
		})

	case MessageTypeHit:
		c.handleAction("hit", (*game.Round).Hit)

	case MessageTypeStand:
		c.handleAction("stand", (*game.Round).Stand)

	case MessageTypeDouble:
		c.handleAction("double", (*game.Round).Double)

	case MessageTypeReset:
		c.handleAction("reset", func(round *game.Round) error {
			if err := round.Reset(); err != nil {
				return err
			}
			c.sendTableState(round)
			return nil
		})

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) handleLogin(data LoginData) {
	c.logger.Info("Login request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_login", "Player name required")
		return
	}

	if c.PlayerName() != "" {
		c.sendError("already_logged_in", "Connection already has a player")
		return
	}

	session, err := c.gameService.Login(c.ctx, data.PlayerName, data.Token)
	if err != nil {
		response, _ := NewMessage(MessageTypeLoginResponse, LoginResponseData{
			Success: false,
			Error:   err.Error(),
		})
		_ = c.SendMessage(response) // Ignore send errors
		return
	}

	// Events are forwarded from the round's goroutine; SendMessage only
	// enqueues, so the subscriber never blocks the round.
	round := c.gameService.StartRound(session, game.SubscriberFunc(c.forwardEvent))

	c.mu.Lock()
	c.session = session
	c.round = round
	c.mu.Unlock()

	playerID := session.PlayerID
	if playerID == "" {
		playerID = session.Name
	}
	response, _ := NewMessage(MessageTypeLoginResponse, LoginResponseData{
		Success:  true,
		PlayerID: playerID,
		Name:     session.Name,
		Chips:    session.Chips,
	})
	_ = c.SendMessage(response) // Ignore send errors

	c.sendTableState(round)
}

// handleAction runs a round operation for a logged-in connection. Rejected
// actions become error messages rather than dropped connections.
func (c *Connection) handleAction(name string, action func(*game.Round) error) {
	round := c.currentRound()
	if round == nil {
		c.sendError("not_logged_in", "Must log in first")
		return
	}

	if err := action(round); err != nil {
		switch {
		case errors.Is(err, game.ErrIllegalAction):
			c.sendError("illegal_action", name+" is not allowed right now")
		case errors.Is(err, game.ErrInsufficientChips):
			c.sendError("insufficient_chips", "Not enough chips for that bet")
		case errors.Is(err, game.ErrInvalidBet):
			c.sendError("invalid_bet", "Bet must be a positive amount")
		default:
			c.sendError("action_failed", err.Error())
		}
	}
}

func (c *Connection) sendTableState(round *game.Round) {
	msg, err := NewMessage(MessageTypeTableState, TableStateFromSnapshot(round.Snapshot()))
	if err != nil {
		c.logger.Error("Failed to create table state message", "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors
}

// forwardEvent translates round events into wire messages. Settlement also
// pushes the balance back to the account store, off the round's goroutine so
// a slow account service cannot stall play.
func (c *Connection) forwardEvent(event game.Event) {
	msg, err := MessageFromEvent(event)
	if err != nil {
		c.logger.Error("Failed to encode event", "error", err)
		return
	}
	if msg == nil {
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors

	if settled, ok := event.(game.RoundSettledEvent); ok {
		c.persistChips(settled.Result.Balance)
	}
}

// persistChips saves a settled balance for authenticated sessions. The
// balance is captured at settlement time so the write never reads the
// session concurrently with the round.
func (c *Connection) persistChips(balance int) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil || session.PlayerID == "" {
		return
	}

	playerID, name := session.PlayerID, session.Name
	go c.gameService.PersistChips(context.WithoutCancel(c.ctx), playerID, name, balance)
}
