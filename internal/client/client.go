package client

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/twentyone/internal/server"
)

// Client is a WebSocket client for the table server. Incoming messages are
// delivered on a channel so a UI event loop can consume them.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	logger    *log.Logger
	mu        sync.RWMutex
	messages  chan *server.Message
	connected bool
	stopChan  chan struct{}
}

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		logger:    logger.WithPrefix("client"),
		messages:  make(chan *server.Message, 64),
		stopChan:  make(chan struct{}),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Ensure WebSocket scheme
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already correct
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	c.logger.Info("Connecting to server", "url", u.String())

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	// Start message reader
	go c.readMessages()

	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false
	close(c.stopChan)

	if c.conn != nil {
		// Send close message
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return c.conn.Close()
	}

	return nil
}

// Messages returns the channel carrying server messages. The channel is
// closed when the connection drops.
func (c *Client) Messages() <-chan *server.Message {
	return c.messages
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// readMessages continuously reads messages from the WebSocket connection
func (c *Client) readMessages() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.messages)
	}()

	for {
		select {
		case <-c.stopChan:
			return
		default:
			var msg server.Message
			err := c.conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					c.logger.Error("WebSocket error", "error", err)
				}
				return
			}

			select {
			case c.messages <- &msg:
			case <-c.stopChan:
				return
			}
		}
	}
}

func (c *Client) send(messageType server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Login sends a login message with an optional account token
func (c *Client) Login(playerName, token string) error {
	c.logger.Info("Sending login", "playerName", playerName)
	return c.send(server.MessageTypeLogin, server.LoginData{
		PlayerName: playerName,
		Token:      token,
	})
}

// PlaceBet sends a bet to open a new round
func (c *Client) PlaceBet(amount int) error {
	return c.send(server.MessageTypePlaceBet, server.PlaceBetData{Amount: amount})
}

// Hit requests one more card
func (c *Client) Hit() error {
	return c.send(server.MessageTypeHit, struct{}{})
}

// Stand ends the player's turn
func (c *Client) Stand() error {
	return c.send(server.MessageTypeStand, struct{}{})
}

// Double doubles the bet and draws exactly one card
func (c *Client) Double() error {
	return c.send(server.MessageTypeDouble, struct{}{})
}

// Reset clears a finished round back to ready
func (c *Client) Reset() error {
	return c.send(server.MessageTypeReset, struct{}{})
}
