package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/twentyone/internal/auth"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/server"
)

// TableClient is the slice of the WebSocket client the TUI drives.
type TableClient interface {
	Login(playerName, token string) error
	PlaceBet(amount int) error
	Hit() error
	Stand() error
	Double() error
	Reset() error
	Messages() <-chan *server.Message
}

// AccountClient talks to the account service for the login overlay. It is
// nil when the server runs without accounts.
type AccountClient interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.Grant, error)
	Register(ctx context.Context, creds auth.Credentials) (*auth.Grant, error)
}

type screen int

const (
	screenLogin screen = iota
	screenTable
)

// serverMsg carries one message from the table server into the update loop
type serverMsg struct {
	msg *server.Message
}

// disconnectedMsg is delivered when the server connection drops
type disconnectedMsg struct{}

// grantMsg is the outcome of a login or register against the account service
type grantMsg struct {
	grant *auth.Grant
	err   error
}

type cardView struct {
	card   deck.Card
	hidden bool
}

type handView struct {
	cards    []cardView
	score    int
	hasScore bool
}

// Model is the Bubble Tea model for the blackjack table
type Model struct {
	client   TableClient
	accounts AccountClient
	logger   *log.Logger

	screen     screen
	focusField int // 0 = name, 1 = password
	nameInput  textinput.Model
	passInput  textinput.Model
	betInput   textinput.Model

	playerName string
	chips      int
	roundState string
	bet        int
	player     handView
	dealer     handView
	result     *server.RoundSettledData
	blackjack  bool
	status     string
	quitting   bool
	busy       bool // waiting on an account service call

	width  int
	height int
}

// ModelOption configures the model
type ModelOption func(*Model)

// WithPlayerName prefills the login name
func WithPlayerName(name string) ModelOption {
	return func(m *Model) {
		m.nameInput.SetValue(name)
	}
}

// WithAccounts enables the login/register overlay against an account service
func WithAccounts(accounts AccountClient) ModelOption {
	return func(m *Model) {
		m.accounts = accounts
	}
}

// New creates a TUI model bound to a connected table client
func New(client TableClient, logger *log.Logger, opts ...ModelOption) *Model {
	name := textinput.New()
	name.Placeholder = "player name"
	name.CharLimit = 32
	name.Width = 32
	name.Prompt = "> "
	name.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 64
	pass.Width = 32
	pass.Prompt = "> "
	pass.EchoMode = textinput.EchoPassword

	bet := textinput.New()
	bet.Placeholder = "bet amount"
	bet.CharLimit = 9
	bet.Width = 12
	bet.Prompt = "> "

	m := &Model{
		client:     client,
		logger:     logger.WithPrefix("tui"),
		screen:     screenLogin,
		nameInput:  name,
		passInput:  pass,
		betInput:   bet,
		roundState: "ready",
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Init starts listening for server messages
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForServer())
}

// waitForServer returns a command that delivers the next server message
func (m *Model) waitForServer() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Messages()
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case disconnectedMsg:
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case serverMsg:
		m.apply(msg.msg)
		return m, m.waitForServer()

	case grantMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "login failed"
			return m, nil
		}
		return m, m.connectToTable(msg.grant.User.Name, msg.grant.Token)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, m.updateInputs(msg)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.screen == screenLogin {
		m.nameInput, cmd = m.nameInput.Update(msg)
		cmds = append(cmds, cmd)
		m.passInput, cmd = m.passInput.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.betInput, cmd = m.betInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)
	}

	if m.screen == screenLogin {
		return m.handleLoginKey(msg)
	}
	return m.handleTableKey(msg)
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		if m.accounts != nil {
			m.toggleLoginFocus()
		}
		return m, nil

	case "enter":
		return m.submitLogin(false)

	case "ctrl+r":
		if m.accounts != nil {
			return m.submitLogin(true)
		}
		return m, nil
	}

	return m, m.updateInputs(msg)
}

func (m *Model) toggleLoginFocus() {
	if m.focusField == 0 {
		m.focusField = 1
		m.nameInput.Blur()
		m.passInput.Focus()
	} else {
		m.focusField = 0
		m.passInput.Blur()
		m.nameInput.Focus()
	}
}

// submitLogin resolves credentials into a table login. Without an account
// service the name alone starts a guest session.
func (m *Model) submitLogin(register bool) (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.nameInput.Value())
	if name == "" {
		m.status = "name required"
		return m, nil
	}

	if m.accounts == nil {
		return m, m.connectToTable(name, "")
	}

	password := m.passInput.Value()
	if password == "" {
		m.status = "password required"
		return m, nil
	}

	m.busy = true
	m.status = "signing in..."
	accounts := m.accounts
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		creds := auth.Credentials{Name: name, Password: password}
		if register {
			grant, err := accounts.Register(ctx, creds)
			if errors.Is(err, auth.ErrLoginRequired) {
				// Name already registered; fall through to a login attempt
				grant, err = accounts.Login(ctx, creds)
			}
			return grantMsg{grant: grant, err: err}
		}

		grant, err := accounts.Login(ctx, creds)
		return grantMsg{grant: grant, err: err}
	}
}

func (m *Model) connectToTable(name, token string) tea.Cmd {
	m.playerName = name
	m.status = ""
	if err := m.client.Login(name, token); err != nil {
		m.status = "connection failed"
		return nil
	}
	m.screen = screenTable
	m.betInput.Focus()
	return nil
}

func (m *Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		if m.roundState == "ready" || m.roundState == "result" {
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		}

	case "enter":
		if m.roundState == "ready" {
			m.placeBet()
			return m, nil
		}

	case "h":
		if m.roundState == "player_turn" {
			m.sendAction(m.client.Hit)
			return m, nil
		}

	case "s":
		if m.roundState == "player_turn" {
			m.sendAction(m.client.Stand)
			return m, nil
		}

	case "d":
		if m.roundState == "player_turn" {
			m.sendAction(m.client.Double)
			return m, nil
		}

	case "r":
		if m.roundState == "result" {
			m.sendAction(m.client.Reset)
			return m, nil
		}
	}

	return m, m.updateInputs(msg)
}

func (m *Model) placeBet() {
	amount, err := strconv.Atoi(strings.TrimSpace(m.betInput.Value()))
	if err != nil || amount <= 0 {
		m.status = "enter a positive bet"
		return
	}
	m.sendAction(func() error { return m.client.PlaceBet(amount) })
	m.betInput.SetValue("")
}

func (m *Model) sendAction(action func() error) {
	if err := action(); err != nil {
		m.logger.Error("Failed to send action", "error", err)
		m.status = "connection lost"
	}
}

// apply folds one server message into the display state
func (m *Model) apply(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeLoginResponse:
		var data server.LoginResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		if !data.Success {
			m.screen = screenLogin
			m.status = data.Error
			return
		}
		m.playerName = data.Name
		m.chips = data.Chips
		m.screen = screenTable

	case server.MessageTypeTableState:
		var data server.TableStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.roundState = data.State
		m.bet = data.Bet
		m.chips = data.Chips
		m.player = handViewFromWire(data.Player)
		m.dealer = handViewFromWire(data.Dealer)
		m.result = nil
		m.blackjack = false
		m.status = ""

	case server.MessageTypeStateChanged:
		var data server.StateChangedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.roundState = data.To
		if data.To == "dealing" {
			m.player = handView{}
			m.dealer = handView{}
			m.result = nil
			m.blackjack = false
			m.status = ""
		}

	case server.MessageTypeCardDealt:
		var data server.CardDealtData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		hand := m.handFor(data.Side)
		if hand == nil {
			return
		}
		for len(hand.cards) <= data.Index {
			hand.cards = append(hand.cards, cardView{hidden: true})
		}

	case server.MessageTypeCardRevealed:
		var data server.CardRevealedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		hand := m.handFor(data.Side)
		if hand == nil || data.Index >= len(hand.cards) {
			return
		}
		hand.cards[data.Index] = cardView{card: data.Card, hidden: false}

	case server.MessageTypeScoreUpdated:
		var data server.ScoreUpdatedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		if hand := m.handFor(data.Side); hand != nil {
			hand.score = data.Score
			hand.hasScore = data.HasScore
		}

	case server.MessageTypeBlackjack:
		m.blackjack = true

	case server.MessageTypeRoundSettled:
		var data server.RoundSettledData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.result = &data
		m.chips = data.Balance
		m.roundState = "result"

	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.status = data.Message
	}
}

func (m *Model) handFor(side string) *handView {
	switch side {
	case "player":
		return &m.player
	case "dealer":
		return &m.dealer
	}
	return nil
}

func handViewFromWire(view game.HandView) handView {
	hand := handView{score: view.Score, hasScore: view.HasScore}
	for _, hc := range view.Cards {
		hand.cards = append(hand.cards, cardView{card: hc.Card, hidden: hc.Hidden})
	}
	return hand
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if m.screen == screenLogin {
		return m.viewLogin()
	}
	return m.viewTable()
}

func (m *Model) viewLogin() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(" twentyone "))
	b.WriteString("\n\n")
	b.WriteString(LabelStyle.Render("Name"))
	b.WriteString("\n")
	b.WriteString(m.nameInput.View())
	b.WriteString("\n")

	if m.accounts != nil {
		b.WriteString(LabelStyle.Render("Password"))
		b.WriteString("\n")
		b.WriteString(m.passInput.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.accounts != nil {
		b.WriteString(InfoStyle.Render("Enter to sign in • Ctrl+R to register • Tab to switch fields • Ctrl+C to quit"))
	} else {
		b.WriteString(InfoStyle.Render("Enter to play • Ctrl+C to quit"))
	}

	return b.String()
}

func (m *Model) viewTable() string {
	var b strings.Builder

	header := fmt.Sprintf(" %s — $%d ", m.playerName, m.chips)
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(LabelStyle.Render("Dealer"))
	b.WriteString("  ")
	b.WriteString(m.renderHand(m.dealer))
	b.WriteString("\n")

	b.WriteString(LabelStyle.Render("You   "))
	b.WriteString("  ")
	b.WriteString(m.renderHand(m.player))
	b.WriteString("\n\n")

	if m.bet > 0 && m.result == nil {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Bet: $%d", m.bet)))
		b.WriteString("\n")
	}

	if m.blackjack && m.result == nil {
		b.WriteString(BlackjackStyle.Render(" BLACKJACK! "))
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString(m.renderResult())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderActions())

	return b.String()
}

func (m *Model) renderHand(hand handView) string {
	if len(hand.cards) == 0 {
		return InfoStyle.Render("(no cards)")
	}

	var formatted []string
	for _, cv := range hand.cards {
		switch {
		case cv.hidden:
			formatted = append(formatted, CardBackStyle.Render("??"))
		case cv.card.IsRed():
			formatted = append(formatted, RedCardStyle.Render(cv.card.String()))
		default:
			formatted = append(formatted, BlackCardStyle.Render(cv.card.String()))
		}
	}

	out := "[" + strings.Join(formatted, " ") + "]"
	if hand.hasScore {
		out += InfoStyle.Render(fmt.Sprintf(" (%d)", hand.score))
	}
	return out
}

func (m *Model) renderResult() string {
	label := fmt.Sprintf(" %s (%s) ", strings.ToUpper(m.result.Outcome), m.result.Reason)
	switch m.result.Outcome {
	case "win":
		return WinStyle.Render(label)
	case "lose":
		return LoseStyle.Render(label)
	default:
		return PushStyle.Render(label)
	}
}

func (m *Model) renderActions() string {
	switch m.roundState {
	case "ready":
		return ActionsStyle.Render("Bet: ") + m.betInput.View() + "\n" +
			InfoStyle.Render("Enter to deal • q to quit")
	case "player_turn":
		return ActionsStyle.Render("[h]it  [s]tand  [d]ouble")
	case "result":
		return InfoStyle.Render("r for next round • q to quit")
	default:
		return InfoStyle.Render("Dealing...")
	}
}
