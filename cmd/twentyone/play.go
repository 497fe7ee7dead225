package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/twentyone/cmd/twentyone/shared"
	"github.com/lox/twentyone/internal/auth"
	"github.com/lox/twentyone/internal/client"
	"github.com/lox/twentyone/internal/tui"
)

// PlayCmd connects to a table server and plays interactively
type PlayCmd struct {
	URL        string `kong:"default='ws://localhost:8080/ws',help='Table server URL'"`
	Name       string `kong:"help='Player name (skips the name prompt)'"`
	AccountURL string `kong:"help='Account service URL, enables sign-in and registration'"`
	Debug      bool   `kong:"help='Write debug logs to twentyone-client.log'"`
}

func (c *PlayCmd) Run() error {
	// The TUI owns the terminal, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if c.Debug {
		f, err := os.OpenFile("twentyone-client.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger := shared.SetupFileLogger(logOut, c.Debug)

	lipgloss.SetColorProfile(termenv.ColorProfile())

	ws := client.NewClient(c.URL, logger)
	if err := ws.Connect(); err != nil {
		return fmt.Errorf("connecting to %s: %w", c.URL, err)
	}
	defer func() { _ = ws.Disconnect() }()

	opts := []tui.ModelOption{}
	if c.Name != "" {
		opts = append(opts, tui.WithPlayerName(c.Name))
	}
	if c.AccountURL != "" {
		opts = append(opts, tui.WithAccounts(auth.NewClient(c.AccountURL)))
	}

	model := tui.New(ws, logger, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen())

	_, err := program.Run()
	return err
}
