package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/twentyone/cmd/twentyone/shared"
	"github.com/lox/twentyone/internal/auth"
	"github.com/lox/twentyone/internal/server"
)

// ServerCmd runs the WebSocket table server
type ServerCmd struct {
	Config        string `kong:"default='twentyone.hcl',help='Path to HCL config file'"`
	Addr          string `kong:"help='Override listen address (host:port)'"`
	Debug         bool   `kong:"help='Enable debug logging'"`
	Decks         int    `kong:"help='Override number of decks in the shoe'"`
	StartingChips int    `kong:"help='Override guest starting chips'"`
	RevealDelayMs int    `kong:"default='-1',help='Override reveal pacing in milliseconds'"`
	Seed          *int64 `kong:"help='Deterministic shoe seed (optional)'"`
	AuthURL       string `kong:"help='Override account service validate URL'"`
	AuthSaveURL   string `kong:"help='Override account service chip save URL'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}

	// Flags override file values
	if c.Decks > 0 {
		cfg.Table.Decks = c.Decks
	}
	if c.StartingChips > 0 {
		cfg.Table.StartingChips = c.StartingChips
	}
	if c.RevealDelayMs >= 0 {
		cfg.Table.RevealDelayMs = c.RevealDelayMs
	}
	if c.AuthURL != "" {
		cfg.Auth.ValidateURL = c.AuthURL
	}
	if c.AuthSaveURL != "" {
		cfg.Auth.SaveURL = c.AuthSaveURL
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLoggerWithLevel(cfg.Server.LogLevel)

	var validator auth.Validator
	if cfg.Auth.ValidateURL != "" {
		validator = auth.NewHTTPValidator(cfg.Auth.ValidateURL)
		logger.Info("Validating tokens against account service", "url", cfg.Auth.ValidateURL, "failOpen", cfg.Auth.FailOpen)
	} else {
		validator = auth.NewNoopValidator()
		logger.Info("No account service configured, all players join as guests")
	}

	var opts []server.GameServiceOption
	if cfg.Auth.SaveURL != "" {
		opts = append(opts, server.WithChipSaver(auth.NewHTTPSaver(cfg.Auth.SaveURL)))
		logger.Info("Persisting balances to account service", "url", cfg.Auth.SaveURL)
	}
	if c.Seed != nil {
		logger.Info("Using deterministic shoe seed", "seed", *c.Seed)
		opts = append(opts, server.WithShoeSeed(*c.Seed))
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	service := server.NewGameService(cfg, validator, logger, opts...)
	srv := server.NewServer(addr, service, logger)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	logger.Info("Starting table server",
		"addr", addr,
		"decks", cfg.Table.Decks,
		"starting_chips", cfg.Table.StartingChips,
		"reveal_delay_ms", cfg.Table.RevealDelayMs,
	)

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Stop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
