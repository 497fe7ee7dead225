package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/lox/twentyone/cmd/twentyone/shared"
	"github.com/lox/twentyone/internal/account"
)

// AccountsCmd runs the HTTP account service backing registration, login and
// token validation
type AccountsCmd struct {
	Addr    string `kong:"default=':8081',help='Listen address'"`
	DB      string `kong:"default='twentyone-accounts.db',help='Path to the sqlite database'"`
	EnvFile string `kong:"default='.env',help='Path to an env file with overrides'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

func (c *AccountsCmd) Run() error {
	// Env file is optional; environment variables beat flags when set
	_ = godotenv.Load(c.EnvFile)

	addr := c.Addr
	if v := os.Getenv("TWENTYONE_ACCOUNTS_ADDR"); v != "" {
		addr = v
	}
	dbPath := c.DB
	if v := os.Getenv("TWENTYONE_ACCOUNTS_DB"); v != "" {
		dbPath = v
	}

	logger := shared.SetupLogger(c.Debug)

	store, err := account.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	service := account.NewService(store, logger)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: service.Router(),
	}

	logger.Info("Starting account service", "addr", addr, "db", dbPath)

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
		logger.Info("Shutting down account service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
