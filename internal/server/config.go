package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/twentyone/internal/deck"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
	Auth   AuthSettings   `hcl:"auth,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// TableSettings contains table rules applied to every connection
type TableSettings struct {
	StartingChips int `hcl:"starting_chips,optional"`
	Decks         int `hcl:"decks,optional"`
	RevealDelayMs int `hcl:"reveal_delay_ms,optional"`

	// Scripted deals for demos: card notation like "AhKs2d". Both must be
	// set together; the shuffled shoe is the default.
	FixedShoePlayer string `hcl:"fixed_shoe_player,optional"`
	FixedShoeDealer string `hcl:"fixed_shoe_dealer,optional"`
}

// AuthSettings configures the account service integration. SaveURL is where
// settled balances are written back; without it, authenticated chips are
// read-only for the lifetime of the connection.
type AuthSettings struct {
	ValidateURL string `hcl:"validate_url,optional"`
	SaveURL     string `hcl:"save_url,optional"`
	FailOpen    bool   `hcl:"fail_open,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			LogFile:  "twentyone-server.log",
		},
		Table: TableSettings{
			StartingChips: 10000,
			Decks:         6,
			RevealDelayMs: 400,
		},
		Auth: AuthSettings{
			FailOpen: true,
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	// Blocks are optional in the file; absent ones fall back to defaults
	var raw struct {
		Server *ServerSettings `hcl:"server,block"`
		Table  *TableSettings  `hcl:"table,block"`
		Auth   *AuthSettings   `hcl:"auth,block"`
	}
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var config ServerConfig
	if raw.Server != nil {
		config.Server = *raw.Server
	}
	if raw.Table != nil {
		config.Table = *raw.Table
	}
	if raw.Auth != nil {
		config.Auth = *raw.Auth
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = "twentyone-server.log"
	}
	if config.Table.StartingChips == 0 {
		config.Table.StartingChips = 10000
	}
	if config.Table.Decks == 0 {
		config.Table.Decks = 6
	}
	if config.Table.RevealDelayMs == 0 {
		config.Table.RevealDelayMs = 400
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Table.StartingChips <= 0 {
		return fmt.Errorf("starting chips must be positive: %d", c.Table.StartingChips)
	}
	if c.Table.Decks < 1 || c.Table.Decks > 8 {
		return fmt.Errorf("decks must be between 1 and 8: %d", c.Table.Decks)
	}
	if c.Table.RevealDelayMs < 0 {
		return fmt.Errorf("reveal delay must not be negative: %d", c.Table.RevealDelayMs)
	}
	if (c.Table.FixedShoePlayer == "") != (c.Table.FixedShoeDealer == "") {
		return fmt.Errorf("fixed_shoe_player and fixed_shoe_dealer must be set together")
	}
	if c.Table.FixedShoePlayer != "" {
		player, err := deck.ParseCards(c.Table.FixedShoePlayer)
		if err != nil {
			return fmt.Errorf("fixed_shoe_player: %w", err)
		}
		dealer, err := deck.ParseCards(c.Table.FixedShoeDealer)
		if err != nil {
			return fmt.Errorf("fixed_shoe_dealer: %w", err)
		}
		if len(player) == 0 || len(dealer) == 0 {
			return fmt.Errorf("fixed shoe needs at least one card per side")
		}
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
