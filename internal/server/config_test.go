package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), config)
	assert.NoError(t, config.Validate())
}

func TestLoadServerConfigFromHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twentyone.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

table {
  starting_chips  = 5000
  decks           = 4
  reveal_delay_ms = 250
}

auth {
  validate_url = "http://localhost:8081/validate"
  save_url     = "http://localhost:8081/chips"
  fail_open    = true
}
`), 0o644))

	config, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "0.0.0.0:9000", config.GetServerAddress())
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, 5000, config.Table.StartingChips)
	assert.Equal(t, 4, config.Table.Decks)
	assert.Equal(t, 250, config.Table.RevealDelayMs)
	assert.Equal(t, "http://localhost:8081/validate", config.Auth.ValidateURL)
	assert.Equal(t, "http://localhost:8081/chips", config.Auth.SaveURL)
	assert.True(t, config.Auth.FailOpen)
}

func TestLoadServerConfigPartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twentyone.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
  port = 9000
}
`), 0o644))

	config, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", config.Server.Address)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, 6, config.Table.Decks)
	assert.Equal(t, 10000, config.Table.StartingChips)
}

func TestServerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"port too low", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"port too high", func(c *ServerConfig) { c.Server.Port = 70000 }},
		{"no starting chips", func(c *ServerConfig) { c.Table.StartingChips = -1 }},
		{"too many decks", func(c *ServerConfig) { c.Table.Decks = 9 }},
		{"negative reveal delay", func(c *ServerConfig) { c.Table.RevealDelayMs = -1 }},
		{"fixed shoe missing dealer cards", func(c *ServerConfig) { c.Table.FixedShoePlayer = "AhKs" }},
		{"fixed shoe bad notation", func(c *ServerConfig) {
			c.Table.FixedShoePlayer = "AhKs"
			c.Table.FixedShoeDealer = "Xx"
		}},
		{"fixed shoe whitespace only", func(c *ServerConfig) {
			c.Table.FixedShoePlayer = " "
			c.Table.FixedShoeDealer = " "
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultServerConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}
