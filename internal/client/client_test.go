package client

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/twentyone/internal/auth"
	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/server"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newConnectedClient(t *testing.T, player, dealer string) *Client {
	t.Helper()

	config := server.DefaultServerConfig()
	config.Table.RevealDelayMs = 0
	service := server.NewGameService(config, auth.NewNoopValidator(), testLogger(),
		server.WithShoeFactory(func() deck.Shoe {
			return deck.NewFixedShoe(deck.MustParseCards(player), deck.MustParseCards(dealer))
		}),
	)

	srv := server.NewServer("unused", service, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Stop() })

	c := NewClient(ts.URL, testLogger())
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })

	return c
}

func waitFor(t *testing.T, c *Client, want server.MessageType) *server.Message {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-c.Messages():
			require.True(t, ok, "connection closed while waiting for %s", want)
			if msg.Type == want {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestClientLogin(t *testing.T) {
	c := newConnectedClient(t, "AhKs", "Td7c")
	require.NoError(t, c.Login("drew", ""))

	msg := waitFor(t, c, server.MessageTypeLoginResponse)
	var data server.LoginResponseData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.True(t, data.Success)
	assert.Equal(t, "drew", data.Name)
}

func TestClientPlaysARound(t *testing.T) {
	c := newConnectedClient(t, "Th9h", "Ts7h")
	require.NoError(t, c.Login("drew", ""))
	waitFor(t, c, server.MessageTypeLoginResponse)

	require.NoError(t, c.PlaceBet(50))
	waitFor(t, c, server.MessageTypeScoreUpdated)

	require.NoError(t, c.Stand())

	msg := waitFor(t, c, server.MessageTypeRoundSettled)
	var settled server.RoundSettledData
	require.NoError(t, json.Unmarshal(msg.Data, &settled))
	assert.Equal(t, "win", settled.Outcome)
	assert.Equal(t, 19, settled.PlayerScore)
	assert.Equal(t, 17, settled.DealerScore)
	assert.Equal(t, 10050, settled.Balance)
}

func TestClientSendBeforeConnect(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", testLogger())
	assert.Error(t, c.Hit())
}
