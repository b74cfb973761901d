package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/players"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	router := chi.NewRouter()
	RegisterRoutes(router, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/state"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testStates() []players.PlayerState {
	return []players.PlayerState{
		{Object: "player", UniqueID: "amplipi_zone_0", Kind: players.KindZone, State: players.StateIdle, Available: true},
	}
}

func readState(t *testing.T, conn *websocket.Conn) StateMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var message StateMessage
	require.NoError(t, json.Unmarshal(payload, &message))
	return message
}

func TestHubBroadcastsStates(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	conn := dialTestHub(t, hub)

	// Wait for the connection to register before publishing.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Publish(testStates())

	message := readState(t, conn)
	assert.Equal(t, "state", message.Type)
	require.Len(t, message.Players, 1)
	assert.Equal(t, "amplipi_zone_0", message.Players[0].UniqueID)
}

func TestHubReplaysLastSnapshotToNewClients(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	hub.Publish(testStates())

	conn := dialTestHub(t, hub)
	message := readState(t, conn)
	assert.Equal(t, "state", message.Type)
	require.Len(t, message.Players, 1)
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	conn := dialTestHub(t, hub)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
