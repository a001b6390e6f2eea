package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToUserOffline(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	assert.False(t, hub.SendToUser("nobody", map[string]string{"type": "X"}))
	assert.False(t, hub.IsOnline("nobody"))
}

func TestSendToUserDeliversToConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, r.URL.Query().Get("user"), w, r)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=u1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline("u1") }, 2*time.Second, 10*time.Millisecond)

	assert.True(t, hub.SendToUser("u1", map[string]string{"type": "MISSION_ASSIGNED", "missionId": "m1"}))
	assert.False(t, hub.SendToUser("u2", map[string]string{"type": "MISSION_ASSIGNED"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "m1", got["missionId"])

	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsOnline("u1") }, 2*time.Second, 10*time.Millisecond)
}
