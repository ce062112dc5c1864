package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/kirinyoku/skyseat/internal/transport/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastsToFlightWatchers(t *testing.T) {
	hub := websocket.NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, 7)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count(7) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Notify(context.Background(), 8))
	require.NoError(t, hub.Notify(context.Background(), 7))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, websocket.MessageTypeFlightChanged, msg.Type)
	assert.EqualValues(t, 7, msg.FlightID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count(7) == 0 }, time.Second, 5*time.Millisecond)
}
