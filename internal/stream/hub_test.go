package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mosaical/nftvault/internal/model"
)

func newStreamServer(t *testing.T, hub *Hub) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/vault/events", hub.Handler())
	srv := httptest.NewServer(router)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/vault/events"
	return srv, wsURL
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv, wsURL := newStreamServer(t, hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Subscription registration races the publish; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := model.VaultEvent{
		Type:       model.EventBorrow,
		Collection: "0x3333333333333333333333333333333333333333",
		ItemID:     1,
		Account:    "0x1111111111111111111111111111111111111111",
		Amount:     "1000000000000000000",
		CreatedAt:  time.Now().UTC(),
	}
	hub.Publish(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.VaultEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Type != want.Type || got.Collection != want.Collection || got.Amount != want.Amount {
		t.Fatalf("event = %+v, want %+v", got, want)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	srv, wsURL := newStreamServer(t, hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Close()

	// Publishing after Close is a no-op, not a panic.
	hub.Publish(model.VaultEvent{Type: model.EventDeposit})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
