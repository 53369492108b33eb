package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockFeedServer creates a test websocket server.
func mockFeedServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.ReconnectBaseDelay = 10 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestReceiveEvents(t *testing.T) {
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		ev := Event{Kind: "updated", NodeID: "a1", SymbolID: "ZW.CME.F2016"}
		data, _ := json.Marshal(ev)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
		// hold the connection open until the client goes away
		conn.ReadMessage()
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan struct{})
	go func() {
		client.Run(ctx)
		close(runDone)
	}()
	defer client.Close()

	select {
	case ev := <-client.Events():
		if ev.Kind != "updated" {
			t.Errorf("Kind = %q, want %q", ev.Kind, "updated")
		}
		if ev.SymbolID != "ZW.CME.F2016" {
			t.Errorf("SymbolID = %q, want %q", ev.SymbolID, "ZW.CME.F2016")
		}
		if ev.ReceivedAt.IsZero() {
			t.Error("ReceivedAt not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	client.Close()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestWatchSendsSubscribe(t *testing.T) {
	commands := make(chan command, 4)
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd command
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			commands <- cmd
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)
	defer client.Close()

	waitConnected(t, client)

	if err := client.Watch("a1", "b2"); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case cmd := <-commands:
		if cmd.Command != "subscribe" {
			t.Errorf("Command = %q, want %q", cmd.Command, "subscribe")
		}
		if len(cmd.NodeIDs) != 2 || cmd.NodeIDs[0] != "a1" {
			t.Errorf("NodeIDs = %v, want [a1 b2]", cmd.NodeIDs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe command")
	}

	if err := client.Unwatch("a1"); err != nil {
		t.Fatalf("Unwatch: %v", err)
	}

	select {
	case cmd := <-commands:
		if cmd.Command != "unsubscribe" {
			t.Errorf("Command = %q, want %q", cmd.Command, "unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unsubscribe command")
	}
}

func TestReconnectResubscribes(t *testing.T) {
	commands := make(chan command, 8)
	dropFirst := make(chan struct{}, 1)
	dropFirst <- struct{}{}

	server := mockFeedServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd command
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			commands <- cmd
			select {
			case <-dropFirst:
				// kill the first connection after its subscribe
				return
			default:
			}
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)
	defer client.Close()

	waitConnected(t, client)
	if err := client.Watch("a1"); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// first subscribe, then the server drops the connection and the
	// client must re-send the watch list on reconnect
	for i := 0; i < 2; i++ {
		select {
		case cmd := <-commands:
			if cmd.Command != "subscribe" {
				t.Errorf("command %d = %q, want subscribe", i, cmd.Command)
			}
			if len(cmd.NodeIDs) != 1 || cmd.NodeIDs[0] != "a1" {
				t.Errorf("command %d NodeIDs = %v, want [a1]", i, cmd.NodeIDs)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for subscribe %d", i)
		}
	}
}

func TestPingsSentAtInterval(t *testing.T) {
	pings := make(chan struct{}, 8)
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		conn.SetPingHandler(func(appData string) error {
			pings <- struct{}{}
			return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.PingInterval = 10 * time.Millisecond

	client := NewClient(cfg, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)
	defer client.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-pings:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for ping %d", i)
		}
	}
}

func TestWatchWhileDisconnected(t *testing.T) {
	client := NewClient(testConfig("ws://127.0.0.1:1"), quietLogger())
	if err := client.Watch("a1"); err != nil {
		t.Fatalf("Watch while disconnected: %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected = true for a client that never ran")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	client := NewClient(testConfig("ws://127.0.0.1:1"), quietLogger())
	if err := client.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func waitConnected(t *testing.T, client *Client) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.IsConnected() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never connected")
}
