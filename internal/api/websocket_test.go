package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"river-strike/internal/config"
	"river-strike/internal/game"
	"river-strike/internal/scores"

	"github.com/gorilla/websocket"
)

// TestFrameCodecs verifies both codecs carry the same envelope
func TestFrameCodecs(t *testing.T) {
	msg := envelope{Event: MsgEvent, Data: map[string]interface{}{"wave": 3}}

	tests := []struct {
		name  string
		codec Codec
		kind  int
	}{
		{"json", CodecJSON, websocket.TextMessage},
		{"msgpack", CodecMsgpack, websocket.BinaryMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, kind, err := encodeFrame(tt.codec, msg)
			if err != nil {
				t.Fatalf("encodeFrame: %v", err)
			}
			if kind != tt.kind {
				t.Errorf("Message kind %d, want %d", kind, tt.kind)
			}

			var got envelope
			if err := decodeFrame(tt.codec, data, &got); err != nil {
				t.Fatalf("decodeFrame: %v", err)
			}
			if got.Event != MsgEvent {
				t.Errorf("Event %q", got.Event)
			}
			m, ok := got.Data.(map[string]interface{})
			if !ok || m["wave"] == nil {
				t.Errorf("Data lost: %#v", got.Data)
			}
		})
	}
}

// TestInboundMsgpackUsesJSONNames verifies msgpack clients use the same field names
func TestInboundMsgpackUsesJSONNames(t *testing.T) {
	data, _, err := encodeFrame(CodecMsgpack, envelope{Event: "x", Data: map[string]interface{}{
		"type":  "input",
		"input": map[string]interface{}{"moveX": 0.5, "firing": true},
	}})
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		Data inbound `json:"data"`
	}
	if err := decodeFrame(CodecMsgpack, data, &env); err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if env.Data.Type != "input" || env.Data.Input.MoveX != 0.5 || !env.Data.Input.Firing {
		t.Errorf("Decoded %+v", env.Data)
	}
}

func newTestServer(t *testing.T) (*Server, *mockEngine, *httptest.Server) {
	t.Helper()
	engine := newMockEngine()
	board, _ := scores.Open("", 5)
	cfg := config.AppConfig{
		Server: config.DefaultServer(),
		Sim:    config.DefaultSim(),
		Limits: config.DefaultLimits(),
	}
	server := NewServer(engine, board, nil, cfg)
	go server.Hub().Run()

	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		ts.Close()
		server.Hub().Stop()
		server.rateLimiter.Stop()
	})
	return server, engine, ts
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestWebSocketInputAndBroadcast verifies commands reach the engine and broadcasts reach the client
func TestWebSocketInputAndBroadcast(t *testing.T) {
	server, engine, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{
		"type":  "input",
		"input": map[string]interface{}{"moveX": -3, "firing": true},
	}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	waitFor(t, "intent", func() bool { return engine.Intent().Firing })
	if in := engine.Intent(); in.MoveX != -1 {
		t.Errorf("Intent not sanitized: %+v", in)
	}

	if err := conn.WriteJSON(map[string]string{"type": "start"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "run start", func() bool { return engine.Runs() == 1 })

	waitFor(t, "registration", func() bool { return server.Hub().ClientCount() == 1 })
	server.Hub().Broadcast(MsgState, engine.GetSnapshot())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Errorf("Expected text frame, got %d", kind)
	}
	var env struct {
		Event string            `json:"event"`
		Data  game.GameSnapshot `json:"data"`
	}
	if err := decodeFrame(CodecJSON, data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != MsgState || env.Data.Score != 42 {
		t.Errorf("Unexpected broadcast: %s %+v", env.Event, env.Data)
	}
}

// TestWebSocketMsgpackClient verifies ?codec=msgpack switches to binary frames
func TestWebSocketMsgpackClient(t *testing.T) {
	server, _, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?codec=msgpack"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "registration", func() bool { return server.Hub().ClientCount() == 1 })
	server.Hub().Broadcast(MsgEvent, map[string]int{"wave": 2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("Expected binary frame, got %d", kind)
	}
	var env envelope
	if err := decodeFrame(CodecMsgpack, data, &env); err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if env.Event != MsgEvent {
		t.Errorf("Event %q", env.Event)
	}
}

// TestWebSocketRejectsForeignOrigin verifies the origin policy
func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, _, ts := newTestServer(t)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), header)
	if err == nil {
		t.Fatal("Expected foreign origin to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}

	header.Set("Origin", "http://localhost:5173")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), header)
	if err != nil {
		t.Fatalf("Localhost origin rejected: %v", err)
	}
	conn.Close()
}

// TestEventListenerFilters verifies shoot events and empty hubs are skipped
func TestEventListenerFilters(t *testing.T) {
	hub := NewWebSocketHub(newMockEngine(), 4, NewOriginPolicy(nil))
	sink := hub.EventListener()

	sink(game.Event{Type: game.EventTypeKill})
	if len(hub.broadcast) != 0 {
		t.Error("Event queued with no clients")
	}

	// Pretend one client is attached
	hub.clients[nil] = &wsClient{}
	sink(game.Event{Type: game.EventTypeShoot})
	sink(game.Event{Type: game.EventTypeKill})
	if len(hub.broadcast) != 1 {
		t.Errorf("Expected only the kill queued, got %d", len(hub.broadcast))
	}
}

// TestOriginPolicy verifies exact and localhost matching
func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy([]string{"https://river.example/"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://river.example", true},
		{"http://localhost:8080", true},
		{"http://127.0.0.1:3000", true},
		{"https://evil.example", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.Allowed(tt.origin); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

// TestWebSocketPerIPLimit verifies the per-IP slot accounting
func TestWebSocketPerIPLimit(t *testing.T) {
	l := NewSlotLimiter(2)
	if !l.Acquire("1.1.1.1") || !l.Acquire("1.1.1.1") {
		t.Fatal("First two connections should be allowed")
	}
	if l.Acquire("1.1.1.1") {
		t.Error("Third connection should be rejected")
	}
	if !l.Acquire("2.2.2.2") {
		t.Error("Other IPs are independent")
	}
	l.Release("1.1.1.1")
	if !l.Acquire("1.1.1.1") {
		t.Error("Release did not free a slot")
	}
	if l.Acquire("1.1.1.1") {
		t.Error("Released slot was handed out twice")
	}

	// Fully released IPs are forgotten
	l.Release("2.2.2.2")
	l.Release("2.2.2.2")
	if len(l.slots) != 1 {
		t.Errorf("Expected only 1.1.1.1 tracked, got %v", l.slots)
	}
}
