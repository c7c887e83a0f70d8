package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"river-strike/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 4

	writeWait      = 2 * time.Second
	maxInboundSize = 1 << 10
)

// Outbound message names.
const (
	MsgState = "game:state"
	MsgEvent = "game:event"
)

// Codec selects the wire encoding of a client.
type Codec uint8

const (
	CodecJSON Codec = iota
	CodecMsgpack
)

func codecFromQuery(r *http.Request) Codec {
	if r.URL.Query().Get("codec") == "msgpack" {
		return CodecMsgpack
	}
	return CodecJSON
}

// envelope is the frame sent to clients.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// inbound is a client command: "input" carries an Intent, "start",
// "pause" and "resume" control the run.
type inbound struct {
	Type  string      `json:"type"`
	Input game.Intent `json:"input"`
}

// encodeFrame renders an envelope in the client's codec. Msgpack reuses the
// json tags so both codecs share field names.
func encodeFrame(c Codec, msg envelope) ([]byte, int, error) {
	if c == CodecMsgpack {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(msg); err != nil {
			return nil, 0, err
		}
		return buf.Bytes(), websocket.BinaryMessage, nil
	}
	data, err := json.Marshal(msg)
	return data, websocket.TextMessage, err
}

func decodeFrame(c Codec, data []byte, v interface{}) error {
	if c == CodecMsgpack {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}
	return json.Unmarshal(data, v)
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn  *websocket.Conn
	ip    string
	codec Codec
}

// WebSocketHub manages all WebSocket connections with DoS protection.
// Run is the only goroutine that writes to connections.
type WebSocketHub struct {
	engine     EngineInterface
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan envelope
	register   chan *wsClient
	unregister chan *websocket.Conn
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	maxClients int
	upgrader   websocket.Upgrader

	// Connection limiting per IP
	wsSlots *SlotLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface, maxClients int, origins *OriginPolicy) *WebSocketHub {
	if maxClients <= 0 {
		maxClients = 64
	}
	h := &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		maxClients: maxClients,
		wsSlots:    NewSlotLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin.
			if origin == "" || origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			h.send(msg)

		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				conn.Close()
				h.wsSlots.Release(client.ip)
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// send encodes msg at most once per codec and writes it to every client.
func (h *WebSocketHub) send(msg envelope) {
	var frames [2][]byte
	var kinds [2]int
	var failed []*websocket.Conn

	h.mu.RLock()
	for conn, client := range h.clients {
		c := client.codec
		if frames[c] == nil {
			data, kind, err := encodeFrame(c, msg)
			if err != nil {
				log.Printf("⚠️ Failed to encode %s frame: %v", msg.Event, err)
				h.mu.RUnlock()
				return
			}
			frames[c], kinds[c] = data, kind
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(kinds[c], frames[c]); err != nil {
			failed = append(failed, conn)
			continue
		}
		IncrementWSMessages("out")
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.drop(conn)
	}
}

func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		// Release the connection slot for this IP
		h.wsSlots.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		log.Printf("📱 Client disconnected (%d remaining)", count)
		UpdateWSConnections(count)
	}
}

// Stop disconnects every client and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// Broadcast queues a message for all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	select {
	case h.broadcast <- envelope{Event: event, Data: data}:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EventListener returns a sink that forwards simulation events to clients.
// It never blocks the tick; events are dropped when the queue is full.
func (h *WebSocketHub) EventListener() game.EventSink {
	return func(ev game.Event) {
		if ev.Type == game.EventTypeShoot || h.ClientCount() == 0 {
			return
		}
		h.Broadcast(MsgEvent, ev)
	}
}

// StartBroadcastLoop pushes snapshots at rate per second.
func (h *WebSocketHub) StartBroadcastLoop(rate int) {
	if rate <= 0 {
		rate = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				h.Broadcast(MsgState, h.engine.GetSnapshot())
			case <-h.stopChan:
				return
			}
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := ClientIP(r)

	// Check total connection limit
	if total := h.ClientCount(); total >= h.maxClients {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsSlots.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	codec := codecFromQuery(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsSlots.Release(ip) // Release the slot we reserved
		return
	}
	conn.SetReadLimit(maxInboundSize)

	client := &wsClient{conn: conn, ip: ip, codec: codec}
	select {
	case h.register <- client:
	case <-h.stopChan:
		conn.Close()
		h.wsSlots.Release(ip)
		return
	}

	go h.readLoop(client)
}

// readLoop applies client commands until the connection closes.
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.stopChan:
		}
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		IncrementWSMessages("in")

		var msg inbound
		if err := decodeFrame(client.codec, data, &msg); err != nil {
			continue
		}
		h.apply(client.ip, msg)
	}
}

func (h *WebSocketHub) apply(ip string, msg inbound) {
	switch msg.Type {
	case "input":
		h.engine.SetIntent(msg.Input.Sanitized())
	case "start":
		runID := h.engine.StartRun()
		log.Printf("🎮 Run %s started by %s", runID, ip)
	case "pause":
		if err := h.engine.Pause(); err != nil {
			log.Printf("⚠️ Pause from %s ignored: %v", ip, err)
		}
	case "resume":
		if err := h.engine.Resume(); err != nil {
			log.Printf("⚠️ Resume from %s ignored: %v", ip, err)
		}
	}
}
