package wsfeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 40 * time.Second
	pingPeriod     = 30 * time.Second
	maxClientFrame = 1024
)

// Message is the envelope pushed to feed clients.
type Message struct {
	Type  string      `json:"type"` // "board" | "error"
	Board *port.Board `json:"board,omitempty"`
	Error string      `json:"error,omitempty"`
	At    time.Time   `json:"at"`
}

type clientMsg struct {
	Type string `json:"type"` // "refresh"
}

// Hub fans boards out to websocket clients. Each client holds only the
// latest undelivered frame; a slow reader skips intermediate boards.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte

	onRefresh func()
	now       func() time.Time
}

func NewHub(onRefresh func()) *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		onRefresh: onRefresh,
		now:       time.Now,
	}
}

func (h *Hub) WriteBoard(ctx context.Context, b port.Board) error {
	payload, err := json.Marshal(Message{Type: "board", Board: &b, At: h.now()})
	if err != nil {
		return err
	}
	h.broadcast(payload, true)
	return nil
}

// WriteError notifies clients; the retained snapshot stays the last board.
func (h *Hub) WriteError(ctx context.Context, scanErr error) error {
	payload, err := json.Marshal(Message{Type: "error", Error: scanErr.Error(), At: h.now()})
	if err != nil {
		return err
	}
	h.broadcast(payload, false)
	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
	return nil
}

func (h *Hub) broadcast(payload []byte, retain bool) {
	h.mu.Lock()
	if retain {
		h.last = payload
	}
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.offer(payload)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	snap := h.last
	h.mu.Unlock()
	if len(snap) > 0 {
		c.offer(snap)
	}
	log.Debug().Str("remote", c.ws.RemoteAddr().String()).Msg("feed client connected")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) serve(ws *websocket.Conn) {
	c := &client{
		ws:   ws,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
	h.add(c)
	go c.writePump()
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.ws.SetReadLimit(maxClientFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("feed client read failed")
			}
			return
		}
		var msg clientMsg
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if msg.Type == "refresh" && h.onRefresh != nil {
			h.onRefresh()
		}
	}
}

type client struct {
	ws   *websocket.Conn
	send chan []byte // capacity 1: latest frame only
	done chan struct{}
	once sync.Once
}

// offer replaces any undelivered frame with payload.
func (c *client) offer(payload []byte) {
	for {
		select {
		case <-c.done:
			return
		case c.send <- payload:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ port.Sink = (*Hub)(nil)
