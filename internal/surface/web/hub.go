package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/service/pipeline"
	"github.com/astrachat/astra/internal/service/render"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Controller is the subset of the conversation service a browser drives.
type Controller interface {
	Send(ctx context.Context, prompt string) (pipeline.Result, error)
	NewChat(ctx context.Context) chat.Session
	Switch(id string) error
	SetMode(raw string) error
	Snapshot() []render.Frame
}

type inboundMessage struct {
	Type      string `json:"type"`
	Prompt    string `json:"prompt,omitempty"`
	Mode      string `json:"mode,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type errorFrame struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans frames out to every connected browser and turns inbound
// websocket commands into controller calls.
type Hub struct {
	ctl      Controller
	log      *zap.Logger
	upgrader websocket.Upgrader

	// ctx bounds sends started from browser commands.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub 创建 websocket hub
func NewHub(ctl Controller, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctl: ctl,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// Render implements conversation.Surface. Clients whose buffer is full miss
// the frame rather than stall the caller.
func (h *Hub) Render(frame render.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("encode frame", zap.String("kind", string(frame.Kind)), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("client too slow, frame dropped", zap.String("kind", string(frame.Kind)))
		}
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for pending sends to settle.
func (h *Hub) Close() error {
	h.cancel()

	h.mu.Lock()
	h.closed = true
	var result error
	for c := range h.clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			result = multierror.Append(result, err)
		}
		if err := c.conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()

	h.wg.Wait()
	return result
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	for _, frame := range h.ctl.Snapshot() {
		if payload, err := json.Marshal(frame); err == nil {
			c.send <- payload
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info("websocket connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleMessage(c, msg)
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleMessage(c *client, msg inboundMessage) {
	switch msg.Type {
	case "send":
		if !h.track() {
			return
		}
		go func() {
			defer h.wg.Done()
			if _, err := h.ctl.Send(h.ctx, msg.Prompt); err != nil {
				h.sendError(c, err.Error())
			}
		}()
	case "mode":
		if err := h.ctl.SetMode(msg.Mode); err != nil {
			h.sendError(c, err.Error())
		}
	case "new":
		h.ctl.NewChat(h.ctx)
	case "switch":
		if err := h.ctl.Switch(msg.SessionID); err != nil {
			h.sendError(c, err.Error())
		}
	default:
		h.sendError(c, "unknown message type: "+msg.Type)
	}
}

// track registers a send with the WaitGroup Close waits on. It refuses once
// Close has started so Add never races Wait.
func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

func (h *Hub) sendError(c *client, message string) {
	payload, err := json.Marshal(errorFrame{Kind: "error", Message: message})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
