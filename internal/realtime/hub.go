// Package realtime relays analysis progress and agent statuses to browser
// clients over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/models"
)

var (
	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtvision_ws_clients",
		Help: "Connected websocket clients",
	})

	wsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtvision_ws_frames_dropped_total",
		Help: "Frames dropped for slow websocket clients",
	})
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 4096
)

// StatusSource supplies the agent statuses pushed on the agents channel.
type StatusSource interface {
	AgentStatuses(ctx context.Context) ([]models.AgentStatus, error)
}

type HubConfig struct {
	Statuses       StatusSource // optional
	Interval       time.Duration
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Hub tracks websocket clients and their channel subscriptions.
type Hub struct {
	statuses StatusSource
	interval time.Duration
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

func (c *client) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	h := &Hub{
		statuses: cfg.Statuses,
		interval: cfg.Interval,
		logger:   cfg.Logger.Sugar(),
		clients:  make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers payload to every client subscribed to channel. Clients
// whose buffer is full miss the frame.
func (h *Hub) Broadcast(_ context.Context, channel string, payload interface{}) {
	frame, err := json.Marshal(models.ServerFrame{Channel: channel, Data: payload})
	if err != nil {
		h.logger.Errorw("Failed to encode frame", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			wsDropped.Inc()
		}
	}
}

// Run pushes agent statuses on the agents channel until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.statuses == nil {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			list, err := h.statuses.AgentStatuses(ctx)
			if err != nil {
				h.logger.Warnw("Failed to load agent statuses", "error", err)
				continue
			}
			h.Broadcast(ctx, models.ChannelAgents, list)
		}
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("Websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		channels: make(map[string]struct{}),
	}
	h.register(c)

	done := make(chan struct{})
	go h.writeLoop(c, done)
	h.readLoop(c)

	h.unregister(c)
	close(done)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	wsClients.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	wsClients.Dec()
}

func (h *Hub) readLoop(c *client) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxFrame)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg models.ClientFrame
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnw("Websocket read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "subscribe":
			if msg.Channel == "" {
				h.reply(c, models.ServerFrame{Type: "error", Data: "channel is required"})
				continue
			}
			c.mu.Lock()
			c.channels[msg.Channel] = struct{}{}
			c.mu.Unlock()
			h.reply(c, models.ServerFrame{Type: "subscribed", Channel: msg.Channel})
		case "unsubscribe":
			c.mu.Lock()
			delete(c.channels, msg.Channel)
			c.mu.Unlock()
			h.reply(c, models.ServerFrame{Type: "unsubscribed", Channel: msg.Channel})
		case "ping":
			h.reply(c, models.ServerFrame{Type: "pong"})
		default:
			h.reply(c, models.ServerFrame{Type: "error", Data: "unknown message type: " + msg.Type})
		}
	}
}

func (h *Hub) reply(c *client, frame models.ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		wsDropped.Inc()
	}
}

// writeLoop is the only writer on the connection.
func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
