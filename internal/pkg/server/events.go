package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/model"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

const (
	sendBufferSize = 64
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type deviceSource interface {
	Device(id string) *telldus.Device
}

// Events streams discovery and state events to websocket clients. It is
// registered as a publisher next to the MQTT and database sinks.
type Events struct {
	hub     deviceSource
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*client]struct{}
	now     func() time.Time
}

type client struct {
	events *Events
	conn   *websocket.Conn
	send   chan []byte
}

func NewEvents(hub deviceSource) *Events {
	return &Events{
		hub:     hub,
		logger:  zap.L(),
		clients: map[*client]struct{}{},
		now:     time.Now,
	}
}

func (e *Events) RegisterDevice(_ context.Context, id string, category telldus.Category) error {
	e.broadcast(model.Event{
		Type:     model.EventDeviceDiscovered,
		DeviceID: id,
		Category: category.String(),
		Device:   e.view(id),
	})
	return nil
}

func (e *Events) RegisterSensorItem(_ context.Context, id, name, scale string) error {
	e.broadcast(model.Event{
		Type:      model.EventSensorItemDiscovered,
		DeviceID:  id,
		Category:  telldus.CategorySensor.String(),
		ItemName:  name,
		ItemScale: scale,
	})
	return nil
}

func (e *Events) PublishState(_ context.Context, id string) error {
	e.broadcast(model.Event{
		Type:     model.EventStatePossiblyChanged,
		DeviceID: id,
		Device:   e.view(id),
	})
	return nil
}

func (e *Events) view(id string) *model.DeviceView {
	view := model.NewDeviceView(e.hub.Device(id))
	return &view
}

// broadcast never blocks; a client with a full buffer misses the event.
// Sends happen under the read lock so unregister cannot close a channel
// mid-send.
func (e *Events) broadcast(event model.Event) {
	if e.ClientCount() == 0 {
		return
	}
	event.Timestamp = e.now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for c := range e.clients {
		select {
		case c.send <- data:
		default:
			e.logger.Warn("dropping event for slow websocket client", zap.String("device_id", event.DeviceID))
		}
	}
}

func (e *Events) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}

func (e *Events) register(c *client) {
	e.mu.Lock()
	e.clients[c] = struct{}{}
	e.mu.Unlock()
	e.logger.Debug("websocket client connected", zap.Int("clients", e.ClientCount()))
}

// unregister closes the send channel once, whichever pump gets here first.
func (e *Events) unregister(c *client) {
	e.mu.Lock()
	_, existed := e.clients[c]
	delete(e.clients, c)
	e.mu.Unlock()
	if existed {
		close(c.send)
	}
	e.logger.Debug("websocket client disconnected", zap.Int("clients", e.ClientCount()))
}

// Close disconnects every client.
func (e *Events) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for c := range e.clients {
		close(c.send)
		delete(e.clients, c)
	}
}

func (e *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{events: e, conn: conn, send: make(chan []byte, sendBufferSize)}
	e.register(c)

	go c.writePump()
	go c.readPump()
}

// readPump only keeps the read deadline alive; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		c.events.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.events.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
