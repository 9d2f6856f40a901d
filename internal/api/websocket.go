package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/printer"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// WebSocket message types
const (
	EventPrint          = "print"
	EventJob            = "job"
	EventPrinterAdded   = "printer_added"
	EventPrinterRemoved = "printer_removed"
	EventResponse       = "response"
	EventError          = "error"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
)

// WSMessage is the envelope of every WebSocket frame
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newMessage(event string, data any) (WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return WSMessage{}, err
	}
	return WSMessage{Event: event, Data: raw}, nil
}

// Hub tracks connected clients and fans out broadcasts
type Hub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	closed  bool
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("ws"),
		clients: make(map[*WSClient]struct{}),
	}
}

func (h *Hub) add(c *WSClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client. Clients with a full buffer miss it.
func (h *Hub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			h.logger.Warn("client send buffer full, dropping message", zap.String("event", msg.Event))
		}
	}
}

func (h *Hub) broadcastEvent(event string, data any) {
	msg, err := newMessage(event, data)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	h.Broadcast(msg)
}

// BroadcastJob announces a job state change
func (h *Hub) BroadcastJob(job printer.Job) {
	h.broadcastEvent(EventJob, job)
}

// BroadcastPrinterAdded announces a newly attached printer
func (h *Hub) BroadcastPrinterAdded(device printer.Device) {
	h.broadcastEvent(EventPrinterAdded, device)
	h.logger.Info("printer added", zap.String("id", device.ID), zap.String("description", device.Description))
}

// BroadcastPrinterRemoved announces a detached printer
func (h *Hub) BroadcastPrinterRemoved(device printer.Device) {
	h.broadcastEvent(EventPrinterRemoved, gin.H{"id": device.ID})
	h.logger.Info("printer removed", zap.String("id", device.ID))
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// WSClient is one connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, sendBuffer),
		server: s,
	}
	if !s.hub.add(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.logger.Debug("websocket client connected", zap.String("remote", c.Request.RemoteAddr))

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.hub.remove(c)
		c.conn.Close()
		c.server.logger.Debug("websocket client disconnected")
	}()

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	switch msg.Event {
	case EventPrint:
		c.handlePrintEvent(msg.Data)
	default:
		c.sendError("unknown event: " + msg.Event)
	}
}

// handlePrintEvent runs a print request received over the socket.
// The reply carries the same status and message as POST /api/print.
func (c *WSClient) handlePrintEvent(data json.RawMessage) {
	var req receipt.PrintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("invalid print request: " + err.Error())
		return
	}

	job, err := c.server.service.Print(context.Background(), &req)
	status, message := printOutcome(err)
	resp := gin.H{"status": status, "message": message}
	if job.ID != "" {
		resp["jobId"] = job.ID
	}
	c.reply(EventResponse, resp)
}

func (c *WSClient) sendError(message string) {
	c.reply(EventError, gin.H{"error": message})
}

// reply queues a message for this client only
func (c *WSClient) reply(event string, data any) {
	msg, err := newMessage(event, data)
	if err != nil {
		return
	}

	c.server.hub.mu.RLock()
	defer c.server.hub.mu.RUnlock()
	if _, ok := c.server.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
