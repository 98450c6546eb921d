package websocket

import (
	"sync"

	"github.com/anjiri1684/flower_farm/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"
)

// Client is a browser watching the slots of one visit date.
type Client struct {
	Date string
	Conn *websocket.Conn
}

type AvailabilityUpdate struct {
	Date  string                      `json:"date"`
	Slots []services.SlotAvailability `json:"slots"`
}

// Hub fans availability updates out to every client watching the same date.
type Hub struct {
	clients   map[string]map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan AvailabilityUpdate
	quit       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*websocket.Conn]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan AvailabilityUpdate, 32),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			return
		case client := <-h.Register:
			h.clientsMu.Lock()
			if h.clients[client.Date] == nil {
				h.clients[client.Date] = make(map[*websocket.Conn]struct{})
			}
			h.clients[client.Date][client.Conn] = struct{}{}
			h.clientsMu.Unlock()
		case client := <-h.Unregister:
			h.remove(client.Date, client.Conn)
		case update := <-h.Broadcast:
			h.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients[update.Date]))
			for conn := range h.clients[update.Date] {
				conns = append(conns, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range conns {
				if err := conn.WriteJSON(update); err != nil {
					logrus.WithError(err).WithField("date", update.Date).Warn("Error sending availability update")
					_ = conn.Close()
					h.remove(update.Date, conn)
				}
			}
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// Join and Leave give up once the hub has stopped.
func (h *Hub) Join(client *Client) {
	select {
	case h.Register <- client:
	case <-h.quit:
	}
}

func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.quit:
	}
}

// Publish queues an update without blocking the caller; updates are dropped when the hub is busy.
func (h *Hub) Publish(update AvailabilityUpdate) {
	select {
	case h.Broadcast <- update:
	default:
		logrus.WithField("date", update.Date).Warn("⚠️ Availability hub busy, dropping update")
	}
}

// Watchers counts the connections following a date.
func (h *Hub) Watchers(date string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[date])
}

func (h *Hub) remove(date string, conn *websocket.Conn) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if conns, ok := h.clients[date]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, date)
		}
	}
}
