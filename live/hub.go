// Package live отправляет открытым страницам конкурсов обратный отсчёт и уведомления
// об изменениях по websocket. Каждый конкурс это комната, тикает она только пока её смотрят.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/services"
	"github.com/gorilla/websocket"
)

const (
	MessageCountdown      = "COUNTDOWN"
	MessageContestUpdated = "CONTEST_UPDATED"
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

type CountdownPayload struct {
	Remaining countdown.TimeRemaining `json:"remaining"`
	Display   string                  `json:"display"`
	Ended     bool                    `json:"ended"`
}

type UpdatePayload struct {
	Reason string `json:"reason"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// CountdownSource отдаёт дедлайн конкурса и признак завершения.
type CountdownSource interface {
	Countdown(ctx context.Context, contestID string) (*services.CountdownView, error)
}

type room struct {
	clients map[*Client]bool
	cancel  context.CancelFunc
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	rooms    map[string]*room
	mu       sync.RWMutex
	base     context.Context
	done     chan struct{}
	source   CountdownSource
	trackers *countdown.Registry
	interval time.Duration
	clock    countdown.Clock
	logger   *slog.Logger
}

func NewHub(source CountdownSource, trackers *countdown.Registry, logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]*room),
		done:       make(chan struct{}),
		source:     source,
		trackers:   trackers,
		interval:   time.Second,
		clock:      time.Now,
		logger:     logger,
	}
}

// Run обслуживает регистрации до отмены ctx, затем останавливает тикеры комнат и
// закрывает каналы клиентов.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.base = ctx
	h.mu.Unlock()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.mu.Lock()
			r, ok := h.rooms[client.Room]
			if !ok {
				r = &room{clients: make(map[*Client]bool)}
				h.rooms[client.Room] = r
			}
			r.clients[client] = true
			if !ok {
				h.startTicker(client.Room, r)
			}
			h.logger.Debug("client joined room", slog.String("room", client.Room), slog.Int("clients", len(r.clients)))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if r, ok := h.rooms[client.Room]; ok && r.clients[client] {
				client.close()
				delete(r.clients, client)
				if len(r.clients) == 0 {
					// последний зритель ушёл: таймер комнаты больше не нужен
					r.cancel()
					delete(h.rooms, client.Room)
					h.logger.Debug("room closed", slog.String("room", client.Room))
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.cancel()
		for client := range r.clients {
			client.close()
		}
		delete(h.rooms, id)
	}
}

// startTicker (пере)запускает горутину отсчёта комнаты. Вызывать под h.mu.
func (h *Hub) startTicker(roomID string, r *room) {
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(h.base)
	r.cancel = cancel
	go h.tick(ctx, roomID)
}

func (h *Hub) tick(ctx context.Context, roomID string) {
	view, err := h.source.Countdown(ctx, roomID)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("countdown unavailable for room", slog.String("room", roomID), slog.Any("error", err))
		}
		return
	}
	tracker := h.trackers.Tracker(roomID, view.Deadline)
	if view.Ended {
		tracker.MarkEnded()
	}
	countdown.Run(ctx, tracker, h.clock, h.interval, func(remaining countdown.TimeRemaining, ended bool) {
		h.BroadcastToRoom(roomID, Message{
			Type:    MessageCountdown,
			Payload: CountdownPayload{Remaining: remaining, Display: remaining.String(), Ended: ended},
			RoomID:  roomID,
		})
	})
}

// ContestUpdated просит зрителей конкурса перезагрузиться и перезапускает тикер комнаты,
// чтобы подхватить новый дедлайн или объявленного победителя.
func (h *Hub) ContestUpdated(contestID, reason string) {
	h.BroadcastToRoom(contestID, Message{
		Type:    MessageContestUpdated,
		Payload: UpdatePayload{Reason: reason},
		RoomID:  contestID,
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[contestID]; ok && h.base != nil {
		h.startTicker(contestID, r)
	}
}

// BroadcastToRoom отправляет сообщение всем клиентам в указанной комнате.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal room message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range r.clients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("client send buffer full, message dropped", slog.String("room", roomID))
		}
		client.Mu.Unlock()
	}
}

// RoomCount число комнат хотя бы с одним клиентом.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Join передаёт хабу нового клиента. После остановки хаба возвращает false.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (c *Client) close() {
	c.Mu.Lock()
	if !c.IsClosed {
		close(c.Send)
		c.IsClosed = true
	}
	c.Mu.Unlock()
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket closed unexpectedly", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("websocket write failed", slog.String("room", c.Room), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
