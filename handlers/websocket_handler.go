package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dosada05/contest-hub/live"
	"github.com/Dosada05/contest-hub/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub            *live.Hub
	contestService services.ContestService
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketHandler принимает соединения только с перечисленных origin, а также
// запросы без заголовка Origin от небраузерных клиентов.
func NewWebSocketHandler(hub *live.Hub, cs services.ContestService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return &WebSocketHandler{
		hub:            hub,
		contestService: cs,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if allowed[strings.ToLower(origin)] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// ServeWs обрабатывает GET /ws/contests/{id}. Комната соответствует конкурсу.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	contestID := idParam(r, "id")
	if contestID == "" {
		http.Error(w, "missing contest id", http.StatusBadRequest)
		return
	}

	if _, err := h.contestService.Countdown(r.Context(), contestID); err != nil {
		if errors.Is(err, services.ErrContestNotFound) || errors.Is(err, services.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Warn("websocket refused: contest unavailable", slog.String("contest_id", contestID), slog.Any("error", err))
		http.Error(w, services.ErrUpstream.Error(), http.StatusBadGateway)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту ошибкой
		h.logger.Debug("websocket upgrade failed", slog.String("contest_id", contestID), slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: contestID,
	}
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
