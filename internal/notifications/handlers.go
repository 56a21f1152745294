package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/events"
	"github.com/aristath/stockfolio/internal/utils"
)

const (
	defaultFeedLimit = 20
	streamBuffer     = 32
	writeTimeout     = 5 * time.Second
)

// Handler serves the notification feed and live stream
type Handler struct {
	service *Service
	bus     *events.Bus
	log     zerolog.Logger
}

// NewHandler creates a new notification handler
func NewHandler(service *Service, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		bus:     bus,
		log:     log.With().Str("handler", "notifications").Logger(),
	}
}

// RegisterRoutes registers notification routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/ws", h.HandleStream)
	})
}

// HandleList handles GET /api/notifications?limit=N
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.WriteServiceError(w, h.log, domain.NewValidationError("limit must be a positive integer, got %q", raw))
			return
		}
		limit = min(n, FeedCapacity)
	}
	utils.WriteJSON(w, http.StatusOK, h.service.Recent(limit))
}

// HandleStream handles GET /api/notifications/ws.
// Frames are JSON text by default, msgpack binary with ?encoding=msgpack.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	binary := r.URL.Query().Get("encoding") == "msgpack"

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// The stream is write-only; CloseRead handles pings and ends ctx when the peer goes away
	ctx := conn.CloseRead(r.Context())

	ch, unsubscribe := h.bus.Subscribe(streamBuffer)
	defer unsubscribe()

	h.log.Debug().Bool("msgpack", binary).Msg("Notification stream opened")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			data, isNotification := ev.Data.(*events.NotificationData)
			if !isNotification {
				continue
			}
			if err := h.write(ctx, conn, data, binary); err != nil {
				h.log.Debug().Err(err).Msg("Notification stream closed")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, n *events.NotificationData, binary bool) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if binary {
		payload, err := msgpack.Marshal(n)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageBinary, payload)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
