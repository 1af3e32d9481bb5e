package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// EventHandler streams lifecycle events over SSE
type EventHandler struct {
	hub       *services.EventHub
	heartbeat time.Duration
	log       *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(hub *services.EventHub, log *zap.Logger) *EventHandler {
	return &EventHandler{
		hub:       hub,
		heartbeat: 30 * time.Second,
		log:       log,
	}
}

// ============================================================
// GET /api/v1/events/stream
// ============================================================

// Stream opens an SSE stream. Signed-in callers receive events about their
// own donations and claims; anonymous callers receive the public feed.
// @Summary Event stream
// @Description Server-sent events. Pass access_token as a query parameter when cookies are unavailable.
// @Tags Events
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /events/stream [get]
func (h *EventHandler) Stream(c *fiber.Ctx) error {
	client := &services.EventClient{
		ID:      uuid.NewString(),
		Channel: make(chan domain.Event, 50),
	}
	if actor, ok := middleware.GetActor(c); ok {
		client.UserID = actor.UserID
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	h.hub.Register(client)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unregister(client.ID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q,\"user_id\":%d}\n\n", client.ID, client.UserID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(h.heartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					h.log.Warn("sse write failed", zap.String("client_id", client.ID), zap.Error(err))
					return
				}
				if err := w.Flush(); err != nil {
					return
				}

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					h.log.Debug("sse client disconnected", zap.String("client_id", client.ID))
					return
				}
			}
		}
	}))

	return nil
}

// writeEvent writes one SSE frame: the event type, its id and JSON data
func writeEvent(w *bufio.Writer, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
	return err
}
