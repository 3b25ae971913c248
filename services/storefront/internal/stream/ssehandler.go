package stream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/bus"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	// BufferSize bounds the events queued for a slow browser. Events beyond it are dropped.
	BufferSize = 64

	KeepaliveInterval = 30 * time.Second
)

// Listener hands out scoped bus subscriptions.
type Listener interface {
	Listen(topic string, handler events.HandlerFunc) *bus.Subscription
}

type message struct {
	topic string
	data  []byte
}

// SSEHandler streams storefront bus events to browsers.
type SSEHandler struct {
	listener  Listener
	topics    []string
	keepalive time.Duration
	logger    apt.Logger
	clients   atomic.Int64
}

func NewSSEHandler(listener Listener, logger apt.Logger) *SSEHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SSEHandler{
		listener:  listener,
		topics:    event.Topics,
		keepalive: KeepaliveInterval,
		logger:    logger,
	}
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.ServeHTTP)
}

// Clients returns the number of connected browsers.
func (h *SSEHandler) Clients() int {
	return int(h.clients.Load())
}

// ServeHTTP implements http.Handler for SSE endpoint
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	log := h.logger.With("subscriber_id", subscriberID)
	log.Info("new SSE connection")

	h.clients.Add(1)
	defer h.clients.Add(-1)

	queue := make(chan message, BufferSize)
	subs := h.subscribe(r.Context(), queue, log)
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flush(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case msg := <-queue:
			sendSSEEvent(w, msg.topic, string(msg.data))
		}
	}
}

// subscribe registers one handler per topic that queues without blocking, so
// a slow browser never stalls the publisher.
func (h *SSEHandler) subscribe(ctx context.Context, queue chan<- message, log apt.Logger) []*bus.Subscription {
	subs := make([]*bus.Subscription, 0, len(h.topics))
	for _, topic := range h.topics {
		topic := topic
		subs = append(subs, h.listener.Listen(topic, func(_ context.Context, data []byte) error {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case queue <- message{topic: topic, data: data}:
			default:
				log.Info("SSE buffer full, event dropped", "topic", topic)
			}
			return nil
		}))
	}
	return subs
}

// sendSSEEvent sends an SSE event with properly formatted multi-line data
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)
	if data == "" {
		data = "{}"
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
