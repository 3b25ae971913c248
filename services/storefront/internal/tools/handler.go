package tools

import (
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 20

// Handler is the HTTP entry point for voice agent tool calls.
type Handler struct {
	logger   apt.Logger
	tlm      *telemetry.HTTP
	registry *ToolRegistry
}

func NewHandler(registry *ToolRegistry, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:   logger,
		tlm:      telemetry.NewHTTP(),
		registry: registry,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tools", func(r chi.Router) {
		r.Get("/", h.ListTools)
		r.Post("/{name}", h.InvokeTool)
	})
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTools")
	defer finish()

	apt.RespondCollection(w, h.registry.Declarations(), "tool")
}

// InvokeTool answers with the tool result as plain text. Tool failures are
// part of the result and still answer 200.
func (h *Handler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.InvokeTool")
	defer finish()

	name := chi.URLParam(r, "name")
	log := h.logger.With("request_id", apt.RequestIDFrom(r.Context()), "tool", name)

	status := http.StatusOK
	if _, ok := h.registry.FindTool(name); !ok {
		status = http.StatusNotFound
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read tool arguments", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result := h.registry.Invoke(r.Context(), name, body)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, result)
}
