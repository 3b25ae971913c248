package agent

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	logger  apt.Logger
	tlm     *telemetry.HTTP
	builder *Builder
}

func NewHandler(builder *Builder, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
		builder: builder,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agent/config", h.GetConfig)
}

// GetConfig handles GET /agent/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetConfig")
	defer finish()

	cfg, err := h.builder.Build()
	if err != nil {
		h.logger.Error("cannot build agent config", "request_id", apt.RequestIDFrom(r.Context()), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not build agent configuration")
		return
	}

	apt.RespondSuccess(w, cfg)
}
