package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/bus"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 16

type Handler struct {
	logger    apt.Logger
	tlm       *telemetry.HTTP
	session   *Session
	publisher events.Publisher
}

type HandlerDeps struct {
	Session   *Session
	Publisher events.Publisher
}

type FieldRequest struct {
	Value string `json:"value"`
}

func NewHandler(hd HandlerDeps, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
		session:   hd.Session,
		publisher: hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", h.GetCheckout)
		r.Put("/contact/{field}", h.SetContactField)
		r.Post("/complete", h.Complete)
	})
	r.Post("/session/end", h.EndSession)
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetCheckout")
	defer finish()

	apt.RespondSuccess(w, h.session.State())
}

func (h *Handler) SetContactField(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetContactField")
	defer finish()

	raw := chi.URLParam(r, "field")
	f, ok := ParseField(raw)
	if !ok {
		apt.RespondError(w, http.StatusBadRequest, "Unknown contact field: "+raw)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req FieldRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.log(r).Debug("failed to decode contact field", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	apt.RespondSuccess(w, h.session.SetField(f, req.Value))
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Complete")
	defer finish()

	log := h.log(r)

	state, err := h.session.Confirm(r.Context())
	switch {
	case errors.Is(err, order.ErrEmptyOrder):
		apt.RespondError(w, http.StatusConflict, "There is no active order to register")
		return
	case errors.Is(err, ErrContactIncomplete):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "Contact information is incomplete",
			"fields": state.Errors,
		})
		return
	case err != nil:
		log.Error("cannot complete checkout", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not complete checkout")
		return
	}

	log.Info("checkout completed from storefront")
	apt.RespondSuccess(w, state)
}

// EndSession signals the end of the voice call.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.EndSession")
	defer finish()

	if err := bus.PublishJSON(r.Context(), h.publisher, event.CallEnded, map[string]string{}); err != nil {
		h.log(r).Error("cannot signal call end", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not end session")
		return
	}

	apt.RespondSuccess(w, h.session.State())
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
