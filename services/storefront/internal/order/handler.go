package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 20

// Handler exposes the order store to the storefront UI. The UI goes through
// the same store operations as the voice tools.
type Handler struct {
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
	store  *Store
}

type HandlerDeps struct {
	Store *Store
}

type AddItemRequest struct {
	ID                  string `json:"id"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions"`
}

type UpdateLineRequest struct {
	Quantity            *int    `json:"quantity"`
	SpecialInstructions *string `json:"specialInstructions"`
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
		store:  hd.Store,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/order", func(r chi.Router) {
		r.Get("/", h.GetOrder)
		r.Delete("/", h.ClearOrder)
		r.Get("/history", h.ListHistory)

		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.AddItem)
			r.Patch("/{id}", h.UpdateLine)
			r.Delete("/{id}", h.RemoveItem)
		})
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	apt.RespondSuccess(w, h.store.Current())
}

func (h *Handler) ClearOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ClearOrder")
	defer finish()

	o := h.store.Clear(r.Context())
	h.log(r).Info("order cleared by customer")
	apt.RespondSuccess(w, o)
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListHistory")
	defer finish()

	orders, err := h.store.History(r.Context())
	if err != nil {
		h.log(r).Error("cannot list order history", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not read order history")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddItem")
	defer finish()

	log := h.log(r)

	var req AddItemRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if strings.TrimSpace(req.ID) == "" {
		apt.RespondError(w, http.StatusBadRequest, "id is required")
		return
	}

	o, err := h.store.AddItem(r.Context(), req.ID, req.Quantity, req.SpecialInstructions)
	if err != nil {
		h.respondStoreError(w, log, err)
		return
	}

	apt.RespondSuccess(w, o)
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateLine")
	defer finish()

	log := h.log(r)
	id := chi.URLParam(r, "id")

	var req UpdateLineRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if req.Quantity == nil && req.SpecialInstructions == nil {
		apt.RespondError(w, http.StatusBadRequest, "quantity or specialInstructions is required")
		return
	}

	scope := instructionsScope(r)
	o := h.store.Current()
	var err error

	if req.Quantity != nil {
		o, err = h.store.UpdateQuantity(r.Context(), id, *req.Quantity, scope...)
		if err != nil {
			h.respondStoreError(w, log, err)
			return
		}
	}

	if req.SpecialInstructions != nil && (req.Quantity == nil || *req.Quantity > 0) {
		o, err = h.store.UpdateInstructions(r.Context(), id, *req.SpecialInstructions, scope...)
		if err != nil {
			h.respondStoreError(w, log, err)
			return
		}
	}

	apt.RespondSuccess(w, o)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveItem")
	defer finish()

	o, err := h.store.RemoveItem(r.Context(), chi.URLParam(r, "id"), instructionsScope(r)...)
	if err != nil {
		h.respondStoreError(w, h.log(r), err)
		return
	}

	apt.RespondSuccess(w, o)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, log apt.Logger, err error) {
	switch {
	case errors.Is(err, ErrUnknownItem), errors.Is(err, ErrUnavailableItem), errors.Is(err, ErrInvalidPrice):
		log.Debug("item rejected", "error", err)
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLineNotFound):
		apt.RespondError(w, http.StatusNotFound, err.Error())
	default:
		log.Error("order operation failed", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
	}
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

// instructionsScope narrows an operation to one line when the request names
// its instructions, including the empty ones.
func instructionsScope(r *http.Request) []string {
	q := r.URL.Query()
	if !q.Has("instructions") {
		return nil
	}
	return []string{q.Get("instructions")}
}
