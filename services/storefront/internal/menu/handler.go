package menu

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/taqueria/pkg/enums/category"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
	"github.com/go-chi/chi/v5"
)

// Items lists the catalog.
type Items interface {
	All() []catalog.Item
}

type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Available   bool   `json:"available"`
	Highlighted bool   `json:"highlighted"`
}

type Section struct {
	Code  string  `json:"code"`
	Label string  `json:"label"`
	Items []Entry `json:"items"`
}

type View struct {
	Sections  []Section  `json:"sections"`
	Highlight *Highlight `json:"highlight,omitempty"`
}

type Handler struct {
	logger apt.Logger
	tlm    *telemetry.HTTP
	items  Items
	board  *Board
}

func NewHandler(items Items, board *Board, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger: logger,
		tlm:    telemetry.NewHTTP(),
		items:  items,
		board:  board,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.GetMenu)
}

// GetMenu handles GET /menu
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetMenu")
	defer finish()

	apt.RespondSuccess(w, h.View())
}

// View groups the catalog by category, in menu order, and flags the
// highlighted product.
func (h *Handler) View() View {
	var view View
	highlighted := ""
	if h.board != nil {
		if hl, ok := h.board.Current(); ok {
			view.Highlight = &hl
			highlighted = hl.ProductID
		}
	}

	bySection := make(map[string][]Entry)
	for _, item := range h.items.All() {
		bySection[item.Category] = append(bySection[item.Category], Entry{
			ID:          item.ID,
			Name:        item.Name,
			Price:       order.FormatAmount(item.Price),
			Available:   item.Available,
			Highlighted: item.ID == highlighted,
		})
	}

	view.Sections = make([]Section, 0, len(category.All))
	for _, c := range category.All {
		entries := bySection[c.Code()]
		if len(entries) == 0 {
			continue
		}
		view.Sections = append(view.Sections, Section{Code: c.Code(), Label: c.Label, Items: entries})
	}
	return view
}
