package menu

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/go-chi/chi/v5"
)

func TestHandlerView(t *testing.T) {
	board, b := newTestBoard(t, time.Minute)
	h := NewHandler(catalog.New(catalog.Defaults()), board, nil)

	view := h.View()
	if len(view.Sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(view.Sections))
	}

	wantSections := []struct {
		code  string
		items int
	}{
		{code: "taco", items: 5},
		{code: "beverage", items: 3},
		{code: "extra", items: 4},
	}
	for i, want := range wantSections {
		got := view.Sections[i]
		if got.Code != want.code || len(got.Items) != want.items {
			t.Errorf("section %d = %s with %d items, want %s with %d", i, got.Code, len(got.Items), want.code, want.items)
		}
	}
	if view.Sections[0].Items[0].Price != "15.00" {
		t.Errorf("first price = %s, want 15.00", view.Sections[0].Items[0].Price)
	}
	if view.Highlight != nil {
		t.Error("no highlight expected")
	}

	highlight(t, b, "agua-jamaica")
	view = h.View()
	if view.Highlight == nil || view.Highlight.ProductID != "agua-jamaica" {
		t.Fatalf("highlight = %+v", view.Highlight)
	}

	flagged := 0
	for _, s := range view.Sections {
		for _, e := range s.Items {
			if e.Highlighted {
				flagged++
				if e.ID != "agua-jamaica" {
					t.Errorf("highlighted %s, want agua-jamaica", e.ID)
				}
			}
		}
	}
	if flagged != 1 {
		t.Errorf("highlighted entries = %d, want 1", flagged)
	}
}

func TestHandlerGetMenu(t *testing.T) {
	h := NewHandler(catalog.New(catalog.Defaults()), nil, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menu", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
