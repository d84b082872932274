package materials

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/bakery-quote/internal/common"
)

type costStore interface {
	Get(ctx context.Context, name string) (MaterialCost, error)
	List(ctx context.Context) ([]MaterialCost, error)
	UpdateCost(ctx context.Context, name string, unitCost float64) error
}

// Handler exposes the admin material endpoints.
type Handler struct {
	Store costStore
}

// List handles GET /api/v1/admin/materials.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []MaterialCost{}
	}
	common.JSONData(w, http.StatusOK, rows)
}

// Get handles GET /api/v1/admin/materials/{name}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := h.Store.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "material not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, m)
}

// UpdateCostRequest is the body of PATCH /api/v1/admin/materials/{name}.
type UpdateCostRequest struct {
	UnitCost float64 `json:"unit_cost"`
}

// UpdateCost handles PATCH /api/v1/admin/materials/{name}.
func (h *Handler) UpdateCost(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req UpdateCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.UnitCost < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unit_cost must not be negative", nil)
		return
	}
	if err := h.Store.UpdateCost(r.Context(), name, req.UnitCost); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "material not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	m, err := h.Store.Get(r.Context(), name)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, m)
}
