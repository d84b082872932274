package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/common"
	"github.com/noah-isme/bakery-quote/internal/pricing"
)

// Handler wires the quote service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	// OutDir is where generated quote documents are served from.
	OutDir string
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New(), OutDir: svc.cfg.OutputDir}
}

// Download serves a generated quote document by filename.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid filename", nil)
		return
	}
	path := filepath.Join(h.OutDir, name)
	if _, err := os.Stat(path); err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "document not found", nil)
		return
	}
	http.ServeFile(w, r, path)
}

// JobTypes lists orderable products.
func (h *Handler) JobTypes(w http.ResponseWriter, r *http.Request) {
	names, source := h.Svc.JobTypes(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"job_types": names,
			"source":    string(source),
		},
	})
}

// Preview computes a quote without issuing it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Preview(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Create issues a quote: documents are written and delivery dispatched.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": q})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return Request{}, false
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote request", validationDetails(err))
		return Request{}, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var missing *pricing.MissingMaterialsError
	if errors.As(err, &missing) {
		common.JSONError(w, http.StatusUnprocessableEntity, "MISSING_MATERIALS", err.Error(), map[string]any{
			"materials": missing.Names,
		})
		return
	}
	var unreachable *bom.UnreachableError
	if errors.As(err, &unreachable) {
		common.JSONError(w, http.StatusBadGateway, "BOM_UNAVAILABLE", err.Error(), nil)
		return
	}
	var status *bom.StatusError
	if errors.As(err, &status) {
		if status.StatusCode >= 400 && status.StatusCode < 500 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "BOM_UNAVAILABLE", err.Error(), nil)
		return
	}
	common.WriteError(w, err)
}

func validationDetails(err error) map[string]any {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return details
}
