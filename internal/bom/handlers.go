package bom

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/bakery-quote/internal/common"
)

// Handler exposes the estimate service endpoints.
type Handler struct{}

// EstimateRequest is the body of POST /estimate.
type EstimateRequest struct {
	JobType  string `json:"job_type"`
	Quantity int    `json:"quantity"`
}

// JobTypes handles GET /job-types.
func (Handler) JobTypes(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, JobTypes())
}

// Estimate handles POST /estimate.
func (Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Quantity <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "quantity must be > 0", nil)
		return
	}
	estimate, err := Scale(req.JobType, req.Quantity)
	if err != nil {
		var unknown *UnknownJobTypeError
		if errors.As(err, &unknown) {
			common.JSONError(w, http.StatusBadRequest, "UNKNOWN_JOB_TYPE", unknown.Error(), nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, estimate)
}

// Healthz handles GET /healthz.
func (Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
