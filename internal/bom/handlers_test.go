package bom_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/bom"
)

func TestEstimateHandler(t *testing.T) {
	handler := bom.Handler{}

	t.Run("valid request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`{"job_type":"cupcakes","quantity":10}`))
		rec := httptest.NewRecorder()
		handler.Estimate(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"labor_hours":0.5`)
	})

	t.Run("unknown job type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`{"job_type":"scones","quantity":10}`))
		rec := httptest.NewRecorder()
		handler.Estimate(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "UNKNOWN_JOB_TYPE")
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`{"job_type":"cake","quantity":0}`))
		rec := httptest.NewRecorder()
		handler.Estimate(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("job types", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/job-types", nil)
		rec := httptest.NewRecorder()
		handler.JobTypes(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `["cupcakes","cake","pastry_box"]`, rec.Body.String())
	})
}
