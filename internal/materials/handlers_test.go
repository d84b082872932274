package materials_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/materials"
)

type fakeStore struct {
	rows map[string]materials.MaterialCost
}

func (f *fakeStore) Get(_ context.Context, name string) (materials.MaterialCost, error) {
	m, ok := f.rows[name]
	if !ok {
		return materials.MaterialCost{}, materials.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) List(_ context.Context) ([]materials.MaterialCost, error) {
	out := make([]materials.MaterialCost, 0, len(f.rows))
	for _, m := range f.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) UpdateCost(_ context.Context, name string, unitCost float64) error {
	m, ok := f.rows[name]
	if !ok {
		return materials.ErrNotFound
	}
	m.UnitCost = unitCost
	f.rows[name] = m
	return nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]materials.MaterialCost{
		"flour": {Name: "flour", Unit: "kg", UnitCost: 1.20, Currency: "GBP"},
		"sugar": {Name: "sugar", Unit: "kg", UnitCost: 0.90, Currency: "GBP"},
	}}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func TestMaterialsList(t *testing.T) {
	handler := &materials.Handler{Store: newFakeStore()}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/materials", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Less(t, strings.Index(body, "flour"), strings.Index(body, "sugar"))
}

func TestMaterialsUpdateCost(t *testing.T) {
	store := newFakeStore()
	handler := &materials.Handler{Store: store}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/materials/flour", strings.NewReader(`{"unit_cost":1.35}`))
	req = withURLParam(req, "name", "flour")
	rec := httptest.NewRecorder()
	handler.UpdateCost(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.InDelta(t, 1.35, store.rows["flour"].UnitCost, 1e-9)
}

func TestMaterialsUpdateCostNotFound(t *testing.T) {
	handler := &materials.Handler{Store: newFakeStore()}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/materials/saffron", strings.NewReader(`{"unit_cost":9.99}`))
	req = withURLParam(req, "name", "saffron")
	rec := httptest.NewRecorder()
	handler.UpdateCost(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestMaterialsUpdateCostRejectsNegative(t *testing.T) {
	handler := &materials.Handler{Store: newFakeStore()}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/materials/flour", strings.NewReader(`{"unit_cost":-1}`))
	req = withURLParam(req, "name", "flour")
	rec := httptest.NewRecorder()
	handler.UpdateCost(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
