package fx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/fx"
)

func TestConvert(t *testing.T) {
	rates := map[string]float64{"GBP": 1.0, "USD": 1.27, "EUR": 1.17}

	t.Run("identity", func(t *testing.T) {
		got, err := fx.Convert(10, "GBP", "GBP", nil)
		require.NoError(t, err)
		require.Equal(t, 10.0, got)
	})

	t.Run("ratio", func(t *testing.T) {
		got, err := fx.Convert(100, "GBP", "USD", rates)
		require.NoError(t, err)
		require.InDelta(t, 127.0, got, 1e-9)

		back, err := fx.Convert(got, "USD", "GBP", rates)
		require.NoError(t, err)
		require.InDelta(t, 100.0, back, 1e-9)
	})

	t.Run("case insensitive codes", func(t *testing.T) {
		got, err := fx.Convert(100, "gbp", "usd", rates)
		require.NoError(t, err)
		require.InDelta(t, 127.0, got, 1e-9)
	})

	t.Run("missing rate", func(t *testing.T) {
		_, err := fx.Convert(5, "GBP", "JPY", rates)
		require.Error(t, err)
		var missing *fx.MissingRateError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "JPY", missing.To)
	})
}

func TestParseStaticRates(t *testing.T) {
	rates, err := fx.ParseStaticRates(`{"gbp": 1.0, "usd": 1.27}`)
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"GBP": 1.0, "USD": 1.27}, rates)

	rates, err = fx.ParseStaticRates("  ")
	require.NoError(t, err)
	require.Nil(t, rates)

	_, err = fx.ParseStaticRates(`{"gbp": "oops"}`)
	require.Error(t, err)
}

func TestRatesDisabledWhenUnconfigured(t *testing.T) {
	p := &fx.Provider{Base: "GBP"}
	snap := p.Rates(context.Background())
	require.Equal(t, fx.SourceDisabled, snap.Source)
	require.Empty(t, snap.Rates)
}

func TestRatesStaticFallback(t *testing.T) {
	p := &fx.Provider{Base: "GBP", Static: map[string]float64{"GBP": 1.0, "USD": 1.27}}
	snap := p.Rates(context.Background())
	require.Equal(t, fx.SourceStatic, snap.Source)
	require.InDelta(t, 1.27, snap.Rates["USD"], 1e-9)
}

func TestRatesLiveFetchAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rates": map[string]float64{"usd": 1.27, "eur": 1.17},
		})
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "fx_cache.json")
	p := &fx.Provider{
		Live:      true,
		Base:      "GBP",
		APIURL:    srv.URL,
		CachePath: cachePath,
		MaxAge:    time.Hour,
		HTTP:      srv.Client(),
	}

	snap := p.Rates(context.Background())
	require.Equal(t, fx.SourceLive, snap.Source)
	// Base injected at 1.0 when the payload omits it.
	require.InDelta(t, 1.0, snap.Rates["GBP"], 1e-9)
	require.InDelta(t, 1.27, snap.Rates["USD"], 1e-9)
	require.FileExists(t, cachePath)

	// Second call is served from the cache snapshot.
	snap = p.Rates(context.Background())
	require.Equal(t, fx.SourceCached, snap.Source)
	require.Equal(t, 1, calls)
}

func TestRatesCacheIgnoredWhenStaleOrWrongBase(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "fx_cache.json")
	stale := map[string]any{
		"base":      "GBP",
		"timestamp": time.Now().Add(-2 * time.Hour).Unix(),
		"rates":     map[string]float64{"USD": 1.27, "GBP": 1.0},
	}
	raw, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cachePath, raw, 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"rates": map[string]float64{"usd": 1.30}})
	}))
	defer srv.Close()

	p := &fx.Provider{
		Live:      true,
		Base:      "GBP",
		APIURL:    srv.URL,
		CachePath: cachePath,
		MaxAge:    time.Hour,
		HTTP:      srv.Client(),
	}
	snap := p.Rates(context.Background())
	require.Equal(t, fx.SourceLive, snap.Source)
	require.InDelta(t, 1.30, snap.Rates["USD"], 1e-9)
}

func TestRatesNetworkFailureDegradesSilently(t *testing.T) {
	p := &fx.Provider{
		Live:   true,
		Base:   "GBP",
		APIURL: "http://127.0.0.1:1/latest/GBP",
	}
	snap := p.Rates(context.Background())
	require.Equal(t, fx.SourceDisabled, snap.Source)
	require.Empty(t, snap.Rates)

	// With static rates configured the failure degrades there instead.
	p.Static = map[string]float64{"GBP": 1.0}
	snap = p.Rates(context.Background())
	require.Equal(t, fx.SourceStatic, snap.Source)
}
