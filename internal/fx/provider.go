package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Source tags where a rate snapshot came from, so callers and tests can
// tell a live answer from a cached or degraded one.
type Source string

const (
	SourceLive     Source = "live"
	SourceCached   Source = "cached"
	SourceStatic   Source = "static"
	SourceDisabled Source = "disabled"
)

// Snapshot is a set of rates against one base currency.
type Snapshot struct {
	Base   string
	Source Source
	Rates  map[string]float64
}

// Provider resolves rates in priority order: fresh file cache, live fetch,
// static configuration, disabled. Fetch failures never propagate; they
// degrade to the next source.
type Provider struct {
	Live      bool
	Base      string
	APIURL    string
	CachePath string
	MaxAge    time.Duration
	Static    map[string]float64
	HTTP      *http.Client
	Logger    zerolog.Logger
}

// ParseStaticRates decodes a static JSON rate mapping from configuration.
// Invalid JSON is a configuration error, unlike a failed live fetch.
func ParseStaticRates(raw string) (map[string]float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	var data map[string]float64
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil, fmt.Errorf("FX_RATES_JSON must be valid JSON mapping currency -> rate: %w", err)
	}
	rates := make(map[string]float64, len(data))
	for code, rate := range data {
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}

// Rates resolves the current rate snapshot.
func (p *Provider) Rates(ctx context.Context) Snapshot {
	base := strings.ToUpper(p.Base)
	if p.Live {
		if cached, ok := p.loadCache(base); ok {
			p.Logger.Debug().Str("cache", p.CachePath).Str("base", base).Msg("fx: using cached rates")
			return Snapshot{Base: base, Source: SourceCached, Rates: cached}
		}
		if rates := p.fetch(ctx, base); len(rates) > 0 {
			p.saveCache(base, rates)
			p.Logger.Info().Str("url", p.APIURL).Str("base", base).Msg("fx: fetched live rates")
			return Snapshot{Base: base, Source: SourceLive, Rates: rates}
		}
	}
	if len(p.Static) > 0 {
		p.Logger.Debug().Msg("fx: using statically configured rates")
		return Snapshot{Base: base, Source: SourceStatic, Rates: p.Static}
	}
	p.Logger.Debug().Msg("fx: no rates configured, conversion disabled")
	return Snapshot{Base: base, Source: SourceDisabled, Rates: map[string]float64{}}
}

// fetch retrieves live rates. Every failure mode returns nil so the caller
// can degrade; the error is only worth a log line.
func (p *Provider) fetch(ctx context.Context, base string) map[string]float64 {
	client := p.HTTP
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.APIURL, nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		p.Logger.Warn().Err(err).Str("url", p.APIURL).Msg("fx: live fetch failed")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.Logger.Warn().Int("status", resp.StatusCode).Str("url", p.APIURL).Msg("fx: live fetch failed")
		return nil
	}
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.Logger.Warn().Err(err).Str("url", p.APIURL).Msg("fx: malformed rates payload")
		return nil
	}
	if len(payload.Rates) == 0 {
		return nil
	}
	rates := make(map[string]float64, len(payload.Rates)+1)
	for code, rate := range payload.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	if _, ok := rates[base]; !ok {
		rates[base] = 1.0
	}
	return rates
}
