package fx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// cachePayload is the on-disk snapshot format. One file per process,
// last-writer-wins; staleness is bounded by MaxAge.
type cachePayload struct {
	Base      string             `json:"base"`
	Timestamp int64              `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
}

// loadCache returns cached rates when the snapshot matches the base and is
// younger than MaxAge. Any read or decode problem means a cache miss.
func (p *Provider) loadCache(base string) (map[string]float64, bool) {
	if p.CachePath == "" || p.MaxAge <= 0 {
		return nil, false
	}
	raw, err := os.ReadFile(p.CachePath)
	if err != nil {
		return nil, false
	}
	var payload cachePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if strings.ToUpper(payload.Base) != base {
		return nil, false
	}
	age := time.Since(time.Unix(payload.Timestamp, 0))
	if age > p.MaxAge {
		return nil, false
	}
	rates := make(map[string]float64, len(payload.Rates))
	for code, rate := range payload.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	if len(rates) == 0 {
		return nil, false
	}
	return rates, true
}

// saveCache writes a fresh snapshot. Best effort: a failed write only
// costs the next request a live fetch.
func (p *Provider) saveCache(base string, rates map[string]float64) {
	if p.CachePath == "" {
		return
	}
	payload := cachePayload{
		Base:      base,
		Timestamp: time.Now().Unix(),
		Rates:     rates,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if dir := filepath.Dir(p.CachePath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	if err := os.WriteFile(p.CachePath, raw, 0o644); err != nil {
		p.Logger.Warn().Err(err).Str("cache", p.CachePath).Msg("fx: cache write failed")
	}
}
