package bom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UnreachableError reports that the estimate service could not be
// contacted at all.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cannot reach BOM API at %s: %v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// StatusError reports a non-200 answer from the estimate service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("BOM API error %d: %s", e.StatusCode, e.Body)
}

// JobTypesSource tags where a job-type listing came from, so callers can
// tell a live answer from the degraded fallback.
type JobTypesSource string

const (
	JobTypesLive     JobTypesSource = "live"
	JobTypesFallback JobTypesSource = "fallback"
)

// Client consumes the estimate service over HTTP. Estimate failures are
// hard errors; the job-type listing degrades to the fixed fallback list.
type Client struct {
	BaseURL         string
	HTTP            *http.Client
	EstimateTimeout time.Duration
	JobTypesTimeout time.Duration
}

// Estimate requests a scaled bill of materials. A quote cannot be computed
// without it, so any transport or HTTP failure is returned to the caller.
func (c *Client) Estimate(ctx context.Context, jobType string, quantity int) (Estimate, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/estimate"
	body, err := json.Marshal(EstimateRequest{JobType: jobType, Quantity: quantity})
	if err != nil {
		return Estimate{}, err
	}
	timeout := c.EstimateTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Estimate{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Estimate{}, &UnreachableError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Estimate{}, fmt.Errorf("read BOM API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	var estimate Estimate
	if err := json.Unmarshal(payload, &estimate); err != nil {
		return Estimate{}, fmt.Errorf("decode BOM API response: %w", err)
	}
	return estimate, nil
}

// JobTypes lists the job types the estimate service knows about. Any
// failure degrades to the fixed fallback list used for input validation.
func (c *Client) JobTypes(ctx context.Context) ([]string, JobTypesSource) {
	url := strings.TrimRight(c.BaseURL, "/") + "/job-types"
	timeout := c.JobTypesTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return FallbackJobTypes(), JobTypesFallback
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return FallbackJobTypes(), JobTypesFallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return FallbackJobTypes(), JobTypesFallback
	}
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil || len(names) == 0 {
		return FallbackJobTypes(), JobTypesFallback
	}
	return names, JobTypesLive
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
