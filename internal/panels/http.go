package panels

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"revenda-crm/internal/proxy"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// newHTTPClient builds the outbound client for one adapter instance.
// Redirects are never followed: several panels encode login success or
// failure in the redirect target, so a 3xx is a terminal response to
// inspect, not a hop to chase.
func newHTTPClient(timeout time.Duration, rotator *proxy.Rotator) *http.Client {
	transport := &http.Transport{}
	if rotator != nil {
		// Proxy selection is per request, not per session.
		transport.Proxy = rotator.ProxyFunc()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// rest is the shared request plumbing for panel adapters. One instance per
// adapter, sharing the factory-wide rate limiter.
type rest struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func (r *rest) url(path string) string {
	return strings.TrimSuffix(r.baseURL, "/") + path
}

func (r *rest) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiting")
		}
	}

	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	return r.httpClient.Do(req)
}

func newJSONRequest(ctx context.Context, url string, body interface{}) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func decodeJSONBody(resp *http.Response, out interface{}) (int, error) {
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, "read response")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// Error statuses often carry HTML or empty bodies; the caller
		// keys on the status in that case.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, errors.Wrapf(err, "decode response (status %d)", resp.StatusCode)
	}

	return resp.StatusCode, nil
}

// postJSON sends a JSON body and decodes the JSON response into out. The
// response status is returned for callers that key on it. Non-JSON bodies
// are tolerated when out is nil.
func (r *rest) postJSON(ctx context.Context, path, bearer string, body, out interface{}) (int, error) {
	req, err := newJSONRequest(ctx, r.url(path), body)
	if err != nil {
		return 0, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := r.do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return decodeJSONBody(resp, out)
}

// postForm sends a form-encoded body with optional session cookies and
// returns the raw response. Caller owns the body.
func (r *rest) postForm(ctx context.Context, path string, form url.Values, cookies []*http.Cookie) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", strings.TrimSuffix(r.baseURL, "/"))
	req.Header.Set("Referer", strings.TrimSuffix(r.baseURL, "/")+"/")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	return r.do(ctx, req)
}

// getJSON issues an authenticated GET and decodes the JSON response.
func (r *rest) getJSON(ctx context.Context, path, bearer string, cookies []*http.Cookie, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(path), nil)
	if err != nil {
		return 0, errors.Wrap(err, "build request")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := r.do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return decodeJSONBody(resp, out)
}
