package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
)

// Provider names, used as metric labels and in error messages.
const (
	ProviderWeather  = "weather"
	ProviderCrypto   = "crypto"
	ProviderExchange = "exchange"
	ProviderNews     = "news"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 4 << 20

var (
	ErrUpstreamFailure       = errors.New("upstream failure")
	ErrRateLimited           = errors.New("rate limited")
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrMissingField          = errors.New("missing required field")
)

// StatusError is returned when an upstream answers outside the 2xx range.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}

// Is lets callers match StatusError against ErrUpstreamFailure, and 429s
// against ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUpstreamFailure:
		return true
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// ParseError is returned when an upstream body cannot be decoded or lacks a
// required field. Field is empty for syntax errors.
type ParseError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse %s response: %s: %v", e.Provider, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func missingField(provider, field string) *ParseError {
	return &ParseError{Provider: provider, Field: field, Err: ErrMissingField}
}

// response is a fully read upstream reply.
type response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the reply declared a JSON media type.
func (r *response) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(r.ContentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// upstream performs GET requests against one provider and records metrics.
// No retries: a failed call is reported and abandoned until the next cycle.
type upstream struct {
	provider  string
	baseURL   string
	userAgent string
	client    *http.Client
}

func newUpstream(provider, baseURL, userAgent string, timeout time.Duration) (*upstream, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid API URL: %w", provider, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid API URL %q", provider, baseURL)
	}
	return &upstream{
		provider:  provider,
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// get issues GET baseURL?params with the given headers. The reply is returned
// for any status; transport failures are returned as errors.
func (u *upstream) get(ctx context.Context, params url.Values, headers map[string]string) (*response, error) {
	start := time.Now()

	req, err := u.buildRequest(ctx, params, headers)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(u.provider, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(u.provider, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(u.provider, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s: request timeout: %w", u.provider, err)
		}
		return nil, fmt.Errorf("%s: http request failed: %w", u.provider, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(u.provider, status).Inc()
	observability.UpstreamDuration.WithLabelValues(u.provider, status).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response body: %w", u.provider, err)
	}
	return &response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// getOK is get plus the 2xx check.
func (u *upstream) getOK(ctx context.Context, params url.Values, headers map[string]string) (*response, error) {
	resp, err := u.get(ctx, params, headers)
	if err != nil {
		return nil, err
	}
	if err := u.checkStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// fail counts err under its category and returns it unchanged.
func (u *upstream) fail(err error) error {
	if err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(u.provider, string(CategorizeError(err))).Inc()
	}
	return err
}

func (u *upstream) checkStatus(resp *response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Provider: u.provider, StatusCode: resp.StatusCode}
	}
	return nil
}

func (u *upstream) buildRequest(ctx context.Context, params url.Values, headers map[string]string) (*http.Request, error) {
	base, err := url.Parse(u.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if len(params) > 0 {
		q := base.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		base.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
