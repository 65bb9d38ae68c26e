package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct ErrorCategory
// for metrics labeling, including typed errors, wrapped errors, and message-based heuristics.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"wrapped timeout", fmt.Errorf("weather: request timeout: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"rate limited status", &StatusError{Provider: ProviderCrypto, StatusCode: http.StatusTooManyRequests}, ErrorCategoryRateLimited},
		{"bad request status", &StatusError{Provider: ProviderCrypto, StatusCode: http.StatusBadRequest}, ErrorCategoryUpstream4xx},
		{"server error status", fmt.Errorf("wrapped: %w", &StatusError{Provider: ProviderWeather, StatusCode: http.StatusBadGateway}), ErrorCategoryUpstream5xx},
		{"bare upstream failure", ErrUpstreamFailure, ErrorCategoryUpstream5xx},
		{"content type", fmt.Errorf("%w: text/html", ErrUnexpectedContentType), ErrorCategoryContentType},
		{"missing field", missingField(ProviderExchange, "rates.NOK"), ErrorCategoryParsing},
		{"syntax error", &ParseError{Provider: ProviderNews, Err: errors.New("unexpected EOF")}, ErrorCategoryParsing},
		{"network in message", errors.New("connection refused"), ErrorCategoryNetwork},
		{"cache in message", errors.New("cache get failed"), ErrorCategoryCache},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusError_Is(t *testing.T) {
	err := error(&StatusError{Provider: ProviderWeather, StatusCode: http.StatusServiceUnavailable})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Error("StatusError should match ErrUpstreamFailure")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("503 StatusError should not match ErrRateLimited")
	}
	if !errors.Is(&StatusError{StatusCode: http.StatusTooManyRequests}, ErrRateLimited) {
		t.Error("429 StatusError should match ErrRateLimited")
	}
}
