package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies an upstream failure for the retry policy.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindOversizedResponse ErrorKind = "oversized_response"
	KindUnavailable       ErrorKind = "unavailable"
	KindRateLimited       ErrorKind = "rate_limited"
	KindAuth              ErrorKind = "auth"
	KindBadRequest        ErrorKind = "bad_request"
)

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindEmptyResponse, KindOversizedResponse, KindUnavailable, KindRateLimited:
		return true
	}
	return false
}

// UpstreamError is a classified failure of the model service.
type UpstreamError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the error class is transient.
func (e *UpstreamError) Retryable() bool { return e.Kind.Retryable() }

// NewStatusError classifies a non-2xx HTTP response from a provider.
func NewStatusError(status int, err error) *UpstreamError {
	return &UpstreamError{Kind: KindForStatus(status), StatusCode: status, Err: err}
}

// KindForStatus maps an HTTP status to a kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindUnavailable
	case status >= 400:
		return KindBadRequest
	}
	return KindUnavailable
}

// Classify maps a transport or provider error to a kind. Unknown errors are
// treated as bad requests so they are not retried blindly.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindUnavailable
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return KindTimeout
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "server_error") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "eof") {
		return KindUnavailable
	}
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return KindRateLimited
	}
	return KindBadRequest
}

// AsUpstream wraps err as an *UpstreamError unless it already is one.
func AsUpstream(err error) *UpstreamError {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}
	return &UpstreamError{Kind: Classify(err), Err: err}
}

// SanitizeError flattens an error message to one bounded line for logs.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
