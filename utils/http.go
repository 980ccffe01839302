package utils

import (
	"net/http"
	"time"
)

// DefaultOutboundTimeout bounds every third-party call.
const DefaultOutboundTimeout = 10 * time.Second

// NewHTTPClient returns a client for outbound integrations. A non-positive
// timeout falls back to DefaultOutboundTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultOutboundTimeout
	}
	return &http.Client{Timeout: timeout}
}
