// Package api implements the HTTP REST API and Prometheus metrics endpoint.
package api

import (
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

// Error codes carried in error responses.
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnavailable       = "SERVICE_UNAVAILABLE"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Response is the standard JSON response envelope.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// FlattenResponse holds the output of a flatten request.
type FlattenResponse struct {
	Strategy flatten.Strategy `json:"strategy"`
	Policy   string           `json:"policy,omitempty"`
	Lines    []string         `json:"lines"`
	Stats    flatten.Stats    `json:"stats"`
}

// ScopeInfo summarizes one scope of the snapshot store.
type ScopeInfo struct {
	Name    string `json:"name"`
	Dirty   bool   `json:"dirty"`
	Lines   int    `json:"lines"`
	History int    `json:"history"`
}

// CompareResponse holds a unified diff between two snapshots.
type CompareResponse struct {
	Scope string `json:"scope"`
	N     int    `json:"n"`
	Diff  string `json:"diff"`
}

// LogStreamEntry is a log record sent via SSE.
type LogStreamEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Attrs   string `json:"attrs,omitempty"`
}
