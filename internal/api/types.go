package api

import (
	"github.com/jfapp/reactix/internal/session"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidMode   = "invalid_mode"
	ErrTypeInvalidInput  = "invalid_input"
	ErrTypeInvalidBoost  = "invalid_boost"
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"

	// Run-related errors
	ErrTypeRunNotFound = "run_not_found"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryRun        ErrorCategory = "run"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidMode, ErrTypeInvalidInput, ErrTypeInvalidBoost, ErrTypeInvalidParams, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeRunNotFound:
		return CategoryRun
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
	GoVersion     string `json:"go_version"`
}

// StartRunRequest starts a run. An empty seed picks one.
type StartRunRequest struct {
	Mode string `json:"mode"`
	Seed string `json:"seed,omitempty"`
}

// TapRequest is a tap; an empty color is a tap on no colored target.
type TapRequest struct {
	Color string `json:"color,omitempty"`
}

// SwipeRequest is a swipe gesture.
type SwipeRequest struct {
	Direction string `json:"direction"`
}

// BoostRequest activates a boost.
type BoostRequest struct {
	Boost string `json:"boost"`
}

// RunResponse wraps a run snapshot.
type RunResponse struct {
	session.Snapshot
	EngineVersion string `json:"engine_version"`
}

// DailyResponse describes today's shared Daily challenge.
type DailyResponse struct {
	Date     string `json:"date"`
	EpochDay int64  `json:"epoch_day"`
	Seed     string `json:"seed"`
	Played   bool   `json:"played"`
	Best     int    `json:"best"`
}

// StreamAction is an input frame sent over the run stream.
type StreamAction struct {
	Type      string `json:"type"` // "tap", "swipe", "boost", "revive", "finish", "tick"
	Color     string `json:"color,omitempty"`
	Direction string `json:"direction,omitempty"`
	Boost     string `json:"boost,omitempty"`
}

// StreamFrame is an output frame on the run stream: a snapshot or an error.
type StreamFrame struct {
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    *EngineError      `json:"error,omitempty"`
}
