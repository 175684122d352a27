// Package models defines the core data structures for gritd.
//
// It includes types for slips, journal records, and trigger events, which are
// shared across modules.
package models

import (
	"errors"
	"time"
)

// TriggerSource identifies what caused a slip to be requested.
type TriggerSource string

const (
	// SourceButton indicates the physical button fired the trigger.
	SourceButton TriggerSource = "button"
	// SourceAPI indicates the trigger came in over the HTTP control API.
	SourceAPI TriggerSource = "api"
	// SourceCron indicates an ambient schedule fired the trigger.
	SourceCron TriggerSource = "cron"
	// SourceCLI indicates a one-shot command-line invocation.
	SourceCLI TriggerSource = "cli"
)

// SlipStatus is the terminal outcome of one print attempt.
type SlipStatus string

const (
	// SlipStatusPrinted indicates the slip reached the printer.
	SlipStatusPrinted SlipStatus = "printed"
	// SlipStatusGenerationFailed indicates the completion call failed; the printer was never touched.
	SlipStatusGenerationFailed SlipStatus = "generation_failed"
	// SlipStatusPrintFailed indicates the device write failed after a successful generation.
	SlipStatusPrintFailed SlipStatus = "print_failed"
)

// Validation constants for input validation
const (
	// MaxCategoryNameLength defines the maximum allowed length for a requested category name
	MaxCategoryNameLength = 64
	// MaxTemperature defines the upper bound for a per-trigger sampling temperature
	MaxTemperature = 2.0
	// MaxScheduleLength defines the maximum allowed length for an ambient cron expression
	MaxScheduleLength = 128
)

// Error variables for better error handling and testability
var (
	ErrInvalidTriggerSource = errors.New("invalid trigger source")
	ErrInvalidSlipStatus    = errors.New("invalid slip status")
	ErrCategoryNameTooLong  = errors.New("category name exceeds maximum length")
	ErrInvalidTemperature   = errors.New("temperature must be greater than 0 and at most 2")
	ErrEmptySchedule        = errors.New("schedule is required for ambient jobs")
	ErrScheduleTooLong      = errors.New("schedule exceeds maximum length")
)

// IsValidTriggerSource checks if the given trigger source is supported.
func IsValidTriggerSource(s TriggerSource) bool {
	switch s {
	case SourceButton, SourceAPI, SourceCron, SourceCLI:
		return true
	default:
		return false
	}
}

// IsValidSlipStatus checks if the given slip status is supported.
func IsValidSlipStatus(s SlipStatus) bool {
	switch s {
	case SlipStatusPrinted, SlipStatusGenerationFailed, SlipStatusPrintFailed:
		return true
	default:
		return false
	}
}

// Slip is the generated text for one print event. It exists only in memory:
// the body is handed to the printer and discarded, never persisted.
type Slip struct {
	ID        string        `json:"id"`
	Category  string        `json:"category"`
	Body      string        `json:"-"`
	Source    TriggerSource `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

// Chars returns the length of the slip body in bytes.
func (s Slip) Chars() int {
	return len(s.Body)
}

// SlipRecord is the journal entry for one print attempt. It deliberately
// carries no slip text, only metadata about the attempt.
type SlipRecord struct {
	Category string        `json:"category"`
	Source   TriggerSource `json:"source"`
	Status   SlipStatus    `json:"status"`
	Chars    int           `json:"chars"`
	Time     int64         `json:"time"`
}

// ButtonPress represents one debounced press of the physical trigger button.
type ButtonPress struct {
	Pin  string `json:"pin"`
	Time int64  `json:"time"`
}

// PrintRequest is the payload for triggering a slip over the control API.
type PrintRequest struct {
	Category    string  `json:"category,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Validate performs validation on a PrintRequest structure. An empty category
// is valid (weighted-random selection) and an unknown one falls back at the
// catalog layer, so only shape is checked here.
func (r *PrintRequest) Validate() error {
	if len(r.Category) > MaxCategoryNameLength {
		return ErrCategoryNameTooLong
	}
	if r.Temperature != 0 && (r.Temperature <= 0 || r.Temperature > MaxTemperature) {
		return ErrInvalidTemperature
	}
	return nil
}

// AmbientRequest is the payload for registering an ambient print schedule.
type AmbientRequest struct {
	Schedule string `json:"schedule"`
	Category string `json:"category,omitempty"`
}

// Validate performs validation on an AmbientRequest structure.
func (r *AmbientRequest) Validate() error {
	if r.Schedule == "" {
		return ErrEmptySchedule
	}
	if len(r.Schedule) > MaxScheduleLength {
		return ErrScheduleTooLong
	}
	if len(r.Category) > MaxCategoryNameLength {
		return ErrCategoryNameTooLong
	}
	return nil
}

// AmbientJob describes one registered ambient schedule.
type AmbientJob struct {
	ID       int       `json:"id"`
	Schedule string    `json:"schedule"`
	Category string    `json:"category,omitempty"`
	Next     time.Time `json:"next,omitempty"`
}

// CategoryInfo describes one catalog entry for the control API.
type CategoryInfo struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// PrintResult is the result payload returned after a successful trigger.
type PrintResult struct {
	SlipID   string        `json:"slip_id"`
	Category string        `json:"category"`
	Source   TriggerSource `json:"source"`
	Chars    int           `json:"chars"`
}

// HealthStatus reports daemon health for the control API.
type HealthStatus struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Generator string `json:"generator"`
	Printer   string `json:"printer"`
	Slips     int    `json:"slips"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusScheduled indicates an API request resulted in scheduled content.
	APIStatusScheduled APIStatus = "scheduled"
	// APIStatusBusy indicates a trigger was rejected because a slip is in flight.
	APIStatusBusy APIStatus = "busy"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Convenience functions for common response patterns

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Busy creates a busy API response with a message.
func Busy(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusBusy).
		WithMessage(message).
		Build()
}

// ScheduledWithMessage creates a scheduled API response with a message and result data.
func ScheduledWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusScheduled).
		WithMessage(message).
		WithResult(result).
		Build()
}
