// internal/common/errors/errors.go

// Package errors provides standardized error handling for the churn
// engine and its BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Signal aggregation: a source could not be reached. Recovered
	// locally with neutral defaults; only surfaced when every source
	// is down.
	ErrCodeDataUnavailable ErrorCode = "DATA_UNAVAILABLE"

	// Scoring: too few populated categories for a meaningful score.
	// The engine still returns a low-confidence prediction.
	ErrCodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"

	// Execution: a single tactic's handler errored.
	ErrCodeTacticExecutionFailed ErrorCode = "TACTIC_EXECUTION_FAILED"
	ErrCodeEscalationFailed      ErrorCode = "ESCALATION_FAILED"

	// Caller errors.
	ErrCodePlanNotFound        ErrorCode = "PLAN_NOT_FOUND"
	ErrCodePredictionNotFound  ErrorCode = "PREDICTION_NOT_FOUND"
	ErrCodeClientNotFound      ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodePlanAlreadyFinished ErrorCode = "PLAN_ALREADY_FINISHED"

	// Configuration errors, checked at startup rather than at
	// prediction time.
	ErrCodeInvalidThreshold ErrorCode = "INVALID_THRESHOLD"
	ErrCodeInvalidWeights   ErrorCode = "INVALID_WEIGHTS"
	ErrCodeInvalidPlaybook  ErrorCode = "INVALID_PLAYBOOK"

	// Infrastructure.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeUsageStoreFailed         ErrorCode = "USAGE_STORE_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// BPMNError represents an error that can be thrown to the Camunda
// workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail
// variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// --- Constructors ---

// NewDataUnavailableError marks one signal source as unreachable.
func NewDataUnavailableError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataUnavailable,
		Message:   fmt.Sprintf("Signal source '%s' unavailable", source),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientDataError creates a non-retryable sparse-data error.
func NewInsufficientDataError(populated, required int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientData,
		Message:   "Too few signal categories populated for a meaningful score",
		Details:   fmt.Sprintf("populated: %d, required: %d", populated, required),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTacticExecutionFailedError creates a retryable tactic dispatch error.
func NewTacticExecutionFailedError(tacticID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTacticExecutionFailed,
		Message:   "Tactic handler dispatch failed",
		Details:   fmt.Sprintf("tacticId: %s, error: %s", tacticID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanNotFoundError creates a non-retryable not-found error.
func NewPlanNotFoundError(planID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanNotFound,
		Message:   "Retention plan not found",
		Details:   fmt.Sprintf("planId: %s", planID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanAlreadyFinishedError rejects execution of a plan that has
// already reached a terminal status.
func NewPlanAlreadyFinishedError(planID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanAlreadyFinished,
		Message:   "Retention plan already finished",
		Details:   fmt.Sprintf("planId: %s, status: %s", planID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPredictionNotFoundError creates a non-retryable not-found error.
func NewPredictionNotFoundError(predictionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionNotFound,
		Message:   "Churn prediction not found",
		Details:   fmt.Sprintf("predictionId: %s", predictionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClientNotFoundError creates a non-retryable not-found error.
func NewClientNotFoundError(clientID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClientNotFound,
		Message:   "Client not found in profile store",
		Details:   fmt.Sprintf("clientId: %s", clientID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidThresholdError is raised at startup when configured risk
// thresholds are non-monotonic or out of range.
func NewInvalidThresholdError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidThreshold,
		Message:   "Risk thresholds must be strictly decreasing within (0,1)",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightsError is raised at startup when category weights do
// not sum to 1.
func NewInvalidWeightsError(sum float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeights,
		Message:   "Category weights must sum to 1.0",
		Details:   fmt.Sprintf("sum: %.4f", sum),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPlaybookError is raised at startup when a playbook is
// missing required fields.
func NewInvalidPlaybookError(riskLevel, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPlaybook,
		Message:   fmt.Sprintf("Playbook for risk level '%s' is invalid", riskLevel),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUsageStoreFailedError creates a retryable telemetry store error.
func NewUsageStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUsageStoreFailed,
		Message:   "Usage telemetry store error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable dispatch error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification dispatch failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEscalationFailedError wraps a failed escalation notification.
func NewEscalationFailedError(planID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEscalationFailed,
		Message:   "Escalation notification failed",
		Details:   fmt.Sprintf("planId: %s, error: %s", planID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// --- BPMN conversion ---

// BPMNErrorMapping maps internal error codes to BPMN error codes.
// These are identical by convention.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDataUnavailable:          "DATA_UNAVAILABLE",
	ErrCodeInsufficientData:         "INSUFFICIENT_DATA",
	ErrCodeTacticExecutionFailed:    "TACTIC_EXECUTION_FAILED",
	ErrCodeEscalationFailed:         "ESCALATION_FAILED",
	ErrCodePlanNotFound:             "PLAN_NOT_FOUND",
	ErrCodePredictionNotFound:       "PREDICTION_NOT_FOUND",
	ErrCodeClientNotFound:           "CLIENT_NOT_FOUND",
	ErrCodePlanAlreadyFinished:      "PLAN_ALREADY_FINISHED",
	ErrCodeInvalidThreshold:         "INVALID_THRESHOLD",
	ErrCodeInvalidWeights:           "INVALID_WEIGHTS",
	ErrCodeInvalidPlaybook:          "INVALID_PLAYBOOK",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeUsageStoreFailed:         "USAGE_STORE_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeUsageStoreFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeEscalationFailed,
		ErrCodeTacticExecutionFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeDataUnavailable:
		return 2 // Partial retry for timeouts and flaky sources

	default:
		return 0 // Business and configuration errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ConvertToBPMNError converts a StandardError to a BPMNError for
// Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATA") || strings.Contains(codeStr, "USAGE"):
		return "SIGNALS"
	case strings.Contains(codeStr, "TACTIC") || strings.Contains(codeStr, "ESCALATION"):
		return "EXECUTION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "INVALID"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
