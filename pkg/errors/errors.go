package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Configuration errors
	ErrInvalidBatchSize   = errors.New("invalid batch size: must be positive")
	ErrInvalidCadence     = errors.New("invalid regularization cadence: must be positive")
	ErrInvalidLatentSize  = errors.New("invalid latent size: must be positive")
	ErrInvalidMixing      = errors.New("invalid mixing probability: must be between 0 and 1")
	ErrInvalidShrink      = errors.New("invalid path batch shrink factor: must be positive")
	ErrInvalidSampleCount = errors.New("invalid sample count: must be positive")

	// Training errors
	ErrDiverged        = errors.New("training diverged: loss is NaN or Inf")
	ErrBatchMismatch   = errors.New("batch dimensions do not match network configuration")
	ErrTrainingFailed  = errors.New("training step failed")
	ErrEmptyDataSource = errors.New("data source is empty")

	// Checkpoint errors
	ErrCheckpointNotFound = errors.New("checkpoint artifact not found")
	ErrCheckpointCorrupt  = errors.New("checkpoint artifact is corrupt")
	ErrShapeMismatch      = errors.New("checkpoint parameter shape mismatch")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeTraining      ErrorType = "training"
	ErrorTypeCheckpoint    ErrorType = "checkpoint"
	ErrorTypeData          ErrorType = "data"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewConfigError creates a configuration error
func NewConfigError(code, message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, code, message)
}

// NewTrainingError creates a training error
func NewTrainingError(code, message string) *AppError {
	return NewAppError(ErrorTypeTraining, code, message)
}

// NewCheckpointError creates a checkpoint error
func NewCheckpointError(code, message string) *AppError {
	return NewAppError(ErrorTypeCheckpoint, code, message)
}

// NewDataError creates a data source error
func NewDataError(code, message string) *AppError {
	return NewAppError(ErrorTypeData, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Error codes for different error scenarios
const (
	// Configuration error codes
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInvalidBatchSize = "INVALID_BATCH_SIZE"
	CodeInvalidCadence   = "INVALID_CADENCE"
	CodeOutOfRange       = "OUT_OF_RANGE"

	// Training error codes
	CodeDiverged       = "DIVERGED"
	CodeBatchMismatch  = "BATCH_MISMATCH"
	CodeTrainingFailed = "TRAINING_FAILED"
	CodeEmptyData      = "EMPTY_DATA"

	// Checkpoint error codes
	CodeCheckpointNotFound = "CHECKPOINT_NOT_FOUND"
	CodeCheckpointCorrupt  = "CHECKPOINT_CORRUPT"
	CodeShapeMismatch      = "SHAPE_MISMATCH"
	CodeWriteFailed        = "WRITE_FAILED"
)
