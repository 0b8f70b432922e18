package claims

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the claims engine.
var (
	ErrValidation     = errors.New("validation failed")
	ErrInvalidState   = errors.New("invalid state transition")
	ErrNotFound       = errors.New("not found")
	ErrPaymentGateway = errors.New("payment gateway failure")
	ErrNotification   = errors.New("notification gateway failure")

	ErrStaleClaim          = errors.New("claim modified concurrently")
	ErrDisputeClosed       = errors.New("dispute already resolved")
	ErrDisputeExists       = errors.New("dispute already open for claim")
	ErrHoldMismatch        = errors.New("hold belongs to a different claim")
	ErrInvalidClaimID      = errors.New("invalid claim id")
	ErrInvalidBookingID    = errors.New("invalid booking id")
	ErrInvalidDisputeID    = errors.New("invalid dispute id")
	ErrInvalidGuestEmail   = errors.New("invalid guest email")
	ErrInvalidAmountCents  = errors.New("invalid amount cents")
	ErrInvalidClaimStatus  = errors.New("invalid claim status")
	ErrInvalidClaimType    = errors.New("invalid claim type")
	ErrInvalidSeverity     = errors.New("invalid claim severity")
	ErrInvalidPartyRole    = errors.New("invalid party role")
	ErrInvalidConfig       = errors.New("invalid service config")
	ErrInvalidDisputeState = errors.New("invalid dispute status")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
