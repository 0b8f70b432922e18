package claims

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapErrorPreservesSentinel(test *testing.T) {
	test.Parallel()
	wrapped := WrapError("update_claim", "claims", "stale", fmt.Errorf("%w: claim c1", ErrStaleClaim))
	if !errors.Is(wrapped, ErrStaleClaim) {
		test.Fatalf("expected sentinel preserved, got %v", wrapped)
	}
	var operationError OperationError
	if !errors.As(wrapped, &operationError) {
		test.Fatalf("expected OperationError, got %T", wrapped)
	}
	if operationError.Operation() != "update_claim" || operationError.Subject() != "claims" || operationError.Code() != "stale" {
		test.Fatalf("unexpected segments: %v %v %v", operationError.Operation(), operationError.Subject(), operationError.Code())
	}
}

func TestWrapErrorNilPassthrough(test *testing.T) {
	test.Parallel()
	if err := WrapError("op", "subject", "code", nil); err != nil {
		test.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapErrorMessageShape(test *testing.T) {
	test.Parallel()
	err := WrapError("resolve_dispute", "disputes", "closed", ErrDisputeClosed)
	expected := "resolve_dispute.disputes.closed: dispute already resolved"
	if err.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, err.Error())
	}
}
