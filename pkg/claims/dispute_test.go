package claims

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestResolveDisputeWithRefund(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	notifier := &stubNotifier{}
	payments := &stubPayments{refundID: "re_1"}
	service := mustNewDisputeService(test, store, payments, notifier)
	claim, dispute := seedDisputedClaim(test, store)

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:         dispute.ID,
		Resolution:        "partial refund for pre-existing damage",
		ActionTaken:       "refund_issued",
		RefundAmountCents: mustAmount(test, 2500),
		AdminID:           "admin-1",
	})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if len(payments.calls) != 1 {
		test.Fatalf("expected one refund call, got %d", len(payments.calls))
	}
	call := payments.calls[0]
	if call.chargeReference != "ch_1" || call.amount != 2500 {
		test.Fatalf("unexpected refund call %+v", call)
	}
	stored := store.disputes[dispute.ID.String()]
	if stored.Status != DisputeResolved || stored.RefundID != "re_1" || stored.ResolvedAt == nil {
		test.Fatalf("expected resolved dispute with refund recorded, got %+v", stored)
	}
	if store.mustClaim(test, claim.ID).Status != StatusResolved {
		test.Fatal("expected linked claim resolved")
	}
	if len(store.messages) != 1 {
		test.Fatalf("expected dispute message, got %d", len(store.messages))
	}
	if store.notices[dispute.ID.String()] != "resolved" {
		test.Fatal("expected admin notification marked resolved")
	}
	if len(store.audit) != 1 || store.audit[0].Outcome != auditOutcomeResolved {
		test.Fatalf("expected resolved audit entry, got %+v", store.audit)
	}
	if notifier.countTemplate(TemplateDisputeResolved) != 2 {
		test.Fatalf("expected guest and host notified, got %d", notifier.countTemplate(TemplateDisputeResolved))
	}
}

func TestResolveDisputeRefundFailureLeavesDisputeOpen(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	payments := &stubPayments{err: errors.New("card network unavailable")}
	service := mustNewDisputeService(test, store, payments, &stubNotifier{})
	claim, dispute := seedDisputedClaim(test, store)

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:         dispute.ID,
		Resolution:        "refund",
		RefundAmountCents: mustAmount(test, 2500),
		AdminID:           "admin-1",
	})
	if !errors.Is(err, ErrPaymentGateway) {
		test.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
	if store.disputes[dispute.ID.String()].Status != DisputeOpen {
		test.Fatal("expected dispute untouched after gateway failure")
	}
	if store.mustClaim(test, claim.ID).Status != StatusDisputed {
		test.Fatal("expected claim untouched after gateway failure")
	}
	if len(store.audit) != 1 || store.audit[0].Outcome != auditOutcomeRefundFailed {
		test.Fatalf("expected refund failure audit entry, got %+v", store.audit)
	}
}

func TestResolveDisputeZeroRefundSkipsGateway(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	payments := &stubPayments{err: errors.New("gateway must not be called")}
	service := mustNewDisputeService(test, store, payments, &stubNotifier{})
	_, dispute := seedDisputedClaim(test, store)

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:   dispute.ID,
		Resolution:  "denied on the merits",
		ActionTaken: "no_action",
		AdminID:     "admin-1",
	})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if len(payments.calls) != 0 {
		test.Fatalf("expected no refund call, got %d", len(payments.calls))
	}
	if store.disputes[dispute.ID.String()].Status != DisputeResolved {
		test.Fatal("expected dispute resolved")
	}
}

func TestResolveDisputeAlreadyClosed(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewDisputeService(test, store, &stubPayments{}, &stubNotifier{})
	_, dispute := seedDisputedClaim(test, store)
	store.disputes[dispute.ID.String()].Status = DisputeResolved

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:  dispute.ID,
		Resolution: "again",
		AdminID:    "admin-1",
	})
	if !errors.Is(err, ErrInvalidState) {
		test.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestResolveDisputeRequiresResolutionText(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewDisputeService(test, store, &stubPayments{}, &stubNotifier{})
	_, dispute := seedDisputedClaim(test, store)

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID: dispute.ID,
		AdminID:   "admin-1",
	})
	if !errors.Is(err, ErrValidation) {
		test.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestResolveDisputeUnknownDispute(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewDisputeService(test, store, &stubPayments{}, &stubNotifier{})

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:  mustDisputeID(test, "dispute-missing"),
		Resolution: "whatever",
		AdminID:    "admin-1",
	})
	if !errors.Is(err, ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveDisputeLeavesClaimResolvedElsewhere(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewDisputeService(test, store, &stubPayments{}, &stubNotifier{})
	claim, dispute := seedDisputedClaim(test, store)
	resolvedAt := testBase
	stored := store.mustClaim(test, claim.ID)
	stored.Status = StatusResolved
	stored.ResolvedAt = &resolvedAt

	err := service.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:  dispute.ID,
		Resolution: "guest withdrew",
		AdminID:    "admin-1",
	})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if !store.mustClaim(test, claim.ID).ResolvedAt.Equal(resolvedAt) {
		test.Fatal("expected claim resolution timestamp untouched")
	}
}

func TestOpenSecondDisputeForClaimFails(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store, &stubNotifier{}, newStubClock(testBase))
	claim := seedClaim(test, store, StatusDenied)

	if _, err := service.OpenDispute(context.Background(), claim.ID, PartyGuest, "first"); err != nil {
		test.Fatalf("first dispute: %v", err)
	}
	// force the claim back so only the uniqueness constraint can reject
	stored := store.mustClaim(test, claim.ID)
	stored.Status = StatusDenied
	_, err := service.OpenDispute(context.Background(), claim.ID, PartyGuest, "second")
	if !errors.Is(err, ErrDisputeExists) {
		test.Fatalf("expected ErrDisputeExists, got %v", err)
	}
}

// --- dispute fixtures ---

type refundCall struct {
	chargeReference string
	amount          AmountCents
	reason          string
}

type stubPayments struct {
	refundID string
	err      error
	calls    []refundCall
}

func (payments *stubPayments) Refund(ctx context.Context, chargeReference string, amountCents AmountCents, reason string) (string, error) {
	if payments.err != nil {
		return "", payments.err
	}
	payments.calls = append(payments.calls, refundCall{chargeReference: chargeReference, amount: amountCents, reason: reason})
	if payments.refundID == "" {
		return "re_test", nil
	}
	return payments.refundID, nil
}

func mustNewDisputeService(test *testing.T, store Store, payments PaymentGateway, notifier NotificationGateway) *DisputeService {
	test.Helper()
	clock := newStubClock(testBase)
	service, err := NewDisputeService(store, payments, notifier, clock.Now)
	if err != nil {
		test.Fatalf("new dispute service: %v", err)
	}
	return service
}

func seedDisputedClaim(test *testing.T, store *stubStore) (*Claim, *Dispute) {
	test.Helper()
	claim := seedClaim(test, store, StatusDisputed)
	store.nextID++
	dispute := &Dispute{
		ID:        mustDisputeID(test, fmt.Sprintf("dispute-%d", store.nextID)),
		BookingID: claim.BookingID,
		ClaimID:   &claim.ID,
		RaisedBy:  PartyGuest,
		Reason:    "decision ignored my evidence",
		Status:    DisputeOpen,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	}
	store.disputes[dispute.ID.String()] = dispute
	return claim, dispute
}
