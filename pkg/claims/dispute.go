package claims

import (
	"context"
	"fmt"
	"time"
)

// DisputeService handles the terminal financial resolution of disputes.
type DisputeService struct {
	store    Store
	payments PaymentGateway
	notifier NotificationGateway
	nowFn    func() time.Time
	logger   OperationLogger
}

// NewDisputeService wires a DisputeService.
func NewDisputeService(store Store, payments PaymentGateway, notifier NotificationGateway, now func() time.Time, options ...DisputeServiceOption) (*DisputeService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidConfig)
	}
	if payments == nil {
		return nil, fmt.Errorf("%w: payment gateway dependency is nil", ErrInvalidConfig)
	}
	if notifier == nil {
		return nil, fmt.Errorf("%w: notification gateway dependency is nil", ErrInvalidConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidConfig)
	}
	service := &DisputeService{store: store, payments: payments, notifier: notifier, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// DisputeServiceOption configures a DisputeService instance.
type DisputeServiceOption func(*DisputeService)

// WithDisputeOperationLogger wires the operation logger.
func WithDisputeOperationLogger(logger OperationLogger) DisputeServiceOption {
	return func(service *DisputeService) {
		service.logger = logger
	}
}

// ResolveDisputeInput carries the admin adjudication of a dispute.
type ResolveDisputeInput struct {
	DisputeID         DisputeID
	Resolution        string
	ActionTaken       string
	RefundAmountCents AmountCents
	AdminID           string
}

// ResolveDispute executes the monetary and narrative resolution. A requested
// refund goes through the payment gateway first; a gateway failure aborts
// the whole operation before any status write, because a dispute marked
// resolved over a refund that never happened is an unauditable financial
// inconsistency. Notification failures after the resolution commit are
// logged and swallowed.
func (service *DisputeService) ResolveDispute(ctx context.Context, input ResolveDisputeInput) error {
	var (
		dispute *Dispute
		booking *Booking
	)
	operationError := func() error {
		if input.Resolution == "" {
			return fmt.Errorf("%w: resolution text is required", ErrValidation)
		}
		loaded, err := service.store.GetDispute(ctx, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded
		if dispute.Status.Closed() {
			return fmt.Errorf("%w: dispute %s is already %s", ErrInvalidState, dispute.ID.String(), dispute.Status)
		}
		booking, err = service.store.GetBooking(ctx, dispute.BookingID)
		if err != nil {
			return err
		}
		refundID := ""
		if input.RefundAmountCents > 0 {
			refundID, err = service.payments.Refund(ctx, booking.ChargeReference, input.RefundAmountCents, input.Resolution)
			if err != nil {
				service.recordRefundFailure(ctx, input, err)
				return fmt.Errorf("%w: %v", ErrPaymentGateway, err)
			}
		}
		now := service.nowFn()
		return service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			dispute.Status = DisputeResolved
			dispute.Resolution = input.Resolution
			dispute.ActionTaken = input.ActionTaken
			dispute.RefundAmountCents = input.RefundAmountCents
			dispute.RefundID = refundID
			dispute.ResolvedBy = input.AdminID
			dispute.ResolvedAt = &now
			if err := txStore.ResolveDispute(ctx, dispute); err != nil {
				return err
			}
			message := fmt.Sprintf("Dispute resolved: %s", input.Resolution)
			if input.RefundAmountCents > 0 {
				message = fmt.Sprintf("%s (refund of %d cents issued)", message, input.RefundAmountCents.Int64())
			}
			if err := txStore.InsertDisputeMessage(ctx, dispute.ID, message, now); err != nil {
				return err
			}
			if err := txStore.UpdateAdminNotificationStatus(ctx, dispute.ID, "resolved"); err != nil {
				return err
			}
			if dispute.ClaimID != nil {
				if err := service.resolveLinkedClaim(ctx, txStore, *dispute.ClaimID, input.AdminID, now); err != nil {
					return err
				}
			}
			return txStore.AppendAuditEntry(ctx, AuditEntry{
				Subject:     "dispute",
				SubjectID:   dispute.ID.String(),
				Action:      operationResolveDispute,
				ActorID:     input.AdminID,
				AmountCents: input.RefundAmountCents,
				Outcome:     auditOutcomeResolved,
				Detail:      fmt.Sprintf("resolution=%q action=%q refund_id=%q", input.Resolution, input.ActionTaken, refundID),
				CreatedAt:   now,
			})
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationResolveDispute,
		DisputeID: input.DisputeID,
		Actor:     input.AdminID,
		Amount:    input.RefundAmountCents,
		Error:     operationError,
	})
	if operationError != nil {
		return operationError
	}
	service.notifyParties(ctx, booking, input)
	return nil
}

// resolveLinkedClaim finishes the claim that spawned the dispute. A claim no
// longer in DISPUTED (resolved through another path) is left alone.
func (service *DisputeService) resolveLinkedClaim(ctx context.Context, txStore Store, claimID ClaimID, adminID string, now time.Time) error {
	claim, err := txStore.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.Status != StatusDisputed {
		return nil
	}
	claim.Status = StatusResolved
	claim.ResolvedAt = &now
	if err := txStore.UpdateClaim(ctx, claim); err != nil {
		return err
	}
	return appendTimeline(ctx, txStore, claimID, EventDisputeResolved, adminID, "dispute resolved", now)
}

// recordRefundFailure leaves an audit trace of the failed gateway call. Best
// effort: the refund error itself is what propagates to the caller.
func (service *DisputeService) recordRefundFailure(ctx context.Context, input ResolveDisputeInput, refundErr error) {
	entry := AuditEntry{
		Subject:     "dispute",
		SubjectID:   input.DisputeID.String(),
		Action:      operationResolveDispute,
		ActorID:     input.AdminID,
		AmountCents: input.RefundAmountCents,
		Outcome:     auditOutcomeRefundFailed,
		Detail:      refundErr.Error(),
		CreatedAt:   service.nowFn(),
	}
	if err := service.store.AppendAuditEntry(ctx, entry); err != nil {
		service.logOperation(ctx, OperationLog{
			Operation: operationResolveDispute,
			DisputeID: input.DisputeID,
			Status:    operationStatusError,
			Error:     err,
		})
	}
}

func (service *DisputeService) notifyParties(ctx context.Context, booking *Booking, input ResolveDisputeInput) {
	if booking == nil {
		return
	}
	data := map[string]string{
		"dispute_id": input.DisputeID.String(),
		"resolution": input.Resolution,
	}
	for _, recipient := range []string{booking.GuestEmail.String(), booking.HostEmail} {
		if recipient == "" {
			continue
		}
		if err := sendWithRetry(ctx, service.notifier, recipient, TemplateDisputeResolved, data); err != nil {
			service.logOperation(ctx, OperationLog{
				Operation: operationResolveDispute,
				DisputeID: input.DisputeID,
				Status:    operationStatusError,
				Error:     fmt.Errorf("%w: %v", ErrNotification, err),
			})
		}
	}
}

func (service *DisputeService) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	finishOperationLog(&entry)
	service.logger.LogOperation(ctx, entry)
}
