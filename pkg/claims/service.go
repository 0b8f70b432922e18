package claims

import (
	"context"
	"fmt"
	"time"
)

// Service owns the claim state machine: creation, review transitions,
// guest-response intake, approval and denial, payout, and resolution.
type Service struct {
	store    Store
	enforcer *HoldEnforcer
	notifier NotificationGateway
	cfg      Config
	nowFn    func() time.Time
	logger   OperationLogger
}

// NewService wires a Service.
func NewService(store Store, enforcer *HoldEnforcer, notifier NotificationGateway, cfg Config, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidConfig)
	}
	if enforcer == nil {
		return nil, fmt.Errorf("%w: hold enforcer dependency is nil", ErrInvalidConfig)
	}
	if notifier == nil {
		return nil, fmt.Errorf("%w: notification gateway dependency is nil", ErrInvalidConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	service := &Service{store: store, enforcer: enforcer, notifier: notifier, cfg: cfg, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateClaimInput carries everything captured at first notice of loss.
type CreateClaimInput struct {
	BookingID          BookingID
	HostID             string
	PolicyID           string
	Type               ClaimType
	Severity           ClaimSeverity
	PrimaryParty       PartyRole
	EstimatedCostCents AmountCents
	Incident           IncidentDetails
	Photos             []DamagePhoto
}

// CreateClaim files a new claim in PENDING with the guest-response deadline
// armed. The FNOL narrative persists atomically with the claim row. Vehicles
// hit by theft or major damage are deactivated until an admin reactivates
// them.
func (service *Service) CreateClaim(ctx context.Context, input CreateClaimInput) (*Claim, error) {
	claim := &Claim{}
	operationError := func() error {
		if input.BookingID.String() == "" {
			return fmt.Errorf("%w: booking id is required", ErrValidation)
		}
		if input.Type == "" {
			return fmt.Errorf("%w: claim type is required", ErrValidation)
		}
		if input.Incident.OccurredAt.IsZero() {
			return fmt.Errorf("%w: incident date is required", ErrValidation)
		}
		if _, err := ParseClaimType(input.Type.String()); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if input.Severity != "" {
			if _, err := ParseClaimSeverity(input.Severity.String()); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
		}
		return service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			booking, err := txStore.GetBooking(ctx, input.BookingID)
			if err != nil {
				return err
			}
			now := service.nowFn()
			*claim = Claim{
				BookingID:             input.BookingID,
				HostID:                input.HostID,
				VehicleID:             booking.VehicleID,
				PolicyID:              input.PolicyID,
				Type:                  input.Type,
				Severity:              input.Severity,
				PrimaryParty:          input.PrimaryParty,
				Incident:              input.Incident,
				EstimatedCostCents:    input.EstimatedCostCents,
				GuestResponseDeadline: now.Add(service.cfg.GuestResponseSLA),
				Status:                StatusPending,
				VehicleDeactivated:    deactivatesVehicle(input.Type, input.Severity),
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			if err := txStore.InsertClaim(ctx, claim); err != nil {
				return err
			}
			if len(input.Photos) > 0 {
				if err := txStore.AddDamagePhotos(ctx, claim.ID, input.Photos); err != nil {
					return err
				}
			}
			if claim.VehicleDeactivated {
				if err := txStore.SetVehicleActive(ctx, claim.VehicleID, false); err != nil {
					return err
				}
			}
			return appendTimeline(ctx, txStore, claim.ID, EventClaimFiled, input.HostID, fmt.Sprintf("claim filed against booking %s", input.BookingID.String()), now)
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateClaim,
		ClaimID:   claim.ID,
		Actor:     input.HostID,
		Amount:    input.EstimatedCostCents,
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	service.notifyBookingGuest(ctx, claim, TemplateClaimFiled, map[string]string{
		"claim_id":          claim.ID.String(),
		"response_deadline": claim.GuestResponseDeadline.UTC().Format(time.RFC3339),
	})
	return claim, nil
}

// StartReview moves a pending claim into review.
func (service *Service) StartReview(ctx context.Context, claimID ClaimID, reviewerID string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		claim, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if err := transition(claim, StatusUnderReview); err != nil {
			return err
		}
		now := service.nowFn()
		claim.ReviewedBy = reviewerID
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventStatusChange, reviewerID, "review started", now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationStartReview,
		ClaimID:   claimID,
		Actor:     reviewerID,
		Error:     operationError,
	})
	return operationError
}

// RequestGuestResponse asks the guest for their side of the incident and
// re-arms the response deadline.
func (service *Service) RequestGuestResponse(ctx context.Context, claimID ClaimID, reviewerID string) error {
	var claim *Claim
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		loaded, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		claim = loaded
		if err := transition(claim, StatusGuestResponsePending); err != nil {
			return err
		}
		now := service.nowFn()
		claim.GuestResponseDeadline = now.Add(service.cfg.GuestResponseSLA)
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventStatusChange, reviewerID, "guest response requested", now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRequestGuestResponse,
		ClaimID:   claimID,
		Actor:     reviewerID,
		Error:     operationError,
	})
	if operationError != nil {
		return operationError
	}
	service.notifyBookingGuest(ctx, claim, TemplateResponseRequest, map[string]string{
		"claim_id":          claim.ID.String(),
		"response_deadline": claim.GuestResponseDeadline.UTC().Format(time.RFC3339),
	})
	return nil
}

// RecordGuestResponse stores the guest's account of the incident and moves
// the claim to GUEST_RESPONDED. A hold applied for this claim is lifted in
// the same logical operation: a late response still clears the hold, it just
// does not undo that the hold happened.
func (service *Service) RecordGuestResponse(ctx context.Context, claimID ClaimID, responseText string, photos []DamagePhoto) error {
	var (
		claim      *Claim
		holdLifted bool
		guestEmail GuestEmail
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if responseText == "" {
			return fmt.Errorf("%w: response text is required", ErrValidation)
		}
		loaded, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		claim = loaded
		if err := transition(claim, StatusGuestResponded); err != nil {
			return err
		}
		now := service.nowFn()
		holdWasApplied := claim.AccountHoldApplied
		claim.GuestResponseText = responseText
		claim.GuestRespondedAt = &now
		claim.AccountHoldApplied = false
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		if len(photos) > 0 {
			if err := txStore.AddDamagePhotos(ctx, claimID, photos); err != nil {
				return err
			}
		}
		if err := appendTimeline(ctx, txStore, claimID, EventGuestResponded, "guest", "guest response recorded", now); err != nil {
			return err
		}
		if holdWasApplied {
			booking, err := txStore.GetBooking(ctx, claim.BookingID)
			if err != nil {
				return err
			}
			guestEmail = booking.GuestEmail
			txEnforcer := &HoldEnforcer{store: txStore, nowFn: service.nowFn}
			cleared, err := txEnforcer.Remove(ctx, booking.GuestEmail, &claimID)
			if err != nil {
				return err
			}
			holdLifted = cleared
			if cleared {
				if err := appendTimeline(ctx, txStore, claimID, EventHoldRemoved, "guest", "account hold lifted after guest response", now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationGuestResponse,
		ClaimID:   claimID,
		Guest:     guestEmail,
		Error:     operationError,
	})
	if operationError != nil {
		return operationError
	}
	if holdLifted {
		service.send(ctx, guestEmail.String(), TemplateHoldLifted, map[string]string{"claim_id": claimID.String()})
	}
	return nil
}

// ReviewDecision selects the review outcome.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "APPROVE"
	DecisionDeny    ReviewDecision = "DENY"
)

// Review records the host-side adjudication of the claim. Approval requires
// an approved amount; the deductible comes from the attached policy, or the
// configured default for manual-placeholder claims. Denied claims never
// carry an approved amount.
func (service *Service) Review(ctx context.Context, claimID ClaimID, decision ReviewDecision, approvedAmount *AmountCents, reviewerID string, notes string) error {
	var claim *Claim
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		target := StatusDenied
		switch decision {
		case DecisionApprove:
			target = StatusApproved
			if approvedAmount == nil {
				return fmt.Errorf("%w: approved amount is required to approve", ErrValidation)
			}
		case DecisionDeny:
		default:
			return fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
		}
		loaded, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		claim = loaded
		if err := transition(claim, target); err != nil {
			return err
		}
		now := service.nowFn()
		deductible, err := service.deductibleFor(ctx, txStore, claim)
		if err != nil {
			return err
		}
		claim.DeductibleCents = deductible
		if decision == DecisionApprove {
			claim.ApprovedAmountCents = approvedAmount
		} else {
			claim.ApprovedAmountCents = nil
		}
		claim.ReviewedBy = reviewerID
		claim.ReviewedAt = &now
		claim.ReviewNotes = notes
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		detail := fmt.Sprintf("claim %s", target.String())
		if decision == DecisionApprove {
			net, _ := claim.NetPayoutCents()
			detail = fmt.Sprintf("claim approved for %d cents, net payout %d cents", approvedAmount.Int64(), net.Int64())
		}
		return appendTimeline(ctx, txStore, claimID, EventReviewed, reviewerID, detail, now)
	})
	amount := AmountCents(0)
	if approvedAmount != nil {
		amount = *approvedAmount
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationReview,
		ClaimID:   claimID,
		Actor:     reviewerID,
		Amount:    amount,
		Error:     operationError,
	})
	if operationError != nil {
		return operationError
	}
	service.notifyBookingGuest(ctx, claim, TemplateClaimDecision, map[string]string{
		"claim_id": claimID.String(),
		"decision": claim.Status.String(),
	})
	return nil
}

// MarkPaid records the payout of an approved claim. The paid amount must
// match the computed net payout.
func (service *Service) MarkPaid(ctx context.Context, claimID ClaimID, paidAmount AmountCents, actorID string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		claim, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if err := transition(claim, StatusPaid); err != nil {
			return err
		}
		net, defined := claim.NetPayoutCents()
		if !defined {
			return fmt.Errorf("%w: claim has no approved amount", ErrInvalidState)
		}
		if paidAmount != net {
			return fmt.Errorf("%w: paid amount %d does not match net payout %d", ErrValidation, paidAmount.Int64(), net.Int64())
		}
		now := service.nowFn()
		claim.PaidAt = &now
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventPaid, actorID, fmt.Sprintf("payout of %d cents recorded", paidAmount.Int64()), now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationMarkPaid,
		ClaimID:   claimID,
		Actor:     actorID,
		Amount:    paidAmount,
		Error:     operationError,
	})
	return operationError
}

// Resolve closes out a paid, denied, or disputed claim. Resolving an
// already-resolved claim is a no-op.
func (service *Service) Resolve(ctx context.Context, claimID ClaimID, actorID string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		claim, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Status == StatusResolved {
			return nil
		}
		if err := transition(claim, StatusResolved); err != nil {
			return err
		}
		now := service.nowFn()
		claim.ResolvedAt = &now
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventResolved, actorID, "claim resolved", now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationResolve,
		ClaimID:   claimID,
		Actor:     actorID,
		Error:     operationError,
	})
	return operationError
}

// CloseClaim administratively withdraws a claim that has not reached a
// decision.
func (service *Service) CloseClaim(ctx context.Context, claimID ClaimID, actorID string, reason string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		claim, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if err := transition(claim, StatusClosed); err != nil {
			return err
		}
		now := service.nowFn()
		claim.ResolvedAt = &now
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventClosed, actorID, reason, now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCloseClaim,
		ClaimID:   claimID,
		Actor:     actorID,
		Error:     operationError,
	})
	return operationError
}

// OpenDispute escalates a denied claim into a human-adjudicated dispute and
// returns the new dispute.
func (service *Service) OpenDispute(ctx context.Context, claimID ClaimID, raisedBy PartyRole, reason string) (*Dispute, error) {
	dispute := &Dispute{}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if reason == "" {
			return fmt.Errorf("%w: dispute reason is required", ErrValidation)
		}
		claim, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if err := transition(claim, StatusDisputed); err != nil {
			return err
		}
		now := service.nowFn()
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		*dispute = Dispute{
			BookingID: claim.BookingID,
			ClaimID:   &claimID,
			RaisedBy:  raisedBy,
			Reason:    reason,
			Status:    DisputeOpen,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := txStore.InsertDispute(ctx, dispute); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventDisputeOpened, raisedBy.String(), fmt.Sprintf("dispute %s opened", dispute.ID.String()), now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationOpenDispute,
		ClaimID:   claimID,
		DisputeID: dispute.ID,
		Actor:     raisedBy.String(),
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return dispute, nil
}

// ReactivateVehicle lifts the vehicle deactivation recorded on the claim.
func (service *Service) ReactivateVehicle(ctx context.Context, claimID ClaimID, adminID string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		claim, err := txStore.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if !claim.VehicleDeactivated {
			return fmt.Errorf("%w: vehicle is not deactivated", ErrInvalidState)
		}
		now := service.nowFn()
		claim.VehicleDeactivated = false
		claim.VehicleReactivatedAt = &now
		claim.VehicleReactivatedBy = adminID
		if err := txStore.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		if err := txStore.SetVehicleActive(ctx, claim.VehicleID, true); err != nil {
			return err
		}
		return appendTimeline(ctx, txStore, claimID, EventVehicleReactivated, adminID, "vehicle reactivated", now)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationReactivateVehicle,
		ClaimID:   claimID,
		Actor:     adminID,
		Error:     operationError,
	})
	return operationError
}

// ClaimDetail aggregates everything the claim-detail surface renders.
type ClaimDetail struct {
	Claim             *Claim
	Photos            []DamagePhoto
	Timeline          []TimelineEvent
	VehicleClaimCount int64
}

// GetClaimDetail returns the claim with its photos, audit timeline, and the
// vehicle's running claim count recomputed from the claim table.
func (service *Service) GetClaimDetail(ctx context.Context, claimID ClaimID) (*ClaimDetail, error) {
	claim, err := service.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	photos, err := service.store.ListDamagePhotos(ctx, claimID)
	if err != nil {
		return nil, err
	}
	timeline, err := service.store.ListTimeline(ctx, claimID)
	if err != nil {
		return nil, err
	}
	count, err := service.store.CountClaimsForVehicle(ctx, claim.VehicleID)
	if err != nil {
		return nil, err
	}
	return &ClaimDetail{Claim: claim, Photos: photos, Timeline: timeline, VehicleClaimCount: count}, nil
}

func (service *Service) deductibleFor(ctx context.Context, txStore Store, claim *Claim) (AmountCents, error) {
	if claim.PolicyID == "" {
		return service.cfg.DefaultDeductibleCents, nil
	}
	policy, err := txStore.GetPolicy(ctx, claim.PolicyID)
	if err != nil {
		return 0, err
	}
	return policy.DeductibleCents, nil
}

// notifyBookingGuest looks up the booking's guest contact and sends best
// effort; failures are logged through the operation logger and swallowed.
func (service *Service) notifyBookingGuest(ctx context.Context, claim *Claim, templateID string, data map[string]string) {
	if claim == nil {
		return
	}
	booking, err := service.store.GetBooking(ctx, claim.BookingID)
	if err != nil {
		service.logOperation(ctx, OperationLog{
			Operation: templateID,
			ClaimID:   claim.ID,
			Status:    operationStatusError,
			Error:     err,
		})
		return
	}
	service.send(ctx, booking.GuestEmail.String(), templateID, data)
}

func (service *Service) send(ctx context.Context, recipient string, templateID string, data map[string]string) {
	if err := sendWithRetry(ctx, service.notifier, recipient, templateID, data); err != nil {
		service.logOperation(ctx, OperationLog{
			Operation: templateID,
			Status:    operationStatusError,
			Error:     fmt.Errorf("%w: %v", ErrNotification, err),
		})
	}
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	finishOperationLog(&entry)
	service.logger.LogOperation(ctx, entry)
}

// sendWithRetry attempts a notification once more after a transient failure.
func sendWithRetry(ctx context.Context, gateway NotificationGateway, recipient string, templateID string, data map[string]string) error {
	var lastErr error
	for attempt := 0; attempt <= defaultNotificationRetryCount; attempt++ {
		if lastErr = gateway.Send(ctx, recipient, templateID, data); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func transition(claim *Claim, target ClaimStatus) error {
	if !claim.Status.CanTransitionTo(target) {
		if claim.Status.Terminal() {
			return fmt.Errorf("%w: claim %s is already %s", ErrInvalidState, claim.ID.String(), claim.Status.String())
		}
		return fmt.Errorf("%w: claim %s cannot move from %s to %s", ErrInvalidState, claim.ID.String(), claim.Status.String(), target.String())
	}
	claim.Status = target
	return nil
}

func appendTimeline(ctx context.Context, txStore Store, claimID ClaimID, kind string, actor string, detail string, at time.Time) error {
	return txStore.AppendTimelineEvent(ctx, TimelineEvent{
		ClaimID:   claimID,
		Kind:      kind,
		Actor:     actor,
		Detail:    detail,
		CreatedAt: at,
	})
}

func deactivatesVehicle(claimType ClaimType, severity ClaimSeverity) bool {
	if claimType == ClaimTypeTheft {
		return true
	}
	return severity == SeverityMajor || severity == SeverityTotalLoss
}

// ResponseRateKey builds the shared TTL counter key used to rate limit
// guest-response submissions per guest identity.
func ResponseRateKey(email GuestEmail) string {
	return "guest_response:" + email.String()
}
