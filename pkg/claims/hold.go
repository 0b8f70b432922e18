package claims

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HoldEnforcer owns the guest-account hold fields and the booking gate
// consumed by the booking-creation flow.
type HoldEnforcer struct {
	store Store
	nowFn func() time.Time
}

// NewHoldEnforcer wires a HoldEnforcer.
func NewHoldEnforcer(store Store, now func() time.Time) (*HoldEnforcer, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidConfig)
	}
	return &HoldEnforcer{store: store, nowFn: now}, nil
}

// HoldCheck is the booking gate result.
type HoldCheck struct {
	HasHold bool     `json:"has_hold"`
	CanBook bool     `json:"can_book"`
	Reason  string   `json:"reason,omitempty"`
	ClaimID *ClaimID `json:"-"`
	Message string   `json:"message"`
}

// CheckHold evaluates whether the guest may create new bookings. Evaluation
// short-circuits on the first blocking condition: permanent ban, active
// suspension, then claim-driven hold. A hold whose claim has since reached a
// terminal state or received a guest response is stale; the check clears it
// in place and treats the account as clear.
func (enforcer *HoldEnforcer) CheckHold(ctx context.Context, email GuestEmail) (HoldCheck, error) {
	account, err := enforcer.store.GetGuestAccount(ctx, email)
	if err != nil {
		return HoldCheck{}, err
	}
	if account.BannedAt != nil {
		return HoldCheck{
			HasHold: true,
			Reason:  "banned",
			Message: "This account has been permanently banned and cannot create bookings.",
		}, nil
	}
	now := enforcer.nowFn()
	if account.SuspensionExpiresAt != nil && now.Before(*account.SuspensionExpiresAt) {
		return HoldCheck{
			HasHold: true,
			Reason:  "suspended",
			Message: fmt.Sprintf("This account is suspended until %s.", account.SuspensionExpiresAt.UTC().Format(time.RFC1123)),
		}, nil
	}
	if account.AccountOnHold {
		if account.AccountHoldClaimID == nil {
			return HoldCheck{
				HasHold: true,
				Reason:  account.AccountHoldReason,
				Message: "This account is on hold. Contact support to resolve it.",
			}, nil
		}
		stale, err := enforcer.holdIsStale(ctx, *account.AccountHoldClaimID)
		if err != nil {
			return HoldCheck{}, err
		}
		if stale {
			if _, err := enforcer.Remove(ctx, email, account.AccountHoldClaimID); err != nil {
				return HoldCheck{}, err
			}
			return HoldCheck{CanBook: true, Message: "Account is in good standing."}, nil
		}
		claimID := *account.AccountHoldClaimID
		return HoldCheck{
			HasHold: true,
			Reason:  account.AccountHoldReason,
			ClaimID: &claimID,
			Message: fmt.Sprintf("A damage claim (%s) is awaiting your response. Respond to the claim to restore booking access.", claimID.String()),
		}, nil
	}
	return HoldCheck{CanBook: true, Message: "Account is in good standing."}, nil
}

// Apply sets the hold fields on the guest account. Idempotent: applying a
// hold that this claim already owns succeeds as a no-op. A hold owned by a
// different claim is left in place and reported as false.
func (enforcer *HoldEnforcer) Apply(ctx context.Context, email GuestEmail, claimID ClaimID, reason string) (bool, error) {
	return enforcer.store.SetAccountHold(ctx, email, claimID, reason, enforcer.nowFn())
}

// Remove clears the hold fields. When claimID is supplied the clear only
// applies if that claim owns the current hold, so resolving one claim never
// lifts a hold created by a newer one. Removing an absent hold is a no-op.
func (enforcer *HoldEnforcer) Remove(ctx context.Context, email GuestEmail, claimID *ClaimID) (bool, error) {
	cleared, err := enforcer.store.ClearAccountHold(ctx, email, claimID)
	if err != nil {
		return false, err
	}
	if cleared && claimID != nil {
		if err := enforcer.store.ClearHoldApplied(ctx, *claimID); err != nil {
			return false, err
		}
	}
	return cleared, nil
}

// holdIsStale reports whether the referenced claim no longer justifies a
// hold. A dangling claim reference counts as stale.
func (enforcer *HoldEnforcer) holdIsStale(ctx context.Context, claimID ClaimID) (bool, error) {
	claim, err := enforcer.store.GetClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	if claim.Status.Terminal() {
		return true, nil
	}
	return claim.GuestRespondedAt != nil, nil
}
