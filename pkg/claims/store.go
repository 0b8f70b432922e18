package claims

import (
	"context"
	"time"
)

// Store is the persistence contract used by the engine. Single-row
// read-modify-write is atomic; guard-field updates are compare-and-set and
// report whether the guard actually transitioned.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	InsertClaim(ctx context.Context, claim *Claim) error
	GetClaim(ctx context.Context, claimID ClaimID) (*Claim, error)
	// UpdateClaim persists the claim, failing with ErrStaleClaim when the
	// stored updated_at no longer matches the claim's read snapshot.
	UpdateClaim(ctx context.Context, claim *Claim) error

	// MarkReminderSent sets reminder_sent_at if and only if it is still
	// unset; the boolean reports whether this call won the transition.
	MarkReminderSent(ctx context.Context, claimID ClaimID, at time.Time) (bool, error)
	// MarkHoldApplied flips account_hold_applied false to true; the boolean
	// reports whether this call won the transition.
	MarkHoldApplied(ctx context.Context, claimID ClaimID) (bool, error)
	ClearHoldApplied(ctx context.Context, claimID ClaimID) error

	ListClaimsDueReminder(ctx context.Context, now time.Time, window time.Duration) ([]*Claim, error)
	ListClaimsPastDeadline(ctx context.Context, now time.Time) ([]*Claim, error)

	AddDamagePhotos(ctx context.Context, claimID ClaimID, photos []DamagePhoto) error
	ListDamagePhotos(ctx context.Context, claimID ClaimID) ([]DamagePhoto, error)

	AppendTimelineEvent(ctx context.Context, event TimelineEvent) error
	ListTimeline(ctx context.Context, claimID ClaimID) ([]TimelineEvent, error)

	GetGuestAccount(ctx context.Context, email GuestEmail) (*GuestAccount, error)
	// SetAccountHold writes the hold fields. Returns true when the hold is
	// in place for the given claim after the call (freshly written or
	// already present); false when a different claim's hold occupies the
	// account, which is left untouched.
	SetAccountHold(ctx context.Context, email GuestEmail, claimID ClaimID, reason string, at time.Time) (bool, error)
	// ClearAccountHold clears the hold fields. When claimID is non-nil the
	// clear only applies if the held claim matches; the boolean reports
	// whether a hold was actually cleared.
	ClearAccountHold(ctx context.Context, email GuestEmail, claimID *ClaimID) (bool, error)

	GetBooking(ctx context.Context, bookingID BookingID) (*Booking, error)
	GetPolicy(ctx context.Context, policyID string) (*Policy, error)

	InsertDispute(ctx context.Context, dispute *Dispute) error
	GetDispute(ctx context.Context, disputeID DisputeID) (*Dispute, error)
	// ResolveDispute persists the resolved dispute, failing with
	// ErrDisputeClosed if the stored status is already terminal.
	ResolveDispute(ctx context.Context, dispute *Dispute) error
	InsertDisputeMessage(ctx context.Context, disputeID DisputeID, body string, at time.Time) error
	UpdateAdminNotificationStatus(ctx context.Context, disputeID DisputeID, status string) error

	AppendAuditEntry(ctx context.Context, entry AuditEntry) error

	SetVehicleActive(ctx context.Context, vehicleID string, active bool) error
	// CountClaimsForVehicle recomputes the vehicle's claim count from the
	// claim table; the engine never maintains a denormalized counter.
	CountClaimsForVehicle(ctx context.Context, vehicleID string) (int64, error)

	// IncrementRateCounter bumps a TTL-scoped counter shared across service
	// instances and returns the post-increment count within the window.
	IncrementRateCounter(ctx context.Context, key string, ttl time.Duration, now time.Time) (int64, error)
}

// NotificationGateway delivers templated messages. Best effort: failures are
// logged and never block core state transitions.
type NotificationGateway interface {
	Send(ctx context.Context, recipient string, templateID string, data map[string]string) error
}

// PaymentGateway executes refunds against a prior charge.
type PaymentGateway interface {
	Refund(ctx context.Context, chargeReference string, amountCents AmountCents, reason string) (refundID string, err error)
}
