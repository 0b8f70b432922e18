package claims

import (
	"context"
	"fmt"
	"time"
)

// Scheduler is the stateless deadline worker. Each invocation performs two
// independent passes over pending claims: reminders for deadlines inside the
// reminder window, and hold escalation for deadlines already passed. Both
// passes are safe under at-least-once invocation: the reminder_sent_at and
// account_hold_applied guards make re-runs no-ops.
type Scheduler struct {
	store    Store
	enforcer *HoldEnforcer
	notifier NotificationGateway
	cfg      Config
	nowFn    func() time.Time
	logger   OperationLogger
}

// NewScheduler wires a Scheduler.
func NewScheduler(store Store, enforcer *HoldEnforcer, notifier NotificationGateway, cfg Config, now func() time.Time, logger OperationLogger) (*Scheduler, error) {
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
	return &Scheduler{store: store, enforcer: enforcer, notifier: notifier, cfg: cfg, nowFn: now, logger: logger}, nil
}

// RunReport summarizes one scheduler invocation.
type RunReport struct {
	RemindersScanned   int
	RemindersSent      int
	RemindersFailed    int
	EscalationsScanned int
	HoldsApplied       int
	EscalationsFailed  int
}

// Run executes the reminder pass followed by the escalation pass. A failure
// on one claim never aborts the rest of the batch; only a failed selection
// query is a hard error.
func (scheduler *Scheduler) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{}
	if err := scheduler.reminderPass(ctx, &report); err != nil {
		return report, err
	}
	if err := scheduler.escalationPass(ctx, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (scheduler *Scheduler) reminderPass(ctx context.Context, report *RunReport) error {
	now := scheduler.nowFn()
	due, err := scheduler.store.ListClaimsDueReminder(ctx, now, scheduler.cfg.ReminderWindow)
	if err != nil {
		return WrapError(operationReminderPass, "claims", "select", err)
	}
	report.RemindersScanned = len(due)
	for _, claim := range due {
		if err := scheduler.remindClaim(ctx, claim, now); err != nil {
			report.RemindersFailed++
			scheduler.logOperation(ctx, OperationLog{
				Operation: operationReminderPass,
				ClaimID:   claim.ID,
				Actor:     scheduleActor,
				Error:     err,
			})
			continue
		}
		report.RemindersSent++
	}
	return nil
}

// remindClaim sends the approaching-deadline reminder and records the
// reminder flag. The flag write happens even when the send fails after its
// retry: one missed email is acceptable, a duplicate storm is not.
func (scheduler *Scheduler) remindClaim(ctx context.Context, claim *Claim, now time.Time) error {
	booking, err := scheduler.store.GetBooking(ctx, claim.BookingID)
	if err != nil {
		return err
	}
	hoursRemaining := int(claim.GuestResponseDeadline.Sub(now).Hours())
	sendErr := sendWithRetry(ctx, scheduler.notifier, booking.GuestEmail.String(), TemplateResponseReminder, map[string]string{
		"claim_id":        claim.ID.String(),
		"hours_remaining": fmt.Sprintf("%d", hoursRemaining),
		"deadline":        claim.GuestResponseDeadline.UTC().Format(time.RFC3339),
	})
	marked, err := scheduler.store.MarkReminderSent(ctx, claim.ID, now)
	if err != nil {
		return err
	}
	if sendErr != nil {
		scheduler.logOperation(ctx, OperationLog{
			Operation: operationReminderPass,
			ClaimID:   claim.ID,
			Actor:     scheduleActor,
			Status:    operationStatusError,
			Error:     fmt.Errorf("%w: %v", ErrNotification, sendErr),
		})
	}
	if marked {
		return appendTimeline(ctx, scheduler.store, claim.ID, EventReminderSent, scheduleActor, "response deadline reminder sent", now)
	}
	return nil
}

func (scheduler *Scheduler) escalationPass(ctx context.Context, report *RunReport) error {
	now := scheduler.nowFn()
	overdue, err := scheduler.store.ListClaimsPastDeadline(ctx, now)
	if err != nil {
		return WrapError(operationEscalationPass, "claims", "select", err)
	}
	report.EscalationsScanned = len(overdue)
	for _, claim := range overdue {
		applied, err := scheduler.escalateClaim(ctx, claim, now)
		if err != nil {
			report.EscalationsFailed++
			scheduler.logOperation(ctx, OperationLog{
				Operation: operationEscalationPass,
				ClaimID:   claim.ID,
				Actor:     scheduleActor,
				Error:     err,
			})
			continue
		}
		if applied {
			report.HoldsApplied++
		}
	}
	return nil
}

// escalateClaim applies the account hold for an unanswered claim. The
// claim's account_hold_applied flag is written last so a crash anywhere
// earlier re-runs the escalation safely on the next invocation.
func (scheduler *Scheduler) escalateClaim(ctx context.Context, claim *Claim, now time.Time) (bool, error) {
	booking, err := scheduler.store.GetBooking(ctx, claim.BookingID)
	if err != nil {
		return false, err
	}
	reason := fmt.Sprintf("no response to damage claim %s by %s", claim.ID.String(), claim.GuestResponseDeadline.UTC().Format(time.RFC3339))
	held, err := scheduler.enforcer.Apply(ctx, booking.GuestEmail, claim.ID, reason)
	if err != nil {
		return false, err
	}
	if !held {
		// Another claim's hold occupies the account; this claim stays
		// unescalated and is retried on a later run.
		return false, nil
	}
	if sendErr := sendWithRetry(ctx, scheduler.notifier, booking.GuestEmail.String(), TemplateHoldApplied, map[string]string{
		"claim_id": claim.ID.String(),
	}); sendErr != nil {
		scheduler.logOperation(ctx, OperationLog{
			Operation: operationEscalationPass,
			ClaimID:   claim.ID,
			Guest:     booking.GuestEmail,
			Actor:     scheduleActor,
			Status:    operationStatusError,
			Error:     fmt.Errorf("%w: %v", ErrNotification, sendErr),
		})
	}
	if err := appendTimeline(ctx, scheduler.store, claim.ID, EventHoldApplied, scheduleActor, "account hold applied after missed response deadline", now); err != nil {
		return false, err
	}
	marked, err := scheduler.store.MarkHoldApplied(ctx, claim.ID)
	if err != nil {
		return false, err
	}
	if marked {
		scheduler.logOperation(ctx, OperationLog{
			Operation: operationApplyHold,
			ClaimID:   claim.ID,
			Guest:     booking.GuestEmail,
			Actor:     scheduleActor,
		})
	}
	return marked, nil
}

func (scheduler *Scheduler) logOperation(ctx context.Context, entry OperationLog) {
	if scheduler.logger == nil {
		return
	}
	finishOperationLog(&entry)
	scheduler.logger.LogOperation(ctx, entry)
}
