package claims

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerSendsReminderOnceInsideWindow(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	notifier := &stubNotifier{}
	clock := newStubClock(testBase)
	scheduler := mustNewScheduler(test, store, notifier, clock)
	claim := seedClaim(test, store, StatusPending)

	clock.advance(25 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.RemindersScanned != 1 || report.RemindersSent != 1 {
		test.Fatalf("expected one reminder, got %+v", report)
	}
	if notifier.countTemplate(TemplateResponseReminder) != 1 {
		test.Fatalf("expected reminder notification, got %d", notifier.countTemplate(TemplateResponseReminder))
	}
	if store.mustClaim(test, claim.ID).ReminderSentAt == nil {
		test.Fatal("expected reminder flag set")
	}
	found := false
	for _, kind := range store.timelineKinds(claim.ID) {
		if kind == EventReminderSent {
			found = true
		}
	}
	if !found {
		test.Fatal("expected reminder timeline event")
	}

	rerun, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("rerun: %v", err)
	}
	if rerun.RemindersScanned != 0 {
		test.Fatalf("expected reminded claim excluded from rerun, got %+v", rerun)
	}
}

func TestSchedulerSkipsClaimOutsideReminderWindow(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	clock := newStubClock(testBase)
	scheduler := mustNewScheduler(test, store, &stubNotifier{}, clock)
	seedClaim(test, store, StatusPending)

	clock.advance(2 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.RemindersScanned != 0 || report.EscalationsScanned != 0 {
		test.Fatalf("expected nothing due far from the deadline, got %+v", report)
	}
}

func TestSchedulerMarksReminderEvenWhenSendFails(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	notifier := &stubNotifier{failRemaining: 100}
	clock := newStubClock(testBase)
	scheduler := mustNewScheduler(test, store, notifier, clock)
	claim := seedClaim(test, store, StatusPending)

	clock.advance(25 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.RemindersSent != 1 {
		test.Fatalf("expected the claim still counted, got %+v", report)
	}
	if store.mustClaim(test, claim.ID).ReminderSentAt == nil {
		test.Fatal("expected reminder flag set despite send failure")
	}
	if len(notifier.sent) != 0 {
		test.Fatalf("expected no delivery, got %d", len(notifier.sent))
	}
}

func TestSchedulerAppliesHoldPastDeadline(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	notifier := &stubNotifier{}
	clock := newStubClock(testBase)
	scheduler := mustNewScheduler(test, store, notifier, clock)
	claim := seedClaim(test, store, StatusPending)

	clock.advance(49 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.EscalationsScanned != 1 || report.HoldsApplied != 1 {
		test.Fatalf("expected one escalation, got %+v", report)
	}
	account := store.accounts["guest@example.com"]
	if !account.AccountOnHold || account.AccountHoldClaimID == nil || *account.AccountHoldClaimID != claim.ID {
		test.Fatal("expected account hold owned by the overdue claim")
	}
	if !store.mustClaim(test, claim.ID).AccountHoldApplied {
		test.Fatal("expected claim hold flag set")
	}
	if notifier.countTemplate(TemplateHoldApplied) != 1 {
		test.Fatalf("expected hold notification, got %d", notifier.countTemplate(TemplateHoldApplied))
	}

	clock.advance(time.Hour)
	rerun, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("rerun: %v", err)
	}
	if rerun.EscalationsScanned != 0 || rerun.HoldsApplied != 0 {
		test.Fatalf("expected escalated claim excluded from rerun, got %+v", rerun)
	}
}

func TestSchedulerHoldsOneClaimPerAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	clock := newStubClock(testBase)
	scheduler := mustNewScheduler(test, store, &stubNotifier{}, clock)
	first := seedClaim(test, store, StatusPending)
	second := seedClaim(test, store, StatusPending)

	clock.advance(49 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.EscalationsScanned != 2 || report.HoldsApplied != 1 {
		test.Fatalf("expected a single hold across both overdue claims, got %+v", report)
	}
	account := store.accounts["guest@example.com"]
	if !account.AccountOnHold || account.AccountHoldClaimID == nil {
		test.Fatal("expected account held")
	}
	flagged := 0
	for _, claim := range []*Claim{first, second} {
		if store.mustClaim(test, claim.ID).AccountHoldApplied {
			flagged++
			if *account.AccountHoldClaimID != claim.ID {
				test.Fatal("expected the flagged claim to own the hold")
			}
		}
	}
	if flagged != 1 {
		test.Fatalf("expected exactly one flagged claim, got %d", flagged)
	}
}

func TestSchedulerReportsFailureWithoutAbortingBatch(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	clock := newStubClock(testBase)
	scheduler := mustNewScheduler(test, store, &stubNotifier{}, clock)
	seedClaim(test, store, StatusPending)
	broken := seedClaim(test, store, StatusPending)
	broken.BookingID = mustBookingID(test, "booking-gone")

	clock.advance(49 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.EscalationsScanned != 2 {
		test.Fatalf("expected both claims scanned, got %+v", report)
	}
	if report.EscalationsFailed != 1 || report.HoldsApplied != 1 {
		test.Fatalf("expected one failure and one hold, got %+v", report)
	}
}

func TestSchedulerTracksReArmedResponseDeadline(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	notifier := &stubNotifier{}
	clock := newStubClock(testBase)
	service := mustNewService(test, store, notifier, clock)
	scheduler := mustNewScheduler(test, store, notifier, clock)
	claim := seedClaim(test, store, StatusUnderReview)

	clock.advance(10 * time.Hour)
	if err := service.RequestGuestResponse(context.Background(), claim.ID, "admin-1"); err != nil {
		test.Fatalf("request guest response: %v", err)
	}
	rearmed := store.mustClaim(test, claim.ID)
	if rearmed.Status != StatusGuestResponsePending {
		test.Fatalf("status = %s, want %s", rearmed.Status, StatusGuestResponsePending)
	}
	if !rearmed.GuestResponseDeadline.After(claim.GuestResponseDeadline) {
		test.Fatal("expected a later deadline after the response request")
	}

	clock.advance(25 * time.Hour)
	report, err := scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run: %v", err)
	}
	if report.RemindersScanned != 1 || report.RemindersSent != 1 {
		test.Fatalf("expected reminder for re-armed deadline, got %+v", report)
	}
	if notifier.countTemplate(TemplateResponseReminder) != 1 {
		test.Fatalf("expected reminder notification, got %d", notifier.countTemplate(TemplateResponseReminder))
	}

	clock.advance(24 * time.Hour)
	report, err = scheduler.Run(context.Background())
	if err != nil {
		test.Fatalf("run past deadline: %v", err)
	}
	if report.EscalationsScanned != 1 || report.HoldsApplied != 1 {
		test.Fatalf("expected escalation past re-armed deadline, got %+v", report)
	}
	if !store.mustClaim(test, claim.ID).AccountHoldApplied {
		test.Fatal("expected account hold flag set")
	}
}

func mustNewScheduler(test *testing.T, store Store, notifier NotificationGateway, clock *stubClock) *Scheduler {
	test.Helper()
	enforcer, err := NewHoldEnforcer(store, clock.Now)
	if err != nil {
		test.Fatalf("new enforcer: %v", err)
	}
	scheduler, err := NewScheduler(store, enforcer, notifier, Config{}, clock.Now, nil)
	if err != nil {
		test.Fatalf("new scheduler: %v", err)
	}
	return scheduler
}
