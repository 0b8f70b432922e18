package claims

import (
	"context"
	"testing"
	"time"
)

func TestCheckHoldCleanAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if check.HasHold || !check.CanBook {
		test.Fatalf("expected clear account, got %+v", check)
	}
}

func TestCheckHoldBannedAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	banned := testBase.Add(-24 * time.Hour)
	store.accounts["guest@example.com"].BannedAt = &banned
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if !check.HasHold || check.CanBook || check.Reason != "banned" {
		test.Fatalf("expected ban to block, got %+v", check)
	}
}

func TestCheckHoldActiveSuspension(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	until := testBase.Add(72 * time.Hour)
	store.accounts["guest@example.com"].SuspensionExpiresAt = &until
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if !check.HasHold || check.Reason != "suspended" {
		test.Fatalf("expected suspension to block, got %+v", check)
	}
}

func TestCheckHoldExpiredSuspension(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	until := testBase.Add(-time.Hour)
	store.accounts["guest@example.com"].SuspensionExpiresAt = &until
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if !check.CanBook {
		test.Fatalf("expected lapsed suspension ignored, got %+v", check)
	}
}

func TestCheckHoldActiveClaimHold(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	claim := seedClaim(test, store, StatusPending)
	holdClaim(test, store, claim)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if !check.HasHold || check.CanBook {
		test.Fatalf("expected claim hold to block, got %+v", check)
	}
	if check.ClaimID == nil || *check.ClaimID != claim.ID {
		test.Fatal("expected the blocking claim id surfaced")
	}
}

func TestCheckHoldSelfHealsStaleHold(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	claim := seedClaim(test, store, StatusResolved)
	holdClaim(test, store, claim)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if !check.CanBook {
		test.Fatalf("expected stale hold cleared, got %+v", check)
	}
	account := store.accounts["guest@example.com"]
	if account.AccountOnHold {
		test.Fatal("expected hold removed from account")
	}
	if store.mustClaim(test, claim.ID).AccountHoldApplied {
		test.Fatal("expected claim flag cleared")
	}
}

func TestCheckHoldDanglingClaimReference(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	account := store.accounts["guest@example.com"]
	orphan := mustClaimID(test, "claim-gone")
	appliedAt := testBase
	account.AccountOnHold = true
	account.AccountHoldClaimID = &orphan
	account.AccountHoldAppliedAt = &appliedAt
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	check, err := enforcer.CheckHold(context.Background(), mustEmail(test, "guest@example.com"))
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if !check.CanBook {
		test.Fatalf("expected dangling hold treated as stale, got %+v", check)
	}
}

func TestApplyHoldIdempotentForOwningClaim(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	claim := seedClaim(test, store, StatusPending)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))
	email := mustEmail(test, "guest@example.com")

	for attempt := 0; attempt < 2; attempt++ {
		held, err := enforcer.Apply(context.Background(), email, claim.ID, "no response")
		if err != nil {
			test.Fatalf("apply %d: %v", attempt, err)
		}
		if !held {
			test.Fatalf("apply %d: expected hold owned", attempt)
		}
	}
}

func TestApplyHoldRefusesForeignClaim(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	first := seedClaim(test, store, StatusPending)
	second := seedClaim(test, store, StatusPending)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))
	email := mustEmail(test, "guest@example.com")

	if held, err := enforcer.Apply(context.Background(), email, first.ID, "no response"); err != nil || !held {
		test.Fatalf("first apply: held=%v err=%v", held, err)
	}
	held, err := enforcer.Apply(context.Background(), email, second.ID, "no response")
	if err != nil {
		test.Fatalf("second apply: %v", err)
	}
	if held {
		test.Fatal("expected existing hold to stay with the first claim")
	}
}

func TestRemoveHoldOnlyForOwningClaim(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	owner := seedClaim(test, store, StatusPending)
	other := seedClaim(test, store, StatusPending)
	holdClaim(test, store, owner)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))
	email := mustEmail(test, "guest@example.com")

	cleared, err := enforcer.Remove(context.Background(), email, &other.ID)
	if err != nil {
		test.Fatalf("remove: %v", err)
	}
	if cleared {
		test.Fatal("expected foreign claim unable to lift the hold")
	}
	if !store.accounts["guest@example.com"].AccountOnHold {
		test.Fatal("expected hold intact")
	}

	cleared, err = enforcer.Remove(context.Background(), email, &owner.ID)
	if err != nil {
		test.Fatalf("remove: %v", err)
	}
	if !cleared {
		test.Fatal("expected owning claim to lift the hold")
	}
	if store.accounts["guest@example.com"].AccountOnHold {
		test.Fatal("expected hold gone")
	}
}

func TestRemoveAbsentHoldIsNoOp(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	enforcer := mustNewEnforcer(test, store, newStubClock(testBase))

	cleared, err := enforcer.Remove(context.Background(), mustEmail(test, "guest@example.com"), nil)
	if err != nil {
		test.Fatalf("remove: %v", err)
	}
	if cleared {
		test.Fatal("expected no-op on an account without a hold")
	}
}

func mustNewEnforcer(test *testing.T, store Store, clock *stubClock) *HoldEnforcer {
	test.Helper()
	enforcer, err := NewHoldEnforcer(store, clock.Now)
	if err != nil {
		test.Fatalf("new enforcer: %v", err)
	}
	return enforcer
}
