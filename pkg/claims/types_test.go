package claims

import (
	"errors"
	"testing"
)

func TestClaimStatusTransitions(test *testing.T) {
	test.Parallel()
	cases := []struct {
		from    ClaimStatus
		to      ClaimStatus
		allowed bool
	}{
		{StatusPending, StatusUnderReview, true},
		{StatusPending, StatusGuestResponded, true},
		{StatusPending, StatusApproved, false},
		{StatusUnderReview, StatusGuestResponsePending, true},
		{StatusUnderReview, StatusDenied, true},
		{StatusGuestResponsePending, StatusGuestResponded, true},
		{StatusGuestResponded, StatusApproved, true},
		{StatusApproved, StatusPaid, true},
		{StatusApproved, StatusResolved, false},
		{StatusDenied, StatusDisputed, true},
		{StatusDenied, StatusResolved, true},
		{StatusDisputed, StatusResolved, true},
		{StatusPaid, StatusResolved, true},
		{StatusResolved, StatusClosed, false},
		{StatusClosed, StatusPending, false},
	}
	for _, testCase := range cases {
		if got := testCase.from.CanTransitionTo(testCase.to); got != testCase.allowed {
			test.Errorf("%s -> %s: expected %v, got %v", testCase.from, testCase.to, testCase.allowed, got)
		}
	}
}

func TestClaimStatusTerminal(test *testing.T) {
	test.Parallel()
	for _, status := range []ClaimStatus{StatusResolved, StatusClosed} {
		if !status.Terminal() {
			test.Errorf("%s: expected terminal", status)
		}
	}
	for _, status := range []ClaimStatus{StatusPending, StatusApproved, StatusDisputed} {
		if status.Terminal() {
			test.Errorf("%s: expected non-terminal", status)
		}
	}
}

func TestParseClaimStatusRejectsUnknown(test *testing.T) {
	test.Parallel()
	if _, err := ParseClaimStatus("SETTLED"); !errors.Is(err, ErrInvalidClaimStatus) {
		test.Fatalf("expected ErrInvalidClaimStatus, got %v", err)
	}
}

func TestParseClaimTypeRejectsUnknown(test *testing.T) {
	test.Parallel()
	if _, err := ParseClaimType("flood"); !errors.Is(err, ErrInvalidClaimType) {
		test.Fatalf("expected ErrInvalidClaimType, got %v", err)
	}
}

func TestParsePartyRole(test *testing.T) {
	test.Parallel()
	if role, err := ParsePartyRole("guest"); err != nil || role != PartyGuest {
		test.Fatalf("expected guest role, got %v %v", role, err)
	}
	if _, err := ParsePartyRole("admin"); !errors.Is(err, ErrInvalidPartyRole) {
		test.Fatalf("expected ErrInvalidPartyRole, got %v", err)
	}
}

func TestNewGuestEmailNormalizes(test *testing.T) {
	test.Parallel()
	email, err := NewGuestEmail("  Guest@Example.COM ")
	if err != nil {
		test.Fatalf("new email: %v", err)
	}
	if email.String() != "guest@example.com" {
		test.Fatalf("expected lowercased trimmed address, got %q", email.String())
	}
	for _, raw := range []string{"", "no-at-sign", "@example.com", "guest@"} {
		if _, err := NewGuestEmail(raw); !errors.Is(err, ErrInvalidGuestEmail) {
			test.Fatalf("%q: expected ErrInvalidGuestEmail, got %v", raw, err)
		}
	}
}

func TestNewAmountCentsRejectsNegative(test *testing.T) {
	test.Parallel()
	if _, err := NewAmountCents(-1); !errors.Is(err, ErrInvalidAmountCents) {
		test.Fatalf("expected ErrInvalidAmountCents, got %v", err)
	}
}

func TestSettlementNetClampsAtZero(test *testing.T) {
	test.Parallel()
	if net := SettlementNet(1200, 500); net != 700 {
		test.Fatalf("expected 700, got %d", net.Int64())
	}
	if net := SettlementNet(300, 500); net != 0 {
		test.Fatalf("expected clamp to zero, got %d", net.Int64())
	}
}

func TestNetPayoutUndefinedWithoutApproval(test *testing.T) {
	test.Parallel()
	claim := &Claim{DeductibleCents: 500}
	if _, defined := claim.NetPayoutCents(); defined {
		test.Fatal("expected undefined payout before approval")
	}
}

func TestDisputeStatusClosed(test *testing.T) {
	test.Parallel()
	if DisputeOpen.Closed() || DisputeUnderReview.Closed() {
		test.Fatal("open statuses must accept resolution")
	}
	if !DisputeResolved.Closed() || !DisputeClosed.Closed() {
		test.Fatal("terminal statuses must reject resolution")
	}
}
