package claims

const (
	operationCreateClaim          = "create_claim"
	operationStartReview          = "start_review"
	operationRequestGuestResponse = "request_guest_response"
	operationGuestResponse        = "guest_response"
	operationReview               = "review"
	operationMarkPaid             = "mark_paid"
	operationResolve              = "resolve"
	operationCloseClaim           = "close_claim"
	operationOpenDispute          = "open_dispute"
	operationResolveDispute       = "resolve_dispute"
	operationReactivateVehicle    = "reactivate_vehicle"
	operationApplyHold            = "apply_hold"
	operationRemoveHold           = "remove_hold"
	operationCheckHold            = "check_hold"
	operationReminderPass         = "reminder_pass"
	operationEscalationPass       = "escalation_pass"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)

// Timeline event kinds.
const (
	EventClaimFiled         = "claim_filed"
	EventStatusChange       = "status_change"
	EventGuestResponded     = "guest_responded"
	EventReviewed           = "reviewed"
	EventReminderSent       = "reminder_sent"
	EventHoldApplied        = "hold_applied"
	EventHoldRemoved        = "hold_removed"
	EventPaid               = "paid"
	EventResolved           = "resolved"
	EventClosed             = "closed"
	EventDisputeOpened      = "dispute_opened"
	EventDisputeResolved    = "dispute_resolved"
	EventVehicleReactivated = "vehicle_reactivated"
)

// Notification template identifiers.
const (
	TemplateClaimFiled       = "claim_filed_guest"
	TemplateResponseRequest  = "claim_response_requested"
	TemplateResponseReminder = "claim_response_reminder"
	TemplateHoldApplied      = "account_hold_applied"
	TemplateHoldLifted       = "account_hold_lifted"
	TemplateClaimDecision    = "claim_decision"
	TemplateDisputeResolved  = "dispute_resolved"
)

// Audit outcomes.
const (
	auditOutcomeResolved     = "resolved"
	auditOutcomeRefundFailed = "refund_failed"
)

const scheduleActor = "scheduler"
