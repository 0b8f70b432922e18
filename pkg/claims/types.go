package claims

import (
	"fmt"
	"strings"
	"time"
)

// AmountCents is an integer currency amount in cents, never negative in
// stored form.
type AmountCents int64

// NewAmountCents validates a non-negative amount.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cents value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// ClaimID identifies a claim.
type ClaimID struct {
	value string
}

// NewClaimID validates and normalizes a claim id.
func NewClaimID(raw string) (ClaimID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ClaimID{}, fmt.Errorf("%w: empty value", ErrInvalidClaimID)
	}
	return ClaimID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ClaimID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id ClaimID) IsZero() bool {
	return id.value == ""
}

// BookingID identifies the booking a claim was filed against.
type BookingID struct {
	value string
}

// NewBookingID validates and normalizes a booking id.
func NewBookingID(raw string) (BookingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BookingID{}, fmt.Errorf("%w: empty value", ErrInvalidBookingID)
	}
	return BookingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BookingID) String() string {
	return id.value
}

// DisputeID identifies a dispute.
type DisputeID struct {
	value string
}

// NewDisputeID validates and normalizes a dispute id.
func NewDisputeID(raw string) (DisputeID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DisputeID{}, fmt.Errorf("%w: empty value", ErrInvalidDisputeID)
	}
	return DisputeID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id DisputeID) String() string {
	return id.value
}

// GuestEmail identifies a guest account.
type GuestEmail struct {
	value string
}

// NewGuestEmail validates and normalizes a guest email address.
func NewGuestEmail(raw string) (GuestEmail, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return GuestEmail{}, fmt.Errorf("%w: empty value", ErrInvalidGuestEmail)
	}
	at := strings.Index(normalized, "@")
	if at <= 0 || at == len(normalized)-1 {
		return GuestEmail{}, fmt.Errorf("%w: malformed address", ErrInvalidGuestEmail)
	}
	return GuestEmail{value: normalized}, nil
}

// String returns the normalized address.
func (email GuestEmail) String() string {
	return email.value
}

// ClaimStatus defines the claim lifecycle.
type ClaimStatus string

const (
	StatusPending              ClaimStatus = "PENDING"
	StatusUnderReview          ClaimStatus = "UNDER_REVIEW"
	StatusGuestResponsePending ClaimStatus = "GUEST_RESPONSE_PENDING"
	StatusGuestResponded       ClaimStatus = "GUEST_RESPONDED"
	StatusApproved             ClaimStatus = "APPROVED"
	StatusDenied               ClaimStatus = "DENIED"
	StatusDisputed             ClaimStatus = "DISPUTED"
	StatusPaid                 ClaimStatus = "PAID"
	StatusResolved             ClaimStatus = "RESOLVED"
	StatusClosed               ClaimStatus = "CLOSED"
)

// claimTransitions is the single source of truth for legal status moves.
var claimTransitions = map[ClaimStatus][]ClaimStatus{
	StatusPending:              {StatusUnderReview, StatusGuestResponded, StatusClosed},
	StatusUnderReview:          {StatusGuestResponsePending, StatusGuestResponded, StatusApproved, StatusDenied, StatusClosed},
	StatusGuestResponsePending: {StatusGuestResponded, StatusClosed},
	StatusGuestResponded:       {StatusApproved, StatusDenied, StatusClosed},
	StatusApproved:             {StatusPaid},
	StatusDenied:               {StatusDisputed, StatusResolved},
	StatusDisputed:             {StatusResolved},
	StatusPaid:                 {StatusResolved},
	StatusResolved:             {},
	StatusClosed:               {},
}

// ParseClaimStatus validates a raw status value.
func ParseClaimStatus(raw string) (ClaimStatus, error) {
	status := ClaimStatus(raw)
	if _, known := claimTransitions[status]; !known {
		return "", fmt.Errorf("%w: %q", ErrInvalidClaimStatus, raw)
	}
	return status, nil
}

// String returns the stored representation.
func (status ClaimStatus) String() string {
	return string(status)
}

// CanTransitionTo reports whether the move is listed in the transition table.
func (status ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist.
func (status ClaimStatus) Terminal() bool {
	return len(claimTransitions[status]) == 0
}

// ClaimType classifies the incident.
type ClaimType string

const (
	ClaimTypeCollision  ClaimType = "collision"
	ClaimTypeTheft      ClaimType = "theft"
	ClaimTypeVandalism  ClaimType = "vandalism"
	ClaimTypeMechanical ClaimType = "mechanical"
	ClaimTypeOther      ClaimType = "other"
)

// ParseClaimType validates a raw claim type.
func ParseClaimType(raw string) (ClaimType, error) {
	switch claimType := ClaimType(raw); claimType {
	case ClaimTypeCollision, ClaimTypeTheft, ClaimTypeVandalism, ClaimTypeMechanical, ClaimTypeOther:
		return claimType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidClaimType, raw)
	}
}

// String returns the stored representation.
func (claimType ClaimType) String() string {
	return string(claimType)
}

// ClaimSeverity grades the incident impact.
type ClaimSeverity string

const (
	SeverityMinor     ClaimSeverity = "minor"
	SeverityModerate  ClaimSeverity = "moderate"
	SeverityMajor     ClaimSeverity = "major"
	SeverityTotalLoss ClaimSeverity = "total_loss"
)

// ParseClaimSeverity validates a raw severity.
func ParseClaimSeverity(raw string) (ClaimSeverity, error) {
	switch severity := ClaimSeverity(raw); severity {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityTotalLoss:
		return severity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
	}
}

// String returns the stored representation.
func (severity ClaimSeverity) String() string {
	return string(severity)
}

// PartyRole identifies who is financially primary on a claim.
type PartyRole string

const (
	PartyHost  PartyRole = "host"
	PartyGuest PartyRole = "guest"
)

// ParsePartyRole validates a raw party role.
func ParsePartyRole(raw string) (PartyRole, error) {
	switch role := PartyRole(raw); role {
	case PartyHost, PartyGuest:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPartyRole, raw)
	}
}

// String returns the stored representation.
func (role PartyRole) String() string {
	return string(role)
}

// PoliceReport captures law-enforcement involvement at first notice of loss.
type PoliceReport struct {
	Contacted    bool   `json:"contacted"`
	ReportNumber string `json:"report_number,omitempty"`
	Department   string `json:"department,omitempty"`
	OfficerName  string `json:"officer_name,omitempty"`
}

// VehicleCondition captures the vehicle state reported with the claim.
type VehicleCondition struct {
	OdometerMiles   int64  `json:"odometer_miles"`
	Drivable        bool   `json:"drivable"`
	CurrentLocation string `json:"current_location,omitempty"`
}

// OtherParty describes a third party involved in the incident.
type OtherParty struct {
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	InsuranceCarrier string `json:"insurance_carrier,omitempty"`
	PolicyNumber     string `json:"policy_number,omitempty"`
	VehicleInfo      string `json:"vehicle_info,omitempty"`
}

// InjuryReport describes injuries reported with the incident.
type InjuryReport struct {
	AnyInjured    bool   `json:"any_injured"`
	Description   string `json:"description,omitempty"`
	MedicalHelp   bool   `json:"medical_help"`
	InjuredParty  string `json:"injured_party,omitempty"`
	HospitalName  string `json:"hospital_name,omitempty"`
	AmbulanceUsed bool   `json:"ambulance_used"`
}

// Witness is a single incident witness.
type Witness struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IncidentDetails holds the immutable first-notice-of-loss narrative.
type IncidentDetails struct {
	OccurredAt        time.Time        `json:"occurred_at"`
	LocationAddress   string           `json:"location_address"`
	LocationLat       float64          `json:"location_lat"`
	LocationLng       float64          `json:"location_lng"`
	Description       string           `json:"description"`
	WeatherCondition  string           `json:"weather_condition,omitempty"`
	RoadCondition     string           `json:"road_condition,omitempty"`
	TrafficCondition  string           `json:"traffic_condition,omitempty"`
	EstimatedSpeedMPH int              `json:"estimated_speed_mph,omitempty"`
	Police            PoliceReport     `json:"police"`
	Vehicle           VehicleCondition `json:"vehicle"`
	OtherParty        *OtherParty      `json:"other_party,omitempty"`
	Injuries          *InjuryReport    `json:"injuries,omitempty"`
	Witnesses         []Witness        `json:"witnesses,omitempty"`
}

// Claim is the central entity of the engine.
type Claim struct {
	ID        ClaimID
	BookingID BookingID
	HostID    string
	VehicleID string
	PolicyID  string // empty means the manual placeholder policy

	Type         ClaimType
	Severity     ClaimSeverity
	PrimaryParty PartyRole
	Incident     IncidentDetails

	EstimatedCostCents  AmountCents
	ApprovedAmountCents *AmountCents
	DeductibleCents     AmountCents

	GuestResponseText     string
	GuestResponseDeadline time.Time
	GuestRespondedAt      *time.Time
	ReminderSentAt        *time.Time
	AccountHoldApplied    bool

	Status      ClaimStatus
	ReviewedBy  string
	ReviewedAt  *time.Time
	ReviewNotes string

	VehicleDeactivated   bool
	VehicleReactivatedAt *time.Time
	VehicleReactivatedBy string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	PaidAt     *time.Time
}

// NetPayoutCents returns the approved amount minus the deductible, clamped
// at zero. Only defined once an approved amount exists.
func (claim *Claim) NetPayoutCents() (AmountCents, bool) {
	if claim.ApprovedAmountCents == nil {
		return 0, false
	}
	return SettlementNet(*claim.ApprovedAmountCents, claim.DeductibleCents), true
}

// SettlementNet computes approved minus deductible, clamped at zero.
func SettlementNet(approved AmountCents, deductible AmountCents) AmountCents {
	net := approved.Int64() - deductible.Int64()
	if net < 0 {
		return 0
	}
	return AmountCents(net)
}

// DamagePhoto is an append-only attachment owned by one claim.
type DamagePhoto struct {
	PhotoID      string
	ClaimID      ClaimID
	URL          string
	Caption      string
	UploaderRole PartyRole
	Position     int
	Deleted      bool
	UploadedAt   time.Time
}

// GuestAccount is the hold/suspension/ban view of a guest account. The
// suspension and ban fields are read-only here; the claims engine owns only
// the hold fields.
type GuestAccount struct {
	Email                GuestEmail
	AccountOnHold        bool
	AccountHoldReason    string
	AccountHoldClaimID   *ClaimID
	AccountHoldAppliedAt *time.Time
	SuspendedAt          *time.Time
	SuspensionExpiresAt  *time.Time
	BannedAt             *time.Time
}

// Booking is the read-only reference the engine needs from a booking.
type Booking struct {
	ID              BookingID
	GuestEmail      GuestEmail
	GuestName       string
	HostEmail       string
	VehicleID       string
	ChargeReference string
	TotalCents      AmountCents
}

// Policy supplies the deductible for claims filed under it.
type Policy struct {
	PolicyID        string
	Name            string
	DeductibleCents AmountCents
}

// DisputeStatus defines the dispute lifecycle.
type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "OPEN"
	DisputeUnderReview DisputeStatus = "UNDER_REVIEW"
	DisputeResolved    DisputeStatus = "RESOLVED"
	DisputeClosed      DisputeStatus = "CLOSED"
)

// Closed reports whether the dispute accepts no further resolution.
func (status DisputeStatus) Closed() bool {
	return status == DisputeResolved || status == DisputeClosed
}

// Dispute is a human-adjudicated disagreement, usually following a denied
// claim.
type Dispute struct {
	ID                DisputeID
	BookingID         BookingID
	ClaimID           *ClaimID
	RaisedBy          PartyRole
	Reason            string
	Status            DisputeStatus
	Resolution        string
	ActionTaken       string
	RefundAmountCents AmountCents
	RefundID          string
	ResolvedBy        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

// TimelineEvent is one append-only audit entry on a claim's timeline.
type TimelineEvent struct {
	EventID   string
	ClaimID   ClaimID
	Kind      string
	Actor     string
	Detail    string
	CreatedAt time.Time
}

// AuditEntry records a financially significant action for later audit.
type AuditEntry struct {
	EntryID     string
	Subject     string
	SubjectID   string
	Action      string
	ActorID     string
	AmountCents AmountCents
	Outcome     string
	Detail      string
	CreatedAt   time.Time
}
