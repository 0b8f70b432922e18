package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClaimRecord mirrors the claims table. The FNOL narrative is stored as one
// JSON sub-document; it is immutable after submission except by explicit
// admin correction.
type ClaimRecord struct {
	ClaimID      string  `gorm:"type:uuid;primaryKey"`
	BookingID    string  `gorm:"not null;index:idx_claims_booking"`
	HostID       string  `gorm:"not null"`
	VehicleID    string  `gorm:"not null;index:idx_claims_vehicle"`
	PolicyID     *string `gorm:""`
	Type         string  `gorm:"not null"`
	Severity     string  `gorm:""`
	PrimaryParty string  `gorm:""`

	Incident datatypes.JSON `gorm:"type:jsonb;not null"`

	EstimatedCostCents  int64  `gorm:"not null"`
	ApprovedAmountCents *int64 `gorm:""`
	DeductibleCents     int64  `gorm:"not null;default:0"`

	GuestResponseText     *string    `gorm:""`
	GuestResponseDeadline time.Time  `gorm:"not null;index:idx_claims_deadline"`
	GuestRespondedAt      *time.Time `gorm:""`
	ReminderSentAt        *time.Time `gorm:""`
	AccountHoldApplied    bool       `gorm:"not null;default:false"`

	Status      string     `gorm:"not null;index:idx_claims_status"`
	ReviewedBy  *string    `gorm:""`
	ReviewedAt  *time.Time `gorm:""`
	ReviewNotes *string    `gorm:""`

	VehicleDeactivated   bool       `gorm:"not null;default:false"`
	VehicleReactivatedAt *time.Time `gorm:""`
	VehicleReactivatedBy *string    `gorm:""`

	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
	ResolvedAt *time.Time `gorm:""`
	PaidAt     *time.Time `gorm:""`
}

func (ClaimRecord) TableName() string { return "claims" }

func (record *ClaimRecord) BeforeCreate(tx *gorm.DB) error {
	if record.ClaimID == "" {
		record.ClaimID = uuid.NewString()
	}
	return nil
}

// DamagePhotoRecord mirrors the damage_photos table; append-only, soft
// deleted only.
type DamagePhotoRecord struct {
	PhotoID      string    `gorm:"type:uuid;primaryKey"`
	ClaimID      string    `gorm:"type:uuid;not null;index:idx_photos_claim,priority:1"`
	URL          string    `gorm:"not null"`
	Caption      string    `gorm:""`
	UploaderRole string    `gorm:"not null"`
	Position     int       `gorm:"not null;index:idx_photos_claim,priority:2"`
	Deleted      bool      `gorm:"not null;default:false"`
	UploadedAt   time.Time `gorm:"not null"`
}

func (DamagePhotoRecord) TableName() string { return "damage_photos" }

func (record *DamagePhotoRecord) BeforeCreate(tx *gorm.DB) error {
	if record.PhotoID == "" {
		record.PhotoID = uuid.NewString()
	}
	return nil
}

// TimelineEventRecord mirrors the claim_timeline table; append-only audit.
type TimelineEventRecord struct {
	EventID   string    `gorm:"type:uuid;primaryKey"`
	ClaimID   string    `gorm:"type:uuid;not null;index:idx_timeline_claim,priority:1"`
	Kind      string    `gorm:"not null"`
	Actor     string    `gorm:""`
	Detail    string    `gorm:""`
	CreatedAt time.Time `gorm:"not null;index:idx_timeline_claim,priority:2"`
}

func (TimelineEventRecord) TableName() string { return "claim_timeline" }

func (record *TimelineEventRecord) BeforeCreate(tx *gorm.DB) error {
	if record.EventID == "" {
		record.EventID = uuid.NewString()
	}
	return nil
}

// GuestAccountRecord mirrors the guest_accounts table. Only the hold fields
// are owned by the claims engine; suspension and ban fields belong to the
// trust-and-safety flows and are read here to compute the booking gate.
type GuestAccountRecord struct {
	Email                string     `gorm:"primaryKey"`
	AccountOnHold        bool       `gorm:"not null;default:false"`
	AccountHoldReason    *string    `gorm:""`
	AccountHoldClaimID   *string    `gorm:"type:uuid"`
	AccountHoldAppliedAt *time.Time `gorm:""`
	SuspendedAt          *time.Time `gorm:""`
	SuspensionExpiresAt  *time.Time `gorm:""`
	BannedAt             *time.Time `gorm:""`
	CreatedAt            time.Time  `gorm:"not null"`
	UpdatedAt            time.Time  `gorm:"not null"`
}

func (GuestAccountRecord) TableName() string { return "guest_accounts" }

// BookingRecord is the read-only slice of the bookings table the engine
// consumes.
type BookingRecord struct {
	BookingID       string    `gorm:"type:uuid;primaryKey"`
	GuestEmail      string    `gorm:"not null;index:idx_bookings_guest"`
	GuestName       string    `gorm:""`
	HostEmail       string    `gorm:""`
	VehicleID       string    `gorm:"not null"`
	ChargeReference string    `gorm:""`
	TotalCents      int64     `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (BookingRecord) TableName() string { return "bookings" }

// PolicyRecord mirrors the policies table.
type PolicyRecord struct {
	PolicyID        string    `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"not null"`
	DeductibleCents int64     `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (PolicyRecord) TableName() string { return "policies" }

// DisputeRecord mirrors the disputes table. A claim spawns at most one
// dispute, enforced by the unique index.
type DisputeRecord struct {
	DisputeID         string     `gorm:"type:uuid;primaryKey"`
	BookingID         string     `gorm:"not null;index:idx_disputes_booking"`
	ClaimID           *string    `gorm:"type:uuid;index:uniq_disputes_claim,unique"`
	RaisedBy          string     `gorm:"not null"`
	Reason            string     `gorm:"not null"`
	Status            string     `gorm:"not null"`
	Resolution        *string    `gorm:""`
	ActionTaken       *string    `gorm:""`
	RefundAmountCents int64      `gorm:"not null;default:0"`
	RefundID          *string    `gorm:""`
	ResolvedBy        *string    `gorm:""`
	CreatedAt         time.Time  `gorm:"not null"`
	UpdatedAt         time.Time  `gorm:"not null"`
	ResolvedAt        *time.Time `gorm:""`
}

func (DisputeRecord) TableName() string { return "disputes" }

func (record *DisputeRecord) BeforeCreate(tx *gorm.DB) error {
	if record.DisputeID == "" {
		record.DisputeID = uuid.NewString()
	}
	return nil
}

// DisputeMessageRecord mirrors the dispute_messages table; resolution
// messages visible to both guest and host.
type DisputeMessageRecord struct {
	MessageID string    `gorm:"type:uuid;primaryKey"`
	DisputeID string    `gorm:"type:uuid;not null;index:idx_dispute_messages"`
	Body      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (DisputeMessageRecord) TableName() string { return "dispute_messages" }

func (record *DisputeMessageRecord) BeforeCreate(tx *gorm.DB) error {
	if record.MessageID == "" {
		record.MessageID = uuid.NewString()
	}
	return nil
}

// AdminNotificationRecord mirrors the admin_notifications table.
type AdminNotificationRecord struct {
	NotificationID string    `gorm:"type:uuid;primaryKey"`
	DisputeID      *string   `gorm:"type:uuid;index:idx_admin_notifications_dispute"`
	Kind           string    `gorm:"not null"`
	Status         string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (AdminNotificationRecord) TableName() string { return "admin_notifications" }

// AuditEntryRecord mirrors the append-only audit_log table.
type AuditEntryRecord struct {
	EntryID     string    `gorm:"type:uuid;primaryKey"`
	Subject     string    `gorm:"not null;index:idx_audit_subject,priority:1"`
	SubjectID   string    `gorm:"not null;index:idx_audit_subject,priority:2"`
	Action      string    `gorm:"not null"`
	ActorID     string    `gorm:""`
	AmountCents int64     `gorm:"not null;default:0"`
	Outcome     string    `gorm:"not null"`
	Detail      string    `gorm:""`
	CreatedAt   time.Time `gorm:"not null"`
}

func (AuditEntryRecord) TableName() string { return "audit_log" }

func (record *AuditEntryRecord) BeforeCreate(tx *gorm.DB) error {
	if record.EntryID == "" {
		record.EntryID = uuid.NewString()
	}
	return nil
}

// VehicleRecord is the slice of the vehicles table the engine touches.
type VehicleRecord struct {
	VehicleID string    `gorm:"primaryKey"`
	Active    bool      `gorm:"not null;default:true"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (VehicleRecord) TableName() string { return "vehicles" }

// RateCounterRecord backs the TTL counters shared across service instances.
type RateCounterRecord struct {
	CounterKey string    `gorm:"primaryKey"`
	Count      int64     `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (RateCounterRecord) TableName() string { return "rate_limits" }

// Models lists every table the engine migrates.
func Models() []any {
	return []any{
		&ClaimRecord{},
		&DamagePhotoRecord{},
		&TimelineEventRecord{},
		&GuestAccountRecord{},
		&BookingRecord{},
		&PolicyRecord{},
		&DisputeRecord{},
		&DisputeMessageRecord{},
		&AdminNotificationRecord{},
		&AuditEntryRecord{},
		&VehicleRecord{},
		&RateCounterRecord{},
	}
}
