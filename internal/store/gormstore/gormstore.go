package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roadshare/claims/pkg/claims"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore           = "store"
	errorSubjectClaim             = "claim"
	errorSubjectPhoto             = "photo"
	errorSubjectTimeline          = "timeline"
	errorSubjectAccount           = "account"
	errorSubjectBooking           = "booking"
	errorSubjectPolicy            = "policy"
	errorSubjectDispute           = "dispute"
	errorSubjectAdminNotification = "admin_notification"
	errorSubjectAudit             = "audit"
	errorSubjectVehicle           = "vehicle"
	errorSubjectRateCounter       = "rate_counter"
	errorCodeInsert               = "insert"
	errorCodeGet                  = "get"
	errorCodeUpdate               = "update"
	errorCodeList                 = "list"
	errorCodeInvalid              = "invalid"
	errorCodeDuplicate            = "duplicate"
	errorCodeCount                = "count"
	errorCodeIncrement            = "increment"

	holdFlagColumn = "account_hold_applied"
	reminderColumn = "reminder_sent_at"
)

// Store implements claims.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore claims.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) InsertClaim(ctx context.Context, claim *claims.Claim) error {
	record, err := claimToRecord(claim)
	if err != nil {
		return wrapStoreError(errorSubjectClaim, errorCodeInvalid, err)
	}
	if err := store.db.WithContext(ctx).Create(record).Error; err != nil {
		return wrapStoreError(errorSubjectClaim, errorCodeInsert, err)
	}
	claimID, err := claims.NewClaimID(record.ClaimID)
	if err != nil {
		return wrapStoreError(errorSubjectClaim, errorCodeInvalid, err)
	}
	claim.ID = claimID
	claim.CreatedAt = record.CreatedAt
	claim.UpdatedAt = record.UpdatedAt
	return nil
}

func (store *Store) GetClaim(ctx context.Context, claimID claims.ClaimID) (*claims.Claim, error) {
	var record ClaimRecord
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("claim_id = ?", claimID.String()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapStoreError(errorSubjectClaim, errorCodeGet, fmt.Errorf("%w: claim %s", claims.ErrNotFound, claimID.String()))
		}
		return nil, wrapStoreError(errorSubjectClaim, errorCodeGet, err)
	}
	claim, err := recordToClaim(&record)
	if err != nil {
		return nil, wrapStoreError(errorSubjectClaim, errorCodeInvalid, err)
	}
	return claim, nil
}

// UpdateClaim persists the mutable claim fields with an optimistic check on
// the updated_at snapshot carried from the read.
func (store *Store) UpdateClaim(ctx context.Context, claim *claims.Claim) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":                  claim.Status.String(),
		"approved_amount_cents":   amountPtrToInt64(claim.ApprovedAmountCents),
		"deductible_cents":        claim.DeductibleCents.Int64(),
		"guest_response_text":     strPtrOrNil(claim.GuestResponseText),
		"guest_response_deadline": claim.GuestResponseDeadline,
		"guest_responded_at":      claim.GuestRespondedAt,
		"reminder_sent_at":        claim.ReminderSentAt,
		"account_hold_applied":    claim.AccountHoldApplied,
		"reviewed_by":             strPtrOrNil(claim.ReviewedBy),
		"reviewed_at":             claim.ReviewedAt,
		"review_notes":            strPtrOrNil(claim.ReviewNotes),
		"vehicle_deactivated":     claim.VehicleDeactivated,
		"vehicle_reactivated_at":  claim.VehicleReactivatedAt,
		"vehicle_reactivated_by":  strPtrOrNil(claim.VehicleReactivatedBy),
		"resolved_at":             claim.ResolvedAt,
		"paid_at":                 claim.PaidAt,
		"updated_at":              now,
	}
	result := store.db.WithContext(ctx).
		Model(&ClaimRecord{}).
		Where("claim_id = ? AND updated_at = ?", claim.ID.String(), claim.UpdatedAt).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectClaim, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := store.db.WithContext(ctx).Model(&ClaimRecord{}).Where("claim_id = ?", claim.ID.String()).Count(&count).Error; err != nil {
			return wrapStoreError(errorSubjectClaim, errorCodeUpdate, err)
		}
		if count == 0 {
			return wrapStoreError(errorSubjectClaim, errorCodeUpdate, fmt.Errorf("%w: claim %s", claims.ErrNotFound, claim.ID.String()))
		}
		return wrapStoreError(errorSubjectClaim, errorCodeUpdate, claims.ErrStaleClaim)
	}
	claim.UpdatedAt = now
	return nil
}

func (store *Store) MarkReminderSent(ctx context.Context, claimID claims.ClaimID, at time.Time) (bool, error) {
	result := store.db.WithContext(ctx).
		Model(&ClaimRecord{}).
		Where("claim_id = ? AND "+reminderColumn+" IS NULL", claimID.String()).
		Updates(map[string]any{reminderColumn: at.UTC(), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectClaim, errorCodeUpdate, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) MarkHoldApplied(ctx context.Context, claimID claims.ClaimID) (bool, error) {
	result := store.db.WithContext(ctx).
		Model(&ClaimRecord{}).
		Where("claim_id = ? AND "+holdFlagColumn+" = ?", claimID.String(), false).
		Updates(map[string]any{holdFlagColumn: true, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectClaim, errorCodeUpdate, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) ClearHoldApplied(ctx context.Context, claimID claims.ClaimID) error {
	result := store.db.WithContext(ctx).
		Model(&ClaimRecord{}).
		Where("claim_id = ? AND "+holdFlagColumn+" = ?", claimID.String(), true).
		Updates(map[string]any{holdFlagColumn: false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectClaim, errorCodeUpdate, result.Error)
	}
	return nil
}

// deadlineStatuses lists the statuses whose guest-response deadline is
// live: freshly filed claims and claims whose deadline was re-armed by a
// response request.
func deadlineStatuses() []string {
	return []string{claims.StatusPending.String(), claims.StatusGuestResponsePending.String()}
}

func (store *Store) ListClaimsDueReminder(ctx context.Context, now time.Time, window time.Duration) ([]*claims.Claim, error) {
	var records []ClaimRecord
	err := store.db.WithContext(ctx).
		Where("status IN ?", deadlineStatuses()).
		Where("guest_response_text IS NULL").
		Where(holdFlagColumn+" = ?", false).
		Where(reminderColumn + " IS NULL").
		Where("guest_response_deadline > ? AND guest_response_deadline <= ?", now, now.Add(window)).
		Order("guest_response_deadline ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectClaim, errorCodeList, err)
	}
	return mapClaims(records)
}

func (store *Store) ListClaimsPastDeadline(ctx context.Context, now time.Time) ([]*claims.Claim, error) {
	var records []ClaimRecord
	err := store.db.WithContext(ctx).
		Where("status IN ?", deadlineStatuses()).
		Where("guest_response_text IS NULL").
		Where(holdFlagColumn+" = ?", false).
		Where("guest_response_deadline < ?", now).
		Order("guest_response_deadline ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectClaim, errorCodeList, err)
	}
	return mapClaims(records)
}

func (store *Store) AddDamagePhotos(ctx context.Context, claimID claims.ClaimID, photos []claims.DamagePhoto) error {
	var basePosition int64
	err := store.db.WithContext(ctx).
		Model(&DamagePhotoRecord{}).
		Where("claim_id = ?", claimID.String()).
		Count(&basePosition).Error
	if err != nil {
		return wrapStoreError(errorSubjectPhoto, errorCodeCount, err)
	}
	records := make([]DamagePhotoRecord, 0, len(photos))
	for offset, photo := range photos {
		uploadedAt := photo.UploadedAt
		if uploadedAt.IsZero() {
			uploadedAt = time.Now().UTC()
		}
		records = append(records, DamagePhotoRecord{
			ClaimID:      claimID.String(),
			URL:          photo.URL,
			Caption:      photo.Caption,
			UploaderRole: photo.UploaderRole.String(),
			Position:     int(basePosition) + offset,
			UploadedAt:   uploadedAt,
		})
	}
	if err := store.db.WithContext(ctx).Create(&records).Error; err != nil {
		return wrapStoreError(errorSubjectPhoto, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListDamagePhotos(ctx context.Context, claimID claims.ClaimID) ([]claims.DamagePhoto, error) {
	var records []DamagePhotoRecord
	err := store.db.WithContext(ctx).
		Where("claim_id = ? AND deleted = ?", claimID.String(), false).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPhoto, errorCodeList, err)
	}
	photos := make([]claims.DamagePhoto, 0, len(records))
	for _, record := range records {
		photo, err := recordToPhoto(&record)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPhoto, errorCodeInvalid, err)
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

func (store *Store) AppendTimelineEvent(ctx context.Context, event claims.TimelineEvent) error {
	record := TimelineEventRecord{
		ClaimID:   event.ClaimID.String(),
		Kind:      event.Kind,
		Actor:     event.Actor,
		Detail:    event.Detail,
		CreatedAt: event.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return wrapStoreError(errorSubjectTimeline, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListTimeline(ctx context.Context, claimID claims.ClaimID) ([]claims.TimelineEvent, error) {
	var records []TimelineEventRecord
	err := store.db.WithContext(ctx).
		Where("claim_id = ?", claimID.String()).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTimeline, errorCodeList, err)
	}
	events := make([]claims.TimelineEvent, 0, len(records))
	for _, record := range records {
		event, err := recordToTimelineEvent(&record)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTimeline, errorCodeInvalid, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (store *Store) GetGuestAccount(ctx context.Context, email claims.GuestEmail) (*claims.GuestAccount, error) {
	var record GuestAccountRecord
	err := store.db.WithContext(ctx).
		Where("email = ?", email.String()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapStoreError(errorSubjectAccount, errorCodeGet, fmt.Errorf("%w: guest account %s", claims.ErrNotFound, email.String()))
		}
		return nil, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	account, err := recordToGuestAccount(&record)
	if err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return account, nil
}

func (store *Store) SetAccountHold(ctx context.Context, email claims.GuestEmail, claimID claims.ClaimID, reason string, at time.Time) (bool, error) {
	held := false
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var record GuestAccountRecord
		err := transaction.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email.String()).
			Take(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: guest account %s", claims.ErrNotFound, email.String())
			}
			return err
		}
		if record.AccountOnHold && record.AccountHoldClaimID != nil {
			held = *record.AccountHoldClaimID == claimID.String()
			return nil
		}
		claimRef := claimID.String()
		appliedAt := at.UTC()
		updates := map[string]any{
			"account_on_hold":         true,
			"account_hold_reason":     reason,
			"account_hold_claim_id":   claimRef,
			"account_hold_applied_at": appliedAt,
			"updated_at":              time.Now().UTC(),
		}
		if err := transaction.Model(&GuestAccountRecord{}).Where("email = ?", email.String()).Updates(updates).Error; err != nil {
			return err
		}
		held = true
		return nil
	})
	if err != nil {
		return false, wrapStoreError(errorSubjectAccount, errorCodeUpdate, err)
	}
	return held, nil
}

func (store *Store) ClearAccountHold(ctx context.Context, email claims.GuestEmail, claimID *claims.ClaimID) (bool, error) {
	query := store.db.WithContext(ctx).
		Model(&GuestAccountRecord{}).
		Where("email = ? AND account_on_hold = ?", email.String(), true)
	if claimID != nil {
		query = query.Where("account_hold_claim_id = ?", claimID.String())
	}
	result := query.Updates(map[string]any{
		"account_on_hold":         false,
		"account_hold_reason":     nil,
		"account_hold_claim_id":   nil,
		"account_hold_applied_at": nil,
		"updated_at":              time.Now().UTC(),
	})
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) GetBooking(ctx context.Context, bookingID claims.BookingID) (*claims.Booking, error) {
	var record BookingRecord
	err := store.db.WithContext(ctx).
		Where("booking_id = ?", bookingID.String()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeGet, fmt.Errorf("%w: booking %s", claims.ErrNotFound, bookingID.String()))
		}
		return nil, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	booking, err := recordToBooking(&record)
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return booking, nil
}

func (store *Store) GetPolicy(ctx context.Context, policyID string) (*claims.Policy, error) {
	var record PolicyRecord
	err := store.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapStoreError(errorSubjectPolicy, errorCodeGet, fmt.Errorf("%w: policy %s", claims.ErrNotFound, policyID))
		}
		return nil, wrapStoreError(errorSubjectPolicy, errorCodeGet, err)
	}
	deductible, err := claims.NewAmountCents(record.DeductibleCents)
	if err != nil {
		return nil, wrapStoreError(errorSubjectPolicy, errorCodeInvalid, err)
	}
	return &claims.Policy{
		PolicyID:        record.PolicyID,
		Name:            record.Name,
		DeductibleCents: deductible,
	}, nil
}

func (store *Store) InsertDispute(ctx context.Context, dispute *claims.Dispute) error {
	record := disputeToRecord(dispute)
	err := store.db.WithContext(ctx).Create(record).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectDispute, errorCodeDuplicate, claims.ErrDisputeExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectDispute, errorCodeInsert, err)
	}
	disputeID, err := claims.NewDisputeID(record.DisputeID)
	if err != nil {
		return wrapStoreError(errorSubjectDispute, errorCodeInvalid, err)
	}
	dispute.ID = disputeID
	dispute.CreatedAt = record.CreatedAt
	dispute.UpdatedAt = record.UpdatedAt
	return nil
}

func (store *Store) GetDispute(ctx context.Context, disputeID claims.DisputeID) (*claims.Dispute, error) {
	var record DisputeRecord
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("dispute_id = ?", disputeID.String()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapStoreError(errorSubjectDispute, errorCodeGet, fmt.Errorf("%w: dispute %s", claims.ErrNotFound, disputeID.String()))
		}
		return nil, wrapStoreError(errorSubjectDispute, errorCodeGet, err)
	}
	dispute, err := recordToDispute(&record)
	if err != nil {
		return nil, wrapStoreError(errorSubjectDispute, errorCodeInvalid, err)
	}
	return dispute, nil
}

// ResolveDispute flips the dispute to its resolved form, refusing when the
// stored status is already terminal.
func (store *Store) ResolveDispute(ctx context.Context, dispute *claims.Dispute) error {
	now := time.Now().UTC()
	result := store.db.WithContext(ctx).
		Model(&DisputeRecord{}).
		Where("dispute_id = ? AND status NOT IN ?", dispute.ID.String(), []string{string(claims.DisputeResolved), string(claims.DisputeClosed)}).
		Updates(map[string]any{
			"status":              string(dispute.Status),
			"resolution":          strPtrOrNil(dispute.Resolution),
			"action_taken":        strPtrOrNil(dispute.ActionTaken),
			"refund_amount_cents": dispute.RefundAmountCents.Int64(),
			"refund_id":           strPtrOrNil(dispute.RefundID),
			"resolved_by":         strPtrOrNil(dispute.ResolvedBy),
			"resolved_at":         dispute.ResolvedAt,
			"updated_at":          now,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectDispute, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := store.db.WithContext(ctx).Model(&DisputeRecord{}).Where("dispute_id = ?", dispute.ID.String()).Count(&count).Error; err != nil {
			return wrapStoreError(errorSubjectDispute, errorCodeUpdate, err)
		}
		if count == 0 {
			return wrapStoreError(errorSubjectDispute, errorCodeUpdate, fmt.Errorf("%w: dispute %s", claims.ErrNotFound, dispute.ID.String()))
		}
		return wrapStoreError(errorSubjectDispute, errorCodeUpdate, claims.ErrDisputeClosed)
	}
	dispute.UpdatedAt = now
	return nil
}

func (store *Store) InsertDisputeMessage(ctx context.Context, disputeID claims.DisputeID, body string, at time.Time) error {
	record := DisputeMessageRecord{
		DisputeID: disputeID.String(),
		Body:      body,
		CreatedAt: at.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return wrapStoreError(errorSubjectDispute, errorCodeInsert, err)
	}
	return nil
}

// UpdateAdminNotificationStatus marks any notification linked to the dispute;
// a dispute without one is not an error.
func (store *Store) UpdateAdminNotificationStatus(ctx context.Context, disputeID claims.DisputeID, status string) error {
	result := store.db.WithContext(ctx).
		Model(&AdminNotificationRecord{}).
		Where("dispute_id = ?", disputeID.String()).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectAdminNotification, errorCodeUpdate, result.Error)
	}
	return nil
}

func (store *Store) AppendAuditEntry(ctx context.Context, entry claims.AuditEntry) error {
	record := AuditEntryRecord{
		Subject:     entry.Subject,
		SubjectID:   entry.SubjectID,
		Action:      entry.Action,
		ActorID:     entry.ActorID,
		AmountCents: entry.AmountCents.Int64(),
		Outcome:     entry.Outcome,
		Detail:      entry.Detail,
		CreatedAt:   entry.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return wrapStoreError(errorSubjectAudit, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) SetVehicleActive(ctx context.Context, vehicleID string, active bool) error {
	result := store.db.WithContext(ctx).
		Model(&VehicleRecord{}).
		Where("vehicle_id = ?", vehicleID).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, fmt.Errorf("%w: vehicle %s", claims.ErrNotFound, vehicleID))
	}
	return nil
}

func (store *Store) CountClaimsForVehicle(ctx context.Context, vehicleID string) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&ClaimRecord{}).
		Where("vehicle_id = ?", vehicleID).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectClaim, errorCodeCount, err)
	}
	return count, nil
}

// IncrementRateCounter bumps the shared TTL counter, resetting the window
// when the previous one expired.
func (store *Store) IncrementRateCounter(ctx context.Context, key string, ttl time.Duration, now time.Time) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var record RateCounterRecord
		err := transaction.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("counter_key = ?", key).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = RateCounterRecord{
				CounterKey: key,
				Count:      1,
				ExpiresAt:  now.Add(ttl).UTC(),
				UpdatedAt:  now.UTC(),
			}
			count = 1
			return transaction.Create(&record).Error
		}
		if err != nil {
			return err
		}
		if !record.ExpiresAt.After(now) {
			record.Count = 0
			record.ExpiresAt = now.Add(ttl).UTC()
		}
		record.Count++
		record.UpdatedAt = now.UTC()
		count = record.Count
		return transaction.Save(&record).Error
	})
	if err != nil {
		return 0, wrapStoreError(errorSubjectRateCounter, errorCodeIncrement, err)
	}
	return count, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return claims.WrapError(errorOperationStore, subject, code, err)
}

func mapClaims(records []ClaimRecord) ([]*claims.Claim, error) {
	mapped := make([]*claims.Claim, 0, len(records))
	for index := range records {
		claim, err := recordToClaim(&records[index])
		if err != nil {
			return nil, wrapStoreError(errorSubjectClaim, errorCodeInvalid, err)
		}
		mapped = append(mapped, claim)
	}
	return mapped, nil
}

func claimToRecord(claim *claims.Claim) (*ClaimRecord, error) {
	incident, err := json.Marshal(claim.Incident)
	if err != nil {
		return nil, err
	}
	createdAt := claim.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := claim.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return &ClaimRecord{
		ClaimID:               claim.ID.String(),
		BookingID:             claim.BookingID.String(),
		HostID:                claim.HostID,
		VehicleID:             claim.VehicleID,
		PolicyID:              strPtrOrNil(claim.PolicyID),
		Type:                  claim.Type.String(),
		Severity:              claim.Severity.String(),
		PrimaryParty:          claim.PrimaryParty.String(),
		Incident:              datatypes.JSON(incident),
		EstimatedCostCents:    claim.EstimatedCostCents.Int64(),
		ApprovedAmountCents:   amountPtrToInt64(claim.ApprovedAmountCents),
		DeductibleCents:       claim.DeductibleCents.Int64(),
		GuestResponseText:     strPtrOrNil(claim.GuestResponseText),
		GuestResponseDeadline: claim.GuestResponseDeadline,
		GuestRespondedAt:      claim.GuestRespondedAt,
		ReminderSentAt:        claim.ReminderSentAt,
		AccountHoldApplied:    claim.AccountHoldApplied,
		Status:                claim.Status.String(),
		ReviewedBy:            strPtrOrNil(claim.ReviewedBy),
		ReviewedAt:            claim.ReviewedAt,
		ReviewNotes:           strPtrOrNil(claim.ReviewNotes),
		VehicleDeactivated:    claim.VehicleDeactivated,
		VehicleReactivatedAt:  claim.VehicleReactivatedAt,
		VehicleReactivatedBy:  strPtrOrNil(claim.VehicleReactivatedBy),
		CreatedAt:             createdAt,
		UpdatedAt:             updatedAt,
		ResolvedAt:            claim.ResolvedAt,
		PaidAt:                claim.PaidAt,
	}, nil
}

func recordToClaim(record *ClaimRecord) (*claims.Claim, error) {
	claimID, err := claims.NewClaimID(record.ClaimID)
	if err != nil {
		return nil, err
	}
	bookingID, err := claims.NewBookingID(record.BookingID)
	if err != nil {
		return nil, err
	}
	status, err := claims.ParseClaimStatus(record.Status)
	if err != nil {
		return nil, err
	}
	claimType, err := claims.ParseClaimType(record.Type)
	if err != nil {
		return nil, err
	}
	var severity claims.ClaimSeverity
	if record.Severity != "" {
		severity, err = claims.ParseClaimSeverity(record.Severity)
		if err != nil {
			return nil, err
		}
	}
	var primaryParty claims.PartyRole
	if record.PrimaryParty != "" {
		primaryParty, err = claims.ParsePartyRole(record.PrimaryParty)
		if err != nil {
			return nil, err
		}
	}
	estimated, err := claims.NewAmountCents(record.EstimatedCostCents)
	if err != nil {
		return nil, err
	}
	deductible, err := claims.NewAmountCents(record.DeductibleCents)
	if err != nil {
		return nil, err
	}
	var approved *claims.AmountCents
	if record.ApprovedAmountCents != nil {
		amount, err := claims.NewAmountCents(*record.ApprovedAmountCents)
		if err != nil {
			return nil, err
		}
		approved = &amount
	}
	var incident claims.IncidentDetails
	if len(record.Incident) > 0 {
		if err := json.Unmarshal(record.Incident, &incident); err != nil {
			return nil, err
		}
	}
	return &claims.Claim{
		ID:                    claimID,
		BookingID:             bookingID,
		HostID:                record.HostID,
		VehicleID:             record.VehicleID,
		PolicyID:              derefString(record.PolicyID),
		Type:                  claimType,
		Severity:              severity,
		PrimaryParty:          primaryParty,
		Incident:              incident,
		EstimatedCostCents:    estimated,
		ApprovedAmountCents:   approved,
		DeductibleCents:       deductible,
		GuestResponseText:     derefString(record.GuestResponseText),
		GuestResponseDeadline: record.GuestResponseDeadline,
		GuestRespondedAt:      record.GuestRespondedAt,
		ReminderSentAt:        record.ReminderSentAt,
		AccountHoldApplied:    record.AccountHoldApplied,
		Status:                status,
		ReviewedBy:            derefString(record.ReviewedBy),
		ReviewedAt:            record.ReviewedAt,
		ReviewNotes:           derefString(record.ReviewNotes),
		VehicleDeactivated:    record.VehicleDeactivated,
		VehicleReactivatedAt:  record.VehicleReactivatedAt,
		VehicleReactivatedBy:  derefString(record.VehicleReactivatedBy),
		CreatedAt:             record.CreatedAt,
		UpdatedAt:             record.UpdatedAt,
		ResolvedAt:            record.ResolvedAt,
		PaidAt:                record.PaidAt,
	}, nil
}

func recordToPhoto(record *DamagePhotoRecord) (claims.DamagePhoto, error) {
	claimID, err := claims.NewClaimID(record.ClaimID)
	if err != nil {
		return claims.DamagePhoto{}, err
	}
	return claims.DamagePhoto{
		PhotoID:      record.PhotoID,
		ClaimID:      claimID,
		URL:          record.URL,
		Caption:      record.Caption,
		UploaderRole: claims.PartyRole(record.UploaderRole),
		Position:     record.Position,
		Deleted:      record.Deleted,
		UploadedAt:   record.UploadedAt,
	}, nil
}

func recordToTimelineEvent(record *TimelineEventRecord) (claims.TimelineEvent, error) {
	claimID, err := claims.NewClaimID(record.ClaimID)
	if err != nil {
		return claims.TimelineEvent{}, err
	}
	return claims.TimelineEvent{
		EventID:   record.EventID,
		ClaimID:   claimID,
		Kind:      record.Kind,
		Actor:     record.Actor,
		Detail:    record.Detail,
		CreatedAt: record.CreatedAt,
	}, nil
}

func recordToGuestAccount(record *GuestAccountRecord) (*claims.GuestAccount, error) {
	email, err := claims.NewGuestEmail(record.Email)
	if err != nil {
		return nil, err
	}
	var holdClaimID *claims.ClaimID
	if record.AccountHoldClaimID != nil {
		parsed, err := claims.NewClaimID(*record.AccountHoldClaimID)
		if err != nil {
			return nil, err
		}
		holdClaimID = &parsed
	}
	return &claims.GuestAccount{
		Email:                email,
		AccountOnHold:        record.AccountOnHold,
		AccountHoldReason:    derefString(record.AccountHoldReason),
		AccountHoldClaimID:   holdClaimID,
		AccountHoldAppliedAt: record.AccountHoldAppliedAt,
		SuspendedAt:          record.SuspendedAt,
		SuspensionExpiresAt:  record.SuspensionExpiresAt,
		BannedAt:             record.BannedAt,
	}, nil
}

func recordToBooking(record *BookingRecord) (*claims.Booking, error) {
	bookingID, err := claims.NewBookingID(record.BookingID)
	if err != nil {
		return nil, err
	}
	guestEmail, err := claims.NewGuestEmail(record.GuestEmail)
	if err != nil {
		return nil, err
	}
	total, err := claims.NewAmountCents(record.TotalCents)
	if err != nil {
		return nil, err
	}
	return &claims.Booking{
		ID:              bookingID,
		GuestEmail:      guestEmail,
		GuestName:       record.GuestName,
		HostEmail:       record.HostEmail,
		VehicleID:       record.VehicleID,
		ChargeReference: record.ChargeReference,
		TotalCents:      total,
	}, nil
}

func disputeToRecord(dispute *claims.Dispute) *DisputeRecord {
	createdAt := dispute.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := dispute.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	var claimRef *string
	if dispute.ClaimID != nil {
		value := dispute.ClaimID.String()
		claimRef = &value
	}
	return &DisputeRecord{
		DisputeID:         dispute.ID.String(),
		BookingID:         dispute.BookingID.String(),
		ClaimID:           claimRef,
		RaisedBy:          dispute.RaisedBy.String(),
		Reason:            dispute.Reason,
		Status:            string(dispute.Status),
		Resolution:        strPtrOrNil(dispute.Resolution),
		ActionTaken:       strPtrOrNil(dispute.ActionTaken),
		RefundAmountCents: dispute.RefundAmountCents.Int64(),
		RefundID:          strPtrOrNil(dispute.RefundID),
		ResolvedBy:        strPtrOrNil(dispute.ResolvedBy),
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		ResolvedAt:        dispute.ResolvedAt,
	}
}

func recordToDispute(record *DisputeRecord) (*claims.Dispute, error) {
	disputeID, err := claims.NewDisputeID(record.DisputeID)
	if err != nil {
		return nil, err
	}
	bookingID, err := claims.NewBookingID(record.BookingID)
	if err != nil {
		return nil, err
	}
	refund, err := claims.NewAmountCents(record.RefundAmountCents)
	if err != nil {
		return nil, err
	}
	var claimID *claims.ClaimID
	if record.ClaimID != nil {
		parsed, err := claims.NewClaimID(*record.ClaimID)
		if err != nil {
			return nil, err
		}
		claimID = &parsed
	}
	return &claims.Dispute{
		ID:                disputeID,
		BookingID:         bookingID,
		ClaimID:           claimID,
		RaisedBy:          claims.PartyRole(record.RaisedBy),
		Reason:            record.Reason,
		Status:            claims.DisputeStatus(record.Status),
		Resolution:        derefString(record.Resolution),
		ActionTaken:       derefString(record.ActionTaken),
		RefundAmountCents: refund,
		RefundID:          derefString(record.RefundID),
		ResolvedBy:        derefString(record.ResolvedBy),
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
		ResolvedAt:        record.ResolvedAt,
	}, nil
}

func strPtrOrNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func amountPtrToInt64(amount *claims.AmountCents) *int64 {
	if amount == nil {
		return nil
	}
	value := amount.Int64()
	return &value
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
