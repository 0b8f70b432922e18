package claimsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roadshare/claims/pkg/claims"
)

// Dependencies carries the wired engine services the façade exposes.
type Dependencies struct {
	Claims   *claims.Service
	Disputes *claims.DisputeService
	Enforcer *claims.HoldEnforcer
	Store    claims.Store
	Logger   *zap.Logger
}

func (deps Dependencies) validate() error {
	if deps.Claims == nil {
		return fmt.Errorf("claims service is required")
	}
	if deps.Disputes == nil {
		return fmt.Errorf("dispute service is required")
	}
	if deps.Enforcer == nil {
		return fmt.Errorf("hold enforcer is required")
	}
	if deps.Store == nil {
		return fmt.Errorf("store is required")
	}
	if deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Run boots the HTTP façade using the supplied configuration and blocks
// until the context is cancelled or the server fails.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := deps.validate(); err != nil {
		return err
	}

	handler := &httpHandler{
		logger:   deps.Logger,
		claims:   deps.Claims,
		disputes: deps.Disputes,
		enforcer: deps.Enforcer,
		store:    deps.Store,
		cfg:      cfg,
	}

	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("claimsapi listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			deps.Logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", actorIDHeader, actorRoleHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(handler.requireActor)

	api.POST("/claims", handler.hostOrAdmin, handler.handleCreateClaim)
	api.GET("/claims/:id", handler.handleClaimDetail)
	api.POST("/claims/:id/review/start", handler.adminOnly, handler.handleStartReview)
	api.POST("/claims/:id/response-request", handler.adminOnly, handler.handleResponseRequest)
	api.POST("/claims/:id/response", handler.handleGuestResponse)
	api.POST("/claims/:id/review", handler.adminOnly, handler.handleReview)
	api.POST("/claims/:id/paid", handler.adminOnly, handler.handleMarkPaid)
	api.POST("/claims/:id/resolve", handler.adminOnly, handler.handleResolve)
	api.POST("/claims/:id/close", handler.adminOnly, handler.handleClose)
	api.POST("/claims/:id/dispute", handler.handleOpenDispute)
	api.POST("/claims/:id/reactivate-vehicle", handler.adminOnly, handler.handleReactivateVehicle)
	api.POST("/disputes/:id/resolve", handler.adminOnly, handler.handleResolveDispute)
	api.GET("/accounts/:email/hold", handler.handleHoldCheck)

	return router
}

type httpHandler struct {
	logger   *zap.Logger
	claims   *claims.Service
	disputes *claims.DisputeService
	enforcer *claims.HoldEnforcer
	store    claims.Store
	cfg      Config
}

type actor struct {
	ID   string
	Role string
}

// requireActor trusts the identity headers injected by the upstream API
// gateway; requests arriving without them never reach a handler.
func (handler *httpHandler) requireActor(ctx *gin.Context) {
	identity := actor{
		ID:   ctx.GetHeader(actorIDHeader),
		Role: ctx.GetHeader(actorRoleHeader),
	}
	if identity.ID == "" || identity.Role == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor identity"))
		return
	}
	ctx.Set("actor", identity)
	ctx.Next()
}

func (handler *httpHandler) adminOnly(ctx *gin.Context) {
	if getActor(ctx).Role != roleAdmin {
		ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "admin role required"))
		return
	}
	ctx.Next()
}

// hostOrAdmin restricts claim filing to the parties who can be a claim's
// host side.
func (handler *httpHandler) hostOrAdmin(ctx *gin.Context) {
	role := getActor(ctx).Role
	if role != roleHost && role != roleAdmin {
		ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "host or admin role required"))
		return
	}
	ctx.Next()
}

func getActor(ctx *gin.Context) actor {
	value, ok := ctx.Get("actor")
	if !ok {
		return actor{}
	}
	identity, _ := value.(actor)
	return identity
}

type photoPayload struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type createClaimRequest struct {
	BookingID          string                 `json:"booking_id"`
	PolicyID           string                 `json:"policy_id"`
	Type               string                 `json:"type"`
	Severity           string                 `json:"severity"`
	PrimaryParty       string                 `json:"primary_party"`
	EstimatedCostCents int64                  `json:"estimated_cost_cents"`
	Incident           claims.IncidentDetails `json:"incident"`
	Photos             []photoPayload         `json:"photos"`
}

func (handler *httpHandler) handleCreateClaim(ctx *gin.Context) {
	var request createClaimRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	bookingID, err := claims.NewBookingID(request.BookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	estimated, err := claims.NewAmountCents(request.EstimatedCostCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	identity := getActor(ctx)
	primaryParty := claims.PartyGuest
	if request.PrimaryParty != "" {
		primaryParty, err = claims.ParsePartyRole(request.PrimaryParty)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
	}
	input := claims.CreateClaimInput{
		BookingID:          bookingID,
		HostID:             identity.ID,
		PolicyID:           request.PolicyID,
		Type:               claims.ClaimType(request.Type),
		Severity:           claims.ClaimSeverity(request.Severity),
		PrimaryParty:       primaryParty,
		EstimatedCostCents: estimated,
		Incident:           request.Incident,
		Photos:             photosFromPayload(request.Photos, claims.PartyHost),
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	claim, err := handler.claims.CreateClaim(requestCtx, input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"claim": claimPayloadFrom(claim)})
}

func (handler *httpHandler) handleClaimDetail(ctx *gin.Context) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	detail, err := handler.claims.GetClaimDetail(requestCtx, claimID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	photos := make([]gin.H, 0, len(detail.Photos))
	for _, photo := range detail.Photos {
		photos = append(photos, gin.H{
			"photo_id":      photo.PhotoID,
			"url":           photo.URL,
			"caption":       photo.Caption,
			"uploader_role": photo.UploaderRole.String(),
			"position":      photo.Position,
		})
	}
	timeline := make([]gin.H, 0, len(detail.Timeline))
	for _, event := range detail.Timeline {
		timeline = append(timeline, gin.H{
			"kind":       event.Kind,
			"actor":      event.Actor,
			"detail":     event.Detail,
			"created_at": event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"claim":               claimPayloadFrom(detail.Claim),
		"photos":              photos,
		"timeline":            timeline,
		"vehicle_claim_count": detail.VehicleClaimCount,
	})
}

func (handler *httpHandler) handleStartReview(ctx *gin.Context) {
	handler.runClaimAction(ctx, func(requestCtx context.Context, claimID claims.ClaimID) error {
		return handler.claims.StartReview(requestCtx, claimID, getActor(ctx).ID)
	})
}

func (handler *httpHandler) handleResponseRequest(ctx *gin.Context) {
	handler.runClaimAction(ctx, func(requestCtx context.Context, claimID claims.ClaimID) error {
		return handler.claims.RequestGuestResponse(requestCtx, claimID, getActor(ctx).ID)
	})
}

type guestResponseRequest struct {
	ResponseText string         `json:"response_text"`
	Photos       []photoPayload `json:"photos"`
}

func (handler *httpHandler) handleGuestResponse(ctx *gin.Context) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request guestResponseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	allowed, err := handler.allowGuestResponse(requestCtx, claimID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if !allowed {
		ctx.JSON(http.StatusTooManyRequests, errorResponse("rate_limited", "too many response submissions; try again later"))
		return
	}

	if err := handler.claims.RecordGuestResponse(requestCtx, claimID, request.ResponseText, photosFromPayload(request.Photos, claims.PartyGuest)); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// allowGuestResponse enforces the shared per-guest submission limit. The
// counter lives in the store so every façade replica sees the same window.
func (handler *httpHandler) allowGuestResponse(ctx context.Context, claimID claims.ClaimID) (bool, error) {
	claim, err := handler.store.GetClaim(ctx, claimID)
	if err != nil {
		return false, err
	}
	booking, err := handler.store.GetBooking(ctx, claim.BookingID)
	if err != nil {
		return false, err
	}
	count, err := handler.store.IncrementRateCounter(ctx, claims.ResponseRateKey(booking.GuestEmail), handler.cfg.ResponseRateTTL, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return count <= handler.cfg.ResponseRateLimit, nil
}

type reviewRequest struct {
	Decision            string `json:"decision"`
	ApprovedAmountCents *int64 `json:"approved_amount_cents"`
	Notes               string `json:"notes"`
}

func (handler *httpHandler) handleReview(ctx *gin.Context) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request reviewRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	var approvedAmount *claims.AmountCents
	if request.ApprovedAmountCents != nil {
		amount, err := claims.NewAmountCents(*request.ApprovedAmountCents)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		approvedAmount = &amount
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	if err := handler.claims.Review(requestCtx, claimID, claims.ReviewDecision(request.Decision), approvedAmount, getActor(ctx).ID, request.Notes); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "reviewed"})
}

type markPaidRequest struct {
	PaidAmountCents int64 `json:"paid_amount_cents"`
}

func (handler *httpHandler) handleMarkPaid(ctx *gin.Context) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request markPaidRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	paidAmount, err := claims.NewAmountCents(request.PaidAmountCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	if err := handler.claims.MarkPaid(requestCtx, claimID, paidAmount, getActor(ctx).ID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (handler *httpHandler) handleResolve(ctx *gin.Context) {
	handler.runClaimAction(ctx, func(requestCtx context.Context, claimID claims.ClaimID) error {
		return handler.claims.Resolve(requestCtx, claimID, getActor(ctx).ID)
	})
}

type closeClaimRequest struct {
	Reason string `json:"reason"`
}

func (handler *httpHandler) handleClose(ctx *gin.Context) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request closeClaimRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	if err := handler.claims.CloseClaim(requestCtx, claimID, getActor(ctx).ID, request.Reason); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "closed"})
}

type openDisputeRequest struct {
	Reason string `json:"reason"`
}

func (handler *httpHandler) handleOpenDispute(ctx *gin.Context) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request openDisputeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	identity := getActor(ctx)
	raisedBy, err := claims.ParsePartyRole(identity.Role)
	if err != nil {
		ctx.JSON(http.StatusForbidden, errorResponse("forbidden", "only a guest or host may open a dispute"))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	dispute, err := handler.claims.OpenDispute(requestCtx, claimID, raisedBy, request.Reason)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"dispute": gin.H{
			"dispute_id": dispute.ID.String(),
			"booking_id": dispute.BookingID.String(),
			"status":     string(dispute.Status),
			"reason":     dispute.Reason,
			"raised_by":  dispute.RaisedBy.String(),
			"created_at": dispute.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (handler *httpHandler) handleReactivateVehicle(ctx *gin.Context) {
	handler.runClaimAction(ctx, func(requestCtx context.Context, claimID claims.ClaimID) error {
		return handler.claims.ReactivateVehicle(requestCtx, claimID, getActor(ctx).ID)
	})
}

type resolveDisputeRequest struct {
	Resolution        string `json:"resolution"`
	ActionTaken       string `json:"action_taken"`
	RefundAmountCents int64  `json:"refund_amount_cents"`
}

func (handler *httpHandler) handleResolveDispute(ctx *gin.Context) {
	disputeID, err := claims.NewDisputeID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request resolveDisputeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	refund, err := claims.NewAmountCents(request.RefundAmountCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	input := claims.ResolveDisputeInput{
		DisputeID:         disputeID,
		Resolution:        request.Resolution,
		ActionTaken:       request.ActionTaken,
		RefundAmountCents: refund,
		AdminID:           getActor(ctx).ID,
	}
	if err := handler.disputes.ResolveDispute(requestCtx, input); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func (handler *httpHandler) handleHoldCheck(ctx *gin.Context) {
	email, err := claims.NewGuestEmail(ctx.Param("email"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	check, err := handler.enforcer.CheckHold(requestCtx, email)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, check)
}

func (handler *httpHandler) runClaimAction(ctx *gin.Context, action func(ctx context.Context, claimID claims.ClaimID) error) {
	claimID, err := claims.NewClaimID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	if err := action(requestCtx, claimID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, claims.ErrValidation),
		errors.Is(err, claims.ErrInvalidClaimID),
		errors.Is(err, claims.ErrInvalidBookingID),
		errors.Is(err, claims.ErrInvalidDisputeID),
		errors.Is(err, claims.ErrInvalidGuestEmail),
		errors.Is(err, claims.ErrInvalidAmountCents),
		errors.Is(err, claims.ErrInvalidClaimType),
		errors.Is(err, claims.ErrInvalidSeverity),
		errors.Is(err, claims.ErrInvalidPartyRole):
		ctx.JSON(http.StatusBadRequest, errorResponse("validation_failed", err.Error()))
	case errors.Is(err, claims.ErrNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, claims.ErrInvalidState),
		errors.Is(err, claims.ErrStaleClaim),
		errors.Is(err, claims.ErrDisputeClosed),
		errors.Is(err, claims.ErrDisputeExists):
		ctx.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, claims.ErrPaymentGateway):
		handler.logger.Error("payment gateway failure", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("payment_gateway_error", "refund could not be processed"))
	default:
		handler.logger.Error("request failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "unexpected failure"))
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func photosFromPayload(payload []photoPayload, role claims.PartyRole) []claims.DamagePhoto {
	photos := make([]claims.DamagePhoto, 0, len(payload))
	for _, photo := range payload {
		if photo.URL == "" {
			continue
		}
		photos = append(photos, claims.DamagePhoto{
			URL:          photo.URL,
			Caption:      photo.Caption,
			UploaderRole: role,
		})
	}
	return photos
}

type claimPayload struct {
	ClaimID               string  `json:"claim_id"`
	BookingID             string  `json:"booking_id"`
	HostID                string  `json:"host_id"`
	VehicleID             string  `json:"vehicle_id"`
	PolicyID              string  `json:"policy_id,omitempty"`
	Type                  string  `json:"type"`
	Severity              string  `json:"severity,omitempty"`
	PrimaryParty          string  `json:"primary_party"`
	Status                string  `json:"status"`
	EstimatedCostCents    int64   `json:"estimated_cost_cents"`
	ApprovedAmountCents   *int64  `json:"approved_amount_cents,omitempty"`
	DeductibleCents       int64   `json:"deductible_cents"`
	NetPayoutCents        *int64  `json:"net_payout_cents,omitempty"`
	GuestResponseText     string  `json:"guest_response_text,omitempty"`
	GuestResponseDeadline string  `json:"guest_response_deadline"`
	GuestRespondedAt      *string `json:"guest_responded_at,omitempty"`
	ReminderSentAt        *string `json:"reminder_sent_at,omitempty"`
	AccountHoldApplied    bool    `json:"account_hold_applied"`
	VehicleDeactivated    bool    `json:"vehicle_deactivated"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`
	ResolvedAt            *string `json:"resolved_at,omitempty"`
	PaidAt                *string `json:"paid_at,omitempty"`
}

func claimPayloadFrom(claim *claims.Claim) claimPayload {
	payload := claimPayload{
		ClaimID:               claim.ID.String(),
		BookingID:             claim.BookingID.String(),
		HostID:                claim.HostID,
		VehicleID:             claim.VehicleID,
		PolicyID:              claim.PolicyID,
		Type:                  claim.Type.String(),
		Severity:              claim.Severity.String(),
		PrimaryParty:          claim.PrimaryParty.String(),
		Status:                claim.Status.String(),
		EstimatedCostCents:    claim.EstimatedCostCents.Int64(),
		DeductibleCents:       claim.DeductibleCents.Int64(),
		GuestResponseText:     claim.GuestResponseText,
		GuestResponseDeadline: claim.GuestResponseDeadline.UTC().Format(time.RFC3339),
		AccountHoldApplied:    claim.AccountHoldApplied,
		VehicleDeactivated:    claim.VehicleDeactivated,
		CreatedAt:             claim.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             claim.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if claim.ApprovedAmountCents != nil {
		approved := claim.ApprovedAmountCents.Int64()
		payload.ApprovedAmountCents = &approved
	}
	if net, defined := claim.NetPayoutCents(); defined {
		netCents := net.Int64()
		payload.NetPayoutCents = &netCents
	}
	payload.GuestRespondedAt = formatTimePtr(claim.GuestRespondedAt)
	payload.ReminderSentAt = formatTimePtr(claim.ReminderSentAt)
	payload.ResolvedAt = formatTimePtr(claim.ResolvedAt)
	payload.PaidAt = formatTimePtr(claim.PaidAt)
	return payload
}

func formatTimePtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339)
	return &formatted
}
