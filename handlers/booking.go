package handlers

import (
	"net/http"

	"homely/models"
	"homely/services/booking"
	"homely/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP. Every mutating
// endpoint is safe to retry: the service detects already-applied
// transitions and returns the current state instead of double-applying.
type BookingHandler struct {
	Svc    booking.BookingService
	Logger *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Svc: svc, Logger: logger}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var in booking.CreateBookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	if callerID, ok := c.Get("accountID"); ok {
		in.CustomerID = callerID.(string)
	}

	snap, err := h.Svc.CreateBooking(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

type resolveOfferRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// ResolveOffer handles POST /api/bookings/:id/offer. The provider answers
// the pending offer with "accept" or "reject".
func (h *BookingHandler) ResolveOffer(c *gin.Context) {
	var req resolveOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	outcome := models.OfferOutcome(req.Outcome)
	if outcome != models.OfferAccepted && outcome != models.OfferRejected {
		utils.JSONErrorCode(c, http.StatusBadRequest, booking.CodeValidation, "outcome must be accept or reject")
		return
	}

	providerID := callerAccount(c)
	snap, err := h.Svc.ResolveOffer(c.Request.Context(), c.Param("id"), providerID, outcome)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CaptureInitial handles POST /api/bookings/:id/payments/initial.
func (h *BookingHandler) CaptureInitial(c *gin.Context) {
	snap, err := h.Svc.CaptureInitial(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// MarkJobComplete handles POST /api/bookings/:id/complete. Only the
// assigned provider may report the job finished.
func (h *BookingHandler) MarkJobComplete(c *gin.Context) {
	providerID := callerAccount(c)
	snap, err := h.Svc.MarkJobComplete(c.Request.Context(), c.Param("id"), providerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CaptureCompletion handles POST /api/bookings/:id/payments/completion.
func (h *BookingHandler) CaptureCompletion(c *gin.Context) {
	snap, err := h.Svc.CaptureCompletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	snap, err := h.Svc.CancelBooking(c.Request.Context(), c.Param("id"), callerAccount(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetBooking handles GET /api/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	snap, err := h.Svc.GetBookingSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListBookings handles GET /api/bookings for the calling customer.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	snaps, err := h.Svc.ListCustomerBookings(c.Request.Context(), callerAccount(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": snaps})
}

func callerAccount(c *gin.Context) string {
	if v, ok := c.Get("accountID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respondError maps coded service errors onto HTTP statuses.
func (h *BookingHandler) respondError(c *gin.Context, err error) {
	code := booking.ErrorCode(err)
	status := http.StatusInternalServerError

	switch code {
	case booking.CodeValidation:
		status = http.StatusBadRequest
	case booking.CodeNotFound:
		status = http.StatusNotFound
	case booking.CodeInvalidState, booking.CodeStaleOffer, booking.CodeStaleVersion:
		status = http.StatusConflict
	case booking.CodePaymentCaptureFailed:
		status = http.StatusPaymentRequired
	case booking.CodePaymentWindowExpired:
		status = http.StatusGone
	case booking.CodeNoProvidersAvailable:
		status = http.StatusUnprocessableEntity
	case booking.CodeExternalService:
		status = http.StatusServiceUnavailable
	}

	if code == "" {
		h.Logger.Error("unexpected booking error", zap.Error(err))
		utils.JSONError(c, status, "Internal server error", "")
		return
	}
	utils.JSONErrorCode(c, status, code, err.Error())
}
