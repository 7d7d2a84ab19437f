package handlers

import (
	"net/http"

	deviceRepo "homely/database/repository/device"
	"homely/models"
	"homely/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceHandler registers FCM tokens so booking events can be pushed.
type DeviceHandler struct {
	Tokens deviceRepo.DeviceTokenRepository
	Logger *zap.Logger
}

func NewDeviceHandler(tokens deviceRepo.DeviceTokenRepository, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{Tokens: tokens, Logger: logger}
}

type registerTokenRequest struct {
	Role     string `json:"role" binding:"required"`
	FCMToken string `json:"fcmToken" binding:"required"`
}

// RegisterToken handles POST /api/devices/token. Re-registering replaces
// the previous token for the same account and role.
func (h *DeviceHandler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	if req.Role != models.RoleCustomer && req.Role != models.RoleProvider {
		utils.JSONError(c, http.StatusBadRequest, "Invalid role", "role must be customer or provider")
		return
	}

	token := models.DeviceToken{
		OwnerID:  callerAccount(c),
		Role:     req.Role,
		FCMToken: req.FCMToken,
	}
	if err := h.Tokens.SaveToken(c.Request.Context(), token); err != nil {
		h.Logger.Error("failed to save device token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Could not save device token", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}
