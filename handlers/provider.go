package handlers

import (
	"net/http"
	"strings"

	providerRepo "homely/database/repository/provider"
	"homely/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderHandler serves the provider directory used to price and place
// bookings.
type ProviderHandler struct {
	Directory providerRepo.ProviderDirectory
	Logger    *zap.Logger
}

func NewProviderHandler(directory providerRepo.ProviderDirectory, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{Directory: directory, Logger: logger}
}

// FindProviders handles GET /api/providers?service=<name>. Results come
// back in assignment order: cheapest first, then highest rated.
func (h *ProviderHandler) FindProviders(c *gin.Context) {
	service := strings.TrimSpace(c.Query("service"))
	if service == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing query parameter", "service is required")
		return
	}

	quotes, err := h.Directory.FindProviders(c.Request.Context(), service)
	if err != nil {
		h.Logger.Error("provider lookup failed", zap.String("service", service), zap.Error(err))
		utils.JSONError(c, http.StatusServiceUnavailable, "Provider directory unavailable", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": quotes})
}
