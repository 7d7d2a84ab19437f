package routes

import (
	"net/http"
	"time"

	"homely/handlers"
	"homely/middleware"
	"homely/models"
	"homely/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires all HTTP endpoints onto the router.
func RegisterRoutes(
	r *gin.Engine,
	bookingHandler *handlers.BookingHandler,
	providerHandler *handlers.ProviderHandler,
	deviceHandler *handlers.DeviceHandler,
) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware())

	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Mongo || !status.Redis {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	api := r.Group("/api")

	providers := api.Group("/providers")
	{
		providers.GET("", providerHandler.FindProviders)
	}

	devices := api.Group("/devices", middleware.JWTAuthMiddleware(""))
	{
		devices.POST("/token", deviceHandler.RegisterToken)
	}

	bookings := api.Group("/bookings")
	{
		customer := bookings.Group("", middleware.JWTAuthMiddleware(models.RoleCustomer))
		{
			customer.POST("", bookingHandler.CreateBooking)
			customer.GET("", bookingHandler.ListBookings)
			customer.POST("/:id/payments/initial", bookingHandler.CaptureInitial)
			customer.POST("/:id/payments/completion", bookingHandler.CaptureCompletion)
		}

		provider := bookings.Group("", middleware.JWTAuthMiddleware(models.RoleProvider))
		{
			provider.POST("/:id/offer", bookingHandler.ResolveOffer)
			provider.POST("/:id/complete", bookingHandler.MarkJobComplete)
		}

		any := bookings.Group("", middleware.JWTAuthMiddleware(""))
		{
			any.GET("/:id", bookingHandler.GetBooking)
			any.POST("/:id/cancel", bookingHandler.CancelBooking)
		}
	}
}
