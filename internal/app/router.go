package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roombooking-service/internal/logging"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and attaches a request scoped
// logger to its context.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		logger := base.With("request_id", id, "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(logging.ContextWithLogger(c.Request.Context(), logger))

		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "request completed", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// NewRouter wires the API routes. Everything under /api requires a bearer
// token.
func NewRouter(a *App, auth *Authenticator, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	// health check (must be before auth middleware)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(auth.Middleware())
	{
		api.GET("/meetings", a.ListMeetingsHandler)
		api.GET("/rooms", a.ListRoomsHandler)

		bookings := api.Group("/bookings")
		{
			bookings.POST("", a.CreateBookingHandler)
			bookings.GET("/:id", a.GetBookingHandler)
			bookings.PUT("/:id", a.UpdateBookingHandler)
			bookings.DELETE("/:id", a.CancelBookingHandler)
			bookings.POST("/:id/approve", a.ApproveBookingHandler)
			bookings.POST("/:id/reject", a.RejectBookingHandler)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/working-hours/:room", a.GetWorkingHoursHandler)
			admin.PUT("/working-hours/:room", a.SetWorkingHoursHandler)
		}
	}
	return router
}
