package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/quicktix/booking-engine/internal/config"
	"github.com/quicktix/booking-engine/internal/handler"
	"github.com/quicktix/booking-engine/internal/middleware"
)

// RegisterRoutes registers routes that carry no booking state on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the booking API under /v1.  The whole group
// shares the Redis-backed token bucket: the hold endpoints are the ones
// hammered during on-sale spikes, and limiting must hold across every
// process instance, not per process.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, s *handler.SeatsHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))

	// Seat availability payload for the seat picker.
	g.GET("/shows/:id/seats", s.Availability)

	// The hold lifecycle: create, inspect, discount, then confirm or
	// cancel.  Confirm is invoked by the payment collaborator after its
	// own success determination; this service never talks to a gateway.
	g.POST("/shows/:id/bookings", b.Create)
	g.GET("/shows/:id/bookings/:code", b.Status)
	g.GET("/shows/:id/bookings/:code/answers", b.Answers)
	g.PUT("/shows/:id/bookings/:code/answers", b.UpdateAnswers)
	g.POST("/shows/:id/bookings/:code/voucher", b.ApplyVoucher)
	g.POST("/shows/:id/bookings/:code/confirm", b.Confirm)
	g.POST("/shows/:id/bookings/:code/payment-failed", b.PaymentFailed)
	g.POST("/shows/:id/bookings/:code/cancel", b.Cancel)
}
