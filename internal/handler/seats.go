package handler

import (
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/quicktix/booking-engine/internal/seatcache"
)

// SeatsHandler serves the seat availability payload used by seat
// pickers.  Reads go through the ephemeral cache; a miss rebuilds the
// payload from the durable store.
type SeatsHandler struct {
	Cache *seatcache.Cache
}

// NewSeatsHandler constructs a SeatsHandler.  The cache must be non-nil.
func NewSeatsHandler(cache *seatcache.Cache) *SeatsHandler {
	if cache == nil {
		panic("nil cache passed to NewSeatsHandler")
	}
	return &SeatsHandler{Cache: cache}
}

// Availability handles GET /v1/shows/:id/seats.  It returns the
// available seats and the purchasable ticket types for the show.
func (h *SeatsHandler) Availability(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	av, err := h.Cache.Availability(c.Request().Context(), showID)
	if err != nil {
		c.Logger().Errorf("seats: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"result": av})
}
