package handler

import (
	"encoding/json"
	"errors"   // for errors.As/errors.Is comparisons
	"io"
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters

	"github.com/labstack/echo/v4" // Echo web framework

    "github.com/quicktix/booking-engine/internal/booking"
)

// BookingHandler exposes the reservation coordinator over HTTP: creating
// a hold, reading its status, applying a voucher, confirming payment and
// cancelling.  All domain decisions live in the booking service; the
// handler only binds requests, parses path parameters and maps the typed
// booking errors onto HTTP responses.
type BookingHandler struct {
	Service *booking.Service
}

// NewBookingHandler constructs a BookingHandler.  The service must be non-nil.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Service: svc}
}

// bookingError maps a typed booking failure onto its HTTP response.
// Anything that is not a *booking.Error is an infrastructure problem and
// becomes a 500 without leaking details.
func bookingError(c echo.Context, err error) error {
	var be *booking.Error
	if errors.As(err, &be) {
		return c.JSON(be.Status, echo.Map{"error": be.Code, "message": be.Message})
	}
	c.Logger().Errorf("booking: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "internal error"})
}

// showIDParam parses the :id path parameter into a show identifier.
func showIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Create handles POST /v1/shows/:id/bookings.  The body carries the
// desired items: a quantity per ticket type, optionally scoped to a
// section or to an explicit seat list.  On success it returns 201 with
// the booking snapshot, whose expireIn tells the client how long the
// hold lasts.  Contention failures come back as 409 (seat or section)
// or 417 (ticket-type quantity), mirroring the acquisition protocol's
// typed outcomes.
func (h *BookingHandler) Create(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	var req booking.ReserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_BODY", "message": "invalid request body"})
	}
	req.ShowID = showID
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_BODY", "message": "items is required"})
	}
	for _, it := range req.Items {
		if it.TicketTypeID == 0 || it.Units() <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_BODY", "message": "each item needs a ticket type and a positive quantity or seat list"})
		}
	}

	snap, err := h.Service.Reserve(c.Request().Context(), req)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"code":     snap.BookingCode,
		"expireIn": snap.ExpireIn,
		"result":   snap,
	})
}

// Status handles GET /v1/shows/:id/bookings/:code.  It returns the
// booking snapshot with expireIn refreshed from the cleanup key's
// remaining TTL; 404 when the hold is gone.
func (h *BookingHandler) Status(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_BODY", "message": "booking code is required"})
	}
	snap, err := h.Service.Status(c.Request().Context(), showID, code)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": snap})
}

// ApplyVoucher handles POST /v1/shows/:id/bookings/:code/voucher.  The
// body carries the discount code; on success the updated snapshot with
// the new totals is returned.
func (h *BookingHandler) ApplyVoucher(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	var body struct {
		DiscountCode string `json:"discountCode"`
	}
	if err := c.Bind(&body); err != nil || body.DiscountCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_BODY", "message": "discountCode is required"})
	}
	snap, err := h.Service.ApplyVoucher(c.Request().Context(), showID, code, body.DiscountCode)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": snap})
}

// Answers handles GET /v1/shows/:id/bookings/:code/answers.  It returns
// the form answers previously submitted for the booking; 404 when none
// were submitted.
func (h *BookingHandler) Answers(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	answers, err := h.Service.Answers(c.Request().Context(), showID, code)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": answers})
}

// UpdateAnswers handles PUT /v1/shows/:id/bookings/:code/answers.  The
// body carries contact details and per-attendee question responses; it
// is stored verbatim and the booking advances to the payment step.
func (h *BookingHandler) UpdateAnswers(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	body, err := io.ReadAll(c.Request().Body)
	if err != nil || !json.Valid(body) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_BODY", "message": "body must be valid JSON"})
	}
	snap, err := h.Service.UpdateAnswers(c.Request().Context(), showID, code, body)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": snap})
}

// Confirm handles POST /v1/shows/:id/bookings/:code/confirm.  The
// payment collaborator calls it after a successful charge; the order
// flips to PAID and the hold's ephemeral state is dismantled.  A
// non-pending order yields 409.
func (h *BookingHandler) Confirm(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	order, err := h.Service.Confirm(c.Request().Context(), showID, code)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orderId":     order.ID,
		"bookingCode": order.BookingCode,
		"status":      order.Status,
		"totalCents":  order.TotalCents,
	})
}

// PaymentFailed handles POST /v1/shows/:id/bookings/:code/payment-failed.
// The payment collaborator reports a failed charge; the order flips to
// PAYMENT_FAILED while the hold is left to lapse on its own.
func (h *BookingHandler) PaymentFailed(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	order, err := h.Service.FailPayment(c.Request().Context(), showID, code)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orderId":     order.ID,
		"bookingCode": order.BookingCode,
		"status":      order.Status,
	})
}

// Cancel handles POST /v1/shows/:id/bookings/:code/cancel.  The hold is
// released explicitly: counters restored, seats unlocked and announced,
// order marked CANCELLED.
func (h *BookingHandler) Cancel(c echo.Context) error {
	showID, ok := showIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_SHOW_ID", "message": "invalid show id"})
	}
	code := c.Param("code")
	order, err := h.Service.Cancel(c.Request().Context(), showID, code)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orderId":     order.ID,
		"bookingCode": order.BookingCode,
		"status":      order.Status,
	})
}
