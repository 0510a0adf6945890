package booking

import "net/http"

// Error is a booking failure with a stable machine-readable code.
// Handlers map Status straight onto the HTTP response.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

var (
	ErrQuantityInsufficient = &Error{
		Code:    "TICKET_TYPE_QUANTITY_NOT_ENOUGH",
		Message: "ticket type quantity not enough",
		Status:  http.StatusExpectationFailed,
	}
	ErrSeatConflict = &Error{
		Code:    "SEAT_ALREADY_BOOKED",
		Message: "seat already booked",
		Status:  http.StatusConflict,
	}
	ErrSectionFull = &Error{
		Code:    "SECTION_ALREADY_FULL",
		Message: "section already full",
		Status:  http.StatusConflict,
	}
	ErrBookingNotFound = &Error{
		Code:    "BOOKING_NOT_FOUND",
		Message: "booking not found",
		Status:  http.StatusNotFound,
	}
	ErrAnswersNotFound = &Error{
		Code:    "BOOKING_ANSWERS_NOT_FOUND",
		Message: "booking answers not found",
		Status:  http.StatusNotFound,
	}
	ErrInvalidStateTransition = &Error{
		Code:    "INVALID_STATE_TRANSITION",
		Message: "booking is not in a state that allows this operation",
		Status:  http.StatusConflict,
	}

	ErrVoucherNotFound = &Error{
		Code:    "VOUCHER_NOT_FOUND",
		Message: "voucher not found",
		Status:  http.StatusNotFound,
	}
	ErrVoucherExpired = &Error{
		Code:    "VOUCHER_EXPIRED",
		Message: "voucher is not valid at this time",
		Status:  http.StatusBadRequest,
	}
	ErrVoucherOutOfStock = &Error{
		Code:    "VOUCHER_OUT_OF_STOCK",
		Message: "voucher is out of stock",
		Status:  http.StatusBadRequest,
	}
	ErrVoucherInvalidShowing = &Error{
		Code:    "VOUCHER_INVALID_SHOWING",
		Message: "voucher is not valid for this showing",
		Status:  http.StatusBadRequest,
	}
	ErrVoucherInvalidTicketTypes = &Error{
		Code:    "VOUCHER_INVALID_TICKET_TYPES",
		Message: "voucher is not valid for selected ticket types",
		Status:  http.StatusBadRequest,
	}
	ErrVoucherMinQuantity = &Error{
		Code:    "VOUCHER_MIN_QUANTITY",
		Message: "minimum quantity required for this voucher",
		Status:  http.StatusBadRequest,
	}
	ErrVoucherMaxQuantity = &Error{
		Code:    "VOUCHER_MAX_QUANTITY",
		Message: "maximum quantity exceeded for this voucher",
		Status:  http.StatusBadRequest,
	}
)
