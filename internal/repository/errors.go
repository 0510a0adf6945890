// Package repository implements durable persistence for the booking
// engine on top of database/sql.  Sentinel errors declared here let the
// service layer distinguish failure scenarios with errors.Is without
// depending on driver-specific error values.
package repository

import "errors"

// ErrTicketTypeNotFound is returned when a ticket type id does not
// exist in the catalog.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrSeatNotFound is returned when a seat id does not exist for the
// requested show.
var ErrSeatNotFound = errors.New("seat not found")

// ErrOrderNotFound is returned when no order matches the given booking
// code or id.
var ErrOrderNotFound = errors.New("order not found")

// ErrVoucherNotFound is returned when no voucher matches the given
// discount code for the event.
var ErrVoucherNotFound = errors.New("voucher not found")

// ErrStaleVersion is returned when an optimistic update matched no rows
// because another writer got there first.  Callers decide whether to
// retry or surface the conflict.
var ErrStaleVersion = errors.New("stale version")
