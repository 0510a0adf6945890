package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/notify"
	"github.com/quicktix/booking-engine/internal/repository"
)

// Status reports the snapshot of a held booking with its remaining
// time to expiry.
func (s *Service) Status(ctx context.Context, showID uint64, bookingCode string) (*model.BookingSnapshot, error) {
	return s.snapshots.Status(ctx, showID, bookingCode)
}

// Confirm finalizes a paid booking: the order flips PENDING -> PAID in
// one durable transaction (seats marked BOOKED, sold quantities bumped),
// the cleanup key is deleted so expiry never fires, and the seat locks
// are dropped.  The ticket-type and section counters stay decremented:
// the units are sold, not released.
func (s *Service) Confirm(ctx context.Context, showID uint64, bookingCode string) (*model.Order, error) {
	order, err := s.orders.ByBookingCode(ctx, bookingCode)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	// A code presented under the wrong show must not finalize: the
	// ephemeral keys are scoped by show id, and deleting the wrong pair
	// would leave the real cleanup key to fire and double-release.
	if order.ShowID != showID {
		return nil, ErrBookingNotFound
	}
	if order.Status != model.OrderPending {
		return nil, ErrInvalidStateTransition
	}

	if err := s.orders.Confirm(ctx, order, time.Now()); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	// Disarm expiry before touching the locks so a racing reconciler
	// never sees a confirmed booking as expired.
	if err := s.snapshots.Delete(ctx, showID, bookingCode); err != nil {
		log.Printf("booking %s: delete snapshot: %v", bookingCode, err)
	}
	for _, it := range order.Items {
		if it.SeatID == "" {
			continue
		}
		if err := s.locks.Unlock(ctx, it.SeatID, bookingCode); err != nil {
			log.Printf("booking %s: unlock seat %s: %v", bookingCode, it.SeatID, err)
		}
	}
	return order, nil
}

// Cancel releases a held booking explicitly: the order flips
// PENDING -> CANCELLED, every acquired resource is handed back, the
// snapshot is removed and the released seats are announced.
func (s *Service) Cancel(ctx context.Context, showID uint64, bookingCode string) (*model.Order, error) {
	order, err := s.orders.ByBookingCode(ctx, bookingCode)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.ShowID != showID {
		return nil, ErrBookingNotFound
	}

	ok, err := s.orders.Transition(ctx, order.ID, model.OrderPending, model.OrderCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	order.Status = model.OrderCancelled

	if err := s.snapshots.Delete(ctx, showID, bookingCode); err != nil {
		log.Printf("booking %s: delete snapshot: %v", bookingCode, err)
	}

	var released []model.SeatInfo
	var announced []notify.ReleasedSeat
	for _, it := range order.Items {
		if it.SeatID != "" {
			if err := s.locks.Unlock(ctx, it.SeatID, bookingCode); err != nil {
				log.Printf("booking %s: unlock seat %s: %v", bookingCode, it.SeatID, err)
			}
			released = append(released, model.SeatInfo{
				ID:         it.SeatID,
				RowLabel:   it.RowLabel,
				SeatNumber: it.SeatNumber,
				SectionID:  it.SectionID,
			})
			announced = append(announced, notify.ReleasedSeat{ID: it.SeatID, SectionID: it.SectionID})
		}
		if err := s.ledger.Release(ctx, it.TicketTypeID, it.Quantity); err != nil {
			log.Printf("booking %s: release ticket type %d: %v", bookingCode, it.TicketTypeID, err)
		}
		if it.SectionID != "" && it.SeatID == "" {
			if err := s.ledger.ReleaseSection(ctx, it.SectionID, it.Quantity); err != nil {
				log.Printf("booking %s: release section %s: %v", bookingCode, it.SectionID, err)
			}
		}
	}

	if len(released) > 0 {
		if err := s.seats.AddSeats(ctx, showID, released); err != nil {
			log.Printf("booking %s: restore availability cache: %v", bookingCode, err)
		}
		if err := s.notifier.SeatsReleased(ctx, notify.SeatsReleased{ShowID: showID, Seats: announced}); err != nil {
			log.Printf("booking %s: publish seats released: %v", bookingCode, err)
		}
	}
	return order, nil
}

// FailPayment records a failed charge reported by the payment
// collaborator.  The order flips PENDING -> PAYMENT_FAILED and stays
// terminal; the ephemeral hold is deliberately left in place to lapse
// on its own, at which point expiry reconciliation returns the units.
// A failed payment never reopens the order; the buyer starts over.
func (s *Service) FailPayment(ctx context.Context, showID uint64, bookingCode string) (*model.Order, error) {
	order, err := s.orders.ByBookingCode(ctx, bookingCode)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.ShowID != showID {
		return nil, ErrBookingNotFound
	}

	ok, err := s.orders.Transition(ctx, order.ID, model.OrderPending, model.OrderPaymentFailed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	order.Status = model.OrderPaymentFailed
	return order, nil
}
