// Package booking implements the reservation coordinator: the
// multi-resource acquisition protocol over the ephemeral ledger and
// seat locks, the durable order write, the booking snapshot lifecycle
// and the voucher engine.
package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quicktix/booking-engine/internal/inventory"
	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/notify"
	"github.com/quicktix/booking-engine/internal/seatlock"
)

// OrderStore is the durable side of the booking flow, implemented by
// repository.OrderRepo.
type OrderStore interface {
	CreatePending(ctx context.Context, o *model.Order) error
	ByBookingCode(ctx context.Context, bookingCode string) (*model.Order, error)
	Transition(ctx context.Context, orderID uint64, from, to string) (bool, error)
	ApplyDiscount(ctx context.Context, orderID uint64, discountCents, totalCents int64, code string) error
	Confirm(ctx context.Context, o *model.Order, paidAt time.Time) error
}

// VoucherStore loads and redeems vouchers, implemented by
// repository.VoucherRepo.
type VoucherStore interface {
	ByCode(ctx context.Context, eventID uint64, code string) (*model.Voucher, error)
	Redeem(ctx context.Context, voucherID string, version uint32) (bool, error)
}

// AvailabilityCache is the seat availability payload maintained by the
// seatcache package.  SeatInfo resolves the static attributes of a seat
// at hold time so the order items can denormalize them.
type AvailabilityCache interface {
	SeatInfo(ctx context.Context, seatID string) (model.SeatInfo, error)
	RemoveSeats(ctx context.Context, showID uint64, seatIDs []string) error
	AddSeats(ctx context.Context, showID uint64, seats []model.SeatInfo) error
}

// ItemRequest is one line of a reservation: either a plain quantity
// against a ticket type (optionally scoped to a section) or an explicit
// seat list.  When SeatIDs is non-empty it wins over Quantity.
type ItemRequest struct {
	TicketTypeID uint64   `json:"id"`
	SectionID    string   `json:"sectionId,omitempty"`
	Quantity     int64    `json:"quantity"`
	SeatIDs      []string `json:"seatIds,omitempty"`
}

// Units is the number of inventory units this line consumes.
func (i ItemRequest) Units() int64 {
	if n := len(i.SeatIDs); n > 0 {
		return int64(n)
	}
	return i.Quantity
}

// ReserveRequest is the caller's desired hold.
type ReserveRequest struct {
	UserID  string        `json:"userId"`
	EventID uint64        `json:"eventId"`
	ShowID  uint64        `json:"showId"`
	Items   []ItemRequest `json:"items"`
}

// Service is the reservation coordinator.
type Service struct {
	ledger    *inventory.Ledger
	locks     *seatlock.Table
	orders    OrderStore
	vouchers  VoucherStore
	seats     AvailabilityCache
	snapshots *SnapshotStore
	notifier  notify.Notifier
	holdTTL   time.Duration
}

// NewService wires the coordinator.
func NewService(ledger *inventory.Ledger, locks *seatlock.Table, orders OrderStore,
	vouchers VoucherStore, seats AvailabilityCache, snapshots *SnapshotStore,
	notifier notify.Notifier, holdTTL time.Duration) *Service {
	return &Service{
		ledger:    ledger,
		locks:     locks,
		orders:    orders,
		vouchers:  vouchers,
		seats:     seats,
		snapshots: snapshots,
		notifier:  notifier,
		holdTTL:   holdTTL,
	}
}

// typeHold and sectionHold record what Reserve has acquired so far, so
// any abort can hand every unit back.
type typeHold struct {
	id  uint64
	qty int64
}

type sectionHold struct {
	id  string
	qty int64
}

// acquisition accumulates the resources claimed during one Reserve call.
type acquisition struct {
	types    []typeHold
	seats    []string
	sections []sectionHold
}

// Reserve runs the acquisition protocol: ticket-type counters first,
// then seat locks, then section counters, in that fixed order for every
// caller.  Any failure rolls back everything acquired in this call and
// returns a typed error; there is no partial success.  On success the
// order is persisted PENDING, the snapshot is written and the cleanup
// key is armed with the hold TTL.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*model.BookingSnapshot, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("booking: empty reservation")
	}
	for _, it := range req.Items {
		if it.Units() <= 0 {
			return nil, fmt.Errorf("booking: item %d has no quantity", it.TicketTypeID)
		}
	}

	bookingCode := uuid.NewString()
	var acq acquisition

	// Phase 1: ticket-type counters.
	prices := make(map[uint64]inventory.Reservation, len(req.Items))
	for _, it := range req.Items {
		res, err := s.ledger.TryReserve(ctx, it.TicketTypeID, it.Units())
		if err != nil {
			s.rollback(ctx, bookingCode, acq)
			return nil, err
		}
		if !res.OK {
			s.rollback(ctx, bookingCode, acq)
			return nil, ErrQuantityInsufficient
		}
		acq.types = append(acq.types, typeHold{id: it.TicketTypeID, qty: it.Units()})
		prices[it.TicketTypeID] = res
	}

	// Phase 2: seat locks.
	for _, it := range req.Items {
		for _, seatID := range it.SeatIDs {
			ok, err := s.locks.TryLock(ctx, seatID, bookingCode, s.holdTTL)
			if err != nil {
				s.rollback(ctx, bookingCode, acq)
				return nil, err
			}
			if !ok {
				s.rollback(ctx, bookingCode, acq)
				return nil, ErrSeatConflict
			}
			acq.seats = append(acq.seats, seatID)
		}
	}

	// Phase 3: section counters, only for lines without explicit seats.
	for _, it := range req.Items {
		if it.SectionID == "" || len(it.SeatIDs) > 0 {
			continue
		}
		ok, err := s.ledger.TryReserveSection(ctx, it.SectionID, it.Units())
		if err != nil {
			s.rollback(ctx, bookingCode, acq)
			return nil, err
		}
		if !ok {
			s.rollback(ctx, bookingCode, acq)
			return nil, ErrSectionFull
		}
		acq.sections = append(acq.sections, sectionHold{id: it.SectionID, qty: it.Units()})
	}

	order, err := s.buildOrder(ctx, req, bookingCode, prices)
	if err != nil {
		s.rollback(ctx, bookingCode, acq)
		return nil, err
	}

	// Durable write.  On failure the holds are released explicitly
	// rather than waiting out the TTL.
	if err := s.orders.CreatePending(ctx, order); err != nil {
		s.rollback(ctx, bookingCode, acq)
		return nil, fmt.Errorf("booking: persist order: %w", err)
	}

	if len(acq.seats) > 0 {
		if err := s.seats.RemoveSeats(ctx, req.ShowID, acq.seats); err != nil {
			// The hold is durable and the locks are in place; a stale
			// availability payload is tolerable and self-heals on rebuild.
			log.Printf("booking %s: update availability cache: %v", bookingCode, err)
		}
	}

	snap := snapshotFromOrder(order, int64(s.holdTTL/time.Second))
	if err := s.snapshots.Write(ctx, snap, s.holdTTL); err != nil {
		return nil, fmt.Errorf("booking: write snapshot: %w", err)
	}
	return snap, nil
}

// buildOrder resolves prices and seat attributes into the durable order
// shape.  Each explicit seat becomes its own item row; quantity lines
// stay as a single row.
func (s *Service) buildOrder(ctx context.Context, req ReserveRequest, bookingCode string, prices map[uint64]inventory.Reservation) (*model.Order, error) {
	now := time.Now()
	order := &model.Order{
		BookingCode:   bookingCode,
		UserID:        req.UserID,
		EventID:       req.EventID,
		ShowID:        req.ShowID,
		Status:        model.OrderPending,
		ReservedUntil: now.Add(s.holdTTL),
	}

	var subtotal int64
	for _, it := range req.Items {
		info := prices[it.TicketTypeID]
		subtotal += info.PriceCents * it.Units()

		if len(it.SeatIDs) > 0 {
			for _, seatID := range it.SeatIDs {
				seat, err := s.seats.SeatInfo(ctx, seatID)
				if err != nil {
					return nil, fmt.Errorf("booking: resolve seat %s: %w", seatID, err)
				}
				sectionID := it.SectionID
				if sectionID == "" {
					sectionID = seat.SectionID
				}
				order.Items = append(order.Items, model.OrderItem{
					TicketTypeID: it.TicketTypeID,
					Name:         info.Name,
					SeatID:       seatID,
					RowLabel:     seat.RowLabel,
					SeatNumber:   seat.SeatNumber,
					SectionID:    sectionID,
					Quantity:     1,
					PriceCents:   info.PriceCents,
				})
			}
			continue
		}
		order.Items = append(order.Items, model.OrderItem{
			TicketTypeID: it.TicketTypeID,
			Name:         info.Name,
			SectionID:    it.SectionID,
			Quantity:     it.Quantity,
			PriceCents:   info.PriceCents,
		})
	}
	order.SubtotalCents = subtotal
	order.TotalCents = subtotal
	return order, nil
}

// rollback hands back everything acquired so far in one Reserve call.
// It is best effort on a non-transactional substrate: individual
// failures are logged and the remaining resources are still released,
// with the TTL as the backstop for anything that slipped through.
func (s *Service) rollback(ctx context.Context, bookingCode string, acq acquisition) {
	for _, h := range acq.types {
		if err := s.ledger.Release(ctx, h.id, h.qty); err != nil {
			log.Printf("booking %s: rollback ticket type %d: %v", bookingCode, h.id, err)
		}
	}
	for _, seatID := range acq.seats {
		if err := s.locks.Unlock(ctx, seatID, bookingCode); err != nil {
			log.Printf("booking %s: rollback seat %s: %v", bookingCode, seatID, err)
		}
	}
	for _, h := range acq.sections {
		if err := s.ledger.ReleaseSection(ctx, h.id, h.qty); err != nil {
			log.Printf("booking %s: rollback section %s: %v", bookingCode, h.id, err)
		}
	}
}

// snapshotFromOrder denormalizes a persisted order into the ephemeral
// snapshot shape.
func snapshotFromOrder(o *model.Order, expireIn int64) *model.BookingSnapshot {
	snap := &model.BookingSnapshot{
		SchemaVersion: model.SnapshotSchemaVersion,
		EventID:       o.EventID,
		ShowID:        o.ShowID,
		OrderID:       o.ID,
		BookingCode:   o.BookingCode,
		Step:          model.StepQuestionForm,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		DiscountCode:  o.DiscountCode,
		TotalCents:    o.TotalCents,
		ExpireIn:      expireIn,
	}
	for _, it := range o.Items {
		snap.Items = append(snap.Items, model.SnapshotItem{
			TicketTypeID: it.TicketTypeID,
			Name:         it.Name,
			PriceCents:   it.PriceCents,
			Quantity:     it.Quantity,
			SeatID:       it.SeatID,
			RowLabel:     it.RowLabel,
			SeatNumber:   it.SeatNumber,
			SectionID:    it.SectionID,
		})
	}
	return snap
}
