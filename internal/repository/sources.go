package repository

import (
	"context"

	"github.com/quicktix/booking-engine/internal/model"
)

// InventorySource bundles the durable reads the ephemeral inventory
// ledger needs to seed its counters.
type InventorySource struct {
	types *TicketTypeRepo
	seats *SeatRepo
}

func NewInventorySource(types *TicketTypeRepo, seats *SeatRepo) *InventorySource {
	return &InventorySource{types: types, seats: seats}
}

func (s *InventorySource) TicketTypeByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	return s.types.TicketTypeByID(ctx, id)
}

func (s *InventorySource) SectionCapacity(ctx context.Context, sectionID string) (int64, error) {
	return s.seats.SectionCapacity(ctx, sectionID)
}

// SeatCacheSource bundles the durable reads behind the seat
// availability cache.
type SeatCacheSource struct {
	seats *SeatRepo
	types *TicketTypeRepo
}

func NewSeatCacheSource(seats *SeatRepo, types *TicketTypeRepo) *SeatCacheSource {
	return &SeatCacheSource{seats: seats, types: types}
}

func (s *SeatCacheSource) AvailableSeats(ctx context.Context, showID uint64) ([]model.Seat, error) {
	return s.seats.AvailableSeats(ctx, showID)
}

func (s *SeatCacheSource) SeatByID(ctx context.Context, id string) (*model.Seat, error) {
	return s.seats.SeatByID(ctx, id)
}

func (s *SeatCacheSource) TicketTypesByShow(ctx context.Context, showID uint64) ([]model.TicketType, error) {
	return s.types.TicketTypesByShow(ctx, showID)
}
