// Package seatcache maintains the ephemeral seat availability payload
// served to seat pickers.  The payload is a read-through cache of the
// durable seat and ticket-type tables, patched in place as holds are
// taken and released so browsers see near-real-time availability
// without hammering the durable store.
package seatcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/store"
)

// Source supplies the durable data behind the cache.
type Source interface {
	AvailableSeats(ctx context.Context, showID uint64) ([]model.Seat, error)
	SeatByID(ctx context.Context, id string) (*model.Seat, error)
	TicketTypesByShow(ctx context.Context, showID uint64) ([]model.TicketType, error)
}

// TicketTypeView is the public slice of a ticket type included in the
// availability payload.
type TicketTypeView struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
}

// Availability is the cached payload for one show.
type Availability struct {
	AvailableSeats []model.SeatInfo `json:"available_seats"`
	TicketTypes    []TicketTypeView `json:"ticket_types"`
}

// Cache binds the availability payload to the ephemeral store.
type Cache struct {
	kv  store.KV
	src Source
	ttl time.Duration
}

// New builds a Cache.  ttl bounds staleness of the whole payload and of
// the per-seat info keys.
func New(kv store.KV, src Source, ttl time.Duration) *Cache {
	return &Cache{kv: kv, src: src, ttl: ttl}
}

// Availability returns the payload for a show, rebuilding it from the
// durable store on a miss.  Rebuilding also seeds the per-seat info
// keys consumed by the reservation coordinator.
func (c *Cache) Availability(ctx context.Context, showID uint64) (*Availability, error) {
	key := store.ShowSeatsKey(showID)
	raw, err := c.kv.Get(ctx, key)
	if err == nil {
		var av Availability
		if err := json.Unmarshal([]byte(raw), &av); err == nil {
			return &av, nil
		}
		// Undecodable payload: fall through and rebuild.
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	seats, err := c.src.AvailableSeats(ctx, showID)
	if err != nil {
		return nil, err
	}
	types, err := c.src.TicketTypesByShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	av := &Availability{}
	for _, s := range seats {
		info := model.SeatInfo{ID: s.ID, RowLabel: s.RowLabel, SeatNumber: s.SeatNumber, SectionID: s.SectionID}
		av.AvailableSeats = append(av.AvailableSeats, info)
		payload, err := json.Marshal(info)
		if err != nil {
			return nil, err
		}
		if err := c.kv.Set(ctx, store.SeatInfoKey(s.ID), string(payload), c.ttl); err != nil {
			return nil, err
		}
	}
	for _, t := range types {
		av.TicketTypes = append(av.TicketTypes, TicketTypeView{ID: t.ID, Name: t.Name, PriceCents: t.PriceCents})
	}

	if err := c.write(ctx, showID, av); err != nil {
		return nil, err
	}
	return av, nil
}

// SeatInfo returns the static info of one seat, preferring the cached
// key and falling back to the durable store.
func (c *Cache) SeatInfo(ctx context.Context, seatID string) (model.SeatInfo, error) {
	raw, err := c.kv.Get(ctx, store.SeatInfoKey(seatID))
	if err == nil {
		var info model.SeatInfo
		if err := json.Unmarshal([]byte(raw), &info); err == nil {
			return info, nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.SeatInfo{}, err
	}

	seat, err := c.src.SeatByID(ctx, seatID)
	if err != nil {
		return model.SeatInfo{}, err
	}
	info := model.SeatInfo{ID: seat.ID, RowLabel: seat.RowLabel, SeatNumber: seat.SeatNumber, SectionID: seat.SectionID}
	payload, err := json.Marshal(info)
	if err != nil {
		return model.SeatInfo{}, err
	}
	if err := c.kv.Set(ctx, store.SeatInfoKey(seatID), string(payload), c.ttl); err != nil {
		return model.SeatInfo{}, err
	}
	return info, nil
}

// RemoveSeats drops the given seats from the cached payload after a
// hold claims them.  A cache miss is not an error: the next read
// rebuilds the payload from the durable store.
func (c *Cache) RemoveSeats(ctx context.Context, showID uint64, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	av, ok, err := c.read(ctx, showID)
	if err != nil || !ok {
		return err
	}
	gone := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		gone[id] = struct{}{}
	}
	kept := av.AvailableSeats[:0]
	for _, s := range av.AvailableSeats {
		if _, drop := gone[s.ID]; !drop {
			kept = append(kept, s)
		}
	}
	av.AvailableSeats = kept
	return c.write(ctx, showID, av)
}

// AddSeats returns seats to the cached payload after a release,
// deduplicating against what is already listed.
func (c *Cache) AddSeats(ctx context.Context, showID uint64, seats []model.SeatInfo) error {
	if len(seats) == 0 {
		return nil
	}
	av, ok, err := c.read(ctx, showID)
	if err != nil || !ok {
		return err
	}
	existing := make(map[string]struct{}, len(av.AvailableSeats))
	for _, s := range av.AvailableSeats {
		existing[s.ID] = struct{}{}
	}
	for _, s := range seats {
		if _, dup := existing[s.ID]; !dup {
			av.AvailableSeats = append(av.AvailableSeats, s)
		}
	}
	return c.write(ctx, showID, av)
}

// Invalidate drops the cached payload entirely.
func (c *Cache) Invalidate(ctx context.Context, showID uint64) error {
	return c.kv.Del(ctx, store.ShowSeatsKey(showID))
}

func (c *Cache) read(ctx context.Context, showID uint64) (*Availability, bool, error) {
	raw, err := c.kv.Get(ctx, store.ShowSeatsKey(showID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var av Availability
	if err := json.Unmarshal([]byte(raw), &av); err != nil {
		return nil, false, fmt.Errorf("seatcache: decode payload: %w", err)
	}
	return &av, true, nil
}

func (c *Cache) write(ctx context.Context, showID uint64, av *Availability) error {
	payload, err := json.Marshal(av)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, store.ShowSeatsKey(showID), string(payload), c.ttl)
}
