// Package inventory implements the ephemeral availability ledger for
// ticket types and sections.  Availability is a single counter per
// resource in the coordination store; the durable store is consulted
// only to seed a counter on first touch.  All mutation goes through the
// store's atomic increment/decrement so concurrent callers cannot
// oversell, and callers never read-modify-write a counter themselves.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/store"
)

// Source supplies the durable numbers used to seed a counter the first
// time a resource is touched.  Implemented by the MySQL repositories.
type Source interface {
	// TicketTypeByID loads a ticket type; the ledger derives the initial
	// counter from Quantity - SoldQuantity and caches price and name.
	TicketTypeByID(ctx context.Context, id uint64) (*model.TicketType, error)
	// SectionCapacity reports the number of available seats in a section.
	SectionCapacity(ctx context.Context, sectionID string) (int64, error)
}

// Reservation is the outcome of TryReserve.  When OK is false the
// counter was left untouched (the speculative decrement is compensated
// before returning).
type Reservation struct {
	OK         bool
	PriceCents int64
	Name       string
}

// ticketInfo is the cached static slice of a ticket type, stored as
// JSON under ticket-type:info:<id>.
type ticketInfo struct {
	PriceCents int64  `json:"price"`
	Name       string `json:"name"`
}

// Ledger coordinates availability counters in the ephemeral store.
type Ledger struct {
	kv      store.KV
	src     Source
	infoTTL time.Duration
}

// NewLedger builds a Ledger.  infoTTL bounds the staleness of the
// cached price/name and of idle counters; it is independent of the
// booking hold TTL.
func NewLedger(kv store.KV, src Source, infoTTL time.Duration) *Ledger {
	return &Ledger{kv: kv, src: src, infoTTL: infoTTL}
}

// TryReserve atomically claims qty units of a ticket type.  It fails
// softly (OK=false) when fewer than qty units remain.  On success the
// counter TTL is refreshed so active inventory never expires mid-rush.
func (l *Ledger) TryReserve(ctx context.Context, ticketTypeID uint64, qty int64) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, fmt.Errorf("inventory: non-positive quantity %d", qty)
	}
	info, err := l.ensureTicketType(ctx, ticketTypeID)
	if err != nil {
		return Reservation{}, err
	}

	key := store.TicketTypeCountKey(ticketTypeID)
	remaining, err := l.kv.DecrBy(ctx, key, qty)
	if err != nil {
		return Reservation{}, fmt.Errorf("inventory: decrement %s: %w", key, err)
	}
	if remaining < 0 {
		// Went past zero: give the units back and report insufficiency.
		if _, err := l.kv.IncrBy(ctx, key, qty); err != nil {
			return Reservation{}, fmt.Errorf("inventory: compensate %s: %w", key, err)
		}
		return Reservation{OK: false, PriceCents: info.PriceCents, Name: info.Name}, nil
	}
	if err := l.kv.Expire(ctx, key, l.infoTTL); err != nil {
		return Reservation{}, fmt.Errorf("inventory: refresh ttl %s: %w", key, err)
	}
	return Reservation{OK: true, PriceCents: info.PriceCents, Name: info.Name}, nil
}

// Release returns qty units to a ticket-type counter.  It is the
// compensating half of TryReserve and is used by explicit cancels, by
// acquisition rollback and by expiry reconciliation; it must therefore
// be safe to call for counters that have expired (IncrBy revives them).
func (l *Ledger) Release(ctx context.Context, ticketTypeID uint64, qty int64) error {
	key := store.TicketTypeCountKey(ticketTypeID)
	if _, err := l.kv.IncrBy(ctx, key, qty); err != nil {
		return fmt.Errorf("inventory: release %s: %w", key, err)
	}
	if err := l.kv.Expire(ctx, key, l.infoTTL); err != nil {
		return fmt.Errorf("inventory: refresh ttl %s: %w", key, err)
	}
	return nil
}

// TryReserveSection claims qty units of a section's capacity, seeding
// the counter from the durable seat table on first touch.
func (l *Ledger) TryReserveSection(ctx context.Context, sectionID string, qty int64) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("inventory: non-positive quantity %d", qty)
	}
	key := store.SectionCountKey(sectionID)
	if err := l.ensureSection(ctx, sectionID); err != nil {
		return false, err
	}
	remaining, err := l.kv.DecrBy(ctx, key, qty)
	if err != nil {
		return false, fmt.Errorf("inventory: decrement %s: %w", key, err)
	}
	if remaining < 0 {
		if _, err := l.kv.IncrBy(ctx, key, qty); err != nil {
			return false, fmt.Errorf("inventory: compensate %s: %w", key, err)
		}
		return false, nil
	}
	if err := l.kv.Expire(ctx, key, l.infoTTL); err != nil {
		return false, fmt.Errorf("inventory: refresh ttl %s: %w", key, err)
	}
	return true, nil
}

// ReleaseSection returns qty units to a section counter.
func (l *Ledger) ReleaseSection(ctx context.Context, sectionID string, qty int64) error {
	key := store.SectionCountKey(sectionID)
	if _, err := l.kv.IncrBy(ctx, key, qty); err != nil {
		return fmt.Errorf("inventory: release %s: %w", key, err)
	}
	if err := l.kv.Expire(ctx, key, l.infoTTL); err != nil {
		return fmt.Errorf("inventory: refresh ttl %s: %w", key, err)
	}
	return nil
}

// ensureTicketType seeds the counter and info cache for a ticket type
// on first touch and returns the cached price/name.  SetNX makes the
// seed race-free: when two processes miss simultaneously only one
// write lands.
func (l *Ledger) ensureTicketType(ctx context.Context, ticketTypeID uint64) (ticketInfo, error) {
	countKey := store.TicketTypeCountKey(ticketTypeID)
	infoKey := store.TicketTypeInfoKey(ticketTypeID)

	_, countErr := l.kv.TTL(ctx, countKey)
	raw, infoErr := l.kv.Get(ctx, infoKey)
	if countErr == nil && infoErr == nil {
		var info ticketInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return ticketInfo{}, fmt.Errorf("inventory: decode %s: %w", infoKey, err)
		}
		return info, nil
	}
	if countErr != nil && !errors.Is(countErr, store.ErrNotFound) {
		return ticketInfo{}, countErr
	}
	if infoErr != nil && !errors.Is(infoErr, store.ErrNotFound) {
		return ticketInfo{}, infoErr
	}

	tt, err := l.src.TicketTypeByID(ctx, ticketTypeID)
	if err != nil {
		return ticketInfo{}, err
	}
	info := ticketInfo{PriceCents: tt.PriceCents, Name: tt.Name}
	if errors.Is(countErr, store.ErrNotFound) {
		if _, err := l.kv.SetNX(ctx, countKey, fmt.Sprintf("%d", tt.Available()), l.infoTTL); err != nil {
			return ticketInfo{}, fmt.Errorf("inventory: seed %s: %w", countKey, err)
		}
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return ticketInfo{}, err
	}
	if err := l.kv.Set(ctx, infoKey, string(payload), l.infoTTL); err != nil {
		return ticketInfo{}, fmt.Errorf("inventory: cache %s: %w", infoKey, err)
	}
	return info, nil
}

// ensureSection seeds a section counter on first touch.
func (l *Ledger) ensureSection(ctx context.Context, sectionID string) error {
	key := store.SectionCountKey(sectionID)
	_, err := l.kv.TTL(ctx, key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	capacity, err := l.src.SectionCapacity(ctx, sectionID)
	if err != nil {
		return err
	}
	if _, err := l.kv.SetNX(ctx, key, fmt.Sprintf("%d", capacity), l.infoTTL); err != nil {
		return fmt.Errorf("inventory: seed %s: %w", key, err)
	}
	return nil
}
