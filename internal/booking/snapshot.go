package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/store"
)

// SnapshotStore keeps pending booking snapshots in the ephemeral store.
//
// Each booking writes two keys: a data key holding the snapshot JSON
// with no expiry, and a companion cleanup key carrying the hold TTL.
// Only the cleanup key expires; its expiry event (or a scan finding it
// gone) is what triggers reconciliation, and the data key survives so
// the reconciler still knows what to restore.
type SnapshotStore struct {
	kv store.KV
}

func NewSnapshotStore(kv store.KV) *SnapshotStore {
	return &SnapshotStore{kv: kv}
}

// Write stores the snapshot and arms the cleanup key with ttl.
func (s *SnapshotStore) Write(ctx context.Context, snap *model.BookingSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, store.BookingKey(snap.ShowID, snap.BookingCode), string(payload), 0); err != nil {
		return err
	}
	return s.kv.Set(ctx, store.BookingCleanupKey(snap.ShowID, snap.BookingCode), "1", ttl)
}

// Rewrite replaces the snapshot payload without touching the cleanup
// key, so the hold deadline is unchanged.
func (s *SnapshotStore) Rewrite(ctx context.Context, snap *model.BookingSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, store.BookingKey(snap.ShowID, snap.BookingCode), string(payload), 0)
}

// Get returns the snapshot for a booking, or ErrBookingNotFound when
// the data key is gone.
func (s *SnapshotStore) Get(ctx context.Context, showID uint64, code string) (*model.BookingSnapshot, error) {
	raw, err := s.kv.Get(ctx, store.BookingKey(showID, code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap model.BookingSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Status returns the snapshot with ExpireIn refreshed from the cleanup
// key's remaining TTL.  A missing cleanup key reports zero: the hold
// has lapsed and reconciliation is in flight.
func (s *SnapshotStore) Status(ctx context.Context, showID uint64, code string) (*model.BookingSnapshot, error) {
	snap, err := s.Get(ctx, showID, code)
	if err != nil {
		return nil, err
	}
	ttl, err := s.kv.TTL(ctx, store.BookingCleanupKey(showID, code))
	switch {
	case errors.Is(err, store.ErrNotFound):
		snap.ExpireIn = 0
	case err != nil:
		return nil, err
	case ttl == store.NoExpiry:
		snap.ExpireIn = 0
	default:
		snap.ExpireIn = int64(ttl / time.Second)
	}
	return snap, nil
}

// WriteAnswers stores the submitted form answers verbatim.  The payload
// is opaque to the coordinator; only the buyer-facing API interprets it.
func (s *SnapshotStore) WriteAnswers(ctx context.Context, showID uint64, code string, payload json.RawMessage) error {
	return s.kv.Set(ctx, store.BookingAnswerKey(showID, code), string(payload), 0)
}

// Answers returns the stored form answers, or ErrAnswersNotFound when
// none were submitted.
func (s *SnapshotStore) Answers(ctx context.Context, showID uint64, code string) (json.RawMessage, error) {
	raw, err := s.kv.Get(ctx, store.BookingAnswerKey(showID, code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAnswersNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Delete removes the booking's keys.  Deleting the cleanup key before
// it fires is what makes confirm and cancel suppress the expiry path.
func (s *SnapshotStore) Delete(ctx context.Context, showID uint64, code string) error {
	if err := s.kv.Del(ctx, store.BookingCleanupKey(showID, code)); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, store.BookingAnswerKey(showID, code)); err != nil {
		return err
	}
	return s.kv.Del(ctx, store.BookingKey(showID, code))
}
