package booking

import (
	"context"
	"encoding/json"

	"github.com/quicktix/booking-engine/internal/model"
)

// Answers returns the form answers submitted for a held booking.
func (s *Service) Answers(ctx context.Context, showID uint64, bookingCode string) (json.RawMessage, error) {
	return s.snapshots.Answers(ctx, showID, bookingCode)
}

// UpdateAnswers stores the buyer's contact and attendee form answers
// and moves the booking past the question-form step.  The payload is
// kept verbatim; answers can only be written while the hold is alive,
// because a lapsed hold is already being reconciled away.
func (s *Service) UpdateAnswers(ctx context.Context, showID uint64, bookingCode string, payload json.RawMessage) (*model.BookingSnapshot, error) {
	snap, err := s.snapshots.Status(ctx, showID, bookingCode)
	if err != nil {
		return nil, err
	}
	if snap.ExpireIn <= 0 {
		return nil, ErrBookingNotFound
	}
	if err := s.snapshots.WriteAnswers(ctx, showID, bookingCode, payload); err != nil {
		return nil, err
	}
	if snap.Step == model.StepQuestionForm {
		snap.Step = model.StepPayment
		if err := s.snapshots.Rewrite(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}
