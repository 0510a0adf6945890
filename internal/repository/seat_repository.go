package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quicktix/booking-engine/internal/model"
)

// SeatRepo encapsulates database operations on the seats table.  Seats
// are written only by payment confirmation (AVAILABLE -> BOOKED) and by
// cancellation of a paid order flow; holds never touch the table.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, show_id, section_id, row_label, seat_number, status, created_at, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	var section sql.NullString
	err := row.Scan(&s.ID, &s.ShowID, &section, &s.RowLabel, &s.SeatNumber,
		&s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.SectionID = section.String
	return &s, nil
}

// SeatByID loads one seat regardless of status.
func (r *SeatRepo) SeatByID(ctx context.Context, id string) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// SeatsByIDs loads the given seats of a show.  The result may be
// shorter than ids when some do not exist; the caller decides whether
// that is an error.
func (r *SeatRepo) SeatsByIDs(ctx context.Context, showID uint64, ids []string) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE show_id = ? AND id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, showID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// AvailableSeats lists every AVAILABLE seat of a show; used to build
// the seat availability payload.
func (r *SeatRepo) AvailableSeats(ctx context.Context, showID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE show_id = ? AND status = ? ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, showID, model.SeatAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SectionCapacity reports the number of available seats in a section.
// The inventory ledger seeds the section counter from this value on
// first touch.
func (r *SeatRepo) SectionCapacity(ctx context.Context, sectionID string) (int64, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE section_id = ? AND status = ?`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, sectionID, model.SeatAvailable).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkBookedTx flips the given seats to BOOKED within an existing
// transaction.  Called only from the payment confirmation path.
func (r *SeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE seats SET status = ? WHERE id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, model.SeatBooked)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
