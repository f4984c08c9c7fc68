package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/domain/checkout"
	"stayledger/internal/domain/stay"
)

const (
	bookingsTable    = "bookings"
	bookedRoomsTable = "booked_rooms"
)

// BookingRepo implements checkout.BookingProvider on the bookings and
// booked_rooms tables. Room status rows are the finalization lock.
type BookingRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

var _ checkout.BookingProvider = (*BookingRepo)(nil)

func NewBookingRepo(txManager *TxManager) *BookingRepo {
	return &BookingRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ActiveStayByRoom returns the active stay occupying the room.
func (r *BookingRepo) ActiveStayByRoom(ctx context.Context, roomNumber string) (*stay.Stay, error) {
	q := r.builder.Select(
		"b.id AS booking_id", "b.reference", "b.check_in", "b.check_out",
		"b.guests", "b.room_total", "b.package_total", "b.status",
	).From(bookingsTable+" b").
		Join(bookedRoomsTable+" br ON br.booking_id = b.id").
		Where(squirrel.Eq{"br.room_number": roomNumber}).
		Where(squirrel.Eq{"b.status": stay.StatusActive})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var st stay.Stay
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &st, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("active stay", roomNumber)
		}
		return nil, fmt.Errorf("select stay: %w", err)
	}

	rooms, err := r.bookingRooms(ctx, st.BookingID)
	if err != nil {
		return nil, err
	}
	st.RoomNumbers = rooms
	return &st, nil
}

func (r *BookingRepo) bookingRooms(ctx context.Context, bookingID id.ID) ([]string, error) {
	q := r.builder.Select("room_number").
		From(bookedRoomsTable).
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("room_number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rooms []string
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rooms, sql, args...); err != nil {
		return nil, fmt.Errorf("select booked rooms: %w", err)
	}
	return rooms, nil
}

// MarkCheckedOut flips room rows to checked_out with a guarded update. Rooms
// that were already checked out come back as conflicts with nothing written;
// the surrounding transaction rolls the rest back.
func (r *BookingRepo) MarkCheckedOut(ctx context.Context, bookingID id.ID, rooms []string) ([]string, error) {
	querier := r.txManager.GetQuerier(ctx)

	updated := make(map[string]bool, len(rooms))
	rows, err := querier.Query(ctx, `
		UPDATE booked_rooms
		SET status = 'checked_out', checked_out_at = now()
		WHERE booking_id = $1
		  AND room_number = ANY($2)
		  AND status <> 'checked_out'
		RETURNING room_number
	`, bookingID, rooms)
	if err != nil {
		return nil, fmt.Errorf("mark rooms checked out: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		updated[room] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read updated rooms: %w", err)
	}

	var conflicted []string
	for _, room := range rooms {
		if !updated[room] {
			conflicted = append(conflicted, room)
		}
	}
	if len(conflicted) > 0 {
		return conflicted, nil
	}

	// Close the booking once no room remains open.
	_, err = querier.Exec(ctx, `
		UPDATE bookings
		SET status = 'checked_out'
		WHERE id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM booked_rooms
			WHERE booking_id = $1 AND status <> 'checked_out'
		  )
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("close booking: %w", err)
	}

	return nil, nil
}
