// Package stay models the guest occupancy consumed by the checkout workflow.
// Booking lifecycle itself lives upstream; this service only reads stays and
// flips their status to checked-out at finalization.
package stay

import (
	"time"

	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
)

// Status of the booking from the billing workflow's point of view.
type Status string

const (
	StatusActive     Status = "active"
	StatusCheckedOut Status = "checked_out"
)

// Stay is one guest party occupying one or more rooms between check-in and
// check-out. Immutable once the checkout is finalized.
type Stay struct {
	BookingID    id.ID       `db:"booking_id" json:"bookingId"`
	Reference    string      `db:"reference" json:"reference"`
	CheckIn      time.Time   `db:"check_in" json:"checkIn"`
	CheckOut     time.Time   `db:"check_out" json:"checkOut"`
	RoomNumbers  []string    `db:"room_numbers" json:"roomNumbers"`
	Guests       int         `db:"guests" json:"guests"`
	RoomTotal    types.Money `db:"room_total" json:"roomTotal"`
	PackageTotal types.Money `db:"package_total" json:"packageTotal"`
	Status       Status      `db:"status" json:"status"`
}

// Nights returns the number of billable nights, by calendar date difference.
func (s *Stay) Nights() int {
	in := s.CheckIn.Truncate(24 * time.Hour)
	out := s.CheckOut.Truncate(24 * time.Hour)
	return int(out.Sub(in).Hours() / 24)
}

// NightlyRate derives a per-room, per-night rate from the stored room total.
// Display breakdown only; the room charge itself always uses RoomTotal.
func (s *Stay) NightlyRate() types.Money {
	nights := s.Nights()
	rooms := len(s.RoomNumbers)
	if nights <= 0 || rooms == 0 {
		return types.Zero()
	}
	return types.RoundMoney(s.RoomTotal.Div(types.NewMoneyFromInt(int64(nights * rooms))))
}

// IsCheckedOut reports whether the stay has already been finalized.
func (s *Stay) IsCheckedOut() bool {
	return s.Status == StatusCheckedOut
}
