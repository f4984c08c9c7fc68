// Package checkout orchestrates the billing workflow: a checkout request
// gates bill generation behind inventory verification, and finalization
// freezes the bill into an immutable checkout record.
package checkout

import (
	"time"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/entity"
	"stayledger/internal/core/id"
)

// Mode selects the checkout scope.
type Mode string

const (
	// ModeSingle checks out one room of the booking.
	ModeSingle Mode = "single"
	// ModeMultiple checks out every room of the booking together.
	ModeMultiple Mode = "multiple"
)

// Valid reports whether the mode is a known value.
func (m Mode) Valid() bool {
	return m == ModeSingle || m == ModeMultiple
}

// Status of a checkout request. Completed is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsActive reports whether the request still blocks billing for its room.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// Request is the pre-billing workflow object for one room. At most one
// active request may exist per room; the repository enforces this with a
// partial unique index.
type Request struct {
	entity.BaseDocument

	Number             string     `db:"number" json:"number"`
	BookingID          id.ID      `db:"booking_id" json:"bookingId"`
	RoomNumber         string     `db:"room_number" json:"roomNumber"`
	Mode               Mode       `db:"mode" json:"mode"`
	Status             Status     `db:"status" json:"status"`
	AssignedEmployee   string     `db:"assigned_employee" json:"assignedEmployee,omitempty"`
	InventoryCheckedBy string     `db:"inventory_checked_by" json:"inventoryCheckedBy,omitempty"`
	InventoryCheckedAt *time.Time `db:"inventory_checked_at" json:"inventoryCheckedAt,omitempty"`
	Notes              string     `db:"notes" json:"notes,omitempty"`
}

// NewRequest creates a pending request for a room of the given booking.
// Requests carry the booking so completed requests from an earlier stay on
// the same room never leak into the next guest's bill.
func NewRequest(bookingID id.ID, roomNumber string, mode Mode) *Request {
	return &Request{
		BaseDocument: entity.NewBaseDocument(),
		BookingID:    bookingID,
		RoomNumber:   roomNumber,
		Mode:         mode,
		Status:       StatusPending,
	}
}

// Assign moves the request to in_progress with an assigned employee.
func (r *Request) Assign(employee string) error {
	if employee == "" {
		return apperror.NewValidation("employee is required")
	}
	switch r.Status {
	case StatusPending:
		r.Status = StatusInProgress
	case StatusInProgress:
		// Reassignment is allowed until inventory is verified.
	case StatusCompleted:
		return apperror.NewStateConflict(apperror.CodeAlreadyVerified,
			"inventory is already verified for this request")
	default:
		return apperror.NewStateConflict(apperror.CodeStateConflict,
			"request is in an unknown state")
	}
	r.AssignedEmployee = employee
	r.Touch()
	return nil
}

// CompleteInventoryCheck stamps the verification and moves the request to
// its terminal state. Legal only from pending or in_progress.
func (r *Request) CompleteInventoryCheck(checkedBy string, at time.Time) error {
	if checkedBy == "" {
		return apperror.NewValidation("inventory checker is required")
	}
	if r.Status == StatusCompleted {
		return apperror.NewStateConflict(apperror.CodeAlreadyVerified,
			"inventory is already verified for this request")
	}
	if !r.Status.IsActive() {
		return apperror.NewStateConflict(apperror.CodeStateConflict,
			"request is in an unknown state")
	}

	r.Status = StatusCompleted
	r.InventoryCheckedBy = checkedBy
	checkedAt := at.UTC()
	r.InventoryCheckedAt = &checkedAt
	r.Touch()
	return nil
}
