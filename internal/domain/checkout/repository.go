package checkout

import (
	"context"

	"stayledger/internal/core/id"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/reconcile"
	"stayledger/internal/domain/stay"
)

// RequestRepository persists checkout requests and their verified charges.
type RequestRepository interface {
	// Create inserts a new request. Returns CHECKOUT_REQUEST_ACTIVE if an
	// active request already exists for the room.
	Create(ctx context.Context, req *Request) error

	GetByID(ctx context.Context, requestID id.ID) (*Request, error)

	// GetActiveByRoom returns the room's pending or in_progress request,
	// NotFound if none.
	GetActiveByRoom(ctx context.Context, roomNumber string) (*Request, error)

	// GetLatestByRoom returns the room's most recent request regardless of
	// status, NotFound if none.
	GetLatestByRoom(ctx context.Context, roomNumber string) (*Request, error)

	// Update saves the request with optimistic locking on version.
	Update(ctx context.Context, req *Request) error

	List(ctx context.Context, status Status, limit, offset int) ([]Request, error)

	// SaveChargeLines replaces the verified charges for a request.
	SaveChargeLines(ctx context.Context, requestID id.ID, lines []billing.ChargeLine) error

	GetChargeLines(ctx context.Context, requestID id.ID) ([]billing.ChargeLine, error)
}

// CheckoutRepository persists finalized checkouts.
type CheckoutRepository interface {
	Create(ctx context.Context, c *Checkout) error
	GetByID(ctx context.Context, checkoutID id.ID) (*Checkout, error)
}

// BookingProvider reads stays and flips their status at finalization.
// Room status is the single source of truth for "still open for billing";
// only Finalize writes it.
type BookingProvider interface {
	// ActiveStayByRoom returns the active stay occupying the room.
	ActiveStayByRoom(ctx context.Context, roomNumber string) (*stay.Stay, error)

	// MarkCheckedOut atomically flips the booking to checked_out for the
	// given rooms. Rooms already checked out are returned as conflicts and
	// nothing is written.
	MarkCheckedOut(ctx context.Context, bookingID id.ID, rooms []string) (conflicted []string, err error)
}

// OrderSource supplies food and service charge lines for a stay.
type OrderSource interface {
	ChargeLines(ctx context.Context, bookingID id.ID, rooms []string) ([]billing.ChargeLine, error)
}

// InventoryProvider reads room inventory assignments and applies return
// movements.
type InventoryProvider interface {
	ConsumableAssignments(ctx context.Context, roomNumber string) ([]reconcile.ConsumableLine, error)
	AssetAssignments(ctx context.Context, roomNumber string) ([]reconcile.AssetLine, error)

	// RentalCharges returns inventory-usage lines for items carrying a
	// rental price.
	RentalCharges(ctx context.Context, roomNumber string) ([]billing.ChargeLine, error)

	// DefaultReturnLocation resolves the configured fallback store.
	DefaultReturnLocation(ctx context.Context) (id.ID, error)

	ApplyMovements(ctx context.Context, movements []reconcile.StockMovement) error
}
