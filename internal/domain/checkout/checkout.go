package checkout

import (
	"stayledger/internal/core/entity"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/billing"
)

// Checkout is the finalized, immutable billing record for a stay. The bill
// is frozen as posted; later rate or discount changes never alter it.
type Checkout struct {
	entity.BaseDocument

	Number        string       `db:"number" json:"number"`
	BookingID     id.ID        `db:"booking_id" json:"bookingId"`
	RoomNumbers   []string     `db:"room_numbers" json:"roomNumbers"`
	Mode          Mode         `db:"mode" json:"mode"`
	Bill          billing.Bill `db:"-" json:"bill"`
	PaymentMethod string       `db:"payment_method" json:"paymentMethod"`
	Discount      types.Money  `db:"discount" json:"discount"`
	GrandTotal    types.Money  `db:"grand_total" json:"grandTotal"`
}
