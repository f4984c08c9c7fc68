// Package billing aggregates heterogeneous stay charges into one tax-correct
// bill. All computation here is pure; persistence happens only when a
// checkout is finalized.
package billing

import (
	"time"

	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
)

// Category classifies a charge line for tax and reporting purposes.
type Category string

const (
	CategoryRoom           Category = "room"
	CategoryPackage        Category = "package"
	CategoryFood           Category = "food"
	CategoryService        Category = "service"
	CategoryConsumable     Category = "consumable"
	CategoryInventoryUsage Category = "inventory_usage"
	CategoryAssetDamage    Category = "asset_damage"
)

// ChargeLine is a single billable (or display-only) item on a bill.
type ChargeLine struct {
	Category    Category       `db:"category" json:"category"`
	Description string         `db:"description" json:"description"`
	Amount      types.Money    `db:"amount" json:"amount"`
	Quantity    types.Quantity `db:"quantity" json:"quantity,omitempty"`
	UnitRef     *id.ID         `db:"unit_ref" json:"unitRef,omitempty"`
	Taxable     bool           `db:"taxable" json:"taxable"`

	// AlreadyPaid lines are shown on the itemized bill but excluded from the
	// payable subtotal. Prevents double-billing of settled food and service
	// orders.
	AlreadyPaid bool `db:"already_paid" json:"alreadyPaid"`
}

// CategoryTax records the tax actually applied to one category at bill
// generation time. The rate is snapshotted so later policy changes never
// alter a historical bill.
type CategoryTax struct {
	Category Category    `json:"category"`
	Base     types.Money `json:"base"`
	Rate     types.Money `json:"rate"`
	Tax      types.Money `json:"tax"`
}

// Bill is the aggregated charge picture for a stay. Derived on demand and
// frozen into the checkout record at finalization.
type Bill struct {
	BookingID   id.ID         `json:"bookingId"`
	RoomNumbers []string      `json:"roomNumbers"`
	Nights      int           `json:"nights"`
	NightlyRate types.Money   `json:"nightlyRate"`
	Lines       []ChargeLine  `json:"lines"`
	Subtotal    types.Money   `json:"subtotal"`
	TaxDetails  []CategoryTax `json:"taxDetails"`
	TotalTax    types.Money   `json:"totalTax"`
	Discount    types.Money   `json:"discount"`
	GrandTotal  types.Money   `json:"grandTotal"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// TaxFor returns the snapshotted tax for a category, zero if none applied.
func (b *Bill) TaxFor(category Category) types.Money {
	for _, t := range b.TaxDetails {
		if t.Category == category {
			return t.Tax
		}
	}
	return types.Zero()
}
