package billing

import (
	"time"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/stay"
)

// BuildBill aggregates charge lines for a stay into a Bill.
//
// Already-paid lines stay on the itemized bill but contribute nothing to the
// subtotal or tax base. Tax is computed per category on the taxable unpaid
// base, and the rate actually applied is snapshotted into TaxDetails.
//
// Invariants enforced here:
//   - the stay must have at least one night and one room
//   - 0 <= discount <= subtotal + total tax (never clamped, always rejected)
//   - grand total = max(0, subtotal + total tax - discount)
func BuildBill(st *stay.Stay, lines []ChargeLine, discount types.Money, policy Policy) (*Bill, error) {
	if st == nil {
		return nil, apperror.NewValidation("stay is required")
	}
	if st.Nights() <= 0 {
		return nil, apperror.NewBusinessRule(apperror.CodeZeroNightStay,
			"stay has zero nights, nothing to bill").
			WithDetail("checkIn", st.CheckIn).
			WithDetail("checkOut", st.CheckOut)
	}
	if len(st.RoomNumbers) == 0 {
		return nil, apperror.NewValidation("stay has no rooms")
	}
	if discount.IsNegative() {
		return nil, apperror.NewValidation("discount cannot be negative").
			WithDetail("discount", discount)
	}
	for i, line := range lines {
		if line.Amount.IsNegative() {
			return nil, apperror.NewValidation("charge amount cannot be negative").
				WithDetail("line", i).
				WithDetail("category", line.Category)
		}
	}

	subtotal := types.Zero()
	taxBase := map[Category]types.Money{}
	for _, line := range lines {
		if line.AlreadyPaid {
			continue
		}
		subtotal = subtotal.Add(line.Amount)
		if line.Taxable {
			taxBase[line.Category] = taxBase[line.Category].Add(line.Amount)
		}
	}

	totalTax := types.Zero()
	details := make([]CategoryTax, 0, len(taxBase))
	for _, category := range taxOrder {
		base, ok := taxBase[category]
		if !ok || !base.IsPositive() {
			continue
		}
		tax, rate := policy.TaxFor(category, base)
		if tax.IsZero() {
			continue
		}
		details = append(details, CategoryTax{
			Category: category,
			Base:     base,
			Rate:     rate,
			Tax:      tax,
		})
		totalTax = totalTax.Add(tax)
	}

	taxedTotal := subtotal.Add(totalTax)
	if discount.GreaterThan(taxedTotal) {
		return nil, apperror.NewValidation("discount exceeds billable total").
			WithDetail("discount", discount).
			WithDetail("billableTotal", taxedTotal)
	}

	grand := taxedTotal.Sub(discount)
	if grand.IsNegative() {
		grand = types.Zero()
	}

	return &Bill{
		BookingID:   st.BookingID,
		RoomNumbers: st.RoomNumbers,
		Nights:      st.Nights(),
		NightlyRate: st.NightlyRate(),
		Lines:       lines,
		Subtotal:    types.RoundMoney(subtotal),
		TaxDetails:  details,
		TotalTax:    types.RoundMoney(totalTax),
		Discount:    types.RoundMoney(discount),
		GrandTotal:  types.RoundMoney(grand),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// taxOrder fixes the order of TaxDetails so bills render deterministically.
var taxOrder = []Category{
	CategoryRoom,
	CategoryPackage,
	CategoryFood,
	CategoryService,
	CategoryConsumable,
	CategoryInventoryUsage,
	CategoryAssetDamage,
}
