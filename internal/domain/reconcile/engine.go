// Package reconcile compares assigned vs. returned room inventory and turns
// the difference into charge lines and stock movements.
package reconcile

import (
	"fmt"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/billing"
)

// MissingAssetNote is stamped on an asset reported short at checkout without
// an explicit damage flag. Shrinkage and damage are billed the same way.
const MissingAssetNote = "reported missing at checkout"

// ConsumableLine is one consumable item assigned to a room, with the
// operator-entered returned count.
type ConsumableLine struct {
	ItemID             id.ID
	Name               string
	AssignedQty        types.Quantity
	ReturnedQty        types.Quantity
	ComplimentaryLimit types.Quantity
	ChargePerUnit      types.Money

	// ReturnLocationID overrides the default destination for returned stock.
	ReturnLocationID *id.ID
}

// AssetLine is one fixed asset assigned to a room, with its checkout
// condition.
type AssetLine struct {
	AssetID         id.ID
	Name            string
	ReplacementCost types.Money
	AssignedQty     types.Quantity
	ReturnedQty     types.Quantity
	Damaged         bool
	DamageNotes     string
}

// StockMovement instructs the inventory store to receive returned units.
type StockMovement struct {
	ItemID     id.ID
	Quantity   types.Quantity
	LocationID id.ID
}

// Result carries everything a completed reconciliation produces.
type Result struct {
	ConsumableCharges  []billing.ChargeLine
	AssetDamageCharges []billing.ChargeLine
	Movements          []StockMovement
}

// Charges returns consumable and damage charges as one slice, in the order
// they will appear on the bill.
func (r *Result) Charges() []billing.ChargeLine {
	out := make([]billing.ChargeLine, 0, len(r.ConsumableCharges)+len(r.AssetDamageCharges))
	out = append(out, r.ConsumableCharges...)
	out = append(out, r.AssetDamageCharges...)
	return out
}

// Reconcile computes consumption charges, damage charges and return
// movements for a room's assigned inventory.
//
// All lines are validated before anything is computed; an over-return on any
// line rejects the whole submission.
//
// Per consumable: used = max(0, assigned - returned), billable =
// max(0, used - complimentary limit), charge = billable * unit price. Any
// returned units produce a movement to the line's return location or
// defaultLocation.
//
// Per asset: an explicit damage flag requires notes and bills the
// replacement cost. A short count without the flag is treated as damage with
// MissingAssetNote.
func Reconcile(consumables []ConsumableLine, assets []AssetLine, defaultLocation id.ID) (*Result, error) {
	for _, line := range consumables {
		if line.ReturnedQty.IsNegative() {
			return nil, apperror.NewValidation("returned quantity cannot be negative").
				WithDetail("item", line.Name)
		}
		if line.ReturnedQty > line.AssignedQty {
			return nil, apperror.NewBusinessRule(apperror.CodeOverReturn,
				fmt.Sprintf("cannot return %d units of %q, only %d were assigned",
					line.ReturnedQty, line.Name, line.AssignedQty)).
				WithDetail("item", line.Name).
				WithDetail("assigned", line.AssignedQty).
				WithDetail("returned", line.ReturnedQty)
		}
	}
	for _, line := range assets {
		if line.ReturnedQty.IsNegative() {
			return nil, apperror.NewValidation("returned quantity cannot be negative").
				WithDetail("asset", line.Name)
		}
		if line.ReturnedQty > line.AssignedQty {
			return nil, apperror.NewBusinessRule(apperror.CodeOverReturn,
				fmt.Sprintf("cannot return %d units of %q, only %d were assigned",
					line.ReturnedQty, line.Name, line.AssignedQty)).
				WithDetail("asset", line.Name)
		}
		if line.Damaged && line.DamageNotes == "" {
			return nil, apperror.NewValidation("damage notes are required for a damaged asset").
				WithDetail("asset", line.Name)
		}
	}

	result := &Result{}

	for _, line := range consumables {
		used := line.AssignedQty.Sub(line.ReturnedQty)
		billable := used.Sub(line.ComplimentaryLimit)

		if billable.IsPositive() {
			amount := line.ChargePerUnit.Mul(types.NewMoneyFromInt(billable.Int64()))
			itemID := line.ItemID
			result.ConsumableCharges = append(result.ConsumableCharges, billing.ChargeLine{
				Category:    billing.CategoryConsumable,
				Description: fmt.Sprintf("%s (%d consumed, %d complimentary)", line.Name, used, line.ComplimentaryLimit),
				Amount:      types.RoundMoney(amount),
				Quantity:    billable,
				UnitRef:     &itemID,
				Taxable:     true,
			})
		}

		if line.ReturnedQty.IsPositive() {
			location := defaultLocation
			if line.ReturnLocationID != nil {
				location = *line.ReturnLocationID
			}
			result.Movements = append(result.Movements, StockMovement{
				ItemID:     line.ItemID,
				Quantity:   line.ReturnedQty,
				LocationID: location,
			})
		}
	}

	for _, line := range assets {
		damaged := line.Damaged
		notes := line.DamageNotes
		if !damaged && line.ReturnedQty < line.AssignedQty {
			damaged = true
			notes = MissingAssetNote
		}
		if !damaged {
			continue
		}

		assetID := line.AssetID
		result.AssetDamageCharges = append(result.AssetDamageCharges, billing.ChargeLine{
			Category:    billing.CategoryAssetDamage,
			Description: fmt.Sprintf("%s: %s", line.Name, notes),
			Amount:      types.RoundMoney(line.ReplacementCost),
			Quantity:    1,
			UnitRef:     &assetID,
			Taxable:     false,
		})
	}

	return result, nil
}
