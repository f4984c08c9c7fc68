package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/billing"
)

func TestReconcile_ConsumableConservation(t *testing.T) {
	store := id.New()
	line := ConsumableLine{
		ItemID:             id.New(),
		Name:               "Mineral water",
		AssignedQty:        10,
		ReturnedQty:        7,
		ComplimentaryLimit: 2,
		ChargePerUnit:      types.MustMoney("60"),
	}

	result, err := Reconcile([]ConsumableLine{line}, nil, store)
	require.NoError(t, err)

	// used 3, 2 complimentary, 1 billable
	require.Len(t, result.ConsumableCharges, 1)
	charge := result.ConsumableCharges[0]
	assert.Equal(t, types.Quantity(1), charge.Quantity)
	assert.True(t, charge.Amount.Equal(types.MustMoney("60")), "amount %s", charge.Amount)
	assert.Equal(t, billing.CategoryConsumable, charge.Category)
	assert.True(t, charge.Taxable)

	require.Len(t, result.Movements, 1)
	assert.Equal(t, types.Quantity(7), result.Movements[0].Quantity)
	assert.Equal(t, store, result.Movements[0].LocationID)
}

func TestReconcile_FullReturnNoCharge(t *testing.T) {
	line := ConsumableLine{
		ItemID:        id.New(),
		Name:          "Towel",
		AssignedQty:   4,
		ReturnedQty:   4,
		ChargePerUnit: types.MustMoney("250"),
	}

	result, err := Reconcile([]ConsumableLine{line}, nil, id.New())
	require.NoError(t, err)

	assert.Empty(t, result.ConsumableCharges)
	require.Len(t, result.Movements, 1)
	assert.Equal(t, types.Quantity(4), result.Movements[0].Quantity)
}

func TestReconcile_ComplimentaryCoversUsage(t *testing.T) {
	line := ConsumableLine{
		ItemID:             id.New(),
		Name:               "Tea sachet",
		AssignedQty:        5,
		ReturnedQty:        3,
		ComplimentaryLimit: 4,
		ChargePerUnit:      types.MustMoney("20"),
	}

	result, err := Reconcile([]ConsumableLine{line}, nil, id.New())
	require.NoError(t, err)
	assert.Empty(t, result.ConsumableCharges)
}

func TestReconcile_ChargeIsExactDecimal(t *testing.T) {
	line := ConsumableLine{
		ItemID:        id.New(),
		Name:          "Coffee pod",
		AssignedQty:   7,
		ReturnedQty:   4,
		ChargePerUnit: types.MustMoney("0.10"),
	}

	result, err := Reconcile([]ConsumableLine{line}, nil, id.New())
	require.NoError(t, err)

	require.Len(t, result.ConsumableCharges, 1)
	charge := result.ConsumableCharges[0]
	assert.Equal(t, types.Quantity(3), charge.Quantity)
	assert.True(t, charge.Amount.Equal(types.MustMoney("0.30")), "amount %s", charge.Amount)
}

func TestReconcile_ExplicitReturnLocation(t *testing.T) {
	laundry := id.New()
	line := ConsumableLine{
		ItemID:           id.New(),
		Name:             "Bathrobe",
		AssignedQty:      2,
		ReturnedQty:      2,
		ChargePerUnit:    types.MustMoney("500"),
		ReturnLocationID: &laundry,
	}

	result, err := Reconcile([]ConsumableLine{line}, nil, id.New())
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)
	assert.Equal(t, laundry, result.Movements[0].LocationID)
}

func TestReconcile_OverReturnRejectsAtomically(t *testing.T) {
	good := ConsumableLine{
		ItemID:        id.New(),
		Name:          "Slippers",
		AssignedQty:   2,
		ReturnedQty:   1,
		ChargePerUnit: types.MustMoney("150"),
	}
	bad := ConsumableLine{
		ItemID:        id.New(),
		Name:          "Mineral water",
		AssignedQty:   10,
		ReturnedQty:   12,
		ChargePerUnit: types.MustMoney("60"),
	}

	result, err := Reconcile([]ConsumableLine{good, bad}, nil, id.New())
	require.Error(t, err)
	assert.Nil(t, result)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOverReturn, appErr.Code)
}

func TestReconcile_DamagedAssetBillsReplacementCost(t *testing.T) {
	asset := AssetLine{
		AssetID:         id.New(),
		Name:            "Smart TV",
		ReplacementCost: types.MustMoney("25000"),
		AssignedQty:     1,
		ReturnedQty:     1,
		Damaged:         true,
		DamageNotes:     "cracked screen",
	}

	result, err := Reconcile(nil, []AssetLine{asset}, id.New())
	require.NoError(t, err)

	require.Len(t, result.AssetDamageCharges, 1)
	charge := result.AssetDamageCharges[0]
	assert.True(t, charge.Amount.Equal(types.MustMoney("25000")))
	assert.Equal(t, billing.CategoryAssetDamage, charge.Category)
	assert.Contains(t, charge.Description, "cracked screen")
	assert.False(t, charge.Taxable)
}

func TestReconcile_MissingAssetTreatedAsDamage(t *testing.T) {
	asset := AssetLine{
		AssetID:         id.New(),
		Name:            "Hair dryer",
		ReplacementCost: types.MustMoney("1800"),
		AssignedQty:     1,
		ReturnedQty:     0,
	}

	result, err := Reconcile(nil, []AssetLine{asset}, id.New())
	require.NoError(t, err)

	require.Len(t, result.AssetDamageCharges, 1)
	assert.Contains(t, result.AssetDamageCharges[0].Description, MissingAssetNote)
}

func TestReconcile_DamageNotesRequired(t *testing.T) {
	asset := AssetLine{
		AssetID:         id.New(),
		Name:            "Kettle",
		ReplacementCost: types.MustMoney("1200"),
		AssignedQty:     1,
		ReturnedQty:     1,
		Damaged:         true,
	}

	_, err := Reconcile(nil, []AssetLine{asset}, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestReconcile_UndamagedAssetNoCharge(t *testing.T) {
	asset := AssetLine{
		AssetID:         id.New(),
		Name:            "Iron",
		ReplacementCost: types.MustMoney("900"),
		AssignedQty:     1,
		ReturnedQty:     1,
	}

	result, err := Reconcile(nil, []AssetLine{asset}, id.New())
	require.NoError(t, err)
	assert.Empty(t, result.AssetDamageCharges)
}
