package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/stay"
)

func testStay(nights int) *stay.Stay {
	checkIn := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return &stay.Stay{
		BookingID:   id.New(),
		Reference:   "BK-1042",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, nights),
		RoomNumbers: []string{"101"},
		Guests:      2,
		RoomTotal:   types.MustMoney("6000"),
		Status:      stay.StatusActive,
	}
}

func TestBuildBill_Invariant(t *testing.T) {
	lines := []ChargeLine{
		{Category: CategoryRoom, Description: "Room 101, 2 nights", Amount: types.MustMoney("6000"), Taxable: true},
		{Category: CategoryFood, Description: "Room service", Amount: types.MustMoney("800"), Taxable: true},
		{Category: CategoryService, Description: "Laundry", Amount: types.MustMoney("200"), Taxable: true},
	}

	bill, err := BuildBill(testStay(2), lines, types.MustMoney("100"), DefaultPolicy())
	require.NoError(t, err)

	// subtotal 7000; room tax 6000*12% = 720, food tax 800*5% = 40
	assert.True(t, bill.Subtotal.Equal(types.MustMoney("7000")), "subtotal %s", bill.Subtotal)
	assert.True(t, bill.TotalTax.Equal(types.MustMoney("760")), "tax %s", bill.TotalTax)
	assert.True(t, bill.GrandTotal.Equal(types.MustMoney("7660")), "grand %s", bill.GrandTotal)

	expected := bill.Subtotal.Add(bill.TotalTax).Sub(bill.Discount)
	assert.True(t, bill.GrandTotal.Equal(expected))
}

func TestBuildBill_PaidLinesExcluded(t *testing.T) {
	lines := []ChargeLine{
		{Category: CategoryRoom, Amount: types.MustMoney("4000"), Taxable: true},
		{Category: CategoryFood, Amount: types.MustMoney("500"), Taxable: true, AlreadyPaid: true},
	}

	bill, err := BuildBill(testStay(1), lines, types.Zero(), DefaultPolicy())
	require.NoError(t, err)

	// paid food line is still itemized but adds nothing to subtotal or tax
	assert.Len(t, bill.Lines, 2)
	assert.True(t, bill.Subtotal.Equal(types.MustMoney("4000")), "subtotal %s", bill.Subtotal)
	assert.True(t, bill.TaxFor(CategoryFood).IsZero())
	assert.True(t, bill.TotalTax.Equal(types.MustMoney("200")), "tax %s", bill.TotalTax)
}

func TestBuildBill_DiscountEqualsTotal(t *testing.T) {
	lines := []ChargeLine{
		{Category: CategoryRoom, Amount: types.MustMoney("1000"), Taxable: true},
	}

	// 1000 + 50 tax = 1050, discounted in full
	bill, err := BuildBill(testStay(1), lines, types.MustMoney("1050"), DefaultPolicy())
	require.NoError(t, err)
	assert.True(t, bill.GrandTotal.IsZero(), "grand %s", bill.GrandTotal)
}

func TestBuildBill_DiscountExceedsTotal(t *testing.T) {
	lines := []ChargeLine{
		{Category: CategoryRoom, Amount: types.MustMoney("1000"), Taxable: true},
	}

	_, err := BuildBill(testStay(1), lines, types.MustMoney("1050.01"), DefaultPolicy())
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestBuildBill_NegativeDiscount(t *testing.T) {
	_, err := BuildBill(testStay(1), nil, types.MustMoney("-1"), DefaultPolicy())
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestBuildBill_ZeroNights(t *testing.T) {
	_, err := BuildBill(testStay(0), nil, types.Zero(), DefaultPolicy())
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeZeroNightStay, appErr.Code)
}

func TestBuildBill_RateSnapshot(t *testing.T) {
	lines := []ChargeLine{
		{Category: CategoryRoom, Amount: types.MustMoney("8000"), Taxable: true},
	}

	bill, err := BuildBill(testStay(1), lines, types.Zero(), DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, bill.TaxDetails, 1)
	detail := bill.TaxDetails[0]
	assert.Equal(t, CategoryRoom, detail.Category)
	assert.True(t, detail.Rate.Equal(types.MustMoney("0.18")))
	assert.True(t, detail.Tax.Equal(types.MustMoney("1440")))
}

func TestBuildBill_UntaxableLineSkipsTax(t *testing.T) {
	lines := []ChargeLine{
		{Category: CategoryAssetDamage, Amount: types.MustMoney("2500"), Taxable: false},
	}

	bill, err := BuildBill(testStay(1), lines, types.Zero(), DefaultPolicy())
	require.NoError(t, err)
	assert.True(t, bill.TotalTax.IsZero())
	assert.True(t, bill.GrandTotal.Equal(types.MustMoney("2500")))
}
