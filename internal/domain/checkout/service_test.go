package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/reconcile"
	"stayledger/internal/domain/stay"
	"stayledger/pkg/numerator"
)

// --- In-memory fakes ---

type fakeRequestRepo struct {
	requests map[id.ID]*Request
	charges  map[id.ID][]billing.ChargeLine
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		requests: map[id.ID]*Request{},
		charges:  map[id.ID][]billing.ChargeLine{},
	}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *Request) error {
	for _, existing := range f.requests {
		if existing.RoomNumber == req.RoomNumber && existing.Status.IsActive() {
			return apperror.NewStateConflict(apperror.CodeRequestActive,
				"an active checkout request already exists for this room")
		}
	}
	f.requests[req.ID] = req
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, requestID id.ID) (*Request, error) {
	if req, ok := f.requests[requestID]; ok {
		return req, nil
	}
	return nil, apperror.NewNotFound("checkout request", requestID)
}

func (f *fakeRequestRepo) GetActiveByRoom(ctx context.Context, room string) (*Request, error) {
	for _, req := range f.requests {
		if req.RoomNumber == room && req.Status.IsActive() {
			return req, nil
		}
	}
	return nil, apperror.NewNotFound("checkout request", room)
}

func (f *fakeRequestRepo) GetLatestByRoom(ctx context.Context, room string) (*Request, error) {
	var latest *Request
	for _, req := range f.requests {
		if req.RoomNumber != room {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, apperror.NewNotFound("checkout request", room)
	}
	return latest, nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, req *Request) error {
	f.requests[req.ID] = req
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, status Status, limit, offset int) ([]Request, error) {
	var out []Request
	for _, req := range f.requests {
		if status == "" || req.Status == status {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) SaveChargeLines(ctx context.Context, requestID id.ID, lines []billing.ChargeLine) error {
	f.charges[requestID] = lines
	return nil
}

func (f *fakeRequestRepo) GetChargeLines(ctx context.Context, requestID id.ID) ([]billing.ChargeLine, error) {
	return f.charges[requestID], nil
}

type fakeCheckoutRepo struct {
	checkouts []*Checkout
}

func (f *fakeCheckoutRepo) Create(ctx context.Context, c *Checkout) error {
	f.checkouts = append(f.checkouts, c)
	return nil
}

func (f *fakeCheckoutRepo) GetByID(ctx context.Context, checkoutID id.ID) (*Checkout, error) {
	for _, c := range f.checkouts {
		if c.ID == checkoutID {
			return c, nil
		}
	}
	return nil, apperror.NewNotFound("checkout", checkoutID)
}

type fakeBookings struct {
	stay       *stay.Stay
	checkedOut map[string]bool
}

func (f *fakeBookings) ActiveStayByRoom(ctx context.Context, room string) (*stay.Stay, error) {
	if f.stay == nil {
		return nil, apperror.NewNotFound("stay", room)
	}
	return f.stay, nil
}

func (f *fakeBookings) MarkCheckedOut(ctx context.Context, bookingID id.ID, rooms []string) ([]string, error) {
	var conflicted []string
	for _, room := range rooms {
		if f.checkedOut[room] {
			conflicted = append(conflicted, room)
		}
	}
	if len(conflicted) > 0 {
		return conflicted, nil
	}
	for _, room := range rooms {
		f.checkedOut[room] = true
	}
	return nil, nil
}

type fakeOrders struct {
	lines []billing.ChargeLine
}

func (f *fakeOrders) ChargeLines(ctx context.Context, bookingID id.ID, rooms []string) ([]billing.ChargeLine, error) {
	return f.lines, nil
}

type fakeInventory struct {
	consumables []reconcile.ConsumableLine
	assets      []reconcile.AssetLine
	rentals     []billing.ChargeLine
	location    id.ID
	applied     []reconcile.StockMovement
}

func (f *fakeInventory) ConsumableAssignments(ctx context.Context, room string) ([]reconcile.ConsumableLine, error) {
	out := make([]reconcile.ConsumableLine, len(f.consumables))
	copy(out, f.consumables)
	return out, nil
}

func (f *fakeInventory) AssetAssignments(ctx context.Context, room string) ([]reconcile.AssetLine, error) {
	out := make([]reconcile.AssetLine, len(f.assets))
	copy(out, f.assets)
	return out, nil
}

func (f *fakeInventory) RentalCharges(ctx context.Context, room string) ([]billing.ChargeLine, error) {
	return f.rentals, nil
}

func (f *fakeInventory) DefaultReturnLocation(ctx context.Context) (id.ID, error) {
	return f.location, nil
}

func (f *fakeInventory) ApplyMovements(ctx context.Context, movements []reconcile.StockMovement) error {
	f.applied = append(f.applied, movements...)
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNumerator struct {
	n int64
}

func (f *fakeNumerator) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	f.n++
	return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, f.n), nil
}

type testEnv struct {
	svc       *Service
	requests  *fakeRequestRepo
	checkouts *fakeCheckoutRepo
	bookings  *fakeBookings
	inventory *fakeInventory
}

func newTestEnv() *testEnv {
	checkIn := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	env := &testEnv{
		requests:  newFakeRequestRepo(),
		checkouts: &fakeCheckoutRepo{},
		bookings: &fakeBookings{
			stay: &stay.Stay{
				BookingID:   id.New(),
				Reference:   "BK-1042",
				CheckIn:     checkIn,
				CheckOut:    checkIn.AddDate(0, 0, 2),
				RoomNumbers: []string{"101", "102"},
				Guests:      3,
				RoomTotal:   types.MustMoney("6000"),
				Status:      stay.StatusActive,
			},
			checkedOut: map[string]bool{},
		},
		inventory: &fakeInventory{location: id.New()},
	}
	env.svc = NewService(
		env.requests,
		env.checkouts,
		env.bookings,
		&fakeOrders{},
		env.inventory,
		billing.DefaultPolicy(),
		&fakeNumerator{},
		fakeTxManager{},
	)
	return env
}

// --- Tests ---

func TestCreateRequest(t *testing.T) {
	env := newTestEnv()

	req, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)
	assert.Equal(t, "CRQ-2026-00001", req.Number)
	assert.Equal(t, StatusPending, req.Status)
}

func TestCreateRequest_DuplicateActiveRejected(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	_, err = env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRequestActive, appErr.Code)
}

func TestCreateRequest_InvalidMode(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.CreateRequest(context.Background(), "101", Mode("bulk"))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestSubmitInventoryCheck(t *testing.T) {
	env := newTestEnv()
	water := id.New()
	towel := id.New()
	env.inventory.consumables = []reconcile.ConsumableLine{
		{ItemID: water, Name: "Mineral water", AssignedQty: 10, ComplimentaryLimit: 2, ChargePerUnit: types.MustMoney("60")},
		{ItemID: towel, Name: "Towel", AssignedQty: 4, ChargePerUnit: types.MustMoney("250")},
	}

	req, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	result, err := env.svc.SubmitInventoryCheck(context.Background(), req.ID, InventoryCheckInput{
		Items:     []ItemCount{{ItemID: water, ReturnedQty: 7}},
		CheckedBy: "anita",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Request.Status)
	assert.Equal(t, "anita", result.Request.InventoryCheckedBy)

	// water: used 3, 2 complimentary, 1 billable; towel omitted = full return
	require.Len(t, result.Charges, 1)
	assert.True(t, result.Charges[0].Amount.Equal(types.MustMoney("60")))

	// movements: 7 water + 4 towels back to the store
	require.Len(t, env.inventory.applied, 2)
	assert.Equal(t, types.Quantity(7), env.inventory.applied[0].Quantity)
	assert.Equal(t, types.Quantity(4), env.inventory.applied[1].Quantity)
}

func TestSubmitInventoryCheck_OverReturnLeavesNoState(t *testing.T) {
	env := newTestEnv()
	water := id.New()
	env.inventory.consumables = []reconcile.ConsumableLine{
		{ItemID: water, Name: "Mineral water", AssignedQty: 10, ChargePerUnit: types.MustMoney("60")},
	}

	req, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	_, err = env.svc.SubmitInventoryCheck(context.Background(), req.ID, InventoryCheckInput{
		Items:     []ItemCount{{ItemID: water, ReturnedQty: 12}},
		CheckedBy: "anita",
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOverReturn, appErr.Code)

	stored, err := env.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Empty(t, env.inventory.applied)
	assert.Empty(t, env.requests.charges[req.ID])
}

func TestSubmitInventoryCheck_AlreadyVerified(t *testing.T) {
	env := newTestEnv()

	req, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	_, err = env.svc.SubmitInventoryCheck(context.Background(), req.ID, InventoryCheckInput{CheckedBy: "anita"})
	require.NoError(t, err)

	_, err = env.svc.SubmitInventoryCheck(context.Background(), req.ID, InventoryCheckInput{CheckedBy: "ravi"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadyVerified, appErr.Code)
}

func TestGetBill_GatedOnVerification(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	_, err = env.svc.GetBill(context.Background(), "101", ModeSingle)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInventoryNotVerified, appErr.Code)
}

func TestGetBill_NoRequestAllowed(t *testing.T) {
	env := newTestEnv()

	// single mode bills this room's share of the two-room total
	bill, err := env.svc.GetBill(context.Background(), "101", ModeSingle)
	require.NoError(t, err)
	assert.True(t, bill.Subtotal.Equal(types.MustMoney("3000")), "subtotal %s", bill.Subtotal)
}

func TestGetBill_MultipleModeBillsWholeBooking(t *testing.T) {
	env := newTestEnv()

	bill, err := env.svc.GetBill(context.Background(), "101", ModeMultiple)
	require.NoError(t, err)
	assert.True(t, bill.Subtotal.Equal(types.MustMoney("6000")), "subtotal %s", bill.Subtotal)
}

func TestGetBill_IgnoresPreviousGuestCharges(t *testing.T) {
	env := newTestEnv()

	// completed request left over from an earlier booking on the same room
	old := NewRequest(id.New(), "101", ModeSingle)
	require.NoError(t, old.CompleteInventoryCheck("anita", time.Now()))
	require.NoError(t, env.requests.Create(context.Background(), old))
	env.requests.charges[old.ID] = []billing.ChargeLine{{
		Category:    billing.CategoryConsumable,
		Description: "Mineral water (10 consumed, 0 complimentary)",
		Amount:      types.MustMoney("600"),
		Taxable:     true,
	}}

	bill, err := env.svc.GetBill(context.Background(), "101", ModeSingle)
	require.NoError(t, err)
	assert.True(t, bill.Subtotal.Equal(types.MustMoney("3000")), "subtotal %s", bill.Subtotal)
}

func TestGetBill_IncludesVerifiedCharges(t *testing.T) {
	env := newTestEnv()
	water := id.New()
	env.inventory.consumables = []reconcile.ConsumableLine{
		{ItemID: water, Name: "Mineral water", AssignedQty: 10, ChargePerUnit: types.MustMoney("60")},
	}

	req, err := env.svc.CreateRequest(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	_, err = env.svc.SubmitInventoryCheck(context.Background(), req.ID, InventoryCheckInput{
		Items:     []ItemCount{{ItemID: water, ReturnedQty: 6}},
		CheckedBy: "anita",
	})
	require.NoError(t, err)

	bill, err := env.svc.GetBill(context.Background(), "101", ModeSingle)
	require.NoError(t, err)

	// 3000 room share + 240 consumables (4 * 60)
	assert.True(t, bill.Subtotal.Equal(types.MustMoney("3240")), "subtotal %s", bill.Subtotal)
}

func TestGetBill_MultipleModeGatesEveryRoom(t *testing.T) {
	env := newTestEnv()

	// active request on the second room of the booking
	_, err := env.svc.CreateRequest(context.Background(), "102", ModeSingle)
	require.NoError(t, err)

	_, err = env.svc.GetBill(context.Background(), "101", ModeMultiple)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestFinalize(t *testing.T) {
	env := newTestEnv()

	record, err := env.svc.Finalize(context.Background(), FinalizeInput{
		RoomNumber:    "101",
		Mode:          ModeMultiple,
		PaymentMethod: "card",
		Discount:      types.MustMoney("100"),
	})
	require.NoError(t, err)

	assert.Equal(t, "CHK-2026-00001", record.Number)
	assert.Equal(t, []string{"101", "102"}, record.RoomNumbers)
	assert.True(t, env.bookings.checkedOut["101"])
	assert.True(t, env.bookings.checkedOut["102"])
	assert.True(t, record.Discount.Equal(types.MustMoney("100")))

	// 6000 + 720 tax - 100
	assert.True(t, record.GrandTotal.Equal(types.MustMoney("6620")), "grand %s", record.GrandTotal)
}

func TestFinalize_SingleModeBillsRoomShare(t *testing.T) {
	env := newTestEnv()

	// each room of the two-room booking checks out on its own; together
	// they pay the room total exactly once
	first, err := env.svc.Finalize(context.Background(), FinalizeInput{
		RoomNumber:    "101",
		Mode:          ModeSingle,
		PaymentMethod: "card",
		Discount:      types.Zero(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, first.RoomNumbers)
	// 3000 share + 5% tax
	assert.True(t, first.GrandTotal.Equal(types.MustMoney("3150")), "grand %s", first.GrandTotal)

	second, err := env.svc.Finalize(context.Background(), FinalizeInput{
		RoomNumber:    "102",
		Mode:          ModeSingle,
		PaymentMethod: "card",
		Discount:      types.Zero(),
	})
	require.NoError(t, err)
	assert.True(t, second.GrandTotal.Equal(types.MustMoney("3150")), "grand %s", second.GrandTotal)

	assert.True(t, env.bookings.checkedOut["101"])
	assert.True(t, env.bookings.checkedOut["102"])
}

func TestFinalize_DoubleSubmissionConflicts(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Finalize(context.Background(), FinalizeInput{
		RoomNumber:    "101",
		Mode:          ModeSingle,
		PaymentMethod: "cash",
		Discount:      types.Zero(),
	})
	require.NoError(t, err)

	_, err = env.svc.Finalize(context.Background(), FinalizeInput{
		RoomNumber:    "101",
		Mode:          ModeSingle,
		PaymentMethod: "cash",
		Discount:      types.Zero(),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRoomCheckedOut, appErr.Code)
	assert.Equal(t, []string{"101"}, appErr.Details["rooms"])
	assert.Len(t, env.checkouts.checkouts, 1)
}

func TestFinalize_ExcessiveDiscountRejected(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Finalize(context.Background(), FinalizeInput{
		RoomNumber:    "101",
		Mode:          ModeSingle,
		PaymentMethod: "cash",
		Discount:      types.MustMoney("999999"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, env.checkouts.checkouts)
	assert.False(t, env.bookings.checkedOut["101"])
}
