package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stayledger/internal/core/apperror"
	appctx "stayledger/internal/core/context"
	"stayledger/internal/core/entity"
	"stayledger/internal/core/id"
	"stayledger/internal/core/tx"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/reconcile"
	"stayledger/internal/domain/stay"
	"stayledger/pkg/logger"
	"stayledger/pkg/numerator"
)

// Service runs the checkout workflow end to end: request creation,
// inventory verification, bill aggregation and finalization.
type Service struct {
	requests  RequestRepository
	checkouts CheckoutRepository
	bookings  BookingProvider
	orders    OrderSource
	inventory InventoryProvider
	policy    billing.Policy
	numerator numerator.Generator
	txManager tx.Manager
}

func NewService(
	requests RequestRepository,
	checkouts CheckoutRepository,
	bookings BookingProvider,
	orders OrderSource,
	inventory InventoryProvider,
	policy billing.Policy,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		requests:  requests,
		checkouts: checkouts,
		bookings:  bookings,
		orders:    orders,
		inventory: inventory,
		policy:    policy,
		numerator: gen,
		txManager: txManager,
	}
}

// CreateRequest opens a pending checkout request for a room. Fails with a
// conflict if the room already has an active request.
func (s *Service) CreateRequest(ctx context.Context, roomNumber string, mode Mode) (*Request, error) {
	if roomNumber == "" {
		return nil, apperror.NewValidation("room number is required")
	}
	if !mode.Valid() {
		return nil, apperror.NewValidation("checkout mode must be single or multiple")
	}

	st, err := s.bookings.ActiveStayByRoom(ctx, roomNumber)
	if err != nil {
		return nil, err
	}
	if st.IsCheckedOut() {
		return nil, apperror.NewStateConflict(apperror.CodeRoomCheckedOut,
			"room is already checked out")
	}

	req := NewRequest(st.BookingID, roomNumber, mode)
	req.CreatedBy = appctx.GetOperator(ctx)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CRQ"), time.Now())
		if err != nil {
			return err
		}
		req.Number = number

		return s.requests.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout request created",
		"number", req.Number,
		"room", roomNumber,
		"mode", mode)
	return req, nil
}

// GetRequestByRoom returns the room's most recent checkout request.
func (s *Service) GetRequestByRoom(ctx context.Context, roomNumber string) (*Request, error) {
	if roomNumber == "" {
		return nil, apperror.NewValidation("room number is required")
	}
	return s.requests.GetLatestByRoom(ctx, roomNumber)
}

// ListRequests returns requests filtered by status.
func (s *Service) ListRequests(ctx context.Context, status Status, limit, offset int) ([]Request, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.requests.List(ctx, status, limit, offset)
}

// AssignEmployee moves a pending request to in_progress.
func (s *Service) AssignEmployee(ctx context.Context, requestID id.ID, employee string) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := req.Assign(employee); err != nil {
		return nil, err
	}
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ItemCount is the operator-entered returned count for one consumable.
type ItemCount struct {
	ItemID           id.ID
	ReturnedQty      types.Quantity
	ReturnLocationID *id.ID
}

// AssetCondition is the operator-entered condition of one assigned asset.
type AssetCondition struct {
	AssetID     id.ID
	ReturnedQty types.Quantity
	Damaged     bool
	DamageNotes string
}

// InventoryCheckInput is one reconciliation submission.
type InventoryCheckInput struct {
	Items     []ItemCount
	Assets    []AssetCondition
	Notes     string
	CheckedBy string
}

// InventoryCheckResult is the completed request plus its computed charges.
type InventoryCheckResult struct {
	Request *Request
	Charges []billing.ChargeLine
}

// SubmitInventoryCheck reconciles the room's assigned inventory against the
// operator's counts, persists the resulting charges and stock movements, and
// completes the request. Rejected atomically on any invalid line.
//
// Items and assets omitted from the submission count as fully returned in
// good condition.
func (s *Service) SubmitInventoryCheck(ctx context.Context, requestID id.ID, input InventoryCheckInput) (*InventoryCheckResult, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == StatusCompleted {
		return nil, apperror.NewStateConflict(apperror.CodeAlreadyVerified,
			"inventory is already verified for this request")
	}

	consumables, err := s.inventory.ConsumableAssignments(ctx, req.RoomNumber)
	if err != nil {
		return nil, err
	}
	assets, err := s.inventory.AssetAssignments(ctx, req.RoomNumber)
	if err != nil {
		return nil, err
	}
	defaultLocation, err := s.inventory.DefaultReturnLocation(ctx)
	if err != nil {
		return nil, err
	}

	mergeCounts(consumables, input.Items)
	mergeConditions(assets, input.Assets)

	result, err := reconcile.Reconcile(consumables, assets, defaultLocation)
	if err != nil {
		return nil, err
	}

	checkedBy := input.CheckedBy
	if checkedBy == "" {
		checkedBy = appctx.GetOperator(ctx)
	}
	if err := req.CompleteInventoryCheck(checkedBy, time.Now()); err != nil {
		return nil, err
	}
	req.Notes = input.Notes
	req.UpdatedBy = checkedBy

	charges := result.Charges()
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveChargeLines(ctx, req.ID, charges); err != nil {
			return err
		}
		if err := s.inventory.ApplyMovements(ctx, result.Movements); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory check completed",
		"number", req.Number,
		"room", req.RoomNumber,
		"charges", len(charges),
		"movements", len(result.Movements))
	return &InventoryCheckResult{Request: req, Charges: charges}, nil
}

// mergeCounts overlays operator counts onto the assigned consumable lines.
// A line without an operator count defaults to a full return.
func mergeCounts(assigned []reconcile.ConsumableLine, counts []ItemCount) {
	byItem := make(map[id.ID]ItemCount, len(counts))
	for _, c := range counts {
		byItem[c.ItemID] = c
	}
	for i := range assigned {
		if c, ok := byItem[assigned[i].ItemID]; ok {
			assigned[i].ReturnedQty = c.ReturnedQty
			if c.ReturnLocationID != nil {
				assigned[i].ReturnLocationID = c.ReturnLocationID
			}
		} else {
			assigned[i].ReturnedQty = assigned[i].AssignedQty
		}
	}
}

// mergeConditions overlays operator asset conditions onto the assigned
// asset lines. An omitted asset counts as returned undamaged.
func mergeConditions(assigned []reconcile.AssetLine, conditions []AssetCondition) {
	byAsset := make(map[id.ID]AssetCondition, len(conditions))
	for _, c := range conditions {
		byAsset[c.AssetID] = c
	}
	for i := range assigned {
		if c, ok := byAsset[assigned[i].AssetID]; ok {
			assigned[i].ReturnedQty = c.ReturnedQty
			assigned[i].Damaged = c.Damaged
			assigned[i].DamageNotes = c.DamageNotes
		} else {
			assigned[i].ReturnedQty = assigned[i].AssignedQty
		}
	}
}

// GetBill aggregates the current bill for a room without applying a
// discount. Fails while any room in scope has an unverified request.
func (s *Service) GetBill(ctx context.Context, roomNumber string, mode Mode) (*billing.Bill, error) {
	if roomNumber == "" {
		return nil, apperror.NewValidation("room number is required")
	}
	if !mode.Valid() {
		return nil, apperror.NewValidation("checkout mode must be single or multiple")
	}

	st, err := s.bookings.ActiveStayByRoom(ctx, roomNumber)
	if err != nil {
		return nil, err
	}

	return s.buildBill(ctx, st, roomNumber, mode, types.Zero())
}

// scopeRooms resolves which rooms a request covers.
func scopeRooms(st *stay.Stay, roomNumber string, mode Mode) []string {
	if mode == ModeMultiple {
		return st.RoomNumbers
	}
	return []string{roomNumber}
}

// requireVerified fails if any room in scope has an active (unverified)
// checkout request belonging to this booking.
func (s *Service) requireVerified(ctx context.Context, st *stay.Stay, rooms []string) error {
	for _, room := range rooms {
		req, err := s.requests.GetActiveByRoom(ctx, room)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return err
		}
		if req.BookingID != st.BookingID {
			continue
		}
		return apperror.NewStateConflict(apperror.CodeInventoryNotVerified,
			"complete inventory verification before billing").
			WithDetail("room", room).
			WithDetail("request", req.Number)
	}
	return nil
}

// verifiedCharges collects the persisted reconciliation charges for every
// room in scope with a completed request for this booking. Requests left
// over from an earlier stay on the same room are ignored.
func (s *Service) verifiedCharges(ctx context.Context, st *stay.Stay, rooms []string) ([]billing.ChargeLine, error) {
	var out []billing.ChargeLine
	for _, room := range rooms {
		req, err := s.requests.GetLatestByRoom(ctx, room)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if req.BookingID != st.BookingID || req.Status != StatusCompleted {
			continue
		}
		lines, err := s.requests.GetChargeLines(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

func (s *Service) buildBill(ctx context.Context, st *stay.Stay, roomNumber string, mode Mode, discount types.Money) (*billing.Bill, error) {
	rooms := scopeRooms(st, roomNumber, mode)
	if err := s.requireVerified(ctx, st, rooms); err != nil {
		return nil, err
	}

	var lines []billing.ChargeLine

	roomCharge := roomShare(st.RoomTotal, len(rooms), len(st.RoomNumbers))
	if roomCharge.IsPositive() {
		lines = append(lines, billing.ChargeLine{
			Category:    billing.CategoryRoom,
			Description: roomDescription(st, rooms),
			Amount:      roomCharge,
			Taxable:     true,
		})
	}
	packageCharge := roomShare(st.PackageTotal, len(rooms), len(st.RoomNumbers))
	if packageCharge.IsPositive() {
		lines = append(lines, billing.ChargeLine{
			Category:    billing.CategoryPackage,
			Description: "Package inclusions",
			Amount:      packageCharge,
			Taxable:     true,
		})
	}

	orderLines, err := s.orders.ChargeLines(ctx, st.BookingID, rooms)
	if err != nil {
		return nil, err
	}
	lines = append(lines, orderLines...)

	for _, room := range rooms {
		rentals, err := s.inventory.RentalCharges(ctx, room)
		if err != nil {
			return nil, err
		}
		lines = append(lines, rentals...)
	}

	verified, err := s.verifiedCharges(ctx, st, rooms)
	if err != nil {
		return nil, err
	}
	lines = append(lines, verified...)

	return billing.BuildBill(st, lines, discount, s.policy)
}

// roomShare prorates a booking-level charge to the rooms being checked out.
// A single-room checkout of a multi-room booking bills only that room's
// share; the remaining rooms are billed when they check out.
func roomShare(total types.Money, scoped, totalRooms int) types.Money {
	if totalRooms == 0 || scoped >= totalRooms {
		return total
	}
	perRoom := total.Div(types.NewMoneyFromInt(int64(totalRooms)))
	return types.RoundMoney(perRoom.Mul(types.NewMoneyFromInt(int64(scoped))))
}

func roomDescription(st *stay.Stay, rooms []string) string {
	nights := "nights"
	if st.Nights() == 1 {
		nights = "night"
	}
	return fmt.Sprintf("Room %s (%d %s)", strings.Join(rooms, ", "), st.Nights(), nights)
}

// FinalizeInput is the accepted shape for finalizing a checkout.
type FinalizeInput struct {
	RoomNumber    string
	Mode          Mode
	PaymentMethod string
	Discount      types.Money
}

// Finalize freezes the bill into an immutable checkout record and flips the
// booking to checked-out, atomically. A stay already checked out, in whole
// or in part, fails with a conflict naming the rooms; nothing partial is
// ever written.
func (s *Service) Finalize(ctx context.Context, input FinalizeInput) (*Checkout, error) {
	if input.RoomNumber == "" {
		return nil, apperror.NewValidation("room number is required")
	}
	if !input.Mode.Valid() {
		return nil, apperror.NewValidation("checkout mode must be single or multiple")
	}
	if input.PaymentMethod == "" {
		return nil, apperror.NewValidation("payment method is required")
	}

	st, err := s.bookings.ActiveStayByRoom(ctx, input.RoomNumber)
	if err != nil {
		return nil, err
	}
	if st.IsCheckedOut() {
		return nil, apperror.NewStateConflict(apperror.CodeRoomCheckedOut,
			"stay is already checked out")
	}

	bill, err := s.buildBill(ctx, st, input.RoomNumber, input.Mode, input.Discount)
	if err != nil {
		return nil, err
	}

	rooms := scopeRooms(st, input.RoomNumber, input.Mode)
	record := &Checkout{
		BaseDocument:  entity.NewBaseDocument(),
		BookingID:     st.BookingID,
		RoomNumbers:   rooms,
		Mode:          input.Mode,
		Bill:          *bill,
		PaymentMethod: input.PaymentMethod,
		Discount:      bill.Discount,
		GrandTotal:    bill.GrandTotal,
	}
	record.CreatedBy = appctx.GetOperator(ctx)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Room status is the lock: the guarded update wins exactly once
		// under concurrent finalize attempts.
		conflicted, err := s.bookings.MarkCheckedOut(ctx, st.BookingID, rooms)
		if err != nil {
			return err
		}
		if len(conflicted) > 0 {
			return apperror.NewStateConflict(apperror.CodeRoomCheckedOut,
				"some rooms are already checked out").
				WithDetail("rooms", conflicted)
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CHK"), time.Now())
		if err != nil {
			return err
		}
		record.Number = number

		return s.checkouts.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout finalized",
		"number", record.Number,
		"booking", st.Reference,
		"rooms", rooms,
		"grandTotal", record.GrandTotal)
	return record, nil
}

// GetCheckout returns a finalized checkout record.
func (s *Service) GetCheckout(ctx context.Context, checkoutID id.ID) (*Checkout, error) {
	if id.IsNil(checkoutID) {
		return nil, apperror.NewValidation("checkout id is required")
	}
	return s.checkouts.GetByID(ctx, checkoutID)
}
