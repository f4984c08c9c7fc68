package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/checkout"
)

const (
	requestsTable       = "checkout_requests"
	requestChargesTable = "checkout_request_charges"
	checkoutsTable      = "checkouts"
)

// RequestRepo implements checkout.RequestRepository.
//
// The "one active request per room" rule is a partial unique index:
//
//	CREATE UNIQUE INDEX uq_checkout_requests_active_room
//	ON checkout_requests (room_number)
//	WHERE status IN ('pending', 'in_progress');
type RequestRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

var _ checkout.RequestRepository = (*RequestRepo)(nil)

func NewRequestRepo(txManager *TxManager) *RequestRepo {
	return &RequestRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var requestColumns = []string{
	"id", "version", "number", "booking_id", "room_number", "mode", "status",
	"assigned_employee", "inventory_checked_by", "inventory_checked_at",
	"notes", "created_at", "updated_at", "created_by", "updated_by",
}

func (r *RequestRepo) Create(ctx context.Context, req *checkout.Request) error {
	q := r.builder.Insert(requestsTable).
		Columns(requestColumns...).
		Values(
			req.ID, req.Version, req.Number, req.BookingID, req.RoomNumber, req.Mode, req.Status,
			req.AssignedEmployee, req.InventoryCheckedBy, req.InventoryCheckedAt,
			req.Notes, req.CreatedAt, req.UpdatedAt, req.CreatedBy, req.UpdatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewStateConflict(apperror.CodeRequestActive,
				"an active checkout request already exists for this room").
				WithDetail("room", req.RoomNumber)
		}
		return fmt.Errorf("insert checkout request: %w", err)
	}
	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, requestID id.ID) (*checkout.Request, error) {
	q := r.builder.Select(requestColumns...).
		From(requestsTable).
		Where(squirrel.Eq{"id": requestID})

	return r.getOne(ctx, q, requestID)
}

func (r *RequestRepo) GetActiveByRoom(ctx context.Context, roomNumber string) (*checkout.Request, error) {
	q := r.builder.Select(requestColumns...).
		From(requestsTable).
		Where(squirrel.Eq{"room_number": roomNumber}).
		Where(squirrel.Eq{"status": []checkout.Status{checkout.StatusPending, checkout.StatusInProgress}})

	return r.getOne(ctx, q, roomNumber)
}

func (r *RequestRepo) GetLatestByRoom(ctx context.Context, roomNumber string) (*checkout.Request, error) {
	q := r.builder.Select(requestColumns...).
		From(requestsTable).
		Where(squirrel.Eq{"room_number": roomNumber}).
		OrderBy("created_at DESC").
		Limit(1)

	return r.getOne(ctx, q, roomNumber)
}

func (r *RequestRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, ref any) (*checkout.Request, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req checkout.Request
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &req, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("checkout request", ref)
		}
		return nil, fmt.Errorf("select checkout request: %w", err)
	}
	return &req, nil
}

// Update saves the request, guarding on the previous version.
func (r *RequestRepo) Update(ctx context.Context, req *checkout.Request) error {
	q := r.builder.Update(requestsTable).
		Set("version", req.Version).
		Set("status", req.Status).
		Set("assigned_employee", req.AssignedEmployee).
		Set("inventory_checked_by", req.InventoryCheckedBy).
		Set("inventory_checked_at", req.InventoryCheckedAt).
		Set("notes", req.Notes).
		Set("updated_at", req.UpdatedAt).
		Set("updated_by", req.UpdatedBy).
		Where(squirrel.Eq{"id": req.ID}).
		Where(squirrel.Eq{"version": req.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update checkout request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("checkout request", req.ID)
	}
	return nil
}

func (r *RequestRepo) List(ctx context.Context, status checkout.Status, limit, offset int) ([]checkout.Request, error) {
	q := r.builder.Select(requestColumns...).
		From(requestsTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if status != "" {
		q = q.Where(squirrel.Eq{"status": status})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var requests []checkout.Request
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &requests, sql, args...); err != nil {
		return nil, fmt.Errorf("select checkout requests: %w", err)
	}
	return requests, nil
}

// SaveChargeLines replaces the verified charges for a request.
func (r *RequestRepo) SaveChargeLines(ctx context.Context, requestID id.ID, lines []billing.ChargeLine) error {
	del := r.builder.Delete(requestChargesTable).
		Where(squirrel.Eq{"request_id": requestID})

	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete charge lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	ins := r.builder.Insert(requestChargesTable).Columns(
		"id", "request_id", "position", "category", "description",
		"amount", "quantity", "unit_ref", "taxable", "already_paid",
	)
	for i, line := range lines {
		ins = ins.Values(
			id.New(), requestID, i, line.Category, line.Description,
			line.Amount, line.Quantity, line.UnitRef, line.Taxable, line.AlreadyPaid,
		)
	}

	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert charge lines: %w", err)
	}
	return nil
}

func (r *RequestRepo) GetChargeLines(ctx context.Context, requestID id.ID) ([]billing.ChargeLine, error) {
	q := r.builder.Select(
		"category", "description", "amount", "quantity",
		"unit_ref", "taxable", "already_paid",
	).From(requestChargesTable).
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("position")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []billing.ChargeLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select charge lines: %w", err)
	}
	return lines, nil
}

// CheckoutRepo implements checkout.CheckoutRepository. The bill is stored as
// a JSONB snapshot so the invoice survives any later policy change.
type CheckoutRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

var _ checkout.CheckoutRepository = (*CheckoutRepo)(nil)

func NewCheckoutRepo(txManager *TxManager) *CheckoutRepo {
	return &CheckoutRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CheckoutRepo) Create(ctx context.Context, c *checkout.Checkout) error {
	billJSON, err := json.Marshal(c.Bill)
	if err != nil {
		return fmt.Errorf("marshal bill: %w", err)
	}

	q := r.builder.Insert(checkoutsTable).
		Columns(
			"id", "version", "number", "booking_id", "room_numbers", "mode",
			"bill", "payment_method", "discount", "grand_total",
			"created_at", "updated_at", "created_by", "updated_by",
		).
		Values(
			c.ID, c.Version, c.Number, c.BookingID, c.RoomNumbers, c.Mode,
			billJSON, c.PaymentMethod, c.Discount, c.GrandTotal,
			c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert checkout: %w", err)
	}
	return nil
}

func (r *CheckoutRepo) GetByID(ctx context.Context, checkoutID id.ID) (*checkout.Checkout, error) {
	q := r.builder.Select(
		"id", "version", "number", "booking_id", "room_numbers", "mode",
		"bill", "payment_method", "discount", "grand_total",
		"created_at", "updated_at", "created_by", "updated_by",
	).From(checkoutsTable).
		Where(squirrel.Eq{"id": checkoutID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row struct {
		checkout.Checkout
		BillRaw []byte `db:"bill"`
	}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("checkout", checkoutID)
		}
		return nil, fmt.Errorf("select checkout: %w", err)
	}

	c := row.Checkout
	if err := json.Unmarshal(row.BillRaw, &c.Bill); err != nil {
		return nil, fmt.Errorf("unmarshal bill: %w", err)
	}
	return &c, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
