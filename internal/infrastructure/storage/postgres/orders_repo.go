package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stayledger/internal/core/id"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/checkout"
)

const stayOrdersTable = "stay_orders"

// OrderRepo implements checkout.OrderSource on the stay_orders table, which
// holds food and service orders posted against a booking. Paid orders stay
// on the bill for display but carry the already_paid flag.
type OrderRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

var _ checkout.OrderSource = (*OrderRepo)(nil)

func NewOrderRepo(txManager *TxManager) *OrderRepo {
	return &OrderRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *OrderRepo) ChargeLines(ctx context.Context, bookingID id.ID, rooms []string) ([]billing.ChargeLine, error) {
	q := r.builder.Select(
		"category", "description", "amount", "quantity",
		"paid AS already_paid",
	).From(stayOrdersTable).
		Where(squirrel.Eq{"booking_id": bookingID}).
		Where(squirrel.Eq{"room_number": rooms}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []billing.ChargeLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	// The tax policy decides the rate per category; orders are always
	// offered to it.
	for i := range lines {
		lines[i].Taxable = true
	}
	return lines, nil
}
