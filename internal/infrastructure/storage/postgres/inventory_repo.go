package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/checkout"
	"stayledger/internal/domain/reconcile"
)

const (
	consumableAssignmentsTable = "room_consumable_assignments"
	assetAssignmentsTable      = "room_asset_assignments"
	stockLocationsTable        = "stock_locations"
	stockMovementsTable        = "stock_movements"
	stockBalancesTable         = "stock_balances"
)

// InventoryRepo implements checkout.InventoryProvider. Assignments are read
// per room; returned stock is written as movement rows plus a balance upsert
// on the destination location.
type InventoryRepo struct {
	txManager       *TxManager
	builder         squirrel.StatementBuilderType
	defaultLocation string
}

var _ checkout.InventoryProvider = (*InventoryRepo)(nil)

// NewInventoryRepo creates the repository. defaultLocation is the
// stock_locations code used when a return has no explicit destination.
func NewInventoryRepo(txManager *TxManager, defaultLocation string) *InventoryRepo {
	return &InventoryRepo{
		txManager:       txManager,
		builder:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		defaultLocation: defaultLocation,
	}
}

func (r *InventoryRepo) ConsumableAssignments(ctx context.Context, roomNumber string) ([]reconcile.ConsumableLine, error) {
	q := r.builder.Select(
		"item_id", "name", "assigned_qty", "complimentary_limit",
		"charge_per_unit", "return_location_id",
	).From(consumableAssignmentsTable).
		Where(squirrel.Eq{"room_number": roomNumber}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []reconcile.ConsumableLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select consumable assignments: %w", err)
	}
	return lines, nil
}

func (r *InventoryRepo) AssetAssignments(ctx context.Context, roomNumber string) ([]reconcile.AssetLine, error) {
	q := r.builder.Select(
		"asset_id", "name", "replacement_cost", "assigned_qty",
	).From(assetAssignmentsTable).
		Where(squirrel.Eq{"room_number": roomNumber}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []reconcile.AssetLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select asset assignments: %w", err)
	}
	return lines, nil
}

// RentalCharges returns inventory-usage lines for assigned items carrying a
// rental price.
func (r *InventoryRepo) RentalCharges(ctx context.Context, roomNumber string) ([]billing.ChargeLine, error) {
	q := r.builder.Select(
		"asset_id AS unit_ref",
		"name || ' (rental)' AS description",
		"rental_price AS amount",
		"assigned_qty AS quantity",
	).From(assetAssignmentsTable).
		Where(squirrel.Eq{"room_number": roomNumber}).
		Where(squirrel.Gt{"rental_price": 0}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []billing.ChargeLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select rental charges: %w", err)
	}

	for i := range lines {
		lines[i].Category = billing.CategoryInventoryUsage
	}
	return lines, nil
}

func (r *InventoryRepo) DefaultReturnLocation(ctx context.Context) (id.ID, error) {
	q := r.builder.Select("id").
		From(stockLocationsTable).
		Where(squirrel.Eq{"code": r.defaultLocation})

	sql, args, err := q.ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build query: %w", err)
	}

	var locationID id.ID
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &locationID, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return id.Nil(), apperror.NewNotFound("stock location", r.defaultLocation)
		}
		return id.Nil(), fmt.Errorf("select default location: %w", err)
	}
	return locationID, nil
}

// ApplyMovements records return movements and bumps the destination
// balances. Call inside the reconciliation transaction.
func (r *InventoryRepo) ApplyMovements(ctx context.Context, movements []reconcile.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	querier := r.txManager.GetQuerier(ctx)
	now := time.Now().UTC()

	ins := r.builder.Insert(stockMovementsTable).
		Columns("id", "item_id", "location_id", "quantity", "record_type", "created_at")
	for _, m := range movements {
		ins = ins.Values(id.New(), m.ItemID, m.LocationID, m.Quantity, "receipt", now)
	}

	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock movements: %w", err)
	}

	for _, m := range movements {
		_, err := querier.Exec(ctx, `
			INSERT INTO stock_balances (item_id, location_id, quantity, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (item_id, location_id)
			DO UPDATE SET quantity = stock_balances.quantity + EXCLUDED.quantity,
			              updated_at = EXCLUDED.updated_at
		`, m.ItemID, m.LocationID, m.Quantity, now)
		if err != nil {
			return fmt.Errorf("upsert stock balance: %w", err)
		}
	}
	return nil
}
