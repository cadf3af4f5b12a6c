package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	CreateOrder(ctx context.Context, order *Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, newStatus Status) error
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

// CreateOrder writes the order row with zero totals, then its lines, then the
// running totals, all in one transaction.
func (r *postgresRepository) CreateOrder(ctx context.Context, orderInput *Order) (orderID int64, err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Msg("Panic recovered during CreateOrder, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Msg("Transaction for CreateOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Int64("order_id", orderID).Msg("Failed to commit transaction")
				orderID = 0
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	queryOrder := `
		INSERT INTO orders (customer_name, customer_phone, delivery_address, status, total, estimated_profit)
		VALUES ($1, $2, $3, $4, 0, 0)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, queryOrder,
		orderInput.CustomerName,
		orderInput.CustomerPhone,
		orderInput.DeliveryAddress,
		string(StatusReceived),
	).Scan(&orderInput.ID, &orderInput.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to insert order: %w", err)
	}
	orderInput.Status = StatusReceived

	queryLine := `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, unit_cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	total, profit := decimal.Zero, decimal.Zero
	for i := range orderInput.Lines {
		line := &orderInput.Lines[i]
		line.OrderID = orderInput.ID

		err = tx.QueryRow(ctx, queryLine,
			line.OrderID,
			line.ProductID,
			line.Quantity,
			line.UnitPrice.Round(2),
			line.UnitCost.Round(2),
		).Scan(&line.ID)
		if err != nil {
			return 0, fmt.Errorf("repository: failed to insert line for product %d of order %d: %w", line.ProductID, orderInput.ID, err)
		}

		total = total.Add(line.Subtotal())
		profit = profit.Add(line.Profit())
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET total = $1, estimated_profit = $2 WHERE id = $3`,
		total.Round(2), profit.Round(2), orderInput.ID)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to write totals of order %d: %w", orderInput.ID, err)
	}
	orderInput.Total = total
	orderInput.EstimatedProfit = profit

	return orderInput.ID, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID int64) (*Order, error) {
	queryOrder := `
		SELECT id, customer_name, customer_phone, delivery_address, status, total, estimated_profit, created_at
		FROM orders
		WHERE id = $1
	`

	var order Order
	err := r.db.QueryRow(ctx, queryOrder, orderID).Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.DeliveryAddress,
		&order.Status,
		&order.Total,
		&order.EstimatedProfit,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %d: %w", orderID, err)
	}

	queryLines := `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price, l.unit_cost
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id
	`
	rows, err := r.db.Query(ctx, queryLines, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query lines for order id %d: %w", orderID, err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var line Line
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.Quantity,
			&line.UnitPrice,
			&line.UnitCost,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan line for order id %d: %w", orderID, err)
		}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating lines for order id %d: %w", orderID, err)
	}

	order.Lines = lines
	return &order, nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus Status) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, string(newStatus), orderID)
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Stringer("new_status", newStatus).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %d: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().Int64("order_id", orderID).Stringer("new_status", newStatus).Msg("repository: order not found for status update")
		return ErrOrderNotFound
	}

	return nil
}
