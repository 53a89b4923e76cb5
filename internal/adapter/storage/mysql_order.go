package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/port"
)

const (
	orderColumns = `id, version, customer_ref, payment_amount, status, created_date, update_date`
	lineColumns  = `id, version, beer_order_id, beer_id, order_quantity, quantity_allocated, status, created_date, update_date`
)

func scanOrder(row rowScanner) (domain.BeerOrder, error) {
	var o domain.BeerOrder
	err := row.Scan(&o.ID, &o.Version, &o.CustomerRef, &o.PaymentAmount, &o.Status,
		&o.CreatedDate, &o.UpdateDate)
	return o, err
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.BeerOrder) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := m.nowFunc()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO beer_orders (version, customer_ref, payment_amount, status, created_date, update_date)
		VALUES (0, ?, ?, ?, ?, ?)`,
		order.CustomerRef, order.PaymentAmount, order.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}

	lines := make([]domain.BeerOrderLine, len(order.Lines))
	copy(lines, order.Lines)
	for i := range lines {
		if err := insertLine(ctx, tx, orderID, &lines[i], now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	order.ID = orderID
	order.Version = 0
	order.CreatedDate = now
	order.UpdateDate = now
	order.Lines = lines
	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id int64) (*domain.BeerOrder, error) {
	o, err := scanOrder(m.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM beer_orders WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	lines, err := loadLines(ctx, m.db, []int64{id})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[id]
	return &o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, page, size int) ([]domain.BeerOrder, int64, error) {
	var total int64
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM beer_orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if page > math.MaxInt/size {
		return []domain.BeerOrder{}, total, nil
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM beer_orders ORDER BY id LIMIT ? OFFSET ?`,
		size, page*size,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.BeerOrder{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}

	if len(ids) > 0 {
		lines, err := loadLines(ctx, m.db, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Lines = lines[orders[i].ID]
		}
	}
	return orders, total, nil
}

func (m *MySQLAdapter) SaveOrder(ctx context.Context, order *domain.BeerOrder) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := m.nowFunc()
	result, err := tx.ExecContext(ctx, `
		UPDATE beer_orders
		SET customer_ref = ?, payment_amount = ?, status = ?, version = version + 1, update_date = ?
		WHERE id = ? AND version = ?`,
		order.CustomerRef, order.PaymentAmount, order.Status, now, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if rows == 0 {
		return port.ErrOptimisticLock
	}

	// The header update holds the order row lock, so the stored lines cannot
	// change underneath us for the rest of the transaction.
	stored, err := loadLines(ctx, tx, []int64{order.ID})
	if err != nil {
		return err
	}
	storedByID := make(map[int64]domain.BeerOrderLine, len(stored[order.ID]))
	for _, l := range stored[order.ID] {
		storedByID[l.ID] = l
	}

	keep := make(map[int64]bool, len(order.Lines))
	for _, l := range order.Lines {
		if l.ID != 0 {
			keep[l.ID] = true
		}
	}
	for _, l := range stored[order.ID] {
		if keep[l.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM beer_order_lines WHERE id = ?`, l.ID); err != nil {
			return fmt.Errorf("delete line %d: %w", l.ID, err)
		}
	}

	lines := make([]domain.BeerOrderLine, len(order.Lines))
	copy(lines, order.Lines)
	for i := range lines {
		l := &lines[i]
		if l.ID == 0 {
			if err := insertLine(ctx, tx, order.ID, l, now); err != nil {
				return err
			}
			continue
		}

		prev, ok := storedByID[l.ID]
		if !ok {
			return fmt.Errorf("line %d: %w", l.ID, port.ErrOptimisticLock)
		}
		if sameLine(prev, *l) {
			*l = prev
			continue
		}
		if err := updateLine(ctx, tx, order.ID, l, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	order.Version++
	order.UpdateDate = now
	order.Lines = lines
	return nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM beer_order_lines WHERE beer_order_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete lines: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM beer_orders WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return rows > 0, nil
}

func insertLine(ctx context.Context, tx *sql.Tx, orderID int64, line *domain.BeerOrderLine, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO beer_order_lines (version, beer_order_id, beer_id, order_quantity, quantity_allocated, status, created_date, update_date)
		VALUES (0, ?, ?, ?, ?, ?, ?, ?)`,
		orderID, line.BeerID, line.OrderQuantity, line.QuantityAllocated, line.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert line: %w", translateMySQLError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("line id: %w", err)
	}

	line.ID = id
	line.Version = 0
	line.CreatedDate = now
	line.UpdateDate = now
	return nil
}

func updateLine(ctx context.Context, tx *sql.Tx, orderID int64, line *domain.BeerOrderLine, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE beer_order_lines
		SET beer_id = ?, order_quantity = ?, quantity_allocated = ?, status = ?,
			version = version + 1, update_date = ?
		WHERE id = ? AND beer_order_id = ? AND version = ?`,
		line.BeerID, line.OrderQuantity, line.QuantityAllocated, line.Status,
		now, line.ID, orderID, line.Version,
	)
	if err != nil {
		return fmt.Errorf("update line %d: %w", line.ID, translateMySQLError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update line %d: %w", line.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("line %d: %w", line.ID, port.ErrOptimisticLock)
	}

	line.Version++
	line.UpdateDate = now
	return nil
}

// loadLines returns the lines of the given orders keyed by order id, each
// slice ordered by line id.
func loadLines(ctx context.Context, q querier, orderIDs []int64) (map[int64][]domain.BeerOrderLine, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM beer_order_lines
		WHERE beer_order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY id`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.BeerOrderLine, len(orderIDs))
	for rows.Next() {
		var (
			l       domain.BeerOrderLine
			orderID int64
		)
		if err := rows.Scan(&l.ID, &l.Version, &orderID, &l.BeerID, &l.OrderQuantity,
			&l.QuantityAllocated, &l.Status, &l.CreatedDate, &l.UpdateDate); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		out[orderID] = append(out[orderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return out, nil
}

func sameLine(a, b domain.BeerOrderLine) bool {
	return a.BeerID == b.BeerID &&
		a.OrderQuantity == b.OrderQuantity &&
		a.QuantityAllocated == b.QuantityAllocated &&
		a.Status == b.Status
}
