package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

//go:embed schema.sql
var schema string

const (
	processedPayment     = "payment"
	processedReservation = "reservation"

	mysqlDuplicateEntry = 1062
)

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// EnsureSchema creates the order tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	s := order.Snapshot()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if s.Version == 0 {
		err = insertOrder(ctx, tx, s)
	} else {
		err = updateOrder(ctx, tx, s)
	}
	if err != nil {
		return err
	}

	if err := insertProcessed(ctx, tx, s.ID, processedPayment, s.ProcessedPaymentIDs); err != nil {
		return err
	}
	if err := insertProcessed(ctx, tx, s.ID, processedReservation, s.ProcessedReservationIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	order.SetVersion(s.Version + 1)
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, s domain.OrderSnapshot) error {
	addr := s.ShippingAddress
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, cart_id, customer_id, status, currency, order_discount, total_amount,
			recipient, street, city, state, postal_code, country,
			payment_id, reservation_id, cancellation_reason, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CartID, s.CustomerID, s.Status, s.Currency, s.OrderDiscount, s.TotalAmount,
		addr.Recipient, addr.Street, addr.City, nullable(addr.State), addr.PostalCode, addr.Country,
		nullable(s.PaymentID), nullable(s.ReservationID), nullable(s.CancellationReason),
		1, s.CreatedAt, s.UpdatedAt,
	)
	if isDuplicate(err) {
		return port.ErrConcurrentModification
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range s.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, description, sku,
				quantity, unit_price, item_discount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, i, item.ProductID, item.Name, item.Description, item.SKU,
			item.Quantity, item.UnitPrice, item.ItemDiscount,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// updateOrder writes the mutable order columns. Items never change after
// creation.
func updateOrder(ctx context.Context, tx *sql.Tx, s domain.OrderSnapshot) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_id = ?, reservation_id = ?, cancellation_reason = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		s.Status, nullable(s.PaymentID), nullable(s.ReservationID), nullable(s.CancellationReason),
		s.UpdatedAt, s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrConcurrentModification
	}
	return nil
}

func insertProcessed(ctx context.Context, tx *sql.Tx, orderID, kind string, ids []string) error {
	for _, id := range ids {
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO order_processed_messages (order_id, kind, message_id)
			VALUES (?, ?, ?)`,
			orderID, kind, id,
		)
		if err != nil {
			return fmt.Errorf("insert processed %s: %w", kind, err)
		}
	}
	return nil
}

func (m *MySQLOrderRepository) FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return m.findOne(ctx, "id", id.String())
}

func (m *MySQLOrderRepository) FindByCartID(ctx context.Context, cartID domain.CartID) (*domain.Order, error) {
	return m.findOne(ctx, "cart_id", cartID.String())
}

func (m *MySQLOrderRepository) findOne(ctx context.Context, column, value string) (*domain.Order, error) {
	var s domain.OrderSnapshot
	var state, payment, reservation, cancelled sql.NullString
	err := m.db.QueryRowContext(ctx, `
		SELECT id, cart_id, customer_id, status, currency, order_discount, total_amount,
			recipient, street, city, state, postal_code, country,
			payment_id, reservation_id, cancellation_reason, version, created_at, updated_at
		FROM orders WHERE `+column+` = ?`, value,
	).Scan(&s.ID, &s.CartID, &s.CustomerID, &s.Status, &s.Currency, &s.OrderDiscount, &s.TotalAmount,
		&s.ShippingAddress.Recipient, &s.ShippingAddress.Street, &s.ShippingAddress.City, &state,
		&s.ShippingAddress.PostalCode, &s.ShippingAddress.Country,
		&payment, &reservation, &cancelled, &s.Version, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	s.ShippingAddress.State = state.String
	s.PaymentID = payment.String
	s.ReservationID = reservation.String
	s.CancellationReason = cancelled.String

	if s.Items, err = m.loadItems(ctx, s.ID); err != nil {
		return nil, err
	}
	if err := m.loadProcessed(ctx, &s); err != nil {
		return nil, err
	}

	order, err := domain.RebuildOrder(s)
	if err != nil {
		return nil, fmt.Errorf("rebuild order %s: %w", s.ID, err)
	}
	return order, nil
}

func (m *MySQLOrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItemSnapshot, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, name, description, sku, quantity, unit_price, item_discount
		FROM order_items WHERE order_id = ? ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItemSnapshot
	for rows.Next() {
		var item domain.OrderItemSnapshot
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Description, &item.SKU,
			&item.Quantity, &item.UnitPrice, &item.ItemDiscount); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLOrderRepository) loadProcessed(ctx context.Context, s *domain.OrderSnapshot) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT kind, message_id FROM order_processed_messages
		WHERE order_id = ? ORDER BY message_id`, s.ID)
	if err != nil {
		return fmt.Errorf("query processed messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return fmt.Errorf("scan processed message: %w", err)
		}
		switch kind {
		case processedPayment:
			s.ProcessedPaymentIDs = append(s.ProcessedPaymentIDs, id)
		case processedReservation:
			s.ProcessedReservationIDs = append(s.ProcessedReservationIDs, id)
		}
	}
	return rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
