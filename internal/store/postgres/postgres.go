package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// isoCreatedAt renders created_at as a zero-padded ISO-8601 UTC string so
// string comparison downstream matches timestamp order. NULL becomes ''.
const isoCreatedAt = `COALESCE(to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), '')`

func (s *Store) listTransactionLike(ctx context.Context, relation string, startISO string, endISO string) ([]store.TransactionRow, error) {
	query := fmt.Sprintf(`
		SELECT id::text, COALESCE(order_id, ''), COALESCE(total_amount, 0),
		       COALESCE(payment_method, ''), %s, COALESCE(items, 'null'::jsonb)
		FROM %s
		WHERE created_at >= $1::timestamptz AND created_at < $2::timestamptz
		ORDER BY created_at ASC
	`, isoCreatedAt, relation)
	rows, err := s.db.QueryContext(ctx, query, startISO, endISO)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]store.TransactionRow, 0, 64)
	for rows.Next() {
		var row store.TransactionRow
		if err := rows.Scan(&row.ID, &row.OrderID, &row.TotalAmount, &row.PaymentMethod, &row.CreatedAt, &row.ItemsJSON); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, startISO string, endISO string) ([]store.TransactionRow, error) {
	return s.listTransactionLike(ctx, "transactions", startISO, endISO)
}

func (s *Store) ListOrders(ctx context.Context, startISO string, endISO string) ([]store.TransactionRow, error) {
	return s.listTransactionLike(ctx, "orders", startISO, endISO)
}

func (s *Store) ListSales(ctx context.Context, startISO string, endISO string) ([]store.SaleRow, error) {
	query := fmt.Sprintf(`
		SELECT id, COALESCE(item_name, ''), COALESCE(amount, 0), COALESCE(quantity, 0),
		       COALESCE(is_voided, false), COALESCE(payment_method, ''), %s
		FROM sales
		WHERE created_at >= $1::timestamptz AND created_at < $2::timestamptz
		ORDER BY created_at ASC
	`, isoCreatedAt)
	rows, err := s.db.QueryContext(ctx, query, startISO, endISO)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]store.SaleRow, 0, 64)
	for rows.Next() {
		var row store.SaleRow
		if err := rows.Scan(&row.ID, &row.ItemName, &row.Amount, &row.Quantity, &row.IsVoided, &row.PaymentMethod, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const orderItemColumns = `id::text, COALESCE(order_id, ''), COALESCE(item_id, ''), COALESCE(item_name, ''),
	       COALESCE(quantity, 0), COALESCE(unit_price, 0), COALESCE(line_total, 0), ` + isoCreatedAt

func (s *Store) ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []string) ([]store.OrderItemRow, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(orderIDs))
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM order_items
		WHERE order_id IN (%s)
	`, orderItemColumns, strings.Join(placeholders, ","))
	return s.queryOrderItems(ctx, query, args...)
}

func (s *Store) ListOrderItemsByRange(ctx context.Context, startISO string, endISO string) ([]store.OrderItemRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM order_items
		WHERE created_at >= $1::timestamptz AND created_at < $2::timestamptz
	`, orderItemColumns)
	return s.queryOrderItems(ctx, query, startISO, endISO)
}

func (s *Store) queryOrderItems(ctx context.Context, query string, args ...any) ([]store.OrderItemRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]store.OrderItemRow, 0, 64)
	for rows.Next() {
		var row store.OrderItemRow
		if err := rows.Scan(&row.ID, &row.OrderID, &row.ItemID, &row.ItemName, &row.Quantity, &row.UnitPrice, &row.LineTotal, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.OrderRecord) (*domain.OrderRecord, error) {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, order_id, total_amount, payment_method, items, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, order.ID, order.OrderID, order.TotalAmount, order.PaymentMethod, itemsJSON, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	for _, it := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, item_name, quantity, unit_price, line_total, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, order.OrderID, it.ItemID, it.ItemName, it.Quantity, it.UnitPrice, it.LineTotal, order.CreatedAt)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(category, ''), unit_price, quantity, low_stock_threshold, updated_at
		FROM inventory
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInventory(rows)
}

func (s *Store) ListLowStockItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(category, ''), unit_price, quantity, low_stock_threshold, updated_at
		FROM inventory
		WHERE quantity <= low_stock_threshold
		ORDER BY quantity ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInventory(rows)
}

func scanInventory(rows *sql.Rows) ([]domain.InventoryItem, error) {
	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.UnitPrice, &item.Quantity, &item.LowStockThreshold, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory (name, category, unit_price, quantity, low_stock_threshold, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		RETURNING id, updated_at
	`, item.Name, item.Category, item.UnitPrice, item.Quantity, item.LowStockThreshold).Scan(&item.ID, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE inventory
		SET name = $2, category = $3, unit_price = $4, quantity = $5, low_stock_threshold = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, item.ID, item.Name, item.Category, item.UnitPrice, item.Quantity, item.LowStockThreshold).Scan(&item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetInventoryItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(category, ''), unit_price, quantity, low_stock_threshold, updated_at
		FROM inventory
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Category, &item.UnitPrice, &item.Quantity, &item.LowStockThreshold, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, label, category, amount, spent_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.Label, expense.Category, expense.Amount, expense.SpentAt, expense.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, COALESCE(category, ''), amount, spent_at, COALESCE(created_by, '')
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		ORDER BY spent_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Label, &e.Category, &e.Amount, &e.SpentAt, &e.CreatedBy); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, COALESCE(entity_id, ''), COALESCE(detail, ''), created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, strings.ToLower(user.Username), user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrInvalid
	}
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(username)).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// classify maps undefined-table and stale-schema SQLSTATEs onto
// store.ErrRelationMissing so callers can apply the relation-missing
// tolerance rule. Everything else passes through untouched.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", "3F000": // undefined_table, invalid_schema_name
			return fmt.Errorf("%w: %s", store.ErrRelationMissing, pgErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
