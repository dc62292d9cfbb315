package store

import (
	"context"
	"errors"
	"time"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrRelationMissing signals that the underlying table or view for a
	// logical source does not exist. Callers treat it as "no data" so the
	// legacy and modern schemas can coexist during rollout.
	ErrRelationMissing = errors.New("relation missing")
	ErrInvalid         = errors.New("invalid input")
)

// TransactionRow is the as-read shape shared by the transactions and orders
// relations. CreatedAt is an ISO-8601 UTC string, empty when the column is
// null. ItemsJSON carries the raw embedded items payload, whose shape varies
// across schema eras; decoding and coercion happen in internal/analytics.
type TransactionRow struct {
	ID            string
	OrderID       string
	TotalAmount   float64
	PaymentMethod string
	CreatedAt     string
	ItemsJSON     []byte
}

// SaleRow is one row of the legacy flat sales relation.
type SaleRow struct {
	ID            int64
	ItemName      string
	Amount        float64
	Quantity      float64
	IsVoided      bool
	PaymentMethod string
	CreatedAt     string
}

// OrderItemRow is one normalized line item from the order_items relation.
type OrderItemRow struct {
	ID        string
	OrderID   string
	ItemID    string
	ItemName  string
	Quantity  float64
	UnitPrice float64
	LineTotal float64
	CreatedAt string
}

// AnalyticsSource is the read surface the analytics engine depends on.
// Range reads filter created_at to [startISO, endISO) and return rows in
// ascending created_at order. Implementations must return ErrRelationMissing
// (possibly wrapped) when a relation does not exist, and any other error for
// real storage failures.
type AnalyticsSource interface {
	ListTransactions(ctx context.Context, startISO string, endISO string) ([]TransactionRow, error)
	ListOrders(ctx context.Context, startISO string, endISO string) ([]TransactionRow, error)
	ListSales(ctx context.Context, startISO string, endISO string) ([]SaleRow, error)
	ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []string) ([]OrderItemRow, error)
	ListOrderItemsByRange(ctx context.Context, startISO string, endISO string) ([]OrderItemRow, error)
	GetInventoryItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error)
}

type Repository interface {
	AnalyticsSource

	CreateOrder(ctx context.Context, order domain.OrderRecord) (*domain.OrderRecord, error)

	ListInventory(ctx context.Context) ([]domain.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	ListLowStockItems(ctx context.Context) ([]domain.InventoryItem, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
