package memory

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store"
	"github.com/tharun18-2004/bar-manager-sub001/internal/xid"
)

// Store is the in-memory repository used in dev mode and tests. The Missing*
// switches emulate a relation that does not exist yet (progressive schema
// rollout) and the Fail* fields inject hard storage errors; both are test
// knobs meant to be set before the store is shared across goroutines.
type Store struct {
	mu              sync.RWMutex
	transactions    []store.TransactionRow
	orders          []store.TransactionRow
	sales           []store.SaleRow
	orderItems      []store.OrderItemRow
	inventory       map[int64]domain.InventoryItem
	inventorySeq    int64
	expenses        []domain.Expense
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount

	MissingTransactions bool
	MissingOrders       bool
	MissingSales        bool
	MissingOrderItems   bool

	FailTransactions    error
	FailOrders          error
	FailSales           error
	FailOrderItems      error
	FailOrderItemsByIDs error
}

func New() *Store {
	return &Store{
		inventory:       make(map[int64]domain.InventoryItem),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These credentials
// are never used in production (the backend uses PostgreSQL when
// DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store pre-populated with demo inventory and the
// seeded owner/staff accounts.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	now := time.Now().UTC()
	for _, item := range []domain.InventoryItem{
		{Name: "Lager 330ml", Category: "beer", UnitPrice: 4.50, Quantity: 120, LowStockThreshold: 24},
		{Name: "IPA 330ml", Category: "beer", UnitPrice: 5.00, Quantity: 96, LowStockThreshold: 24},
		{Name: "House Red Glass", Category: "wine", UnitPrice: 6.50, Quantity: 40, LowStockThreshold: 10},
		{Name: "Gin Tonic", Category: "cocktail", UnitPrice: 8.00, Quantity: 60, LowStockThreshold: 12},
		{Name: "Whiskey Sour", Category: "cocktail", UnitPrice: 9.00, Quantity: 30, LowStockThreshold: 8},
		{Name: "Sparkling Water", Category: "soft", UnitPrice: 2.50, Quantity: 200, LowStockThreshold: 48},
		{Name: "Cola", Category: "soft", UnitPrice: 2.80, Quantity: 18, LowStockThreshold: 48},
		{Name: "Salted Peanuts", Category: "snack", UnitPrice: 3.00, Quantity: 50, LowStockThreshold: 15},
	} {
		s.inventorySeq++
		item.ID = s.inventorySeq
		item.UpdatedAt = now
		s.inventory[item.ID] = item
	}
	return s
}

// Seed helpers for tests.

func (s *Store) SeedTransaction(row store.TransactionRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, row)
}

func (s *Store) SeedOrderRow(row store.TransactionRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, row)
}

func (s *Store) SeedSale(row store.SaleRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, row)
}

func (s *Store) SeedOrderItem(row store.OrderItemRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderItems = append(s.orderItems, row)
}

func inRange(createdAt string, startISO string, endISO string) bool {
	return createdAt != "" && createdAt >= startISO && createdAt < endISO
}

func sortRowsByCreatedAt(rows []store.TransactionRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt < rows[j].CreatedAt })
}

func (s *Store) ListTransactions(ctx context.Context, startISO string, endISO string) ([]store.TransactionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailTransactions != nil {
		return nil, s.FailTransactions
	}
	if s.MissingTransactions {
		return nil, store.ErrRelationMissing
	}
	var out []store.TransactionRow
	for _, row := range s.transactions {
		if inRange(row.CreatedAt, startISO, endISO) {
			out = append(out, row)
		}
	}
	sortRowsByCreatedAt(out)
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, startISO string, endISO string) ([]store.TransactionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailOrders != nil {
		return nil, s.FailOrders
	}
	if s.MissingOrders {
		return nil, store.ErrRelationMissing
	}
	var out []store.TransactionRow
	for _, row := range s.orders {
		if inRange(row.CreatedAt, startISO, endISO) {
			out = append(out, row)
		}
	}
	sortRowsByCreatedAt(out)
	return out, nil
}

func (s *Store) ListSales(ctx context.Context, startISO string, endISO string) ([]store.SaleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailSales != nil {
		return nil, s.FailSales
	}
	if s.MissingSales {
		return nil, store.ErrRelationMissing
	}
	var out []store.SaleRow
	for _, row := range s.sales {
		if inRange(row.CreatedAt, startISO, endISO) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *Store) ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []string) ([]store.OrderItemRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailOrderItems != nil {
		return nil, s.FailOrderItems
	}
	if s.FailOrderItemsByIDs != nil {
		return nil, s.FailOrderItemsByIDs
	}
	if s.MissingOrderItems {
		return nil, store.ErrRelationMissing
	}
	wanted := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = struct{}{}
	}
	var out []store.OrderItemRow
	for _, row := range s.orderItems {
		if _, ok := wanted[row.OrderID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Store) ListOrderItemsByRange(ctx context.Context, startISO string, endISO string) ([]store.OrderItemRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailOrderItems != nil {
		return nil, s.FailOrderItems
	}
	if s.MissingOrderItems {
		return nil, store.ErrRelationMissing
	}
	var out []store.OrderItemRow
	for _, row := range s.orderItems {
		if inRange(row.CreatedAt, startISO, endISO) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.OrderRecord) (*domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}
	createdAt := order.CreatedAt.UTC().Format(time.RFC3339)
	s.transactions = append(s.transactions, store.TransactionRow{
		ID:            order.ID,
		OrderID:       order.OrderID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     createdAt,
		ItemsJSON:     itemsJSON,
	})
	for _, it := range order.Items {
		s.orderItems = append(s.orderItems, store.OrderItemRow{
			ID:        xid.New("oi"),
			OrderID:   order.OrderID,
			ItemID:    it.ItemID,
			ItemName:  it.ItemName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
			CreatedAt: createdAt,
		})
	}
	return &order, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventorySeq++
	item.ID = s.inventorySeq
	item.UpdatedAt = time.Now().UTC()
	s.inventory[item.ID] = item
	return &item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inventory[item.ID]; !ok {
		return nil, store.ErrNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	s.inventory[item.ID] = item
	return &item, nil
}

func (s *Store) GetInventoryItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.inventory[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListLowStockItems(ctx context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.InventoryItem
	for _, item := range s.inventory {
		if item.Quantity <= item.LowStockThreshold {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, expense)
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Expense
	for _, e := range s.expenses {
		if e.SpentAt.Before(from) || !e.SpentAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SpentAt.After(out[j].SpentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditLog
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Username)
	if _, ok := s.usersByUsername[key]; ok {
		return store.ErrInvalid
	}
	s.usersByUsername[key] = user
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.usersByUsername[strings.ToLower(username)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
