package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store/memory"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	mem := memory.New()
	svc := New(mem, nil, time.Minute)
	svc.now = func() time.Time { return testNow }
	return svc, mem
}

func ownerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "owner", Role: domain.RoleOwner})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "staff", Role: domain.RoleStaff})
}

func seedTodayTransaction(mem *memory.Store, orderID string, total float64, method string) {
	mem.SeedTransaction(store.TransactionRow{
		ID: "t-" + orderID, OrderID: orderID, TotalAmount: total, PaymentMethod: method,
		CreatedAt: "2024-01-15T10:00:00Z",
		ItemsJSON: []byte(`[{"itemId":"beer","itemName":"Lager","quantity":2,"unitPrice":4.5,"lineTotal":9}]`),
	})
}

func TestDashboardAggregates(t *testing.T) {
	svc, mem := newTestService(t)
	seedTodayTransaction(mem, "A", 9, "cash")
	seedTodayTransaction(mem, "B", 21, "card")
	// Earlier in the month, outside today's window.
	mem.SeedTransaction(store.TransactionRow{
		ID: "t-C", OrderID: "C", TotalAmount: 30, PaymentMethod: "card",
		CreatedAt: "2024-01-02T10:00:00Z",
	})

	resp, err := svc.Dashboard(context.Background(), "today", 0)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if resp.TotalSales != 30 || resp.TotalOrders != 2 {
		t.Errorf("today totals = %.2f/%d, want 30.00/2", resp.TotalSales, resp.TotalOrders)
	}
	if resp.MonthlyOverview.TotalSales != 60 || resp.MonthlyOverview.TotalOrders != 3 {
		t.Errorf("monthly overview = %+v, want 60.00/3", resp.MonthlyOverview)
	}
	if len(resp.TopItems) != 1 || resp.TopItems[0].ItemID != "beer" || resp.TopItems[0].Count != 4 {
		t.Errorf("topItems = %+v, want beer count=4", resp.TopItems)
	}
	if len(resp.PaymentBreakdown) != 2 {
		t.Errorf("paymentBreakdown = %+v, want CASH and CARD", resp.PaymentBreakdown)
	}
	if resp.StartISO != "2024-01-15T00:00:00Z" || resp.EndISO != "2024-01-16T00:00:00Z" {
		t.Errorf("window = [%s, %s)", resp.StartISO, resp.EndISO)
	}
}

func TestDashboardDefaultsMalformedRange(t *testing.T) {
	svc, mem := newTestService(t)
	seedTodayTransaction(mem, "A", 9, "cash")

	resp, err := svc.Dashboard(context.Background(), "bogus", 0)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if resp.Range != "today" {
		t.Errorf("range = %q, want today", resp.Range)
	}
}

func TestDashboardAbortsOnStorageError(t *testing.T) {
	svc, mem := newTestService(t)
	mem.FailOrders = errors.New("connection reset")

	if _, err := svc.Dashboard(context.Background(), "today", 0); err == nil {
		t.Fatal("expected storage error to abort the dashboard")
	}
}

type stubCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (c *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.data[key]
	return payload, ok, nil
}

func (c *stubCache) Set(_ context.Context, key string, payload []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = payload
	c.sets++
	return nil
}

func TestDashboardServedFromCache(t *testing.T) {
	mem := memory.New()
	cch := &stubCache{}
	svc := New(mem, cch, time.Minute)
	svc.now = func() time.Time { return testNow }
	seedTodayTransaction(mem, "A", 9, "cash")

	first, err := svc.Dashboard(context.Background(), "today", 0)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	// New data after the first call must not show up within the TTL.
	seedTodayTransaction(mem, "B", 50, "cash")
	second, err := svc.Dashboard(context.Background(), "today", 0)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if second.TotalSales != first.TotalSales || second.TotalOrders != first.TotalOrders {
		t.Errorf("second call bypassed the cache: %+v vs %+v", second, first)
	}
	if cch.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cch.sets)
	}
}

func TestRevenueAnalytics(t *testing.T) {
	svc, mem := newTestService(t)
	seedTodayTransaction(mem, "A", 9, "cash")
	mem.SeedTransaction(store.TransactionRow{
		ID: "t-B", OrderID: "B", TotalAmount: 12, PaymentMethod: "card",
		CreatedAt: "2024-01-02T10:00:00Z",
		ItemsJSON: []byte(`[{"itemId":"wine","itemName":"House Red","quantity":3,"lineTotal":12}]`),
	})
	mem.SeedOrderItem(store.OrderItemRow{OrderID: "A", ItemID: "beer", ItemName: "Lager", Quantity: 2, CreatedAt: "2024-01-15T10:00:00Z"})
	mem.SeedOrderItem(store.OrderItemRow{OrderID: "B", ItemID: "wine", ItemName: "House Red", Quantity: 3, CreatedAt: "2024-01-02T10:00:00Z"})

	resp, err := svc.RevenueAnalytics(context.Background(), 0)
	if err != nil {
		t.Fatalf("RevenueAnalytics: %v", err)
	}
	if len(resp.MonthlySales) != 12 {
		t.Fatalf("monthlySales has %d slots, want 12", len(resp.MonthlySales))
	}
	if resp.MonthlySales[0].Amount != 21 {
		t.Errorf("Jan = %v, want 21", resp.MonthlySales[0].Amount)
	}
	if len(resp.DailyRevenue) != 2 {
		t.Errorf("dailyRevenue = %+v, want 2 buckets", resp.DailyRevenue)
	}
	if resp.TopSellingItem == nil || resp.TopSellingItem.ItemID != "wine" || resp.TopSellingItem.Quantity != 3 {
		t.Errorf("topSellingItem = %+v, want wine qty=3", resp.TopSellingItem)
	}
}

func TestRecordOrderValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []domain.OrderCreateRequest{
		{PaymentMethod: "cash"},
		{Items: []domain.OrderItemInput{{ItemName: "Lager", Quantity: 0, UnitPrice: 4}}},
		{Items: []domain.OrderItemInput{{ItemName: "Lager", Quantity: 1, UnitPrice: -1}}},
		{Items: []domain.OrderItemInput{{Quantity: 1, UnitPrice: 4}}},
	}
	for i, req := range cases {
		if _, err := svc.RecordOrder(staffCtx(), req); !errors.Is(err, store.ErrInvalid) {
			t.Errorf("case %d: err = %v, want ErrInvalid", i, err)
		}
	}
}

func TestRecordOrderPersistsAndAudits(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.RecordOrder(staffCtx(), domain.OrderCreateRequest{
		PaymentMethod: " cash ",
		Items: []domain.OrderItemInput{
			{ItemName: "Lager", Quantity: 2, UnitPrice: 4.5},
			{ItemName: "Peanuts", Quantity: 1, UnitPrice: 3},
		},
	})
	if err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	if resp.Order.TotalAmount != 12 {
		t.Errorf("total = %v, want 12", resp.Order.TotalAmount)
	}
	if resp.Order.PaymentMethod != "CASH" {
		t.Errorf("paymentMethod = %q, want CASH", resp.Order.PaymentMethod)
	}

	list, err := svc.ListOrders(context.Background(), "today", 0)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(list.Orders) != 1 || list.Orders[0].OrderID != resp.Order.OrderID {
		t.Fatalf("recorded order not visible in today's window: %+v", list.Orders)
	}

	logs, err := svc.ListAuditLogs(ownerCtx(), 10)
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "order_create" || logs[0].ActorUsername != "staff" {
		t.Errorf("audit trail = %+v, want one order_create by staff", logs)
	}
}

func TestInventoryWritesRequireOwner(t *testing.T) {
	svc, _ := newTestService(t)

	req := domain.InventoryCreateRequest{Name: "Lager", UnitPrice: 4.5, Quantity: 10, LowStockThreshold: 2}
	if _, err := svc.CreateInventoryItem(staffCtx(), req); !errors.Is(err, ErrForbidden) {
		t.Errorf("staff create: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateInventoryItem(context.Background(), req); !errors.Is(err, ErrForbidden) {
		t.Errorf("anonymous create: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateInventoryItem(ownerCtx(), req); err != nil {
		t.Errorf("owner create: %v", err)
	}
}

func TestUpdateInventoryItemPatch(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateInventoryItem(ownerCtx(), domain.InventoryCreateRequest{
		Name: "Cola", Category: "soft", UnitPrice: 2.8, Quantity: 18, LowStockThreshold: 48,
	})
	if err != nil {
		t.Fatalf("CreateInventoryItem: %v", err)
	}

	qty := 100.0
	updated, err := svc.UpdateInventoryItem(ownerCtx(), created.ID, domain.InventoryUpdateRequest{Quantity: &qty})
	if err != nil {
		t.Fatalf("UpdateInventoryItem: %v", err)
	}
	if updated.Quantity != 100 {
		t.Errorf("quantity = %v, want 100", updated.Quantity)
	}
	if updated.Name != "Cola" || updated.UnitPrice != 2.8 {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	if _, err := svc.UpdateInventoryItem(ownerCtx(), 9999, domain.InventoryUpdateRequest{Quantity: &qty}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestCreateExpense(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CreateExpense(ownerCtx(), domain.ExpenseCreateRequest{Label: "", Amount: 10}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("blank label: err = %v, want ErrInvalid", err)
	}
	if _, err := svc.CreateExpense(ownerCtx(), domain.ExpenseCreateRequest{Label: "Ice", Amount: 0}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("zero amount: err = %v, want ErrInvalid", err)
	}

	created, err := svc.CreateExpense(ownerCtx(), domain.ExpenseCreateRequest{
		Label: "Keg delivery", Category: "stock", Amount: 120.5, SpentAt: "2024-01-10T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.CreatedBy != "owner" {
		t.Errorf("createdBy = %q, want owner", created.CreatedBy)
	}

	list, err := svc.ListExpenses(ownerCtx(), 10)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(list) != 1 || list[0].Label != "Keg delivery" {
		t.Errorf("expenses = %+v", list)
	}
}

func TestCreateStaff(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CreateStaff(ownerCtx(), domain.StaffCreateRequest{Username: "ab", Password: "longenough"}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("short username: err = %v, want ErrInvalid", err)
	}
	if _, err := svc.CreateStaff(ownerCtx(), domain.StaffCreateRequest{Username: "newstaff", Password: "short"}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("short password: err = %v, want ErrInvalid", err)
	}

	created, err := svc.CreateStaff(ownerCtx(), domain.StaffCreateRequest{Username: "NewStaff", Password: "longenough"})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if created.Username != "newstaff" || created.Role != domain.RoleStaff {
		t.Errorf("created = %+v", created)
	}

	if _, err := svc.CreateStaff(ownerCtx(), domain.StaffCreateRequest{Username: "newstaff", Password: "longenough"}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("duplicate username: err = %v, want ErrInvalid", err)
	}

	users, err := svc.ListStaff(ownerCtx())
	if err != nil {
		t.Fatalf("ListStaff: %v", err)
	}
	if len(users) != 1 || users[0].Username != "newstaff" {
		t.Errorf("staff list = %+v", users)
	}
}
