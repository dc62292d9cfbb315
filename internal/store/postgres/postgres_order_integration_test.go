package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
)

func TestCreateOrderRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("BARMANAGER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BARMANAGER_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	txID := fmt.Sprintf("txn-it-%d", stamp)
	orderID := fmt.Sprintf("ord-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
	})

	createdAt := time.Now().UTC().Truncate(time.Second)
	record := domain.OrderRecord{
		ID:            txID,
		OrderID:       orderID,
		TotalAmount:   13.5,
		PaymentMethod: "CARD",
		CreatedAt:     createdAt,
		Items: []domain.LineItem{
			{ItemID: "beer", ItemName: "Lager", Quantity: 2, UnitPrice: 4.5, LineTotal: 9},
			{ItemID: "peanuts", ItemName: "Salted Peanuts", Quantity: 1, UnitPrice: 4.5, LineTotal: 4.5},
		},
	}
	if _, err := s.CreateOrder(ctx, record); err != nil {
		t.Fatalf("create order: %v", err)
	}

	startISO := createdAt.Add(-time.Minute).Format(time.RFC3339)
	endISO := createdAt.Add(time.Minute).Format(time.RFC3339)
	rows, err := s.ListTransactions(ctx, startISO, endISO)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}

	var found bool
	for _, row := range rows {
		if row.ID != txID {
			continue
		}
		found = true
		if row.OrderID != orderID || row.TotalAmount != 13.5 || row.PaymentMethod != "CARD" {
			t.Errorf("stored row = %+v", row)
		}
		if row.CreatedAt == "" {
			t.Error("created_at must render as ISO string")
		}
	}
	if !found {
		t.Fatalf("transaction %s not returned for its window", txID)
	}

	items, err := s.ListOrderItemsByOrderIDs(ctx, []string{orderID})
	if err != nil {
		t.Fatalf("list order items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 order item rows, got %d", len(items))
	}

	// Re-inserting the same transaction id must surface as a validation error.
	if _, err := s.CreateOrder(ctx, record); err == nil {
		t.Fatal("expected duplicate order insert to fail")
	}
}
