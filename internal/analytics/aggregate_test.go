package analytics

import (
	"math"
	"reflect"
	"testing"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
)

func TestTopItemsAccumulatesAcrossOrders(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{TotalAmount: 10, Items: []domain.LineItem{{ItemID: "A", ItemName: "Ale", Quantity: 2, LineTotal: 10}}},
		{TotalAmount: 5, Items: []domain.LineItem{{ItemID: "A", ItemName: "Ale", Quantity: 1, LineTotal: 5}}},
	}
	top := TopItems(orders, 1, Options{})
	if len(top) != 1 {
		t.Fatalf("got %d entries, want 1", len(top))
	}
	if top[0].ItemID != "A" || top[0].Count != 3 || top[0].Revenue != 15 {
		t.Errorf("top = %+v, want itemId=A count=3 revenue=15", top[0])
	}
}

func TestTopItemsFirstSeenTieBreak(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{Items: []domain.LineItem{
			{ItemID: "A", Quantity: 2, LineTotal: 4},
			{ItemID: "B", Quantity: 2, LineTotal: 6},
		}},
	}
	top := TopItems(orders, 2, Options{})
	if top[0].ItemID != "A" {
		t.Errorf("tie must keep first-seen item ahead, got %q", top[0].ItemID)
	}
}

func TestTopItemsSkipsNonPositiveQuantities(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{Items: []domain.LineItem{
			{ItemID: "A", Quantity: 0, LineTotal: 4},
			{ItemID: "B", Quantity: -1, LineTotal: 6},
			{ItemID: "C", Quantity: 1, LineTotal: 2},
		}},
	}
	top := TopItems(orders, 10, Options{})
	if len(top) != 1 || top[0].ItemID != "C" {
		t.Errorf("zero and negative quantities must be excluded, got %+v", top)
	}
}

func TestTopItemsRevenueAttributionFallbacks(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{TotalAmount: 100, Items: []domain.LineItem{
			{ItemID: "priced", Quantity: 2, UnitPrice: 3},
			{ItemID: "bare-1", Quantity: 1},
			{ItemID: "bare-2", Quantity: 3},
		}},
	}

	top := TopItems(orders, 10, Options{})
	byID := map[string]domain.ItemSales{}
	for _, e := range top {
		byID[e.ItemID] = e
	}
	if byID["priced"].Revenue != 6 {
		t.Errorf("unitPrice*qty attribution = %v, want 6", byID["priced"].Revenue)
	}
	// Historical behavior: each priceless line gets the whole order total.
	if byID["bare-1"].Revenue != 100 || byID["bare-2"].Revenue != 100 {
		t.Errorf("whole-total attribution = %v / %v, want 100 / 100", byID["bare-1"].Revenue, byID["bare-2"].Revenue)
	}

	prop := TopItems(orders, 10, Options{ProportionalOrderTotal: true})
	byID = map[string]domain.ItemSales{}
	for _, e := range prop {
		byID[e.ItemID] = e
	}
	if byID["bare-1"].Revenue != 25 || byID["bare-2"].Revenue != 75 {
		t.Errorf("proportional attribution = %v / %v, want 25 / 75", byID["bare-1"].Revenue, byID["bare-2"].Revenue)
	}
}

func TestTotalRevenueAdditivity(t *testing.T) {
	slice1 := []domain.CanonicalOrder{{TotalAmount: 10}, {TotalAmount: 2.5}}
	slice2 := []domain.CanonicalOrder{{TotalAmount: 5}, {TotalAmount: 0.25}}
	full := append(append([]domain.CanonicalOrder{}, slice1...), slice2...)

	if got, want := TotalRevenue(full), TotalRevenue(slice1)+TotalRevenue(slice2); got != want {
		t.Errorf("revenue over disjoint partitions: %v != %v", got, want)
	}
	if TotalCount(full) != TotalCount(slice1)+TotalCount(slice2) {
		t.Errorf("count over disjoint partitions mismatch")
	}
}

func TestAggregationIdempotent(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{TotalAmount: 12.30, PaymentMethod: "CASH", CreatedAt: "2024-03-05T18:00:00Z",
			Items: []domain.LineItem{{ItemID: "A", ItemName: "Ale", Quantity: 2, LineTotal: 12.30}}},
		{TotalAmount: 7.70, PaymentMethod: "CARD", CreatedAt: "2024-04-01T02:00:00Z",
			Items: []domain.LineItem{{ItemID: "B", ItemName: "Stout", Quantity: 1, LineTotal: 7.70}}},
	}
	first := struct {
		revenue float64
		top     []domain.ItemSales
		daily   []domain.DailyRevenue
		monthly []domain.MonthlyRevenue
		pay     []domain.PaymentTotal
	}{
		TotalRevenue(orders),
		TopItems(orders, 5, Options{}),
		DailyRevenue(orders, 0),
		MonthlyRevenue(orders, 0),
		PaymentBreakdown(orders),
	}
	second := struct {
		revenue float64
		top     []domain.ItemSales
		daily   []domain.DailyRevenue
		monthly []domain.MonthlyRevenue
		pay     []domain.PaymentTotal
	}{
		TotalRevenue(orders),
		TopItems(orders, 5, Options{}),
		DailyRevenue(orders, 0),
		MonthlyRevenue(orders, 0),
		PaymentBreakdown(orders),
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregating the same list twice produced different output")
	}
}

func TestMonthlyRevenueAlwaysTwelveSlots(t *testing.T) {
	out := MonthlyRevenue(nil, 0)
	if len(out) != 12 {
		t.Fatalf("got %d slots, want 12", len(out))
	}
	if out[0].Month != "Jan" || out[11].Month != "Dec" {
		t.Errorf("labels = %s..%s, want Jan..Dec", out[0].Month, out[11].Month)
	}
	for _, m := range out {
		if m.Amount != 0 {
			t.Errorf("empty input should yield zero amounts, got %+v", m)
		}
	}
}

func TestMonthlyRevenueBucketsByLocalMonth(t *testing.T) {
	orders := []domain.CanonicalOrder{
		// 02:00Z on Feb 1st is still January at UTC-5.
		{TotalAmount: 10, CreatedAt: "2024-02-01T02:00:00Z"},
		{TotalAmount: 20, CreatedAt: "2024-02-15T12:00:00Z"},
	}
	out := MonthlyRevenue(orders, 300)
	if out[0].Amount != 10 {
		t.Errorf("Jan = %v, want 10", out[0].Amount)
	}
	if out[1].Amount != 20 {
		t.Errorf("Feb = %v, want 20", out[1].Amount)
	}
}

func TestDailyRevenueOffsetShift(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{TotalAmount: 42, CreatedAt: "2024-01-01T04:30:00Z"},
	}
	out := DailyRevenue(orders, 300)
	if len(out) != 1 {
		t.Fatalf("got %d buckets, want 1", len(out))
	}
	if out[0].Date != "2023-12-31" {
		t.Errorf("bucket = %s, want 2023-12-31 (local time is 23:30 the day before)", out[0].Date)
	}
	if out[0].Amount != 42 {
		t.Errorf("amount = %v, want 42", out[0].Amount)
	}
}

func TestDailyRevenueSortedAndRounded(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{TotalAmount: 1.006, CreatedAt: "2024-01-02T10:00:00Z"},
		{TotalAmount: 2, CreatedAt: "2024-01-01T10:00:00Z"},
		{TotalAmount: 3, CreatedAt: "2024-01-02T11:00:00Z"},
		{TotalAmount: 4, CreatedAt: ""},
	}
	out := DailyRevenue(orders, 0)
	if len(out) != 2 {
		t.Fatalf("got %d buckets, want 2 (missing createdAt skipped)", len(out))
	}
	if out[0].Date != "2024-01-01" || out[1].Date != "2024-01-02" {
		t.Errorf("buckets out of order: %+v", out)
	}
	if math.Abs(out[1].Amount-4.01) > 1e-9 {
		t.Errorf("amount = %v, want 4.01", out[1].Amount)
	}
}

func TestPaymentBreakdownGroupsAndNormalizes(t *testing.T) {
	orders := []domain.CanonicalOrder{
		{TotalAmount: 10, PaymentMethod: "CASH"},
		{TotalAmount: 5, PaymentMethod: "cash"},
		{TotalAmount: 7, PaymentMethod: ""},
	}
	out := PaymentBreakdown(orders)
	if len(out) != 2 {
		t.Fatalf("got %d groups, want 2", len(out))
	}
	if out[0].PaymentMethod != "CASH" || out[0].TotalAmount != 15 {
		t.Errorf("first group = %+v, want CASH 15", out[0])
	}
	if out[1].PaymentMethod != domain.UnknownPaymentMethod || out[1].TotalAmount != 7 {
		t.Errorf("second group = %+v, want UNKNOWN 7", out[1])
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		1.006:  1.01,
		2.004:  2,
		-1.006: -1.01,
		1.2345: 1.23,
		0:      0,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}
