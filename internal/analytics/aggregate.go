package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
)

// Options tunes aggregation behavior. The zero value matches the historical
// reports exactly.
type Options struct {
	// ProportionalOrderTotal splits an order's total across its priceless
	// line items in proportion to quantity instead of attributing the whole
	// total to each of them. The whole-total attribution over-counts when an
	// order has several items with no price data, but it is what the
	// historical reports showed, so it stays the default.
	ProportionalOrderTotal bool
}

// Round2 rounds to 2 decimal places. Applied at the reporting boundary only;
// internal sums keep full precision to avoid compounding rounding error.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TotalRevenue sums totalAmount at full precision.
func TotalRevenue(orders []domain.CanonicalOrder) float64 {
	var sum float64
	for _, o := range orders {
		sum += o.TotalAmount
	}
	return sum
}

func TotalCount(orders []domain.CanonicalOrder) int {
	return len(orders)
}

// TopItems groups line items by itemId across all orders and ranks them by
// summed quantity, descending. Grouping is insertion-ordered, so ties keep
// the first-seen item ahead. Zero and negative quantities are excluded.
// Revenue per line falls back through lineTotal, unitPrice*quantity, and
// finally the parent order's total (see Options).
func TopItems(orders []domain.CanonicalOrder, limit int, opts Options) []domain.ItemSales {
	if limit <= 0 {
		return []domain.ItemSales{}
	}
	index := make(map[string]int)
	entries := make([]domain.ItemSales, 0)
	for _, o := range orders {
		var pricelessQty float64
		if opts.ProportionalOrderTotal {
			for _, it := range o.Items {
				if it.Quantity > 0 && it.LineTotal <= 0 && it.UnitPrice <= 0 {
					pricelessQty += it.Quantity
				}
			}
		}
		for _, it := range o.Items {
			if it.Quantity <= 0 {
				continue
			}
			var revenue float64
			switch {
			case it.LineTotal > 0:
				revenue = it.LineTotal
			case it.UnitPrice > 0:
				revenue = it.UnitPrice * it.Quantity
			case opts.ProportionalOrderTotal && pricelessQty > 0:
				revenue = o.TotalAmount * it.Quantity / pricelessQty
			default:
				revenue = o.TotalAmount
			}
			i, ok := index[it.ItemID]
			if !ok {
				i = len(entries)
				index[it.ItemID] = i
				entries = append(entries, domain.ItemSales{ItemID: it.ItemID, ItemName: it.ItemName})
			}
			entries[i].Count += it.Quantity
			entries[i].Revenue += revenue
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Revenue = Round2(entries[i].Revenue)
	}
	return entries
}

// DailyRevenue buckets orders into local calendar days using the same
// shift-then-extract technique as ComputeRange and returns the buckets
// sorted ascending by date label. Orders without a parseable createdAt are
// skipped.
func DailyRevenue(orders []domain.CanonicalOrder, offsetMinutes int) []domain.DailyRevenue {
	off := time.Duration(ClampOffset(offsetMinutes)) * time.Minute
	sums := make(map[string]float64)
	for _, o := range orders {
		t, ok := parseISO(o.CreatedAt)
		if !ok {
			continue
		}
		day := t.UTC().Add(-off).Format("2006-01-02")
		sums[day] += o.TotalAmount
	}
	days := make([]string, 0, len(sums))
	for day := range sums {
		days = append(days, day)
	}
	sort.Strings(days)
	out := make([]domain.DailyRevenue, 0, len(days))
	for _, day := range days {
		out = append(out, domain.DailyRevenue{Date: day, Amount: Round2(sums[day])})
	}
	return out
}

var monthAbbrevs = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthlyRevenue accumulates into a fixed 12-slot Jan..Dec series so callers
// always get a full year of rows, zeros included.
func MonthlyRevenue(orders []domain.CanonicalOrder, offsetMinutes int) []domain.MonthlyRevenue {
	off := time.Duration(ClampOffset(offsetMinutes)) * time.Minute
	var sums [12]float64
	for _, o := range orders {
		t, ok := parseISO(o.CreatedAt)
		if !ok {
			continue
		}
		sums[t.UTC().Add(-off).Month()-1] += o.TotalAmount
	}
	out := make([]domain.MonthlyRevenue, 12)
	for i := range out {
		out[i] = domain.MonthlyRevenue{Month: monthAbbrevs[i], Amount: Round2(sums[i])}
	}
	return out
}

// PaymentBreakdown groups totalAmount by payment method in first-seen order.
func PaymentBreakdown(orders []domain.CanonicalOrder) []domain.PaymentTotal {
	index := make(map[string]int)
	out := make([]domain.PaymentTotal, 0)
	for _, o := range orders {
		method := normalizePaymentMethod(o.PaymentMethod)
		i, ok := index[method]
		if !ok {
			i = len(out)
			index[method] = i
			out = append(out, domain.PaymentTotal{PaymentMethod: method})
		}
		out[i].TotalAmount += o.TotalAmount
	}
	for i := range out {
		out[i].TotalAmount = Round2(out[i].TotalAmount)
	}
	return out
}
